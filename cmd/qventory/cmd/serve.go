package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/noakmilo/qventory-backend/internal/api/handlers"
	"github.com/noakmilo/qventory-backend/internal/api/middleware"
	"github.com/noakmilo/qventory-backend/internal/config"
	"github.com/noakmilo/qventory-backend/internal/ebay"
	"github.com/noakmilo/qventory-backend/internal/engine"
	"github.com/noakmilo/qventory-backend/internal/notify"
	"github.com/noakmilo/qventory-backend/internal/relist"
	"github.com/noakmilo/qventory-backend/internal/store"
	"github.com/noakmilo/qventory-backend/internal/telemetry"
	"github.com/noakmilo/qventory-backend/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and relist scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// credentialSource adapts the store's not-found error to the token
// provider's "never linked" contract (empty token, no error).
type credentialSource struct {
	store store.Store
}

func (c credentialSource) RefreshToken(ctx context.Context, userID string) (string, error) {
	token, err := c.store.RefreshToken(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	return token, err
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cliLog := log.NewWithOptions(os.Stderr, log.Options{
		Level: parseLogLevel(cfg.Logging.Level),
	})
	slogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx := context.Background()

	tracing, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       "qventory-backend",
		Insecure:          cfg.Telemetry.Insecure,
	}, slogger)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}

	st, err := store.NewPostgresStore(ctx, cfg.Database.DSN(),
		store.WithPoolSize(cfg.Database.PoolSize))
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer st.Close()

	// Marketplace plumbing shared by both protocol adapters.
	tokens := ebay.NewUserTokenProvider(
		cfg.Ebay.AppID,
		cfg.Ebay.CertID,
		credentialSource{store: st},
		ebay.WithTokenURL(cfg.Ebay.TokenURL),
	)
	limiter := ebay.NewRateLimiter(
		cfg.Ebay.RateLimit.PerSecond,
		cfg.Ebay.RateLimit.Burst,
		cfg.Ebay.RateLimit.DailyLimit,
	)
	adapters := ebay.NewAdapterFactory(tokens, st,
		ebay.WithSellURL(cfg.Ebay.SellURL),
		ebay.WithTradingURL(cfg.Ebay.TradingURL),
		ebay.WithMarketplace(cfg.Ebay.Marketplace),
		ebay.WithRateLimiter(limiter),
		ebay.WithLogger(slogger),
	)

	orch := relist.New(adapters, relist.NewGate(st), st,
		relist.WithLogger(slogger),
		relist.WithDefaultDelay(cfg.Relist.DefaultDelay),
		relist.WithSettleDelay(cfg.Relist.SettleDelay),
	)

	notifier, closeNotifier, err := buildNotifier(cfg, slogger)
	if err != nil {
		return fmt.Errorf("configuring notifications: %w", err)
	}

	eng := engine.NewEngine(st, orch, adapters, notifier,
		engine.WithLogger(slogger),
		engine.WithLeaseTTL(cfg.Relist.LeaseTTL),
		engine.WithConcurrency(cfg.Relist.Concurrency),
		engine.WithMaxRulesPerCycle(cfg.Relist.MaxPerCycle),
		engine.WithCycleInterval(cfg.Relist.CycleInterval),
	)

	sched, err := engine.NewScheduler(eng, cfg.Schedule.DueInterval, cfg.Schedule.ResumeInterval, slogger)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	sched.Start()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(slogger))
	e.Use(middleware.RequestLog(slogger))
	e.Use(middleware.Metrics())
	e.Use(middleware.Auth(cfg.Auth.JWTSecret))

	health := handlers.NewHealthHandler(st)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := humaecho.New(e, huma.DefaultConfig("Qventory Relist API", Version))
	handlers.RegisterRuleRoutes(api, handlers.NewRuleHandler(st))
	handlers.RegisterAttemptRoutes(api, handlers.NewAttemptsHandler(st))
	handlers.RegisterRelistRoutes(api, handlers.NewRelistHandler(eng))
	handlers.RegisterQuotaRoutes(api, handlers.NewQuotaHandler(limiter))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	cliLog.Info("starting server", "addr", addr)

	go func() {
		srv := &http.Server{
			Addr:         addr,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
		if err := e.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cliLog.Error("server error", "err", err)
		}
	}()

	// Wait for interrupt signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cliLog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Let in-flight relist cycles finish; their waits are durable, but a
	// clean finish avoids a listing sitting offline until the resume sweep.
	<-sched.Stop().Done()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	if err := closeNotifier(); err != nil {
		cliLog.Error("closing notifier", "err", err)
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		cliLog.Error("shutting down tracing", "err", err)
	}

	cliLog.Info("server stopped")
	return nil
}

// buildNotifier assembles the outcome notifier fan-out from config. The
// returned close function releases the NATS connection, if any.
func buildNotifier(cfg *config.Config, slogger *slog.Logger) (notify.Notifier, func() error, error) {
	var targets notify.Multi
	closeFn := func() error { return nil }

	if cfg.Notifications.Discord.Enabled {
		targets = append(targets, notify.NewDiscordNotifier(cfg.Notifications.Discord.WebhookURL))
	}

	if cfg.Notifications.Nats.Enabled {
		sn, err := notify.NewStanNotifier(
			cfg.Notifications.Nats.ClusterID,
			cfg.Notifications.Nats.ClientID,
			cfg.Notifications.Nats.URL,
			cfg.Notifications.Nats.Subject,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to NATS streaming: %w", err)
		}
		targets = append(targets, sn)
		closeFn = sn.Close
	}

	if len(targets) == 0 {
		return notify.NewNoOpNotifier(slogger), closeFn, nil
	}
	return targets, closeFn, nil
}

func parseLogLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
