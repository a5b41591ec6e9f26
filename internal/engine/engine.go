// Package engine drives scheduled relist runs: it finds due rules, resumes
// interrupted attempts, and serializes work per listing with store leases.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noakmilo/qventory-backend/internal/metrics"
	"github.com/noakmilo/qventory-backend/internal/notify"
	"github.com/noakmilo/qventory-backend/internal/relist"
	"github.com/noakmilo/qventory-backend/internal/store"
	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

// ErrListingBusy is returned when another worker holds the lease for the
// rule's listing.
var ErrListingBusy = errors.New("listing is being processed by another worker")

const (
	defaultMaxRulesPerCycle = 50
	defaultConcurrency      = 4
	defaultLeaseTTL         = 10 * time.Minute
	defaultCycleInterval    = 24 * time.Hour
)

// Executor runs one relist cycle. Satisfied by *relist.Orchestrator.
type Executor interface {
	Execute(ctx context.Context, rule *domain.RelistRule, applyChanges bool) *domain.RelistAttemptResult
}

// Engine orchestrates scheduled relist runs over all enabled rules.
type Engine struct {
	store    store.Store
	orch     Executor
	adapters relist.AdapterSelector
	sales    *relist.SaleDetector
	notifier notify.Notifier
	log      *slog.Logger

	holder           string
	maxRulesPerCycle int
	concurrency      int
	leaseTTL         time.Duration
	cycleInterval    time.Duration
	nowFunc          func() time.Time
}

// NewEngine creates a new Engine with injected dependencies.
func NewEngine(
	s store.Store,
	orch Executor,
	adapters relist.AdapterSelector,
	n notify.Notifier,
	opts ...EngineOption,
) *Engine {
	hostname, _ := os.Hostname()

	eng := &Engine{
		store:            s,
		orch:             orch,
		adapters:         adapters,
		sales:            relist.NewSaleDetector(s),
		notifier:         n,
		log:              slog.Default(),
		holder:           hostname,
		maxRulesPerCycle: defaultMaxRulesPerCycle,
		concurrency:      defaultConcurrency,
		leaseTTL:         defaultLeaseTTL,
		cycleInterval:    defaultCycleInterval,
		nowFunc:          time.Now,
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithHolder sets the lease holder identity for this process.
func WithHolder(h string) EngineOption {
	return func(e *Engine) {
		e.holder = h
	}
}

// WithMaxRulesPerCycle caps how many due rules one run processes.
func WithMaxRulesPerCycle(n int) EngineOption {
	return func(e *Engine) {
		e.maxRulesPerCycle = n
	}
}

// WithConcurrency sets how many rules are processed in parallel.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		e.concurrency = n
	}
}

// WithLeaseTTL sets how long a per-listing lease is held before a stale
// holder can be displaced.
func WithLeaseTTL(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.leaseTTL = d
	}
}

// WithCycleInterval sets how far out a rule is rescheduled after a run.
func WithCycleInterval(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.cycleInterval = d
	}
}

// WithNowFunc overrides the time function for testing.
func WithNowFunc(f func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowFunc = f
	}
}

// RunDue executes one relist cycle for every rule whose schedule has come
// up. Rules run concurrently but never two at once for the same listing —
// the store lease serializes those.
func (eng *Engine) RunDue(ctx context.Context) error {
	metrics.EngineRunsTotal.WithLabelValues("due").Inc()

	rules, err := eng.store.ListDueRules(ctx, eng.nowFunc(), eng.maxRulesPerCycle)
	if err != nil {
		return fmt.Errorf("listing due rules: %w", err)
	}
	if len(rules) == 0 {
		return nil
	}

	eng.log.Info("processing due rules", "count", len(rules))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(eng.concurrency)

	for i := range rules {
		rule := rules[i]
		g.Go(func() error {
			if err := eng.processRule(gctx, &rule); err != nil {
				metrics.EngineRuleErrorsTotal.Inc()
				eng.log.Error("rule processing failed",
					"rule", rule.ID, "listing", rule.Listing.ID, "error", err)
			}
			return nil // one bad rule never aborts the batch
		})
	}

	return g.Wait()
}

// RunResume finishes attempts whose withdraw-to-publish wait outlived the
// process that started them.
func (eng *Engine) RunResume(ctx context.Context) error {
	metrics.EngineRunsTotal.WithLabelValues("resume").Inc()

	attempts, err := eng.store.ListResumableAttempts(ctx, eng.nowFunc(), eng.maxRulesPerCycle)
	if err != nil {
		return fmt.Errorf("listing resumable attempts: %w", err)
	}
	if len(attempts) == 0 {
		return nil
	}

	eng.log.Info("resuming interrupted attempts", "count", len(attempts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(eng.concurrency)

	for i := range attempts {
		attempt := attempts[i]
		g.Go(func() error {
			rule, err := eng.store.GetRule(gctx, attempt.RuleID)
			if err != nil {
				metrics.EngineRuleErrorsTotal.Inc()
				eng.log.Error("loading rule for resume failed",
					"attempt", attempt.ID, "rule", attempt.RuleID, "error", err)
				return nil
			}
			if _, err := eng.runLeased(gctx, rule, true); err != nil {
				metrics.EngineRuleErrorsTotal.Inc()
				eng.log.Error("resume failed",
					"attempt", attempt.ID, "rule", rule.ID, "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// RunRule executes one cycle for a single rule right now, outside the
// schedule. Returns ErrListingBusy when another worker holds the listing.
func (eng *Engine) RunRule(
	ctx context.Context,
	ruleID string,
	applyChanges bool,
) (*domain.RelistAttemptResult, error) {
	rule, err := eng.store.GetRule(ctx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("loading rule: %w", err)
	}

	result, err := eng.runLeased(ctx, rule, applyChanges)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, ErrListingBusy
	}
	return result, nil
}

// processRule runs one scheduled cycle for the rule, folding in the price
// decrease policy, then pushes the next run out.
func (eng *Engine) processRule(ctx context.Context, rule *domain.RelistRule) error {
	run := *rule
	eng.applyDecreasePolicy(ctx, &run)

	if _, err := eng.runLeased(ctx, &run, true); err != nil {
		return err
	}

	next := eng.nowFunc().Add(eng.cycleInterval)
	if err := eng.store.UpdateRuleNextRun(ctx, rule.ID, next); err != nil {
		return fmt.Errorf("rescheduling rule: %w", err)
	}
	return nil
}

// runLeased takes the per-listing lease, executes one cycle, and reports the
// outcome. Contention is not an error: a nil result means another worker owns
// the listing.
func (eng *Engine) runLeased(
	ctx context.Context,
	rule *domain.RelistRule,
	applyChanges bool,
) (*domain.RelistAttemptResult, error) {
	leaseKey := string(rule.Listing.Protocol) + ":" + rule.Listing.ID

	ok, err := eng.store.AcquireRuleLease(ctx, leaseKey, eng.holder, eng.leaseTTL)
	if err != nil {
		return nil, fmt.Errorf("acquiring lease: %w", err)
	}
	if !ok {
		eng.log.Info("listing leased elsewhere, skipping", "rule", rule.ID, "listing", rule.Listing.ID)
		return nil, nil
	}
	defer func() {
		if err := eng.store.ReleaseRuleLease(ctx, leaseKey, eng.holder); err != nil {
			eng.log.Error("releasing lease failed", "listing", rule.Listing.ID, "error", err)
		}
	}()

	result := eng.orch.Execute(ctx, rule, applyChanges)
	eng.sendOutcome(ctx, rule, result)
	return result, nil
}

// applyDecreasePolicy folds the scheduled price decrease into the run's
// change set. Sold stock keeps its price — the rule owner should be
// deactivating the rule, not discounting inventory that moved.
func (eng *Engine) applyDecreasePolicy(ctx context.Context, run *domain.RelistRule) {
	if run.DecreaseType == domain.DecreaseNone {
		return
	}

	sold, err := eng.sales.WasSold(ctx, run.UserID, run.Listing.ID)
	if err != nil {
		eng.log.Warn("sale check failed, holding price", "rule", run.ID, "error", err)
		return
	}
	if sold {
		eng.log.Info("listing has a shipped sale, holding price", "rule", run.ID)
		return
	}

	snap, err := eng.adapters.ForRule(run).Fetch(ctx, run.Listing)
	if err != nil {
		eng.log.Warn("price lookup failed, holding price", "rule", run.ID, "error", err)
		return
	}

	next, ok := relist.NextPrice(run, snap.Price)
	if !ok {
		return
	}

	cs := domain.ChangeSet{}
	if run.Changes != nil {
		cs = *run.Changes
	}
	cs.Price = &next
	run.Changes = &cs

	eng.log.Info("applying scheduled price decrease",
		"rule", run.ID, "old_price", snap.Price, "new_price", next)
}

func (eng *Engine) sendOutcome(ctx context.Context, rule *domain.RelistRule, result *domain.RelistAttemptResult) {
	ev := notify.Event{
		RuleID:       rule.ID,
		UserID:       rule.UserID,
		SKU:          rule.SKU,
		OldListingID: result.OldListingID,
		NewListingID: result.NewListingID,
	}
	switch {
	case result.Success:
		ev.Outcome = notify.OutcomeSuccess
	case result.Skipped():
		ev.Outcome = notify.OutcomeSkipped
		ev.SkipReason = result.SkipReason
	default:
		ev.Outcome = notify.OutcomeFailed
		ev.ErrorPhase = string(result.ErrorPhase)
		ev.Error = result.Error
	}

	if err := eng.notifier.SendOutcome(ctx, ev); err != nil {
		metrics.NotificationFailuresTotal.Inc()
		eng.log.Error("sending outcome notification failed", "rule", rule.ID, "error", err)
	}
}
