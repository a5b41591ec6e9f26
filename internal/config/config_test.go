package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
database:
  host: localhost
  name: testdb
  user: testuser
ebay:
  app_id: my-app-id
  cert_id: my-cert-id
auth:
  jwt_secret: test-secret
`

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		envVars   map[string]string
		wantErr   string
		checkFunc func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid minimal config",
			yaml: minimalYAML,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "testdb", cfg.Database.Name)
				assert.Equal(t, "testuser", cfg.Database.User)
				assert.Equal(t, "my-app-id", cfg.Ebay.AppID)
			},
		},
		{
			name: "defaults applied for optional fields",
			yaml: minimalYAML,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, 10, cfg.Database.PoolSize)
				assert.Equal(t, "https://api.ebay.com/identity/v1/oauth2/token", cfg.Ebay.TokenURL)
				assert.Equal(t, "https://api.ebay.com/sell/inventory/v1", cfg.Ebay.SellURL)
				assert.Equal(t, "https://api.ebay.com/ws/api.dll", cfg.Ebay.TradingURL)
				assert.Equal(t, "EBAY_US", cfg.Ebay.Marketplace)
				assert.Equal(t, 30*time.Second, cfg.Relist.DefaultDelay)
				assert.Equal(t, 2*time.Second, cfg.Relist.SettleDelay)
				assert.Equal(t, 10*time.Minute, cfg.Relist.LeaseTTL)
				assert.Equal(t, 24*time.Hour, cfg.Relist.CycleInterval)
				assert.Equal(t, 5*time.Minute, cfg.Schedule.DueInterval)
				assert.Equal(t, 30*time.Second, cfg.Schedule.ResumeInterval)
				assert.Equal(t, "relist.outcomes", cfg.Notifications.Nats.Subject)
				assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
			},
		},
		{
			name: "env var substitution",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
  password: "${TEST_DB_PASSWORD}"
ebay:
  app_id: my-app-id
  cert_id: my-cert-id
auth:
  jwt_secret: test-secret
`,
			envVars: map[string]string{
				"TEST_DB_PASSWORD": "secret123",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "secret123", cfg.Database.Password)
			},
		},
		{
			name: "missing required database.host",
			yaml: `
database:
  name: testdb
  user: testuser
ebay:
  app_id: my-app-id
  cert_id: my-cert-id
auth:
  jwt_secret: test-secret
`,
			wantErr: "database.host is required",
		},
		{
			name: "missing required ebay credentials",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
auth:
  jwt_secret: test-secret
`,
			wantErr: "ebay.app_id is required",
		},
		{
			name: "missing jwt secret",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
ebay:
  app_id: my-app-id
  cert_id: my-cert-id
`,
			wantErr: "auth.jwt_secret is required",
		},
		{
			name: "discord enabled without webhook",
			yaml: minimalYAML + `
notifications:
  discord:
    enabled: true
`,
			wantErr: "notifications.discord.webhook_url is required",
		},
		{
			name: "nats enabled without cluster",
			yaml: minimalYAML + `
notifications:
  nats:
    enabled: true
    url: nats://localhost:4222
`,
			wantErr: "notifications.nats.cluster_id is required",
		},
		{
			name: "telemetry enabled without collector",
			yaml: minimalYAML + `
telemetry:
  enabled: true
`,
			wantErr: "telemetry.collector_endpoint is required",
		},
		{
			name:    "invalid YAML",
			yaml:    `{{{not valid yaml`,
			wantErr: "parsing config YAML",
		},
		{
			name: "full config with overrides",
			yaml: `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 60s
  write_timeout: 60s
database:
  host: db.example.com
  port: 5433
  name: qventory_prod
  user: admin
  password: pass
  sslmode: require
  pool_size: 20
ebay:
  app_id: my-app-id
  cert_id: my-cert-id
  marketplace: EBAY_GB
  rate_limit:
    per_second: 2
    burst: 5
    daily_limit: 1000
relist:
  default_delay: 45s
  settle_delay: 5s
  lease_ttl: 5m
  concurrency: 8
  max_per_cycle: 100
  cycle_interval: 12h
schedule:
  due_interval: 10m
  resume_interval: 15s
auth:
  jwt_secret: prod-secret
notifications:
  discord:
    enabled: true
    webhook_url: https://discord.com/api/webhooks/123
  nats:
    enabled: true
    cluster_id: qv-cluster
    url: nats://nats:4222
telemetry:
  enabled: true
  collector_endpoint: otel-collector:4317
  sampling_ratio: 0.25
  insecure: true
logging:
  level: debug
  format: json
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "db.example.com", cfg.Database.Host)
				assert.Equal(t, 5433, cfg.Database.Port)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.Equal(t, 20, cfg.Database.PoolSize)
				assert.Equal(t, "EBAY_GB", cfg.Ebay.Marketplace)
				assert.Equal(t, 2.0, cfg.Ebay.RateLimit.PerSecond)
				assert.Equal(t, int64(1000), cfg.Ebay.RateLimit.DailyLimit)
				assert.Equal(t, 45*time.Second, cfg.Relist.DefaultDelay)
				assert.Equal(t, 5*time.Second, cfg.Relist.SettleDelay)
				assert.Equal(t, 8, cfg.Relist.Concurrency)
				assert.Equal(t, 100, cfg.Relist.MaxPerCycle)
				assert.Equal(t, 12*time.Hour, cfg.Relist.CycleInterval)
				assert.Equal(t, 10*time.Minute, cfg.Schedule.DueInterval)
				assert.Equal(t, 15*time.Second, cfg.Schedule.ResumeInterval)
				assert.True(t, cfg.Notifications.Discord.Enabled)
				assert.Equal(t, "qv-cluster", cfg.Notifications.Nats.ClusterID)
				assert.True(t, cfg.Telemetry.Enabled)
				assert.Equal(t, 0.25, cfg.Telemetry.SamplingRatio)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Only parallelize tests that don't modify env vars.
			if len(tt.envVars) == 0 {
				t.Parallel()
			}

			// Set env vars for this test.
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			// Write YAML to a temp file.
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			cfg, err := Load(path)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "basic DSN",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				Name:     "testdb",
				User:     "testuser",
				Password: "testpass",
				SSLMode:  "disable",
			},
			want: "host=localhost port=5432 dbname=testdb user=testuser password=testpass sslmode=disable",
		},
		{
			name: "production DSN",
			cfg: DatabaseConfig{
				Host:     "db.example.com",
				Port:     5433,
				Name:     "qventory",
				User:     "admin",
				Password: "s3cret",
				SSLMode:  "require",
			},
			want: "host=db.example.com port=5433 dbname=qventory user=admin password=s3cret sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}
