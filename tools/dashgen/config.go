package main

import "errors"

// KnownMetrics is the set of metric names exported by the qventory relist
// backend plus recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"qv_http_request_duration_seconds": true,
	"qv_http_requests_total":           true,

	// Health metrics.
	"qv_healthz_up": true,
	"qv_readyz_up":  true,

	// Relist cycle metrics.
	"qv_relist_attempts_total":             true,
	"qv_relist_phase_duration_seconds":     true,
	"qv_relist_cycle_duration_seconds":     true,
	"qv_relist_validation_skips_total":     true,
	"qv_relist_idempotent_withdraws_total": true,

	// eBay API metrics.
	"qv_ebay_api_calls_total":        true,
	"qv_ebay_daily_usage":            true,
	"qv_ebay_daily_limit_hits_total": true,

	// Engine metrics.
	"qv_engine_runs_total":           true,
	"qv_engine_rule_errors_total":    true,
	"qv_notification_failures_total": true,

	// Recording rules.
	"qv:http_requests:rate5m":   true,
	"qv:http_errors:rate5m":     true,
	"qv:relist_attempts:rate5m": true,
	"qv:relist_failures:rate5m": true,
	"qv:ebay_api_calls:rate5m":  true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
