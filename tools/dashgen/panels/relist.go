package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// AttemptOutcomes returns a timeseries panel showing relist attempts per
// minute broken down by outcome.
func AttemptOutcomes() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Attempts / min").
		Description("Relist attempts per minute by outcome (success, skip, failure)").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`qv:relist_attempts:rate5m * 60`, "{{outcome}}/min", "A")).
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// CycleDuration returns a timeseries panel showing the p95 end-to-end relist
// cycle duration, withdraw-publish waits included.
func CycleDuration() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Cycle Duration (p95)").
		Description("95th percentile end-to-end relist cycle duration").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(qv_relist_cycle_duration_seconds_bucket{job="qventory-backend"}[5m])) by (le))`,
			"p95",
			"A",
		)).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// PhaseLatency returns a timeseries panel showing p95 latency per relist
// phase (fetch, withdraw, update, publish).
func PhaseLatency() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Phase Latency (p95)").
		Description("95th percentile duration of each relist phase").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(qv_relist_phase_duration_seconds_bucket{job="qventory-backend"}[5m])) by (le, phase))`,
			"{{phase}}",
			"A",
		)).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// ValidationSkips returns a timeseries panel showing cycles declined by the
// pre-flight safety checks, by check.
func ValidationSkips() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Validation Skips").
		Description("Relist cycles declined by a pre-flight safety check").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`sum(rate(qv_relist_validation_skips_total{job="qventory-backend"}[5m])) by (check) * 60`,
			"{{check}}/min", "A",
		)).
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// IdempotentWithdraws returns a stat panel counting withdraw calls absorbed
// because the listing was already ended, over the past 24 hours. A steady
// climb means attempts are crashing between withdraw and publish.
func IdempotentWithdraws() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Absorbed Withdraws (24h)").
		Description("Withdraw calls absorbed because the listing was already ended").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(`increase(qv_relist_idempotent_withdraws_total{job="qventory-backend"}[24h])`, "", "A")).
		Thresholds(ThresholdsGreenYellowRed(5, 20)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}
