package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// EngineRuns returns a timeseries panel showing scheduled engine runs per
// minute by job (due, resume).
func EngineRuns() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Engine Runs / min").
		Description("Scheduled engine runs per minute by job").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			`sum(rate(qv_engine_runs_total{job="qventory-backend"}[5m])) by (job) * 60`,
			"{{job}}/min", "A",
		)).
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// RuleErrors returns a stat panel showing rules whose scheduled processing
// failed in the past 24 hours.
func RuleErrors() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Rule Errors (24h)").
		Description("Rules whose scheduled processing failed in the last 24 hours").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`increase(qv_engine_rule_errors_total{job="qventory-backend"}[24h])`, "", "A")).
		Thresholds(ThresholdsGreenYellowRed(1, 10)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}

// NotificationFailures returns a stat panel showing notification failures
// in the past 24 hours.
func NotificationFailures() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Notification Failures (24h)").
		Description("Failed relist outcome notification deliveries in the last 24 hours").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`increase(qv_notification_failures_total{job="qventory-backend"}[24h])`, "", "A")).
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}
