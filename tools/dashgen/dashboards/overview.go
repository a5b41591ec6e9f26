// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/noakmilo/qventory-backend/tools/dashgen/panels"
)

// BuildOverview constructs the Qventory Overview dashboard with all metric rows.
func BuildOverview() *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("Qventory Overview").
		Uid("qventory-overview").
		Tags([]string{"qventory", "relist"}).
		Refresh("30s").
		Time("now-6h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	// Row 1: Overview.
	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.HealthzStat()).
		WithPanel(panels.ReadyzStat()).
		WithPanel(panels.QuotaGauge()).
		WithPanel(panels.UptimeStat()))

	// Row 2: HTTP.
	b.WithRow(dashboard.NewRowBuilder("HTTP").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyPercentiles()).
		WithPanel(panels.ErrorRate()))

	// Row 3: eBay API.
	b.WithRow(dashboard.NewRowBuilder("eBay API").
		WithPanel(panels.APICallsRate()).
		WithPanel(panels.DailyUsage()).
		WithPanel(panels.LimitHits()))

	// Row 4: Relist Cycles.
	b.WithRow(dashboard.NewRowBuilder("Relist Cycles").
		WithPanel(panels.AttemptOutcomes()).
		WithPanel(panels.CycleDuration()).
		WithPanel(panels.PhaseLatency()).
		WithPanel(panels.ValidationSkips()).
		WithPanel(panels.IdempotentWithdraws()))

	// Row 5: Engine.
	b.WithRow(dashboard.NewRowBuilder("Engine").
		WithPanel(panels.EngineRuns()).
		WithPanel(panels.RuleErrors()).
		WithPanel(panels.NotificationFailures()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
