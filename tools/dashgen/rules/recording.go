package rules

// RecordingRules returns a PrometheusRule CR containing pre-computed rate
// expressions used by dashboards and alert rules.
func RecordingRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "qventory-recording-rules",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "qventory-recording",
					Rules: []Rule{
						{
							Record: "qv:http_requests:rate5m",
							Expr:   `sum(rate(qv_http_requests_total[5m]))`,
						},
						{
							Record: "qv:http_errors:rate5m",
							Expr:   `sum(rate(qv_http_requests_total{status=~"5.."}[5m]))`,
						},
						{
							Record: "qv:relist_attempts:rate5m",
							Expr:   `sum(rate(qv_relist_attempts_total[5m])) by (outcome)`,
						},
						{
							Record: "qv:relist_failures:rate5m",
							Expr:   `sum(rate(qv_relist_attempts_total{outcome="failure"}[5m]))`,
						},
						{
							Record: "qv:ebay_api_calls:rate5m",
							Expr:   `rate(qv_ebay_api_calls_total[5m])`,
						},
					},
				},
			},
		},
	}
}
