package rules

// AlertRules returns a PrometheusRule CR containing alert rules for
// qventory relist backend operational monitoring.
func AlertRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "qventory-alerts",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "qventory-alerts",
					Rules: []Rule{
						{
							Alert: "QventoryDown",
							Expr:  `absent(up{job="qventory-backend"})`,
							For:   "2m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Qventory relist backend is down",
								"description": "The qventory-backend job has been absent for more than 2 minutes.",
							},
						},
						{
							Alert: "QventoryReadinessDown",
							Expr:  `qv_readyz_up == 0`,
							For:   "2m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Qventory readiness check is failing",
								"description": "The readiness probe has been reporting not-ready for more than 2 minutes.",
							},
						},
						{
							Alert: "QventoryHighErrorRate",
							Expr:  `qv:http_errors:rate5m / qv:http_requests:rate5m > 0.05`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "High HTTP error rate on the qventory backend",
								"description": "More than 5% of HTTP requests are returning 5xx errors over the last 5 minutes.",
							},
						},
						{
							Alert: "QventoryRelistFailures",
							Expr:  `qv:relist_failures:rate5m > 0`,
							For:   "10m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Relist cycles are failing",
								"description": "Relist attempts have been failing for more than 10 minutes. Listings may be stuck in the withdrawn state.",
							},
						},
						{
							Alert: "QventoryPublishFailures",
							Expr:  `increase(qv_relist_attempts_total{outcome="failure"}[15m]) > 0 and increase(qv_relist_idempotent_withdraws_total[15m]) > 0`,
							For:   "0m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Relist cycles are crashing between withdraw and publish",
								"description": "Attempts are both failing and absorbing already-ended withdraws, which means listings are going down without coming back up.",
							},
						},
						{
							Alert: "QventoryEbayQuotaHigh",
							Expr:  `qv_ebay_daily_usage > 4000`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "eBay API daily usage is above 80% of the quota",
								"description": "Daily eBay API usage has exceeded 4000 calls (limit is 5000).",
							},
						},
						{
							Alert: "QventoryEbayLimitReached",
							Expr:  `increase(qv_ebay_daily_limit_hits_total[5m]) > 0`,
							For:   "0m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "eBay API daily limit has been reached",
								"description": "The eBay API daily quota has been exhausted. Relist cycles are paused until reset.",
							},
						},
						{
							Alert: "QventoryNotificationFailures",
							Expr:  `increase(qv_notification_failures_total[5m]) > 0`,
							For:   "1m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Notification delivery failures detected",
								"description": "One or more relist outcome notifications have failed to send.",
							},
						},
					},
				},
			},
		},
	}
}
