// Package validate checks generated dashboards against the backend's known
// metric set, so a renamed metric breaks the build instead of silently
// blanking a panel.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/prometheus/prometheus/promql/parser"
)

// Result collects validation findings. Errors fail validation; warnings do not.
type Result struct {
	Errors   []string
	Warnings []string
}

// Ok reports whether validation passed.
func (r Result) Ok() bool {
	return len(r.Errors) == 0
}

// Dashboard parses every PromQL expression embedded in the dashboard and
// verifies that each referenced metric is one the backend exports.
func Dashboard(dash dashboard.Dashboard, known map[string]bool) Result {
	var res Result

	data, err := json.Marshal(dash)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("marshaling dashboard: %v", err))
		return res
	}

	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("decoding dashboard: %v", err))
		return res
	}

	for _, expr := range collectExprs(tree) {
		checkExpr(expr, known, &res)
	}
	return res
}

// Expr validates a single standalone PromQL expression, as used by recording
// and alert rules.
func Expr(expr string, known map[string]bool) Result {
	var res Result
	checkExpr(expr, known, &res)
	return res
}

// collectExprs walks the decoded dashboard JSON and gathers every "expr"
// string, wherever the panel schema nests it.
func collectExprs(node any) []string {
	var exprs []string
	switch v := node.(type) {
	case map[string]any:
		for key, child := range v {
			if key == "expr" {
				if s, ok := child.(string); ok && s != "" {
					exprs = append(exprs, s)
					continue
				}
			}
			exprs = append(exprs, collectExprs(child)...)
		}
	case []any:
		for _, child := range v {
			exprs = append(exprs, collectExprs(child)...)
		}
	}
	return exprs
}

func checkExpr(expr string, known map[string]bool, res *Result) {
	node, err := parser.ParseExpr(expr)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("invalid PromQL %q: %v", expr, err))
		return
	}

	parser.Inspect(node, func(n parser.Node, _ []parser.Node) error {
		vs, ok := n.(*parser.VectorSelector)
		if !ok || vs.Name == "" {
			return nil
		}
		if !known[baseMetric(vs.Name)] {
			res.Errors = append(res.Errors,
				fmt.Sprintf("expression %q references unknown metric %q", expr, vs.Name))
		}
		return nil
	})
}

// baseMetric strips the histogram series suffixes so bucket queries resolve
// to the metric the backend registers.
func baseMetric(name string) string {
	for _, suffix := range []string{"_bucket", "_sum", "_count"} {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}
