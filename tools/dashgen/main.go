package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/noakmilo/qventory-backend/tools/dashgen/dashboards"
	"github.com/noakmilo/qventory-backend/tools/dashgen/rules"
	"github.com/noakmilo/qventory-backend/tools/dashgen/validate"
)

const generatedHeader = "# Code generated by dashgen. DO NOT EDIT.\n"

func main() {
	validateOnly := flag.Bool("validate", false, "validate generated artifacts without writing files")
	outputDir := flag.String("output", "", "override output directory")
	flag.Parse()

	cfg := DefaultConfig()
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *validateOnly); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg Config, validateOnly bool) error {
	dash, err := dashboards.BuildOverview().Build()
	if err != nil {
		return fmt.Errorf("building overview dashboard: %w", err)
	}

	if result := validate.Dashboard(dash, KnownMetrics); !result.Ok() {
		return fmt.Errorf("dashboard validation failed: %v", result.Errors)
	}

	recording := rules.RecordingRules()
	alerts := rules.AlertRules()
	for _, cr := range []rules.PrometheusRule{recording, alerts} {
		for _, group := range cr.Spec.Groups {
			for _, rule := range group.Rules {
				if result := validate.Expr(rule.Expr, KnownMetrics); !result.Ok() {
					return fmt.Errorf("rule %s%s: %v", rule.Record, rule.Alert, result.Errors)
				}
			}
		}
	}

	if validateOnly {
		fmt.Println("validation passed")
		return nil
	}

	if cfg.DashboardEnabled {
		data, err := json.MarshalIndent(dash, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling dashboard: %w", err)
		}
		path := filepath.Join(cfg.OutputDir, "grafana", "data", "qventory-overview.json")
		if err := writeArtifact(path, append(data, '\n')); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
	}

	if cfg.RulesEnabled {
		for _, artifact := range []struct {
			name string
			cr   rules.PrometheusRule
		}{
			{"qventory-recording-rules.yaml", recording},
			{"qventory-alerts.yaml", alerts},
		} {
			data, err := yaml.Marshal(artifact.cr)
			if err != nil {
				return fmt.Errorf("marshaling %s: %w", artifact.name, err)
			}
			path := filepath.Join(cfg.OutputDir, "prometheus", artifact.name)
			if err := writeArtifact(path, append([]byte(generatedHeader), data...)); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
		}
	}

	return nil
}

func writeArtifact(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
