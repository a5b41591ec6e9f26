// Package cmd implements the server commands for the qventory relist backend.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "qventory",
	Short: "Relist automation backend for marketplace listings",
	Long: "An API-first service that cycles marketplace listings through " +
		"end → edit → republish across both the legacy Trading API and the " +
		"modern Sell API, with pre-flight safety checks, durable delays, and " +
		"scheduled price decreases.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.AddCommand(versionCommand())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
