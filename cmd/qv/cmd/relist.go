package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func relistCmd() *cobra.Command {
	var (
		applyChanges bool
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "relist <rule-id>",
		Short: "Run a relist cycle now",
		Long: "Ends the rule's listing, optionally applies its pending edits, and\n" +
			"republishes it after the configured delay. The command blocks until\n" +
			"the cycle finishes.",
		Example: `  qv relist abc123
  qv relist abc123 --apply-changes --timeout 5m`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			c := newClient()
			result, err := c.Relist(ctx, args[0], applyChanges)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(result)
			}
			return printResult(result)
		},
	}

	cmd.Flags().BoolVar(&applyChanges, "apply-changes", false, "apply the rule's pending edits mid-cycle")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "how long to wait for the cycle")
	return cmd
}

func quotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "quota",
		Short:   "Show marketplace API quota status",
		Example: `  qv quota`,
		RunE: func(_ *cobra.Command, _ []string) error {
			c := newClient()
			q, err := c.GetQuota(context.Background())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(q)
			}
			fmt.Printf("Daily quota: %d/%d used, %d remaining (resets %s)\n",
				q.DailyUsed, q.DailyLimit, q.Remaining, q.ResetAt.Format(time.RFC3339))
			return nil
		},
	}
}
