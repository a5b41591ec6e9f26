package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func attemptsCmd() *cobra.Command {
	attemptsRoot := &cobra.Command{
		Use:   "attempts",
		Short: "Inspect relist attempt history",
		Long: "Inspect the per-rule history of relist attempts, including the\n" +
			"per-phase withdraw/update/publish results and skip reasons.",
	}

	attemptsRoot.AddCommand(
		attemptsListCmd(),
		attemptsGetCmd(),
	)

	return attemptsRoot
}

func attemptsListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list <rule-id>",
		Short: "List a rule's attempts, newest first",
		Example: `  qv attempts list abc123
  qv attempts list abc123 --limit 5 --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c := newClient()
			attempts, err := c.ListAttempts(context.Background(), args[0], limit)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(attempts)
			}
			if len(attempts) == 0 {
				fmt.Println("No attempts found.")
				return nil
			}
			return printAttemptTable(attempts)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of attempts to show")
	return cmd
}

func attemptsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <id>",
		Short:   "Show attempt details",
		Example: `  qv attempts get def456 --output json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c := newClient()
			a, err := c.GetAttempt(context.Background(), args[0])
			if err != nil {
				return err
			}
			return outputJSON(a)
		},
	}
}
