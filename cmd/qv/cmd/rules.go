package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

func rulesCmd() *cobra.Command {
	rulesRoot := &cobra.Command{
		Use:   "rules",
		Short: "Manage relist rules",
		Long: "Manage relist rules that cycle a marketplace listing through\n" +
			"end → edit → republish, with safety checks and scheduled price\n" +
			"decreases.",
	}

	rulesRoot.AddCommand(
		rulesListCmd(),
		rulesGetCmd(),
		rulesCreateCmd(),
		rulesEnableCmd(),
		rulesDisableCmd(),
		rulesDeleteCmd(),
	)

	return rulesRoot
}

func rulesListCmd() *cobra.Command {
	var enabledOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List relist rules",
		Example: `  qv rules list
  qv rules list --enabled --output json`,
		RunE: func(_ *cobra.Command, _ []string) error {
			c := newClient()
			rules, err := c.ListRules(context.Background(), enabledOnly)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(rules)
			}
			if len(rules) == 0 {
				fmt.Println("No rules found.")
				return nil
			}
			return printRuleTable(rules)
		},
	}

	cmd.Flags().BoolVar(&enabledOnly, "enabled", false, "only enabled rules")
	return cmd
}

func rulesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show rule details",
		Example: `  qv rules get abc123
  qv rules get abc123 --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c := newClient()
			r, err := c.GetRule(context.Background(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(r)
			}
			return printRuleDetail(r)
		},
	}
}

func rulesCreateCmd() *cobra.Command {
	var (
		userID         string
		listingID      string
		protocol       string
		sku            string
		delaySeconds   int
		minOrderHours  int
		checkReturns   bool
		decreaseType   string
		decreaseAmount float64
		floorPrice     float64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new relist rule",
		Long: "Create a rule for one external listing. The listing protocol is\n" +
			"pinned at creation: pass --protocol to choose explicitly, or let\n" +
			"the server infer it from the listing ID shape.",
		Example: `  # Relist a legacy listing daily with a 2% price drop
  qv rules create --user user-1 --listing 376573575653 \
    --decrease-type percent --decrease-amount 2 --floor 25

  # Relist a modern offer, waiting 60s between end and republish
  qv rules create --user user-1 --listing 8f2e1c9a --protocol offer --delay 60`,
		RunE: func(_ *cobra.Command, _ []string) error {
			if userID == "" || listingID == "" {
				return fmt.Errorf("--user and --listing are required")
			}

			r := &domain.RelistRule{
				UserID: userID,
				SKU:    sku,
				Listing: domain.ListingRef{
					Protocol: domain.Protocol(protocol),
					ID:       listingID,
				},
				RequirePositiveQuantity: true,
				MinHoursSinceLastOrder:  minOrderHours,
				CheckActiveReturns:      checkReturns,
				WithdrawPublishDelay:    delaySeconds,
				DecreaseType:            domain.DecreaseType(decreaseType),
				DecreaseAmount:          decreaseAmount,
				FloorPrice:              floorPrice,
				Enabled:                 true,
			}

			c := newClient()
			created, err := c.CreateRule(context.Background(), r)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(created)
			}
			fmt.Printf("Rule created: %s (%s %s)\n",
				created.ID, created.Listing.Protocol, created.Listing.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "owner user ID")
	cmd.Flags().StringVar(&listingID, "listing", "", "external listing ID")
	cmd.Flags().StringVar(&protocol, "protocol", "", "listing protocol (offer, trading)")
	cmd.Flags().StringVar(&sku, "sku", "", "inventory SKU")
	cmd.Flags().IntVar(&delaySeconds, "delay", 0, "seconds between withdraw and publish")
	cmd.Flags().IntVar(&minOrderHours, "min-order-hours", 0, "skip when an order landed within this many hours")
	cmd.Flags().BoolVar(&checkReturns, "check-returns", false, "skip while a return is open")
	cmd.Flags().StringVar(&decreaseType, "decrease-type", "", "price decrease mode (percent, fixed)")
	cmd.Flags().Float64Var(&decreaseAmount, "decrease-amount", 0, "amount to drop per cycle")
	cmd.Flags().Float64Var(&floorPrice, "floor", 0, "never decrease below this price")
	return cmd
}

func rulesEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "enable <id>",
		Short:   "Enable a rule",
		Example: `  qv rules enable abc123`,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return setRuleEnabled(args[0], true)
		},
	}
}

func rulesDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "disable <id>",
		Short:   "Disable a rule",
		Example: `  qv rules disable abc123`,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return setRuleEnabled(args[0], false)
		},
	}
}

func setRuleEnabled(id string, enabled bool) error {
	c := newClient()
	if err := c.SetRuleEnabled(context.Background(), id, enabled); err != nil {
		return err
	}

	action := "enabled"
	if !enabled {
		action = "disabled"
	}
	fmt.Printf("Rule %s %s.\n", id, action)
	return nil
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Short:   "Delete a rule",
		Example: `  qv rules delete abc123`,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c := newClient()
			if err := c.DeleteRule(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Rule %s deleted.\n", args[0])
			return nil
		},
	}
}
