package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func printRuleTable(rules []domain.RelistRule) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("ID\tLISTING\tPROTOCOL\tSKU\tDECREASE\tENABLED\tNEXT RUN\n")
	for i := range rules {
		r := &rules[i]
		tw.writef("%s\t%s\t%s\t%s\t%s\t%v\t%s\n",
			r.ID,
			r.Listing.ID,
			r.Listing.Protocol,
			r.SKU,
			formatDecrease(r),
			r.Enabled,
			formatTime(r.NextRunAt),
		)
	}
	return tw.finish()
}

func printRuleDetail(r *domain.RelistRule) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("ID:\t%s\n", r.ID)
	tw.writef("User:\t%s\n", r.UserID)
	tw.writef("Listing:\t%s (%s)\n", r.Listing.ID, r.Listing.Protocol)
	tw.writef("SKU:\t%s\n", r.SKU)
	tw.writef("Require quantity:\t%v\n", r.RequirePositiveQuantity)
	tw.writef("Min hours since order:\t%d\n", r.MinHoursSinceLastOrder)
	tw.writef("Check returns:\t%v\n", r.CheckActiveReturns)
	tw.writef("Withdraw delay:\t%ds\n", r.WithdrawPublishDelay)
	tw.writef("Decrease:\t%s\n", formatDecrease(r))
	tw.writef("Enabled:\t%v\n", r.Enabled)
	tw.writef("Next run:\t%s\n", formatTime(r.NextRunAt))
	return tw.finish()
}

func printAttemptTable(attempts []domain.RelistAttempt) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("ID\tSTATE\tOLD LISTING\tNEW LISTING\tSTARTED\tDETAIL\n")
	for i := range attempts {
		a := &attempts[i]
		tw.writef("%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID,
			a.State,
			a.OldListingID,
			a.NewListingID,
			a.StartedAt.Format(time.RFC3339),
			attemptDetail(a),
		)
	}
	return tw.finish()
}

func printResult(result *domain.RelistAttemptResult) error {
	tw := newTabWriter(os.Stdout)
	switch {
	case result.Success:
		tw.writef("Relisted:\t%s → %s\n", result.OldListingID, result.NewListingID)
	case result.SkipReason != "":
		tw.writef("Skipped:\t%s\n", result.SkipReason)
	default:
		tw.writef("Failed (%s):\t%s\n", result.ErrorPhase, result.Error)
	}
	return tw.finish()
}

func attemptDetail(a *domain.RelistAttempt) string {
	switch {
	case a.SkipReason != "":
		return a.SkipReason
	case a.ErrorText != "":
		return fmt.Sprintf("%s: %s", a.ErrorPhase, truncate(a.ErrorText, 50))
	default:
		return ""
	}
}

func formatDecrease(r *domain.RelistRule) string {
	switch r.DecreaseType {
	case domain.DecreasePercent:
		return fmt.Sprintf("-%.1f%% (floor %.2f)", r.DecreaseAmount, r.FloorPrice)
	case domain.DecreaseFixed:
		return fmt.Sprintf("-%.2f (floor %.2f)", r.DecreaseAmount, r.FloorPrice)
	default:
		return "none"
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
