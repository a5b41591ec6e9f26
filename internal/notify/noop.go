package notify

import (
	"context"
	"log/slog"
)

// NoOpNotifier implements Notifier by logging discarded events. It is used
// when no notification backend is configured.
type NoOpNotifier struct {
	log *slog.Logger
}

// NewNoOpNotifier creates a notifier that discards events with a log message.
func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	return &NoOpNotifier{log: log}
}

// SendOutcome logs and discards the event.
func (n *NoOpNotifier) SendOutcome(_ context.Context, ev Event) error {
	n.log.Debug("notification discarded (no backend configured)",
		"rule", ev.RuleID,
		"outcome", ev.Outcome,
		"old_id", ev.OldListingID,
		"new_id", ev.NewListingID,
	)
	return nil
}
