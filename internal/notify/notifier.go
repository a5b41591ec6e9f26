// Package notify defines the notification interface and implementations
// for relist outcome delivery.
package notify

import (
	"context"
)

// Outcome classifies how a relist cycle ended.
type Outcome string

// Outcome constants.
const (
	OutcomeSuccess Outcome = "success"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Event contains the data needed to report one finished relist cycle.
type Event struct {
	RuleID       string  `json:"rule_id"`
	UserID       string  `json:"user_id"`
	SKU          string  `json:"sku,omitempty"`
	Title        string  `json:"title,omitempty"`
	OldListingID string  `json:"old_listing_id"`
	NewListingID string  `json:"new_listing_id,omitempty"`
	Outcome      Outcome `json:"outcome"`
	SkipReason   string  `json:"skip_reason,omitempty"`
	ErrorPhase   string  `json:"error_phase,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// Notifier defines the interface for delivering relist outcome events.
type Notifier interface {
	SendOutcome(ctx context.Context, ev Event) error
}

// Multi fans one event out to several backends; every backend is tried and
// the first error wins.
type Multi []Notifier

// SendOutcome delivers the event to every backend.
func (m Multi) SendOutcome(ctx context.Context, ev Event) error {
	var firstErr error
	for _, n := range m {
		if err := n.SendOutcome(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
