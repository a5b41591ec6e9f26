// Package relist implements the listing relist orchestrator: the workflow
// that cycles one marketplace listing through end → optional edit →
// republish across both API generations, with pre-flight safety checks, a
// durable inter-phase delay, and idempotent recovery from partial failures.
package relist

import (
	"context"
	"fmt"
	"time"

	"github.com/noakmilo/qventory-backend/internal/metrics"
	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

const returnsWindow = 30 * 24 * time.Hour

// FulfillmentStore answers the gate's questions about recent sales activity.
type FulfillmentStore interface {
	CountRecentOrders(ctx context.Context, userID, sku string, window time.Duration) (int, error)
	CountActiveReturns(ctx context.Context, userID, sku string, window time.Duration) (int, error)
}

// Gate runs the pre-flight safety checks before any mutating call. Checks
// run in fixed order and short-circuit on the first failure; the gate never
// issues a mutating call itself.
type Gate struct {
	fulfillment FulfillmentStore
}

// NewGate creates a validation gate over the given fulfillment store.
func NewGate(f FulfillmentStore) *Gate {
	return &Gate{fulfillment: f}
}

// Validate returns a non-empty skip reason when the cycle must not run now.
// An error means a check itself could not be evaluated, which is treated as
// a hard failure by the orchestrator, not a skip.
func (g *Gate) Validate(
	ctx context.Context,
	snap *domain.ListingSnapshot,
	rule *domain.RelistRule,
) (string, error) {
	if rule.RequirePositiveQuantity && snap.Quantity <= 0 {
		metrics.ValidationSkipsTotal.WithLabelValues("quantity").Inc()
		return "Zero quantity available", nil
	}

	if rule.MinHoursSinceLastOrder > 0 {
		window := time.Duration(rule.MinHoursSinceLastOrder) * time.Hour
		n, err := g.fulfillment.CountRecentOrders(ctx, rule.UserID, snap.SKU, window)
		if err != nil {
			return "", fmt.Errorf("counting recent orders: %w", err)
		}
		if n > 0 {
			metrics.ValidationSkipsTotal.WithLabelValues("recent_order").Inc()
			return fmt.Sprintf(
				"%d order(s) within the last %d hours", n, rule.MinHoursSinceLastOrder,
			), nil
		}
	}

	if rule.CheckActiveReturns {
		n, err := g.fulfillment.CountActiveReturns(ctx, rule.UserID, snap.SKU, returnsWindow)
		if err != nil {
			return "", fmt.Errorf("counting active returns: %w", err)
		}
		if n > 0 {
			metrics.ValidationSkipsTotal.WithLabelValues("active_return").Inc()
			return fmt.Sprintf("%d active return(s) within the last 30 days", n), nil
		}
	}

	return "", nil
}
