// Package store defines the datastore abstraction for the qventory relist
// backend. Business logic depends on the Store interface, never on concrete
// implementations, so the orchestrator and engine are testable without a
// running database.
package store

import (
	"context"
	"errors"
	"time"

	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store defines all data access operations for the relist backend.
type Store interface {
	// Rules
	CreateRule(ctx context.Context, r *domain.RelistRule) error
	GetRule(ctx context.Context, id string) (*domain.RelistRule, error)
	ListRules(ctx context.Context, enabledOnly bool) ([]domain.RelistRule, error)
	UpdateRule(ctx context.Context, r *domain.RelistRule) error
	DeleteRule(ctx context.Context, id string) error
	SetRuleEnabled(ctx context.Context, id string, enabled bool) error
	ListDueRules(ctx context.Context, now time.Time, limit int) ([]domain.RelistRule, error)
	UpdateRuleNextRun(ctx context.Context, id string, next time.Time) error

	// Attempts
	CreateAttempt(ctx context.Context, a *domain.RelistAttempt) error
	UpdateAttempt(ctx context.Context, a *domain.RelistAttempt) error
	GetAttempt(ctx context.Context, id string) (*domain.RelistAttempt, error)
	OpenAttempt(ctx context.Context, ruleID string) (*domain.RelistAttempt, error)
	ListAttemptsByRule(ctx context.Context, ruleID string, limit int) ([]domain.RelistAttempt, error)
	ListResumableAttempts(ctx context.Context, now time.Time, limit int) ([]domain.RelistAttempt, error)

	// Fulfillment boundary contracts consumed by the validation gate and
	// sale detector.
	CountRecentOrders(ctx context.Context, userID, sku string, window time.Duration) (int, error)
	CountActiveReturns(ctx context.Context, userID, sku string, window time.Duration) (int, error)
	HasShippedSale(ctx context.Context, userID, listingID string) (bool, error)

	// Inventory
	FindLocationTag(ctx context.Context, userID, externalItemID string) (string, error)

	// Marketplace credentials
	RefreshToken(ctx context.Context, userID string) (string, error)

	// Per-rule leases serializing relist attempts on one external listing.
	AcquireRuleLease(ctx context.Context, listingRef, holder string, ttl time.Duration) (bool, error)
	ReleaseRuleLease(ctx context.Context, listingRef, holder string) error

	// Migrations
	Migrate(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
}
