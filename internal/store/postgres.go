package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

const defaultPoolSize = 10

// PostgresStore implements Store using pgxpool (connection-pooled PostgreSQL).
//
// TODO(test): PostgresStore methods require live Postgres, tested via integration tests.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// PostgresOption configures the PostgresStore.
type PostgresOption func(*pgxpool.Config)

// WithPoolSize sets the maximum number of pooled connections.
func WithPoolSize(n int) PostgresOption {
	return func(cfg *pgxpool.Config) {
		if n > 0 {
			cfg.MaxConns = int32(n)
		}
	}
}

// NewPostgresStore creates a new PostgresStore with connection pooling.
func NewPostgresStore(ctx context.Context, connString string, opts ...PostgresOption) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// CreateRule inserts a new relist rule and fills in its generated fields.
func (s *PostgresStore) CreateRule(ctx context.Context, r *domain.RelistRule) error {
	changesJSON, err := marshalChanges(r.Changes)
	if err != nil {
		return err
	}

	args := pgx.NamedArgs{
		"user_id":                        r.UserID,
		"sku":                            r.SKU,
		"protocol":                       string(r.Listing.Protocol),
		"external_id":                    r.Listing.ID,
		"require_positive_quantity":      r.RequirePositiveQuantity,
		"min_hours_since_last_order":     r.MinHoursSinceLastOrder,
		"check_active_returns":           r.CheckActiveReturns,
		"withdraw_publish_delay_seconds": r.WithdrawPublishDelay,
		"changes":                        changesJSON,
		"decrease_type":                  string(r.DecreaseType),
		"decrease_amount":                r.DecreaseAmount,
		"floor_price":                    r.FloorPrice,
		"enabled":                        r.Enabled,
		"next_run_at":                    r.NextRunAt,
	}

	return s.pool.QueryRow(ctx, queryCreateRule, args).Scan(
		&r.ID, &r.CreatedAt, &r.UpdatedAt,
	)
}

// GetRule retrieves a rule by its UUID.
func (s *PostgresStore) GetRule(ctx context.Context, id string) (*domain.RelistRule, error) {
	r := &domain.RelistRule{}
	if err := scanRule(s.pool.QueryRow(ctx, queryGetRule, id), r); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

// ListRules returns all rules, optionally filtered to enabled only.
func (s *PostgresStore) ListRules(ctx context.Context, enabledOnly bool) ([]domain.RelistRule, error) {
	return s.queryRules(ctx, queryListRules, enabledOnly)
}

// UpdateRule updates an existing rule. The protocol and external listing id
// are fixed at creation and never rewritten.
func (s *PostgresStore) UpdateRule(ctx context.Context, r *domain.RelistRule) error {
	changesJSON, err := marshalChanges(r.Changes)
	if err != nil {
		return err
	}

	args := pgx.NamedArgs{
		"id":                             r.ID,
		"sku":                            r.SKU,
		"require_positive_quantity":      r.RequirePositiveQuantity,
		"min_hours_since_last_order":     r.MinHoursSinceLastOrder,
		"check_active_returns":           r.CheckActiveReturns,
		"withdraw_publish_delay_seconds": r.WithdrawPublishDelay,
		"changes":                        changesJSON,
		"decrease_type":                  string(r.DecreaseType),
		"decrease_amount":                r.DecreaseAmount,
		"floor_price":                    r.FloorPrice,
		"enabled":                        r.Enabled,
		"next_run_at":                    r.NextRunAt,
	}

	err = s.pool.QueryRow(ctx, queryUpdateRule, args).Scan(&r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("updating rule: %w", err)
	}
	return nil
}

// DeleteRule removes a rule and, via cascade, its attempt history.
func (s *PostgresStore) DeleteRule(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, queryDeleteRule, id)
	if err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRuleEnabled enables or disables a rule.
func (s *PostgresStore) SetRuleEnabled(ctx context.Context, id string, enabled bool) error {
	var got string
	err := s.pool.QueryRow(ctx, querySetRuleEnabled, id, enabled).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("setting rule enabled: %w", err)
	}
	return nil
}

// ListDueRules returns enabled rules whose next_run_at has passed.
func (s *PostgresStore) ListDueRules(ctx context.Context, now time.Time, limit int) ([]domain.RelistRule, error) {
	return s.queryRules(ctx, queryListDueRules, now, limit)
}

// UpdateRuleNextRun sets the next scheduled run for a rule.
func (s *PostgresStore) UpdateRuleNextRun(ctx context.Context, id string, next time.Time) error {
	_, err := s.pool.Exec(ctx, queryUpdateRuleNextRun, id, next)
	if err != nil {
		return fmt.Errorf("updating rule next_run_at: %w", err)
	}
	return nil
}

// CreateAttempt inserts a new attempt row and fills in its UUID.
func (s *PostgresStore) CreateAttempt(ctx context.Context, a *domain.RelistAttempt) error {
	phasesJSON, err := json.Marshal(a.Phases)
	if err != nil {
		return fmt.Errorf("marshaling attempt phases: %w", err)
	}

	args := pgx.NamedArgs{
		"rule_id":        a.RuleID,
		"user_id":        a.UserID,
		"state":          string(a.State),
		"old_listing_id": a.OldListingID,
		"new_listing_id": a.NewListingID,
		"skip_reason":    a.SkipReason,
		"error_phase":    a.ErrorPhase,
		"error_text":     a.ErrorText,
		"phases":         phasesJSON,
		"resume_at":      a.ResumeAt,
		"started_at":     a.StartedAt,
		"completed_at":   a.CompletedAt,
	}

	return s.pool.QueryRow(ctx, queryCreateAttempt, args).Scan(&a.ID)
}

// UpdateAttempt rewrites the mutable fields of an attempt row.
func (s *PostgresStore) UpdateAttempt(ctx context.Context, a *domain.RelistAttempt) error {
	phasesJSON, err := json.Marshal(a.Phases)
	if err != nil {
		return fmt.Errorf("marshaling attempt phases: %w", err)
	}

	args := pgx.NamedArgs{
		"id":             a.ID,
		"state":          string(a.State),
		"new_listing_id": a.NewListingID,
		"skip_reason":    a.SkipReason,
		"error_phase":    a.ErrorPhase,
		"error_text":     a.ErrorText,
		"phases":         phasesJSON,
		"resume_at":      a.ResumeAt,
		"completed_at":   a.CompletedAt,
	}

	tag, err := s.pool.Exec(ctx, queryUpdateAttempt, args)
	if err != nil {
		return fmt.Errorf("updating attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetAttempt retrieves an attempt by its UUID.
func (s *PostgresStore) GetAttempt(ctx context.Context, id string) (*domain.RelistAttempt, error) {
	a := &domain.RelistAttempt{}
	if err := scanAttempt(s.pool.QueryRow(ctx, queryGetAttempt, id), a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// OpenAttempt returns the newest non-terminal attempt for a rule, or
// ErrNotFound when every attempt has settled.
func (s *PostgresStore) OpenAttempt(ctx context.Context, ruleID string) (*domain.RelistAttempt, error) {
	a := &domain.RelistAttempt{}
	if err := scanAttempt(s.pool.QueryRow(ctx, queryOpenAttempt, ruleID), a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// ListAttemptsByRule returns a rule's attempt history, newest first.
func (s *PostgresStore) ListAttemptsByRule(ctx context.Context, ruleID string, limit int) ([]domain.RelistAttempt, error) {
	return s.queryAttempts(ctx, queryListAttemptsByRule, ruleID, limit)
}

// ListResumableAttempts returns waiting attempts whose resume time has passed.
func (s *PostgresStore) ListResumableAttempts(ctx context.Context, now time.Time, limit int) ([]domain.RelistAttempt, error) {
	return s.queryAttempts(ctx, queryListResumableAttempts, now, limit)
}

// CountRecentOrders counts orders for a SKU sold within the window.
func (s *PostgresStore) CountRecentOrders(ctx context.Context, userID, sku string, window time.Duration) (int, error) {
	cutoff := time.Now().Add(-window)
	var count int
	if err := s.pool.QueryRow(ctx, queryCountRecentOrders, userID, sku, cutoff).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting recent orders: %w", err)
	}
	return count, nil
}

// CountActiveReturns counts returns for a SKU opened within the window.
func (s *PostgresStore) CountActiveReturns(ctx context.Context, userID, sku string, window time.Duration) (int, error) {
	cutoff := time.Now().Add(-window)
	var count int
	if err := s.pool.QueryRow(ctx, queryCountActiveReturns, userID, sku, cutoff).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting active returns: %w", err)
	}
	return count, nil
}

// HasShippedSale reports whether an order against the listing has been
// shipped or delivered.
func (s *PostgresStore) HasShippedSale(ctx context.Context, userID, listingID string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, queryHasShippedSale, userID, listingID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking shipped sale: %w", err)
	}
	return exists, nil
}

// FindLocationTag returns the stored warehouse/location tag for an external
// item. A missing inventory row yields an empty tag, not an error.
func (s *PostgresStore) FindLocationTag(ctx context.Context, userID, externalItemID string) (string, error) {
	var tag string
	err := s.pool.QueryRow(ctx, queryFindLocationTag, userID, externalItemID).Scan(&tag)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("finding location tag: %w", err)
	}
	return tag, nil
}

// RefreshToken returns the stored marketplace refresh token for a user.
func (s *PostgresStore) RefreshToken(ctx context.Context, userID string) (string, error) {
	var token string
	err := s.pool.QueryRow(ctx, queryRefreshToken, userID).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("loading refresh token: %w", err)
	}
	return token, nil
}

// AcquireRuleLease attempts to take the per-listing lease serializing relist
// attempts. Returns true if the lease was acquired, false if another holder
// already owns it.
func (s *PostgresStore) AcquireRuleLease(
	ctx context.Context,
	listingRef string,
	holder string,
	ttl time.Duration,
) (bool, error) {
	expiresAt := time.Now().Add(ttl)

	var gotRef string
	err := s.pool.QueryRow(ctx, queryAcquireRuleLease, listingRef, holder, expiresAt).Scan(&gotRef)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil // lease held by another; conflict not replaced
	}
	if err != nil {
		return false, fmt.Errorf("acquiring rule lease: %w", err)
	}

	return true, nil
}

// ReleaseRuleLease deletes the lease row for the given listing and holder.
func (s *PostgresStore) ReleaseRuleLease(ctx context.Context, listingRef, holder string) error {
	_, err := s.pool.Exec(ctx, queryReleaseRuleLease, listingRef, holder)
	if err != nil {
		return fmt.Errorf("releasing rule lease: %w", err)
	}
	return nil
}

// queryRules is a helper for rule list queries.
func (s *PostgresStore) queryRules(
	ctx context.Context,
	query string,
	args ...any,
) ([]domain.RelistRule, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.RelistRule
	for rows.Next() {
		var r domain.RelistRule
		if err := scanRule(rows, &r); err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		rules = append(rules, r)
	}

	return rules, rows.Err()
}

// queryAttempts is a helper for attempt list queries.
func (s *PostgresStore) queryAttempts(
	ctx context.Context,
	query string,
	args ...any,
) ([]domain.RelistAttempt, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.RelistAttempt
	for rows.Next() {
		var a domain.RelistAttempt
		if err := scanAttempt(rows, &a); err != nil {
			return nil, fmt.Errorf("scanning attempt: %w", err)
		}
		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}

// scannable abstracts pgx.Row and pgx.Rows for reuse.
type scannable interface {
	Scan(dest ...any) error
}

// scanRule scans a full rule row, decoding the JSONB change set.
func scanRule(row scannable, r *domain.RelistRule) error {
	var changesJSON []byte

	if err := row.Scan(
		&r.ID, &r.UserID, &r.SKU, &r.Listing.Protocol, &r.Listing.ID,
		&r.RequirePositiveQuantity, &r.MinHoursSinceLastOrder, &r.CheckActiveReturns,
		&r.WithdrawPublishDelay, &changesJSON,
		&r.DecreaseType, &r.DecreaseAmount, &r.FloorPrice,
		&r.Enabled, &r.NextRunAt, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return err
	}

	if len(changesJSON) > 0 {
		r.Changes = &domain.ChangeSet{}
		if err := json.Unmarshal(changesJSON, r.Changes); err != nil {
			return fmt.Errorf("unmarshaling rule changes: %w", err)
		}
	}

	return nil
}

// scanAttempt scans a full attempt row, decoding the JSONB phase details.
func scanAttempt(row scannable, a *domain.RelistAttempt) error {
	var phasesJSON []byte

	if err := row.Scan(
		&a.ID, &a.RuleID, &a.UserID, &a.State, &a.OldListingID, &a.NewListingID,
		&a.SkipReason, &a.ErrorPhase, &a.ErrorText, &phasesJSON,
		&a.ResumeAt, &a.StartedAt, &a.CompletedAt,
	); err != nil {
		return err
	}

	if len(phasesJSON) > 0 {
		if err := json.Unmarshal(phasesJSON, &a.Phases); err != nil {
			return fmt.Errorf("unmarshaling attempt phases: %w", err)
		}
	}

	return nil
}

// marshalChanges encodes an optional change set for JSONB storage; nil stays
// NULL so "no pending edits" round-trips.
func marshalChanges(c *domain.ChangeSet) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling rule changes: %w", err)
	}
	return b, nil
}
