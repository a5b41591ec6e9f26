package handlers_test

import (
	"context"
	"time"

	"github.com/noakmilo/qventory-backend/internal/store"
	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

// fakeStore is a hand-rolled store.Store for handler tests. Tests seed the
// maps and error fields they care about; everything else returns zero values.
type fakeStore struct {
	rules          map[string]*domain.RelistRule
	attempts       map[string]*domain.RelistAttempt
	attemptsByRule map[string][]domain.RelistAttempt

	created []domain.RelistRule
	updated []domain.RelistRule
	deleted []string
	toggled map[string]bool

	listErr   error
	createErr error
	updateErr error
	pingErr   error

	// Arguments recorded for assertions.
	listEnabledOnly bool
	attemptLimit    int
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		rules:          map[string]*domain.RelistRule{},
		attempts:       map[string]*domain.RelistAttempt{},
		attemptsByRule: map[string][]domain.RelistAttempt{},
		toggled:        map[string]bool{},
	}
}

func (f *fakeStore) CreateRule(_ context.Context, r *domain.RelistRule) error {
	if f.createErr != nil {
		return f.createErr
	}
	if r.ID == "" {
		r.ID = "rule-new"
	}
	f.created = append(f.created, *r)
	f.rules[r.ID] = r
	return nil
}

func (f *fakeStore) GetRule(_ context.Context, id string) (*domain.RelistRule, error) {
	r, ok := f.rules[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) ListRules(_ context.Context, enabledOnly bool) ([]domain.RelistRule, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.listEnabledOnly = enabledOnly
	var out []domain.RelistRule
	for _, r := range f.rules {
		if enabledOnly && !r.Enabled {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeStore) UpdateRule(_ context.Context, r *domain.RelistRule) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.rules[r.ID]; !ok {
		return store.ErrNotFound
	}
	f.updated = append(f.updated, *r)
	f.rules[r.ID] = r
	return nil
}

func (f *fakeStore) DeleteRule(_ context.Context, id string) error {
	if _, ok := f.rules[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.rules, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) SetRuleEnabled(_ context.Context, id string, enabled bool) error {
	r, ok := f.rules[id]
	if !ok {
		return store.ErrNotFound
	}
	r.Enabled = enabled
	f.toggled[id] = enabled
	return nil
}

func (f *fakeStore) ListDueRules(context.Context, time.Time, int) ([]domain.RelistRule, error) {
	return nil, nil
}

func (f *fakeStore) UpdateRuleNextRun(context.Context, string, time.Time) error {
	return nil
}

func (f *fakeStore) CreateAttempt(context.Context, *domain.RelistAttempt) error {
	return nil
}

func (f *fakeStore) UpdateAttempt(context.Context, *domain.RelistAttempt) error {
	return nil
}

func (f *fakeStore) GetAttempt(_ context.Context, id string) (*domain.RelistAttempt, error) {
	a, ok := f.attempts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) OpenAttempt(context.Context, string) (*domain.RelistAttempt, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListAttemptsByRule(_ context.Context, ruleID string, limit int) ([]domain.RelistAttempt, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.attemptLimit = limit
	return f.attemptsByRule[ruleID], nil
}

func (f *fakeStore) ListResumableAttempts(context.Context, time.Time, int) ([]domain.RelistAttempt, error) {
	return nil, nil
}

func (f *fakeStore) CountRecentOrders(context.Context, string, string, time.Duration) (int, error) {
	return 0, nil
}

func (f *fakeStore) CountActiveReturns(context.Context, string, string, time.Duration) (int, error) {
	return 0, nil
}

func (f *fakeStore) HasShippedSale(context.Context, string, string) (bool, error) {
	return false, nil
}

func (f *fakeStore) FindLocationTag(context.Context, string, string) (string, error) {
	return "", nil
}

func (f *fakeStore) RefreshToken(context.Context, string) (string, error) {
	return "", store.ErrNotFound
}

func (f *fakeStore) AcquireRuleLease(context.Context, string, string, time.Duration) (bool, error) {
	return true, nil
}

func (f *fakeStore) ReleaseRuleLease(context.Context, string, string) error {
	return nil
}

func (f *fakeStore) Migrate(context.Context) error { return nil }

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }
