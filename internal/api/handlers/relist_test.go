package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noakmilo/qventory-backend/internal/api/handlers"
	"github.com/noakmilo/qventory-backend/internal/engine"
	"github.com/noakmilo/qventory-backend/internal/store"
	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

type fakeRunner struct {
	result *domain.RelistAttemptResult
	err    error

	gotRuleID       string
	gotApplyChanges bool
}

func (f *fakeRunner) RunRule(
	_ context.Context,
	ruleID string,
	applyChanges bool,
) (*domain.RelistAttemptResult, error) {
	f.gotRuleID = ruleID
	f.gotApplyChanges = applyChanges
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newRelistAPI(t *testing.T, r *fakeRunner) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	handlers.RegisterRelistRoutes(api, handlers.NewRelistHandler(r))
	return api
}

func TestRelistHandler_Relist(t *testing.T) {
	t.Parallel()

	t.Run("successful cycle returns the new listing ID", func(t *testing.T) {
		t.Parallel()

		runner := &fakeRunner{
			result: &domain.RelistAttemptResult{
				Success:      true,
				OldListingID: "376573575653",
				NewListingID: "376999999999",
			},
		}
		api := newRelistAPI(t, runner)

		resp := api.Post("/api/v1/rules/r1/relist", map[string]any{
			"apply_changes": true,
		})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"376999999999"`)
		assert.Equal(t, "r1", runner.gotRuleID)
		assert.True(t, runner.gotApplyChanges)
	})

	t.Run("omitted apply_changes defaults to false", func(t *testing.T) {
		t.Parallel()

		runner := &fakeRunner{
			result: &domain.RelistAttemptResult{
				Success:      true,
				OldListingID: "376573575653",
				NewListingID: "376999999999",
			},
		}
		api := newRelistAPI(t, runner)

		resp := api.Post("/api/v1/rules/r1/relist", map[string]any{})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.False(t, runner.gotApplyChanges)
	})

	t.Run("skip outcome is a 200 with the reason", func(t *testing.T) {
		t.Parallel()

		runner := &fakeRunner{
			result: &domain.RelistAttemptResult{
				OldListingID: "376573575653",
				SkipReason:   "quantity is zero",
			},
		}
		api := newRelistAPI(t, runner)

		resp := api.Post("/api/v1/rules/r1/relist", map[string]any{})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), "quantity is zero")
		assert.False(t, runner.gotApplyChanges)
	})

	t.Run("unknown rule is a 404", func(t *testing.T) {
		t.Parallel()

		runner := &fakeRunner{err: store.ErrNotFound}
		api := newRelistAPI(t, runner)

		resp := api.Post("/api/v1/rules/missing/relist", map[string]any{})
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("leased listing is a 409", func(t *testing.T) {
		t.Parallel()

		runner := &fakeRunner{err: engine.ErrListingBusy}
		api := newRelistAPI(t, runner)

		resp := api.Post("/api/v1/rules/r1/relist", map[string]any{})
		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("other errors are a 500", func(t *testing.T) {
		t.Parallel()

		runner := &fakeRunner{err: errors.New("adapter exploded")}
		api := newRelistAPI(t, runner)

		resp := api.Post("/api/v1/rules/r1/relist", map[string]any{})
		assert.Equal(t, http.StatusInternalServerError, resp.Code)
		assert.Contains(t, resp.Body.String(), "running relist cycle")
	})
}
