package handlers_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noakmilo/qventory-backend/internal/api/handlers"
	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

func newRuleAPI(t *testing.T, fs *fakeStore) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	handlers.RegisterRuleRoutes(api, handlers.NewRuleHandler(fs))
	return api
}

func seedRule(fs *fakeStore, id string, enabled bool) *domain.RelistRule {
	r := &domain.RelistRule{
		ID:     id,
		UserID: "user-1",
		SKU:    "SKU-001",
		Listing: domain.ListingRef{
			Protocol: domain.ProtocolTrading,
			ID:       "376573575653",
		},
		Enabled: enabled,
	}
	fs.rules[id] = r
	return r
}

func TestRuleHandler_ListRules(t *testing.T) {
	t.Parallel()

	t.Run("returns rules", func(t *testing.T) {
		t.Parallel()

		fs := newFakeStore()
		seedRule(fs, "r1", true)
		api := newRuleAPI(t, fs)

		resp := api.Get("/api/v1/rules")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"376573575653"`)
	})

	t.Run("empty result is an empty array", func(t *testing.T) {
		t.Parallel()

		api := newRuleAPI(t, newFakeStore())

		resp := api.Get("/api/v1/rules")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.JSONEq(t, `[]`, resp.Body.String())
	})

	t.Run("enabled filter excludes disabled rules", func(t *testing.T) {
		t.Parallel()

		fs := newFakeStore()
		seedRule(fs, "r1", true)
		seedRule(fs, "r2", false)
		api := newRuleAPI(t, fs)

		resp := api.Get("/api/v1/rules?enabled=true")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"r1"`)
		assert.NotContains(t, resp.Body.String(), `"r2"`)
	})

	t.Run("store error", func(t *testing.T) {
		t.Parallel()

		fs := newFakeStore()
		fs.listErr = errors.New("db down")
		api := newRuleAPI(t, fs)

		resp := api.Get("/api/v1/rules")
		assert.Equal(t, http.StatusInternalServerError, resp.Code)
		assert.Contains(t, resp.Body.String(), "listing rules")
	})
}

func TestRuleHandler_GetRule(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()

		fs := newFakeStore()
		seedRule(fs, "r1", true)
		api := newRuleAPI(t, fs)

		resp := api.Get("/api/v1/rules/r1")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"trading"`)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		api := newRuleAPI(t, newFakeStore())

		resp := api.Get("/api/v1/rules/missing")
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Contains(t, resp.Body.String(), "rule not found")
	})
}

func TestRuleHandler_CreateRule(t *testing.T) {
	t.Parallel()

	t.Run("numeric listing ID infers the legacy protocol", func(t *testing.T) {
		t.Parallel()

		fs := newFakeStore()
		api := newRuleAPI(t, fs)

		resp := api.Post("/api/v1/rules", map[string]any{
			"user_id": "user-1",
			"listing": map[string]any{"id": "376573575653"},
		})
		require.Equal(t, http.StatusCreated, resp.Code)

		require.Len(t, fs.created, 1)
		assert.Equal(t, domain.ProtocolTrading, fs.created[0].Listing.Protocol)
	})

	t.Run("non-numeric listing ID infers the offer protocol", func(t *testing.T) {
		t.Parallel()

		fs := newFakeStore()
		api := newRuleAPI(t, fs)

		resp := api.Post("/api/v1/rules", map[string]any{
			"user_id": "user-1",
			"listing": map[string]any{"id": "8f2e1c9a-offer"},
		})
		require.Equal(t, http.StatusCreated, resp.Code)

		require.Len(t, fs.created, 1)
		assert.Equal(t, domain.ProtocolOffer, fs.created[0].Listing.Protocol)
	})

	t.Run("explicit protocol wins over inference", func(t *testing.T) {
		t.Parallel()

		fs := newFakeStore()
		api := newRuleAPI(t, fs)

		resp := api.Post("/api/v1/rules", map[string]any{
			"user_id": "user-1",
			"listing": map[string]any{"id": "376573575653", "protocol": "offer"},
		})
		require.Equal(t, http.StatusCreated, resp.Code)

		require.Len(t, fs.created, 1)
		assert.Equal(t, domain.ProtocolOffer, fs.created[0].Listing.Protocol)
	})

	t.Run("missing user_id is rejected", func(t *testing.T) {
		t.Parallel()

		api := newRuleAPI(t, newFakeStore())

		resp := api.Post("/api/v1/rules", map[string]any{
			"listing": map[string]any{"id": "376573575653"},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	t.Run("missing listing ID is rejected", func(t *testing.T) {
		t.Parallel()

		api := newRuleAPI(t, newFakeStore())

		resp := api.Post("/api/v1/rules", map[string]any{
			"user_id": "user-1",
			"listing": map[string]any{},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	t.Run("decrease type without amount is rejected", func(t *testing.T) {
		t.Parallel()

		api := newRuleAPI(t, newFakeStore())

		resp := api.Post("/api/v1/rules", map[string]any{
			"user_id":       "user-1",
			"listing":       map[string]any{"id": "376573575653"},
			"decrease_type": "percent",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		assert.Contains(t, resp.Body.String(), "decrease_amount must be positive")
	})

	t.Run("pending edits round-trip", func(t *testing.T) {
		t.Parallel()

		fs := newFakeStore()
		api := newRuleAPI(t, fs)

		resp := api.Post("/api/v1/rules", map[string]any{
			"user_id": "user-1",
			"listing": map[string]any{"id": "376573575653"},
			"changes": map[string]any{"price": 24.99, "title": "Refreshed title"},
		})
		require.Equal(t, http.StatusCreated, resp.Code)

		require.Len(t, fs.created, 1)
		require.NotNil(t, fs.created[0].Changes)
		require.NotNil(t, fs.created[0].Changes.Price)
		assert.InDelta(t, 24.99, *fs.created[0].Changes.Price, 0.001)
	})
}

func TestRuleHandler_UpdateRule(t *testing.T) {
	t.Parallel()

	t.Run("listing reference stays immutable", func(t *testing.T) {
		t.Parallel()

		fs := newFakeStore()
		seedRule(fs, "r1", true)
		api := newRuleAPI(t, fs)

		resp := api.Put("/api/v1/rules/r1", map[string]any{
			"sku":                            "SKU-002",
			"withdraw_publish_delay_seconds": 45,
			"enabled":                        true,
		})
		require.Equal(t, http.StatusOK, resp.Code)

		require.Len(t, fs.updated, 1)
		assert.Equal(t, "SKU-002", fs.updated[0].SKU)
		assert.Equal(t, 45, fs.updated[0].WithdrawPublishDelay)
		assert.Equal(t, "376573575653", fs.updated[0].Listing.ID)
		assert.Equal(t, "user-1", fs.updated[0].UserID)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		api := newRuleAPI(t, newFakeStore())

		resp := api.Put("/api/v1/rules/missing", map[string]any{"sku": "SKU-002"})
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestRuleHandler_SetEnabled(t *testing.T) {
	t.Parallel()

	t.Run("toggles the rule", func(t *testing.T) {
		t.Parallel()

		fs := newFakeStore()
		seedRule(fs, "r1", true)
		api := newRuleAPI(t, fs)

		resp := api.Put("/api/v1/rules/r1/enabled", map[string]any{"enabled": false})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.False(t, fs.toggled["r1"])
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		api := newRuleAPI(t, newFakeStore())

		resp := api.Put("/api/v1/rules/missing/enabled", map[string]any{"enabled": true})
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestRuleHandler_DeleteRule(t *testing.T) {
	t.Parallel()

	t.Run("deletes the rule", func(t *testing.T) {
		t.Parallel()

		fs := newFakeStore()
		seedRule(fs, "r1", true)
		api := newRuleAPI(t, fs)

		resp := api.Delete("/api/v1/rules/r1")
		require.Equal(t, http.StatusNoContent, resp.Code)
		assert.Equal(t, []string{"r1"}, fs.deleted)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		api := newRuleAPI(t, newFakeStore())

		resp := api.Delete("/api/v1/rules/missing")
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}
