package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/noakmilo/qventory-backend/internal/engine"
	"github.com/noakmilo/qventory-backend/internal/store"
	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

// RuleRunner triggers one relist cycle for a rule. Satisfied by
// *engine.Engine.
type RuleRunner interface {
	RunRule(ctx context.Context, ruleID string, applyChanges bool) (*domain.RelistAttemptResult, error)
}

// RelistHandler handles manual relist trigger requests.
type RelistHandler struct {
	runner RuleRunner
}

// NewRelistHandler creates a new RelistHandler.
func NewRelistHandler(r RuleRunner) *RelistHandler {
	return &RelistHandler{runner: r}
}

// RelistInput is the request for triggering a relist cycle.
type RelistInput struct {
	RuleID string `path:"id" doc:"Rule UUID"`
	Body   struct {
		ApplyChanges bool `json:"apply_changes,omitempty" example:"true" doc:"Apply the rule's pending edits mid-cycle"`
	}
}

// RelistOutput carries the outcome of one relist cycle.
type RelistOutput struct {
	Body domain.RelistAttemptResult
}

// Relist runs one end-edit-republish cycle for the rule right now. The call
// blocks through the withdraw-to-publish delay, so clients should allow for
// a response time of at least the rule's configured delay.
func (h *RelistHandler) Relist(
	ctx context.Context,
	input *RelistInput,
) (*RelistOutput, error) {
	result, err := h.runner.RunRule(ctx, input.RuleID, input.Body.ApplyChanges)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, huma.Error404NotFound("rule not found")
		case errors.Is(err, engine.ErrListingBusy):
			return nil, huma.Error409Conflict("listing is being processed by another worker")
		default:
			return nil, huma.Error500InternalServerError("running relist cycle: " + err.Error())
		}
	}

	return &RelistOutput{Body: *result}, nil
}

// RegisterRelistRoutes registers the manual relist trigger with the Huma API.
func RegisterRelistRoutes(api huma.API, h *RelistHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "relist-rule",
		Method:      http.MethodPost,
		Path:        "/api/v1/rules/{id}/relist",
		Summary:     "Run a relist cycle now",
		Description: "Ends the rule's listing, optionally applies its pending edits, and " +
			"republishes it after the configured delay. Blocks until the cycle finishes.",
		Tags:   []string{"relist"},
		Errors: []int{http.StatusNotFound, http.StatusConflict},
	}, h.Relist)
}
