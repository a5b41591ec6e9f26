package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/noakmilo/qventory-backend/internal/store"
	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

const defaultAttemptLimit = 20

// AttemptsHandler handles relist attempt read operations.
type AttemptsHandler struct {
	store store.Store
}

// NewAttemptsHandler creates a new AttemptsHandler.
func NewAttemptsHandler(s store.Store) *AttemptsHandler {
	return &AttemptsHandler{store: s}
}

// --- Input/Output types ---

// ListAttemptsInput is the input for listing a rule's attempts.
type ListAttemptsInput struct {
	RuleID string `path:"id"     doc:"Rule UUID"`
	Limit  int    `query:"limit" doc:"Number of results (default 20)" minimum:"1" maximum:"200"`
}

// ListAttemptsOutput is the response for listing attempts.
type ListAttemptsOutput struct {
	Body []domain.RelistAttempt
}

// GetAttemptInput is the input for getting a single attempt.
type GetAttemptInput struct {
	ID string `path:"id" doc:"Attempt UUID"`
}

// GetAttemptOutput is the response for getting a single attempt.
type GetAttemptOutput struct {
	Body domain.RelistAttempt
}

// --- Handlers ---

// ListAttempts returns a rule's attempt history, newest first.
func (h *AttemptsHandler) ListAttempts(
	ctx context.Context,
	input *ListAttemptsInput,
) (*ListAttemptsOutput, error) {
	limit := input.Limit
	if limit == 0 {
		limit = defaultAttemptLimit
	}

	attempts, err := h.store.ListAttemptsByRule(ctx, input.RuleID, limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing attempts: " + err.Error())
	}

	if attempts == nil {
		attempts = []domain.RelistAttempt{}
	}

	return &ListAttemptsOutput{Body: attempts}, nil
}

// GetAttempt returns a single attempt by ID.
func (h *AttemptsHandler) GetAttempt(
	ctx context.Context,
	input *GetAttemptInput,
) (*GetAttemptOutput, error) {
	a, err := h.store.GetAttempt(ctx, input.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, huma.Error404NotFound("attempt not found")
		}
		return nil, huma.Error500InternalServerError("loading attempt: " + err.Error())
	}

	return &GetAttemptOutput{Body: *a}, nil
}

// RegisterAttemptRoutes registers attempt endpoints with the Huma API.
func RegisterAttemptRoutes(api huma.API, h *AttemptsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-rule-attempts",
		Method:      http.MethodGet,
		Path:        "/api/v1/rules/{id}/attempts",
		Summary:     "List a rule's relist attempts",
		Description: "Returns the rule's attempt history, newest first.",
		Tags:        []string{"attempts"},
	}, h.ListAttempts)

	huma.Register(api, huma.Operation{
		OperationID: "get-attempt",
		Method:      http.MethodGet,
		Path:        "/api/v1/attempts/{id}",
		Summary:     "Get an attempt by ID",
		Description: "Returns a single relist attempt with its per-phase results.",
		Tags:        []string{"attempts"},
		Errors:      []int{http.StatusNotFound},
	}, h.GetAttempt)
}
