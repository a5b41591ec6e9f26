package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/noakmilo/qventory-backend/internal/ebay"
	"github.com/noakmilo/qventory-backend/internal/store"
	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

// RuleHandler handles relist rule CRUD operations.
type RuleHandler struct {
	store store.Store
}

// NewRuleHandler creates a new RuleHandler.
func NewRuleHandler(s store.Store) *RuleHandler {
	return &RuleHandler{store: s}
}

// --- Input/Output types ---

// RulePolicyBody carries the mutable policy fields shared by create and
// update requests.
type RulePolicyBody struct {
	SKU                     string            `json:"sku,omitempty"                            doc:"Inventory SKU the listing sells"`
	RequirePositiveQuantity bool              `json:"require_positive_quantity,omitempty"      doc:"Skip the cycle when quantity is zero"`
	MinHoursSinceLastOrder  int               `json:"min_hours_since_last_order,omitempty"     doc:"Skip when an order landed within this many hours" minimum:"0"`
	CheckActiveReturns      bool              `json:"check_active_returns,omitempty"           doc:"Skip while a return is open"`
	WithdrawPublishDelay    int               `json:"withdraw_publish_delay_seconds,omitempty" doc:"Seconds between withdraw and publish (default 30)" minimum:"0"`
	Changes                 *domain.ChangeSet `json:"changes,omitempty"                        doc:"Pending edits applied mid-cycle"`
	DecreaseType            string            `json:"decrease_type,omitempty"                  doc:"Scheduled price decrease mode"                     enum:"percent,fixed,"`
	DecreaseAmount          float64           `json:"decrease_amount,omitempty"                doc:"Percent or fixed amount to drop per cycle"         minimum:"0"`
	FloorPrice              float64           `json:"floor_price,omitempty"                    doc:"Never decrease below this price"                   minimum:"0"`
	Enabled                 bool              `json:"enabled,omitempty"                        doc:"Whether the engine schedules this rule"`
}

// apply copies the policy fields onto the domain rule.
func (b *RulePolicyBody) apply(r *domain.RelistRule) {
	r.SKU = b.SKU
	r.RequirePositiveQuantity = b.RequirePositiveQuantity
	r.MinHoursSinceLastOrder = b.MinHoursSinceLastOrder
	r.CheckActiveReturns = b.CheckActiveReturns
	r.WithdrawPublishDelay = b.WithdrawPublishDelay
	r.Changes = b.Changes
	r.DecreaseType = domain.DecreaseType(b.DecreaseType)
	r.DecreaseAmount = b.DecreaseAmount
	r.FloorPrice = b.FloorPrice
	r.Enabled = b.Enabled
}

// validate checks the cross-field constraints the schema cannot express.
func (b *RulePolicyBody) validate() error {
	switch domain.DecreaseType(b.DecreaseType) {
	case domain.DecreaseNone:
	case domain.DecreasePercent, domain.DecreaseFixed:
		if b.DecreaseAmount <= 0 {
			return errors.New("decrease_amount must be positive when decrease_type is set")
		}
	}
	return nil
}

// createRuleBody is the request body for creating a rule.
type createRuleBody struct {
	UserID  string `json:"user_id" doc:"Owner user ID" minLength:"1"`
	Listing struct {
		ID       string `json:"id"                 doc:"External listing ID (legacy item ID or offer ID)" minLength:"1"`
		Protocol string `json:"protocol,omitempty" doc:"Listing API generation; inferred when omitted"     enum:"offer,trading,"`
	} `json:"listing"`
	RulePolicyBody
}

// ListRulesInput is the input for listing rules.
type ListRulesInput struct {
	Enabled bool `query:"enabled" doc:"Return only enabled rules"`
}

// ListRulesOutput is the response for listing rules.
type ListRulesOutput struct {
	Body []domain.RelistRule
}

// GetRuleInput is the input for getting a single rule.
type GetRuleInput struct {
	ID string `path:"id" doc:"Rule UUID"`
}

// RuleOutput is the response carrying one rule.
type RuleOutput struct {
	Body domain.RelistRule
}

// CreateRuleInput is the request for creating a rule.
type CreateRuleInput struct {
	Body createRuleBody
}

// UpdateRuleInput is the request for updating a rule's policy fields.
type UpdateRuleInput struct {
	ID   string `path:"id" doc:"Rule UUID"`
	Body RulePolicyBody
}

// SetRuleEnabledInput is the request for toggling a rule.
type SetRuleEnabledInput struct {
	ID   string `path:"id" doc:"Rule UUID"`
	Body struct {
		Enabled bool `json:"enabled" doc:"New enabled status" example:"true"`
	}
}

// SetRuleEnabledOutput is the response for toggling a rule.
type SetRuleEnabledOutput struct {
	Body StatusResponse
}

// DeleteRuleInput is the input for deleting a rule.
type DeleteRuleInput struct {
	ID string `path:"id" doc:"Rule UUID"`
}

// --- Handlers ---

// ListRules returns all rules, optionally only enabled ones.
func (h *RuleHandler) ListRules(
	ctx context.Context,
	input *ListRulesInput,
) (*ListRulesOutput, error) {
	rules, err := h.store.ListRules(ctx, input.Enabled)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing rules: " + err.Error())
	}

	if rules == nil {
		rules = []domain.RelistRule{}
	}

	return &ListRulesOutput{Body: rules}, nil
}

// GetRule returns a single rule by ID.
func (h *RuleHandler) GetRule(
	ctx context.Context,
	input *GetRuleInput,
) (*RuleOutput, error) {
	r, err := h.store.GetRule(ctx, input.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, huma.Error404NotFound("rule not found")
		}
		return nil, huma.Error500InternalServerError("loading rule: " + err.Error())
	}

	return &RuleOutput{Body: *r}, nil
}

// CreateRule creates a new relist rule. The listing protocol is pinned here,
// at creation time: an explicit protocol in the body wins, otherwise it is
// inferred from the shape of the listing ID. It is never re-inferred.
func (h *RuleHandler) CreateRule(
	ctx context.Context,
	input *CreateRuleInput,
) (*RuleOutput, error) {
	if err := input.Body.validate(); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}

	r := domain.RelistRule{
		UserID: input.Body.UserID,
		Listing: domain.ListingRef{
			Protocol: domain.Protocol(input.Body.Listing.Protocol),
			ID:       input.Body.Listing.ID,
		},
	}
	input.Body.RulePolicyBody.apply(&r)

	if r.Listing.Protocol == "" {
		r.Listing.Protocol = ebay.InferProtocol(r.Listing.ID)
	}

	if err := h.store.CreateRule(ctx, &r); err != nil {
		return nil, huma.Error500InternalServerError("creating rule: " + err.Error())
	}

	return &RuleOutput{Body: r}, nil
}

// UpdateRule updates a rule's policy fields. The listing reference and owner
// are immutable: pointing a rule at a different listing means creating a new
// rule.
func (h *RuleHandler) UpdateRule(
	ctx context.Context,
	input *UpdateRuleInput,
) (*RuleOutput, error) {
	if err := input.Body.validate(); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}

	r, err := h.store.GetRule(ctx, input.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, huma.Error404NotFound("rule not found")
		}
		return nil, huma.Error500InternalServerError("loading rule: " + err.Error())
	}

	input.Body.apply(r)

	if err := h.store.UpdateRule(ctx, r); err != nil {
		return nil, huma.Error500InternalServerError("updating rule: " + err.Error())
	}

	return &RuleOutput{Body: *r}, nil
}

// SetRuleEnabled toggles a rule on or off.
func (h *RuleHandler) SetRuleEnabled(
	ctx context.Context,
	input *SetRuleEnabledInput,
) (*SetRuleEnabledOutput, error) {
	if err := h.store.SetRuleEnabled(ctx, input.ID, input.Body.Enabled); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, huma.Error404NotFound("rule not found")
		}
		return nil, huma.Error500InternalServerError("setting rule enabled: " + err.Error())
	}

	return &SetRuleEnabledOutput{Body: StatusResponse{Status: "updated"}}, nil
}

// DeleteRule deletes a rule and its attempt history.
func (h *RuleHandler) DeleteRule(
	ctx context.Context,
	input *DeleteRuleInput,
) (*struct{}, error) {
	if err := h.store.DeleteRule(ctx, input.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, huma.Error404NotFound("rule not found")
		}
		return nil, huma.Error500InternalServerError("deleting rule: " + err.Error())
	}

	return nil, nil
}

// RegisterRuleRoutes registers rule CRUD endpoints with the Huma API.
func RegisterRuleRoutes(api huma.API, h *RuleHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-rules",
		Method:      http.MethodGet,
		Path:        "/api/v1/rules",
		Summary:     "List relist rules",
		Description: "Returns all relist rules, optionally filtered to enabled ones.",
		Tags:        []string{"rules"},
	}, h.ListRules)

	huma.Register(api, huma.Operation{
		OperationID: "get-rule",
		Method:      http.MethodGet,
		Path:        "/api/v1/rules/{id}",
		Summary:     "Get a rule by ID",
		Description: "Returns a single relist rule by its UUID.",
		Tags:        []string{"rules"},
		Errors:      []int{http.StatusNotFound},
	}, h.GetRule)

	huma.Register(api, huma.Operation{
		OperationID:   "create-rule",
		Method:        http.MethodPost,
		Path:          "/api/v1/rules",
		Summary:       "Create a relist rule",
		Description:   "Creates a new relist rule and pins its listing protocol.",
		Tags:          []string{"rules"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnprocessableEntity},
	}, h.CreateRule)

	huma.Register(api, huma.Operation{
		OperationID: "update-rule",
		Method:      http.MethodPut,
		Path:        "/api/v1/rules/{id}",
		Summary:     "Update a rule",
		Description: "Updates a rule's toggles, schedule and pending edits. The listing reference is immutable.",
		Tags:        []string{"rules"},
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, h.UpdateRule)

	huma.Register(api, huma.Operation{
		OperationID: "set-rule-enabled",
		Method:      http.MethodPut,
		Path:        "/api/v1/rules/{id}/enabled",
		Summary:     "Enable or disable a rule",
		Description: "Sets the enabled status of a rule.",
		Tags:        []string{"rules"},
		Errors:      []int{http.StatusNotFound},
	}, h.SetRuleEnabled)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-rule",
		Method:        http.MethodDelete,
		Path:          "/api/v1/rules/{id}",
		Summary:       "Delete a rule",
		Description:   "Deletes a rule and its attempt history.",
		Tags:          []string{"rules"},
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, h.DeleteRule)
}
