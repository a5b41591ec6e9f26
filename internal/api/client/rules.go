package client

import (
	"context"
	"fmt"

	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

// listingRequest addresses the external listing when creating a rule.
type listingRequest struct {
	ID       string `json:"id"`
	Protocol string `json:"protocol,omitempty"`
}

// ruleRequest contains only the fields the API accepts for create/update.
type ruleRequest struct {
	UserID                  string              `json:"user_id,omitempty"`
	Listing                 *listingRequest     `json:"listing,omitempty"`
	SKU                     string              `json:"sku,omitempty"`
	RequirePositiveQuantity bool                `json:"require_positive_quantity,omitempty"`
	MinHoursSinceLastOrder  int                 `json:"min_hours_since_last_order,omitempty"`
	CheckActiveReturns      bool                `json:"check_active_returns,omitempty"`
	WithdrawPublishDelay    int                 `json:"withdraw_publish_delay_seconds,omitempty"`
	Changes                 *domain.ChangeSet   `json:"changes,omitempty"`
	DecreaseType            domain.DecreaseType `json:"decrease_type,omitempty"`
	DecreaseAmount          float64             `json:"decrease_amount,omitempty"`
	FloorPrice              float64             `json:"floor_price,omitempty"`
	Enabled                 bool                `json:"enabled,omitempty"`
}

func newRuleRequest(r *domain.RelistRule) ruleRequest {
	return ruleRequest{
		SKU:                     r.SKU,
		RequirePositiveQuantity: r.RequirePositiveQuantity,
		MinHoursSinceLastOrder:  r.MinHoursSinceLastOrder,
		CheckActiveReturns:      r.CheckActiveReturns,
		WithdrawPublishDelay:    r.WithdrawPublishDelay,
		Changes:                 r.Changes,
		DecreaseType:            r.DecreaseType,
		DecreaseAmount:          r.DecreaseAmount,
		FloorPrice:              r.FloorPrice,
		Enabled:                 r.Enabled,
	}
}

// ListRules returns all rules. With enabledOnly, disabled rules are omitted.
func (c *Client) ListRules(ctx context.Context, enabledOnly bool) ([]domain.RelistRule, error) {
	path := "/api/v1/rules"
	if enabledOnly {
		path += "?enabled=true"
	}

	var rules []domain.RelistRule
	if err := c.get(ctx, path, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// GetRule returns a single rule by ID.
func (c *Client) GetRule(ctx context.Context, id string) (*domain.RelistRule, error) {
	var r domain.RelistRule
	if err := c.get(ctx, "/api/v1/rules/"+id, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRule creates a new rule.
func (c *Client) CreateRule(ctx context.Context, r *domain.RelistRule) (*domain.RelistRule, error) {
	req := newRuleRequest(r)
	req.UserID = r.UserID
	req.Listing = &listingRequest{
		ID:       r.Listing.ID,
		Protocol: string(r.Listing.Protocol),
	}

	var created domain.RelistRule
	if err := c.post(ctx, "/api/v1/rules", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateRule updates an existing rule's policy fields.
func (c *Client) UpdateRule(ctx context.Context, r *domain.RelistRule) (*domain.RelistRule, error) {
	var updated domain.RelistRule
	if err := c.put(ctx, "/api/v1/rules/"+r.ID, newRuleRequest(r), &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// SetRuleEnabled enables or disables a rule.
func (c *Client) SetRuleEnabled(ctx context.Context, id string, enabled bool) error {
	body := map[string]bool{"enabled": enabled}
	return c.put(ctx, fmt.Sprintf("/api/v1/rules/%s/enabled", id), body, nil)
}

// DeleteRule deletes a rule by ID.
func (c *Client) DeleteRule(ctx context.Context, id string) error {
	return c.del(ctx, "/api/v1/rules/"+id, nil)
}
