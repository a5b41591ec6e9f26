package client

import (
	"context"
	"fmt"
	"time"

	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

// Relist runs one relist cycle for the rule right now. The server blocks
// through the withdraw-to-publish delay, so the caller's context should allow
// at least that long.
func (c *Client) Relist(ctx context.Context, ruleID string, applyChanges bool) (*domain.RelistAttemptResult, error) {
	body := map[string]bool{"apply_changes": applyChanges}

	var result domain.RelistAttemptResult
	path := fmt.Sprintf("/api/v1/rules/%s/relist", ruleID)
	if err := c.post(ctx, path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Quota is the marketplace API quota status.
type Quota struct {
	DailyLimit int64     `json:"daily_limit"`
	DailyUsed  int64     `json:"daily_used"`
	Remaining  int64     `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
}

// GetQuota returns the current marketplace API quota status.
func (c *Client) GetQuota(ctx context.Context) (*Quota, error) {
	var q Quota
	if err := c.get(ctx, "/api/v1/quota", &q); err != nil {
		return nil, err
	}
	return &q, nil
}
