package client

import (
	"context"
	"fmt"

	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

// ListAttempts returns a rule's attempt history, newest first.
func (c *Client) ListAttempts(ctx context.Context, ruleID string, limit int) ([]domain.RelistAttempt, error) {
	path := fmt.Sprintf("/api/v1/rules/%s/attempts", ruleID)
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var attempts []domain.RelistAttempt
	if err := c.get(ctx, path, &attempts); err != nil {
		return nil, err
	}
	return attempts, nil
}

// GetAttempt returns a single attempt by ID.
func (c *Client) GetAttempt(ctx context.Context, id string) (*domain.RelistAttempt, error) {
	var a domain.RelistAttempt
	if err := c.get(ctx, "/api/v1/attempts/"+id, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
