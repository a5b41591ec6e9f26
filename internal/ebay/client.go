// Package ebay provides clients for both generations of the eBay listing
// APIs — the modern REST/JSON Sell APIs (offer + inventory item) and the
// legacy XML-envelope Trading API — behind one capability interface so the
// relist orchestrator never branches on protocol.
package ebay

import (
	"context"
	"net/http"
	"time"

	"github.com/noakmilo/qventory-backend/internal/metrics"
	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

// ListingAdapter is the uniform capability surface over one listing: fetch
// its current state, withdraw it, apply pending edits, and publish it again.
// Implementations are cheap per-call objects bound to a user and rule.
type ListingAdapter interface {
	Fetch(ctx context.Context, ref domain.ListingRef) (*domain.ListingSnapshot, error)
	Withdraw(ctx context.Context, ref domain.ListingRef) error
	Update(ctx context.Context, ref domain.ListingRef, cs *domain.ChangeSet) error
	Publish(ctx context.Context, ref domain.ListingRef) (string, error)
}

// TokenProvider yields a usable bearer token for one user's marketplace
// account, or ErrNoToken when the user has no linked credentials.
type TokenProvider interface {
	Token(ctx context.Context, userID string) (string, error)
}

// LocationSource resolves the seller's custom warehouse/location tag for an
// external item. The legacy protocol drops the tag on relist, so it has to
// be re-injected from our own inventory records.
type LocationSource interface {
	FindLocationTag(ctx context.Context, userID, externalItemID string) (string, error)
}

// apiClient carries the plumbing shared by both protocol adapters: token
// acquisition, the HTTP client, and the cross-adapter rate limiter.
type apiClient struct {
	tokens  TokenProvider
	http    *http.Client
	limiter *RateLimiter
}

func newAPIClient(tokens TokenProvider, hc *http.Client, rl *RateLimiter) *apiClient {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &apiClient{tokens: tokens, http: hc, limiter: rl}
}

// acquire waits for rate-limit headroom and returns a bearer token.
func (c *apiClient) acquire(ctx context.Context, userID string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
		metrics.EbayDailyUsage.Set(float64(c.limiter.DailyCount()))
	}
	metrics.EbayAPICallsTotal.Inc()
	return c.tokens.Token(ctx, userID)
}
