package ebay

import (
	"io"
	"log/slog"
	"net/http"

	domain "github.com/noakmilo/qventory-backend/pkg/types"
)

// AdapterFactory builds a per-call ListingAdapter for a rule, bound to the
// rule's user and SKU. Both adapter families share one token provider, HTTP
// client and rate limiter.
type AdapterFactory struct {
	api         *apiClient
	locations   LocationSource
	sellURL     string
	tradingURL  string
	marketplace string
	log         *slog.Logger
}

// FactoryOption configures the AdapterFactory.
type FactoryOption func(*AdapterFactory)

// WithSellURL overrides the Sell API base URL.
func WithSellURL(u string) FactoryOption {
	return func(f *AdapterFactory) {
		f.sellURL = u
	}
}

// WithTradingURL overrides the Trading API endpoint.
func WithTradingURL(u string) FactoryOption {
	return func(f *AdapterFactory) {
		f.tradingURL = u
	}
}

// WithMarketplace overrides the default marketplace id.
func WithMarketplace(m string) FactoryOption {
	return func(f *AdapterFactory) {
		f.marketplace = m
	}
}

// WithHTTPClient overrides the HTTP client shared by both adapters.
func WithHTTPClient(c *http.Client) FactoryOption {
	return func(f *AdapterFactory) {
		f.api.http = c
	}
}

// WithRateLimiter installs a rate limiter on every adapter call.
func WithRateLimiter(r *RateLimiter) FactoryOption {
	return func(f *AdapterFactory) {
		f.api.limiter = r
	}
}

// WithLogger sets the logger handed to adapters.
func WithLogger(l *slog.Logger) FactoryOption {
	return func(f *AdapterFactory) {
		f.log = l
	}
}

// NewAdapterFactory creates a factory over the given token provider and
// inventory location source.
func NewAdapterFactory(
	tokens TokenProvider,
	locations LocationSource,
	opts ...FactoryOption,
) *AdapterFactory {
	f := &AdapterFactory{
		api:         newAPIClient(tokens, nil, nil),
		locations:   locations,
		sellURL:     defaultSellURL,
		tradingURL:  defaultTradingURL,
		marketplace: defaultMarketplace,
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ForRule returns the adapter matching the rule's protocol family.
func (f *AdapterFactory) ForRule(rule *domain.RelistRule) ListingAdapter {
	switch rule.Listing.Protocol {
	case domain.ProtocolTrading:
		return &TradingAdapter{
			api:       f.api,
			userID:    rule.UserID,
			endpoint:  f.tradingURL,
			locations: f.locations,
			log:       f.log,
		}
	default:
		return &OfferAdapter{
			api:         f.api,
			userID:      rule.UserID,
			sku:         rule.SKU,
			baseURL:     f.sellURL,
			marketplace: f.marketplace,
			log:         f.log,
		}
	}
}
