package ebay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultTokenURL = "https://api.ebay.com/identity/v1/oauth2/token" //nolint:gosec // not a credential
	refreshBuffer   = 60 * time.Second
)

// CredentialSource returns the stored OAuth refresh token for a user, or an
// empty string when the user never linked a marketplace account.
type CredentialSource interface {
	RefreshToken(ctx context.Context, userID string) (string, error)
}

// UserTokenProvider implements TokenProvider by exchanging each user's
// stored refresh token for a short-lived access token. Tokens are cached
// per user and refreshed automatically within 60 seconds of expiry.
// Thread-safe via mutex.
type UserTokenProvider struct {
	appID    string
	certID   string
	tokenURL string
	scopes   string
	client   *http.Client
	source   CredentialSource

	mu      sync.Mutex
	cache   map[string]cachedToken
	nowFunc func() time.Time // for testing
}

type cachedToken struct {
	token  string
	expiry time.Time
}

// AuthOption configures the UserTokenProvider.
type AuthOption func(*UserTokenProvider)

// WithTokenURL overrides the default eBay token endpoint.
func WithTokenURL(u string) AuthOption {
	return func(p *UserTokenProvider) {
		p.tokenURL = u
	}
}

// WithAuthHTTPClient overrides the default HTTP client.
func WithAuthHTTPClient(c *http.Client) AuthOption {
	return func(p *UserTokenProvider) {
		p.client = c
	}
}

// WithNowFunc overrides the time function for testing.
func WithNowFunc(f func() time.Time) AuthOption {
	return func(p *UserTokenProvider) {
		p.nowFunc = f
	}
}

// NewUserTokenProvider creates a token provider backed by the given
// credential source.
func NewUserTokenProvider(
	appID, certID string,
	source CredentialSource,
	opts ...AuthOption,
) *UserTokenProvider {
	p := &UserTokenProvider{
		appID:    appID,
		certID:   certID,
		tokenURL: defaultTokenURL,
		scopes:   "https://api.ebay.com/oauth/api_scope/sell.inventory",
		client:   &http.Client{Timeout: 10 * time.Second},
		source:   source,
		cache:    make(map[string]cachedToken),
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Token returns a valid access token for the user, refreshing if necessary.
// Returns ErrNoToken when the user has no stored refresh token.
func (p *UserTokenProvider) Token(ctx context.Context, userID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.cache[userID]; ok && p.nowFunc().Before(c.expiry.Add(-refreshBuffer)) {
		return c.token, nil
	}

	return p.refreshLocked(ctx, userID)
}

func (p *UserTokenProvider) refreshLocked(ctx context.Context, userID string) (string, error) {
	refresh, err := p.source.RefreshToken(ctx, userID)
	if errors.Is(err, ErrNoCredentials) {
		return "", fmt.Errorf("user %s: %w", userID, ErrNoToken)
	}
	if err != nil {
		return "", fmt.Errorf("loading refresh token: %w", err)
	}
	if refresh == "" {
		return "", fmt.Errorf("user %s: %w", userID, ErrNoToken)
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refresh},
		"scope":         {p.scopes},
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		p.tokenURL,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	creds := base64.StdEncoding.EncodeToString(
		[]byte(p.appID + ":" + p.certID),
	)
	req.Header.Set("Authorization", "Basic "+creds)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp tokenErrorResponse
		_ = json.Unmarshal(body, &errResp) //nolint:errcheck // best-effort error parsing
		if errResp.Error == "invalid_grant" {
			// Refresh token revoked or expired; the account must be relinked.
			return "", fmt.Errorf("user %s refresh token rejected: %w", userID, ErrNoToken)
		}
		return "", fmt.Errorf(
			"token request failed (status %d): %s - %s",
			resp.StatusCode,
			errResp.Error,
			errResp.ErrorDescription,
		)
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("parsing token response: %w", err)
	}

	p.cache[userID] = cachedToken{
		token:  tokenResp.AccessToken,
		expiry: p.nowFunc().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}

	return tokenResp.AccessToken, nil
}

// Invalidate drops the cached token for a user, forcing a refresh on the
// next call.
func (p *UserTokenProvider) Invalidate(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cache, userID)
}

var _ TokenProvider = (*UserTokenProvider)(nil)

// ErrNoCredentials is what credential sources return for users who never
// linked a marketplace account; treated the same as an empty refresh token.
var ErrNoCredentials = errors.New("no stored marketplace credentials")
