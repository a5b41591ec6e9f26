package ebay_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noakmilo/qventory-backend/internal/ebay"
)

type fakeCredentials struct {
	tokens map[string]string
	err    error
}

func (f *fakeCredentials) RefreshToken(_ context.Context, userID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.tokens[userID], nil
}

func TestUserTokenProvider_Token(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostFormValue("grant_type"))
		assert.Equal(t, "refresh-abc", r.PostFormValue("refresh_token"))

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "app-id", user)
		assert.Equal(t, "cert-id", pass)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-xyz","expires_in":7200,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	source := &fakeCredentials{tokens: map[string]string{"user-1": "refresh-abc"}}
	provider := ebay.NewUserTokenProvider("app-id", "cert-id", source,
		ebay.WithTokenURL(srv.URL))

	token, err := provider.Token(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "access-xyz", token)

	// Second call is served from the cache.
	token, err = provider.Token(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "access-xyz", token)
	assert.Equal(t, int64(1), calls.Load())

	// Invalidate forces a fresh exchange.
	provider.Invalidate("user-1")
	_, err = provider.Token(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestUserTokenProvider_RefreshesNearExpiry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"access_token":"access-xyz","expires_in":120}`))
	}))
	defer srv.Close()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	source := &fakeCredentials{tokens: map[string]string{"user-1": "refresh-abc"}}
	provider := ebay.NewUserTokenProvider("app-id", "cert-id", source,
		ebay.WithTokenURL(srv.URL),
		ebay.WithNowFunc(func() time.Time { return now }))

	_, err := provider.Token(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), calls.Load())

	// Within the 60-second refresh buffer of a 120-second token: refresh.
	now = now.Add(90 * time.Second)
	_, err = provider.Token(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestUserTokenProvider_NoLinkedAccount(t *testing.T) {
	t.Parallel()

	provider := ebay.NewUserTokenProvider("app-id", "cert-id",
		&fakeCredentials{tokens: map[string]string{}})

	_, err := provider.Token(context.Background(), "user-1")
	require.ErrorIs(t, err, ebay.ErrNoToken)

	provider = ebay.NewUserTokenProvider("app-id", "cert-id",
		&fakeCredentials{err: ebay.ErrNoCredentials})

	_, err = provider.Token(context.Background(), "user-1")
	require.ErrorIs(t, err, ebay.ErrNoToken)
}

func TestUserTokenProvider_RevokedRefreshToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"token revoked"}`))
	}))
	defer srv.Close()

	source := &fakeCredentials{tokens: map[string]string{"user-1": "refresh-abc"}}
	provider := ebay.NewUserTokenProvider("app-id", "cert-id", source,
		ebay.WithTokenURL(srv.URL))

	_, err := provider.Token(context.Background(), "user-1")
	require.ErrorIs(t, err, ebay.ErrNoToken)
}

func TestUserTokenProvider_ExchangeFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"server_error","error_description":"try later"}`))
	}))
	defer srv.Close()

	source := &fakeCredentials{tokens: map[string]string{"user-1": "refresh-abc"}}
	provider := ebay.NewUserTokenProvider("app-id", "cert-id", source,
		ebay.WithTokenURL(srv.URL))

	_, err := provider.Token(context.Background(), "user-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ebay.ErrNoToken)
	assert.Contains(t, err.Error(), "status 500")
}
