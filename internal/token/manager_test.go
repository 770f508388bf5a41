package token

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/calendariko/calendariko/internal/config"
)

type memoryStore struct {
	token *oauth2.Token
	saves int
}

func (m *memoryStore) GetToken(ctx context.Context) (*oauth2.Token, error) {
	return m.token, nil
}

func (m *memoryStore) SaveToken(ctx context.Context, token *oauth2.Token) error {
	m.token = token
	m.saves++
	return nil
}

func newTokenServer(t *testing.T, refreshes *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "seed-refresh", r.PostForm.Get("refresh_token"))
		*refreshes++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh-access","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testOAuthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
}

func TestGetValidToken_SeedsFromRefreshToken(t *testing.T) {
	refreshes := 0
	srv := newTokenServer(t, &refreshes)
	store := &memoryStore{}

	tm := NewTokenManager(store, testOAuthConfig(srv.URL), "seed-refresh")
	token, err := tm.GetValidToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "fresh-access", token.AccessToken)
	assert.Equal(t, "seed-refresh", token.RefreshToken, "refresh token is carried over")
	assert.Equal(t, 1, refreshes)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, "fresh-access", store.token.AccessToken)
}

func TestGetValidToken_ReusesValidToken(t *testing.T) {
	refreshes := 0
	srv := newTokenServer(t, &refreshes)
	store := &memoryStore{token: &oauth2.Token{
		AccessToken:  "stored",
		RefreshToken: "seed-refresh",
		Expiry:       time.Now().Add(time.Hour),
	}}

	tm := NewTokenManager(store, testOAuthConfig(srv.URL), "")
	token, err := tm.GetValidToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "stored", token.AccessToken)
	assert.Zero(t, refreshes)
	assert.Zero(t, store.saves)
}

func TestGetValidToken_RefreshesExpired(t *testing.T) {
	refreshes := 0
	srv := newTokenServer(t, &refreshes)
	store := &memoryStore{token: &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "seed-refresh",
		Expiry:       time.Now().Add(-time.Hour),
	}}

	tm := NewTokenManager(store, testOAuthConfig(srv.URL), "")
	token, err := tm.TokenSource(context.Background()).Token()
	require.NoError(t, err)

	assert.Equal(t, "fresh-access", token.AccessToken)
	assert.Equal(t, 1, refreshes)
	assert.Equal(t, 1, store.saves)
}

func TestGetValidToken_NoToken(t *testing.T) {
	tm := NewTokenManager(&memoryStore{}, testOAuthConfig("http://127.0.0.1:0"), "")
	_, err := tm.GetValidToken(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestGetValidToken_RefreshFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()
	store := &memoryStore{}

	tm := NewTokenManager(store, testOAuthConfig(srv.URL), "revoked")
	_, err := tm.GetValidToken(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to refresh token")
	assert.Zero(t, store.saves)
}

func TestOAuthConfig(t *testing.T) {
	cfg := OAuthConfig(config.GoogleConfig{ClientID: "id", ClientSecret: "secret"})
	assert.Equal(t, "id", cfg.ClientID)
	assert.Equal(t, "secret", cfg.ClientSecret)
	assert.Equal(t, "https://oauth2.googleapis.com/token", cfg.Endpoint.TokenURL)
	assert.Equal(t, []string{"https://www.googleapis.com/auth/calendar.events"}, cfg.Scopes)
}
