package token

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"github.com/calendariko/calendariko/internal/config"
	"github.com/calendariko/calendariko/internal/database"
	"github.com/calendariko/calendariko/internal/logging"
)

// ErrNoToken is returned when neither the store nor the configuration holds a token.
var ErrNoToken = errors.New("no token found")

// Store is the persistence the manager needs.
type Store interface {
	GetToken(ctx context.Context) (*oauth2.Token, error)
	SaveToken(ctx context.Context, token *oauth2.Token) error
}

var _ Store = (*database.TokenStore)(nil)

// TokenManager handles OAuth token storage and refreshing
type TokenManager struct {
	mu           sync.Mutex
	tokenStore   Store
	oauthConfig  *oauth2.Config
	refreshToken string
	logger       zerolog.Logger
}

// OAuthConfig builds the Google OAuth configuration for the calendar mirror.
func OAuthConfig(cfg config.GoogleConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{calendar.CalendarEventsScope},
	}
}

// NewTokenManager creates a new TokenManager. refreshToken seeds the store
// the first time a token is requested and nothing is saved yet.
func NewTokenManager(tokenStore Store, oauthConfig *oauth2.Config, refreshToken string) *TokenManager {
	return &TokenManager{
		tokenStore:   tokenStore,
		oauthConfig:  oauthConfig,
		refreshToken: refreshToken,
		logger:       logging.GetLogger("token-manager"),
	}
}

// GetValidToken retrieves a valid token, refreshing it if necessary
func (tm *TokenManager) GetValidToken(ctx context.Context) (*oauth2.Token, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	token, err := tm.tokenStore.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve token: %w", err)
	}

	if token == nil {
		if tm.refreshToken == "" {
			return nil, ErrNoToken
		}
		tm.logger.Info().Msg("Seeding token store from configured refresh token")
		token = &oauth2.Token{RefreshToken: tm.refreshToken}
	}

	if !token.Valid() {
		tm.logger.Debug().Msg("Refreshing expired access token")
		newToken, err := tm.oauthConfig.TokenSource(ctx, token).Token()
		if err != nil {
			return nil, fmt.Errorf("failed to refresh token: %w", err)
		}

		// Google omits the refresh token on refresh responses
		if newToken.RefreshToken == "" {
			newToken.RefreshToken = token.RefreshToken
		}

		if err := tm.tokenStore.SaveToken(ctx, newToken); err != nil {
			return nil, fmt.Errorf("failed to save refreshed token: %w", err)
		}

		token = newToken
	}

	return token, nil
}

// TokenSource adapts the manager to oauth2.TokenSource for ctx.
func (tm *TokenManager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &managedSource{ctx: ctx, tm: tm}
}

type managedSource struct {
	ctx context.Context
	tm  *TokenManager
}

func (s *managedSource) Token() (*oauth2.Token, error) {
	return s.tm.GetValidToken(s.ctx)
}
