package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// TokenStore handles OAuth token storage in SQLite
type TokenStore struct {
	db *sql.DB
}

// NewTokenStore creates a new token store
func NewTokenStore(db *DB) *TokenStore {
	return &TokenStore{db: db.Conn()}
}

// SaveToken stores the token, replacing any previous one
func (s *TokenStore) SaveToken(ctx context.Context, token *oauth2.Token) error {
	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO oauth_tokens (id, token_data) VALUES (1, ?)
ON CONFLICT(id) DO UPDATE SET token_data = excluded.token_data, updated_at = CURRENT_TIMESTAMP`, tokenJSON)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// GetToken retrieves the saved OAuth token, or nil when there is none
func (s *TokenStore) GetToken(ctx context.Context) (*oauth2.Token, error) {
	var tokenJSON []byte
	err := s.db.QueryRowContext(ctx, `SELECT token_data FROM oauth_tokens WHERE id = 1`).Scan(&tokenJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return &token, nil
}

// ClearToken removes the saved OAuth token
func (s *TokenStore) ClearToken(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM oauth_tokens WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}
