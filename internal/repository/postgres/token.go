package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNoToken means the user never connected a Google account, or disconnected
// it. Campaign sends for that user fail until they reconnect.
var ErrNoToken = errors.New("no google token on file")

// GoogleToken is the stored OAuth link between a platform user and the Gmail
// account mail goes out through. Only the refresh token is persisted; access
// tokens are minted on demand and cached in memory.
type GoogleToken struct {
	UserID       string
	Email        string
	RefreshToken string
}

// TokenRepo stores Google OAuth refresh tokens.
type TokenRepo struct{ db *sql.DB }

// NewTokenRepo creates a Postgres-backed token repository.
func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

func (r *TokenRepo) Get(ctx context.Context, userID string) (*GoogleToken, error) {
	t := &GoogleToken{}
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, email, refresh_token FROM google_tokens WHERE user_id = $1
	`, userID).Scan(&t.UserID, &t.Email, &t.RefreshToken)
	if err == sql.ErrNoRows {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("get google token: %w", err)
	}
	return t, nil
}

// Save upserts the user's refresh token. Reconnecting replaces the old one.
func (r *TokenRepo) Save(ctx context.Context, t *GoogleToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO google_tokens (user_id, email, refresh_token, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET email = EXCLUDED.email, refresh_token = EXCLUDED.refresh_token, updated_at = NOW()
	`, t.UserID, t.Email, t.RefreshToken)
	if err != nil {
		return fmt.Errorf("save google token: %w", err)
	}
	return nil
}

func (r *TokenRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM google_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete google token: %w", err)
	}
	return nil
}
