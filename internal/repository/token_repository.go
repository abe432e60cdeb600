package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/booksphere/internal/model"
)

// TokenRepo persists the single bearer token each user may hold.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// GetByUser returns the user's token row or ErrNotFound.
func (r *TokenRepo) GetByUser(ctx context.Context, userID uint64) (model.AuthToken, error) {
	var t model.AuthToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, token_id, token, created_at, expires_at FROM auth_tokens WHERE user_id=? LIMIT 1",
		userID).Scan(&t.UserID, &t.TokenID, &t.Token, &t.CreatedAt, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AuthToken{}, ErrNotFound
	}
	return t, err
}

// Insert stores a token for a user that has none.  If another token was
// stored concurrently the insert fails with ErrDuplicate.
func (r *TokenRepo) Insert(ctx context.Context, t model.AuthToken) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO auth_tokens (user_id, token_id, token, created_at, expires_at) VALUES (?,?,?,?,?)",
		t.UserID, t.TokenID, t.Token, t.CreatedAt, t.ExpiresAt)
	return mapConstraint(err)
}

// ReplaceExpired swaps an expired token for t.  It only touches the row
// when the stored token id still equals oldTokenID, so two concurrent
// logins cannot both rotate the same token; the loser gets ErrNotFound
// and should re-read.
func (r *TokenRepo) ReplaceExpired(ctx context.Context, oldTokenID string, t model.AuthToken) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE auth_tokens SET token_id=?, token=?, created_at=?, expires_at=? WHERE user_id=? AND token_id=?",
		t.TokenID, t.Token, t.CreatedAt, t.ExpiresAt, t.UserID, oldTokenID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByUser revokes the user's token.  Deleting a missing token is
// not an error.
func (r *TokenRepo) DeleteByUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM auth_tokens WHERE user_id=?", userID)
	return err
}
