package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/pavelanni/ielts-coach/internal/model"
)

// AccessTTL is how long a passcode login lasts without use. Every accepted
// request pushes the expiry forward again.
const AccessTTL = 7 * 24 * time.Hour

// ErrAccessDenied is returned for unknown and expired access tokens.
var ErrAccessDenied = errors.New("access token unknown or expired")

// GrantAccess records a new random access token for a visitor who entered
// the passcode.
func (s *Store) GrantAccess(ctx context.Context) (model.AccessToken, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return model.AccessToken{}, err
	}
	now := time.Now().UTC().Truncate(time.Second)
	tok := model.AccessToken{
		Token:     hex.EncodeToString(b),
		CreatedAt: now,
		ExpiresAt: now.Add(AccessTTL),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO access_tokens (token, created_at, expires_at) VALUES (?, ?, ?)`,
		tok.Token, tok.CreatedAt.Unix(), tok.ExpiresAt.Unix(),
	)
	if err != nil {
		return model.AccessToken{}, err
	}
	return tok, nil
}

// TouchAccess accepts a live token and slides its expiry to AccessTTL from
// now. Unknown and expired tokens return ErrAccessDenied.
func (s *Store) TouchAccess(ctx context.Context, token string) (model.AccessToken, error) {
	now := time.Now().UTC()
	var created, expires int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE access_tokens SET expires_at = ? WHERE token = ? AND expires_at > ?
		 RETURNING created_at, expires_at`,
		now.Add(AccessTTL).Unix(), token, now.Unix(),
	).Scan(&created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AccessToken{}, ErrAccessDenied
	}
	if err != nil {
		return model.AccessToken{}, err
	}
	return model.AccessToken{
		Token:     token,
		CreatedAt: time.Unix(created, 0).UTC(),
		ExpiresAt: time.Unix(expires, 0).UTC(),
	}, nil
}

// RevokeAccess forgets a token. Unknown tokens are not an error.
func (s *Store) RevokeAccess(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM access_tokens WHERE token = ?`, token)
	return err
}

// PruneAccess drops expired tokens and returns how many.
func (s *Store) PruneAccess(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM access_tokens WHERE expires_at <= ?`, time.Now().UTC().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
