package postgres

import (
	"context"
	"time"

	"github.com/and161185/cms-auth/internal/crypto"
)

// BlacklistRepo implements BlacklistRepository using PostgreSQL.
// Tokens are stored as SHA-256 digests.
type BlacklistRepo struct{ db *DB }

// NewBlacklistRepo constructs a blacklist repository.
func NewBlacklistRepo(db *DB) *BlacklistRepo { return &BlacklistRepo{db: db} }

// IsBlacklisted reports whether an unexpired entry exists for token.
func (r *BlacklistRepo) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM token_blacklist WHERE token_hash=$1 AND expires_at > now())`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, crypto.TokenDigest(token)).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// Add revokes token until expiresAt and reports whether the entry is new.
// A live duplicate is left untouched; an expired, unpurged row is reclaimed.
func (r *BlacklistRepo) Add(ctx context.Context, token string, expiresAt time.Time) (bool, error) {
	const q = `
INSERT INTO token_blacklist (token_hash, expires_at) VALUES ($1, $2)
ON CONFLICT (token_hash) DO UPDATE SET expires_at=EXCLUDED.expires_at
WHERE token_blacklist.expires_at <= now()`
	ct, err := r.db.Pool.Exec(ctx, q, crypto.TokenDigest(token), expiresAt)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// PurgeExpired deletes entries past their expiry.
func (r *BlacklistRepo) PurgeExpired(ctx context.Context) (int64, error) {
	ct, err := r.db.Pool.Exec(ctx, `DELETE FROM token_blacklist WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
