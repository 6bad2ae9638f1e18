package repository

import (
	"context"
	"time"
)

// BlacklistRepository stores revoked tokens until they can no longer be valid.
type BlacklistRepository interface {
	// IsBlacklisted reports whether token was revoked.
	IsBlacklisted(ctx context.Context, token string) (bool, error)
	// Add revokes token until expiresAt and reports whether this call created the
	// entry. Adding an already revoked token is a no-op that returns false.
	Add(ctx context.Context, token string, expiresAt time.Time) (bool, error)
	// PurgeExpired removes entries whose expiry has passed.
	PurgeExpired(ctx context.Context) (int64, error)
}
