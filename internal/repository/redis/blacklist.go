// Package redis contains a Redis implementation of the token blacklist.
package redis

import (
	"context"
	"time"

	"github.com/and161185/cms-auth/internal/crypto"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "blacklist:"

// Connect opens a client for addr and checks it answers PING.
func Connect(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// BlacklistRepo implements BlacklistRepository on Redis keys with a TTL.
// Expiry is enforced by Redis itself.
type BlacklistRepo struct {
	rdb goredis.Cmdable
	log *zap.Logger
	now func() time.Time
}

// NewBlacklistRepo constructs a blacklist backed by rdb.
func NewBlacklistRepo(rdb goredis.Cmdable, log *zap.Logger) *BlacklistRepo {
	if log == nil {
		log = zap.NewNop()
	}
	return &BlacklistRepo{rdb: rdb, log: log, now: time.Now}
}

func key(token string) string { return keyPrefix + crypto.TokenDigest(token) }

// IsBlacklisted reports whether the token key exists.
func (r *BlacklistRepo) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	n, err := r.rdb.Exists(ctx, key(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Add sets the token key with NX so a duplicate keeps the original expiry.
// It reports whether the key was created.
func (r *BlacklistRepo) Add(ctx context.Context, token string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return false, nil
	}
	created, err := r.rdb.SetNX(ctx, key(token), 1, ttl).Result()
	if err != nil {
		return false, err
	}
	if !created {
		r.log.Debug("token already blacklisted")
	}
	return created, nil
}

// PurgeExpired is a no-op; keys expire on their own.
func (r *BlacklistRepo) PurgeExpired(context.Context) (int64, error) { return 0, nil }
