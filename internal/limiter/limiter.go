// Package limiter throttles password login attempts per account and client address.
package limiter

import (
	"context"
	"time"
)

// Limiter controls login attempts and temporary lockouts. Keys are the login
// email and a hash of the client address.
type Limiter interface {
	// Allow reports whether login is currently allowed and optional retry-after.
	Allow(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error)
	// Success resets counters after a successful login.
	Success(ctx context.Context, email string, ipHash []byte) error
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error)
}
