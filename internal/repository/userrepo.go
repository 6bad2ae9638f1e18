// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/cms-auth/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository provides access to user accounts.
type UserRepository interface {
	// Create inserts a new user. Returns errs.ErrAlreadyExists on a unique violation.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByIdentity loads a user whose id, email or username equals key.
	GetByIdentity(ctx context.Context, key string) (*model.User, error)
	// Update applies patch and returns the updated user.
	Update(ctx context.Context, id uuid.UUID, patch model.UserPatch) (*model.User, error)
	// UsernameExists reports whether username is taken.
	UsernameExists(ctx context.Context, username string) (bool, error)
}
