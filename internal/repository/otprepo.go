package repository

import (
	"context"
	"time"

	"github.com/and161185/cms-auth/internal/model"
	"github.com/gofrs/uuid/v5"
)

// OTPRepository stores at most one outstanding one-time code per user.
type OTPRepository interface {
	// GetByUserID loads the outstanding code of a user.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.OTP, error)
	// Upsert stores code for userID, replacing any previous one.
	Upsert(ctx context.Context, userID uuid.UUID, code string) (*model.OTP, error)
	// Delete removes a record by ID.
	Delete(ctx context.Context, id uuid.UUID) error
	// PurgeOlderThan removes records created before t.
	PurgeOlderThan(ctx context.Context, t time.Time) (int64, error)
}
