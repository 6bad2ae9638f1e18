package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/and161185/cms-auth/internal/errs"
	"github.com/and161185/cms-auth/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// OTPRepo implements OTPRepository using PostgreSQL.
type OTPRepo struct{ db *DB }

// NewOTPRepo constructs an OTP repository.
func NewOTPRepo(db *DB) *OTPRepo { return &OTPRepo{db: db} }

// GetByUserID selects the outstanding code of a user.
func (r *OTPRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.OTP, error) {
	const q = `SELECT id, user_id, code, created_at FROM otps WHERE user_id=$1`
	return scanOTP(r.db.Pool.QueryRow(ctx, q, userID))
}

// Upsert stores code for userID; a concurrent second writer overwrites the first.
func (r *OTPRepo) Upsert(ctx context.Context, userID uuid.UUID, code string) (*model.OTP, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	const q = `
INSERT INTO otps (id, user_id, code) VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE SET code=EXCLUDED.code, created_at=now()
RETURNING id, user_id, code, created_at`
	return scanOTP(r.db.Pool.QueryRow(ctx, q, id, userID, code))
}

// Delete removes a record by ID.
func (r *OTPRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.db.Pool.Exec(ctx, `DELETE FROM otps WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// PurgeOlderThan removes codes created before t.
func (r *OTPRepo) PurgeOlderThan(ctx context.Context, t time.Time) (int64, error) {
	ct, err := r.db.Pool.Exec(ctx, `DELETE FROM otps WHERE created_at < $1`, t)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func scanOTP(row pgx.Row) (*model.OTP, error) {
	var o model.OTP
	if err := row.Scan(&o.ID, &o.UserID, &o.Code, &o.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}
