package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/and161185/cms-auth/internal/errs"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var otpCols = []string{"id", "user_id", "code", "created_at"}

func TestOTPRepo_Upsert(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewOTPRepo(db)
	ctx := context.Background()
	id, uid := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`INSERT INTO otps \(id, user_id, code\) VALUES \(\$1, \$2, \$3\) ON CONFLICT \(user_id\) DO UPDATE SET code=EXCLUDED.code`).
		WithArgs(pgxmock.AnyArg(), uid, "482913").
		WillReturnRows(pgxmock.NewRows(otpCols).AddRow(id, uid, "482913", time.Now()))
	o, err := r.Upsert(ctx, uid, "482913")
	require.NoError(t, err)
	require.Equal(t, id, o.ID)
	require.Equal(t, "482913", o.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPRepo_Get(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewOTPRepo(db)
	ctx := context.Background()
	id, uid := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`FROM otps WHERE user_id=\$1`).
		WithArgs(uid).
		WillReturnRows(pgxmock.NewRows(otpCols).AddRow(id, uid, "111111", time.Now()))
	o, err := r.GetByUserID(ctx, uid)
	require.NoError(t, err)
	require.Equal(t, uid, o.UserID)

	mock.ExpectQuery(`FROM otps WHERE user_id=\$1`).
		WithArgs(uid).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByUserID(ctx, uid)
	require.ErrorIs(t, err, errs.ErrNotFound)

	boom := errors.New("conn reset")
	mock.ExpectQuery(`FROM otps WHERE user_id=\$1`).
		WithArgs(uid).
		WillReturnError(boom)
	_, err = r.GetByUserID(ctx, uid)
	require.ErrorIs(t, err, boom)
}

func TestOTPRepo_DeleteAndPurge(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewOTPRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`DELETE FROM otps WHERE id=\$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, r.Delete(ctx, id))

	mock.ExpectExec(`DELETE FROM otps WHERE id=\$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, r.Delete(ctx, id), errs.ErrNotFound)

	cutoff := time.Now().Add(-time.Hour)
	mock.ExpectExec(`DELETE FROM otps WHERE created_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	n, err := r.PurgeOlderThan(ctx, cutoff)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
}
