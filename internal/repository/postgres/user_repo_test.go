package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/and161185/cms-auth/internal/errs"
	"github.com/and161185/cms-auth/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"id", "email", "username", "first_name", "last_name", "avatar", "phone",
	"pwd_hash", "is_verified", "on_banned", "role", "created_at", "updated_at"}

func userRow(id uuid.UUID, email, username string, pwd *string, verified bool) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(userCols).
		AddRow(id, email, username, "Alice", "Liddell", "", "", pwd, verified, false, "READER", now, now)
}

func TestUserRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	h := "$argon2id$..."
	u := &model.User{
		ID:        uuid.Must(uuid.NewV4()),
		Email:     "alice@x.io",
		Username:  "alice1234",
		FirstName: "Alice",
		LastName:  "Liddell",
		PwdHash:   &h,
		Role:      model.RoleReader,
	}
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO users \(id, email, username, first_name, last_name, avatar, phone, pwd_hash, is_verified, role\)`).
		WithArgs(u.ID, u.Email, u.Username, u.FirstName, u.LastName, u.Avatar, u.Phone, u.PwdHash, false, "READER").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	require.NoError(t, r.Create(ctx, u))
	require.Equal(t, now, u.CreatedAt)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(u.ID, u.Email, u.Username, u.FirstName, u.LastName, u.Avatar, u.Phone, u.PwdHash, false, "READER").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	err := r.Create(ctx, u)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	h := "hash"

	mock.ExpectQuery(`SELECT id, email, username, .* FROM users WHERE id=\$1`).
		WithArgs(id).
		WillReturnRows(userRow(id, "alice@x.io", "alice1234", &h, true))
	u, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, u.ID)
	require.Equal(t, model.RoleReader, u.Role)
	require.True(t, u.HasPassword())
	require.True(t, u.IsVerified)

	mock.ExpectQuery(`FROM users WHERE id=\$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByID(ctx, id)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_GetByIdentity(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`FROM users WHERE id::text=\$1 OR email=\$1 OR username=\$1`).
		WithArgs("alice@x.io").
		WillReturnRows(userRow(id, "alice@x.io", "alice1234", (*string)(nil), false))
	u, err := r.GetByIdentity(ctx, "alice@x.io")
	require.NoError(t, err)
	require.Equal(t, "alice1234", u.Username)
	require.False(t, u.HasPassword())

	mock.ExpectQuery(`FROM users WHERE id::text=\$1`).
		WithArgs("nobody").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByIdentity(ctx, "nobody")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_Update(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	verified := true
	first := "Alicia"

	mock.ExpectQuery(`UPDATE users SET first_name=\$2, is_verified=\$3, updated_at=now\(\) WHERE id=\$1 RETURNING`).
		WithArgs(id, first, verified).
		WillReturnRows(userRow(id, "alice@x.io", "alice1234", (*string)(nil), true))
	u, err := r.Update(ctx, id, model.UserPatch{FirstName: &first, IsVerified: &verified})
	require.NoError(t, err)
	require.True(t, u.IsVerified)

	name := "taken"
	mock.ExpectQuery(`UPDATE users SET username=\$2, updated_at=now\(\)`).
		WithArgs(id, name).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	_, err = r.Update(ctx, id, model.UserPatch{Username: &name})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	mock.ExpectQuery(`UPDATE users SET`).
		WithArgs(id, name).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.Update(ctx, id, model.UserPatch{Username: &name})
	require.ErrorIs(t, err, errs.ErrNotFound)

	// empty patch reads the current row
	mock.ExpectQuery(`FROM users WHERE id=\$1`).
		WithArgs(id).
		WillReturnRows(userRow(id, "alice@x.io", "alice1234", (*string)(nil), true))
	_, err = r.Update(ctx, id, model.UserPatch{})
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_UsernameExists(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE username=\$1\)`).
		WithArgs("alice1234").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	ok, err := r.UsernameExists(ctx, "alice1234")
	require.NoError(t, err)
	require.True(t, ok)
}
