package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/and161185/cms-auth/internal/errs"
	"github.com/and161185/cms-auth/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, username, first_name, last_name, avatar, phone, pwd_hash, is_verified, on_banned, role, created_at, updated_at`

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row and fills in server-side timestamps.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, email, username, first_name, last_name, avatar, phone, pwd_hash, is_verified, role)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at, updated_at`
	err := r.db.Pool.QueryRow(ctx, q,
		u.ID, u.Email, u.Username, u.FirstName, u.LastName, u.Avatar, u.Phone, u.PwdHash, u.IsVerified, string(u.Role),
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByIdentity selects a user by id, email or username.
func (r *UserRepo) GetByIdentity(ctx context.Context, key string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id::text=$1 OR email=$1 OR username=$1 LIMIT 1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, key))
}

// Update applies the non-nil fields of patch.
func (r *UserRepo) Update(ctx context.Context, id uuid.UUID, patch model.UserPatch) (*model.User, error) {
	if patch.Empty() {
		return r.GetByID(ctx, id)
	}

	args := []any{id}
	sets := make([]string, 0, 7)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if patch.Username != nil {
		set("username", *patch.Username)
	}
	if patch.FirstName != nil {
		set("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		set("last_name", *patch.LastName)
	}
	if patch.Avatar != nil {
		set("avatar", *patch.Avatar)
	}
	if patch.PwdHash != nil {
		set("pwd_hash", *patch.PwdHash)
	}
	if patch.IsVerified != nil {
		set("is_verified", *patch.IsVerified)
	}
	sets = append(sets, "updated_at=now()")

	q := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id=$1 RETURNING ` + userColumns
	u, err := scanUser(r.db.Pool.QueryRow(ctx, q, args...))
	if isUniqueViolation(err) {
		return nil, errs.ErrAlreadyExists
	}
	return u, err
}

// UsernameExists reports whether username is taken.
func (r *UserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM users WHERE username=$1)`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, username).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u    model.User
		pwd  *string
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.Avatar, &u.Phone,
		&pwd, &u.IsVerified, &u.OnBanned, &role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	u.PwdHash = pwd
	u.Role = model.Role(role)
	return &u, nil
}
