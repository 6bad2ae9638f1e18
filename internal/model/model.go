// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Role is the authorization role of a user.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleContributor Role = "CONTRIBUTOR"
	RoleReader      Role = "READER"
)

// TokenType discriminates the single purpose a signed token was issued for.
type TokenType string

const (
	TokenRegisterUser         TokenType = "register-user"
	TokenVerify               TokenType = "verify"
	TokenLogin                TokenType = "login"
	TokenForgotPassword       TokenType = "forgot-password"
	TokenVerifyForgotPassword TokenType = "verify-forgot-password"
)

// Valid reports whether t is a known token type.
func (t TokenType) Valid() bool {
	switch t {
	case TokenRegisterUser, TokenVerify, TokenLogin, TokenForgotPassword, TokenVerifyForgotPassword:
		return true
	}
	return false
}

// LongLived reports whether tokens of this type are session tokens.
func (t TokenType) LongLived() bool { return t == TokenLogin }

// User represents an account. PwdHash is nil for accounts created through an
// external identity provider.
type User struct {
	ID         uuid.UUID // PK
	Email      string    // unique
	Username   string    // unique
	FirstName  string
	LastName   string
	Avatar     string
	Phone      string
	PwdHash    *string // Argon2id PHC string
	IsVerified bool
	OnBanned   bool
	Role       Role
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasPassword reports whether the account can use password login.
func (u *User) HasPassword() bool { return u.PwdHash != nil && *u.PwdHash != "" }

// Profile returns the sanitized representation of u.
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:         u.ID,
		Email:      u.Email,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Avatar:     u.Avatar,
		Phone:      u.Phone,
		IsVerified: u.IsVerified,
		OnBanned:   u.OnBanned,
		Role:       u.Role,
	}
}

// UserProfile is a user without credential material.
type UserProfile struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Avatar     string    `json:"avatar"`
	Phone      string    `json:"phone,omitempty"`
	IsVerified bool      `json:"is_verified"`
	OnBanned   bool      `json:"on_banned"`
	Role       Role      `json:"role"`
}

// UserPatch lists the fields to change on update; nil fields are left untouched.
type UserPatch struct {
	Username   *string
	FirstName  *string
	LastName   *string
	Avatar     *string
	PwdHash    *string
	IsVerified *bool
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Username == nil && p.FirstName == nil && p.LastName == nil &&
		p.Avatar == nil && p.PwdHash == nil && p.IsVerified == nil
}

// OTP is the single outstanding one-time code of a user.
type OTP struct {
	ID        uuid.UUID
	UserID    uuid.UUID // unique
	Code      string    // 6 digits
	CreatedAt time.Time
}

// TokenPayload is the decoded content of a signed token.
type TokenPayload struct {
	UserID    uuid.UUID
	Role      Role
	Type      TokenType
	ExpiresAt time.Time // diagnostics only
}

// LoginResult is returned by a successful password login.
type LoginResult struct {
	Token   string
	Profile UserProfile
}
