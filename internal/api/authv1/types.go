// Package authv1 defines the wire contract of the cms.auth.v1.AuthService gRPC
// service. Messages are plain structs carried by a JSON codec.
package authv1

// User is the public profile of an account.
type User struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Avatar     string `json:"avatar,omitempty"`
	Phone      string `json:"phone,omitempty"`
	IsVerified bool   `json:"is_verified"`
	OnBanned   bool   `json:"on_banned"`
	Role       string `json:"role"`
}

type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Username  string `json:"username,omitempty"`
}

type RegisterResponse struct {
	Token string `json:"token"`
}

type VerifyRegistrationRequest struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

type VerifyRegistrationResponse struct {
	User User `json:"user"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// MeRequest is empty; the session token travels in the authorization metadata.
type MeRequest struct{}

type MeResponse struct {
	User User `json:"user"`
}

// LogoutRequest is empty; the token to revoke travels in the authorization metadata.
type LogoutRequest struct{}

type LogoutResponse struct{}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ForgotPasswordResponse struct {
	Token string `json:"token"`
}

type VerifyForgotPasswordRequest struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

type VerifyForgotPasswordResponse struct {
	Token string `json:"token"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type ResetPasswordResponse struct{}
