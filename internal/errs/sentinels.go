// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Error kinds. Every error leaving the service layer matches exactly one of them
// via errors.Is.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email or username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrAuthorization indicates a credential or account-state violation.
	ErrAuthorization = errors.New("unauthorized")

	// ErrToken indicates a malformed, expired or badly signed token.
	ErrToken = errors.New("token error")

	// ErrSigning indicates the token signer is misconfigured or failed.
	ErrSigning = errors.New("signing error")

	// ErrCommunication indicates outbound email delivery failed.
	ErrCommunication = errors.New("communication error")

	// ErrStore indicates a persistence failure not otherwise classified.
	ErrStore = errors.New("store error")

	// ErrValidation indicates malformed caller input.
	ErrValidation = errors.New("validation error")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
)

// Error is a classified error with a caller-facing message.
type Error struct {
	Kind error  // one of the sentinels above
	Msg  string // safe to show to clients
	Err  error  // cause, kept for logs
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool { return target == e.Kind }

// Unwrap returns the cause.
func (e *Error) Unwrap() error { return e.Err }

// Authorization returns an authorization error with a client-facing message.
// The cause is deliberately not attached so not-found lookups cannot leak through errors.Is.
func Authorization(msg string) error {
	return &Error{Kind: ErrAuthorization, Msg: msg}
}

// Validation returns a validation error.
func Validation(msg string) error {
	return &Error{Kind: ErrValidation, Msg: msg}
}

// RateLimited returns a rate limit error.
func RateLimited(msg string) error {
	return &Error{Kind: ErrRateLimited, Msg: msg}
}

// Store wraps a persistence failure.
func Store(op string, err error) error {
	return &Error{Kind: ErrStore, Msg: op, Err: err}
}

// Communication wraps a mail delivery failure.
func Communication(op string, err error) error {
	return &Error{Kind: ErrCommunication, Msg: op, Err: err}
}

// Token wraps a token verification failure.
func Token(msg string, err error) error {
	return &Error{Kind: ErrToken, Msg: msg, Err: err}
}

// Signing wraps a token signing failure.
func Signing(msg string, err error) error {
	return &Error{Kind: ErrSigning, Msg: msg, Err: err}
}

// Message returns the client-facing message of a classified error, or fallback.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return fallback
}
