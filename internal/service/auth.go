// Package service contains the authentication orchestrator.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/and161185/cms-auth/internal/crypto"
	"github.com/and161185/cms-auth/internal/errs"
	"github.com/and161185/cms-auth/internal/limiter"
	"github.com/and161185/cms-auth/internal/model"
	"github.com/and161185/cms-auth/internal/repository"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// BlacklistTTL is the minimum time a revoked token stays on the blacklist.
// Tokens that live longer are kept until their own expiry.
const BlacklistTTL = 7 * 24 * time.Hour

// clockSkew matches the leeway the token manager allows past exp.
const clockSkew = 30 * time.Second

const usernameAttempts = 5

// Client-facing messages of authorization errors.
const (
	msgInvalidCredentials = "invalid credentials"
	msgCheckEmail         = "check email"
	msgBanned             = "account banned"
	msgExternalLogin      = "use external login"
	msgAlreadyRegistered  = "already registered"
	msgUsernameTaken      = "username taken"
	msgInvalidCode        = "invalid code"
	msgVerification       = "verification error"
	msgAlreadyVerified    = "already verified"
	msgRevoked            = "token revoked"
	msgTooManyAttempts    = "too many attempts"
	msgTooManyEmails      = "too many emails"
)

// AuthService defines the account lifecycle: registration with email
// verification, login, session checks, logout and password reset.
type AuthService interface {
	// Register creates or refreshes a pending account and mails a code. Returns the verification token.
	Register(ctx context.Context, in RegisterInput) (string, error)
	// VerifyRegistration marks the account verified if code matches.
	VerifyRegistration(ctx context.Context, token, code string) (model.UserProfile, error)
	// Login authenticates with email and password; ip feeds the rate limiter.
	Login(ctx context.Context, email, password, ip string) (model.LoginResult, error)
	// VerifyAccessToken resolves a session token to its user.
	VerifyAccessToken(ctx context.Context, token string) (model.UserProfile, error)
	// Logout revokes token.
	Logout(ctx context.Context, token string) error
	// ForgotPassword mails a reset code. Returns the forgot-password token.
	ForgotPassword(ctx context.Context, email string) (string, error)
	// VerifyForgotPassword exchanges token and code for a reset token.
	VerifyForgotPassword(ctx context.Context, token, code string) (string, error)
	// ResetPassword sets a new password using a reset token.
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// RegisterInput carries the sign-up form. Username is optional.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Username  string
}

// Notifier delivers the emails of the auth flow. Reserve takes a slot of the
// per-recipient code budget and is called before a new code replaces the old one.
type Notifier interface {
	Reserve(ctx context.Context, email string) error
	SendVerificationCode(ctx context.Context, email, token, code string) error
	SendForgotPasswordCode(ctx context.Context, email, token, code string) error
	SendVerificationSuccess(ctx context.Context, email string) error
	SendPasswordResetSuccess(ctx context.Context, email string) error
}

// TokenManager signs and verifies tokens.
type TokenManager interface {
	Sign(p model.TokenPayload) (string, error)
	Verify(token string) (model.TokenPayload, error)
}

// Deps are the collaborators of AuthServiceImpl. Limiter may be nil.
type Deps struct {
	Users     repository.UserRepository
	OTPs      repository.OTPRepository
	Blacklist repository.BlacklistRepository
	Tokens    TokenManager
	Notifier  Notifier
	Limiter   limiter.Limiter
	Log       *zap.Logger
}

// Options tunes AuthServiceImpl.
type Options struct {
	// OTPTTL rejects codes older than this; 0 means codes never expire.
	OTPTTL time.Duration
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	otps      repository.OTPRepository
	blacklist repository.BlacklistRepository
	tokens    TokenManager
	notify    Notifier
	lim       limiter.Limiter
	log       *zap.Logger
	otpTTL    time.Duration
	now       func() time.Time
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(d Deps, opt Options) *AuthServiceImpl {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthServiceImpl{
		users:     d.Users,
		otps:      d.OTPs,
		blacklist: d.Blacklist,
		tokens:    d.Tokens,
		notify:    d.Notifier,
		lim:       d.Limiter,
		log:       log,
		otpTTL:    opt.OTPTTL,
		now:       time.Now,
	}
}

// Register handles a sign-up. An unverified account with the same email is
// overwritten in place; a verified one is rejected.
func (s *AuthServiceImpl) Register(ctx context.Context, in RegisterInput) (string, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateRegister(in); err != nil {
		return "", err
	}
	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return "", s.storeErr("hash password", err)
	}

	u, err := s.users.GetByIdentity(ctx, in.Email)
	switch {
	case err == nil:
		if u.IsVerified {
			return "", errs.Authorization(msgAlreadyRegistered)
		}
		return s.reRegister(ctx, u, in, hash)
	case errors.Is(err, errs.ErrNotFound):
		return s.createUser(ctx, in, hash)
	default:
		return "", s.storeErr("load user", err)
	}
}

func (s *AuthServiceImpl) reRegister(ctx context.Context, u *model.User, in RegisterInput, hash string) (string, error) {
	patch := model.UserPatch{FirstName: &in.FirstName, LastName: &in.LastName, PwdHash: &hash}
	if in.Username != "" && in.Username != u.Username {
		if err := s.usernameFree(ctx, in.Username); err != nil {
			return "", err
		}
		patch.Username = &in.Username
	}
	u, err := s.users.Update(ctx, u.ID, patch)
	if err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return "", errs.Authorization(msgUsernameTaken)
		}
		return "", s.storeErr("update user", err)
	}
	return s.challenge(ctx, u, model.TokenVerify, s.notify.SendVerificationCode)
}

func (s *AuthServiceImpl) createUser(ctx context.Context, in RegisterInput, hash string) (string, error) {
	username, err := s.pickUsername(ctx, in.Username, in.FirstName)
	if err != nil {
		return "", err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return "", s.storeErr("user id", err)
	}
	u := &model.User{
		ID:        id,
		Email:     in.Email,
		Username:  username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		PwdHash:   &hash,
		Role:      model.RoleReader,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// a concurrent sign-up won the unique email
		if errors.Is(err, errs.ErrAlreadyExists) {
			return "", errs.Authorization(msgAlreadyRegistered)
		}
		return "", s.storeErr("create user", err)
	}
	return s.challenge(ctx, u, model.TokenRegisterUser, s.notify.SendVerificationCode)
}

func (s *AuthServiceImpl) pickUsername(ctx context.Context, explicit, firstName string) (string, error) {
	if explicit != "" {
		if err := s.usernameFree(ctx, explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}
	base := usernameBase(firstName)
	for i := 0; i < usernameAttempts; i++ {
		digits, err := crypto.RandDigits(4)
		if err != nil {
			return "", s.storeErr("username", err)
		}
		name := base + digits
		taken, err := s.users.UsernameExists(ctx, name)
		if err != nil {
			return "", s.storeErr("check username", err)
		}
		if !taken {
			return name, nil
		}
	}
	return "", errs.Authorization(msgUsernameTaken)
}

func (s *AuthServiceImpl) usernameFree(ctx context.Context, name string) error {
	taken, err := s.users.UsernameExists(ctx, name)
	if err != nil {
		return s.storeErr("check username", err)
	}
	if taken {
		return errs.Authorization(msgUsernameTaken)
	}
	return nil
}

// VerifyRegistration consumes the OTP of the token's user and marks the account verified.
func (s *AuthServiceImpl) VerifyRegistration(ctx context.Context, token, code string) (model.UserProfile, error) {
	if err := validateCode(code); err != nil {
		return model.UserProfile{}, err
	}
	p, err := s.verify(token, model.TokenVerify, model.TokenRegisterUser)
	if err != nil {
		return model.UserProfile{}, err
	}
	u, err := s.loadUser(ctx, p.UserID)
	if err != nil {
		return model.UserProfile{}, err
	}
	if u.IsVerified {
		return model.UserProfile{}, errs.Authorization(msgAlreadyVerified)
	}
	if err := s.consumeOTP(ctx, u.ID, code); err != nil {
		return model.UserProfile{}, err
	}

	verified := true
	u, err = s.users.Update(ctx, u.ID, model.UserPatch{IsVerified: &verified})
	if err != nil {
		return model.UserProfile{}, s.storeErr("verify user", err)
	}
	if err := s.notify.SendVerificationSuccess(ctx, u.Email); err != nil {
		return model.UserProfile{}, errs.Communication("send welcome email", err)
	}
	s.log.Info("user verified", zap.String("user_id", u.ID.String()))
	return u.Profile(), nil
}

// Login authenticates with email and password.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password, ip string) (model.LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return model.LoginResult{}, errs.Authorization(msgInvalidCredentials)
	}

	var ipHash []byte
	if s.lim != nil {
		ipHash = limiter.HashIP(ip)
		allowed, _, err := s.lim.Allow(ctx, email, ipHash)
		if err != nil {
			return model.LoginResult{}, s.storeErr("limiter", err)
		}
		if !allowed {
			return model.LoginResult{}, errs.RateLimited(msgTooManyAttempts)
		}
	}

	u, err := s.users.GetByIdentity(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.LoginResult{}, s.loginFailed(ctx, email, ipHash)
		}
		return model.LoginResult{}, s.storeErr("load user", err)
	}
	if err := gate(u); err != nil {
		return model.LoginResult{}, err
	}
	if !crypto.VerifyPassword(password, *u.PwdHash) {
		return model.LoginResult{}, s.loginFailed(ctx, email, ipHash)
	}

	if s.lim != nil {
		if err := s.lim.Success(ctx, email, ipHash); err != nil {
			s.log.Warn("limiter reset failed", zap.Error(err))
		}
	}

	tok, err := s.sign(u, model.TokenLogin)
	if err != nil {
		return model.LoginResult{}, err
	}
	return model.LoginResult{Token: tok, Profile: u.Profile()}, nil
}

// loginFailed records a failed attempt and returns the error to report.
func (s *AuthServiceImpl) loginFailed(ctx context.Context, email string, ipHash []byte) error {
	if s.lim != nil {
		blocked, _, err := s.lim.Failure(ctx, email, ipHash)
		if err != nil {
			s.log.Warn("limiter failure record failed", zap.Error(err))
		} else if blocked {
			return errs.RateLimited(msgTooManyAttempts)
		}
	}
	return errs.Authorization(msgInvalidCredentials)
}

// gate rejects accounts that may not use password authentication.
func gate(u *model.User) error {
	switch {
	case !u.IsVerified:
		return errs.Authorization(msgCheckEmail)
	case u.OnBanned:
		return errs.Authorization(msgBanned)
	case !u.HasPassword():
		return errs.Authorization(msgExternalLogin)
	}
	return nil
}

// resetGate is gate without the ban check: a banned user may still change
// the password, Login keeps refusing them.
func resetGate(u *model.User) error {
	switch {
	case !u.IsVerified:
		return errs.Authorization(msgCheckEmail)
	case !u.HasPassword():
		return errs.Authorization(msgExternalLogin)
	}
	return nil
}

// VerifyAccessToken checks a session token against the blacklist, its signature
// and the current account state.
func (s *AuthServiceImpl) VerifyAccessToken(ctx context.Context, token string) (model.UserProfile, error) {
	if err := s.notRevoked(ctx, token); err != nil {
		return model.UserProfile{}, err
	}
	p, err := s.verify(token, model.TokenLogin)
	if err != nil {
		return model.UserProfile{}, err
	}
	u, err := s.loadUser(ctx, p.UserID)
	if err != nil {
		return model.UserProfile{}, err
	}
	if !u.IsVerified {
		return model.UserProfile{}, errs.Authorization(msgCheckEmail)
	}
	if u.OnBanned {
		return model.UserProfile{}, errs.Authorization(msgBanned)
	}
	return u.Profile(), nil
}

// Logout blacklists a structurally valid token. Logging out twice succeeds.
func (s *AuthServiceImpl) Logout(ctx context.Context, token string) error {
	p, err := s.verify(token)
	if err != nil {
		return err
	}
	if _, err := s.blacklist.Add(ctx, token, s.revokeUntil(p)); err != nil {
		return s.storeErr("blacklist token", err)
	}
	return nil
}

// revokeUntil is how long a blacklist entry for p must live: at least
// BlacklistTTL and never shorter than the token itself.
func (s *AuthServiceImpl) revokeUntil(p model.TokenPayload) time.Time {
	until := s.now().Add(BlacklistTTL)
	if exp := p.ExpiresAt.Add(clockSkew); exp.After(until) {
		return exp
	}
	return until
}

// ForgotPassword mails a reset code to a verified password account.
func (s *AuthServiceImpl) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return "", err
	}
	u, err := s.users.GetByIdentity(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "", errs.Authorization(msgInvalidCredentials)
		}
		return "", s.storeErr("load user", err)
	}
	if err := resetGate(u); err != nil {
		return "", err
	}
	return s.challenge(ctx, u, model.TokenForgotPassword, s.notify.SendForgotPasswordCode)
}

// VerifyForgotPassword consumes the reset code and issues the token that
// authorizes the password write.
func (s *AuthServiceImpl) VerifyForgotPassword(ctx context.Context, token, code string) (string, error) {
	if err := validateCode(code); err != nil {
		return "", err
	}
	p, err := s.verify(token, model.TokenForgotPassword)
	if err != nil {
		return "", err
	}
	u, err := s.loadUser(ctx, p.UserID)
	if err != nil {
		return "", err
	}
	if err := s.consumeOTP(ctx, u.ID, code); err != nil {
		return "", err
	}
	return s.sign(u, model.TokenVerifyForgotPassword)
}

// ResetPassword stores a new password. The reset token is single use: it is
// claimed on the blacklist before the write, so a failed write burns it.
func (s *AuthServiceImpl) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if err := s.notRevoked(ctx, token); err != nil {
		return err
	}
	p, err := s.verify(token, model.TokenVerifyForgotPassword)
	if err != nil {
		return err
	}
	u, err := s.loadUser(ctx, p.UserID)
	if err != nil {
		return err
	}
	if err := resetGate(u); err != nil {
		return err
	}

	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return s.storeErr("hash password", err)
	}
	claimed, err := s.blacklist.Add(ctx, token, s.revokeUntil(p))
	if err != nil {
		return s.storeErr("blacklist token", err)
	}
	if !claimed {
		return errs.Authorization(msgRevoked)
	}
	if _, err := s.users.Update(ctx, u.ID, model.UserPatch{PwdHash: &hash}); err != nil {
		return s.storeErr("update password", err)
	}
	if err := s.notify.SendPasswordResetSuccess(ctx, u.Email); err != nil {
		return errs.Communication("send reset confirmation", err)
	}
	s.log.Info("password reset", zap.String("user_id", u.ID.String()))
	return nil
}

// challenge stores a fresh OTP for u, signs a token of type typ and mails both.
// A throttled recipient keeps the code already mailed.
func (s *AuthServiceImpl) challenge(ctx context.Context, u *model.User, typ model.TokenType,
	send func(ctx context.Context, email, token, code string) error) (string, error) {
	if err := s.notify.Reserve(ctx, u.Email); err != nil {
		s.log.Info("code email throttled", zap.String("user_id", u.ID.String()), zap.Error(err))
		return "", errs.RateLimited(msgTooManyEmails)
	}
	code, err := crypto.GenerateOTP()
	if err != nil {
		return "", s.storeErr("generate code", err)
	}
	if _, err := s.otps.Upsert(ctx, u.ID, code); err != nil {
		return "", s.storeErr("store code", err)
	}
	tok, err := s.sign(u, typ)
	if err != nil {
		return "", err
	}
	if err := send(ctx, u.Email, tok, code); err != nil {
		return "", errs.Communication("send code email", err)
	}
	return tok, nil
}

// consumeOTP deletes the code of userID if it matches. A missing, wrong or
// stale code leaves the stored one untouched.
func (s *AuthServiceImpl) consumeOTP(ctx context.Context, userID uuid.UUID, code string) error {
	otp, err := s.otps.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.Authorization(msgInvalidCode)
		}
		return s.storeErr("load code", err)
	}
	if otp.UserID != userID || !crypto.EqualCode(otp.Code, code) {
		return errs.Authorization(msgInvalidCode)
	}
	if s.otpTTL > 0 && s.now().Sub(otp.CreatedAt) > s.otpTTL {
		return errs.Authorization(msgInvalidCode)
	}
	if err := s.otps.Delete(ctx, otp.ID); err != nil {
		// consumed by a concurrent request
		if errors.Is(err, errs.ErrNotFound) {
			return errs.Authorization(msgInvalidCode)
		}
		return s.storeErr("delete code", err)
	}
	return nil
}

// verify checks token and, when types are given, that its type is one of them.
func (s *AuthServiceImpl) verify(token string, types ...model.TokenType) (model.TokenPayload, error) {
	if token == "" {
		return model.TokenPayload{}, errs.Authorization(msgVerification)
	}
	p, err := s.tokens.Verify(token)
	if err != nil {
		s.log.Debug("token rejected", zap.Error(err))
		return model.TokenPayload{}, errs.Authorization(msgVerification)
	}
	if len(types) == 0 {
		return p, nil
	}
	for _, t := range types {
		if p.Type == t {
			return p, nil
		}
	}
	return model.TokenPayload{}, errs.Authorization(msgVerification)
}

func (s *AuthServiceImpl) notRevoked(ctx context.Context, token string) error {
	revoked, err := s.blacklist.IsBlacklisted(ctx, token)
	if err != nil {
		return s.storeErr("check blacklist", err)
	}
	if revoked {
		return errs.Authorization(msgRevoked)
	}
	return nil
}

// loadUser fetches the subject of a verified token. A missing user is an
// authorization failure.
func (s *AuthServiceImpl) loadUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.Authorization(msgVerification)
		}
		return nil, s.storeErr("load user", err)
	}
	return u, nil
}

func (s *AuthServiceImpl) sign(u *model.User, typ model.TokenType) (string, error) {
	tok, err := s.tokens.Sign(model.TokenPayload{UserID: u.ID, Role: u.Role, Type: typ})
	if err != nil {
		s.log.Error("sign token", zap.Error(err))
		var e *errs.Error
		if errors.As(err, &e) {
			return "", err
		}
		return "", errs.Signing("sign token", err)
	}
	return tok, nil
}

// storeErr classifies an unexpected failure and logs it.
func (s *AuthServiceImpl) storeErr(op string, err error) error {
	s.log.Error(op, zap.Error(err))
	return errs.Store(op, err)
}
