// Package token signs and verifies the HS256 tokens used for sessions and
// single-purpose account actions.
package token

import (
	"errors"
	"time"

	"github.com/and161185/cms-auth/internal/errs"
	"github.com/and161185/cms-auth/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultSessionTTL is the lifetime of login tokens.
	DefaultSessionTTL = 7 * 24 * time.Hour
	// DefaultActionTTL is the lifetime of every other token type.
	DefaultActionTTL = 24 * time.Hour

	kidSession = "session"
	kidAction  = "action"

	leeway = 30 * time.Second
)

var (
	errUnexpectedAlg = errors.New("unexpected signing method")
	errUnknownKey    = errors.New("unknown key id")
)

// Config holds signing keys and lifetimes. Zero TTLs take the defaults.
type Config struct {
	SessionKey []byte
	ActionKey  []byte // falls back to SessionKey
	SessionTTL time.Duration
	ActionTTL  time.Duration
	Issuer     string
}

// Manager issues and verifies tokens.
type Manager struct {
	sessionKey []byte
	actionKey  []byte
	sessionTTL time.Duration
	actionTTL  time.Duration
	issuer     string
	now        func() time.Time
}

type claims struct {
	UserID string          `json:"id"`
	Role   model.Role      `json:"role"`
	Type   model.TokenType `json:"type"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.SessionKey) == 0 {
		return nil, errs.Signing("empty signing key", nil)
	}
	m := &Manager{
		sessionKey: cfg.SessionKey,
		actionKey:  cfg.ActionKey,
		sessionTTL: cfg.SessionTTL,
		actionTTL:  cfg.ActionTTL,
		issuer:     cfg.Issuer,
		now:        time.Now,
	}
	if len(m.actionKey) == 0 {
		m.actionKey = m.sessionKey
	}
	if m.sessionTTL <= 0 {
		m.sessionTTL = DefaultSessionTTL
	}
	if m.actionTTL <= 0 {
		m.actionTTL = DefaultActionTTL
	}
	return m, nil
}

// TTL returns the lifetime of tokens of type t.
func (m *Manager) TTL(t model.TokenType) time.Duration {
	if t.LongLived() {
		return m.sessionTTL
	}
	return m.actionTTL
}

// Sign issues a token for p. Login tokens use the session key, all other
// types use the action key.
func (m *Manager) Sign(p model.TokenPayload) (string, error) {
	if !p.Type.Valid() {
		return "", errs.Signing("unknown token type "+string(p.Type), nil)
	}
	kid, key := kidAction, m.actionKey
	if p.Type.LongLived() {
		kid, key = kidSession, m.sessionKey
	}
	jti, err := uuid.NewV4()
	if err != nil {
		return "", errs.Signing("token id", err)
	}

	now := m.now()
	c := claims{
		UserID: p.UserID.String(),
		Role:   p.Role,
		Type:   p.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Subject:   p.UserID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.TTL(p.Type))),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	tok.Header["kid"] = kid
	signed, err := tok.SignedString(key)
	if err != nil {
		return "", errs.Signing("sign token", err)
	}
	return signed, nil
}

// Verify checks signature, expiry and key/type consistency and returns the
// payload. It does not consult the blacklist and accepts any token type.
func (m *Manager) Verify(token string) (model.TokenPayload, error) {
	var c claims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	var kid string
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errUnexpectedAlg
		}
		kid, _ = t.Header["kid"].(string)
		switch kid {
		case kidSession:
			return m.sessionKey, nil
		case kidAction:
			return m.actionKey, nil
		}
		return nil, errUnknownKey
	}, opts...)
	if err != nil || !parsed.Valid {
		return model.TokenPayload{}, errs.Token("invalid token", err)
	}

	if !c.Type.Valid() {
		return model.TokenPayload{}, errs.Token("unknown token type", nil)
	}
	if c.Type.LongLived() != (kid == kidSession) {
		return model.TokenPayload{}, errs.Token("token type does not match key", nil)
	}
	id, err := uuid.FromString(c.UserID)
	if err != nil || c.Subject != c.UserID {
		return model.TokenPayload{}, errs.Token("bad subject", err)
	}

	p := model.TokenPayload{UserID: id, Role: c.Role, Type: c.Type}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Time
	}
	return p, nil
}
