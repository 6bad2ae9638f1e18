package mail

import (
	"context"
	"errors"
	"html/template"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrThrottled is returned by Reserve when too many codes go to one recipient.
var ErrThrottled = errors.New("mail: recipient throttled")

const (
	subjectVerification = "Verify your account"
	subjectWelcome      = "Welcome!"
	subjectForgot       = "Reset your password"
	subjectResetDone    = "Your password was changed"
)

// Options configures a Mailer.
type Options struct {
	BaseURL     string        // public site, links are built from it
	SendTimeout time.Duration // per message, 0 means 10s
	// PerRecipient limits Reserve calls for one address; zero disables throttling.
	PerRecipient rate.Limit
	Burst        int
}

// Mailer renders the auth emails and hands them to a Sender.
type Mailer struct {
	sender  Sender
	log     *zap.Logger
	base    string
	timeout time.Duration

	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	swept    time.Time
}

// NewMailer constructs a Mailer.
func NewMailer(sender Sender, log *zap.Logger, opt Options) *Mailer {
	if log == nil {
		log = zap.NewNop()
	}
	if opt.SendTimeout <= 0 {
		opt.SendTimeout = 10 * time.Second
	}
	if opt.Burst <= 0 {
		opt.Burst = 1
	}
	return &Mailer{
		sender:   sender,
		log:      log,
		base:     strings.TrimRight(opt.BaseURL, "/"),
		timeout:  opt.SendTimeout,
		limit:    opt.PerRecipient,
		burst:    opt.Burst,
		limiters: make(map[string]*rate.Limiter),
		swept:    time.Now(),
	}
}

// Reserve takes one slot of the recipient's budget. Callers reserve before
// producing a new code so a throttled request leaves the last one valid.
func (m *Mailer) Reserve(_ context.Context, email string) error {
	if !m.allow(email) {
		m.log.Warn("mail throttled", zap.String("to", email))
		return ErrThrottled
	}
	return nil
}

// SendVerificationCode mails the registration code and verify link.
func (m *Mailer) SendVerificationCode(ctx context.Context, email, token, code string) error {
	return m.send(ctx, email, subjectVerification, verificationTmpl,
		templateData{Code: code, Link: m.link("/verify", token)})
}

// SendForgotPasswordCode mails the reset code and reset link.
func (m *Mailer) SendForgotPasswordCode(ctx context.Context, email, token, code string) error {
	return m.send(ctx, email, subjectForgot, forgotPasswordTmpl,
		templateData{Code: code, Link: m.link("/reset-password/verify", token)})
}

// SendVerificationSuccess mails the welcome message.
func (m *Mailer) SendVerificationSuccess(ctx context.Context, email string) error {
	return m.send(ctx, email, subjectWelcome, welcomeTmpl, templateData{})
}

// SendPasswordResetSuccess mails the password change confirmation.
func (m *Mailer) SendPasswordResetSuccess(ctx context.Context, email string) error {
	return m.send(ctx, email, subjectResetDone, resetSuccessTmpl, templateData{})
}

func (m *Mailer) link(path, token string) string {
	return m.base + path + "?token=" + url.QueryEscape(token)
}

func (m *Mailer) send(ctx context.Context, to, subject string, t *template.Template, d templateData) error {
	html, err := render(t, d)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.sender.Send(ctx, to, subject, html); err != nil {
		m.log.Error("mail send failed", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		return err
	}
	return nil
}

func (m *Mailer) allow(to string) bool {
	if m.limit == 0 {
		return true
	}
	key := strings.ToLower(to)

	m.mu.Lock()
	defer m.mu.Unlock()

	// drop idle limiters every few minutes
	if time.Since(m.swept) > 5*time.Minute {
		for k, l := range m.limiters {
			if l.Tokens() >= float64(m.burst) {
				delete(m.limiters, k)
			}
		}
		m.swept = time.Now()
	}

	l, ok := m.limiters[key]
	if !ok {
		l = rate.NewLimiter(m.limit, m.burst)
		m.limiters[key] = l
	}
	return l.Allow()
}
