package service

import (
	"context"
	"sync"
	"time"

	"github.com/and161185/cms-auth/internal/errs"
	"github.com/and161185/cms-auth/internal/limiter"
	"github.com/and161185/cms-auth/internal/model"
	"github.com/and161185/cms-auth/internal/repository"
	"github.com/gofrs/uuid/v5"
)

/************ users ************/

type fakeUsers struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.User

	createErr error
	getErr    error
	updateErr error
	taken     map[string]bool // usernames reserved outside byID
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uuid.UUID]*model.User{}, taken: map[string]bool{}}
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, x := range f.byID {
		if x.Email == u.Email || x.Username == u.Username {
			return errs.ErrAlreadyExists
		}
	}
	cpy := *u
	cpy.CreatedAt, cpy.UpdatedAt = time.Now(), time.Now()
	f.byID[u.ID] = &cpy
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) GetByIdentity(_ context.Context, key string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if u.ID.String() == key || u.Email == key || u.Username == key {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) Update(_ context.Context, id uuid.UUID, p model.UserPatch) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.PwdHash != nil {
		h := *p.PwdHash
		u.PwdHash = &h
	}
	if p.IsVerified != nil {
		u.IsVerified = *p.IsVerified
	}
	u.UpdatedAt = time.Now()
	c := *u
	return &c, nil
}

func (f *fakeUsers) UsernameExists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.taken[name] {
		return true, nil
	}
	for _, u := range f.byID {
		if u.Username == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) put(u *model.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *u
	f.byID[u.ID] = &c
}

func (f *fakeUsers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

/************ otps ************/

type fakeOTPs struct {
	mu     sync.Mutex
	byUser map[uuid.UUID]*model.OTP

	upsertErr error
}

var _ repository.OTPRepository = (*fakeOTPs)(nil)

func newFakeOTPs() *fakeOTPs { return &fakeOTPs{byUser: map[uuid.UUID]*model.OTP{}} }

func (f *fakeOTPs) GetByUserID(_ context.Context, userID uuid.UUID) (*model.OTP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byUser[userID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *o
	return &c, nil
}

func (f *fakeOTPs) Upsert(_ context.Context, userID uuid.UUID, code string) (*model.OTP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	o, ok := f.byUser[userID]
	if !ok {
		o = &model.OTP{ID: uuid.Must(uuid.NewV4()), UserID: userID}
		f.byUser[userID] = o
	}
	o.Code = code
	o.CreatedAt = time.Now()
	c := *o
	return &c, nil
}

func (f *fakeOTPs) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for uid, o := range f.byUser {
		if o.ID == id {
			delete(f.byUser, uid)
			return nil
		}
	}
	return errs.ErrNotFound
}

func (f *fakeOTPs) PurgeOlderThan(_ context.Context, t time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for uid, o := range f.byUser {
		if o.CreatedAt.Before(t) {
			delete(f.byUser, uid)
			n++
		}
	}
	return n, nil
}

func (f *fakeOTPs) get(userID uuid.UUID) (model.OTP, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byUser[userID]
	if !ok {
		return model.OTP{}, false
	}
	return *o, true
}

/************ blacklist ************/

type fakeBlacklist struct {
	mu      sync.Mutex
	entries map[string]time.Time

	addErr   error
	checkErr error
}

var _ repository.BlacklistRepository = (*fakeBlacklist)(nil)

func newFakeBlacklist() *fakeBlacklist { return &fakeBlacklist{entries: map[string]time.Time{}} }

func (f *fakeBlacklist) IsBlacklisted(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkErr != nil {
		return false, f.checkErr
	}
	exp, ok := f.entries[token]
	return ok && exp.After(time.Now()), nil
}

func (f *fakeBlacklist) Add(_ context.Context, token string, expiresAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return false, f.addErr
	}
	if exp, ok := f.entries[token]; ok && exp.After(time.Now()) {
		return false, nil
	}
	f.entries[token] = expiresAt
	return true, nil
}

func (f *fakeBlacklist) expiry(token string) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[token]
}

func (f *fakeBlacklist) PurgeExpired(context.Context) (int64, error) { return 0, nil }

/************ notifier ************/

type mailKind string

const (
	mailVerify      mailKind = "verify"
	mailForgot      mailKind = "forgot"
	mailWelcome     mailKind = "welcome"
	mailResetNotice mailKind = "reset"
)

type mailRecord struct {
	kind  mailKind
	email string
	token string
	code  string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []mailRecord
	err  error

	reserveErr error
	reserved   int
}

var _ Notifier = (*fakeNotifier)(nil)

func (n *fakeNotifier) record(r mailRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, r)
	return nil
}

func (n *fakeNotifier) Reserve(context.Context, string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.reserveErr != nil {
		return n.reserveErr
	}
	n.reserved++
	return nil
}

func (n *fakeNotifier) SendVerificationCode(_ context.Context, email, token, code string) error {
	return n.record(mailRecord{mailVerify, email, token, code})
}
func (n *fakeNotifier) SendForgotPasswordCode(_ context.Context, email, token, code string) error {
	return n.record(mailRecord{mailForgot, email, token, code})
}
func (n *fakeNotifier) SendVerificationSuccess(_ context.Context, email string) error {
	return n.record(mailRecord{kind: mailWelcome, email: email})
}
func (n *fakeNotifier) SendPasswordResetSuccess(_ context.Context, email string) error {
	return n.record(mailRecord{kind: mailResetNotice, email: email})
}

func (n *fakeNotifier) last() mailRecord {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return mailRecord{}
	}
	return n.sent[len(n.sent)-1]
}

/************ limiter ************/

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}
