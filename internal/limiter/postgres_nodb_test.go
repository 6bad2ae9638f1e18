package limiter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

/************ fake pgx ************/
type fakeRow struct{ scan func(dest ...any) error }

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakePool struct {
	qrErr         error
	qrBlockedTill *time.Time
	qrFailsRet    int

	lastExecSQL  string
	lastExecArgs []any
	execErr      error
	execTag      pgconn.CommandTag
}

func (f *fakePool) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.lastExecSQL = sql
	f.lastExecArgs = args
	return f.execTag, f.execErr
}

func (f *fakePool) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	switch {
	case strings.Contains(sql, "SELECT blocked_until"):
		return fakeRow{scan: func(dest ...any) error {
			if f.qrErr != nil {
				return f.qrErr
			}
			if f.qrBlockedTill != nil {
				*(dest[0].(*time.Time)) = *f.qrBlockedTill
			} else {
				*(dest[0].(*time.Time)) = time.Time{} // 'epoch'
			}
			return nil
		}}
	case strings.Contains(sql, "RETURNING fail_count"):
		return fakeRow{scan: func(dest ...any) error {
			if f.qrErr != nil {
				return f.qrErr
			}
			*(dest[0].(*int)) = f.qrFailsRet
			return nil
		}}
	default:
		return fakeRow{scan: func(...any) error { return errors.New("unexpected query") }}
	}
}

func newPG(fp *fakePool, now time.Time) *PG {
	l := NewPG(fp, 15*time.Minute, 5, 10*time.Minute)
	l.now = func() time.Time { return now }
	return l
}

func TestAllow_NoRow_Allows(t *testing.T) {
	l := newPG(&fakePool{qrErr: pgx.ErrNoRows}, time.Now())

	ok, dur, err := l.Allow(context.Background(), "alice@x.io", []byte("h"))
	if err != nil || !ok || dur != 0 {
		t.Fatalf("Allow no-row: ok=%v dur=%v err=%v", ok, dur, err)
	}
}

func TestAllow_BlockedUntilFuture(t *testing.T) {
	now := time.Now()
	fut := now.Add(10 * time.Minute)
	l := newPG(&fakePool{qrBlockedTill: &fut}, now)

	ok, dur, err := l.Allow(context.Background(), "alice@x.io", []byte("h"))
	if err != nil || ok || dur != 10*time.Minute {
		t.Fatalf("Allow blocked: ok=%v dur=%v err=%v", ok, dur, err)
	}
}

func TestAllow_PastOrEpoch_Allows(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	l := newPG(&fakePool{qrBlockedTill: &past}, now)

	ok, dur, err := l.Allow(context.Background(), "alice@x.io", []byte("h"))
	if err != nil || !ok || dur != 0 {
		t.Fatalf("Allow past: ok=%v dur=%v err=%v", ok, dur, err)
	}
}

func TestAllow_DBError_Propagates(t *testing.T) {
	l := newPG(&fakePool{qrErr: errors.New("db boom")}, time.Now())

	ok, _, err := l.Allow(context.Background(), "alice@x.io", []byte("h"))
	if err == nil || ok {
		t.Fatalf("want error propagate, got ok=%v err=%v", ok, err)
	}
}

func TestSuccess(t *testing.T) {
	fp := &fakePool{}
	l := newPG(fp, time.Now())

	if err := l.Success(context.Background(), "alice@x.io", []byte("h")); err != nil {
		t.Fatalf("success err: %v", err)
	}
	if !strings.Contains(fp.lastExecSQL, "INSERT INTO auth_limiter") {
		t.Fatalf("unexpected exec: %s", fp.lastExecSQL)
	}

	fp.execErr = errors.New("exec fail")
	if err := l.Success(context.Background(), "alice@x.io", []byte("h")); err == nil {
		t.Fatalf("want exec error")
	}
}

func TestFailure_Increments_NoBlock(t *testing.T) {
	l := newPG(&fakePool{qrFailsRet: 2}, time.Now())

	blocked, dur, err := l.Failure(context.Background(), "alice@x.io", []byte("h"))
	if err != nil || blocked || dur != 0 {
		t.Fatalf("Failure no block: blocked=%v dur=%v err=%v", blocked, dur, err)
	}
}

func TestFailure_BlocksAtThreshold(t *testing.T) {
	now := time.Now()
	fp := &fakePool{qrFailsRet: 5}
	l := newPG(fp, now)

	blocked, dur, err := l.Failure(context.Background(), "alice@x.io", []byte("h"))
	if err != nil || !blocked || dur != 10*time.Minute {
		t.Fatalf("Failure block: blocked=%v dur=%v err=%v", blocked, dur, err)
	}
	if !strings.Contains(fp.lastExecSQL, "UPDATE auth_limiter SET blocked_until") {
		t.Fatalf("must update blocked_until, exec=%s", fp.lastExecSQL)
	}
	if got := fp.lastExecArgs[2].(time.Time); !got.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("blocked_until=%v", got)
	}
}

func TestFailure_DBErrorOnReturning(t *testing.T) {
	l := newPG(&fakePool{qrErr: errors.New("query error")}, time.Now())

	if _, _, err := l.Failure(context.Background(), "alice@x.io", []byte("h")); err == nil {
		t.Fatalf("want error from returning fail_count")
	}
}

func TestPurge(t *testing.T) {
	now := time.Now()
	fp := &fakePool{execTag: pgconn.NewCommandTag("DELETE 4")}
	l := newPG(fp, now)

	n, err := l.Purge(context.Background())
	if err != nil || n != 4 {
		t.Fatalf("Purge: n=%d err=%v", n, err)
	}
	if got := fp.lastExecArgs[0].(time.Time); !got.Equal(now.Add(-15 * time.Minute)) {
		t.Fatalf("cutoff=%v", got)
	}
}

func TestHashIP(t *testing.T) {
	a := HashIP("1.2.3.4:123")
	b := HashIP("1.2.3.4:456")
	c := HashIP("5.6.7.8:321")
	if string(a) != string(b) {
		t.Fatalf("port must not affect hash")
	}
	if string(a) == string(c) || len(a) != 32 {
		t.Fatalf("hash mismatch/len: %d", len(a))
	}
	if string(HashIP("1.2.3.4")) != string(a) {
		t.Fatalf("bare host must hash like host:port")
	}
}
