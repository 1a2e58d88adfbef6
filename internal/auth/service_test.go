package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestService(t *testing.T, clock *fakeClock) *Service {
	t.Helper()
	svc, err := NewService("test-secret", 0, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestIssueAndVerify(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(t, clock)

	tok, exp, err := svc.Issue("acct-1", "a@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if want := clock.t.Add(DefaultTTL); !exp.Equal(want) {
		t.Fatalf("expected expiry %v got %v", want, exp)
	}

	id, err := svc.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.AccountID != "acct-1" || id.Email != "a@x.com" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestVerifyExpiryWindow(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: start}
	svc := newTestService(t, clock)

	tok, _, err := svc.IssueWithTTL("acct-1", "a@x.com", 24*time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.t = start.Add(23 * time.Hour)
	if _, err := svc.Verify(tok); err != nil {
		t.Fatalf("expected token valid at t+23h, got %v", err)
	}

	clock.t = start.Add(25 * time.Hour)
	if _, err := svc.Verify(tok); !errors.Is(err, ErrAuthFailure) {
		t.Fatalf("expected auth failure at t+25h, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	issuer := newTestService(t, clock)
	other, err := NewService("other-secret", time.Hour, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	tok, _, err := issuer.Issue("acct-1", "a@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := other.Verify(tok); !errors.Is(err, ErrAuthFailure) {
		t.Fatalf("expected auth failure, got %v", err)
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	svc := newTestService(t, &fakeClock{t: time.Now()})
	for _, tok := range []string{"", "not.a.jwt", "abc", strings.Repeat("x", 40)} {
		if _, err := svc.Verify(tok); !errors.Is(err, ErrAuthFailure) {
			t.Fatalf("token %q: expected auth failure, got %v", tok, err)
		}
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	svc := newTestService(t, &fakeClock{t: time.Now()})
	tok, _, err := svc.Issue("acct-1", "a@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(tok, ".")
	forged, _, err := svc.Issue("acct-2", "b@x.com")
	if err != nil {
		t.Fatalf("issue forged: %v", err)
	}
	parts[1] = strings.Split(forged, ".")[1]
	if _, err := svc.Verify(strings.Join(parts, ".")); !errors.Is(err, ErrAuthFailure) {
		t.Fatalf("expected auth failure for tampered token, got %v", err)
	}
}

func TestNewServiceRequiresSecret(t *testing.T) {
	if _, err := NewService("", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestVerifyHonoursReportedExpiry(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 500_000_000, time.UTC)
	clock := &fakeClock{t: start}
	svc := newTestService(t, clock)

	tok, exp, err := svc.IssueWithTTL("acct-1", "a@x.com", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if exp.Nanosecond() != 0 {
		t.Fatalf("expected whole-second expiry, got %v", exp)
	}

	clock.t = exp.Add(-300 * time.Millisecond)
	if _, err := svc.Verify(tok); err != nil {
		t.Fatalf("expected token valid before reported expiry, got %v", err)
	}
	clock.t = exp
	if _, err := svc.Verify(tok); err != nil {
		t.Fatalf("expected token valid at reported expiry, got %v", err)
	}
	clock.t = exp.Add(time.Millisecond)
	if _, err := svc.Verify(tok); !errors.Is(err, ErrAuthFailure) {
		t.Fatalf("expected auth failure after expiry, got %v", err)
	}
}
