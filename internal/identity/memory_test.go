package identity

import (
	"context"
	"testing"
	"time"
)

func TestMemoryAccountAndSession(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	u, err := m.CreateAccount(ctx, "Donor@Example.org", "hunter2hunter2", "Dana Donor")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if u.Email != "donor@example.org" {
		t.Fatalf("email normalized to %q", u.Email)
	}

	if _, err := m.CreateAccount(ctx, "donor@example.org", "hunter2hunter2", "Dup"); KindOf(err) != KindDuplicateEmail {
		t.Fatalf("duplicate kind = %q", KindOf(err))
	}

	if _, err := m.CreateSession(ctx, "donor@example.org", "wrong-password"); KindOf(err) != KindInvalidCredentials {
		t.Fatalf("bad password kind = %q", KindOf(err))
	}

	s, err := m.CreateSession(ctx, "donor@example.org", "hunter2hunter2")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	got, err := m.CurrentUser(ctx, s.Token)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("user id = %q, want %q", got.ID, u.ID)
	}

	if err := m.DeleteSession(ctx, s.Token); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := m.CurrentUser(ctx, s.Token); err != ErrNoSession {
		t.Fatalf("after delete err = %v, want ErrNoSession", err)
	}
}

func TestMemorySessionExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	if _, err := m.CreateAccount(ctx, "v@example.org", "hunter2hunter2", "Vol"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	s, err := m.CreateSession(ctx, "v@example.org", "hunter2hunter2")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	now = now.Add(memorySessionTTL + time.Minute)
	if _, err := m.CurrentUser(ctx, s.Token); err != ErrNoSession {
		t.Fatalf("expired session err = %v, want ErrNoSession", err)
	}
}

func TestMemoryRecoveryFlow(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	u, err := m.CreateAccount(ctx, "reset@example.org", "originalpass", "Reset Me")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	// Unknown emails must not error, to avoid leaking account existence.
	if err := m.RequestRecovery(ctx, "nobody@example.org", "https://cvowf.org/auth/reset-password"); err != nil {
		t.Fatalf("RequestRecovery unknown: %v", err)
	}

	if err := m.RequestRecovery(ctx, "reset@example.org", "https://cvowf.org/auth/reset-password"); err != nil {
		t.Fatalf("RequestRecovery: %v", err)
	}
	secret := m.RecoverySecret(u.ID)
	if secret == "" {
		t.Fatal("no recovery secret issued")
	}

	if err := m.CompleteRecovery(ctx, u.ID, "bogus", "newpassword1", "newpassword1"); KindOf(err) != KindInvalidCredentials {
		t.Fatalf("bogus secret kind = %q", KindOf(err))
	}
	if err := m.CompleteRecovery(ctx, u.ID, secret, "newpassword1", "newpassword1"); err != nil {
		t.Fatalf("CompleteRecovery: %v", err)
	}

	if _, err := m.CreateSession(ctx, "reset@example.org", "originalpass"); KindOf(err) != KindInvalidCredentials {
		t.Fatal("old password still accepted after recovery")
	}
	if _, err := m.CreateSession(ctx, "reset@example.org", "newpassword1"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}

	// Secrets are single use.
	if err := m.CompleteRecovery(ctx, u.ID, secret, "anotherpass1", "anotherpass1"); KindOf(err) != KindInvalidCredentials {
		t.Fatalf("reused secret kind = %q", KindOf(err))
	}
}
