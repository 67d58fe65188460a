package memory

import (
	"context"
	"testing"
	"time"
)

func TestResetTokenSingleTake(t *testing.T) {
	c := New()
	ctx := context.Background()

	if err := c.SetResetToken(ctx, "tok-1", "hash-snapshot", time.Minute); err != nil {
		t.Fatalf("SetResetToken: %v", err)
	}

	got, err := c.TakeResetToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("TakeResetToken: %v", err)
	}
	if got != "hash-snapshot" {
		t.Errorf("snapshot = %q, want %q", got, "hash-snapshot")
	}

	got, err = c.TakeResetToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("TakeResetToken second: %v", err)
	}
	if got != "" {
		t.Errorf("second take returned %q, want empty", got)
	}
}

func TestResetTokenExpired(t *testing.T) {
	c := New()
	ctx := context.Background()

	if err := c.SetResetToken(ctx, "tok-exp", "snap", -time.Second); err != nil {
		t.Fatalf("SetResetToken: %v", err)
	}
	got, err := c.TakeResetToken(ctx, "tok-exp")
	if err != nil {
		t.Fatalf("TakeResetToken: %v", err)
	}
	if got != "" {
		t.Errorf("expired token returned %q, want empty", got)
	}
}

func TestResetTokenUnknown(t *testing.T) {
	c := New()
	got, err := c.TakeResetToken(context.Background(), "never-issued")
	if err != nil {
		t.Fatalf("TakeResetToken: %v", err)
	}
	if got != "" {
		t.Errorf("unknown token returned %q, want empty", got)
	}
}

func TestCheckRateLimit(t *testing.T) {
	c := New()
	ctx := context.Background()

	for i := 0; i < rateLimitMax; i++ {
		ok, err := c.CheckRateLimit(ctx, "recovery:1.2.3.4")
		if err != nil {
			t.Fatalf("CheckRateLimit #%d: %v", i, err)
		}
		if !ok {
			t.Fatalf("attempt %d rejected, limit is %d", i+1, rateLimitMax)
		}
	}
	ok, err := c.CheckRateLimit(ctx, "recovery:1.2.3.4")
	if err != nil {
		t.Fatalf("CheckRateLimit over limit: %v", err)
	}
	if ok {
		t.Error("attempt over the limit must be rejected")
	}

	// Лимит считается по ключу: другой IP не задет.
	ok, err = c.CheckRateLimit(ctx, "recovery:5.6.7.8")
	if err != nil {
		t.Fatalf("CheckRateLimit other key: %v", err)
	}
	if !ok {
		t.Error("different key must not share the counter")
	}
}
