package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unionportal/internal/model"
)

func TestLoginWithAccessKey(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	key, err := env.svc.CreateAccessKey(ctx, model.RoleVicePresident, 7)
	if err != nil {
		t.Fatalf("CreateAccessKey: %v", err)
	}
	res, err := env.svc.Login(ctx, key.Token, "Firefox on Linux", "10.0.0.1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Kind != model.SessionAdmin {
		t.Errorf("kind = %q, want admin", res.Kind)
	}
	if res.Role != model.RoleVicePresident {
		t.Errorf("role = %q, want %q", res.Role, model.RoleVicePresident)
	}
	if res.SessionToken == "" {
		t.Fatal("empty session token")
	}

	stored, err := env.keys.GetByToken(ctx, key.Token)
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if !stored.IsUsed || stored.UsedAt == nil {
		t.Error("key must be marked used after redemption")
	}

	// Подписанный токен верифицируется и сессия жива.
	sess, err := env.svc.Verify(ctx, res.SessionToken)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if sess.Kind != model.SessionAdmin || sess.Role != model.RoleVicePresident {
		t.Errorf("session kind=%q role=%q", sess.Kind, sess.Role)
	}
}

func TestLoginKeyAlreadyUsed(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	key, err := env.svc.CreateAccessKey(ctx, model.RolePresident, 7)
	if err != nil {
		t.Fatalf("CreateAccessKey: %v", err)
	}
	if _, err := env.svc.Login(ctx, key.Token, "", ""); err != nil {
		t.Fatalf("first login: %v", err)
	}
	if _, err := env.svc.Login(ctx, key.Token, "", ""); !errors.Is(err, ErrAlreadyUsed) {
		t.Errorf("second login: got %v, want ErrAlreadyUsed", err)
	}
}

func TestLoginKeyExpired(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// Ключ с истёкшим сроком кладём напрямую в стор.
	expired := &model.AccessKey{
		Token:     "expired-token-expired-token",
		Role:      model.RolePresident,
		CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
		IssuedBy:  "Dean",
	}
	if err := env.keys.Create(ctx, expired); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := env.svc.Login(ctx, expired.Token, "", ""); !errors.Is(err, ErrExpired) {
		t.Errorf("got %v, want ErrExpired", err)
	}
}

func TestLoginUnknownCredential(t *testing.T) {
	env := newTestEnv()
	env.seedConfig("dean-master-key", "", "", "")
	ctx := context.Background()

	if _, err := env.svc.Login(ctx, "no-such-credential", "", ""); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("got %v, want ErrInvalidCredential", err)
	}
	if _, err := env.svc.Login(ctx, "   ", "", ""); !errors.Is(err, ErrValidation) {
		t.Errorf("blank credential: got %v, want ErrValidation", err)
	}
}

func TestLoginFallsBackToMasterKey(t *testing.T) {
	env := newTestEnv()
	env.seedConfig("dean-master-key", "", "", "")
	ctx := context.Background()

	res, err := env.svc.Login(ctx, "dean-master-key", "Chrome on macOS", "10.0.0.2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Kind != model.SessionDean {
		t.Errorf("kind = %q, want dean", res.Kind)
	}
	if res.Role != "" {
		t.Errorf("dean session must not carry a role, got %q", res.Role)
	}
}

func TestConcurrentRedeemSingleUse(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	key, err := env.svc.CreateAccessKey(ctx, model.RolePresident, 7)
	if err != nil {
		t.Fatalf("CreateAccessKey: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Login(ctx, key.Token, "", "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, used int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyUsed):
			used++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("got %d successful redemptions, want exactly 1", ok)
	}
	if used != workers-1 {
		t.Errorf("got %d ErrAlreadyUsed, want %d", used, workers-1)
	}
}

func TestVerifyRejectsRevokedSession(t *testing.T) {
	env := newTestEnv()
	env.seedConfig("dean-master-key", "", "", "")
	ctx := context.Background()

	res, err := env.svc.DeanLogin(ctx, "dean-master-key", "", "")
	if err != nil {
		t.Fatalf("DeanLogin: %v", err)
	}
	sess, err := env.svc.Verify(ctx, res.SessionToken)
	if err != nil {
		t.Fatalf("Verify before revoke: %v", err)
	}
	if err := env.svc.RevokeSession(ctx, sess.Kind, sess.ID); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	if _, err := env.svc.Verify(ctx, res.SessionToken); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("verify after revoke: got %v, want ErrUnauthorized", err)
	}
}

func TestVerifyRejectsGarbageToken(t *testing.T) {
	env := newTestEnv()
	if _, err := env.svc.Verify(context.Background(), "not-a-jwt"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("got %v, want ErrUnauthorized", err)
	}
}

func TestLogoutIdempotent(t *testing.T) {
	env := newTestEnv()
	env.seedConfig("dean-master-key", "", "", "")
	ctx := context.Background()

	res, err := env.svc.DeanLogin(ctx, "dean-master-key", "", "")
	if err != nil {
		t.Fatalf("DeanLogin: %v", err)
	}
	sess, err := env.svc.Verify(ctx, res.SessionToken)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := env.svc.Logout(ctx, sess.Kind, sess.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := env.svc.Logout(ctx, sess.Kind, sess.ID); err != nil {
		t.Errorf("second logout must be a no-op, got %v", err)
	}
}
