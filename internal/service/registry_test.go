package service

import (
	"context"
	"errors"
	"testing"

	"github.com/unionportal/internal/model"
	"github.com/unionportal/internal/repository"
)

func TestListSessionsIncludesRevoked(t *testing.T) {
	env := newTestEnv()
	env.seedConfig("dean-master-key", "", "", "")
	ctx := context.Background()

	key, err := env.svc.CreateAccessKey(ctx, model.RolePresident, 7)
	if err != nil {
		t.Fatalf("CreateAccessKey: %v", err)
	}
	if _, err := env.svc.Login(ctx, key.Token, "", ""); err != nil {
		t.Fatalf("admin login: %v", err)
	}
	deanRes, err := env.svc.DeanLogin(ctx, "dean-master-key", "", "")
	if err != nil {
		t.Fatalf("DeanLogin: %v", err)
	}
	deanSess, err := env.svc.Verify(ctx, deanRes.SessionToken)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := env.svc.RevokeSession(ctx, deanSess.Kind, deanSess.ID); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}

	list, err := env.svc.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d sessions, want 2 (revoked ones stay in the registry)", len(list))
	}
	var sawRevoked bool
	for _, s := range list {
		if s.ID == deanSess.ID && s.RevokedAt != nil {
			sawRevoked = true
		}
	}
	if !sawRevoked {
		t.Error("revoked dean session missing from registry")
	}
}

func TestRevokeSessionIdempotent(t *testing.T) {
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
	if err := env.svc.RevokeSession(ctx, sess.Kind, sess.ID); err != nil {
		t.Fatalf("first revoke: %v", err)
	}
	if err := env.svc.RevokeSession(ctx, sess.Kind, sess.ID); err != nil {
		t.Errorf("second revoke must be a no-op, got %v", err)
	}
}

func TestRevokeSessionUnknown(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if err := env.svc.RevokeSession(ctx, model.SessionAdmin, "no-such-session"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	if err := env.svc.RevokeSession(ctx, model.SessionKind("bogus"), "id"); !errors.Is(err, ErrValidation) {
		t.Errorf("bad kind: got %v, want ErrValidation", err)
	}
}
