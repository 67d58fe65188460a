package token

import (
	"testing"
	"time"

	"github.com/unionportal/internal/model"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := New("test-secret", time.Hour, "sess-1", model.SessionAdmin, model.RolePresident)
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	claims, err := Parse("test-secret", tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.SessionID != "sess-1" || claims.Kind != model.SessionAdmin || claims.Role != model.RolePresident {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	tok, err := New("secret-a", time.Hour, "sess-1", model.SessionDean, "")
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	if _, err := Parse("secret-b", tok); err == nil {
		t.Fatalf("expected signature mismatch to error")
	}
}

func TestTokenExpired(t *testing.T) {
	tok, err := New("test-secret", -time.Minute, "sess-1", model.SessionDean, "")
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	if _, err := Parse("test-secret", tok); err == nil {
		t.Fatalf("expected expired token to error")
	}
}
