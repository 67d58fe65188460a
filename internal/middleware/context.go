package middleware

import (
	"context"

	"github.com/unionportal/internal/model"
)

type contextKey string

const (
	SessionIDKey contextKey = "session_id"
	KindKey      contextKey = "session_kind"
	RoleKey      contextKey = "session_role"
)

// GetSessionID возвращает id сессии из контекста (устанавливается SessionAuth или AuthServiceVerify).
func GetSessionID(ctx context.Context) string {
	v, _ := ctx.Value(SessionIDKey).(string)
	return v
}

// GetKind возвращает вид сессии (admin или dean) из контекста.
func GetKind(ctx context.Context) model.SessionKind {
	v, _ := ctx.Value(KindKey).(model.SessionKind)
	return v
}

// GetRole возвращает роль admin-сессии; у dean-сессии роли нет.
func GetRole(ctx context.Context) model.Role {
	v, _ := ctx.Value(RoleKey).(model.Role)
	return v
}

func withIdentity(ctx context.Context, id string, kind model.SessionKind, role model.Role) context.Context {
	ctx = context.WithValue(ctx, SessionIDKey, id)
	ctx = context.WithValue(ctx, KindKey, kind)
	return context.WithValue(ctx, RoleKey, role)
}
