package service

import (
	"context"
	"fmt"

	"github.com/unionportal/internal/logger"
	"github.com/unionportal/internal/model"
	"github.com/unionportal/internal/repository"
)

// ListSessions — объединённый реестр admin- и dean-сессий для аудита,
// включая отозванные (история входов не удаляется).
func (s *AuthService) ListSessions(ctx context.Context) ([]model.Session, error) {
	list, err := s.sessions.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return list, nil
}

// RevokeSession принудительно завершает сессию. Идемпотентно: повторный отзыв
// уже неактивной сессии — no-op. Ключ доступа, породивший сессию, не трогается
// и остаётся погашенным навсегда.
func (s *AuthService) RevokeSession(ctx context.Context, kind model.SessionKind, sessionID string) error {
	if kind != model.SessionAdmin && kind != model.SessionDean {
		return fmt.Errorf("%w: unknown session kind %q", ErrValidation, kind)
	}
	revoked, err := s.sessions.Revoke(ctx, kind, sessionID)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if !revoked {
		// Либо уже отозвана (no-op), либо никогда не существовала — тогда 404.
		exists, err := s.sessions.Exists(ctx, kind, sessionID)
		if err != nil {
			return fmt.Errorf("revoke session check: %w", err)
		}
		if !exists {
			return fmt.Errorf("revoke session %s: %w", maskToken(sessionID), repository.ErrNotFound)
		}
		return nil
	}
	logger.Infof("session revoked kind=%s session=%s", kind, maskToken(sessionID))
	return nil
}
