package service

import (
	"context"
	"fmt"
	"time"

	"github.com/unionportal/internal/logger"
	"github.com/unionportal/internal/model"
)

// issuedBy — единственный выпускающий ключи; проверка «вызывает декан» лежит на middleware.
const issuedBy = "Dean"

// CreateAccessKey выписывает одноразовый ключ доступа на роль со сроком validityDays.
// Открытый токен возвращается только здесь — больше он нигде не показывается.
func (s *AuthService) CreateAccessKey(ctx context.Context, role model.Role, validityDays int) (*model.AccessKey, error) {
	if !model.ValidRole(role) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if validityDays <= 0 {
		return nil, fmt.Errorf("%w: validity_days must be positive", ErrValidation)
	}
	tok, err := newOpaqueToken(24)
	if err != nil {
		return nil, fmt.Errorf("generate access key token: %w", err)
	}
	now := time.Now().UTC()
	key := &model.AccessKey{
		Token:     tok,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(validityDays) * 24 * time.Hour),
		IsUsed:    false,
		IssuedBy:  issuedBy,
	}
	if err := s.keys.Create(ctx, key); err != nil {
		return nil, fmt.Errorf("create access key: %w", err)
	}
	logger.Infof("access key issued role=%s expires=%s token=%s", role, key.ExpiresAt.Format(time.RFC3339), maskToken(tok))
	return key, nil
}

// ListAccessKeys — ключи для аудита в кабинете декана (токены маскируются на уровне handler).
func (s *AuthService) ListAccessKeys(ctx context.Context, limit int) ([]model.AccessKey, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.keys.ListRecent(ctx, limit)
}
