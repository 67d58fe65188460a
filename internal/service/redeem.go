package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unionportal/internal/logger"
	"github.com/unionportal/internal/model"
	"github.com/unionportal/internal/repository"
	"github.com/unionportal/internal/token"
)

// LoginResult — токен сессии и роль для клиента.
type LoginResult struct {
	SessionToken string            `json:"session_token"`
	Kind         model.SessionKind `json:"kind"`
	Role         model.Role        `json:"role,omitempty"`
}

// Login — двухступенчатый вход: сначала credential пробуется как ключ доступа,
// затем как мастер-ключ декана. Если ни один путь не сошёлся, наружу уходит
// один общий ErrInvalidCredential — UI показывает одно сообщение, не раскрывая,
// какой тип учётных данных был ближе. Expired/AlreadyUsed возвращаются как есть:
// ключ существует, и владельцу полезно знать причину.
func (s *AuthService) Login(ctx context.Context, credential, deviceInfo, ip string) (*LoginResult, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, fmt.Errorf("%w: credential required", ErrValidation)
	}
	res, err := s.redeemAccessKey(ctx, credential, deviceInfo, ip)
	if err == nil {
		return res, nil
	}
	if errors.Is(err, ErrExpired) || errors.Is(err, ErrAlreadyUsed) {
		return nil, err
	}
	if !errors.Is(err, ErrInvalidCredential) {
		return nil, err
	}
	res, err = s.DeanLogin(ctx, credential, deviceInfo, ip)
	if err == nil {
		return res, nil
	}
	if errors.Is(err, ErrInvalidCredential) {
		return nil, ErrInvalidCredential
	}
	return nil, err
}

// redeemAccessKey гасит ключ и создаёт admin-сессию одной транзакцией стора.
func (s *AuthService) redeemAccessKey(ctx context.Context, keyToken, deviceInfo, ip string) (*LoginResult, error) {
	now := time.Now().UTC()
	sess := &model.Session{
		ID:             uuid.New().String(),
		Kind:           model.SessionAdmin,
		AccessKeyToken: &keyToken,
		DeviceInfo:     deviceInfo,
		IPAddress:      ip,
		CreatedAt:      now,
		LastSeenAt:     now,
	}
	key, err := s.keys.Redeem(ctx, keyToken, now, sess)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.classifyRedeemFailure(ctx, keyToken, now)
		}
		return nil, fmt.Errorf("redeem access key: %w", err)
	}
	signed, err := token.New(s.opts.SigningSecret, s.opts.SessionTTL, sess.ID, model.SessionAdmin, key.Role)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	logger.Infof("access key redeemed role=%s session=%s", key.Role, maskToken(sess.ID))
	return &LoginResult{SessionToken: signed, Kind: model.SessionAdmin, Role: key.Role}, nil
}

// classifyRedeemFailure выясняет, почему условное погашение не прошло.
// Чтение после неудавшегося CAS — только для кода ошибки, гонки здесь не опасны.
func (s *AuthService) classifyRedeemFailure(ctx context.Context, keyToken string, now time.Time) error {
	key, err := s.keys.GetByToken(ctx, keyToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCredential
		}
		return fmt.Errorf("classify redeem failure: %w", err)
	}
	if key.IsUsed {
		return ErrAlreadyUsed
	}
	if now.After(key.ExpiresAt) {
		return ErrExpired
	}
	return ErrInvalidCredential
}

// DeanLogin — явный вход декана по мастер-ключу.
func (s *AuthService) DeanLogin(ctx context.Context, masterKey, deviceInfo, ip string) (*LoginResult, error) {
	masterKey = strings.TrimSpace(masterKey)
	if masterKey == "" {
		return nil, fmt.Errorf("%w: master key required", ErrValidation)
	}
	cfg, err := s.cfgRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Errorf("dean login attempted before provisioning")
			return nil, ErrInvalidCredential
		}
		return nil, fmt.Errorf("load dean config: %w", err)
	}
	if !compareHash(cfg.MasterKeyHash, masterKey) {
		return nil, ErrInvalidCredential
	}
	now := time.Now().UTC()
	sess := &model.Session{
		ID:         uuid.New().String(),
		Kind:       model.SessionDean,
		DeviceInfo: deviceInfo,
		IPAddress:  ip,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := s.sessions.CreateDean(ctx, sess); err != nil {
		return nil, fmt.Errorf("create dean session: %w", err)
	}
	signed, err := token.New(s.opts.SigningSecret, s.opts.SessionTTL, sess.ID, model.SessionDean, "")
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	logger.Infof("dean logged in session=%s", maskToken(sess.ID))
	return &LoginResult{SessionToken: signed, Kind: model.SessionDean}, nil
}

// Verify проверяет bearer-токен и ЖИВОСТЬ сессии по хранилищу.
// Кэшированному состоянию клиента не верим: отозванная сессия не проходит,
// какой бы валидной ни была подпись.
func (s *AuthService) Verify(ctx context.Context, signed string) (*model.Session, error) {
	claims, err := token.Parse(s.opts.SigningSecret, signed)
	if err != nil {
		return nil, ErrUnauthorized
	}
	sess, err := s.sessions.Get(ctx, claims.Kind, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !sess.IsActive() {
		return nil, ErrUnauthorized
	}
	if err := s.sessions.UpdateLastSeen(ctx, sess.Kind, sess.ID, time.Now().UTC()); err != nil {
		logger.Errorf("verify: UpdateLastSeen session=%s: %v", maskToken(sess.ID), err)
	}
	return sess, nil
}

// Logout отзывает собственную сессию вызывающего. Повторный выход — no-op.
func (s *AuthService) Logout(ctx context.Context, kind model.SessionKind, sessionID string) error {
	if _, err := s.sessions.Revoke(ctx, kind, sessionID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
