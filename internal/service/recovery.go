package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unionportal/internal/logger"
	"github.com/unionportal/internal/model"
	"github.com/unionportal/internal/repository"
)

// SecurityQuestion возвращает вопрос для формы восстановления.
func (s *AuthService) SecurityQuestion(ctx context.Context) (string, error) {
	cfg, err := s.cfgRepo.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("load dean config: %w", err)
	}
	return cfg.SecurityQuestion, nil
}

// AnswerQuestion — ветка «question» восстановления. Ответ нормализуется
// (пробелы, регистр); совпадение выдаёт одноразовый токен сброса с коротким TTL.
// ip идёт в ключ rate limit — подбор ответа ограничен.
func (s *AuthService) AnswerQuestion(ctx context.Context, answer, ip string) (string, error) {
	return s.recoveryChallenge(ctx, "question:"+ip, func(cfgAnswerHash, cfgBackupHash string) bool {
		return compareHash(cfgAnswerHash, normalizeAnswer(answer))
	})
}

// SubmitBackupCode — ветка «backup»: тот же контракт, что и у вопроса.
func (s *AuthService) SubmitBackupCode(ctx context.Context, code, ip string) (string, error) {
	return s.recoveryChallenge(ctx, "backup:"+ip, func(cfgAnswerHash, cfgBackupHash string) bool {
		return compareHash(cfgBackupHash, normalizeBackupCode(code))
	})
}

func (s *AuthService) recoveryChallenge(ctx context.Context, limitKey string, match func(answerHash, backupHash string) bool) (string, error) {
	allowed, err := s.store.CheckRateLimit(ctx, "recovery:"+limitKey)
	if err != nil {
		return "", fmt.Errorf("recovery rate limit: %w", err)
	}
	if !allowed {
		return "", ErrRateLimitExceeded
	}
	cfg, err := s.cfgRepo.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("load dean config: %w", err)
	}
	if !match(cfg.SecurityAnswerHash, cfg.BackupCodeHash) {
		return "", ErrIncorrectAnswer
	}
	resetToken, err := newOpaqueToken(32)
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	// Снимок хэша мастер-ключа привязывает токен к текущему ключу:
	// если ключ сменится раньше, токен станет недействительным.
	if err := s.store.SetResetToken(ctx, resetToken, cfg.MasterKeyHash, s.opts.ResetTokenTTL); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	logger.Infof("recovery challenge passed, reset token issued token=%s", maskToken(resetToken))
	return resetToken, nil
}

// ResetMasterKey — финальный шаг восстановления: одноразовый токен + новый ключ.
func (s *AuthService) ResetMasterKey(ctx context.Context, resetToken, newKey string) error {
	if len(newKey) < minMasterKeyLen {
		return fmt.Errorf("%w: master key must be at least %d characters", ErrValidation, minMasterKeyLen)
	}
	snapshot, err := s.store.TakeResetToken(ctx, resetToken)
	if err != nil {
		return fmt.Errorf("take reset token: %w", err)
	}
	if snapshot == "" {
		return ErrTokenInvalid
	}
	cfg, err := s.cfgRepo.Get(ctx)
	if err != nil {
		return fmt.Errorf("load dean config: %w", err)
	}
	// Ключ уже сменили другим токеном или напрямую — этот токен устарел.
	if cfg.MasterKeyHash != snapshot {
		return ErrTokenInvalid
	}
	hash, err := s.hash(newKey)
	if err != nil {
		return fmt.Errorf("hash new master key: %w", err)
	}
	if err := s.cfgRepo.UpdateMasterKey(ctx, hash, time.Now().UTC()); err != nil {
		return fmt.Errorf("update master key: %w", err)
	}
	logger.Info("master key reset via recovery flow")
	return nil
}

// GenerateBackupCode выдаёт новый резервный код. Старый недействителен сразу.
// Открытый код возвращается один раз; хранится только хэш.
func (s *AuthService) GenerateBackupCode(ctx context.Context) (string, error) {
	code, err := newBackupCode()
	if err != nil {
		return "", fmt.Errorf("generate backup code: %w", err)
	}
	hash, err := s.hash(code)
	if err != nil {
		return "", fmt.Errorf("hash backup code: %w", err)
	}
	if err := s.cfgRepo.UpdateBackupCode(ctx, hash); err != nil {
		return "", fmt.Errorf("store backup code: %w", err)
	}
	logger.Info("backup code rotated")
	return code, nil
}

// ConfigUpdate — прямое изменение учётных данных декана (из кабинета, под dean-сессией).
type ConfigUpdate struct {
	NewMasterKey     string `json:"new_master_key,omitempty"`
	SecurityQuestion string `json:"security_question,omitempty"`
	SecurityAnswer   string `json:"security_answer,omitempty"`
}

func (s *AuthService) UpdateConfig(ctx context.Context, upd ConfigUpdate) error {
	if upd.NewMasterKey == "" && upd.SecurityQuestion == "" {
		return fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	if upd.NewMasterKey != "" {
		if len(upd.NewMasterKey) < minMasterKeyLen {
			return fmt.Errorf("%w: master key must be at least %d characters", ErrValidation, minMasterKeyLen)
		}
		hash, err := s.hash(upd.NewMasterKey)
		if err != nil {
			return fmt.Errorf("hash master key: %w", err)
		}
		if err := s.cfgRepo.UpdateMasterKey(ctx, hash, time.Now().UTC()); err != nil {
			return fmt.Errorf("update master key: %w", err)
		}
		logger.Info("master key changed by dean")
	}
	if upd.SecurityQuestion != "" {
		if upd.SecurityAnswer == "" {
			return fmt.Errorf("%w: security answer required with question", ErrValidation)
		}
		answerHash, err := s.hash(normalizeAnswer(upd.SecurityAnswer))
		if err != nil {
			return fmt.Errorf("hash security answer: %w", err)
		}
		if err := s.cfgRepo.UpdateSecurity(ctx, upd.SecurityQuestion, answerHash); err != nil {
			return fmt.Errorf("update security question: %w", err)
		}
		logger.Info("security question changed by dean")
	}
	return nil
}

// EnsureDeanConfig создаёт запись конфига при первом старте сервиса.
// Пустой masterKey означает «сгенерировать и показать в логе один раз».
func (s *AuthService) EnsureDeanConfig(ctx context.Context, masterKey, question, answer string) error {
	if _, err := s.cfgRepo.Get(ctx); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("check dean config: %w", err)
	}
	generated := false
	if masterKey == "" {
		tok, err := newOpaqueToken(16)
		if err != nil {
			return fmt.Errorf("generate master key: %w", err)
		}
		masterKey = tok
		generated = true
	}
	if len(masterKey) < minMasterKeyLen {
		return fmt.Errorf("%w: seed master key must be at least %d characters", ErrValidation, minMasterKeyLen)
	}
	keyHash, err := s.hash(masterKey)
	if err != nil {
		return fmt.Errorf("hash master key: %w", err)
	}
	answerHash := ""
	if answer != "" {
		if answerHash, err = s.hash(normalizeAnswer(answer)); err != nil {
			return fmt.Errorf("hash security answer: %w", err)
		}
	}
	backupCode, err := newBackupCode()
	if err != nil {
		return fmt.Errorf("generate backup code: %w", err)
	}
	backupHash, err := s.hash(backupCode)
	if err != nil {
		return fmt.Errorf("hash backup code: %w", err)
	}
	cfg := &model.DeanConfig{
		ID:                 model.DeanConfigID,
		MasterKeyHash:      keyHash,
		SecurityQuestion:   question,
		SecurityAnswerHash: answerHash,
		BackupCodeHash:     backupHash,
		LastChanged:        time.Now().UTC(),
	}
	if err := s.cfgRepo.Create(ctx, cfg); err != nil {
		return fmt.Errorf("seed dean config: %w", err)
	}
	// Единственный момент, когда секреты видны: записываем в лог при провижининге.
	if generated {
		logger.Infof("dean config seeded; generated master key: %s — смените его после первого входа", masterKey)
	} else {
		logger.Info("dean config seeded from environment")
	}
	logger.Infof("dean backup code (показывается один раз): %s", backupCode)
	return nil
}
