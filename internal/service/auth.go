package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/unionportal/internal/model"
	"github.com/unionportal/internal/storage"
)

var (
	// ErrInvalidCredential — обобщённый отказ логина. Специально не уточняет,
	// какой из путей (ключ доступа или мастер-ключ) не сошёлся.
	ErrInvalidCredential = errors.New("invalid credential")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrExpired           = errors.New("access key expired")
	ErrAlreadyUsed       = errors.New("access key already used")
	ErrIncorrectAnswer   = errors.New("incorrect answer")
	ErrTokenInvalid      = errors.New("reset token invalid")
	ErrInvalidRole       = errors.New("invalid role")
	ErrValidation        = errors.New("validation failed")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// Минимальная длина мастер-ключа — правило клиента, продублированное на сервере.
const minMasterKeyLen = 8

// DeanConfigStore — персистентный конфиг декана (одна запись).
type DeanConfigStore interface {
	Get(ctx context.Context) (*model.DeanConfig, error)
	Create(ctx context.Context, c *model.DeanConfig) error
	UpdateMasterKey(ctx context.Context, hash string, at time.Time) error
	UpdateSecurity(ctx context.Context, question, answerHash string) error
	UpdateBackupCode(ctx context.Context, hash string) error
}

// AccessKeyStore — ключи доступа. Redeem обязан быть атомарным
// (condition на is_used и expires_at плюс вставка сессии в одной транзакции).
type AccessKeyStore interface {
	Create(ctx context.Context, k *model.AccessKey) error
	GetByToken(ctx context.Context, token string) (*model.AccessKey, error)
	Redeem(ctx context.Context, token string, now time.Time, s *model.Session) (*model.AccessKey, error)
	ListRecent(ctx context.Context, limit int) ([]model.AccessKey, error)
}

// SessionStore — сессии обоих видов.
type SessionStore interface {
	CreateDean(ctx context.Context, s *model.Session) error
	Get(ctx context.Context, kind model.SessionKind, id string) (*model.Session, error)
	UpdateLastSeen(ctx context.Context, kind model.SessionKind, id string, t time.Time) error
	Revoke(ctx context.Context, kind model.SessionKind, id string) (bool, error)
	Exists(ctx context.Context, kind model.SessionKind, id string) (bool, error)
	ListAll(ctx context.Context) ([]model.Session, error)
}

// Options — параметры сервиса из конфигурации.
type Options struct {
	SigningSecret string
	BcryptCost    int
	SessionTTL    time.Duration
	ResetTokenTTL time.Duration
}

type AuthService struct {
	cfgRepo  DeanConfigStore
	keys     AccessKeyStore
	sessions SessionStore
	store    storage.SecurityStore
	opts     Options
}

func NewAuthService(cfgRepo DeanConfigStore, keys AccessKeyStore, sessions SessionStore, store storage.SecurityStore, opts Options) *AuthService {
	if opts.BcryptCost < bcrypt.MinCost || opts.BcryptCost > bcrypt.MaxCost {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * 24 * time.Hour
	}
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = 15 * time.Minute
	}
	return &AuthService{cfgRepo: cfgRepo, keys: keys, sessions: sessions, store: store, opts: opts}
}

// newOpaqueToken генерирует случайный токен из nbytes байт (не меньше 16 — 128 бит).
func newOpaqueToken(nbytes int) (string, error) {
	if nbytes < 16 {
		return "", errors.New("token size too small")
	}
	b := make([]byte, nbytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Алфавит без похожих символов (0/O, 1/I) — код диктуют по телефону.
const backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newBackupCode генерирует резервный код вида XXXX-XXXX-XXXX.
func newBackupCode() (string, error) {
	var b strings.Builder
	for i := 0; i < 12; i++ {
		if i > 0 && i%4 == 0 {
			b.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(backupCodeAlphabet))))
		if err != nil {
			return "", err
		}
		b.WriteByte(backupCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// normalizeAnswer приводит ответ на секретный вопрос к одному виду:
// обрезка пробелов и нижний регистр. Регистр ответа не должен решать судьбу восстановления.
func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeBackupCode: код сравнивается без учёта регистра и пробелов.
func normalizeBackupCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func (s *AuthService) hash(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), s.opts.BcryptCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// compareHash — bcrypt сам по себе устойчив к timing-атакам.
func compareHash(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

func maskToken(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "***"
}
