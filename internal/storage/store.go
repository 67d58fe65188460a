package storage

import (
	"context"
	"time"
)

// SecurityStore — эфемерное хранилище токенов сброса мастер-ключа и
// счётчиков rate limit для восстановления/логина.
// Реализации: redis.Client, memory.Client (для -dev без Redis).
type SecurityStore interface {
	// SetResetToken сохраняет токен сброса со снимком текущего хэша мастер-ключа.
	// Снимок нужен, чтобы токен, выданный до смены ключа, стал недействительным.
	SetResetToken(ctx context.Context, token, keyHashSnapshot string, ttl time.Duration) error
	// TakeResetToken атомарно читает и удаляет токен (одноразовое использование).
	// Возвращает "" если токена нет или он истёк.
	TakeResetToken(ctx context.Context, token string) (keyHashSnapshot string, err error)
	CheckRateLimit(ctx context.Context, key string) (allowed bool, err error)
	Close() error
}
