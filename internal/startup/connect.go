// Package startup содержит подключение к внешним зависимостям с повторами:
// при старте docker-compose БД и Redis могут подняться позже сервисов.
package startup

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unionportal/internal/logger"
	redisstorage "github.com/unionportal/internal/storage/redis"
)

// connectWithRetry повторяет connect с экспоненциальной задержкой, пока не выйдет
// maxWait; после этого процесс завершается. logPrefix добавляется к логам ("auth: ").
func connectWithRetry[T any](what, logPrefix string, maxWait, attemptTimeout time.Duration, connect func(context.Context) (T, error)) T {
	deadline := time.Now().Add(maxWait)
	backoff := 2 * time.Second
	for {
		ctx, cancel := context.WithTimeout(context.Background(), attemptTimeout)
		v, err := connect(ctx)
		cancel()
		if err == nil {
			return v
		}
		if time.Now().After(deadline) {
			logger.Errorf("%s%s: сдаёмся после %v: %v", logPrefix, what, maxWait, err)
			os.Exit(1)
		}
		logger.Warnf("%s%s недоступен, повтор через %v: %v", logPrefix, what, backoff, err)
		time.Sleep(backoff)
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// ConnectDBWithRetry подключается к Postgres и проверяет соединение ping-ом.
func ConnectDBWithRetry(poolCfg *pgxpool.Config, maxWait time.Duration, logPrefix string) *pgxpool.Pool {
	return connectWithRetry("postgres", logPrefix, maxWait, 10*time.Second, func(ctx context.Context) (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pool, nil
	})
}

// ConnectRedisWithRetry подключается к Redis (токены сброса, rate limit восстановления).
func ConnectRedisWithRetry(redisURL string, maxWait time.Duration, logPrefix string) *redisstorage.Client {
	return connectWithRetry("redis", logPrefix, maxWait, 5*time.Second, func(ctx context.Context) (*redisstorage.Client, error) {
		return redisstorage.New(ctx, redisURL)
	})
}
