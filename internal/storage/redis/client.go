package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rate limit восстановления/логина: 10 попыток / 10 минут на ключ (IP или операция).
const (
	rateLimitWindow = 600 * time.Second
	rateLimitMax    = 10
)

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// SetResetToken сохраняет токен сброса по ключу reset:{token} с TTL.
// Значение — снимок хэша мастер-ключа на момент выдачи.
func (c *Client) SetResetToken(ctx context.Context, token, keyHashSnapshot string, ttl time.Duration) error {
	return c.cli.Set(ctx, "reset:"+token, keyHashSnapshot, ttl).Err()
}

// TakeResetToken — GETDEL: два конкурентных сброса по одному токену не пройдут оба.
func (c *Client) TakeResetToken(ctx context.Context, token string) (string, error) {
	val, err := c.cli.GetDel(ctx, "reset:"+token).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// CheckRateLimit проверяет limit:{key}: макс. rateLimitMax попыток за окно.
func (c *Client) CheckRateLimit(ctx context.Context, key string) (allowed bool, err error) {
	k := "limit:" + key
	n, err := c.cli.Incr(ctx, k).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		c.cli.Expire(ctx, k, rateLimitWindow)
	}
	return n <= int64(rateLimitMax), nil
}
