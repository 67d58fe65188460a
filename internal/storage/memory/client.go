package memory

import (
	"context"
	"sync"
	"time"
)

const (
	rateLimitWindow = 600 * time.Second
	rateLimitMax    = 10
)

type item struct {
	val string
	exp time.Time
}

type Client struct {
	mu     sync.Mutex
	tokens map[string]item
	limit  map[string][]time.Time
}

func New() *Client {
	return &Client{
		tokens: make(map[string]item),
		limit:  make(map[string][]time.Time),
	}
}

func (c *Client) Close() error { return nil }

func (c *Client) SetResetToken(ctx context.Context, token, keyHashSnapshot string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[token] = item{val: keyHashSnapshot, exp: time.Now().Add(ttl)}
	return nil
}

// TakeResetToken удаляет токен под мьютексом — семантика GETDEL.
func (c *Client) TakeResetToken(ctx context.Context, token string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.tokens[token]
	if !ok {
		return "", nil
	}
	delete(c.tokens, token)
	if time.Now().After(v.exp) {
		return "", nil
	}
	return v.val, nil
}

func (c *Client) CheckRateLimit(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	cut := now.Add(-rateLimitWindow)
	slice := c.limit[key]
	var kept []time.Time
	for _, t := range slice {
		if t.After(cut) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= rateLimitMax {
		c.limit[key] = kept
		return false, nil
	}
	kept = append(kept, now)
	c.limit[key] = kept
	return true, nil
}
