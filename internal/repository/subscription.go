package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/unionportal/internal/logger"
	"github.com/unionportal/internal/model"
)

type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

// Upsert сохраняет подписку; повторная подписка того же endpoint обновляет ключи.
func (r *SubscriptionRepository) Upsert(ctx context.Context, s *model.PushSubscription) error {
	defer logger.DeferLogDuration("subscription.Upsert", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO push_subscriptions (endpoint, p256dh, auth, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (endpoint) DO UPDATE SET p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth`,
		s.Endpoint, s.P256dh, s.Auth, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("subscriptionRepo.Upsert: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) ListAll(ctx context.Context) ([]model.PushSubscription, error) {
	defer logger.DeferLogDuration("subscription.ListAll", time.Now())()
	rows, err := r.pool.Query(ctx, `SELECT endpoint, p256dh, auth, created_at FROM push_subscriptions`)
	if err != nil {
		return nil, fmt.Errorf("subscriptionRepo.ListAll: %w", err)
	}
	defer rows.Close()
	var list []model.PushSubscription
	for rows.Next() {
		var s model.PushSubscription
		if err := rows.Scan(&s.Endpoint, &s.P256dh, &s.Auth, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("subscriptionRepo.ListAll scan: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Delete удаляет подписку (отписка или endpoint вернул 404/410).
func (r *SubscriptionRepository) Delete(ctx context.Context, endpoint string) error {
	defer logger.DeferLogDuration("subscription.Delete", time.Now())()
	_, err := r.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	if err != nil {
		return fmt.Errorf("subscriptionRepo.Delete: %w", err)
	}
	return nil
}
