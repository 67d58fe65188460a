package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/unionportal/internal/logger"
	"github.com/unionportal/internal/model"
)

const keyCols = `token, role, created_at, expires_at, is_used, used_at, issued_by, device_fingerprint`

type AccessKeyRepository struct {
	pool *pgxpool.Pool
}

func NewAccessKeyRepository(pool *pgxpool.Pool) *AccessKeyRepository {
	return &AccessKeyRepository{pool: pool}
}

func scanKey(s interface{ Scan(dest ...any) error }, k *model.AccessKey) error {
	return s.Scan(&k.Token, &k.Role, &k.CreatedAt, &k.ExpiresAt, &k.IsUsed, &k.UsedAt, &k.IssuedBy, &k.DeviceFingerprint)
}

func (r *AccessKeyRepository) Create(ctx context.Context, k *model.AccessKey) error {
	defer logger.DeferLogDuration("accessKey.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO access_keys (token, role, created_at, expires_at, is_used, used_at, issued_by, device_fingerprint)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		k.Token, k.Role, k.CreatedAt, k.ExpiresAt, k.IsUsed, k.UsedAt, k.IssuedBy, k.DeviceFingerprint,
	)
	if err != nil {
		return fmt.Errorf("accessKeyRepo.Create: %w", err)
	}
	return nil
}

func (r *AccessKeyRepository) GetByToken(ctx context.Context, token string) (*model.AccessKey, error) {
	defer logger.DeferLogDuration("accessKey.GetByToken", time.Now())()
	k := &model.AccessKey{}
	row := r.pool.QueryRow(ctx, `SELECT `+keyCols+` FROM access_keys WHERE token = $1`, token)
	if err := scanKey(row, k); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("accessKeyRepo.GetByToken: %w", err)
	}
	return k, nil
}

// Redeem помечает ключ использованным и создаёт admin-сессию в ОДНОЙ транзакции.
// Условный UPDATE (is_used = FALSE AND expires_at > now) гарантирует, что из N
// конкурентных погашений пройдёт ровно одно. Если условие не выполнено,
// возвращается ErrNotFound — вызывающий код классифицирует причину отдельным чтением.
func (r *AccessKeyRepository) Redeem(ctx context.Context, token string, now time.Time, s *model.Session) (*model.AccessKey, error) {
	defer logger.DeferLogDuration("accessKey.Redeem", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("accessKeyRepo.Redeem begin: %w", err)
	}
	defer tx.Rollback(ctx)

	k := &model.AccessKey{}
	row := tx.QueryRow(ctx,
		`UPDATE access_keys
		 SET is_used = TRUE, used_at = $2, device_fingerprint = COALESCE(device_fingerprint, $3)
		 WHERE token = $1 AND is_used = FALSE AND expires_at > $2
		 RETURNING `+keyCols,
		token, now, s.DeviceInfo,
	)
	if err := scanKey(row, k); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("accessKeyRepo.Redeem update: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO admin_sessions (id, role, access_key_token, device_info, ip_address, created_at, last_seen_at, revoked_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)`,
		s.ID, k.Role, token, s.DeviceInfo, s.IPAddress, s.CreatedAt, s.LastSeenAt,
	)
	if err != nil {
		return nil, fmt.Errorf("accessKeyRepo.Redeem insert session: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("accessKeyRepo.Redeem commit: %w", err)
	}
	return k, nil
}

// ListRecent — ключи для аудита в кабинете декана, свежие сверху.
func (r *AccessKeyRepository) ListRecent(ctx context.Context, limit int) ([]model.AccessKey, error) {
	defer logger.DeferLogDuration("accessKey.ListRecent", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+keyCols+` FROM access_keys ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("accessKeyRepo.ListRecent: %w", err)
	}
	defer rows.Close()
	var list []model.AccessKey
	for rows.Next() {
		var k model.AccessKey
		if err := scanKey(rows, &k); err != nil {
			return nil, fmt.Errorf("accessKeyRepo.ListRecent scan: %w", err)
		}
		list = append(list, k)
	}
	return list, rows.Err()
}
