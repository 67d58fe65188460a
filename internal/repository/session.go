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

// SessionRepository обслуживает обе таблицы сессий (admin_sessions и dean_sessions).
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// CreateDean создаёт сессию декана. Admin-сессии создаются только через AccessKeyRepository.Redeem.
func (r *SessionRepository) CreateDean(ctx context.Context, s *model.Session) error {
	defer logger.DeferLogDuration("session.CreateDean", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO dean_sessions (id, device_info, ip_address, created_at, last_seen_at, revoked_at)
		 VALUES ($1, $2, $3, $4, $5, NULL)`,
		s.ID, s.DeviceInfo, s.IPAddress, s.CreatedAt, s.LastSeenAt,
	)
	if err != nil {
		return fmt.Errorf("sessionRepo.CreateDean: %w", err)
	}
	return nil
}

// Get возвращает сессию по id, включая отозванные — активность проверяет вызывающий код.
func (r *SessionRepository) Get(ctx context.Context, kind model.SessionKind, id string) (*model.Session, error) {
	defer logger.DeferLogDuration("session.Get", time.Now())()
	s := &model.Session{Kind: kind}
	var row pgx.Row
	if kind == model.SessionDean {
		row = r.pool.QueryRow(ctx,
			`SELECT id, device_info, ip_address, created_at, last_seen_at, revoked_at
			 FROM dean_sessions WHERE id = $1`, id)
		if err := row.Scan(&s.ID, &s.DeviceInfo, &s.IPAddress, &s.CreatedAt, &s.LastSeenAt, &s.RevokedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("sessionRepo.Get dean: %w", err)
		}
		return s, nil
	}
	row = r.pool.QueryRow(ctx,
		`SELECT id, role, access_key_token, device_info, ip_address, created_at, last_seen_at, revoked_at
		 FROM admin_sessions WHERE id = $1`, id)
	if err := row.Scan(&s.ID, &s.Role, &s.AccessKeyToken, &s.DeviceInfo, &s.IPAddress, &s.CreatedAt, &s.LastSeenAt, &s.RevokedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("sessionRepo.Get admin: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) UpdateLastSeen(ctx context.Context, kind model.SessionKind, id string, t time.Time) error {
	defer logger.DeferLogDuration("session.UpdateLastSeen", time.Now())()
	table := "admin_sessions"
	if kind == model.SessionDean {
		table = "dean_sessions"
	}
	_, err := r.pool.Exec(ctx, `UPDATE `+table+` SET last_seen_at = $1 WHERE id = $2 AND revoked_at IS NULL`, t, id)
	return err
}

// Revoke проставляет revoked_at. Возвращает false, если сессия уже была неактивна
// или не найдена — вызывающий код решает, ошибка это или no-op.
func (r *SessionRepository) Revoke(ctx context.Context, kind model.SessionKind, id string) (bool, error) {
	defer logger.DeferLogDuration("session.Revoke", time.Now())()
	table := "admin_sessions"
	if kind == model.SessionDean {
		table = "dean_sessions"
	}
	tag, err := r.pool.Exec(ctx, `UPDATE `+table+` SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return false, fmt.Errorf("sessionRepo.Revoke: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Exists сообщает, есть ли сессия с таким id вообще (активная или отозванная).
func (r *SessionRepository) Exists(ctx context.Context, kind model.SessionKind, id string) (bool, error) {
	defer logger.DeferLogDuration("session.Exists", time.Now())()
	table := "admin_sessions"
	if kind == model.SessionDean {
		table = "dean_sessions"
	}
	var one int
	err := r.pool.QueryRow(ctx, `SELECT 1 FROM `+table+` WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sessionRepo.Exists: %w", err)
	}
	return true, nil
}

// ListAll — объединённый список admin- и dean-сессий для аудита, включая отозванные.
func (r *SessionRepository) ListAll(ctx context.Context) ([]model.Session, error) {
	defer logger.DeferLogDuration("session.ListAll", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, 'admin' AS kind, role, access_key_token, device_info, ip_address, created_at, last_seen_at, revoked_at
		 FROM admin_sessions
		 UNION ALL
		 SELECT id, 'dean', 'Dean', NULL, device_info, ip_address, created_at, last_seen_at, revoked_at
		 FROM dean_sessions
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("sessionRepo.ListAll: %w", err)
	}
	defer rows.Close()
	var list []model.Session
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(&s.ID, &s.Kind, &s.Role, &s.AccessKeyToken, &s.DeviceInfo, &s.IPAddress, &s.CreatedAt, &s.LastSeenAt, &s.RevokedAt); err != nil {
			return nil, fmt.Errorf("sessionRepo.ListAll scan: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
