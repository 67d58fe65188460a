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

var ErrNotFound = errors.New("not found")

// DeanConfigRepository работает с единственной записью dean_config (id = 'config').
type DeanConfigRepository struct {
	pool *pgxpool.Pool
}

func NewDeanConfigRepository(pool *pgxpool.Pool) *DeanConfigRepository {
	return &DeanConfigRepository{pool: pool}
}

func (r *DeanConfigRepository) Get(ctx context.Context) (*model.DeanConfig, error) {
	defer logger.DeferLogDuration("deanConfig.Get", time.Now())()
	c := &model.DeanConfig{}
	row := r.pool.QueryRow(ctx,
		`SELECT id, master_key_hash, security_question, security_answer_hash, backup_code_hash, last_changed
		 FROM dean_config WHERE id = $1`, model.DeanConfigID)
	err := row.Scan(&c.ID, &c.MasterKeyHash, &c.SecurityQuestion, &c.SecurityAnswerHash, &c.BackupCodeHash, &c.LastChanged)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("deanConfigRepo.Get: %w", err)
	}
	return c, nil
}

// Create вставляет запись конфига один раз при провижининге. Повторная вставка не перезаписывает.
func (r *DeanConfigRepository) Create(ctx context.Context, c *model.DeanConfig) error {
	defer logger.DeferLogDuration("deanConfig.Create", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO dean_config (id, master_key_hash, security_question, security_answer_hash, backup_code_hash, last_changed)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		model.DeanConfigID, c.MasterKeyHash, c.SecurityQuestion, c.SecurityAnswerHash, c.BackupCodeHash, c.LastChanged,
	)
	if err != nil {
		return fmt.Errorf("deanConfigRepo.Create: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deanConfigRepo.Create: config already seeded")
	}
	return nil
}

// UpdateMasterKey меняет хэш мастер-ключа и проставляет last_changed.
func (r *DeanConfigRepository) UpdateMasterKey(ctx context.Context, hash string, at time.Time) error {
	defer logger.DeferLogDuration("deanConfig.UpdateMasterKey", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE dean_config SET master_key_hash = $1, last_changed = $2 WHERE id = $3`,
		hash, at, model.DeanConfigID,
	)
	if err != nil {
		return fmt.Errorf("deanConfigRepo.UpdateMasterKey: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSecurity меняет секретный вопрос и хэш ответа.
func (r *DeanConfigRepository) UpdateSecurity(ctx context.Context, question, answerHash string) error {
	defer logger.DeferLogDuration("deanConfig.UpdateSecurity", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE dean_config SET security_question = $1, security_answer_hash = $2 WHERE id = $3`,
		question, answerHash, model.DeanConfigID,
	)
	if err != nil {
		return fmt.Errorf("deanConfigRepo.UpdateSecurity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateBackupCode заменяет хэш резервного кода. Старый код недействителен сразу после записи.
func (r *DeanConfigRepository) UpdateBackupCode(ctx context.Context, hash string) error {
	defer logger.DeferLogDuration("deanConfig.UpdateBackupCode", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE dean_config SET backup_code_hash = $1 WHERE id = $2`,
		hash, model.DeanConfigID,
	)
	if err != nil {
		return fmt.Errorf("deanConfigRepo.UpdateBackupCode: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
