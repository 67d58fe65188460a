package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/unionportal/internal/logger"
	"github.com/unionportal/internal/model"
)

type TimelineRepository struct {
	pool *pgxpool.Pool
}

func NewTimelineRepository(pool *pgxpool.Pool) *TimelineRepository {
	return &TimelineRepository{pool: pool}
}

func (r *TimelineRepository) Create(ctx context.Context, m *model.Milestone) error {
	defer logger.DeferLogDuration("timeline.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO timeline (id, year, title, body, sort_order, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.Year, m.Title, m.Body, m.SortOrder, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("timelineRepo.Create: %w", err)
	}
	return nil
}

func (r *TimelineRepository) List(ctx context.Context) ([]model.Milestone, error) {
	defer logger.DeferLogDuration("timeline.List", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, year, title, body, sort_order, created_at
		 FROM timeline ORDER BY year, sort_order`)
	if err != nil {
		return nil, fmt.Errorf("timelineRepo.List: %w", err)
	}
	defer rows.Close()
	var list []model.Milestone
	for rows.Next() {
		var m model.Milestone
		if err := rows.Scan(&m.ID, &m.Year, &m.Title, &m.Body, &m.SortOrder, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("timelineRepo.List scan: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *TimelineRepository) Update(ctx context.Context, m *model.Milestone) error {
	defer logger.DeferLogDuration("timeline.Update", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE timeline SET year = $1, title = $2, body = $3, sort_order = $4 WHERE id = $5`,
		m.Year, m.Title, m.Body, m.SortOrder, m.ID,
	)
	if err != nil {
		return fmt.Errorf("timelineRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TimelineRepository) Delete(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("timeline.Delete", time.Now())()
	tag, err := r.pool.Exec(ctx, `DELETE FROM timeline WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("timelineRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
