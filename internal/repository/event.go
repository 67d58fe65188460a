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

const eventCols = `id, title, description, location, image_url, starts_at, ends_at, created_by, created_at, updated_at`

type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func scanEvent(s interface{ Scan(dest ...any) error }, e *model.Event) error {
	return s.Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.ImageURL, &e.StartsAt, &e.EndsAt, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
}

func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	defer logger.DeferLogDuration("event.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO events (id, title, description, location, image_url, starts_at, ends_at, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.Title, e.Description, e.Location, e.ImageURL, e.StartsAt, e.EndsAt, e.CreatedBy, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("eventRepo.Create: %w", err)
	}
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	defer logger.DeferLogDuration("event.GetByID", time.Now())()
	e := &model.Event{}
	row := r.pool.QueryRow(ctx, `SELECT `+eventCols+` FROM events WHERE id = $1`, id)
	if err := scanEvent(row, e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("eventRepo.GetByID: %w", err)
	}
	return e, nil
}

// List: upcomingOnly — только события с starts_at в будущем (публичная страница).
func (r *EventRepository) List(ctx context.Context, upcomingOnly bool, limit int) ([]model.Event, error) {
	defer logger.DeferLogDuration("event.List", time.Now())()
	q := `SELECT ` + eventCols + ` FROM events`
	if upcomingOnly {
		q += ` WHERE starts_at > NOW()`
	}
	q += ` ORDER BY starts_at LIMIT $1`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("eventRepo.List: %w", err)
	}
	defer rows.Close()
	list := make([]model.Event, 0, limit)
	for rows.Next() {
		var e model.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, fmt.Errorf("eventRepo.List scan: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func (r *EventRepository) Update(ctx context.Context, e *model.Event) error {
	defer logger.DeferLogDuration("event.Update", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE events SET title = $1, description = $2, location = $3, image_url = $4, starts_at = $5, ends_at = $6, updated_at = $7 WHERE id = $8`,
		e.Title, e.Description, e.Location, e.ImageURL, e.StartsAt, e.EndsAt, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return fmt.Errorf("eventRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *EventRepository) Delete(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("event.Delete", time.Now())()
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("eventRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
