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

const newsCols = `id, title, body, image_url, is_published, created_by, created_at, updated_at`

type NewsRepository struct {
	pool *pgxpool.Pool
}

func NewNewsRepository(pool *pgxpool.Pool) *NewsRepository {
	return &NewsRepository{pool: pool}
}

func scanNews(s interface{ Scan(dest ...any) error }, n *model.News) error {
	return s.Scan(&n.ID, &n.Title, &n.Body, &n.ImageURL, &n.IsPublished, &n.CreatedBy, &n.CreatedAt, &n.UpdatedAt)
}

func (r *NewsRepository) Create(ctx context.Context, n *model.News) error {
	defer logger.DeferLogDuration("news.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO news (id, title, body, image_url, is_published, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.Title, n.Body, n.ImageURL, n.IsPublished, n.CreatedBy, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("newsRepo.Create: %w", err)
	}
	return nil
}

func (r *NewsRepository) GetByID(ctx context.Context, id string) (*model.News, error) {
	defer logger.DeferLogDuration("news.GetByID", time.Now())()
	n := &model.News{}
	row := r.pool.QueryRow(ctx, `SELECT `+newsCols+` FROM news WHERE id = $1`, id)
	if err := scanNews(row, n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("newsRepo.GetByID: %w", err)
	}
	return n, nil
}

// List возвращает новости, свежие сверху. publishedOnly — для публичной ленты.
func (r *NewsRepository) List(ctx context.Context, publishedOnly bool, limit int) ([]model.News, error) {
	defer logger.DeferLogDuration("news.List", time.Now())()
	q := `SELECT ` + newsCols + ` FROM news`
	if publishedOnly {
		q += ` WHERE is_published`
	}
	q += ` ORDER BY created_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("newsRepo.List: %w", err)
	}
	defer rows.Close()
	list := make([]model.News, 0, limit)
	for rows.Next() {
		var n model.News
		if err := scanNews(rows, &n); err != nil {
			return nil, fmt.Errorf("newsRepo.List scan: %w", err)
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

func (r *NewsRepository) Update(ctx context.Context, n *model.News) error {
	defer logger.DeferLogDuration("news.Update", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE news SET title = $1, body = $2, image_url = $3, is_published = $4, updated_at = $5 WHERE id = $6`,
		n.Title, n.Body, n.ImageURL, n.IsPublished, n.UpdatedAt, n.ID,
	)
	if err != nil {
		return fmt.Errorf("newsRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *NewsRepository) Delete(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("news.Delete", time.Now())()
	tag, err := r.pool.Exec(ctx, `DELETE FROM news WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("newsRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
