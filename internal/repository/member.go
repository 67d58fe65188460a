package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/unionportal/internal/logger"
	"github.com/unionportal/internal/model"
)

type MemberRepository struct {
	pool *pgxpool.Pool
}

func NewMemberRepository(pool *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{pool: pool}
}

func (r *MemberRepository) Create(ctx context.Context, m *model.Member) error {
	defer logger.DeferLogDuration("member.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO members (id, name, title, photo_url, socials, sort_order, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.Name, m.Title, m.PhotoURL, m.Socials, m.SortOrder, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("memberRepo.Create: %w", err)
	}
	return nil
}

func (r *MemberRepository) List(ctx context.Context) ([]model.Member, error) {
	defer logger.DeferLogDuration("member.List", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, title, photo_url, socials, sort_order, created_at
		 FROM members ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("memberRepo.List: %w", err)
	}
	defer rows.Close()
	var list []model.Member
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Title, &m.PhotoURL, &m.Socials, &m.SortOrder, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("memberRepo.List scan: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *MemberRepository) Update(ctx context.Context, m *model.Member) error {
	defer logger.DeferLogDuration("member.Update", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE members SET name = $1, title = $2, photo_url = $3, socials = $4, sort_order = $5 WHERE id = $6`,
		m.Name, m.Title, m.PhotoURL, m.Socials, m.SortOrder, m.ID,
	)
	if err != nil {
		return fmt.Errorf("memberRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MemberRepository) Delete(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("member.Delete", time.Now())()
	tag, err := r.pool.Exec(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("memberRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
