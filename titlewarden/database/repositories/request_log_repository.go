package repositories

import (
	"context"
	"fmt"

	"github.com/harmonyhold/titlewarden/titlewarden/database/models"
	"github.com/uptrace/bun"
)

type RequestLogRepository interface {
	Append(ctx context.Context, entry *models.RequestLog) error
	Recent(ctx context.Context, limit int) ([]*models.RequestLog, error)
}

type requestLogRepository struct {
	db *bun.DB
}

func NewRequestLogRepository(db *bun.DB) RequestLogRepository {
	return &requestLogRepository{db: db}
}

func (r *requestLogRepository) Append(ctx context.Context, entry *models.RequestLog) error {
	_, err := r.db.NewInsert().Model(entry).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to append request log: %w", err)
	}
	return nil
}

func (r *requestLogRepository) Recent(ctx context.Context, limit int) ([]*models.RequestLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []*models.RequestLog
	err := r.db.NewSelect().
		Model(&entries).
		Order("logged_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read request log: %w", err)
	}
	return entries, nil
}
