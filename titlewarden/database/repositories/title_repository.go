package repositories

import (
	"context"
	"fmt"

	"github.com/harmonyhold/titlewarden/titlewarden/database/models"
	"github.com/uptrace/bun"
)

type TitleRepository interface {
	All(ctx context.Context) ([]*models.Title, error)
	ByName(ctx context.Context, name string) (*models.Title, error)
	RequestableNames(ctx context.Context) ([]string, error)
	SetRequestable(ctx context.Context, name string, requestable bool) (bool, error)
}

type titleRepository struct {
	db *bun.DB
}

func NewTitleRepository(db *bun.DB) TitleRepository {
	return &titleRepository{db: db}
}

func (r *titleRepository) All(ctx context.Context) ([]*models.Title, error) {
	var titles []*models.Title
	err := r.db.NewSelect().
		Model(&titles).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list titles: %w", err)
	}
	return titles, nil
}

func (r *titleRepository) ByName(ctx context.Context, name string) (*models.Title, error) {
	title := new(models.Title)
	err := r.db.NewSelect().
		Model(title).
		Where("name = ?", name).
		Scan(ctx)
	return scanOne(title, err)
}

func (r *titleRepository) RequestableNames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.NewSelect().
		Model((*models.Title)(nil)).
		Column("name").
		Where("requestable = true").
		Order("id ASC").
		Scan(ctx, &names)
	if err != nil {
		return nil, fmt.Errorf("failed to list requestable titles: %w", err)
	}
	return names, nil
}

func (r *titleRepository) SetRequestable(ctx context.Context, name string, requestable bool) (bool, error) {
	result, err := r.db.NewUpdate().
		Model((*models.Title)(nil)).
		Set("requestable = ?", requestable).
		Where("name = ?", name).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to update title %q: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
