package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/harmonyhold/titlewarden/titlewarden/database/models"
	"github.com/uptrace/bun"
)

type ShiftRepository interface {
	All(ctx context.Context) ([]*models.TitleShift, error)
	Get(ctx context.Context, titleName string) (*models.TitleShift, error)
	// Upsert installs or replaces the active shift for a title.
	Upsert(ctx context.Context, shift *models.TitleShift) error
	// Release removes the active shift. Releasing a vacant title is a
	// no-op reporting false.
	Release(ctx context.Context, titleName string) (bool, error)
	// Expired returns held shifts whose deadline has passed.
	Expired(ctx context.Context, now time.Time) ([]*models.TitleShift, error)
}

type shiftRepository struct {
	db *bun.DB
}

func NewShiftRepository(db *bun.DB) ShiftRepository {
	return &shiftRepository{db: db}
}

func (r *shiftRepository) All(ctx context.Context) ([]*models.TitleShift, error) {
	var shifts []*models.TitleShift
	err := r.db.NewSelect().
		Model(&shifts).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list title shifts: %w", err)
	}
	return shifts, nil
}

func (r *shiftRepository) Get(ctx context.Context, titleName string) (*models.TitleShift, error) {
	shift := new(models.TitleShift)
	err := r.db.NewSelect().
		Model(shift).
		Where("title_name = ?", titleName).
		Scan(ctx)
	return scanOne(shift, err)
}

func (r *shiftRepository) Upsert(ctx context.Context, shift *models.TitleShift) error {
	shift.ClaimedAt = shift.ClaimedAt.UTC()
	if shift.ExpiresAt != nil {
		expires := shift.ExpiresAt.UTC()
		shift.ExpiresAt = &expires
	}
	shift.UpdatedAt = time.Now().UTC()

	_, err := r.db.NewInsert().
		Model(shift).
		On("CONFLICT (title_name) DO UPDATE").
		Set("holder_ign = EXCLUDED.holder_ign").
		Set("holder_coords = EXCLUDED.holder_coords").
		Set("claimed_at = EXCLUDED.claimed_at").
		Set("expires_at = EXCLUDED.expires_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert shift for %q: %w", shift.TitleName, err)
	}
	return nil
}

func (r *shiftRepository) Release(ctx context.Context, titleName string) (bool, error) {
	result, err := r.db.NewDelete().
		Model((*models.TitleShift)(nil)).
		Where("title_name = ?", titleName).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to release %q: %w", titleName, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *shiftRepository) Expired(ctx context.Context, now time.Time) ([]*models.TitleShift, error) {
	var shifts []*models.TitleShift
	err := r.db.NewSelect().
		Model(&shifts).
		Where("expires_at IS NOT NULL").
		Where("expires_at <= ?", now.UTC()).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired shifts: %w", err)
	}
	return shifts, nil
}
