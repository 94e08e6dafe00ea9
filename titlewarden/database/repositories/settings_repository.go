package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/harmonyhold/titlewarden/titlewarden/database/models"
	"github.com/uptrace/bun"
)

type SettingsRepository interface {
	// ShiftHours returns the configured shift duration. A missing,
	// corrupt, or out-of-range value yields the default, never an error.
	ShiftHours(ctx context.Context) int
	SetShiftHours(ctx context.Context, hours int) error
}

type settingsRepository struct {
	db *bun.DB
}

func NewSettingsRepository(db *bun.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) ShiftHours(ctx context.Context) int {
	setting := new(models.Setting)
	err := r.db.NewSelect().
		Model(setting).
		Where("key = ?", models.SettingShiftHours).
		Scan(ctx)
	if err != nil {
		return models.DefaultShiftHours
	}

	hours, err := strconv.Atoi(strings.TrimSpace(setting.Value))
	if err != nil || hours < models.MinShiftHours || hours > models.MaxShiftHours {
		return models.DefaultShiftHours
	}
	return hours
}

func (r *settingsRepository) SetShiftHours(ctx context.Context, hours int) error {
	setting := &models.Setting{
		Key:   models.SettingShiftHours,
		Value: strconv.Itoa(hours),
	}
	_, err := r.db.NewInsert().
		Model(setting).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to persist shift hours: %w", err)
	}
	return nil
}

// scanOne is shared by the repositories that treat "no row" as a nil
// result rather than an error.
func scanOne[T any](model *T, err error) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model, nil
}
