// Package migration imports the data files of the legacy Python
// deployment into Postgres: the titles_state.json snapshot (active
// shifts, pending schedule slots, shift hours) and the requests.csv
// audit log. Every insert is conflict-ignoring so reruns are safe.
package migration

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/uptrace/bun"

	"github.com/harmonyhold/titlewarden/titlewarden/database/models"
)

const csvTimeLayout = "2006-01-02 15:04:05"

type Migrator struct {
	pgDB      *bun.DB
	statePath string
	csvPath   string
	stats     MigrationStats
}

func NewMigrator(pgDB *bun.DB, dataDir string) *Migrator {
	return &Migrator{
		pgDB:      pgDB,
		statePath: filepath.Join(dataDir, "titles_state.json"),
		csvPath:   filepath.Join(dataDir, "requests.csv"),
	}
}

// MigrateAll runs every import step in order and returns the
// accumulated counters.
func (m *Migrator) MigrateAll(ctx context.Context) (MigrationStats, error) {
	steps := []struct {
		name    string
		migrate func(context.Context) error
	}{
		{"state", m.ImportState},
		{"request_log", m.ImportRequestLog},
	}

	for _, step := range steps {
		slog.Info("Starting migration step", slog.String("step", step.name))
		if err := step.migrate(ctx); err != nil {
			return m.stats, fmt.Errorf("migration failed at step %s: %w", step.name, err)
		}
		slog.Info("Completed migration step", slog.String("step", step.name))
	}
	return m.stats, nil
}

// ImportState loads titles_state.json and imports shift hours, active
// shifts and pending schedule slots. A missing file is not an error;
// there is simply nothing to import.
func (m *Migrator) ImportState(ctx context.Context) error {
	data, err := os.ReadFile(m.statePath)
	if os.IsNotExist(err) {
		slog.Info("State file not found, skipping", slog.String("path", m.statePath))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var state legacyState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to parse state file: %w", err)
	}

	if err := m.importShiftHours(ctx, state.Config); err != nil {
		return err
	}
	if err := m.importShifts(ctx, state.Titles); err != nil {
		return err
	}
	return m.importSchedules(ctx, state)
}

func (m *Migrator) importShiftHours(ctx context.Context, cfg legacyConfig) error {
	hours := cfg.ShiftHours
	if hours < models.MinShiftHours || hours > models.MaxShiftHours {
		return nil
	}

	setting := &models.Setting{
		Key:   models.SettingShiftHours,
		Value: strconv.Itoa(hours),
	}
	_, err := m.pgDB.NewInsert().
		Model(setting).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to import shift hours: %w", err)
	}
	return nil
}

func (m *Migrator) importShifts(ctx context.Context, titles map[string]legacyTitle) error {
	for name, entry := range titles {
		if entry.Holder == nil || entry.Holder.Name == "" {
			continue
		}

		claimedAt, ok := parseLegacyTime(entry.ClaimDate)
		if !ok {
			m.stats.Skipped++
			slog.Warn("Skipping shift with unparseable claim date",
				slog.String("title", name))
			continue
		}

		shift := &models.TitleShift{
			TitleName:    name,
			HolderIGN:    entry.Holder.Name,
			HolderCoords: coordsOrDash(entry.Holder.Coords),
			ClaimedAt:    claimedAt,
			UpdatedAt:    time.Now().UTC(),
		}
		if expiresAt, ok := parseLegacyTime(entry.ExpiryDate); ok {
			shift.ExpiresAt = &expiresAt
		}

		_, err := m.pgDB.NewInsert().
			Model(shift).
			On("CONFLICT (title_name) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to import shift for %q: %w", name, err)
		}
		m.stats.ShiftsImported++
	}
	return nil
}

func (m *Migrator) importSchedules(ctx context.Context, state legacyState) error {
	for title, slots := range state.Schedules {
		for slotKey, entry := range slots {
			if entry.IGN == "" {
				m.stats.Skipped++
				continue
			}

			slotAt, err := time.ParseInLocation("2006-01-02T15:04:05", slotKey, time.UTC)
			if err != nil {
				m.stats.Skipped++
				slog.Warn("Skipping schedule slot with unparseable key",
					slog.String("title", title),
					slog.String("slot", slotKey))
				continue
			}

			status := models.ReservationStatusBooked
			if state.Activated[title][slotKey] {
				status = models.ReservationStatusConsumed
			}

			reservation := &models.Reservation{
				TitleName: title,
				IGN:       entry.IGN,
				Coords:    coordsOrDash(entry.Coords),
				SlotAt:    slotAt,
				Status:    status,
				CreatedAt: time.Now().UTC(),
			}

			_, err = m.pgDB.NewInsert().
				Model(reservation).
				On("CONFLICT (title_name, slot_at) DO NOTHING").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to import reservation %s %s: %w", title, slotKey, err)
			}
			m.stats.ReservationsImported++
		}
	}
	return nil
}

// ImportRequestLog appends the rows of requests.csv to the request_log
// table. The legacy columns are timestamp, title_name, in_game_name,
// coordinates, discord_user.
func (m *Migrator) ImportRequestLog(ctx context.Context) error {
	file, err := os.Open(m.csvPath)
	if os.IsNotExist(err) {
		slog.Info("Request log not found, skipping", slog.String("path", m.csvPath))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open request log: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read request log: %w", err)
		}
		if header {
			header = false
			if len(record) > 0 && record[0] == "timestamp" {
				continue
			}
		}
		if len(record) < 5 {
			m.stats.Skipped++
			continue
		}

		loggedAt, err := time.ParseInLocation(csvTimeLayout, record[0], time.UTC)
		if err != nil {
			m.stats.Skipped++
			continue
		}

		row := &models.RequestLog{
			LoggedAt:  loggedAt,
			TitleName: record[1],
			IGN:       record[2],
			Coords:    coordsOrDash(record[3]),
			Actor:     record[4],
			Source:    "Legacy Import",
		}
		if _, err := m.pgDB.NewInsert().Model(row).Exec(ctx); err != nil {
			return fmt.Errorf("failed to import log row: %w", err)
		}
		m.stats.LogRowsImported++
	}
	return nil
}

// parseLegacyTime accepts the ISO-8601 variants the Python app wrote
// over its lifetime, with and without offset.
func parseLegacyTime(value *string) (time.Time, bool) {
	if value == nil || *value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05.999999",
	} {
		if t, err := time.ParseInLocation(layout, *value, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func coordsOrDash(coords string) string {
	if coords == "" {
		return "-"
	}
	return coords
}
