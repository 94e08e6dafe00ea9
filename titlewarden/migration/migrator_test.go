package migration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateAllMissingFiles(t *testing.T) {
	// Both legacy files absent: every step skips and the counters stay
	// zero without touching the database.
	m := NewMigrator(nil, t.TempDir())
	stats, err := m.MigrateAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats)
}

func TestLegacySlotUnmarshal(t *testing.T) {
	t.Run("object form", func(t *testing.T) {
		var slot legacySlot
		require.NoError(t, json.Unmarshal([]byte(`{"ign":"katara","coords":"123:456"}`), &slot))
		assert.Equal(t, "katara", slot.IGN)
		assert.Equal(t, "123:456", slot.Coords)
	})

	t.Run("bare string form", func(t *testing.T) {
		var slot legacySlot
		require.NoError(t, json.Unmarshal([]byte(`"sokka"`), &slot))
		assert.Equal(t, "sokka", slot.IGN)
		assert.Equal(t, "-", slot.Coords)
	})

	t.Run("object without coords defaults to dash", func(t *testing.T) {
		var slot legacySlot
		require.NoError(t, json.Unmarshal([]byte(`{"ign":"toph"}`), &slot))
		assert.Equal(t, "-", slot.Coords)
	})
}

func TestParseLegacyTime(t *testing.T) {
	for _, tc := range []struct {
		name  string
		value string
		want  time.Time
	}{
		{"with offset", "2025-06-01T12:00:00+00:00", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		{"naive", "2025-06-01T12:00:00", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		{"with microseconds", "2025-06-01T12:00:00.123456", time.Date(2025, 6, 1, 12, 0, 0, 123456000, time.UTC)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseLegacyTime(&tc.value)
			require.True(t, ok)
			assert.True(t, tc.want.Equal(got))
		})
	}

	t.Run("nil and empty", func(t *testing.T) {
		_, ok := parseLegacyTime(nil)
		assert.False(t, ok)

		empty := ""
		_, ok = parseLegacyTime(&empty)
		assert.False(t, ok)
	})

	t.Run("garbage", func(t *testing.T) {
		bad := "not a timestamp"
		_, ok := parseLegacyTime(&bad)
		assert.False(t, ok)
	})
}
