package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid(t *testing.T) {
	tests := []struct {
		name       string
		shiftHours int
		want       []string
	}{
		{
			name:       "12 hour shifts",
			shiftHours: 12,
			want:       []string{"00:00", "12:00"},
		},
		{
			name:       "6 hour shifts",
			shiftHours: 6,
			want:       []string{"00:00", "06:00", "12:00", "18:00"},
		},
		{
			name:       "8 hour shifts",
			shiftHours: 8,
			want:       []string{"00:00", "08:00", "16:00"},
		},
		{
			name:       "24 hour shifts",
			shiftHours: 24,
			want:       []string{"00:00"},
		},
		{
			name:       "1 hour shifts produce 24 slots",
			shiftHours: 1,
			want: []string{
				"00:00", "01:00", "02:00", "03:00", "04:00", "05:00",
				"06:00", "07:00", "08:00", "09:00", "10:00", "11:00",
				"12:00", "13:00", "14:00", "15:00", "16:00", "17:00",
				"18:00", "19:00", "20:00", "21:00", "22:00", "23:00",
			},
		},
		{
			name:       "5 does not divide 24, falls back to 12",
			shiftHours: 5,
			want:       []string{"00:00", "12:00"},
		},
		{
			name:       "7 does not divide 24, falls back to 12",
			shiftHours: 7,
			want:       []string{"00:00", "12:00"},
		},
		{
			name:       "zero falls back to 12",
			shiftHours: 0,
			want:       []string{"00:00", "12:00"},
		},
		{
			name:       "negative falls back to 12",
			shiftHours: -3,
			want:       []string{"00:00", "12:00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Grid(tt.shiftHours))
		})
	}
}

func TestGridEvenDivisorsSpacing(t *testing.T) {
	for _, h := range []int{1, 2, 3, 4, 6, 8, 12, 24} {
		slots := Grid(h)
		require.Len(t, slots, 24/h, "shift hours %d", h)
		for i, slot := range slots {
			assert.Equalf(t, time.Duration(i*h)*time.Hour, mustClock(t, slot),
				"slot %d of grid(%d)", i, h)
		}
	}
}

func mustClock(t *testing.T, hhmm string) time.Duration {
	t.Helper()
	parsed, err := time.Parse("15:04", hhmm)
	require.NoError(t, err)
	return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute
}

func TestCanonicalSlot(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	raw := time.Date(2025, 6, 1, 15, 0, 42, 981234567, loc)

	got := CanonicalSlot(raw)

	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), got)
}

func TestSlotKeyRoundTrip(t *testing.T) {
	slot := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	key := SlotKey(slot)
	assert.Equal(t, "2025-06-02T12:00:00", key)

	parsed, err := ParseSlotKey(key)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(slot))
}

func TestParseSlotKeyRejectsGarbage(t *testing.T) {
	_, err := ParseSlotKey("not-a-slot")
	assert.Error(t, err)
}

func TestOnGrid(t *testing.T) {
	midnight := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	noon := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	six := time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC)

	assert.True(t, OnGrid(midnight, 12))
	assert.True(t, OnGrid(noon, 12))
	assert.False(t, OnGrid(six, 12))
	assert.True(t, OnGrid(six, 6))

	// Non-divisor shift lengths validate against the fallback grid.
	assert.True(t, OnGrid(noon, 5))
	assert.False(t, OnGrid(six, 5))

	// Zone-shifted inputs are judged by their UTC clock.
	plusThree := time.FixedZone("UTC+3", 3*3600)
	assert.True(t, OnGrid(time.Date(2025, 6, 2, 15, 0, 0, 0, plusThree), 12))
}

func TestShiftDuration(t *testing.T) {
	assert.Equal(t, 12*time.Hour, ShiftDuration(12))
	// Expiry keeps the raw configured length even off-grid.
	assert.Equal(t, 5*time.Hour, ShiftDuration(5))
	assert.Equal(t, 12*time.Hour, ShiftDuration(0))
}
