// Package scheduling holds the slot-grid arithmetic shared by the
// reservation engine, the activation scheduler, and both front ends.
// All instants are canonicalized to UTC with seconds zeroed before they
// are compared or stored.
package scheduling

import (
	"fmt"
	"time"
)

// FallbackShiftHours is substituted for grid computation whenever the
// configured shift length does not divide a day evenly. Without it a
// grid such as "every 5 hours" drifts across day boundaries and
// yesterday's reservations stop lining up with today's columns.
const FallbackShiftHours = 12

// CanonicalSlot normalizes an instant to its canonical slot form:
// UTC, seconds and sub-seconds zeroed.
func CanonicalSlot(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

// SlotKey renders the canonical join key used between the grid and
// stored reservations: "YYYY-MM-DDTHH:MM:SS", UTC, no offset suffix.
func SlotKey(t time.Time) string {
	return CanonicalSlot(t).Format("2006-01-02T15:04:05")
}

// ParseSlotKey parses a SlotKey back into a canonical UTC instant.
func ParseSlotKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02T15:04:05", key, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slot key %q: %w", key, err)
	}
	return t, nil
}

// normalizeShiftHours applies the fallback rule. The persisted config is
// never touched here; only the grid derivation degrades.
func normalizeShiftHours(shiftHours int) int {
	if shiftHours <= 0 || 24%shiftHours != 0 {
		return FallbackShiftHours
	}
	return shiftHours
}

// Grid returns the valid daily slot-start times as "HH:MM" strings,
// every shiftHours starting at 00:00 UTC. Shift lengths that do not
// divide 24 evenly degrade to the 12-hour grid.
func Grid(shiftHours int) []string {
	sh := normalizeShiftHours(shiftHours)

	slots := make([]string, 0, 24/sh)
	for h := 0; h < 24; h += sh {
		slots = append(slots, fmt.Sprintf("%02d:00", h))
	}
	return slots
}

// OnGrid reports whether t's UTC time-of-day is one of the grid's slot
// starts for the given shift length.
func OnGrid(t time.Time, shiftHours int) bool {
	hhmm := CanonicalSlot(t).Format("15:04")
	for _, slot := range Grid(shiftHours) {
		if slot == hhmm {
			return true
		}
	}
	return false
}

// ShiftDuration converts the configured shift length into an expiry
// duration. No grid fallback here: a 5-hour shift still expires after 5
// hours even though its slots were validated against the fallback grid.
// The settings store already bounds the value to [1,72].
func ShiftDuration(shiftHours int) time.Duration {
	if shiftHours <= 0 {
		shiftHours = FallbackShiftHours
	}
	return time.Duration(shiftHours) * time.Hour
}
