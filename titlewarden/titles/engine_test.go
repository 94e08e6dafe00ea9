package titles

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonyhold/titlewarden/titlewarden/notifier"
)

// baseTime is a fixed noon-UTC anchor so grid slots land predictably.
var baseTime = time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

func nextSlot(f *fixture) time.Time {
	// With the default 12h grid the next slot after 10:30 is 12:00.
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestReserveValidationOrder(t *testing.T) {
	f := newFixture(baseTime)
	ctx := context.Background()

	t.Run("past time wins over everything", func(t *testing.T) {
		// Off-grid, bad coords, unknown title: past time still reported first.
		_, err := f.engine.Reserve(ctx, ReserveRequest{
			Title:   "No Such Title",
			IGN:     "aang",
			Coords:  "bogus",
			StartAt: baseTime.Add(-time.Hour),
		})
		assert.ErrorIs(t, err, ErrPastTime)
	})

	t.Run("start equal to now is past", func(t *testing.T) {
		_, err := f.engine.Reserve(ctx, ReserveRequest{
			Title:   "General",
			IGN:     "aang",
			Coords:  "1:2",
			StartAt: baseTime,
		})
		assert.ErrorIs(t, err, ErrPastTime)
	})

	t.Run("off-grid time lists valid slots", func(t *testing.T) {
		_, err := f.engine.Reserve(ctx, ReserveRequest{
			Title:   "General",
			IGN:     "aang",
			Coords:  "bogus",
			StartAt: time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC),
		})
		var slotErr *InvalidSlotError
		require.ErrorAs(t, err, &slotErr)
		assert.Equal(t, []string{"00:00", "12:00"}, slotErr.Valid)
	})

	t.Run("bad coordinates after grid check", func(t *testing.T) {
		_, err := f.engine.Reserve(ctx, ReserveRequest{
			Title:   "No Such Title",
			IGN:     "aang",
			Coords:  "bogus",
			StartAt: nextSlot(f),
		})
		assert.ErrorIs(t, err, ErrInvalidCoordinates)
	})

	t.Run("unknown title", func(t *testing.T) {
		_, err := f.engine.Reserve(ctx, ReserveRequest{
			Title:   "No Such Title",
			IGN:     "aang",
			Coords:  "1:2",
			StartAt: nextSlot(f),
		})
		assert.ErrorIs(t, err, ErrUnknownTitle)
	})

	t.Run("non-requestable title", func(t *testing.T) {
		_, err := f.engine.Reserve(ctx, ReserveRequest{
			Title:   NonExpiringTitle,
			IGN:     "aang",
			Coords:  "1:2",
			StartAt: nextSlot(f),
		})
		assert.ErrorIs(t, err, ErrNotRequestable)
	})
}

func TestReserveCoordinates(t *testing.T) {
	f := newFixture(baseTime)
	ctx := context.Background()

	tests := []struct {
		name    string
		coords  string
		want    string
		wantErr bool
	}{
		{name: "plain pair", coords: "123:456", want: "123:456"},
		{name: "spaced pair", coords: " 12 : 34 ", want: "12 : 34"},
		{name: "placeholder", coords: "-", want: "-"},
		{name: "empty defaults to placeholder", coords: "", want: "-"},
		{name: "missing half", coords: "123:", wantErr: true},
		{name: "letters", coords: "abc:def", wantErr: true},
		{name: "negative", coords: "-1:5", wantErr: true},
	}

	slot := nextSlot(f)
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Spread across days so bookings never collide.
			start := slot.AddDate(0, 0, i)
			reservation, err := f.engine.Reserve(ctx, ReserveRequest{
				Title:   "General",
				IGN:     "aang",
				Coords:  tt.coords,
				StartAt: start,
			})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCoordinates)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, reservation.Coords)
		})
	}
}

func TestReserveIdempotentRetry(t *testing.T) {
	f := newFixture(baseTime)
	ctx := context.Background()
	slot := nextSlot(f)

	first, err := f.engine.Reserve(ctx, ReserveRequest{
		Title: "General", IGN: "aang", Coords: "1:2", StartAt: slot,
	})
	require.NoError(t, err)

	second, err := f.engine.Reserve(ctx, ReserveRequest{
		Title: "General", IGN: "aang", Coords: "1:2", StartAt: slot,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// Exactly one row, one log entry, one notification.
	assert.Len(t, f.state.reservations, 1)
	assert.Len(t, f.state.requestLog, 1)
	assert.Len(t, f.sink.ofKind(notifier.EventReservation), 1)
}

func TestReserveConflicts(t *testing.T) {
	f := newFixture(baseTime)
	ctx := context.Background()
	slot := nextSlot(f)

	_, err := f.engine.Reserve(ctx, ReserveRequest{
		Title: "General", IGN: "aang", Coords: "1:2", StartAt: slot,
	})
	require.NoError(t, err)

	t.Run("different ign", func(t *testing.T) {
		_, err := f.engine.Reserve(ctx, ReserveRequest{
			Title: "General", IGN: "zuko", Coords: "1:2", StartAt: slot,
		})
		var taken *SlotTakenError
		require.ErrorAs(t, err, &taken)
		assert.Equal(t, "aang", taken.Holder)
	})

	t.Run("same ign different coords", func(t *testing.T) {
		_, err := f.engine.Reserve(ctx, ReserveRequest{
			Title: "General", IGN: "aang", Coords: "9:9", StartAt: slot,
		})
		var taken *SlotTakenError
		require.ErrorAs(t, err, &taken)
		assert.Equal(t, "aang", taken.Holder)
	})

	t.Run("same slot other title is free", func(t *testing.T) {
		_, err := f.engine.Reserve(ctx, ReserveRequest{
			Title: "Prefect", IGN: "zuko", Coords: "1:2", StartAt: slot,
		})
		assert.NoError(t, err)
	})
}

func TestReserveConcurrentClaims(t *testing.T) {
	f := newFixture(baseTime)
	slot := nextSlot(f)
	igns := []string{"aang", "katara", "sokka", "toph", "zuko", "iroh", "azula", "suki"}

	var wg sync.WaitGroup
	results := make([]error, len(igns))
	for i, ign := range igns {
		wg.Add(1)
		go func(i int, ign string) {
			defer wg.Done()
			_, results[i] = f.engine.Reserve(context.Background(), ReserveRequest{
				Title: "General", IGN: ign, Coords: "1:2", StartAt: slot,
			})
		}(i, ign)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
			continue
		}
		var taken *SlotTakenError
		assert.ErrorAs(t, err, &taken)
	}
	assert.Equal(t, 1, winners)
	assert.Len(t, f.state.reservations, 1)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("future booked reservation", func(t *testing.T) {
		f := newFixture(baseTime)
		slot := nextSlot(f)
		_, err := f.engine.Reserve(ctx, ReserveRequest{
			Title: "General", IGN: "aang", Coords: "1:2", StartAt: slot,
		})
		require.NoError(t, err)

		deleted, err := f.engine.Cancel(ctx, CancelRequest{Title: "General", StartAt: slot})
		require.NoError(t, err)
		assert.True(t, deleted)
		assert.Empty(t, f.state.reservations)
	})

	t.Run("missing reservation is a quiet no-op", func(t *testing.T) {
		f := newFixture(baseTime)
		deleted, err := f.engine.Cancel(ctx, CancelRequest{Title: "General", StartAt: nextSlot(f)})
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("started slot refused", func(t *testing.T) {
		f := newFixture(baseTime)
		slot := nextSlot(f)
		_, err := f.engine.Reserve(ctx, ReserveRequest{
			Title: "General", IGN: "aang", Coords: "1:2", StartAt: slot,
		})
		require.NoError(t, err)

		f.clock.Advance(2 * time.Hour)
		_, err = f.engine.Cancel(ctx, CancelRequest{Title: "General", StartAt: slot})
		assert.ErrorIs(t, err, ErrAlreadyStarted)
	})

	t.Run("release shift cascade", func(t *testing.T) {
		f := newFixture(baseTime)
		slot := nextSlot(f)
		_, err := f.engine.Reserve(ctx, ReserveRequest{
			Title: "General", IGN: "aang", Coords: "1:2", StartAt: slot,
		})
		require.NoError(t, err)

		f.clock.Advance(2 * time.Hour)
		f.scheduler.Tick(ctx)
		require.NotNil(t, f.state.shifts["General"])

		deleted, err := f.engine.Cancel(ctx, CancelRequest{
			Title: "General", StartAt: slot, Actor: "admin", ReleaseShift: true,
		})
		require.NoError(t, err)
		assert.True(t, deleted)
		assert.Nil(t, f.state.shifts["General"])
		require.Len(t, f.sink.ofKind(notifier.EventRelease), 1)
		assert.Equal(t, "aang", f.sink.ofKind(notifier.EventRelease)[0].IGN)
	})

	t.Run("cascade skips an unrelated shift", func(t *testing.T) {
		f := newFixture(baseTime)
		slot := nextSlot(f)
		_, err := f.engine.Reserve(ctx, ReserveRequest{
			Title: "General", IGN: "aang", Coords: "1:2", StartAt: slot,
		})
		require.NoError(t, err)

		// A different holder took the title directly.
		_, err = f.engine.Assign(ctx, AssignRequest{Title: "General", IGN: "zuko", Actor: "admin"})
		require.NoError(t, err)

		f.clock.Advance(2 * time.Hour)
		deleted, err := f.engine.Cancel(ctx, CancelRequest{
			Title: "General", StartAt: slot, Actor: "admin", ReleaseShift: true,
		})
		require.NoError(t, err)
		assert.True(t, deleted)
		require.NotNil(t, f.state.shifts["General"])
		assert.Equal(t, "zuko", f.state.shifts["General"].HolderIGN)
	})
}

func TestAssign(t *testing.T) {
	ctx := context.Background()

	t.Run("timed by default", func(t *testing.T) {
		f := newFixture(baseTime)
		shift, err := f.engine.Assign(ctx, AssignRequest{
			Title: "Governor", IGN: "katara", Coords: "7:7", Actor: "admin",
		})
		require.NoError(t, err)
		require.NotNil(t, shift.ExpiresAt)
		assert.Equal(t, f.clock.Now().Truncate(time.Minute).Add(12*time.Hour), shift.ExpiresAt.UTC())
	})

	t.Run("non-expiring title gets no deadline", func(t *testing.T) {
		f := newFixture(baseTime)
		shift, err := f.engine.Assign(ctx, AssignRequest{
			Title: NonExpiringTitle, IGN: "iroh", Actor: "admin",
		})
		require.NoError(t, err)
		assert.Nil(t, shift.ExpiresAt)
	})

	t.Run("permanent flag", func(t *testing.T) {
		f := newFixture(baseTime)
		shift, err := f.engine.Assign(ctx, AssignRequest{
			Title: "Governor", IGN: "katara", Permanent: true, Actor: "admin",
		})
		require.NoError(t, err)
		assert.Nil(t, shift.ExpiresAt)
	})

	t.Run("hours out of range", func(t *testing.T) {
		f := newFixture(baseTime)
		_, err := f.engine.Assign(ctx, AssignRequest{
			Title: "Governor", IGN: "katara", Hours: 100, Actor: "admin",
		})
		assert.ErrorIs(t, err, ErrInvalidShiftHours)
	})

	t.Run("unknown title", func(t *testing.T) {
		f := newFixture(baseTime)
		_, err := f.engine.Assign(ctx, AssignRequest{Title: "Nope", IGN: "katara"})
		assert.ErrorIs(t, err, ErrUnknownTitle)
	})
}

func TestAssignSlot(t *testing.T) {
	ctx := context.Background()

	t.Run("claim and expiry anchored to the slot", func(t *testing.T) {
		f := newFixture(baseTime)
		slot := nextSlot(f)
		shift, err := f.engine.AssignSlot(ctx, "Prefect", "toph", slot, "admin")
		require.NoError(t, err)
		assert.True(t, shift.ClaimedAt.Equal(slot))
		require.NotNil(t, shift.ExpiresAt)
		assert.True(t, shift.ExpiresAt.Equal(slot.Add(12*time.Hour)))
	})

	t.Run("non-expiring title refused", func(t *testing.T) {
		f := newFixture(baseTime)
		_, err := f.engine.AssignSlot(ctx, NonExpiringTitle, "toph", nextSlot(f), "admin")
		assert.ErrorIs(t, err, ErrSlotNotAllowed)
	})
}

func TestRelease(t *testing.T) {
	f := newFixture(baseTime)
	ctx := context.Background()

	released, err := f.engine.Release(ctx, "General", "cleanup", "admin")
	require.NoError(t, err)
	assert.False(t, released)

	_, err = f.engine.Assign(ctx, AssignRequest{Title: "General", IGN: "zuko", Actor: "admin"})
	require.NoError(t, err)

	released, err = f.engine.Release(ctx, "General", "cleanup", "admin")
	require.NoError(t, err)
	assert.True(t, released)

	events := f.sink.ofKind(notifier.EventRelease)
	require.Len(t, events, 1)
	assert.Equal(t, "zuko", events[0].IGN)
	assert.Equal(t, "cleanup", events[0].Reason)
}

func TestSetRequestable(t *testing.T) {
	ctx := context.Background()

	t.Run("closing blocks reservations", func(t *testing.T) {
		f := newFixture(baseTime)
		require.NoError(t, f.engine.SetRequestable(ctx, "General", false, "admin"))

		_, err := f.engine.Reserve(ctx, ReserveRequest{
			Title: "General", IGN: "aang", Coords: "1:2", StartAt: nextSlot(f),
		})
		assert.ErrorIs(t, err, ErrNotRequestable)
	})

	t.Run("reopening restores them", func(t *testing.T) {
		f := newFixture(baseTime)
		require.NoError(t, f.engine.SetRequestable(ctx, "General", false, "admin"))
		require.NoError(t, f.engine.SetRequestable(ctx, "General", true, "admin"))

		_, err := f.engine.Reserve(ctx, ReserveRequest{
			Title: "General", IGN: "aang", Coords: "1:2", StartAt: nextSlot(f),
		})
		assert.NoError(t, err)
	})

	t.Run("unknown title", func(t *testing.T) {
		f := newFixture(baseTime)
		err := f.engine.SetRequestable(ctx, "No Such Title", true, "admin")
		assert.ErrorIs(t, err, ErrUnknownTitle)
	})

	t.Run("non-expiring title stays closed", func(t *testing.T) {
		f := newFixture(baseTime)
		err := f.engine.SetRequestable(ctx, NonExpiringTitle, true, "admin")
		assert.ErrorIs(t, err, ErrAlwaysClosed)

		// Closing it again is a harmless no-op.
		assert.NoError(t, f.engine.SetRequestable(ctx, NonExpiringTitle, false, "admin"))
	})
}

func TestSlotLockSweep(t *testing.T) {
	f := newFixture(baseTime)

	past := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	future := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	f.engine.lockSlot("General", past)()
	f.engine.lockSlot("General", future)()
	f.engine.lockSlot("Prefect", past)()

	f.engine.slotMu.Lock()
	f.engine.sweepSlotLocks()
	remaining := make([]string, 0, len(f.engine.slots))
	for key := range f.engine.slots {
		remaining = append(remaining, key)
	}
	f.engine.slotMu.Unlock()

	assert.Equal(t, []string{"General|2025-06-02T12:00:00"}, remaining)

	// A pruned slot can still be locked again afterwards.
	f.engine.lockSlot("General", past)()
}

func TestSetShiftHours(t *testing.T) {
	f := newFixture(baseTime)
	ctx := context.Background()

	for _, hours := range []int{0, -1, 73, 100} {
		err := f.engine.SetShiftHours(ctx, hours)
		assert.ErrorIs(t, err, ErrInvalidShiftHours, "hours=%d", hours)
	}

	require.NoError(t, f.engine.SetShiftHours(ctx, 8))
	assert.Equal(t, 8, f.engine.ShiftHours(ctx))
}

func TestReserveHonorsReconfiguredGrid(t *testing.T) {
	f := newFixture(baseTime)
	ctx := context.Background()
	require.NoError(t, f.engine.SetShiftHours(ctx, 6))

	// 18:00 is on the 6h grid but not the 12h one.
	_, err := f.engine.Reserve(ctx, ReserveRequest{
		Title: "General", IGN: "aang", Coords: "1:2",
		StartAt: time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC),
	})
	assert.NoError(t, err)

	_, err = f.engine.Reserve(ctx, ReserveRequest{
		Title: "General", IGN: "aang", Coords: "1:2",
		StartAt: time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC),
	})
	var slotErr *InvalidSlotError
	require.True(t, errors.As(err, &slotErr))
	assert.Equal(t, []string{"00:00", "06:00", "12:00", "18:00"}, slotErr.Valid)
}
