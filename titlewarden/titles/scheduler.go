package titles

import (
	"context"
	"log/slog"
	"time"

	"github.com/harmonyhold/titlewarden/titlewarden/database/models"
	"github.com/harmonyhold/titlewarden/titlewarden/database/repositories"
	"github.com/harmonyhold/titlewarden/titlewarden/logger"
	"github.com/harmonyhold/titlewarden/titlewarden/notifier"
	"github.com/harmonyhold/titlewarden/titlewarden/scheduling"
)

const (
	tickInterval = 60 * time.Second
	tickTimeout  = 30 * time.Second
)

// Scheduler drives the title lifecycle in the background: every tick it
// first releases expired shifts, then promotes due reservations into
// shifts. The order is load-bearing: a slot boundary must free the
// outgoing holder before the incoming reservation is considered.
type Scheduler struct {
	reservations repositories.ReservationRepository
	shifts       repositories.ShiftRepository
	settings     repositories.SettingsRepository
	sink         notifier.Sink

	ticker   *time.Ticker
	shutdown chan struct{}

	now func() time.Time
}

func NewScheduler(
	reservations repositories.ReservationRepository,
	shifts repositories.ShiftRepository,
	settings repositories.SettingsRepository,
	sink notifier.Sink,
) *Scheduler {
	if sink == nil {
		sink = notifier.Discard{}
	}
	return &Scheduler{
		reservations: reservations,
		shifts:       shifts,
		settings:     settings,
		sink:         sink,
		ticker:       time.NewTicker(tickInterval),
		shutdown:     make(chan struct{}),
		now:          time.Now,
	}
}

// Start begins ticking in the background.
func (s *Scheduler) Start() {
	go func() {
		defer s.ticker.Stop()

		for {
			select {
			case <-s.ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
				s.Tick(ctx)
				cancel()
			case <-s.shutdown:
				return
			}
		}
	}()
}

// Shutdown stops the tick loop. A tick already in flight finishes.
func (s *Scheduler) Shutdown() {
	close(s.shutdown)
	s.ticker.Stop()
	logger.LogScheduler("Activation scheduler shutdown completed")
}

// Tick runs one full pass. A failure on one title never blocks the
// rest; errors are logged and the next candidate is tried.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()
	s.expirePass(ctx, now)
	s.activatePass(ctx, now)
}

func (s *Scheduler) expirePass(ctx context.Context, now time.Time) {
	expired, err := s.shifts.Expired(ctx, now)
	if err != nil {
		logger.LogSchedulerError("Failed to scan for expired shifts", err)
		return
	}

	for _, shift := range expired {
		released, err := s.shifts.Release(ctx, shift.TitleName)
		if err != nil {
			logger.LogSchedulerError("Failed to release expired shift", err,
				slog.String("title", shift.TitleName))
			continue
		}
		if !released {
			continue
		}

		s.sink.Notify(ctx, notifier.Event{
			Kind:   notifier.EventRelease,
			Title:  shift.TitleName,
			IGN:    shift.HolderIGN,
			Source: "System",
			Reason: "Title expired.",
		})
		logger.LogScheduler("Shift expired",
			slog.String("title", shift.TitleName),
			slog.String("ign", shift.HolderIGN),
		)
	}
}

func (s *Scheduler) activatePass(ctx context.Context, now time.Time) {
	due, err := s.reservations.DueBooked(ctx, now)
	if err != nil {
		logger.LogSchedulerError("Failed to scan for due reservations", err)
		return
	}
	if len(due) == 0 {
		return
	}

	shiftHours := s.settings.ShiftHours(ctx)
	for _, reservation := range due {
		if err := s.promote(ctx, reservation, shiftHours); err != nil {
			logger.LogSchedulerError("Failed to activate reservation", err,
				slog.String("title", reservation.TitleName),
				slog.String("slot", reservation.SlotKey()),
			)
		}
	}
}

// promote turns one due reservation into the active shift, unless an
// equal-or-later claim already holds the title, in which case the
// reservation is retired as superseded and never looked at again.
func (s *Scheduler) promote(ctx context.Context, reservation *models.Reservation, shiftHours int) error {
	shift, err := s.shifts.Get(ctx, reservation.TitleName)
	if err != nil {
		return err
	}

	slot := scheduling.CanonicalSlot(reservation.SlotAt)
	if shift != nil && !shift.ClaimedAt.Before(slot) {
		return s.reservations.MarkConsumed(ctx, reservation.ID, models.ReservationStatusSuperseded)
	}

	var expires *time.Time
	if reservation.TitleName != NonExpiringTitle {
		deadline := slot.Add(scheduling.ShiftDuration(shiftHours))
		expires = &deadline
	}

	if err := s.shifts.Upsert(ctx, &models.TitleShift{
		TitleName:    reservation.TitleName,
		HolderIGN:    reservation.IGN,
		HolderCoords: reservation.Coords,
		ClaimedAt:    slot,
		ExpiresAt:    expires,
	}); err != nil {
		return err
	}
	if err := s.reservations.MarkConsumed(ctx, reservation.ID, models.ReservationStatusConsumed); err != nil {
		return err
	}

	s.sink.Notify(ctx, notifier.Event{
		Kind:      notifier.EventActivation,
		Title:     reservation.TitleName,
		IGN:       reservation.IGN,
		Coords:    reservation.Coords,
		SlotStart: slot,
		SlotEnd:   expires,
		Source:    "System",
	})
	logger.LogScheduler("Reservation activated",
		slog.String("title", reservation.TitleName),
		slog.String("ign", reservation.IGN),
		slog.String("slot", reservation.SlotKey()),
	)
	return nil
}
