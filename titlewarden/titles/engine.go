package titles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/harmonyhold/titlewarden/titlewarden/database/models"
	"github.com/harmonyhold/titlewarden/titlewarden/database/repositories"
	"github.com/harmonyhold/titlewarden/titlewarden/notifier"
	"github.com/harmonyhold/titlewarden/titlewarden/scheduling"
)

var coordsPattern = regexp.MustCompile(`^\s*\d+\s*:\s*\d+\s*$`)

// Engine owns every mutation of the reservation book and the active
// shifts. Both front ends (bot and web) call through here so the
// validation order and the conflict rules exist exactly once.
type Engine struct {
	titles       repositories.TitleRepository
	reservations repositories.ReservationRepository
	shifts       repositories.ShiftRepository
	settings     repositories.SettingsRepository
	requestLog   repositories.RequestLogRepository
	sink         notifier.Sink

	// slotMu guards slots; each entry serializes one (title, slot)
	// pair so an idempotent retry never races its own re-read. The
	// database unique constraint stays the cross-process arbiter.
	slotMu sync.Mutex
	slots  map[string]*sync.Mutex

	now func() time.Time
}

func NewEngine(
	titles repositories.TitleRepository,
	reservations repositories.ReservationRepository,
	shifts repositories.ShiftRepository,
	settings repositories.SettingsRepository,
	requestLog repositories.RequestLogRepository,
	sink notifier.Sink,
) *Engine {
	if sink == nil {
		sink = notifier.Discard{}
	}
	return &Engine{
		titles:       titles,
		reservations: reservations,
		shifts:       shifts,
		settings:     settings,
		requestLog:   requestLog,
		sink:         sink,
		slots:        make(map[string]*sync.Mutex),
		now:          time.Now,
	}
}

type ReserveRequest struct {
	Title   string
	IGN     string
	Coords  string
	StartAt time.Time
	// Source tags where the booking came from ("Discord Slash",
	// "Web Form", ...), Actor who submitted it.
	Source string
	Actor  string
}

// Reserve books a slot. Validation runs in a fixed order so callers
// always see the most actionable failure first: past time, off-grid
// time, malformed coordinates, non-requestable title. A retry with the
// same IGN and coordinates is a no-op success; any other claimant at a
// taken slot gets a SlotTakenError naming the holder.
func (e *Engine) Reserve(ctx context.Context, req ReserveRequest) (*models.Reservation, error) {
	if !req.StartAt.After(e.now()) {
		return nil, ErrPastTime
	}

	shiftHours := e.settings.ShiftHours(ctx)
	if !scheduling.OnGrid(req.StartAt, shiftHours) {
		return nil, &InvalidSlotError{Valid: scheduling.Grid(shiftHours)}
	}

	coords := strings.TrimSpace(req.Coords)
	if coords == "" {
		coords = "-"
	}
	if coords != "-" && !coordsPattern.MatchString(coords) {
		return nil, ErrInvalidCoordinates
	}

	title, err := e.titles.ByName(ctx, req.Title)
	if err != nil {
		return nil, err
	}
	if title == nil {
		return nil, ErrUnknownTitle
	}
	if !title.Requestable {
		return nil, ErrNotRequestable
	}

	ign := strings.TrimSpace(req.IGN)
	slot := scheduling.CanonicalSlot(req.StartAt)
	unlock := e.lockSlot(req.Title, slot)
	defer unlock()

	reservation := &models.Reservation{
		TitleName: req.Title,
		IGN:       ign,
		Coords:    coords,
		SlotAt:    slot,
	}
	err = e.reservations.Create(ctx, reservation)
	if errors.Is(err, repositories.ErrReservationExists) {
		existing, readErr := e.reservations.GetBySlot(ctx, req.Title, slot)
		if readErr != nil {
			return nil, readErr
		}
		if existing == nil {
			return nil, fmt.Errorf("reservation conflict for %s at %s could not be resolved",
				req.Title, scheduling.SlotKey(slot))
		}
		if existing.IGN != ign || existing.Coords != coords {
			return nil, &SlotTakenError{Holder: existing.IGN}
		}
		// Identical retry, nothing to write.
		return existing, nil
	}
	if err != nil {
		return nil, err
	}

	if logErr := e.requestLog.Append(ctx, &models.RequestLog{
		LoggedAt:  e.now().UTC(),
		TitleName: req.Title,
		IGN:       ign,
		Coords:    coords,
		Actor:     req.Actor,
		Source:    req.Source,
	}); logErr != nil {
		slog.Error("Failed to append request log",
			slog.String("type", "cmd"),
			slog.String("title", req.Title),
			slog.String("error", logErr.Error()),
		)
	}

	e.sink.Notify(ctx, notifier.Event{
		Kind:      notifier.EventReservation,
		Title:     req.Title,
		IGN:       ign,
		Coords:    coords,
		SlotStart: slot,
		Source:    req.Source,
		Actor:     req.Actor,
	})

	slog.Info("Reservation booked",
		slog.String("type", "cmd"),
		slog.String("title", req.Title),
		slog.String("ign", ign),
		slog.String("slot", scheduling.SlotKey(slot)),
		slog.String("source", req.Source),
	)
	return reservation, nil
}

type CancelRequest struct {
	Title   string
	StartAt time.Time
	Actor   string
	// ReleaseShift additionally releases the active shift when this
	// reservation already became one. Admin surfaces only; it lifts the
	// started-slot restriction and the cascade fires only when the
	// shift still matches the reservation's holder and claim time.
	ReleaseShift bool
}

// Cancel removes a booked reservation. A missing reservation reports
// (false, nil); a slot that already started is refused unless
// ReleaseShift is set.
func (e *Engine) Cancel(ctx context.Context, req CancelRequest) (bool, error) {
	slot := scheduling.CanonicalSlot(req.StartAt)
	if !slot.After(e.now()) && !req.ReleaseShift {
		return false, ErrAlreadyStarted
	}

	unlock := e.lockSlot(req.Title, slot)
	defer unlock()

	existing, err := e.reservations.GetBySlot(ctx, req.Title, slot)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	deleted, err := e.reservations.Delete(ctx, req.Title, slot)
	if err != nil {
		return false, err
	}

	if req.ReleaseShift {
		if err := e.releaseIfClaimedBy(ctx, req.Title, existing, slot, req.Actor); err != nil {
			slog.Error("Failed to release shift during cancel",
				slog.String("type", "cmd"),
				slog.String("title", req.Title),
				slog.String("error", err.Error()),
			)
		}
	}

	if deleted {
		slog.Info("Reservation cancelled",
			slog.String("type", "cmd"),
			slog.String("title", req.Title),
			slog.String("slot", scheduling.SlotKey(slot)),
			slog.String("actor", req.Actor),
		)
	}
	return deleted, nil
}

// releaseIfClaimedBy releases the active shift only when it was
// produced by exactly this reservation: same holder, claimed at the
// slot start.
func (e *Engine) releaseIfClaimedBy(ctx context.Context, titleName string, reservation *models.Reservation, slot time.Time, actor string) error {
	shift, err := e.shifts.Get(ctx, titleName)
	if err != nil {
		return err
	}
	if shift == nil || shift.HolderIGN != reservation.IGN || !shift.ClaimedAt.Equal(slot) {
		return nil
	}

	released, err := e.shifts.Release(ctx, titleName)
	if err != nil {
		return err
	}
	if released {
		e.sink.Notify(ctx, notifier.Event{
			Kind:   notifier.EventRelease,
			Title:  titleName,
			IGN:    shift.HolderIGN,
			Actor:  actor,
			Reason: "Reservation cancelled.",
		})
	}
	return nil
}

type AssignRequest struct {
	Title  string
	IGN    string
	Coords string
	// Hours overrides the configured shift length; zero means use it.
	Hours int
	// Permanent assigns without expiry regardless of the title.
	Permanent bool
	Actor     string
	Source    string
}

// Assign installs a holder immediately, bypassing the slot grid. The
// non-expiring title and Permanent assignments get no deadline;
// everything else expires after the shift length.
func (e *Engine) Assign(ctx context.Context, req AssignRequest) (*models.TitleShift, error) {
	title, err := e.titles.ByName(ctx, req.Title)
	if err != nil {
		return nil, err
	}
	if title == nil {
		return nil, ErrUnknownTitle
	}

	coords := strings.TrimSpace(req.Coords)
	if coords == "" {
		coords = "-"
	}

	now := scheduling.CanonicalSlot(e.now())
	var expires *time.Time
	if req.Title != NonExpiringTitle && !req.Permanent {
		hours := req.Hours
		if hours == 0 {
			hours = e.settings.ShiftHours(ctx)
		}
		if hours < models.MinShiftHours || hours > models.MaxShiftHours {
			return nil, ErrInvalidShiftHours
		}
		deadline := now.Add(scheduling.ShiftDuration(hours))
		expires = &deadline
	}

	shift := &models.TitleShift{
		TitleName:    req.Title,
		HolderIGN:    strings.TrimSpace(req.IGN),
		HolderCoords: coords,
		ClaimedAt:    now,
		ExpiresAt:    expires,
	}
	if err := e.shifts.Upsert(ctx, shift); err != nil {
		return nil, err
	}

	e.sink.Notify(ctx, notifier.Event{
		Kind:      notifier.EventAssignment,
		Title:     req.Title,
		IGN:       shift.HolderIGN,
		Coords:    coords,
		SlotStart: now,
		SlotEnd:   expires,
		Source:    req.Source,
		Actor:     req.Actor,
	})

	slog.Info("Title assigned",
		slog.String("type", "cmd"),
		slog.String("title", req.Title),
		slog.String("ign", shift.HolderIGN),
		slog.String("actor", req.Actor),
	)
	return shift, nil
}

// AssignSlot installs a holder for a specific slot: claim time is the
// slot start, expiry the slot start plus the shift length. The
// non-expiring title cannot be put on a timed slot.
func (e *Engine) AssignSlot(ctx context.Context, titleName, ign string, startAt time.Time, actor string) (*models.TitleShift, error) {
	if titleName == NonExpiringTitle {
		return nil, ErrSlotNotAllowed
	}
	title, err := e.titles.ByName(ctx, titleName)
	if err != nil {
		return nil, err
	}
	if title == nil {
		return nil, ErrUnknownTitle
	}

	slot := scheduling.CanonicalSlot(startAt)
	deadline := slot.Add(scheduling.ShiftDuration(e.settings.ShiftHours(ctx)))

	shift := &models.TitleShift{
		TitleName:    titleName,
		HolderIGN:    strings.TrimSpace(ign),
		HolderCoords: "-",
		ClaimedAt:    slot,
		ExpiresAt:    &deadline,
	}
	if err := e.shifts.Upsert(ctx, shift); err != nil {
		return nil, err
	}

	e.sink.Notify(ctx, notifier.Event{
		Kind:      notifier.EventAssignment,
		Title:     titleName,
		IGN:       shift.HolderIGN,
		Coords:    "-",
		SlotStart: slot,
		SlotEnd:   &deadline,
		Actor:     actor,
	})
	return shift, nil
}

// Release frees a title immediately. Releasing a vacant title reports
// (false, nil).
func (e *Engine) Release(ctx context.Context, titleName, reason, actor string) (bool, error) {
	shift, err := e.shifts.Get(ctx, titleName)
	if err != nil {
		return false, err
	}
	if shift == nil {
		return false, nil
	}

	released, err := e.shifts.Release(ctx, titleName)
	if err != nil {
		return false, err
	}
	if released {
		e.sink.Notify(ctx, notifier.Event{
			Kind:   notifier.EventRelease,
			Title:  titleName,
			IGN:    shift.HolderIGN,
			Actor:  actor,
			Reason: reason,
		})
		slog.Info("Title released",
			slog.String("type", "cmd"),
			slog.String("title", titleName),
			slog.String("ign", shift.HolderIGN),
			slog.String("reason", reason),
		)
	}
	return released, nil
}

// ShiftHours reads the configured shift length; bad stored values
// degrade to the default.
func (e *Engine) ShiftHours(ctx context.Context) int {
	return e.settings.ShiftHours(ctx)
}

// SetRequestable opens or closes a title for member reservations. The
// non-expiring title can never be opened.
func (e *Engine) SetRequestable(ctx context.Context, titleName string, requestable bool, actor string) error {
	if titleName == NonExpiringTitle && requestable {
		return ErrAlwaysClosed
	}

	updated, err := e.titles.SetRequestable(ctx, titleName, requestable)
	if err != nil {
		return err
	}
	if !updated {
		return ErrUnknownTitle
	}

	slog.Info("Title requestable flag updated",
		slog.String("type", "cmd"),
		slog.String("title", titleName),
		slog.Bool("requestable", requestable),
		slog.String("actor", actor),
	)
	return nil
}

// SetShiftHours persists a new shift length after range validation.
func (e *Engine) SetShiftHours(ctx context.Context, hours int) error {
	if hours < models.MinShiftHours || hours > models.MaxShiftHours {
		return ErrInvalidShiftHours
	}
	if err := e.settings.SetShiftHours(ctx, hours); err != nil {
		return err
	}
	slog.Info("Shift hours updated",
		slog.String("type", "cmd"),
		slog.Int("hours", hours),
	)
	return nil
}

// slotLockSweepSize bounds the per-slot mutex map; once it grows past
// this, entries for already-started slots are pruned.
const slotLockSweepSize = 256

func (e *Engine) lockSlot(titleName string, slot time.Time) func() {
	key := titleName + "|" + scheduling.SlotKey(slot)

	e.slotMu.Lock()
	if len(e.slots) > slotLockSweepSize {
		e.sweepSlotLocks()
	}
	mu, ok := e.slots[key]
	if !ok {
		mu = &sync.Mutex{}
		e.slots[key] = mu
	}
	e.slotMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// sweepSlotLocks drops lock entries whose slot already started: no new
// reservation can target those, so nothing contends on them anymore and
// the unique constraint arbitrates any late cancel. Caller holds slotMu.
func (e *Engine) sweepSlotLocks() {
	now := e.now()
	for key := range e.slots {
		sep := strings.LastIndex(key, "|")
		if sep < 0 {
			continue
		}
		slot, err := scheduling.ParseSlotKey(key[sep+1:])
		if err != nil || slot.After(now) {
			continue
		}
		delete(e.slots, key)
	}
}
