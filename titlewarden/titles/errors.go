package titles

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPastTime rejects reservations whose start is not strictly in
	// the future.
	ErrPastTime = errors.New("the chosen time is in the past")

	// ErrInvalidCoordinates rejects coordinates that are neither the
	// "-" placeholder nor an X:Y pair.
	ErrInvalidCoordinates = errors.New("coordinates must be like 123:456")

	// ErrUnknownTitle means the named title is not in the catalog.
	ErrUnknownTitle = errors.New("title does not exist")

	// ErrNotRequestable means the title exists but is closed for
	// reservations.
	ErrNotRequestable = errors.New("that title isn't requestable")

	// ErrAlreadyStarted rejects cancellation of a slot whose start has
	// already passed.
	ErrAlreadyStarted = errors.New("that slot has already started")

	// ErrInvalidShiftHours rejects shift lengths outside 1..72.
	ErrInvalidShiftHours = errors.New("shift hours must be between 1 and 72")

	// ErrSlotNotAllowed rejects timed-slot assignment of the
	// non-expiring title.
	ErrSlotNotAllowed = errors.New("this title cannot be assigned to a timed slot")

	// ErrAlwaysClosed rejects opening the non-expiring title for
	// reservations.
	ErrAlwaysClosed = errors.New("that title is never requestable")
)

// InvalidSlotError reports an off-grid start time along with the slot
// starts that are currently valid.
type InvalidSlotError struct {
	Valid []string
}

func (e *InvalidSlotError) Error() string {
	return fmt.Sprintf("time must be one of [%s] UTC", strings.Join(e.Valid, " "))
}

// SlotTakenError reports a reservation conflict and names the holder.
type SlotTakenError struct {
	Holder string
}

func (e *SlotTakenError) Error() string {
	return fmt.Sprintf("slot already reserved by %s", e.Holder)
}
