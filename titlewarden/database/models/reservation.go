package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ReservationStatus string

const (
	// ReservationStatusBooked is a future (or due but not yet activated)
	// claim on a slot.
	ReservationStatusBooked ReservationStatus = "booked"
	// ReservationStatusConsumed marks a reservation the scheduler promoted
	// into a shift.
	ReservationStatusConsumed ReservationStatus = "consumed"
	// ReservationStatusSuperseded marks a due reservation that lost to an
	// equal-or-later active claim and will never be promoted.
	ReservationStatusSuperseded ReservationStatus = "consumed_superseded"
)

type Reservation struct {
	bun.BaseModel `bun:"table:reservations,alias:r"`

	ID        int64             `bun:"id,pk,autoincrement"`
	TitleName string            `bun:"title_name,notnull"`
	IGN       string            `bun:"ign,notnull"`
	Coords    string            `bun:"coords,notnull,default:'-'"`
	SlotAt    time.Time         `bun:"slot_at,notnull"`
	Status    ReservationStatus `bun:"status,notnull,default:'booked'"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// SlotKey is the canonical join key between the slot grid and stored
// reservations: ISO-8601, UTC, seconds zeroed, no offset suffix.
func (r *Reservation) SlotKey() string {
	return r.SlotAt.UTC().Format("2006-01-02T15:04:05")
}
