// Package notifier delivers best-effort event notifications to Discord
// (webhook embeds and announcement-channel messages). Delivery is fire
// and forget: a failing or slow sink never rolls back or delays the
// mutation that produced the event.
package notifier

import (
	"context"
	"time"
)

type EventKind string

const (
	EventReservation EventKind = "reservation"
	EventActivation  EventKind = "activation"
	EventAssignment  EventKind = "assignment"
	EventRelease     EventKind = "release"
)

// Event describes a single title lifecycle change.
type Event struct {
	Kind      EventKind
	Title     string
	IGN       string
	Coords    string
	SlotStart time.Time
	// SlotEnd is nil for non-expiring assignments.
	SlotEnd *time.Time
	Source  string
	Actor   string
	// Reason is set on releases ("Title expired.", admin note, ...).
	Reason string
}

type Sink interface {
	Notify(ctx context.Context, event Event)
}

// Multi fans an event out to every sink in order.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, event Event) {
	for _, sink := range m {
		sink.Notify(ctx, event)
	}
}

// Discard swallows every event. Used where a sink is required but
// notifications are not configured.
type Discard struct{}

func (Discard) Notify(context.Context, Event) {}
