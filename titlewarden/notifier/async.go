package notifier

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultQueueSize = 64
	deliveryTimeout  = 8 * time.Second
)

// Async decouples event producers from delivery. Notify enqueues and
// returns immediately; a single worker drains the queue. When the queue
// is full the event is dropped and logged, never blocked on.
type Async struct {
	inner Sink
	queue chan Event

	closeOnce sync.Once
	done      chan struct{}
}

func NewAsync(inner Sink, queueSize int) *Async {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	a := &Async{
		inner: inner,
		queue: make(chan Event, queueSize),
		done:  make(chan struct{}),
	}
	go a.worker()
	return a
}

func (a *Async) Notify(_ context.Context, event Event) {
	select {
	case a.queue <- event:
	default:
		slog.Warn("Notification queue full, dropping event",
			slog.String("type", "notify"),
			slog.String("kind", string(event.Kind)),
			slog.String("title", event.Title),
		)
	}
}

func (a *Async) worker() {
	for {
		select {
		case event := <-a.queue:
			ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
			a.inner.Notify(ctx, event)
			cancel()
		case <-a.done:
			// Drain what is already queued, then stop.
			for {
				select {
				case event := <-a.queue:
					ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
					a.inner.Notify(ctx, event)
					cancel()
				default:
					return
				}
			}
		}
	}
}

// Close stops the worker after draining queued events.
func (a *Async) Close() {
	a.closeOnce.Do(func() {
		close(a.done)
	})
}
