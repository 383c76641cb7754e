package audit

import (
	"context"
	"log/slog"
)

// AsyncPublisher hands events to a buffered channel so the publishing
// operation never blocks on the sink. Events are dropped with a warning when
// the buffer is full; an audit stall must not back-pressure verification.
type AsyncPublisher struct {
	inbox chan Event
	log   *slog.Logger
}

func NewAsyncPublisher(buffer int, log *slog.Logger) *AsyncPublisher {
	if buffer <= 0 {
		buffer = 64
	}
	return &AsyncPublisher{
		inbox: make(chan Event, buffer),
		log:   log,
	}
}

func (p *AsyncPublisher) Publish(_ context.Context, event Event) error {
	select {
	case p.inbox <- stamp(event):
	default:
		if p.log != nil {
			p.log.Warn("audit buffer full, event dropped",
				"action", string(event.Action),
				"subject", event.Subject)
		}
	}
	return nil
}

// Inbox exposes the channel for the draining worker.
func (p *AsyncPublisher) Inbox() <-chan Event {
	return p.inbox
}

// Worker consumes audit events from a channel and persists them. It keeps
// background processing testable without wiring queue implementations into
// the hot path.
type Worker struct {
	store Store
	inbox <-chan Event
	log   *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, log *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, log: log}
}

// Run drains the inbox until ctx is cancelled. Append failures are logged
// and the worker keeps going; one bad event must not stop the trail.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil && w.log != nil {
				w.log.Error("audit append failed",
					"action", string(event.Action),
					"event_id", event.ID,
					"error", err)
			}
		}
	}
}
