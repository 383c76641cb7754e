package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Publisher delivers events to wherever the deployment keeps its trail.
// Callers treat publishing as best-effort: failures are logged, never
// surfaced to the operation that produced the event.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// StorePublisher appends events straight to a store.
type StorePublisher struct {
	store Store
}

func NewStorePublisher(store Store) *StorePublisher {
	return &StorePublisher{store: store}
}

func (p *StorePublisher) Publish(ctx context.Context, event Event) error {
	return p.store.Append(ctx, stamp(event))
}

// Multi fans an event out to several publishers. The first failure is
// returned after all sinks have been attempted.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// stamp fills identity and time on events built inline by callers.
func stamp(event Event) Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	return event
}
