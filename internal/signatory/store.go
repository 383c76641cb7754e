package signatory

import "context"

// Store persists the roster. Save replaces the whole snapshot; partial
// updates are composed by the service before saving.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}
