// Package signatory maintains the durable roster of people authorized to
// approve invoices, each with a spending limit and an optional reference
// signature image.
package signatory

import (
	"sort"

	"signoff/internal/imaging"
)

// Signatory is one registered approver. Identity is the name; uniqueness is
// enforced by the snapshot's key space.
type Signatory struct {
	Name      string
	MaxAmount float64

	// Reference is the decoded reference signature, nil when none is on
	// file or the stored image could not be loaded.
	Reference *imaging.Canonical

	// ReferencePath is where the reference image was last persisted.
	ReferencePath string

	// ReferenceBroken marks an entry whose stored image path was missing or
	// undecodable at load time. The limit stays usable; the model just gets
	// no visual reference for this signatory.
	ReferenceBroken bool
}

// HasReference reports whether a usable reference image is loaded.
func (s Signatory) HasReference() bool {
	return s.Reference != nil
}

// Snapshot is the fully materialized roster keyed by signatory name.
type Snapshot map[string]Signatory

// Names returns the roster names in iteration order. Map order is not stable
// in Go, so iteration order is defined as lexicographic: the composed prompt
// and the classifier scan both depend on it being deterministic.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a shallow copy safe to mutate key-wise. Canonical images are
// shared; they are treated as immutable once decoded.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for name, entry := range s {
		out[name] = entry
	}
	return out
}
