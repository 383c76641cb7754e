package handler

import (
	"signoff/internal/signatory"
)

const brokenReferenceWarning = "reference signature image could not be loaded"

// SignatoryResponse is one roster entry as returned by the API.
type SignatoryResponse struct {
	Name         string  `json:"name"`
	MaxAmount    float64 `json:"max_amount"`
	HasReference bool    `json:"has_reference"`
	Warning      string  `json:"warning,omitempty"`
}

// ListResponse is the roster in deterministic name order.
type ListResponse struct {
	Signatories []SignatoryResponse `json:"signatories"`
}

// FromSnapshot converts a roster snapshot into the API shape.
func FromSnapshot(snap signatory.Snapshot) ListResponse {
	resp := ListResponse{Signatories: make([]SignatoryResponse, 0, len(snap))}
	for _, name := range snap.Names() {
		entry := snap[name]
		sr := SignatoryResponse{
			Name:         entry.Name,
			MaxAmount:    entry.MaxAmount,
			HasReference: entry.HasReference(),
		}
		if entry.ReferenceBroken {
			sr.Warning = brokenReferenceWarning
		}
		resp.Signatories = append(resp.Signatories, sr)
	}
	return resp
}
