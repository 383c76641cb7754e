// Package verify runs the invoice verification pipeline: compose a
// multimodal request from the invoice and the signatory roster, call the
// vision model, and classify the free-text reply into a structured verdict.
package verify

import "time"

// Verdict is the classified outcome of one verification attempt.
type Verdict string

const (
	// VerdictValid means the model identified an authorized signature within
	// its limit.
	VerdictValid Verdict = "valid"

	// VerdictInvalid means the signature was not identified or the amount
	// exceeds the signatory's limit.
	VerdictInvalid Verdict = "invalid"

	// VerdictUnclear means the model could not decide, or its reply carried
	// no recognizable status marker.
	VerdictUnclear Verdict = "unclear"

	// VerdictError means the attempt failed before a reply could be
	// classified (composition or transport failure, timeout).
	VerdictError Verdict = "error"
)

// Result is the structured outcome of one verification attempt.
type Result struct {
	AttemptID        string    `json:"attempt_id"`
	Verdict          Verdict   `json:"verdict"`
	MatchedSignatory string    `json:"matched_signatory,omitempty"`
	RawText          string    `json:"raw_text,omitempty"`
	ErrorDetail      string    `json:"error_detail,omitempty"`
	FromCache        bool      `json:"from_cache,omitempty"`
	CompletedAt      time.Time `json:"completed_at"`
}

// State is the session lifecycle position.
type State string

const (
	StateIdle       State = "idle"
	StateInProgress State = "in_progress"
	StateComplete   State = "complete"
	StateError      State = "error"
)

// Stage is a progress milestone emitted while an attempt runs, so a polling
// UI can render progress without the pipeline depending on UI code.
type Stage string

const (
	StageComposing     Stage = "composing"
	StageAwaitingModel Stage = "awaiting_model"
	StageClassifying   Stage = "classifying"
	StageDone          Stage = "done"
)
