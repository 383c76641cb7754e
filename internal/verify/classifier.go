package verify

import (
	"strings"

	"signoff/internal/signatory"
)

// Status markers the model is instructed to emit. Matching is exact and
// case-sensitive.
const (
	markerInvalid = "STATUS: invalid"
	markerUnclear = "STATUS: unclear"
	markerValid   = "STATUS: valid"
)

// Classify turns the model's free-text reply into a structured result. It is
// a pure function of its inputs.
//
// The verdict cascade is ordered, first match wins: invalid, then unclear,
// then valid. A reply quoting several markers resolves to the strongest
// negative claim, and a reply with no marker at all is unclear, never valid.
//
// Signatory resolution is independent of the verdict: the first roster name
// (in iteration order) occurring as a literal substring of the reply wins.
// Best-effort only; a name that is a substring of another, or one that
// shows up in unrelated prose, can mismatch.
func Classify(rawText string, roster signatory.Snapshot) Result {
	result := Result{RawText: rawText, Verdict: VerdictUnclear}
	switch {
	case strings.Contains(rawText, markerInvalid):
		result.Verdict = VerdictInvalid
	case strings.Contains(rawText, markerUnclear):
		result.Verdict = VerdictUnclear
	case strings.Contains(rawText, markerValid):
		result.Verdict = VerdictValid
	}
	for _, name := range roster.Names() {
		if strings.Contains(rawText, name) {
			result.MatchedSignatory = name
			break
		}
	}
	return result
}
