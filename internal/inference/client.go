// Package inference calls the external vision model that reads invoices and
// compares signatures.
package inference

import "context"

// Part is one ordered element of the composed user message. Exactly one of
// Text or Image is set.
type Part struct {
	Text  string
	Image []byte // transport-encoded JPEG bytes
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart builds an image part.
func ImagePart(data []byte) Part {
	return Part{Image: data}
}

// IsImage reports whether the part carries image bytes.
func (p Part) IsImage() bool {
	return len(p.Image) > 0
}

// Request is one completion request. Part order is preserved on the wire;
// the composed prompt depends on it.
type Request struct {
	// System is the fixed instruction framing the model's role. It is not
	// data-dependent.
	System string

	// Parts is the ordered user message content.
	Parts []Part
}

//go:generate mockgen -source=client.go -destination=mocks/mocks.go -package=mocks Client

// Client completes a multimodal request and returns the model's raw text
// reply. Implementations must return an error for transport failures and
// unparseable responses; an empty reply with no error is a legitimate
// outcome the classifier handles on its own.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
