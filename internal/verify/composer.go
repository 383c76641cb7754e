package verify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"signoff/internal/imaging"
	"signoff/internal/inference"
	"signoff/internal/signatory"
	"signoff/pkg/domerrors"
)

// systemInstruction frames the model's role. It is fixed and not
// data-dependent; everything variable goes into the user message.
const systemInstruction = `You are an internal auditor responsible for ensuring that every submitted invoice meets the organization's standards of legality, proper management, integrity, economy, and efficiency. Your duties include checking that the signature on each invoice matches an authorized signatory for the stated amount.

Organization policy:
- Every authorized signatory has a maximum approval amount.
- Invoices must carry a clear signature of an authorized signatory.
- The signature on an invoice must belong to an authorized signatory whose limit covers the invoice amount.

When reviewing an invoice, present your analysis in this format:
1. The invoice amount found
2. The full name of the identified signatory (if one was identified)
3. The review status, which must be exactly one of:
   - "valid" - the signature is identified and the amount is within the signatory's limit
   - "invalid" - the signature is not identified or the amount exceeds the authorization
   - "unclear" - the result cannot be determined with confidence

State precisely where in the image the signature appears and describe it briefly.
Always include a single line reading "STATUS: valid", "STATUS: invalid", or "STATUS: unclear" so the system can detect the status automatically.`

// Composer builds the multimodal verification request: instruction text with
// the roster limits, the invoice image, then each usable reference signature
// preceded by its label.
type Composer struct {
	logger *slog.Logger
}

func NewComposer(logger *slog.Logger) *Composer {
	return &Composer{logger: logger}
}

// Compose assembles the request. The invoice image failing to encode aborts
// with a composition error before any network traffic; a reference image
// failing to encode only drops that signatory's image part, with a warning.
func (c *Composer) Compose(ctx context.Context, invoice *imaging.Canonical, roster signatory.Snapshot) (inference.Request, error) {
	invoiceJPEG, err := invoice.EncodeJPEG()
	if err != nil {
		return inference.Request{}, domerrors.Wrap(domerrors.CodeComposition, "encode invoice for transport", err)
	}

	names := roster.Names()

	// References encode concurrently; parts are assembled afterwards in
	// roster order so the prompt stays deterministic.
	type encoded struct {
		data []byte
		err  error
	}
	refs := make([]encoded, len(names))
	var g errgroup.Group
	for i, name := range names {
		sig := roster[name]
		if !sig.HasReference() {
			continue
		}
		g.Go(func() error {
			data, err := sig.Reference.EncodeJPEG()
			refs[i] = encoded{data: data, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return inference.Request{}, err
	}

	parts := make([]inference.Part, 0, 2+2*len(names))
	parts = append(parts, inference.TextPart(instructionText(roster)))
	parts = append(parts, inference.ImagePart(invoiceJPEG))
	for i, name := range names {
		if !roster[name].HasReference() {
			continue
		}
		if refs[i].err != nil {
			if c.logger != nil {
				c.logger.WarnContext(ctx, "reference signature skipped",
					"signatory", name,
					"error", refs[i].err)
			}
			continue
		}
		parts = append(parts, inference.TextPart("reference signature of "+name))
		parts = append(parts, inference.ImagePart(refs[i].data))
	}

	return inference.Request{System: systemInstruction, Parts: parts}, nil
}

// instructionText renders the user-facing instruction with the full roster.
// Signatories without a usable reference image are still listed so their
// limits are known to the model.
func instructionText(roster signatory.Snapshot) string {
	var b strings.Builder
	b.WriteString("Please review this invoice. Does it meet all requirements?\n\n")
	b.WriteString("Very important: conclude your review with exactly one line in the format: STATUS: [valid/invalid/unclear]\n\n")
	b.WriteString("Authorized signatories:\n")
	for _, name := range roster.Names() {
		fmt.Fprintf(&b, "- %s: up to %s\n", name, strconv.FormatFloat(roster[name].MaxAmount, 'f', -1, 64))
	}
	return b.String()
}
