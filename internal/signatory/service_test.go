package signatory

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"signoff/internal/audit"
	"signoff/internal/imaging"
	"signoff/pkg/domerrors"
	"signoff/pkg/requestcontext"
)

type capturingPublisher struct {
	events []audit.Event
}

func (c *capturingPublisher) Publish(_ context.Context, event audit.Event) error {
	c.events = append(c.events, event)
	return nil
}

type ServiceSuite struct {
	suite.Suite
	store  *MemoryStore
	audits *capturingPublisher
	svc    *Service
	ctx    context.Context
}

func (s *ServiceSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.audits = &capturingPublisher{}
	s.svc = NewService(s.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(s.audits),
	)
	s.ctx = context.Background()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func newTestReference(t *testing.T, c color.Color) *imaging.Canonical {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test reference: %v", err)
	}
	ref, err := imaging.OpenBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("decode test reference: %v", err)
	}
	return ref
}

// TestUpsertValidation verifies bad input fails before anything is written.
func (s *ServiceSuite) TestUpsertValidation() {
	s.Run("rejects empty name", func() {
		_, err := s.svc.Upsert(s.ctx, "", 100, nil)
		s.Require().Error(err)
		s.True(domerrors.HasCode(err, domerrors.CodeValidation))
	})

	s.Run("rejects whitespace-only name", func() {
		_, err := s.svc.Upsert(s.ctx, "   ", 100, nil)
		s.Require().Error(err)
		s.True(domerrors.HasCode(err, domerrors.CodeValidation))
	})

	s.Run("rejects negative limit", func() {
		_, err := s.svc.Upsert(s.ctx, "Jane Smith", -1, nil)
		s.Require().Error(err)
		s.True(domerrors.HasCode(err, domerrors.CodeValidation))
	})

	s.Run("registry untouched after rejections", func() {
		snap, err := s.svc.List(s.ctx)
		s.Require().NoError(err)
		s.Empty(snap)
	})
}

// TestUpsertAndList verifies inserts land in the roster with trimmed names.
func (s *ServiceSuite) TestUpsertAndList() {
	_, err := s.svc.Upsert(s.ctx, "  Jane Smith  ", 5000, nil)
	s.Require().NoError(err)
	_, err = s.svc.Upsert(s.ctx, "Ada Lovelace", 10000, nil)
	s.Require().NoError(err)

	snap, err := s.svc.List(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"Ada Lovelace", "Jane Smith"}, snap.Names())
	s.Equal(float64(5000), snap["Jane Smith"].MaxAmount)
	s.Equal(float64(10000), snap["Ada Lovelace"].MaxAmount)
}

// TestUpsertReferenceHandling verifies a nil reference keeps the stored image
// and a non-nil one replaces it.
func (s *ServiceSuite) TestUpsertReferenceHandling() {
	first := newTestReference(s.T(), color.RGBA{R: 255, A: 255})

	_, err := s.svc.Upsert(s.ctx, "Jane Smith", 5000, first)
	s.Require().NoError(err)

	s.Run("nil reference keeps existing image", func() {
		snap, err := s.svc.Upsert(s.ctx, "Jane Smith", 7500, nil)
		s.Require().NoError(err)
		s.Require().True(snap["Jane Smith"].HasReference())
		s.Same(first, snap["Jane Smith"].Reference)
		s.Equal(float64(7500), snap["Jane Smith"].MaxAmount)
	})

	s.Run("new reference replaces existing image", func() {
		second := newTestReference(s.T(), color.RGBA{G: 255, A: 255})
		snap, err := s.svc.Upsert(s.ctx, "Jane Smith", 7500, second)
		s.Require().NoError(err)
		s.Same(second, snap["Jane Smith"].Reference)
	})
}

// TestRemove verifies removal is idempotent.
func (s *ServiceSuite) TestRemove() {
	s.Run("removing an unknown name is not an error", func() {
		snap, err := s.svc.Remove(s.ctx, "Nobody")
		s.Require().NoError(err)
		s.Empty(snap)
	})

	s.Run("removes a registered signatory", func() {
		_, err := s.svc.Upsert(s.ctx, "Jane Smith", 5000, nil)
		s.Require().NoError(err)

		snap, err := s.svc.Remove(s.ctx, "Jane Smith")
		s.Require().NoError(err)
		s.Empty(snap)

		snap, err = s.svc.Remove(s.ctx, "Jane Smith")
		s.Require().NoError(err)
		s.Empty(snap)
	})
}

// TestAuditTrail verifies mutations publish events carrying the caller
// identity from the request context.
func (s *ServiceSuite) TestAuditTrail() {
	ctx := requestcontext.WithClientID(s.ctx, "finance-portal")
	ctx = requestcontext.WithClientMetadata(ctx, "10.1.2.3", "curl/8.0")

	_, err := s.svc.Upsert(ctx, "Jane Smith", 5000, nil)
	s.Require().NoError(err)
	_, err = s.svc.Remove(ctx, "Jane Smith")
	s.Require().NoError(err)

	s.Require().Len(s.audits.events, 2)

	upserted := s.audits.events[0]
	s.Equal(audit.ActionSignatoryUpserted, upserted.Action)
	s.Equal("finance-portal", upserted.Actor)
	s.Equal("Jane Smith", upserted.Subject)
	s.Equal("5000", upserted.Detail["max_amount"])
	s.Equal("10.1.2.3", upserted.Client.RemoteAddr)
	s.NotEmpty(upserted.ID)
	s.False(upserted.OccurredAt.IsZero())

	removed := s.audits.events[1]
	s.Equal(audit.ActionSignatoryRemoved, removed.Action)
	s.Equal("true", removed.Detail["existed"])
}

// TestSnapshotNames verifies roster iteration order is lexicographic.
func TestSnapshotNames(t *testing.T) {
	snap := Snapshot{
		"Charlie": {Name: "Charlie"},
		"alice":   {Name: "alice"},
		"Bob":     {Name: "Bob"},
	}
	// Uppercase sorts before lowercase in byte order.
	got := snap.Names()
	if len(got) != 3 || got[0] != "Bob" || got[1] != "Charlie" || got[2] != "alice" {
		t.Fatalf("unexpected order: %v", got)
	}
}
