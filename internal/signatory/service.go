package signatory

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"signoff/internal/audit"
	"signoff/internal/imaging"
	"signoff/internal/signatory/metrics"
	"signoff/pkg/domerrors"
	"signoff/pkg/requestcontext"
)

// AuditPublisher is the slice of the audit package this service needs,
// defined here to keep the dependency direction explicit.
type AuditPublisher interface {
	Publish(ctx context.Context, event audit.Event) error
}

// Service orchestrates roster reads and mutations on top of a Store.
type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService constructs a Service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the current roster.
func (s *Service) List(ctx context.Context) (Snapshot, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.observeRoster(snap)
	return snap, nil
}

// Upsert registers or updates a signatory. A nil reference keeps whatever
// image is already on file; a non-nil one replaces it. Validation failures
// surface before anything is loaded or written.
func (s *Service) Upsert(ctx context.Context, name string, maxAmount float64, reference *imaging.Canonical) (Snapshot, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domerrors.New(domerrors.CodeValidation, "signatory name must not be empty")
	}
	if maxAmount < 0 {
		return nil, domerrors.New(domerrors.CodeValidation, "approval limit must not be negative")
	}

	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	entry := Signatory{Name: name, MaxAmount: maxAmount}
	if reference != nil {
		entry.Reference = reference
	} else if existing, ok := snap[name]; ok {
		entry.Reference = existing.Reference
		entry.ReferencePath = existing.ReferencePath
		entry.ReferenceBroken = existing.ReferenceBroken
	}
	snap[name] = entry

	if err := s.save(ctx, snap); err != nil {
		return nil, err
	}
	s.incrementMutation("upsert")
	s.logAudit(ctx, audit.ActionSignatoryUpserted, name, map[string]string{
		"max_amount":    strconv.FormatFloat(maxAmount, 'f', -1, 64),
		"new_reference": strconv.FormatBool(reference != nil),
	})
	s.observeRoster(snap)
	return snap, nil
}

// Remove drops a signatory. Removing a name that is not registered is not an
// error; the registry is rewritten (and backed up) either way.
func (s *Service) Remove(ctx context.Context, name string) (Snapshot, error) {
	name = strings.TrimSpace(name)

	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	_, existed := snap[name]
	delete(snap, name)

	if err := s.save(ctx, snap); err != nil {
		return nil, err
	}
	s.incrementMutation("remove")
	s.logAudit(ctx, audit.ActionSignatoryRemoved, name, map[string]string{
		"existed": strconv.FormatBool(existed),
	})
	s.observeRoster(snap)
	return snap, nil
}

func (s *Service) save(ctx context.Context, snap Snapshot) error {
	start := time.Now()
	err := s.store.Save(ctx, snap)
	if s.metrics != nil {
		s.metrics.ObserveSaveLatency(time.Since(start))
	}
	return err
}

func (s *Service) observeRoster(snap Snapshot) {
	if s.metrics == nil {
		return
	}
	broken := 0
	for _, sig := range snap {
		if sig.ReferenceBroken {
			broken++
		}
	}
	s.metrics.ObserveRoster(len(snap), broken)
}

func (s *Service) incrementMutation(op string) {
	if s.metrics != nil {
		s.metrics.IncrementMutation(op)
	}
}

func (s *Service) logAudit(ctx context.Context, action audit.Action, subject string, detail map[string]string) {
	args := []any{"subject", subject, "event", string(action), "log_type", "audit"}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(action), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	event := audit.NewEvent(action)
	event.Actor = requestcontext.ClientID(ctx)
	event.Subject = subject
	event.Outcome = "ok"
	event.Detail = detail
	event.Client = audit.ClientMetadata{
		RemoteAddr: requestcontext.ClientIP(ctx),
		UserAgent:  requestcontext.UserAgent(ctx),
		Browser:    requestcontext.Browser(ctx),
		OS:         requestcontext.OSName(ctx),
	}
	if err := s.auditPublisher.Publish(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit publish failed",
			"event", string(action),
			"error", err)
	}
}
