package verify

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"signoff/internal/audit"
	"signoff/internal/imaging"
	"signoff/internal/inference"
	"signoff/internal/signatory"
	"signoff/internal/verify/metrics"
	"signoff/pkg/domerrors"
	"signoff/pkg/requestcontext"
)

// attemptTimeout bounds one verification attempt end to end. There is no
// automatic retry; expiry surfaces as a verdict of error.
const attemptTimeout = 60 * time.Second

// RosterLoader supplies the registry snapshot an attempt runs against.
// Satisfied by *signatory.Service. The roster is read once per attempt and
// never written during verification.
type RosterLoader interface {
	List(ctx context.Context) (signatory.Snapshot, error)
}

// AuditPublisher is the slice of the audit package this session needs.
type AuditPublisher interface {
	Publish(ctx context.Context, event audit.Event) error
}

// Session serializes verification attempts: at most one runs at a time, and
// the last outcome stays queryable until the next attempt replaces it.
type Session struct {
	mu    sync.Mutex
	state State
	last  *Result

	roster         RosterLoader
	client         inference.Client
	composer       *Composer
	cache          ResultCache
	metrics        *metrics.Metrics
	logger         *slog.Logger
	auditPublisher AuditPublisher
	tracer         trace.Tracer
	progress       func(Stage)
	timeout        time.Duration
	now            func() time.Time
}

type SessionOption func(*Session)

func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

func WithCache(cache ResultCache) SessionOption {
	return func(s *Session) {
		s.cache = cache
	}
}

func WithMetrics(m *metrics.Metrics) SessionOption {
	return func(s *Session) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) SessionOption {
	return func(s *Session) {
		s.auditPublisher = publisher
	}
}

// WithProgress registers a callback invoked at each attempt milestone.
func WithProgress(fn func(Stage)) SessionOption {
	return func(s *Session) {
		s.progress = fn
	}
}

// WithTimeout overrides the attempt timeout, mainly for tests.
func WithTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock overrides the clock used for result timestamps.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession constructs a Session in the idle state.
func NewSession(roster RosterLoader, client inference.Client, opts ...SessionOption) *Session {
	s := &Session{
		state:   StateIdle,
		roster:  roster,
		client:  client,
		timeout: attemptTimeout,
		now:     time.Now,
		tracer:  otel.Tracer("signoff/internal/verify"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.composer = NewComposer(s.logger)
	return s
}

// Status returns the current state and a copy of the last finished result,
// nil when no attempt has finished yet.
func (s *Session) Status() (State, *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return s.state, nil
	}
	last := *s.last
	return s.state, &last
}

// Verify runs one attempt against the current roster. A second call while an
// attempt is in progress fails with a verification_in_progress error and does
// not disturb the running attempt. Pipeline failures are not returned as
// errors; they come back as a Result with a verdict of error.
func (s *Session) Verify(ctx context.Context, invoice *imaging.Canonical) (Result, error) {
	s.mu.Lock()
	if s.state == StateInProgress {
		s.mu.Unlock()
		s.metrics.IncrementBusyRejection()
		return Result{}, domerrors.New(domerrors.CodeVerificationBusy, "a verification is already in progress")
	}
	s.state = StateInProgress
	s.mu.Unlock()

	attemptID := uuid.NewString()
	s.logAudit(ctx, audit.ActionVerifyStarted, attemptID, "", nil)

	start := s.now()
	result := s.run(ctx, attemptID, invoice)
	result.AttemptID = attemptID
	result.CompletedAt = s.now().UTC()

	s.mu.Lock()
	if result.Verdict == VerdictError {
		s.state = StateError
	} else {
		s.state = StateComplete
	}
	s.last = &result
	s.mu.Unlock()

	s.metrics.ObserveAttemptLatency(s.now().Sub(start))
	s.metrics.IncrementOutcome(string(result.Verdict))

	detail := map[string]string{"from_cache": strconv.FormatBool(result.FromCache)}
	if result.MatchedSignatory != "" {
		detail["matched_signatory"] = result.MatchedSignatory
	}
	s.logAudit(ctx, audit.ActionVerifyCompleted, attemptID, string(result.Verdict), detail)
	s.emit(StageDone)
	return result, nil
}

func (s *Session) run(ctx context.Context, attemptID string, invoice *imaging.Canonical) Result {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "verify.attempt",
		trace.WithAttributes(attribute.String("verify.attempt_id", attemptID)))
	defer span.End()

	s.emit(StageComposing)
	roster, err := s.roster.List(ctx)
	if err != nil {
		return s.fail(ctx, span, "load roster", err)
	}
	span.SetAttributes(attribute.Int("verify.roster_size", len(roster)))

	req, err := s.compose(ctx, invoice, roster)
	if err != nil {
		return s.fail(ctx, span, "compose request", err)
	}

	key := requestDigest(req)
	if cached, ok := s.cachedResult(ctx, key); ok {
		span.SetAttributes(
			attribute.Bool("verify.cache_hit", true),
			attribute.String("verify.verdict", string(cached.Verdict)))
		return cached
	}

	s.emit(StageAwaitingModel)
	raw, err := s.complete(ctx, req)
	if err != nil {
		return s.fail(ctx, span, "inference call", err)
	}

	s.emit(StageClassifying)
	result := s.classify(ctx, raw, roster)
	span.SetAttributes(attribute.String("verify.verdict", string(result.Verdict)))

	s.storeResult(ctx, key, result)
	return result
}

func (s *Session) compose(ctx context.Context, invoice *imaging.Canonical, roster signatory.Snapshot) (inference.Request, error) {
	ctx, span := s.tracer.Start(ctx, "verify.compose")
	defer span.End()
	req, err := s.composer.Compose(ctx, invoice, roster)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "composition failed")
	}
	return req, err
}

func (s *Session) complete(ctx context.Context, req inference.Request) (string, error) {
	ctx, span := s.tracer.Start(ctx, "verify.inference",
		trace.WithAttributes(attribute.Int("verify.request_parts", len(req.Parts))))
	defer span.End()

	start := time.Now()
	raw, err := s.client.Complete(ctx, req)
	s.metrics.ObserveInferenceLatency(time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "inference failed")
	}
	return raw, err
}

func (s *Session) classify(ctx context.Context, raw string, roster signatory.Snapshot) Result {
	_, span := s.tracer.Start(ctx, "verify.classify")
	defer span.End()
	return Classify(raw, roster)
}

// fail converts a pipeline failure into the error verdict. RawText stays
// empty: there is no model reply to classify.
func (s *Session) fail(ctx context.Context, span trace.Span, stage string, err error) Result {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage)
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "verification attempt failed",
			"stage", stage,
			"error", err)
	}
	return Result{Verdict: VerdictError, ErrorDetail: err.Error()}
}

func (s *Session) cachedResult(ctx context.Context, key string) (Result, bool) {
	if s.cache == nil {
		return Result{}, false
	}
	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) && s.logger != nil {
			s.logger.WarnContext(ctx, "result cache read failed", "error", err)
		}
		s.metrics.IncrementCacheMiss()
		return Result{}, false
	}
	s.metrics.IncrementCacheHit()
	cached.FromCache = true
	return cached, true
}

func (s *Session) storeResult(ctx context.Context, key string, result Result) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, result); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "result cache write failed", "error", err)
	}
}

func (s *Session) emit(stage Stage) {
	if s.progress != nil {
		s.progress(stage)
	}
}

func (s *Session) logAudit(ctx context.Context, action audit.Action, subject, outcome string, detail map[string]string) {
	args := []any{"subject", subject, "event", string(action), "log_type", "audit"}
	if outcome != "" {
		args = append(args, "outcome", outcome)
	}
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
	event.Outcome = outcome
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
