// Package service implements the passport ledger: issuance, profile and
// rank/badge mutation, metadata rendering, and the lifecycle gate. Every
// mutating operation is guarded up front (authority, pause) and executes as
// one indivisible unit against the store; callers observe either the whole
// effect or none of it.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"soulpass/internal/events"
	passportmetrics "soulpass/internal/passport/metrics"
	passportstore "soulpass/internal/passport/store/passport"
	"soulpass/internal/metadata"
	id "soulpass/pkg/domain"
	dErrors "soulpass/pkg/domain-errors"
	"soulpass/pkg/platform/sentinel"
	"soulpass/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Publisher

// MaxBatchSize caps batch onboarding so unit-of-work cost stays predictable.
const MaxBatchSize = 100

// Publisher emits ledger events. Failures fail the calling operation.
type Publisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Ledger orchestrates all passport operations.
type Ledger struct {
	store     passportstore.Store
	renderer  *metadata.Renderer
	authority id.Address

	publisher Publisher
	cache     *metadata.Cache
	metrics   *passportmetrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer

	pauseMu sync.RWMutex
	paused  bool
}

// Option configures the Ledger.
type Option func(l *Ledger)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithPublisher sets the event publisher.
func WithPublisher(publisher Publisher) Option {
	return func(l *Ledger) {
		l.publisher = publisher
	}
}

// WithMetrics sets the domain metrics collector.
func WithMetrics(m *passportmetrics.Metrics) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

// WithMetadataCache sets the render cache.
func WithMetadataCache(cache *metadata.Cache) Option {
	return func(l *Ledger) {
		l.cache = cache
	}
}

// New constructs a Ledger. The authority address is the single identity
// allowed to perform administrative mutations.
func New(store passportstore.Store, renderer *metadata.Renderer, authority id.Address, opts ...Option) *Ledger {
	l := &Ledger{
		store:     store,
		renderer:  renderer,
		authority: authority,
		tracer:    otel.Tracer("soulpass/passport"),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// requireAuthority rejects any caller that is not the configured authority.
func (l *Ledger) requireAuthority(ctx context.Context) error {
	caller := requestcontext.Caller(ctx)
	if caller.IsZero() || caller != l.authority {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the ledger authority")
	}
	return nil
}

// requireUnpaused rejects mutations while the pause switch is on. Destroy is
// exempt: self-destruction is an owner right, not an administrative one.
func (l *Ledger) requireUnpaused() error {
	l.pauseMu.RLock()
	defer l.pauseMu.RUnlock()
	if l.paused {
		return dErrors.New(dErrors.CodePaused, "ledger is paused")
	}
	return nil
}

// wrapStoreErr translates store sentinels into coded domain errors.
func wrapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "passport not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeDuplicateOwner, "owner already holds a passport")
	default:
		if dErrors.CodeOf(err) != dErrors.CodeInternal {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "passport store failure")
	}
}

// emit publishes an event, failing closed so the operation reports the
// failure rather than silently losing its event.
func (l *Ledger) emit(ctx context.Context, event events.Event) error {
	if l.publisher == nil {
		return nil
	}
	if err := l.publisher.Emit(ctx, event); err != nil {
		l.logger.ErrorContext(ctx, "event emission failed",
			"event_type", string(event.Type),
			"token_id", event.TokenID.String(),
			"error", err,
		)
		return err
	}
	if l.metrics != nil {
		l.metrics.IncrementEventsEmitted(string(event.Type))
	}
	return nil
}

func (l *Ledger) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return l.tracer.Start(ctx, name)
}

func recordSpanErr(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}
