// Package portal implements the operations exposed by the VM portal: listing
// and controlling virtual machines and App Services, Automation schedules and
// runbooks, metrics and the audit log.
package portal

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yairfalse/vmportal/internal/batch"
	"github.com/yairfalse/vmportal/internal/config"
)

// Principal is the caller identity relayed by the auth gateway. It is used
// for audit attribution only.
type Principal struct {
	UserID           string   `json:"userId"`
	UserDetails      string   `json:"userDetails"`
	IdentityProvider string   `json:"identityProvider,omitempty"`
	Roles            []string `json:"userRoles,omitempty"`
}

// Recorder receives operation telemetry.
type Recorder interface {
	RecordOperation(ctx context.Context, operation, status string, d time.Duration)
	RecordBatchItems(ctx context.Context, action string, succeeded, failed int)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(context.Context, string, string, time.Duration) {}
func (nopRecorder) RecordBatchItems(context.Context, string, int, int)             {}

// Portal is the service layer shared by the HTTP API and the CLI.
type Portal struct {
	cfg      *config.Config
	clients  Clients
	recorder Recorder
	tracer   trace.Tracer
	logger   zerolog.Logger
	now      func() time.Time
}

// Option configures a Portal.
type Option func(*Portal)

// WithRecorder sets the telemetry recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Portal) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithLogger sets the logger used for operational and audit records.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Portal) { p.logger = l }
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Portal) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Portal) { p.now = now }
}

// New creates a Portal.
func New(cfg *config.Config, clients Clients, opts ...Option) *Portal {
	p := &Portal{
		cfg:      cfg,
		clients:  clients,
		recorder: nopRecorder{},
		tracer:   otel.Tracer("github.com/yairfalse/vmportal/portal"),
		logger:   log.Logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the configuration the portal was built with.
func (p *Portal) Config() *config.Config {
	return p.cfg
}

func (p *Portal) batchMax() int {
	if n := p.cfg.Batch.MaxSize; n > 0 && n <= batch.MaxSize {
		return n
	}
	return batch.MaxSize
}

// observe wraps an operation in a span and records its outcome.
func (p *Portal) observe(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	start := p.now()
	ctx, span := p.tracer.Start(ctx, op, trace.WithAttributes(attrs...))

	return ctx, func(errp *error) {
		status := "success"
		if errp != nil && *errp != nil {
			status = "error"
			span.RecordError(*errp)
			span.SetStatus(codes.Error, (*errp).Error())
			p.logger.Error().Ctx(ctx).Err(*errp).Str("operation", op).Msg("operation failed")
		}
		span.End()
		p.recorder.RecordOperation(ctx, op, status, p.now().Sub(start))
	}
}

// audit writes an attributable record of a state-changing request.
func (p *Portal) audit(ctx context.Context, action string, who Principal, fields map[string]any) {
	ev := p.logger.Info().Ctx(ctx).
		Bool("audit", true).
		Str("action", action).
		Str("user_id", who.UserID).
		Str("user_email", who.UserDetails).
		Time("timestamp", p.now().UTC())
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Msg("audit")
}
