package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry is the set of sinks a store operation reports to.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Events  *EventPublisher
	Config  *Config
}

type telemetryKey struct{}

// NewTelemetry builds every sink from cfg, including the logger.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	return build(cfg, func() (*Logger, error) { return NewLogger(cfg.Logging) })
}

// NewTelemetryWithLogger builds the sinks from cfg around logger.
func NewTelemetryWithLogger(cfg *Config, logger *Logger) (*Telemetry, error) {
	return build(cfg, func() (*Logger, error) { return logger, nil })
}

func build(cfg *Config, newLogger func() (*Logger, error)) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	logger, err := newLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		return nil, err
	}
	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Events:  NewEventPublisher(),
		Config:  cfg,
	}, nil
}

// Noop returns telemetry that logs nothing and exports nothing.
func Noop() *Telemetry {
	tel, _ := NewTelemetryWithLogger(DefaultConfig(), Nop())
	return tel
}

// WithContext stores t and its logger in ctx.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	return t.Logger.WithContext(context.WithValue(ctx, telemetryKey{}, t))
}

// FromTelemetryContext returns the Telemetry stored in ctx, or nil.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	t, _ := ctx.Value(telemetryKey{}).(*Telemetry)
	return t
}

// Shutdown flushes pending spans and closes the log file.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(t.Tracer.Shutdown(ctx), t.Logger.Close())
}

// InstrumentedContext is one in-flight store operation.
type InstrumentedContext struct {
	Ctx    context.Context
	Span   trace.Span
	Logger *Logger

	operation string
	started   time.Time
	metrics   *Metrics
}

// StartOperation begins an instrumented store operation with logging,
// tracing, and timing.
func (t *Telemetry) StartOperation(ctx context.Context, operation string, attrs ...attribute.KeyValue) *InstrumentedContext {
	spanCtx, span := t.Tracer.StartStoreSpan(ctx, operation, attrs...)

	logger := t.Logger.WithField("operation", operation)
	if sc := span.SpanContext(); sc.IsValid() {
		logger = logger.
			WithField("trace_id", sc.TraceID().String()).
			WithField("span_id", sc.SpanID().String())
	}

	return &InstrumentedContext{
		Ctx:       logger.WithContext(spanCtx),
		Span:      span,
		Logger:    logger,
		operation: operation,
		started:   time.Now(),
		metrics:   t.Metrics,
	}
}

// End finishes the operation. kind classifies err for the error counter and
// is ignored when err is nil.
func (ic *InstrumentedContext) End(err error, kind string) {
	duration := time.Since(ic.started)
	ic.metrics.RecordOperation(ic.operation, duration, err)

	if err != nil {
		RecordError(ic.Span, err)
		if kind != "" {
			ic.Span.SetAttributes(AttrErrorKind.String(kind))
		}
		ic.metrics.RecordError(kind)
		if !errors.Is(err, context.Canceled) {
			ic.Logger.WithError(err).WithField("kind", kind).Warn("store operation failed")
		}
	} else {
		RecordSuccess(ic.Span)
		ic.Logger.WithField("duration", duration.String()).Debug("store operation completed")
	}

	ic.Span.End()
}
