package core

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// MetricsRecorder receives the outcome of every store operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer opens a span around a store operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is closed with the operation's error, nil on success.
type TraceSpan interface {
	End(err error)
}

// Clock abstracts time for duration measurement.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// observer runs one store operation under logging, metrics and tracing.
type observer struct {
	log     logrus.FieldLogger
	metrics MetricsRecorder
	tracer  Tracer
	clock   Clock
	entity  EntityType
}

func (o *observer) run(ctx context.Context, op string, fn func(context.Context) error) error {
	name := string(o.entity) + "." + op
	start := o.clock.Now()
	ctx, span := o.tracer.Start(ctx, name)
	err := fn(ctx)
	elapsed := o.clock.Now().Sub(start)
	span.End(err)
	o.metrics.Observe(ctx, name, err == nil, elapsed)

	entry := o.log.WithFields(logrus.Fields{
		"op":       op,
		"entity":   o.entity,
		"duration": elapsed,
	})
	if err != nil {
		entry.WithError(err).Warn("store operation failed")
		return err
	}
	entry.Debug("store operation completed")
	return nil
}

// resync re-runs a full refresh after a successful write. The write already
// succeeded, so a refresh failure is logged and the previous cache is kept.
func (o *observer) resync(ctx context.Context, refresh func(context.Context) error) {
	if err := refresh(ctx); err != nil {
		o.log.WithFields(logrus.Fields{"entity": o.entity}).WithError(err).Warn("refresh after write failed")
	}
}
