package core

import "github.com/sirupsen/logrus"

// DefaultSlotKey names the credential slot in local storage.
const DefaultSlotKey = "key"

// Option customises stores and the catalog.
type Option func(*options)

type options struct {
	logger  logrus.FieldLogger
	metrics MetricsRecorder
	tracer  Tracer
	clock   Clock
	slotKey string
}

func newOptions(opts []Option) options {
	o := options{
		logger:  discardLogger(),
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		clock:   systemClock{},
		slotKey: DefaultSlotKey,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func (o options) observer(entity EntityType) *observer {
	return &observer{
		log:     o.logger.WithField("store", entity),
		metrics: o.metrics,
		tracer:  o.tracer,
		clock:   o.clock,
		entity:  entity,
	}
}

// WithLogger sets the logger. Nil keeps the discarding default.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithClock overrides the clock used for durations.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithSlotKey overrides the credential slot name.
func WithSlotKey(key string) Option {
	return func(o *options) {
		if key != "" {
			o.slotKey = key
		}
	}
}
