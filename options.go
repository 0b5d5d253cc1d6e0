package hsm

import (
	"io"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/atlekbai/hsm"

// FiringMode determines how the state machine handles triggers fired while a
// firing is already in progress.
type FiringMode int

const (
	// FiringImmediate processes a trigger as soon as it is fired, including
	// triggers fired from inside callbacks. This is the default mode.
	FiringImmediate FiringMode = iota

	// FiringQueued appends triggers fired during a firing to a FIFO that is
	// drained once the current firing completes.
	FiringQueued
)

// String returns the name of the firing mode.
func (m FiringMode) String() string {
	switch m {
	case FiringImmediate:
		return "immediate"
	case FiringQueued:
		return "queued"
	default:
		return "unknown"
	}
}

// Option configures a StateMachine at construction time.
type Option func(*options)

type options struct {
	firingMode    FiringMode
	logger        logrus.FieldLogger
	tracer        trace.Tracer
	retainContext bool
}

func defaultOptions() options {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return options{
		firingMode: FiringImmediate,
		logger:     logger,
		tracer:     noop.NewTracerProvider().Tracer(tracerName),
	}
}

// WithFiringMode selects immediate or queued firing.
func WithFiringMode(mode FiringMode) Option {
	return func(o *options) {
		o.firingMode = mode
	}
}

// WithLogger sets the logger used for firing diagnostics. The default logger
// discards everything.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracer sets the tracer that records one span per firing.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithRetainContext makes queued triggers run under the context of the fire
// call that drains the queue rather than the context they were fired with.
func WithRetainContext(retain bool) Option {
	return func(o *options) {
		o.retainContext = retain
	}
}
