package hsm

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// recordingTracer records the name and start attributes of every span.
type recordingTracer struct {
	noop.Tracer

	spans []recordedSpan
}

type recordedSpan struct {
	name       string
	attributes map[attribute.Key]string
}

func (r *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	attrs := make(map[attribute.Key]string)
	cfg := trace.NewSpanStartConfig(opts...)
	for _, kv := range cfg.Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	r.spans = append(r.spans, recordedSpan{name: name, attributes: attrs})
	return r.Tracer.Start(ctx, name, opts...)
}

func TestFireLogsWithFireID(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	sm := NewStateMachine[State, Trigger](StateA, WithLogger(logger))
	sm.Configure(StateA).Permit(TriggerX, StateB)

	require.NoError(t, sm.Fire(TriggerX))

	entries := hook.AllEntries()
	require.NotEmpty(t, entries)

	first := entries[0]
	require.Equal(t, "firing trigger", first.Message)
	require.Equal(t, "TriggerX", first.Data["trigger"])
	require.Equal(t, "StateA", first.Data["state"])

	id, ok := first.Data["fire_id"].(string)
	require.True(t, ok)
	_, err := ulid.ParseStrict(id)
	require.NoError(t, err)

	for _, entry := range entries {
		require.Equal(t, id, entry.Data["fire_id"], "entry %q", entry.Message)
	}

	var transitioned bool
	for _, entry := range entries {
		if entry.Message == "transitioned" {
			transitioned = true
			require.Equal(t, "StateB", entry.Data["destination"])
		}
	}
	require.True(t, transitioned)
}

func TestNestedFireLogsParentID(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	sm := NewStateMachine[State, Trigger](StateA, WithLogger(logger))
	sm.Configure(StateA).Permit(TriggerX, StateB)
	sm.Configure(StateB).
		Permit(TriggerY, StateC).
		OnEntry(func(ctx context.Context, _ transition) error {
			return sm.FireCtx(ctx, TriggerY)
		})

	require.NoError(t, sm.Fire(TriggerX))

	var outer, parent string
	for _, entry := range hook.AllEntries() {
		if entry.Message != "firing trigger" {
			continue
		}
		switch entry.Data["trigger"] {
		case "TriggerX":
			outer = entry.Data["fire_id"].(string)
		case "TriggerY":
			parent, _ = entry.Data["parent_fire_id"].(string)
		}
	}
	require.NotEmpty(t, outer)
	require.Equal(t, outer, parent)
}

func TestFireLogsFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	sm := NewStateMachine[State, Trigger](StateA, WithLogger(logger))
	sm.Configure(StateA).PermitIf(TriggerX, StateB, never, "never")

	require.Error(t, sm.Fire(TriggerX))

	last := hook.LastEntry()
	require.NotNil(t, last)
	require.Equal(t, "fire failed", last.Message)
	require.Contains(t, last.Data, logrus.ErrorKey)
}

func TestQueuedTriggerIsLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	sm := NewStateMachineWithMode[State, Trigger](StateA, FiringQueued, WithLogger(logger))
	sm.Configure(StateA).Permit(TriggerX, StateB)
	sm.Configure(StateB).
		Permit(TriggerY, StateC).
		OnEntry(func(ctx context.Context, _ transition) error {
			return sm.FireCtx(ctx, TriggerY)
		})

	require.NoError(t, sm.Fire(TriggerX))

	var queued bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "trigger queued" {
			queued = true
			require.Equal(t, "TriggerY", entry.Data["trigger"])
			require.Equal(t, 1, entry.Data["queued"])
		}
	}
	require.True(t, queued)
}

func TestFireStartsSpan(t *testing.T) {
	tracer := &recordingTracer{}
	sm := NewStateMachine[State, Trigger](StateA, WithTracer(tracer))
	sm.Configure(StateA).Permit(TriggerX, StateB)
	sm.Configure(StateB).Ignore(TriggerY)

	require.NoError(t, sm.Fire(TriggerX))
	require.NoError(t, sm.Fire(TriggerY))

	require.Len(t, tracer.spans, 2)
	for _, span := range tracer.spans {
		require.Equal(t, "hsm.Fire", span.name)
		require.Equal(t, "immediate", span.attributes["hsm.firing_mode"])
		require.NotEmpty(t, span.attributes["hsm.fire_id"])
	}
	require.Equal(t, "TriggerX", tracer.spans[0].attributes["hsm.trigger"])
	require.Equal(t, "StateA", tracer.spans[0].attributes["hsm.source"])
	require.Equal(t, "TriggerY", tracer.spans[1].attributes["hsm.trigger"])
	require.Equal(t, "StateB", tracer.spans[1].attributes["hsm.source"])
}

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	require.Equal(t, FiringImmediate, o.firingMode)
	require.False(t, o.retainContext)
	require.NotNil(t, o.logger)
	require.NotNil(t, o.tracer)

	WithLogger(nil)(&o)
	WithTracer(nil)(&o)
	require.NotNil(t, o.logger)
	require.NotNil(t, o.tracer)
}
