package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/atlekbai/hsm"
)

const (
	idle    = "Idle"
	running = "Running"
	paused  = "Paused"
	active  = "Active"

	start  = "Start"
	pause  = "Pause"
	resume = "Resume"
	stop   = "Stop"
)

func newMachine() *hsm.StateMachine[string, string] {
	sm := hsm.NewStateMachine[string, string](idle)
	sm.Configure(idle).Permit(start, active)
	sm.Configure(active).InitialTransition(running)
	sm.Configure(running).
		SubstateOf(active).
		PermitIf(pause, paused, func(_ context.Context, args ...any) bool {
			return len(args) == 0
		}, "no arguments")
	sm.Configure(paused).SubstateOf(active).Permit(resume, running)
	return sm
}

func TestFireRecordsTransitions(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	c := NewCollector(reg, "test")
	sm := newMachine()
	Observe(c, "player", sm)

	ctx := context.Background()
	require.NoError(t, Fire(ctx, c, "player", sm, start))
	require.Equal(t, running, sm.State())

	require.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("player", idle, active, start)))
	require.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("player", active, running, start)))
	require.Equal(t, 1.0, testutil.ToFloat64(c.fires.WithLabelValues("player", start, OutcomeOK)))

	require.Equal(t, 0.0, testutil.ToFloat64(c.currentState.WithLabelValues("player", idle)))
	require.Equal(t, 1.0, testutil.ToFloat64(c.currentState.WithLabelValues("player", running)))

	require.Equal(t, 1, testutil.CollectAndCount(c.fireDuration))
}

func TestFireRecordsUnhandledOutcomes(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	c := NewCollector(reg, "test")
	sm := newMachine()
	Observe(c, "player", sm)

	ctx := context.Background()
	require.Error(t, Fire(ctx, c, "player", sm, stop))
	require.NoError(t, Fire(ctx, c, "player", sm, start))
	require.Error(t, Fire(ctx, c, "player", sm, pause, "now"))

	require.Equal(t, 1.0, testutil.ToFloat64(c.fires.WithLabelValues("player", stop, OutcomeUnhandled)))
	require.Equal(t, 1.0, testutil.ToFloat64(c.unhandled.WithLabelValues("player", idle, stop, OutcomeUnhandled)))
	require.Equal(t, 1.0, testutil.ToFloat64(c.fires.WithLabelValues("player", pause, OutcomeGuard)))
	require.Equal(t, 1.0, testutil.ToFloat64(c.unhandled.WithLabelValues("player", running, pause, OutcomeGuard)))
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, OutcomeOK},
		{"unhandled", &hsm.InvalidTransitionError{Trigger: stop, State: idle}, OutcomeUnhandled},
		{"guard", &hsm.InvalidTransitionError{Trigger: stop, State: idle, UnmetGuards: []string{"g"}}, OutcomeGuard},
		{"ambiguous", &hsm.AmbiguousTransitionError{Trigger: stop, State: idle, Count: 2}, OutcomeAmbiguous},
		{"parameters", &hsm.ParameterConversionError{Trigger: stop, Message: "bad"}, OutcomeParameters},
		{"callback", errors.New("boom"), OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}

func TestCollectorRegistersWithNamespace(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	c := NewCollector(reg, "svc")
	sm := newMachine()
	Observe(c, "player", sm)

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, family := range families {
		names = append(names, family.GetName())
	}
	require.Contains(t, names, "svc_hsm_state")
}
