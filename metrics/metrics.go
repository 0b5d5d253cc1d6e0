// Package metrics exports Prometheus metrics for hsm state machines.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/atlekbai/hsm"
)

// Fire outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeUnhandled  = "unhandled"
	OutcomeGuard      = "guard"
	OutcomeAmbiguous  = "ambiguous"
	OutcomeParameters = "parameters"
	OutcomeError      = "error"
)

// Collector holds the metric vectors shared by every observed machine. The
// machine label tells machines apart.
type Collector struct {
	transitions  *prometheus.CounterVec
	unhandled    *prometheus.CounterVec
	fires        *prometheus.CounterVec
	fireDuration *prometheus.HistogramVec
	currentState *prometheus.GaugeVec
}

// NewCollector registers the metric vectors with reg under namespace.
func NewCollector(reg prometheus.Registerer, namespace string) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hsm_transitions_total",
				Help:      "A count of completed transitions, including initial-transition steps.",
			},
			[]string{"machine", "source", "destination", "trigger"},
		),
		unhandled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hsm_unhandled_triggers_total",
				Help:      "A count of triggers that had no applicable behaviour.",
			},
			[]string{"machine", "state", "trigger", "reason"},
		),
		fires: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hsm_fires_total",
				Help:      "A count of fire calls by outcome.",
			},
			[]string{"machine", "trigger", "outcome"},
		),
		fireDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "hsm_fire_duration_seconds",
				Help:      "Time spent in a fire call, including awaited callbacks.",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5, 30},
			},
			[]string{"machine", "trigger", "outcome"},
		),
		currentState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "hsm_state",
				Help:      "1 for the current state of a machine, 0 for states it has left.",
			},
			[]string{"machine", "state"},
		),
	}
}

// Observe attaches c to sm through its transition notifications.
func Observe[TState, TTrigger comparable](c *Collector, machine string, sm *hsm.StateMachine[TState, TTrigger]) {
	c.currentState.WithLabelValues(machine, fmt.Sprint(sm.State())).Set(1)

	transitions := c.transitions.MustCurryWith(prometheus.Labels{"machine": machine})
	sm.OnTransitioned(func(_ context.Context, t hsm.Transition[TState, TTrigger]) {
		transitions.WithLabelValues(fmt.Sprint(t.Source), fmt.Sprint(t.Destination), fmt.Sprint(t.Trigger)).Inc()
	})

	states := c.currentState.MustCurryWith(prometheus.Labels{"machine": machine})
	sm.OnTransitionCompleted(func(_ context.Context, t hsm.Transition[TState, TTrigger]) {
		states.WithLabelValues(fmt.Sprint(t.Source)).Set(0)
		states.WithLabelValues(fmt.Sprint(t.Destination)).Set(1)
	})
}

// Fire fires trigger on sm and records the outcome and duration of the call.
func Fire[TState, TTrigger comparable](
	ctx context.Context,
	c *Collector,
	machine string,
	sm *hsm.StateMachine[TState, TTrigger],
	trigger TTrigger,
	args ...any,
) error {
	state := sm.State()
	start := time.Now()
	err := sm.FireCtx(ctx, trigger, args...)
	outcome := Outcome(err)

	triggerLabel := fmt.Sprint(trigger)
	c.fires.WithLabelValues(machine, triggerLabel, outcome).Inc()
	c.fireDuration.WithLabelValues(machine, triggerLabel, outcome).Observe(time.Since(start).Seconds())
	if outcome == OutcomeUnhandled || outcome == OutcomeGuard {
		c.unhandled.WithLabelValues(machine, fmt.Sprint(state), triggerLabel, outcome).Inc()
	}
	return err
}

// Outcome classifies the error returned by a fire call.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}

	var invalidTransition *hsm.InvalidTransitionError
	if errors.As(err, &invalidTransition) {
		if invalidTransition.GuardBlocked() {
			return OutcomeGuard
		}
		return OutcomeUnhandled
	}

	var ambiguous *hsm.AmbiguousTransitionError
	if errors.As(err, &ambiguous) {
		return OutcomeAmbiguous
	}

	var parameters *hsm.ParameterConversionError
	if errors.As(err, &parameters) {
		return OutcomeParameters
	}

	return OutcomeError
}
