package hsm

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type queuedEvent[TTrigger comparable] struct {
	ctx     context.Context
	trigger TTrigger
	args    []any
}

type fireIDKey struct{}

func withFireID(ctx context.Context, id ulid.ULID) context.Context {
	return context.WithValue(ctx, fireIDKey{}, id)
}

// FireIDFromContext returns the identifier of the firing a callback is running in.
func FireIDFromContext(ctx context.Context) (ulid.ULID, bool) {
	id, ok := ctx.Value(fireIDKey{}).(ulid.ULID)
	return id, ok
}

// Fire fires a trigger with optional arguments.
func (sm *StateMachine[TState, TTrigger]) Fire(trigger TTrigger, args ...any) error {
	return sm.FireCtx(context.Background(), trigger, args...)
}

// FireCtx fires a trigger with a context and optional arguments. It blocks
// until the firing, every asynchronous callback it awaits and, in queued mode,
// every trigger queued meanwhile have been processed.
func (sm *StateMachine[TState, TTrigger]) FireCtx(ctx context.Context, trigger TTrigger, args ...any) error {
	if sm.firingMode == FiringQueued {
		return sm.internalFireQueued(ctx, trigger, args)
	}
	return sm.internalFireOne(ctx, trigger, args)
}

// FireAsync fires a trigger on a separate goroutine and returns a Task that
// completes with the result.
func (sm *StateMachine[TState, TTrigger]) FireAsync(ctx context.Context, trigger TTrigger, args ...any) Task {
	return Go(func() error {
		return sm.FireCtx(ctx, trigger, args...)
	})
}

// internalFireQueued runs the trigger inline when the machine is idle and
// otherwise appends it to the queue drained by the fire call in progress.
func (sm *StateMachine[TState, TTrigger]) internalFireQueued(ctx context.Context, trigger TTrigger, args []any) error {
	sm.mutex.Lock()
	if sm.firing {
		sm.eventQueue = append(sm.eventQueue, queuedEvent[TTrigger]{ctx: ctx, trigger: trigger, args: args})
		queued := len(sm.eventQueue)
		sm.mutex.Unlock()
		sm.logger.WithFields(logrus.Fields{
			"trigger": fmt.Sprint(trigger),
			"queued":  queued,
		}).Debug("trigger queued")
		return nil
	}
	sm.firing = true
	sm.mutex.Unlock()

	finished := false
	defer func() {
		if !finished {
			sm.stopDraining()
		}
	}()

	if err := sm.internalFireOne(ctx, trigger, args); err != nil {
		finished = true
		sm.stopDraining()
		return err
	}

	for {
		sm.mutex.Lock()
		if len(sm.eventQueue) == 0 {
			sm.firing = false
			sm.mutex.Unlock()
			finished = true
			return nil
		}
		event := sm.eventQueue[0]
		sm.eventQueue = sm.eventQueue[1:]
		sm.mutex.Unlock()

		eventCtx := event.ctx
		if sm.retainContext {
			eventCtx = ctx
		}
		if err := sm.internalFireOne(eventCtx, event.trigger, event.args); err != nil {
			finished = true
			sm.stopDraining()
			return err
		}
	}
}

// stopDraining discards pending queued triggers and marks the machine idle.
func (sm *StateMachine[TState, TTrigger]) stopDraining() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	if len(sm.eventQueue) > 0 {
		sm.logger.WithField("discarded", len(sm.eventQueue)).Debug("discarding queued triggers")
	}
	sm.eventQueue = nil
	sm.firing = false
}

// internalFireOne processes a single trigger.
func (sm *StateMachine[TState, TTrigger]) internalFireOne(ctx context.Context, trigger TTrigger, args []any) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	fireID := ulid.Make()
	source := sm.State()
	log := sm.logger.WithFields(logrus.Fields{
		"fire_id": fireID.String(),
		"trigger": fmt.Sprint(trigger),
		"state":   fmt.Sprint(source),
	})
	if parent, ok := FireIDFromContext(ctx); ok {
		log = log.WithField("parent_fire_id", parent.String())
	}
	ctx = withFireID(ctx, fireID)

	ctx, span := sm.tracer.Start(ctx, "hsm.Fire", trace.WithAttributes(
		attribute.String("hsm.fire_id", fireID.String()),
		attribute.String("hsm.trigger", fmt.Sprint(trigger)),
		attribute.String("hsm.source", fmt.Sprint(source)),
		attribute.String("hsm.firing_mode", sm.firingMode.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.WithError(err).Debug("fire failed")
		}
		span.End()
	}()

	log.Debug("firing trigger")

	if parameters, ok := sm.triggerConfiguration[trigger]; ok {
		if err := parameters.ValidateParameters(args); err != nil {
			return err
		}
	}

	representative := sm.arena.find(source)
	result, err := representative.TryFindHandler(ctx, trigger, args)
	if err != nil {
		return err
	}
	if result == nil || result.Handler == nil {
		var unmet []string
		if result != nil {
			unmet = result.UnmetGuardConditions
		}
		return sm.handleUnhandledTrigger(ctx, log, source, trigger, args, unmet)
	}

	switch behaviour := result.Handler.(type) {
	case *IgnoredTriggerBehaviour[TState, TTrigger]:
		log.Debug("trigger ignored")
		return nil

	case *InternalTriggerBehaviour[TState, TTrigger]:
		log.Debug("internal transition")
		return behaviour.Execute(ctx, NewTransition(source, source, trigger, args...))

	case *ReentryTriggerBehaviour[TState, TTrigger]:
		transition := NewTransition(source, behaviour.Destination, trigger, args...)
		return sm.handleReentryTrigger(ctx, log, representative, transition)

	case *TransitioningTriggerBehaviour[TState, TTrigger]:
		// A superstate transition into the current state would cause an
		// unintended reentry.
		if source == behaviour.Destination {
			log.Debug("inherited transition targets current state")
			return nil
		}
		transition := NewTransition(source, behaviour.Destination, trigger, args...)
		return sm.handleTransitioningTrigger(ctx, log, representative, transition)

	case *DynamicTriggerBehaviour[TState, TTrigger]:
		destination, err := behaviour.GetDestinationState(ctx, args)
		if err != nil {
			return err
		}
		transition := NewTransition(source, destination, trigger, args...)
		return sm.handleTransitioningTrigger(ctx, log, representative, transition)
	}

	return &InvalidOperationError{Message: fmt.Sprintf("unknown trigger behaviour type: %T", result.Handler)}
}

func (sm *StateMachine[TState, TTrigger]) handleTransitioningTrigger(
	ctx context.Context,
	log logrus.FieldLogger,
	representative *StateRepresentation[TState, TTrigger],
	transition Transition[TState, TTrigger],
) error {
	if err := representative.Exit(ctx, transition); err != nil {
		return err
	}
	return sm.completeTransition(ctx, log, transition)
}

// handleReentryTrigger exits up to the reentrant state and then exits and
// re-enters that state. The reentrant state may be a superstate of the
// current state when the behaviour was inherited.
func (sm *StateMachine[TState, TTrigger]) handleReentryTrigger(
	ctx context.Context,
	log logrus.FieldLogger,
	representative *StateRepresentation[TState, TTrigger],
	transition Transition[TState, TTrigger],
) error {
	if err := representative.Exit(ctx, transition); err != nil {
		return err
	}
	if !transition.IsReentry() {
		transition = transition.reentryOf(transition.Destination)
		if err := sm.arena.find(transition.Destination).Exit(ctx, transition); err != nil {
			return err
		}
	}
	return sm.completeTransition(ctx, log, transition)
}

// completeTransition runs everything after the exit phase: state update,
// OnTransitioned, entry, initial-transition cascade and OnTransitionCompleted.
func (sm *StateMachine[TState, TTrigger]) completeTransition(
	ctx context.Context,
	log logrus.FieldLogger,
	transition Transition[TState, TTrigger],
) error {
	sm.stateMutator(transition.Destination)
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("hsm.destination", fmt.Sprint(transition.Destination)))
	log.WithFields(logrus.Fields{
		"destination": fmt.Sprint(transition.Destination),
		"transition":  transition.String(),
	}).Debug("transitioned")

	if err := sm.onTransitionedEvent.invoke(ctx, transition); err != nil {
		return err
	}

	final, err := sm.enterState(ctx, log, transition)
	if err != nil {
		return err
	}

	return sm.onTransitionCompletedEvent.invoke(ctx, transition.to(final))
}

// enterState enters the destination of transition and then follows initial
// transitions down the hierarchy. It returns the state the machine ends in.
func (sm *StateMachine[TState, TTrigger]) enterState(
	ctx context.Context,
	log logrus.FieldLogger,
	transition Transition[TState, TTrigger],
) (TState, error) {
	var zero TState

	if err := sm.arena.find(transition.Destination).Enter(ctx, transition); err != nil {
		return zero, err
	}

	current := transition.Destination
	for {
		// In immediate mode an entry action may have fired a trigger that
		// already moved the machine on; the cascade belongs to that firing.
		if actual := sm.State(); actual != current {
			log.WithField("state", fmt.Sprint(actual)).Debug("state changed during entry")
			return actual, nil
		}

		representation := sm.arena.find(current)
		if !representation.HasInitialTransition() {
			return current, nil
		}

		target := representation.InitialTransitionTarget()
		targetRepresentation := sm.arena.find(target)
		if target == current || !targetRepresentation.IsIncludedIn(current) {
			return zero, &InvalidOperationError{
				Message: fmt.Sprintf("the target '%v' for the initial transition of '%v' is not a substate", target, current),
			}
		}

		initial := transition.initialStep(current, target)
		sm.stateMutator(target)
		log.WithField("destination", fmt.Sprint(target)).Debug("initial transition")

		if err := sm.onTransitionedEvent.invoke(ctx, initial); err != nil {
			return zero, err
		}
		if err := targetRepresentation.Enter(ctx, initial); err != nil {
			return zero, err
		}
		current = target
	}
}

func (sm *StateMachine[TState, TTrigger]) handleUnhandledTrigger(
	ctx context.Context,
	log logrus.FieldLogger,
	state TState,
	trigger TTrigger,
	args []any,
	unmetGuards []string,
) error {
	if len(unmetGuards) > 0 {
		log.WithField("unmet_guards", unmetGuards).Debug("guard conditions not met")
	} else {
		log.Debug("trigger not handled")
	}

	if sm.unhandledTriggerAction != nil {
		return sm.unhandledTriggerAction(ctx, state, trigger, unmetGuards)
	}

	permittedTriggers := sm.arena.find(state).GetPermittedTriggers(ctx, args, sm.acceptsArguments)
	permitted := make([]any, len(permittedTriggers))
	for i, t := range permittedTriggers {
		permitted[i] = t
	}

	return &InvalidTransitionError{
		Trigger:           trigger,
		State:             state,
		UnmetGuards:       unmetGuards,
		PermittedTriggers: permitted,
	}
}
