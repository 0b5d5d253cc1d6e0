package hsm

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// UnhandledTriggerAction is called when a fired trigger has no applicable
// behaviour. unmetGuards is empty when the trigger is not configured at all.
// The returned error is returned from the fire call.
type UnhandledTriggerAction[TState, TTrigger comparable] func(
	ctx context.Context,
	state TState,
	trigger TTrigger,
	unmetGuards []string,
) error

// StateMachine represents a state machine that can transition between states based on triggers.
//
// A StateMachine is not safe for concurrent firing; callers that fire from
// several goroutines must synchronize externally.
type StateMachine[TState, TTrigger comparable] struct {
	stateAccessor func() TState
	stateMutator  func(TState)

	arena                *stateArena[TState, TTrigger]
	triggerConfiguration map[TTrigger]*TriggerWithParameters[TTrigger]

	unhandledTriggerAction     UnhandledTriggerAction[TState, TTrigger]
	onTransitionedEvent        *transitionEvent[TState, TTrigger]
	onTransitionCompletedEvent *transitionEvent[TState, TTrigger]

	firingMode    FiringMode
	retainContext bool
	logger        logrus.FieldLogger
	tracer        trace.Tracer

	// mutex guards the queue and the firing flag only.
	mutex      sync.Mutex
	eventQueue []queuedEvent[TTrigger]
	firing     bool

	isActive     bool
	initialState TState
}

// transitionEvent holds the OnTransitioned or OnTransitionCompleted handlers.
type transitionEvent[TState, TTrigger comparable] struct {
	handlers []func(ctx context.Context, t Transition[TState, TTrigger]) error
}

func (e *transitionEvent[TState, TTrigger]) register(handler func(ctx context.Context, t Transition[TState, TTrigger]) error) {
	e.handlers = append(e.handlers, handler)
}

func (e *transitionEvent[TState, TTrigger]) invoke(ctx context.Context, t Transition[TState, TTrigger]) error {
	for _, handler := range e.handlers {
		if err := handler(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// NewStateMachine creates a new state machine with the specified initial state.
func NewStateMachine[TState, TTrigger comparable](initialState TState, opts ...Option) *StateMachine[TState, TTrigger] {
	state := initialState
	return NewStateMachineWithExternalStorage[TState, TTrigger](
		func() TState { return state },
		func(s TState) { state = s },
		opts...,
	)
}

// NewStateMachineWithMode creates a new state machine with the specified initial state and firing mode.
func NewStateMachineWithMode[TState, TTrigger comparable](
	initialState TState,
	firingMode FiringMode,
	opts ...Option,
) *StateMachine[TState, TTrigger] {
	return NewStateMachine[TState, TTrigger](initialState, append(opts, WithFiringMode(firingMode))...)
}

// NewStateMachineWithExternalStorage creates a new state machine whose current
// state lives in caller-owned storage. The accessor and mutator are called on
// every read and write; the machine never caches the value across steps.
func NewStateMachineWithExternalStorage[TState, TTrigger comparable](
	stateAccessor func() TState,
	stateMutator func(TState),
	opts ...Option,
) *StateMachine[TState, TTrigger] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &StateMachine[TState, TTrigger]{
		stateAccessor:              stateAccessor,
		stateMutator:               stateMutator,
		arena:                      newStateArena[TState, TTrigger](),
		triggerConfiguration:       make(map[TTrigger]*TriggerWithParameters[TTrigger]),
		onTransitionedEvent:        &transitionEvent[TState, TTrigger]{},
		onTransitionCompletedEvent: &transitionEvent[TState, TTrigger]{},
		firingMode:                 o.firingMode,
		retainContext:              o.retainContext,
		logger:                     o.logger,
		tracer:                     o.tracer,
		initialState:               stateAccessor(),
	}
}

// NewStateMachineWithExternalStorageAndMode creates a new state machine with external state storage
// and the specified firing mode.
func NewStateMachineWithExternalStorageAndMode[TState, TTrigger comparable](
	stateAccessor func() TState,
	stateMutator func(TState),
	firingMode FiringMode,
	opts ...Option,
) *StateMachine[TState, TTrigger] {
	return NewStateMachineWithExternalStorage[TState, TTrigger](stateAccessor, stateMutator, append(opts, WithFiringMode(firingMode))...)
}

// State returns the current state.
func (sm *StateMachine[TState, TTrigger]) State() TState {
	return sm.stateAccessor()
}

// FiringMode returns the firing mode selected at construction.
func (sm *StateMachine[TState, TTrigger]) FiringMode() FiringMode {
	return sm.firingMode
}

// Configure begins configuration of a state.
func (sm *StateMachine[TState, TTrigger]) Configure(state TState) *StateConfiguration[TState, TTrigger] {
	return newStateConfiguration(sm.arena.getOrCreate(state), sm.arena)
}

// SetTriggerParameters declares the argument types a trigger must be fired
// with. A trigger's parameters can be declared only once.
func (sm *StateMachine[TState, TTrigger]) SetTriggerParameters(
	trigger TTrigger,
	argumentTypes ...reflect.Type,
) *TriggerWithParameters[TTrigger] {
	if _, exists := sm.triggerConfiguration[trigger]; exists {
		panic(&InvalidOperationError{
			Message: fmt.Sprintf("parameters for the trigger '%v' have already been configured", trigger),
		})
	}
	configured := NewTriggerWithParameters(trigger, argumentTypes...)
	sm.triggerConfiguration[trigger] = configured
	return configured
}

// OnUnhandledTrigger overrides the default policy, which fails the fire call
// with an *InvalidTransitionError.
func (sm *StateMachine[TState, TTrigger]) OnUnhandledTrigger(action UnhandledTriggerAction[TState, TTrigger]) {
	sm.unhandledTriggerAction = action
}

// OnUnhandledTriggerAsync is OnUnhandledTrigger for an asynchronous handler.
func (sm *StateMachine[TState, TTrigger]) OnUnhandledTriggerAsync(
	action func(ctx context.Context, state TState, trigger TTrigger, unmetGuards []string) Task,
) {
	sm.unhandledTriggerAction = func(ctx context.Context, state TState, trigger TTrigger, unmetGuards []string) error {
		return action(ctx, state, trigger, unmetGuards).Wait()
	}
}

// OnTransitioned registers a callback invoked after the current state is
// updated and before entry actions run.
func (sm *StateMachine[TState, TTrigger]) OnTransitioned(action func(ctx context.Context, t Transition[TState, TTrigger])) {
	sm.onTransitionedEvent.register(func(ctx context.Context, t Transition[TState, TTrigger]) error {
		action(ctx, t)
		return nil
	})
}

// OnTransitionedAsync registers an asynchronous OnTransitioned callback. An
// error delivered by its task fails the fire call.
func (sm *StateMachine[TState, TTrigger]) OnTransitionedAsync(action TransitionTask[TState, TTrigger]) {
	sm.onTransitionedEvent.register(func(ctx context.Context, t Transition[TState, TTrigger]) error {
		return action(ctx, t).Wait()
	})
}

// OnTransitionCompleted registers a callback invoked after all entry actions,
// including those of initial transitions, have run.
func (sm *StateMachine[TState, TTrigger]) OnTransitionCompleted(action func(ctx context.Context, t Transition[TState, TTrigger])) {
	sm.onTransitionCompletedEvent.register(func(ctx context.Context, t Transition[TState, TTrigger]) error {
		action(ctx, t)
		return nil
	})
}

// OnTransitionCompletedAsync registers an asynchronous OnTransitionCompleted callback.
func (sm *StateMachine[TState, TTrigger]) OnTransitionCompletedAsync(action TransitionTask[TState, TTrigger]) {
	sm.onTransitionCompletedEvent.register(func(ctx context.Context, t Transition[TState, TTrigger]) error {
		return action(ctx, t).Wait()
	})
}

// UnregisterAllCallbacks removes all OnTransitioned, OnTransitionCompleted and
// OnUnhandledTrigger callbacks.
func (sm *StateMachine[TState, TTrigger]) UnregisterAllCallbacks() {
	sm.onTransitionedEvent.handlers = nil
	sm.onTransitionCompletedEvent.handlers = nil
	sm.unhandledTriggerAction = nil
}

// Activate executes the activation actions of the current state and its
// superstates, outermost first. Activating an active machine is a no-op.
func (sm *StateMachine[TState, TTrigger]) Activate(ctx context.Context) error {
	if sm.isActive {
		return nil
	}

	state := sm.State()
	if err := sm.arena.find(state).Activate(ctx); err != nil {
		sm.logger.WithError(err).WithField("state", fmt.Sprint(state)).Debug("activation failed")
		return err
	}

	sm.isActive = true
	return nil
}

// Deactivate executes the deactivation actions of the current state and its
// superstates, innermost first. Deactivating an inactive machine is a no-op.
func (sm *StateMachine[TState, TTrigger]) Deactivate(ctx context.Context) error {
	if !sm.isActive {
		return nil
	}

	state := sm.State()
	if err := sm.arena.find(state).Deactivate(ctx); err != nil {
		sm.logger.WithError(err).WithField("state", fmt.Sprint(state)).Debug("deactivation failed")
		return err
	}

	sm.isActive = false
	return nil
}

// IsActive reports whether the machine has been activated.
func (sm *StateMachine[TState, TTrigger]) IsActive() bool {
	return sm.isActive
}

// IsInState returns true if the current state is the specified state or a substate of it.
func (sm *StateMachine[TState, TTrigger]) IsInState(state TState) bool {
	return sm.arena.find(sm.State()).IsIncludedIn(state)
}

// CanFire returns true if the specified trigger can be fired from the current state.
func (sm *StateMachine[TState, TTrigger]) CanFire(trigger TTrigger, args ...any) bool {
	return sm.CanFireCtx(context.Background(), trigger, args...)
}

// CanFireCtx is CanFire with a context passed to the guards.
func (sm *StateMachine[TState, TTrigger]) CanFireCtx(ctx context.Context, trigger TTrigger, args ...any) bool {
	if !sm.acceptsArguments(trigger, args) {
		return false
	}
	return sm.arena.find(sm.State()).CanHandle(ctx, trigger, args)
}

// PermittedTriggers returns the triggers that can be fired from the current state.
func (sm *StateMachine[TState, TTrigger]) PermittedTriggers(args ...any) []TTrigger {
	return sm.PermittedTriggersCtx(context.Background(), args...)
}

// PermittedTriggersCtx is PermittedTriggers with a context passed to the guards.
func (sm *StateMachine[TState, TTrigger]) PermittedTriggersCtx(ctx context.Context, args ...any) []TTrigger {
	return sm.arena.find(sm.State()).GetPermittedTriggers(ctx, args, sm.acceptsArguments)
}

// acceptsArguments reports whether args match the declared parameters of
// trigger. Triggers without declared parameters accept anything.
func (sm *StateMachine[TState, TTrigger]) acceptsArguments(trigger TTrigger, args []any) bool {
	parameters, ok := sm.triggerConfiguration[trigger]
	return !ok || parameters.ValidateParameters(args) == nil
}

// String returns a string representation of the current state.
func (sm *StateMachine[TState, TTrigger]) String() string {
	return fmt.Sprintf("StateMachine { State = %v, PermittedTriggers = %v }", sm.State(), sm.PermittedTriggers())
}
