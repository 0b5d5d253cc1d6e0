package hsm

import "fmt"

// Transition is the value handed to actions and notifications: one step from
// Source to Destination caused by Trigger.
type Transition[TState, TTrigger comparable] struct {
	Source      TState
	Destination TState
	Trigger     TTrigger

	// Parameters are the arguments of the fire call, never nil.
	Parameters []any

	isInitial bool
}

// NewTransition creates a new transition.
func NewTransition[TState, TTrigger comparable](source, destination TState, trigger TTrigger, parameters ...any) Transition[TState, TTrigger] {
	if parameters == nil {
		parameters = []any{}
	}
	return Transition[TState, TTrigger]{
		Source:      source,
		Destination: destination,
		Trigger:     trigger,
		Parameters:  parameters,
	}
}

// NewInitialTransition creates the step a composite state takes into its
// initial substate. It carries the trigger and arguments of the firing that
// entered the composite state.
func NewInitialTransition[TState, TTrigger comparable](source, destination TState, trigger TTrigger, parameters ...any) Transition[TState, TTrigger] {
	t := NewTransition(source, destination, trigger, parameters...)
	t.isInitial = true
	return t
}

// IsReentry reports whether the transition leaves and re-enters one state.
func (t Transition[TState, TTrigger]) IsReentry() bool {
	return t.Source == t.Destination
}

// IsInitial reports whether the transition is an initial-transition step.
func (t Transition[TState, TTrigger]) IsInitial() bool {
	return t.isInitial
}

// String formats the transition as "Source -[Trigger]-> Destination".
func (t Transition[TState, TTrigger]) String() string {
	return fmt.Sprintf("%v -[%v]-> %v", t.Source, t.Trigger, t.Destination)
}

// to returns a copy of t with a new destination, keeping trigger and arguments.
func (t Transition[TState, TTrigger]) to(destination TState) Transition[TState, TTrigger] {
	return NewTransition(t.Source, destination, t.Trigger, t.Parameters...)
}

// reentryOf returns the reentry of state caused by the same trigger and arguments.
func (t Transition[TState, TTrigger]) reentryOf(state TState) Transition[TState, TTrigger] {
	return NewTransition(state, state, t.Trigger, t.Parameters...)
}

// initialStep returns the initial-transition step from source to destination
// caused by the same trigger and arguments.
func (t Transition[TState, TTrigger]) initialStep(source, destination TState) Transition[TState, TTrigger] {
	return NewInitialTransition(source, destination, t.Trigger, t.Parameters...)
}
