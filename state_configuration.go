package hsm

import (
	"fmt"
)

// StateConfiguration provides a fluent interface for configuring state behaviour.
type StateConfiguration[TState, TTrigger comparable] struct {
	representation *StateRepresentation[TState, TTrigger]
	arena          *stateArena[TState, TTrigger]
}

func newStateConfiguration[TState, TTrigger comparable](
	representation *StateRepresentation[TState, TTrigger],
	arena *stateArena[TState, TTrigger],
) *StateConfiguration[TState, TTrigger] {
	return &StateConfiguration[TState, TTrigger]{
		representation: representation,
		arena:          arena,
	}
}

// State returns the state being configured.
func (sc *StateConfiguration[TState, TTrigger]) State() TState {
	return sc.representation.UnderlyingState()
}

// Permit configures the state to transition to the specified destination state
// when the specified trigger is fired.
func (sc *StateConfiguration[TState, TTrigger]) Permit(trigger TTrigger, destinationState TState) *StateConfiguration[TState, TTrigger] {
	sc.enforceNotIdentityTransition(destinationState)
	sc.representation.AddTriggerBehaviour(
		NewTransitioningTriggerBehaviour(trigger, destinationState, EmptyTransitionGuard),
	)
	return sc
}

// PermitIf configures the state to transition to the specified destination state
// when the specified trigger is fired, if the guard condition is met.
func (sc *StateConfiguration[TState, TTrigger]) PermitIf(
	trigger TTrigger,
	destinationState TState,
	guard GuardFunc,
	guardDescription ...string,
) *StateConfiguration[TState, TTrigger] {
	sc.enforceNotIdentityTransition(destinationState)
	sc.representation.AddTriggerBehaviour(
		NewTransitioningTriggerBehaviour(trigger, destinationState, newSingleGuard(guard, guardDescription)),
	)
	return sc
}

// PermitReentry configures the state to re-enter itself when the specified trigger is fired.
// Entry and exit actions will be executed.
func (sc *StateConfiguration[TState, TTrigger]) PermitReentry(trigger TTrigger) *StateConfiguration[TState, TTrigger] {
	sc.representation.AddTriggerBehaviour(
		NewReentryTriggerBehaviour(trigger, sc.State(), EmptyTransitionGuard),
	)
	return sc
}

// PermitReentryIf configures the state to re-enter itself when the specified trigger is fired,
// if the guard condition is met.
func (sc *StateConfiguration[TState, TTrigger]) PermitReentryIf(
	trigger TTrigger,
	guard GuardFunc,
	guardDescription ...string,
) *StateConfiguration[TState, TTrigger] {
	sc.representation.AddTriggerBehaviour(
		NewReentryTriggerBehaviour(trigger, sc.State(), newSingleGuard(guard, guardDescription)),
	)
	return sc
}

// Ignore configures the state to ignore the specified trigger.
func (sc *StateConfiguration[TState, TTrigger]) Ignore(trigger TTrigger) *StateConfiguration[TState, TTrigger] {
	sc.representation.AddTriggerBehaviour(
		NewIgnoredTriggerBehaviour[TState](trigger, EmptyTransitionGuard),
	)
	return sc
}

// IgnoreIf configures the state to ignore the specified trigger if the guard condition is met.
func (sc *StateConfiguration[TState, TTrigger]) IgnoreIf(
	trigger TTrigger,
	guard GuardFunc,
	guardDescription ...string,
) *StateConfiguration[TState, TTrigger] {
	sc.representation.AddTriggerBehaviour(
		NewIgnoredTriggerBehaviour[TState](trigger, newSingleGuard(guard, guardDescription)),
	)
	return sc
}

// PermitDynamic configures the state to transition to a destination computed
// by selector when the specified trigger is fired. possibleDestinations only
// feeds the exported description.
func (sc *StateConfiguration[TState, TTrigger]) PermitDynamic(
	trigger TTrigger,
	selector StateSelector[TState],
	possibleDestinations ...DynamicStateInfo,
) *StateConfiguration[TState, TTrigger] {
	sc.representation.AddTriggerBehaviour(
		NewDynamicTriggerBehaviour(
			trigger,
			selector,
			EmptyTransitionGuard,
			CreateInvocationInfo(selector, "", TimingSynchronous),
			possibleDestinations,
		),
	)
	return sc
}

// PermitDynamicIf is PermitDynamic gated by a guard.
func (sc *StateConfiguration[TState, TTrigger]) PermitDynamicIf(
	trigger TTrigger,
	selector StateSelector[TState],
	guard GuardFunc,
	guardDescription string,
	possibleDestinations ...DynamicStateInfo,
) *StateConfiguration[TState, TTrigger] {
	sc.representation.AddTriggerBehaviour(
		NewDynamicTriggerBehaviour(
			trigger,
			selector,
			newSingleGuard(guard, []string{guardDescription}),
			CreateInvocationInfo(selector, "", TimingSynchronous),
			possibleDestinations,
		),
	)
	return sc
}

// InternalTransition configures an internal transition: the action runs, the
// state is neither exited nor entered, and no transition notifications fire.
func (sc *StateConfiguration[TState, TTrigger]) InternalTransition(
	trigger TTrigger,
	action TransitionAction[TState, TTrigger],
	actionDescription ...string,
) *StateConfiguration[TState, TTrigger] {
	sc.representation.AddTriggerBehaviour(
		NewInternalTriggerBehaviour(trigger, EmptyTransitionGuard, action, firstOrEmpty(actionDescription)),
	)
	return sc
}

// InternalTransitionIf is InternalTransition gated by a guard.
func (sc *StateConfiguration[TState, TTrigger]) InternalTransitionIf(
	trigger TTrigger,
	guard GuardFunc,
	action TransitionAction[TState, TTrigger],
	guardDescription string,
	actionDescription ...string,
) *StateConfiguration[TState, TTrigger] {
	sc.representation.AddTriggerBehaviour(
		NewInternalTriggerBehaviour(trigger, newSingleGuard(guard, []string{guardDescription}), action, firstOrEmpty(actionDescription)),
	)
	return sc
}

// InternalTransitionAsync configures an internal transition with an asynchronous action.
func (sc *StateConfiguration[TState, TTrigger]) InternalTransitionAsync(
	trigger TTrigger,
	action TransitionTask[TState, TTrigger],
	actionDescription ...string,
) *StateConfiguration[TState, TTrigger] {
	sc.representation.AddTriggerBehaviour(
		NewInternalTriggerBehaviourAsync(trigger, EmptyTransitionGuard, action, firstOrEmpty(actionDescription)),
	)
	return sc
}

// OnEntry configures an action to be executed when entering this state.
func (sc *StateConfiguration[TState, TTrigger]) OnEntry(
	action TransitionAction[TState, TTrigger],
	actionDescription ...string,
) *StateConfiguration[TState, TTrigger] {
	sc.representation.addEntryAction(newActionBehaviour(action, firstOrEmpty(actionDescription)))
	return sc
}

// OnEntryFrom configures an entry action that runs only when the state is
// entered because of trigger.
func (sc *StateConfiguration[TState, TTrigger]) OnEntryFrom(
	trigger TTrigger,
	action TransitionAction[TState, TTrigger],
	actionDescription ...string,
) *StateConfiguration[TState, TTrigger] {
	sc.representation.addEntryAction(newActionBehaviour(action, firstOrEmpty(actionDescription)).from(trigger))
	return sc
}

// OnEntryAsync configures an asynchronous entry action.
func (sc *StateConfiguration[TState, TTrigger]) OnEntryAsync(
	action TransitionTask[TState, TTrigger],
	actionDescription ...string,
) *StateConfiguration[TState, TTrigger] {
	sc.representation.addEntryAction(newActionBehaviourAsync(action, firstOrEmpty(actionDescription)))
	return sc
}

// OnEntryFromAsync is OnEntryFrom for an asynchronous action.
func (sc *StateConfiguration[TState, TTrigger]) OnEntryFromAsync(
	trigger TTrigger,
	action TransitionTask[TState, TTrigger],
	actionDescription ...string,
) *StateConfiguration[TState, TTrigger] {
	sc.representation.addEntryAction(newActionBehaviourAsync(action, firstOrEmpty(actionDescription)).from(trigger))
	return sc
}

// OnExit configures an action to be executed when exiting this state.
func (sc *StateConfiguration[TState, TTrigger]) OnExit(
	action TransitionAction[TState, TTrigger],
	actionDescription ...string,
) *StateConfiguration[TState, TTrigger] {
	sc.representation.addExitAction(newActionBehaviour(action, firstOrEmpty(actionDescription)))
	return sc
}

// OnExitFrom configures an exit action that runs only when the state is
// exited because of trigger.
func (sc *StateConfiguration[TState, TTrigger]) OnExitFrom(
	trigger TTrigger,
	action TransitionAction[TState, TTrigger],
	actionDescription ...string,
) *StateConfiguration[TState, TTrigger] {
	sc.representation.addExitAction(newActionBehaviour(action, firstOrEmpty(actionDescription)).from(trigger))
	return sc
}

// OnExitAsync configures an asynchronous exit action.
func (sc *StateConfiguration[TState, TTrigger]) OnExitAsync(
	action TransitionTask[TState, TTrigger],
	actionDescription ...string,
) *StateConfiguration[TState, TTrigger] {
	sc.representation.addExitAction(newActionBehaviourAsync(action, firstOrEmpty(actionDescription)))
	return sc
}

// OnActivate configures an action to be executed when the state machine is
// activated while in this state or one of its substates.
func (sc *StateConfiguration[TState, TTrigger]) OnActivate(
	action LifecycleAction,
	actionDescription ...string,
) *StateConfiguration[TState, TTrigger] {
	sc.representation.addActivateAction(newLifecycleBehaviour(action, firstOrEmpty(actionDescription)))
	return sc
}

// OnActivateAsync configures an asynchronous activation action.
func (sc *StateConfiguration[TState, TTrigger]) OnActivateAsync(
	action LifecycleTask,
	actionDescription ...string,
) *StateConfiguration[TState, TTrigger] {
	sc.representation.addActivateAction(newLifecycleBehaviourAsync(action, firstOrEmpty(actionDescription)))
	return sc
}

// OnDeactivate configures an action to be executed when the state machine is
// deactivated while in this state or one of its substates.
func (sc *StateConfiguration[TState, TTrigger]) OnDeactivate(
	action LifecycleAction,
	actionDescription ...string,
) *StateConfiguration[TState, TTrigger] {
	sc.representation.addDeactivateAction(newLifecycleBehaviour(action, firstOrEmpty(actionDescription)))
	return sc
}

// OnDeactivateAsync configures an asynchronous deactivation action.
func (sc *StateConfiguration[TState, TTrigger]) OnDeactivateAsync(
	action LifecycleTask,
	actionDescription ...string,
) *StateConfiguration[TState, TTrigger] {
	sc.representation.addDeactivateAction(newLifecycleBehaviourAsync(action, firstOrEmpty(actionDescription)))
	return sc
}

// SubstateOf sets the superstate of this state. A state has at most one
// superstate and the hierarchy must stay acyclic.
func (sc *StateConfiguration[TState, TTrigger]) SubstateOf(superstate TState) *StateConfiguration[TState, TTrigger] {
	state := sc.State()
	if state == superstate {
		panic(&InvalidOperationError{
			Message: fmt.Sprintf("configuring '%v' as a substate of itself introduces a cycle", state),
		})
	}

	if sc.representation.hasSuperstate {
		if sc.representation.superstate == superstate {
			return sc
		}
		panic(&InvalidOperationError{
			Message: fmt.Sprintf("state '%v' is already a substate of '%v'", state, sc.representation.superstate),
		})
	}

	superstateRep := sc.arena.getOrCreate(superstate)
	if superstateRep.IsIncludedIn(state) {
		panic(&InvalidOperationError{
			Message: fmt.Sprintf("configuring '%v' as a substate of '%v' introduces a cycle", state, superstate),
		})
	}

	sc.representation.setSuperstate(superstate)
	superstateRep.addSubstate(state)
	return sc
}

// InitialTransition sets the substate entered automatically whenever this
// state becomes the destination of a transition. The target is checked to be
// a descendant when the cascade runs, since substates may be declared later.
func (sc *StateConfiguration[TState, TTrigger]) InitialTransition(destinationState TState) *StateConfiguration[TState, TTrigger] {
	if sc.State() == destinationState {
		panic(&InvalidOperationError{
			Message: fmt.Sprintf("setting the current state '%v' as the target of its initial transition is not allowed", destinationState),
		})
	}
	if sc.representation.HasInitialTransition() {
		panic(&InvalidOperationError{
			Message: fmt.Sprintf("state '%v' already has an initial transition defined", sc.State()),
		})
	}
	sc.representation.setInitialTransition(destinationState)
	return sc
}

// Transition starts the fluent configuration of trigger in this state.
func (sc *StateConfiguration[TState, TTrigger]) Transition(trigger TTrigger) *TransitionConfiguration[TState, TTrigger] {
	return &TransitionConfiguration[TState, TTrigger]{
		state:   sc,
		trigger: trigger,
	}
}

func (sc *StateConfiguration[TState, TTrigger]) enforceNotIdentityTransition(destinationState TState) {
	if sc.State() == destinationState {
		panic(&InvalidOperationError{
			Message: "permit() requires that the destination state is not equal to the source state. " +
				"To accept a trigger without changing state, use either Ignore() or PermitReentry()",
		})
	}
}
