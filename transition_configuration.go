package hsm

import "fmt"

// TransitionConfiguration configures the reaction of one state to one
// trigger. Exactly one of To, ToSelf, Internal, Ignore or Dynamic registers
// the behaviour; If then adds named conditions to its guard.
//
//	sm.Configure(OffHook).
//		Transition(CallDialed).To(Ringing).If(hasCredit, "has credit").
//		Transition(HungUp).Ignore()
type TransitionConfiguration[TState, TTrigger comparable] struct {
	state     *StateConfiguration[TState, TTrigger]
	trigger   TTrigger
	behaviour *triggerBehaviourBase[TState, TTrigger]
}

// To registers a transition to destination.
func (tc *TransitionConfiguration[TState, TTrigger]) To(destination TState) *TransitionConfiguration[TState, TTrigger] {
	tc.state.enforceNotIdentityTransition(destination)
	b := NewTransitioningTriggerBehaviour(tc.trigger, destination, EmptyTransitionGuard)
	tc.register(b, &b.triggerBehaviourBase)
	return tc
}

// ToSelf registers a reentry transition.
func (tc *TransitionConfiguration[TState, TTrigger]) ToSelf() *TransitionConfiguration[TState, TTrigger] {
	b := NewReentryTriggerBehaviour(tc.trigger, tc.state.State(), EmptyTransitionGuard)
	tc.register(b, &b.triggerBehaviourBase)
	return tc
}

// Internal registers an internal transition running action.
func (tc *TransitionConfiguration[TState, TTrigger]) Internal(
	action TransitionAction[TState, TTrigger],
	actionDescription ...string,
) *TransitionConfiguration[TState, TTrigger] {
	b := NewInternalTriggerBehaviour(tc.trigger, EmptyTransitionGuard, action, firstOrEmpty(actionDescription))
	tc.register(b, &b.triggerBehaviourBase)
	return tc
}

// Ignore registers the trigger as ignored.
func (tc *TransitionConfiguration[TState, TTrigger]) Ignore() *TransitionConfiguration[TState, TTrigger] {
	b := NewIgnoredTriggerBehaviour[TState](tc.trigger, EmptyTransitionGuard)
	tc.register(b, &b.triggerBehaviourBase)
	return tc
}

// Dynamic registers a transition whose destination selector computes at fire time.
func (tc *TransitionConfiguration[TState, TTrigger]) Dynamic(
	selector StateSelector[TState],
	possibleDestinations ...DynamicStateInfo,
) *TransitionConfiguration[TState, TTrigger] {
	b := NewDynamicTriggerBehaviour(
		tc.trigger,
		selector,
		EmptyTransitionGuard,
		CreateInvocationInfo(selector, "", TimingSynchronous),
		possibleDestinations,
	)
	tc.register(b, &b.triggerBehaviourBase)
	return tc
}

// If adds a named condition to the guard of the registered behaviour. It may
// be called several times; every condition must hold.
func (tc *TransitionConfiguration[TState, TTrigger]) If(guard GuardFunc, description ...string) *TransitionConfiguration[TState, TTrigger] {
	if tc.behaviour == nil {
		panic(&InvalidOperationError{
			Message: fmt.Sprintf("a guard for trigger '%v' in state '%v' must follow To, ToSelf, Internal, Ignore or Dynamic",
				tc.trigger, tc.state.State()),
		})
	}
	if guard == nil {
		return tc
	}
	conditions := append([]GuardCondition(nil), tc.behaviour.guard.Conditions...)
	tc.behaviour.guard = NewTransitionGuard(append(conditions, NewGuardCondition(guard, firstOrEmpty(description)))...)
	return tc
}

// Transition continues the configuration of the same state with another trigger.
func (tc *TransitionConfiguration[TState, TTrigger]) Transition(trigger TTrigger) *TransitionConfiguration[TState, TTrigger] {
	return tc.state.Transition(trigger)
}

// Configuration returns the configuration of the state this transition belongs to.
func (tc *TransitionConfiguration[TState, TTrigger]) Configuration() *StateConfiguration[TState, TTrigger] {
	return tc.state
}

func (tc *TransitionConfiguration[TState, TTrigger]) register(
	behaviour TriggerBehaviour[TState, TTrigger],
	base *triggerBehaviourBase[TState, TTrigger],
) {
	if tc.behaviour != nil {
		panic(&InvalidOperationError{
			Message: fmt.Sprintf("trigger '%v' in state '%v' is already configured by this transition; call Transition again for another behaviour",
				tc.trigger, tc.state.State()),
		})
	}
	tc.state.representation.AddTriggerBehaviour(behaviour)
	tc.behaviour = base
}
