package hsm

import "context"

// TriggerBehaviour is the declared reaction of a state to a trigger. The set of
// implementations is closed: Transitioning, Reentry, Internal, Ignored and Dynamic.
type TriggerBehaviour[TState, TTrigger comparable] interface {
	// GetTrigger returns the trigger associated with this behaviour.
	GetTrigger() TTrigger

	// GetGuard returns the transition guard for this trigger.
	GetGuard() TransitionGuard

	triggerBehaviour()
}

type triggerBehaviourBase[TState, TTrigger comparable] struct {
	trigger TTrigger
	guard   TransitionGuard
}

func (t *triggerBehaviourBase[TState, TTrigger]) GetTrigger() TTrigger {
	return t.trigger
}

func (t *triggerBehaviourBase[TState, TTrigger]) GetGuard() TransitionGuard {
	return t.guard
}

func (t *triggerBehaviourBase[TState, TTrigger]) triggerBehaviour() {}

// TransitioningTriggerBehaviour represents a transition to a fixed destination state.
type TransitioningTriggerBehaviour[TState, TTrigger comparable] struct {
	triggerBehaviourBase[TState, TTrigger]

	Destination TState
}

// NewTransitioningTriggerBehaviour creates a new transitioning trigger behaviour.
func NewTransitioningTriggerBehaviour[TState, TTrigger comparable](
	trigger TTrigger,
	destination TState,
	guard TransitionGuard,
) *TransitioningTriggerBehaviour[TState, TTrigger] {
	return &TransitioningTriggerBehaviour[TState, TTrigger]{
		triggerBehaviourBase: triggerBehaviourBase[TState, TTrigger]{trigger: trigger, guard: guard},
		Destination:          destination,
	}
}

// ReentryTriggerBehaviour represents a reentry transition (state exits and re-enters itself).
type ReentryTriggerBehaviour[TState, TTrigger comparable] struct {
	triggerBehaviourBase[TState, TTrigger]

	Destination TState
}

// NewReentryTriggerBehaviour creates a new reentry trigger behaviour.
func NewReentryTriggerBehaviour[TState, TTrigger comparable](
	trigger TTrigger,
	destination TState,
	guard TransitionGuard,
) *ReentryTriggerBehaviour[TState, TTrigger] {
	return &ReentryTriggerBehaviour[TState, TTrigger]{
		triggerBehaviourBase: triggerBehaviourBase[TState, TTrigger]{trigger: trigger, guard: guard},
		Destination:          destination,
	}
}

// IgnoredTriggerBehaviour represents a trigger that should be ignored.
type IgnoredTriggerBehaviour[TState, TTrigger comparable] struct {
	triggerBehaviourBase[TState, TTrigger]
}

// NewIgnoredTriggerBehaviour creates a new ignored trigger behaviour.
func NewIgnoredTriggerBehaviour[TState, TTrigger comparable](
	trigger TTrigger,
	guard TransitionGuard,
) *IgnoredTriggerBehaviour[TState, TTrigger] {
	return &IgnoredTriggerBehaviour[TState, TTrigger]{
		triggerBehaviourBase: triggerBehaviourBase[TState, TTrigger]{trigger: trigger, guard: guard},
	}
}

// StateSelector computes the destination of a dynamic transition from the
// fired arguments.
type StateSelector[TState comparable] func(ctx context.Context, args ...any) (TState, error)

// DynamicTriggerBehaviour represents a transition to a dynamically determined state.
type DynamicTriggerBehaviour[TState, TTrigger comparable] struct {
	triggerBehaviourBase[TState, TTrigger]

	selector    StateSelector[TState]
	Description InvocationInfo

	// PossibleDestinations is advisory metadata for the export; the selector
	// result is never checked against it.
	PossibleDestinations []DynamicStateInfo
}

// NewDynamicTriggerBehaviour creates a new dynamic trigger behaviour.
func NewDynamicTriggerBehaviour[TState, TTrigger comparable](
	trigger TTrigger,
	selector StateSelector[TState],
	guard TransitionGuard,
	description InvocationInfo,
	possibleDestinations []DynamicStateInfo,
) *DynamicTriggerBehaviour[TState, TTrigger] {
	return &DynamicTriggerBehaviour[TState, TTrigger]{
		triggerBehaviourBase: triggerBehaviourBase[TState, TTrigger]{trigger: trigger, guard: guard},
		selector:             selector,
		Description:          description,
		PossibleDestinations: possibleDestinations,
	}
}

// GetDestinationState runs the selector for the given arguments.
func (d *DynamicTriggerBehaviour[TState, TTrigger]) GetDestinationState(ctx context.Context, args []any) (TState, error) {
	return d.selector(ctx, args...)
}

// InternalTriggerBehaviour represents a transition that runs an action without
// exiting or entering any state.
type InternalTriggerBehaviour[TState, TTrigger comparable] struct {
	triggerBehaviourBase[TState, TTrigger]

	action *actionBehaviour[TState, TTrigger]
}

// NewInternalTriggerBehaviour creates a new internal trigger behaviour.
func NewInternalTriggerBehaviour[TState, TTrigger comparable](
	trigger TTrigger,
	guard TransitionGuard,
	action TransitionAction[TState, TTrigger],
	description string,
) *InternalTriggerBehaviour[TState, TTrigger] {
	return &InternalTriggerBehaviour[TState, TTrigger]{
		triggerBehaviourBase: triggerBehaviourBase[TState, TTrigger]{trigger: trigger, guard: guard},
		action:               newActionBehaviour(action, description),
	}
}

// NewInternalTriggerBehaviourAsync creates an internal trigger behaviour whose
// action completes asynchronously.
func NewInternalTriggerBehaviourAsync[TState, TTrigger comparable](
	trigger TTrigger,
	guard TransitionGuard,
	action TransitionTask[TState, TTrigger],
	description string,
) *InternalTriggerBehaviour[TState, TTrigger] {
	return &InternalTriggerBehaviour[TState, TTrigger]{
		triggerBehaviourBase: triggerBehaviourBase[TState, TTrigger]{trigger: trigger, guard: guard},
		action:               newActionBehaviourAsync(action, description),
	}
}

// Execute runs the internal action.
func (b *InternalTriggerBehaviour[TState, TTrigger]) Execute(
	ctx context.Context,
	transition Transition[TState, TTrigger],
) error {
	return b.action.execute(ctx, transition)
}

// Description returns the description of the internal action.
func (b *InternalTriggerBehaviour[TState, TTrigger]) Description() InvocationInfo {
	return b.action.description
}

// TriggerBehaviourResult is the outcome of a handler lookup.
type TriggerBehaviourResult[TState, TTrigger comparable] struct {
	// Handler is the unique behaviour whose guard is met, or nil.
	Handler TriggerBehaviour[TState, TTrigger]

	// UnmetGuardConditions lists the descriptions of the failed guard
	// conditions when the trigger is configured but no guard is met.
	UnmetGuardConditions []string
}
