package hsm

import (
	"context"
	"fmt"
)

// stateArena owns every StateRepresentation of a machine. Hierarchy links are
// stored as state keys and resolved through the arena.
type stateArena[TState, TTrigger comparable] struct {
	states map[TState]*StateRepresentation[TState, TTrigger]
	order  []TState
}

func newStateArena[TState, TTrigger comparable]() *stateArena[TState, TTrigger] {
	return &stateArena[TState, TTrigger]{
		states: make(map[TState]*StateRepresentation[TState, TTrigger]),
	}
}

// getOrCreate returns the representation for state, registering it on first use.
// Only configuration calls it.
func (a *stateArena[TState, TTrigger]) getOrCreate(state TState) *StateRepresentation[TState, TTrigger] {
	if rep, ok := a.states[state]; ok {
		return rep
	}
	rep := newStateRepresentation(state, a)
	a.states[state] = rep
	a.order = append(a.order, state)
	return rep
}

// find returns the registered representation for state, or a detached empty
// one when the state was never configured. It never mutates the arena.
func (a *stateArena[TState, TTrigger]) find(state TState) *StateRepresentation[TState, TTrigger] {
	if rep, ok := a.states[state]; ok {
		return rep
	}
	return newStateRepresentation(state, a)
}

func (a *stateArena[TState, TTrigger]) len() int {
	return len(a.states)
}

// StateRepresentation models the behaviour of a state.
type StateRepresentation[TState, TTrigger comparable] struct {
	state TState
	arena *stateArena[TState, TTrigger]

	superstate    TState
	hasSuperstate bool
	substates     []TState

	triggerBehaviours map[TTrigger][]TriggerBehaviour[TState, TTrigger]
	triggerOrder      []TTrigger

	entryActions      []*actionBehaviour[TState, TTrigger]
	exitActions       []*actionBehaviour[TState, TTrigger]
	activateActions   []*lifecycleBehaviour
	deactivateActions []*lifecycleBehaviour

	hasInitialTransition    bool
	initialTransitionTarget TState
}

func newStateRepresentation[TState, TTrigger comparable](
	state TState,
	arena *stateArena[TState, TTrigger],
) *StateRepresentation[TState, TTrigger] {
	return &StateRepresentation[TState, TTrigger]{
		state:             state,
		arena:             arena,
		triggerBehaviours: make(map[TTrigger][]TriggerBehaviour[TState, TTrigger]),
	}
}

// UnderlyingState returns the state this representation models.
func (sr *StateRepresentation[TState, TTrigger]) UnderlyingState() TState {
	return sr.state
}

// Superstate returns the parent representation, or nil for a root state.
func (sr *StateRepresentation[TState, TTrigger]) Superstate() *StateRepresentation[TState, TTrigger] {
	if !sr.hasSuperstate {
		return nil
	}
	return sr.arena.find(sr.superstate)
}

// GetSubstates returns the substates of this state.
func (sr *StateRepresentation[TState, TTrigger]) GetSubstates() []*StateRepresentation[TState, TTrigger] {
	result := make([]*StateRepresentation[TState, TTrigger], len(sr.substates))
	for i, s := range sr.substates {
		result[i] = sr.arena.find(s)
	}
	return result
}

func (sr *StateRepresentation[TState, TTrigger]) setSuperstate(superstate TState) {
	sr.superstate = superstate
	sr.hasSuperstate = true
}

func (sr *StateRepresentation[TState, TTrigger]) addSubstate(substate TState) {
	sr.substates = append(sr.substates, substate)
}

// HasInitialTransition returns true if this state has an initial transition configured.
func (sr *StateRepresentation[TState, TTrigger]) HasInitialTransition() bool {
	return sr.hasInitialTransition
}

// InitialTransitionTarget returns the target state for the initial transition.
func (sr *StateRepresentation[TState, TTrigger]) InitialTransitionTarget() TState {
	return sr.initialTransitionTarget
}

func (sr *StateRepresentation[TState, TTrigger]) setInitialTransition(target TState) {
	sr.hasInitialTransition = true
	sr.initialTransitionTarget = target
}

// AddTriggerBehaviour adds a trigger behaviour to this state. Behaviours for
// one trigger keep their declaration order.
func (sr *StateRepresentation[TState, TTrigger]) AddTriggerBehaviour(behaviour TriggerBehaviour[TState, TTrigger]) {
	trigger := behaviour.GetTrigger()
	if _, ok := sr.triggerBehaviours[trigger]; !ok {
		sr.triggerOrder = append(sr.triggerOrder, trigger)
	}
	sr.triggerBehaviours[trigger] = append(sr.triggerBehaviours[trigger], behaviour)
}

func (sr *StateRepresentation[TState, TTrigger]) addEntryAction(action *actionBehaviour[TState, TTrigger]) {
	sr.entryActions = append(sr.entryActions, action)
}

func (sr *StateRepresentation[TState, TTrigger]) addExitAction(action *actionBehaviour[TState, TTrigger]) {
	sr.exitActions = append(sr.exitActions, action)
}

func (sr *StateRepresentation[TState, TTrigger]) addActivateAction(action *lifecycleBehaviour) {
	sr.activateActions = append(sr.activateActions, action)
}

func (sr *StateRepresentation[TState, TTrigger]) addDeactivateAction(action *lifecycleBehaviour) {
	sr.deactivateActions = append(sr.deactivateActions, action)
}

// ancestors returns this representation followed by its superstates, nearest
// first. The walk is bounded by the arena size so a cyclic configuration
// cannot loop forever.
func (sr *StateRepresentation[TState, TTrigger]) ancestors() []*StateRepresentation[TState, TTrigger] {
	result := []*StateRepresentation[TState, TTrigger]{sr}
	node := sr
	for node.hasSuperstate && len(result) <= sr.arena.len() {
		node = sr.arena.find(node.superstate)
		result = append(result, node)
	}
	return result
}

// Includes returns true if this state or any of its substates is the specified state.
func (sr *StateRepresentation[TState, TTrigger]) Includes(state TState) bool {
	return sr.includes(state, make(map[TState]struct{}))
}

func (sr *StateRepresentation[TState, TTrigger]) includes(state TState, visited map[TState]struct{}) bool {
	if sr.state == state {
		return true
	}
	if _, seen := visited[sr.state]; seen {
		return false
	}
	visited[sr.state] = struct{}{}
	for _, substate := range sr.substates {
		if sr.arena.find(substate).includes(state, visited) {
			return true
		}
	}
	return false
}

// IsIncludedIn returns true if this state is the specified state or a substate of it.
func (sr *StateRepresentation[TState, TTrigger]) IsIncludedIn(state TState) bool {
	for _, node := range sr.ancestors() {
		if node.state == state {
			return true
		}
	}
	return false
}

// TryFindHandler resolves the behaviour for trigger. The local table is
// searched first; when it yields no behaviour with a met guard the search
// continues in the superstates. A nil result means the trigger is not
// configured anywhere in the hierarchy.
func (sr *StateRepresentation[TState, TTrigger]) TryFindHandler(
	ctx context.Context,
	trigger TTrigger,
	args []any,
) (*TriggerBehaviourResult[TState, TTrigger], error) {
	var (
		unmet      []string
		configured bool
	)
	for _, node := range sr.ancestors() {
		handler, localUnmet, ok, err := node.tryFindLocalHandler(ctx, trigger, args)
		if err != nil {
			return nil, err
		}
		if handler != nil {
			return &TriggerBehaviourResult[TState, TTrigger]{Handler: handler}, nil
		}
		if ok {
			configured = true
			unmet = append(unmet, localUnmet...)
		}
	}

	if !configured {
		return nil, nil
	}
	return &TriggerBehaviourResult[TState, TTrigger]{UnmetGuardConditions: unmet}, nil
}

func (sr *StateRepresentation[TState, TTrigger]) tryFindLocalHandler(
	ctx context.Context,
	trigger TTrigger,
	args []any,
) (TriggerBehaviour[TState, TTrigger], []string, bool, error) {
	behaviours, exists := sr.triggerBehaviours[trigger]
	if !exists {
		return nil, nil, false, nil
	}

	var (
		matched []TriggerBehaviour[TState, TTrigger]
		unmet   []string
	)
	for _, behaviour := range behaviours {
		failed := behaviour.GetGuard().UnmetGuardConditions(ctx, args)
		if len(failed) == 0 {
			matched = append(matched, behaviour)
		} else {
			unmet = append(unmet, failed...)
		}
	}

	switch len(matched) {
	case 0:
		return nil, unmet, true, nil
	case 1:
		return matched[0], nil, true, nil
	default:
		return nil, nil, true, &AmbiguousTransitionError{
			Trigger: trigger,
			State:   sr.state,
			Count:   len(matched),
		}
	}
}

// CanHandle returns true if this state can handle the specified trigger.
func (sr *StateRepresentation[TState, TTrigger]) CanHandle(ctx context.Context, trigger TTrigger, args []any) bool {
	result, err := sr.TryFindHandler(ctx, trigger, args)
	return err == nil && result != nil && result.Handler != nil
}

// GetPermittedTriggers returns the triggers that are currently permitted from
// this state and its superstates, without duplicates. When accepts is not nil
// and rejects args for a trigger, that trigger's guards are not run and it is
// permitted only through an unguarded behaviour.
func (sr *StateRepresentation[TState, TTrigger]) GetPermittedTriggers(
	ctx context.Context,
	args []any,
	accepts func(trigger TTrigger, args []any) bool,
) []TTrigger {
	var result []TTrigger
	seen := make(map[TTrigger]struct{})
	for _, node := range sr.ancestors() {
		for _, trigger := range node.triggerOrder {
			if _, ok := seen[trigger]; ok {
				continue
			}
			evaluate := accepts == nil || accepts(trigger, args)
			for _, behaviour := range node.triggerBehaviours[trigger] {
				guard := behaviour.GetGuard()
				if guard.IsEmpty() || (evaluate && guard.GuardConditionsMet(ctx, args)) {
					seen[trigger] = struct{}{}
					result = append(result, trigger)
					break
				}
			}
		}
	}
	return result
}

// Enter executes entry actions for this state, preceded by those of every
// superstate that does not already contain the source.
func (sr *StateRepresentation[TState, TTrigger]) Enter(ctx context.Context, transition Transition[TState, TTrigger]) error {
	if transition.IsReentry() {
		return sr.executeEntryActions(ctx, transition)
	}

	var entering []*StateRepresentation[TState, TTrigger]
	for _, node := range sr.ancestors() {
		if node.Includes(transition.Source) {
			break
		}
		entering = append(entering, node)
	}
	for i := len(entering) - 1; i >= 0; i-- {
		if err := entering[i].executeEntryActions(ctx, transition); err != nil {
			return err
		}
	}
	return nil
}

// Exit executes exit actions for this state and every superstate that does
// not contain the destination.
func (sr *StateRepresentation[TState, TTrigger]) Exit(ctx context.Context, transition Transition[TState, TTrigger]) error {
	if transition.IsReentry() {
		return sr.executeExitActions(ctx, transition)
	}

	for _, node := range sr.ancestors() {
		if node.Includes(transition.Destination) {
			return nil
		}
		if err := node.executeExitActions(ctx, transition); err != nil {
			return err
		}
	}
	return nil
}

func (sr *StateRepresentation[TState, TTrigger]) executeEntryActions(ctx context.Context, transition Transition[TState, TTrigger]) error {
	for _, action := range sr.entryActions {
		if err := action.execute(ctx, transition); err != nil {
			return err
		}
	}
	return nil
}

func (sr *StateRepresentation[TState, TTrigger]) executeExitActions(ctx context.Context, transition Transition[TState, TTrigger]) error {
	for _, action := range sr.exitActions {
		if err := action.execute(ctx, transition); err != nil {
			return err
		}
	}
	return nil
}

// Activate executes activation actions from the outermost superstate down to this state.
func (sr *StateRepresentation[TState, TTrigger]) Activate(ctx context.Context) error {
	chain := sr.ancestors()
	for i := len(chain) - 1; i >= 0; i-- {
		for _, action := range chain[i].activateActions {
			if err := action.execute(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Deactivate executes deactivation actions from this state up to the outermost superstate.
func (sr *StateRepresentation[TState, TTrigger]) Deactivate(ctx context.Context) error {
	for _, node := range sr.ancestors() {
		for _, action := range node.deactivateActions {
			if err := action.execute(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// String returns a string representation of this state.
func (sr *StateRepresentation[TState, TTrigger]) String() string {
	return fmt.Sprintf("%v", sr.state)
}
