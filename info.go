package hsm

import (
	"fmt"
	"reflect"
)

// GetInfo returns a read-only description of the configured machine. States
// that appear only as destinations or initial targets are included with no
// behaviour of their own.
func (sm *StateMachine[TState, TTrigger]) GetInfo() *StateMachineInfo {
	infos := make(map[TState]*StateInfo)
	var order []TState

	stateInfo := func(state TState) *StateInfo {
		if info, ok := infos[state]; ok {
			return info
		}
		info := &StateInfo{UnderlyingState: state}
		infos[state] = info
		order = append(order, state)
		return info
	}

	for _, state := range sm.arena.order {
		stateInfo(state)
	}
	stateInfo(sm.initialState)

	for _, state := range sm.arena.order {
		sm.describeState(sm.arena.find(state), stateInfo(state), stateInfo)
	}

	// Unconfigured states get empty collections.
	for _, state := range order {
		fillEmpty(infos[state])
	}

	states := make([]*StateInfo, len(order))
	for i, state := range order {
		states[i] = infos[state]
	}

	return &StateMachineInfo{
		InitialState: infos[sm.initialState],
		States:       listOf(states),
		StateType:    typeName[TState](),
		TriggerType:  typeName[TTrigger](),
	}
}

func (sm *StateMachine[TState, TTrigger]) describeState(
	rep *StateRepresentation[TState, TTrigger],
	info *StateInfo,
	stateInfo func(TState) *StateInfo,
) {
	if rep.hasSuperstate {
		info.Superstate = stateInfo(rep.superstate)
	}
	substates := make([]*StateInfo, len(rep.substates))
	for i, s := range rep.substates {
		substates[i] = stateInfo(s)
	}
	info.Substates = listOf(substates)

	if rep.hasInitialTransition {
		info.InitialTransitionTarget = stateInfo(rep.initialTransitionTarget)
	}

	entry := make([]ActionInfo, len(rep.entryActions))
	for i, a := range rep.entryActions {
		entry[i] = a.info()
	}
	info.EntryActions = listOf(entry)

	exit := make([]ActionInfo, len(rep.exitActions))
	for i, a := range rep.exitActions {
		exit[i] = a.info()
	}
	info.ExitActions = listOf(exit)

	activate := make([]InvocationInfo, len(rep.activateActions))
	for i, a := range rep.activateActions {
		activate[i] = a.description
	}
	info.ActivateActions = listOf(activate)

	deactivate := make([]InvocationInfo, len(rep.deactivateActions))
	for i, a := range rep.deactivateActions {
		deactivate[i] = a.description
	}
	info.DeactivateActions = listOf(deactivate)

	var (
		fixed   []FixedTransitionInfo
		dynamic []DynamicTransitionInfo
		ignored []IgnoredTransitionInfo
	)
	for _, trigger := range rep.triggerOrder {
		for _, behaviour := range rep.triggerBehaviours[trigger] {
			base := transitionInfoBase{
				Trigger:         NewTriggerInfo(trigger),
				GuardConditions: behaviour.GetGuard().descriptions(),
			}
			switch b := behaviour.(type) {
			case *TransitioningTriggerBehaviour[TState, TTrigger]:
				fixed = append(fixed, FixedTransitionInfo{
					transitionInfoBase: base,
					DestinationState:   stateInfo(b.Destination),
				})
			case *ReentryTriggerBehaviour[TState, TTrigger]:
				fixed = append(fixed, FixedTransitionInfo{
					transitionInfoBase: base,
					DestinationState:   stateInfo(b.Destination),
					IsReentry:          true,
				})
			case *InternalTriggerBehaviour[TState, TTrigger]:
				base.IsInternalTransition = true
				action := b.Description()
				fixed = append(fixed, FixedTransitionInfo{
					transitionInfoBase: base,
					DestinationState:   info,
					Action:             &action,
				})
			case *DynamicTriggerBehaviour[TState, TTrigger]:
				dynamic = append(dynamic, DynamicTransitionInfo{
					transitionInfoBase:                  base,
					DestinationStateSelectorDescription: b.Description,
					PossibleDestinationStates:           append([]DynamicStateInfo(nil), b.PossibleDestinations...),
				})
			case *IgnoredTriggerBehaviour[TState, TTrigger]:
				ignored = append(ignored, IgnoredTransitionInfo{transitionInfoBase: base})
			}
		}
	}
	info.FixedTransitions = listOf(fixed)
	info.DynamicTransitions = listOf(dynamic)
	info.IgnoredTriggers = listOf(ignored)
}

func fillEmpty(info *StateInfo) {
	if info.Substates == nil {
		info.Substates = listOf[*StateInfo](nil)
	}
	if info.EntryActions == nil {
		info.EntryActions = listOf[ActionInfo](nil)
	}
	if info.ExitActions == nil {
		info.ExitActions = listOf[ActionInfo](nil)
	}
	if info.ActivateActions == nil {
		info.ActivateActions = listOf[InvocationInfo](nil)
	}
	if info.DeactivateActions == nil {
		info.DeactivateActions = listOf[InvocationInfo](nil)
	}
	if info.FixedTransitions == nil {
		info.FixedTransitions = listOf[FixedTransitionInfo](nil)
	}
	if info.DynamicTransitions == nil {
		info.DynamicTransitions = listOf[DynamicTransitionInfo](nil)
	}
	if info.IgnoredTriggers == nil {
		info.IgnoredTriggers = listOf[IgnoredTransitionInfo](nil)
	}
}

func typeName[T any]() string {
	t := reflect.TypeFor[T]()
	if t.Name() != "" {
		return t.Name()
	}
	return fmt.Sprint(t)
}
