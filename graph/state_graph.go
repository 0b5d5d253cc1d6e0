package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/atlekbai/hsm"
)

// StateGraph is the style-independent form of a machine export.
type StateGraph struct {
	// InitialState is the initial state of the machine.
	InitialState *hsm.StateInfo

	// States contains all states in the graph, indexed by state name.
	States map[string]*State

	Transitions []*Transition
	Decisions   []*Decision
}

// NewStateGraph builds a state graph from a machine export.
func NewStateGraph(machineInfo *hsm.StateMachineInfo) *StateGraph {
	sg := &StateGraph{
		InitialState: machineInfo.InitialState,
		States:       make(map[string]*State),
	}

	infos := hsm.ListSlice(machineInfo.States)
	for _, stateInfo := range infos {
		sg.addState(stateInfo)
	}
	sg.linkHierarchy(infos)
	sg.addTransitions(infos)
	sg.processOnEntryFrom(infos)

	return sg
}

func (sg *StateGraph) addState(stateInfo *hsm.StateInfo) *State {
	name := stateInfo.String()
	if state, ok := sg.States[name]; ok {
		return state
	}
	state := &State{
		StateName:    name,
		NodeName:     name,
		EntryActions: entryActionDescriptions(stateInfo),
		ExitActions:  exitActionDescriptions(stateInfo),
		StateInfo:    stateInfo,
	}
	sg.States[name] = state
	return state
}

func (sg *StateGraph) linkHierarchy(infos []*hsm.StateInfo) {
	for _, stateInfo := range infos {
		state := sg.States[stateInfo.String()]
		for _, sub := range hsm.ListSlice(stateInfo.Substates) {
			child := sg.addState(sub)
			child.SuperState = state
			state.SubStates = append(state.SubStates, child)
		}
		if stateInfo.InitialTransitionTarget != nil {
			state.InitialSubState = sg.addState(stateInfo.InitialTransitionTarget)
		}
	}
}

func (sg *StateGraph) addTransitions(infos []*hsm.StateInfo) {
	for _, stateInfo := range infos {
		fromState := sg.States[stateInfo.String()]

		for _, fix := range hsm.ListSlice(stateInfo.FixedTransitions) {
			toState := sg.addState(fix.DestinationState)
			kind := KindFixed
			switch {
			case fix.GetIsInternalTransition():
				kind = KindInternal
			case fix.IsReentry || fromState == toState:
				kind = KindReentry
			}
			sg.link(&Transition{
				Trigger:          fix.GetTrigger(),
				Kind:             kind,
				SourceState:      fromState,
				DestinationState: toState,
				Guards:           fix.GetGuardConditions(),
			})
		}

		for _, dyn := range hsm.ListSlice(stateInfo.DynamicTransitions) {
			decide := &Decision{
				NodeName: fmt.Sprintf("Decision%d", len(sg.Decisions)+1),
				Method:   dyn.DestinationStateSelectorDescription,
			}
			sg.Decisions = append(sg.Decisions, decide)

			in := &Transition{
				Trigger:     dyn.GetTrigger(),
				Kind:        KindDecision,
				SourceState: fromState,
				Decision:    decide,
				Guards:      dyn.GetGuardConditions(),
			}
			sg.Transitions = append(sg.Transitions, in)
			fromState.Leaving = append(fromState.Leaving, in)
			decide.Arriving = append(decide.Arriving, in)

			for _, possible := range dyn.PossibleDestinationStates {
				toState, exists := sg.States[possible.DestinationState]
				if !exists {
					continue
				}
				out := &Transition{
					Trigger:          dyn.GetTrigger(),
					Kind:             KindDecision,
					DestinationState: toState,
					Decision:         decide,
					Criterion:        possible.Criterion,
				}
				sg.Transitions = append(sg.Transitions, out)
				decide.Leaving = append(decide.Leaving, out)
				toState.Arriving = append(toState.Arriving, out)
			}
		}

		for _, ignored := range hsm.ListSlice(stateInfo.IgnoredTriggers) {
			sg.link(&Transition{
				Trigger:          ignored.GetTrigger(),
				Kind:             KindIgnored,
				SourceState:      fromState,
				DestinationState: fromState,
				Guards:           ignored.GetGuardConditions(),
			})
		}
	}
}

func (sg *StateGraph) link(t *Transition) {
	sg.Transitions = append(sg.Transitions, t)
	t.SourceState.Leaving = append(t.SourceState.Leaving, t)
	t.DestinationState.Arriving = append(t.DestinationState.Arriving, t)
}

// processOnEntryFrom attaches trigger-scoped entry actions to the arriving
// transitions caused by that trigger.
func (sg *StateGraph) processOnEntryFrom(infos []*hsm.StateInfo) {
	for _, stateInfo := range infos {
		state := sg.States[stateInfo.String()]
		for _, entryAction := range hsm.ListSlice(stateInfo.EntryActions) {
			if entryAction.FromTrigger == nil {
				continue
			}
			fromTrigger := fmt.Sprint(entryAction.FromTrigger)
			for _, transit := range state.Arriving {
				if transit.ExecuteEntryExitActions() && transit.Trigger.String() == fromTrigger {
					transit.DestinationEntryActions = append(transit.DestinationEntryActions, entryAction)
				}
			}
		}
	}
}

func entryActionDescriptions(stateInfo *hsm.StateInfo) []string {
	var descriptions []string
	for _, action := range hsm.ListSlice(stateInfo.EntryActions) {
		if action.FromTrigger == nil {
			descriptions = append(descriptions, action.Description())
		}
	}
	return descriptions
}

func exitActionDescriptions(stateInfo *hsm.StateInfo) []string {
	var descriptions []string
	for _, action := range hsm.ListSlice(stateInfo.ExitActions) {
		description := action.Description()
		if action.FromTrigger != nil {
			description = fmt.Sprintf("%s [%v]", description, action.FromTrigger)
		}
		descriptions = append(descriptions, description)
	}
	return descriptions
}

// ToGraph renders the graph with style.
func (sg *StateGraph) ToGraph(style Style) string {
	var sb strings.Builder

	sb.WriteString(style.GetPrefix())

	for _, name := range sg.sortedStateNames() {
		state := sg.States[name]
		if state.SuperState != nil {
			continue
		}
		if state.IsComposite() {
			sb.WriteString(style.FormatOneCluster(state))
		} else {
			sb.WriteString(style.FormatOneState(state))
		}
	}

	for _, dec := range sg.Decisions {
		sb.WriteString(style.FormatOneDecisionNode(dec.NodeName, dec.Method.Description()))
	}

	for _, line := range style.FormatAllTransitions(sg.sortedTransitions(), sg.Decisions) {
		sb.WriteString("\n")
		sb.WriteString(line)
	}

	sb.WriteString(style.GetInitialTransition(sg.InitialState))

	return sb.String()
}

func (sg *StateGraph) sortedStateNames() []string {
	names := make([]string, 0, len(sg.States))
	for name := range sg.States {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// sortedTransitions orders transitions by source, destination, then trigger.
func (sg *StateGraph) sortedTransitions() []*Transition {
	sorted := make([]*Transition, len(sg.Transitions))
	copy(sorted, sg.Transitions)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := sorted[i], sorted[j]
		if a, b := ti.sourceNodeName(), tj.sourceNodeName(); a != b {
			return a < b
		}
		if a, b := ti.destinationNodeName(), tj.destinationNodeName(); a != b {
			return a < b
		}
		return ti.Trigger.String() < tj.Trigger.String()
	})
	return sorted
}

func (t *Transition) sourceNodeName() string {
	if t.SourceState != nil {
		return t.SourceState.NodeName
	}
	if t.Decision != nil {
		return t.Decision.NodeName
	}
	return ""
}

func (t *Transition) destinationNodeName() string {
	if t.DestinationState != nil {
		return t.DestinationState.NodeName
	}
	if t.Decision != nil {
		return t.Decision.NodeName
	}
	return ""
}
