package graph

import (
	"github.com/atlekbai/hsm"
)

// Style formats the parts of a StateGraph in one output language.
type Style interface {
	// GetPrefix returns the text that starts a new graph.
	GetPrefix() string

	// GetInitialTransition returns the text for the initial state transition.
	GetInitialTransition(initialState *hsm.StateInfo) string

	// FormatOneState formats a state without substates.
	FormatOneState(state *State) string

	// FormatOneCluster formats a composite state and, recursively, its substates.
	FormatOneCluster(state *State) string

	FormatOneDecisionNode(nodeName, label string) string

	FormatAllTransitions(transitions []*Transition, decisions []*Decision) []string

	FormatOneTransition(
		sourceNodeName, trigger string,
		actions []string,
		destinationNodeName string,
		guards []string,
	) string
}

// FormatTransitions formats every transition with style, skipping edges that
// have no endpoint.
func FormatTransitions(style Style, transitions []*Transition) []string {
	var lines []string
	for _, transit := range transitions {
		source, destination := transit.sourceNodeName(), transit.destinationNodeName()
		if source == "" || destination == "" {
			continue
		}

		var actions []string
		if transit.ExecuteEntryExitActions() {
			for _, act := range transit.DestinationEntryActions {
				actions = append(actions, act.Description())
			}
		}

		guards := collectGuards(transit)
		if transit.Criterion != "" {
			guards = append(guards, transit.Criterion)
		}

		lines = append(lines, style.FormatOneTransition(
			source,
			transit.Trigger.String(),
			actions,
			destination,
			guards,
		))
	}
	return lines
}

// transitionLabel builds "trigger / action, action [guard] [guard]".
func transitionLabel(trigger string, actions, guards []string) string {
	label := trigger
	if len(actions) > 0 {
		label += " / "
		for i, act := range actions {
			if i > 0 {
				label += ", "
			}
			label += act
		}
	}
	for _, guard := range guards {
		if label != "" {
			label += " "
		}
		label += "[" + guard + "]"
	}
	return label
}

func collectGuards(transit *Transition) []string {
	var guards []string
	for _, g := range transit.Guards {
		guards = append(guards, g.Description())
	}
	return guards
}
