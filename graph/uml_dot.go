package graph

import (
	"fmt"
	"strings"

	"github.com/atlekbai/hsm"
)

// UmlDotGraphStyle generates DOT graphs in basic UML style.
type UmlDotGraphStyle struct{}

// NewUmlDotGraphStyle creates a new UML DOT graph style.
func NewUmlDotGraphStyle() *UmlDotGraphStyle {
	return &UmlDotGraphStyle{}
}

// GetPrefix returns the text that starts a new DOT graph.
func (s *UmlDotGraphStyle) GetPrefix() string {
	var sb strings.Builder
	sb.WriteString("digraph {\n")
	sb.WriteString("compound=true;\n")
	sb.WriteString("node [shape=Mrecord]\n")
	sb.WriteString("rankdir=\"LR\"\n")
	return sb.String()
}

// FormatOneCluster formats a composite state as a subgraph. Nested composite
// states become nested subgraphs and an initial transition becomes an edge
// from a point node inside the cluster.
func (s *UmlDotGraphStyle) FormatOneCluster(state *State) string {
	var sb strings.Builder
	var label strings.Builder

	label.WriteString(EscapeLabel(state.StateName))
	if len(state.EntryActions) > 0 || len(state.ExitActions) > 0 {
		label.WriteString("\\n----------")
		for _, act := range state.EntryActions {
			label.WriteString("\\nentry / ")
			label.WriteString(EscapeLabel(act))
		}
		for _, act := range state.ExitActions {
			label.WriteString("\\nexit / ")
			label.WriteString(EscapeLabel(act))
		}
	}

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "subgraph \"cluster%s\"\n", EscapeLabel(state.NodeName))
	sb.WriteString("\t{\n")
	fmt.Fprintf(&sb, "\tlabel = \"%s\"\n", label.String())

	for _, sub := range state.SubStates {
		if sub.IsComposite() {
			sb.WriteString(s.FormatOneCluster(sub))
		} else {
			sb.WriteString(s.FormatOneState(sub))
		}
	}

	if state.InitialSubState != nil {
		initNode := "init_" + state.NodeName
		fmt.Fprintf(&sb, "\"%s\" [label=\"\", shape=point];\n", EscapeLabel(initNode))
		fmt.Fprintf(&sb, "\"%s\" -> \"%s\"[style = \"solid\"];\n", EscapeLabel(initNode), EscapeLabel(state.InitialSubState.NodeName))
	}

	sb.WriteString("}\n")
	return sb.String()
}

// FormatOneState formats a single state.
func (s *UmlDotGraphStyle) FormatOneState(state *State) string {
	escapedName := EscapeLabel(state.StateName)

	if len(state.EntryActions) == 0 && len(state.ExitActions) == 0 {
		return fmt.Sprintf("\"%s\" [label=\"%s\"];\n", escapedName, escapedName)
	}

	var actions []string
	for _, act := range state.EntryActions {
		actions = append(actions, "entry / "+EscapeLabel(act))
	}
	for _, act := range state.ExitActions {
		actions = append(actions, "exit / "+EscapeLabel(act))
	}

	return fmt.Sprintf("\"%s\" [label=\"%s|%s\"];\n", escapedName, escapedName, strings.Join(actions, "\\n"))
}

// FormatOneDecisionNode formats a decision node.
func (s *UmlDotGraphStyle) FormatOneDecisionNode(nodeName, label string) string {
	return fmt.Sprintf("\"%s\" [shape = \"diamond\", label = \"%s\"];\n",
		EscapeLabel(nodeName), EscapeLabel(label))
}

// FormatAllTransitions formats all transitions.
func (s *UmlDotGraphStyle) FormatAllTransitions(transitions []*Transition, _ []*Decision) []string {
	return FormatTransitions(s, transitions)
}

// FormatOneTransition formats a single transition.
func (s *UmlDotGraphStyle) FormatOneTransition(
	sourceNodeName, trigger string,
	actions []string,
	destinationNodeName string,
	guards []string,
) string {
	return fmt.Sprintf("\"%s\" -> \"%s\" [style=\"solid\", label=\"%s\"];",
		EscapeLabel(sourceNodeName), EscapeLabel(destinationNodeName),
		EscapeLabel(transitionLabel(trigger, actions, guards)))
}

// GetInitialTransition returns the text for the initial state transition.
func (s *UmlDotGraphStyle) GetInitialTransition(initialState *hsm.StateInfo) string {
	if initialState == nil {
		return "\n}"
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(" init [label=\"\", shape=point];")
	sb.WriteString("\n")
	fmt.Fprintf(&sb, " init -> \"%s\"[style = \"solid\"]", EscapeLabel(initialState.String()))
	sb.WriteString("\n")
	sb.WriteString("}")
	return sb.String()
}

// EscapeLabel escapes special characters in a label.
func EscapeLabel(label string) string {
	label = strings.ReplaceAll(label, "\\", "\\\\")
	label = strings.ReplaceAll(label, "\"", "\\\"")
	return label
}

// UmlDotGraph generates a UML DOT graph from a machine export.
func UmlDotGraph(machineInfo *hsm.StateMachineInfo) string {
	return NewStateGraph(machineInfo).ToGraph(NewUmlDotGraphStyle())
}
