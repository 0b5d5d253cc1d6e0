package graph

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/atlekbai/hsm"
)

// MermaidGraphDirection specifies the direction of the Mermaid graph.
type MermaidGraphDirection int

const (
	// TopToBottom flows from top to bottom.
	TopToBottom MermaidGraphDirection = iota
	// BottomToTop flows from bottom to top.
	BottomToTop
	// LeftToRight flows from left to right.
	LeftToRight
	// RightToLeft flows from right to left.
	RightToLeft
)

// MermaidGraphStyle generates Mermaid state diagrams.
type MermaidGraphStyle struct {
	graph     *StateGraph
	direction *MermaidGraphDirection

	// aliases maps state names to names that are valid Mermaid identifiers.
	aliases map[string]string
}

// NewMermaidGraphStyle creates a new Mermaid graph style. A nil direction
// leaves the direction to the renderer.
func NewMermaidGraphStyle(graph *StateGraph, direction *MermaidGraphDirection) *MermaidGraphStyle {
	s := &MermaidGraphStyle{
		graph:     graph,
		direction: direction,
	}
	s.buildAliases()
	return s
}

// GetPrefix returns the text that starts a new Mermaid graph.
func (s *MermaidGraphStyle) GetPrefix() string {
	var sb strings.Builder
	sb.WriteString("stateDiagram-v2")

	if s.direction != nil {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "\tdirection %s", GetDirectionCode(*s.direction))
	}

	for _, name := range s.graph.sortedStateNames() {
		if alias := s.aliases[name]; alias != name {
			sb.WriteString("\n")
			fmt.Fprintf(&sb, "\t%s : %s", alias, name)
		}
	}

	return sb.String()
}

// FormatOneCluster formats a composite state.
func (s *MermaidGraphStyle) FormatOneCluster(state *State) string {
	return s.formatCluster(state, "\t")
}

func (s *MermaidGraphStyle) formatCluster(state *State, indent string) string {
	var sb strings.Builder
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%sstate %s {", indent, s.alias(state.StateName))

	if state.InitialSubState != nil {
		fmt.Fprintf(&sb, "\n%s\t[*] --> %s", indent, s.alias(state.InitialSubState.StateName))
	}
	for _, sub := range state.SubStates {
		if sub.IsComposite() {
			sb.WriteString(s.formatCluster(sub, indent+"\t"))
		} else {
			fmt.Fprintf(&sb, "\n%s\t%s", indent, s.alias(sub.StateName))
		}
	}

	fmt.Fprintf(&sb, "\n%s}", indent)
	return sb.String()
}

// FormatOneState returns nothing: Mermaid declares simple states through their transitions.
func (s *MermaidGraphStyle) FormatOneState(_ *State) string {
	return ""
}

// FormatOneDecisionNode formats a decision node.
func (s *MermaidGraphStyle) FormatOneDecisionNode(nodeName, _ string) string {
	return fmt.Sprintf("\n\tstate %s <<choice>>", nodeName)
}

// FormatAllTransitions formats all transitions.
func (s *MermaidGraphStyle) FormatAllTransitions(transitions []*Transition, _ []*Decision) []string {
	return FormatTransitions(s, transitions)
}

// FormatOneTransition formats a single transition.
func (s *MermaidGraphStyle) FormatOneTransition(
	sourceNodeName, trigger string,
	actions []string,
	destinationNodeName string,
	guards []string,
) string {
	return fmt.Sprintf("\t%s --> %s : %s",
		s.alias(sourceNodeName), s.alias(destinationNodeName), transitionLabel(trigger, actions, guards))
}

// GetInitialTransition returns the text for the initial state transition.
func (s *MermaidGraphStyle) GetInitialTransition(initialState *hsm.StateInfo) string {
	if initialState == nil {
		return ""
	}
	return fmt.Sprintf("\n[*] --> %s", s.alias(initialState.String()))
}

// buildAliases assigns every state a unique sanitized name, in sorted order
// so the output is stable.
func (s *MermaidGraphStyle) buildAliases() {
	s.aliases = make(map[string]string, len(s.graph.States))
	taken := make(map[string]bool, len(s.graph.States))

	names := s.graph.sortedStateNames()
	for _, name := range names {
		if SanitizeStateName(name) == name {
			s.aliases[name] = name
			taken[name] = true
		}
	}
	for _, name := range names {
		if _, ok := s.aliases[name]; ok {
			continue
		}
		base := SanitizeStateName(name)
		alias := base
		for count := 1; taken[alias]; count++ {
			alias = fmt.Sprintf("%s_%d", base, count)
		}
		s.aliases[name] = alias
		taken[alias] = true
	}
}

// alias returns the Mermaid identifier of a state or decision node.
func (s *MermaidGraphStyle) alias(name string) string {
	if alias, ok := s.aliases[name]; ok {
		return alias
	}
	return name
}

// SanitizeStateName removes characters that would cause invalid Mermaid graphs.
func SanitizeStateName(name string) string {
	var result strings.Builder
	for _, c := range name {
		if !unicode.IsSpace(c) && c != ':' && c != '-' {
			result.WriteRune(c)
		}
	}
	return result.String()
}

// GetDirectionCode returns the Mermaid direction code.
func GetDirectionCode(direction MermaidGraphDirection) string {
	switch direction {
	case BottomToTop:
		return "BT"
	case LeftToRight:
		return "LR"
	case RightToLeft:
		return "RL"
	default:
		return "TB"
	}
}

// MermaidGraph generates a Mermaid graph from a machine export.
func MermaidGraph(machineInfo *hsm.StateMachineInfo, direction *MermaidGraphDirection) string {
	graph := NewStateGraph(machineInfo)
	return graph.ToGraph(NewMermaidGraphStyle(graph, direction))
}
