// Package graph renders the export of a hierarchical state machine as UML DOT,
// Mermaid or YAML.
package graph

import (
	"github.com/atlekbai/hsm"
)

// State is a node of the graph.
type State struct {
	// StateName is the name of the state.
	StateName string

	// NodeName is the name used for the node in the graph.
	NodeName string

	EntryActions []string
	ExitActions  []string

	Leaving  []*Transition
	Arriving []*Transition

	// SuperState is the parent state, if any.
	SuperState *State

	// SubStates are the child states in configuration order.
	SubStates []*State

	// InitialSubState is the target of the state's initial transition.
	InitialSubState *State

	// StateInfo contains the underlying state information.
	StateInfo *hsm.StateInfo
}

// IsComposite reports whether the state has substates.
func (s *State) IsComposite() bool {
	return len(s.SubStates) > 0
}

// Decision is a choice node standing for a dynamic transition.
type Decision struct {
	NodeName string

	// Method describes the destination selector.
	Method hsm.InvocationInfo

	Leaving  []*Transition
	Arriving []*Transition
}

// TransitionKind distinguishes how a transition is drawn.
type TransitionKind int

const (
	// KindFixed moves to another state.
	KindFixed TransitionKind = iota
	// KindReentry exits and re-enters the source.
	KindReentry
	// KindInternal runs an action without leaving the source.
	KindInternal
	// KindIgnored consumes the trigger without effect.
	KindIgnored
	// KindDecision leads into or out of a decision node.
	KindDecision
)

// Transition is an edge of the graph.
type Transition struct {
	Trigger hsm.TriggerInfo
	Kind    TransitionKind

	SourceState      *State
	DestinationState *State

	// Decision is set for edges into or out of a decision node.
	Decision *Decision

	Guards []hsm.InvocationInfo

	// DestinationEntryActions are trigger-scoped entry actions run at the destination.
	DestinationEntryActions []hsm.ActionInfo

	// Criterion labels an edge leaving a decision node.
	Criterion string
}

// ExecuteEntryExitActions reports whether taking the edge runs exit and entry actions.
func (t *Transition) ExecuteEntryExitActions() bool {
	return t.Kind != KindInternal && t.Kind != KindIgnored
}
