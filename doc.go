// Package hsm provides a generic hierarchical state machine engine for Go.
//
// A machine tracks a current state and reacts to triggers according to
// per-state behaviour tables:
//
//   - Generic types for states and triggers
//   - Guard conditions made of named predicates
//   - Entry, exit, activate and deactivate actions, synchronous or asynchronous
//   - Hierarchical states (substates and superstates) with initial transitions
//   - Parameterized triggers with argument validation
//   - Dynamic, reentrant, internal and ignored transitions
//   - Firing modes (immediate or queued)
//   - A read-only export of the configured graph
//
// # Basic Usage
//
// Create a state machine with initial state:
//
//	sm := hsm.NewStateMachine[State, Trigger](Idle)
//
// Configure states with transitions:
//
//	sm.Configure(Idle).
//	    Permit(Dial, Ringing).
//	    OnExit(func(ctx context.Context, t hsm.Transition[State, Trigger]) error {
//	        return nil
//	    })
//
// Fire triggers to cause transitions:
//
//	err := sm.Fire(Dial)
//
// # Guards
//
// Add conditions to transitions:
//
//	sm.Configure(Ringing).
//	    PermitIf(Answer, Connected, func(ctx context.Context, args ...any) bool {
//	        return lineFree
//	    }, "line is free")
//
// or, with the fluent form, several named conditions on one transition:
//
//	sm.Configure(Ringing).Transition(Answer).To(Connected).
//	    If(lineFree, "line is free").
//	    If(notMuted, "handset not muted")
//
// # Hierarchical States
//
// Create state hierarchies:
//
//	sm.Configure(OnHold).SubstateOf(Connected)
//
// # Firing Modes
//
// In FiringImmediate mode a trigger fired from inside a callback runs to
// completion before the callback continues. In FiringQueued mode it is appended
// to a FIFO and processed after the current firing completes.
//
// # Graph Generation
//
// Export to DOT, Mermaid or YAML:
//
//	import "github.com/atlekbai/hsm/graph"
//	dot := graph.UmlDotGraph(sm.GetInfo())
package hsm
