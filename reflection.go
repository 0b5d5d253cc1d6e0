package hsm

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/benbjohnson/immutable"
)

// Timing indicates whether a method is synchronous or asynchronous.
type Timing int

const (
	// TimingSynchronous indicates the method is synchronous.
	TimingSynchronous Timing = iota
	// TimingAsynchronous indicates the method is asynchronous.
	TimingAsynchronous
)

// InvocationInfo describes a method - either an action or a guard condition.
type InvocationInfo struct {
	// MethodName is the name of the invoked method.
	MethodName string

	description string
	timing      Timing
}

// DefaultFunctionDescription is the text returned for anonymous functions
// where the caller has not specified a description.
var DefaultFunctionDescription = "Function"

// NullString is the string representation of a null value.
const NullString = "<null>"

// NewInvocationInfo creates a new InvocationInfo.
func NewInvocationInfo(methodName, description string, timing Timing) InvocationInfo {
	return InvocationInfo{
		MethodName:  methodName,
		description: description,
		timing:      timing,
	}
}

// CreateInvocationInfo creates InvocationInfo from a function and description.
func CreateInvocationInfo(fn any, description string, timing Timing) InvocationInfo {
	return NewInvocationInfo(functionName(fn), description, timing)
}

// Description returns the description of the invoked method:
// the user-specified description if any, DefaultFunctionDescription for
// anonymous functions, otherwise the method name.
func (i InvocationInfo) Description() string {
	if i.description != "" {
		return i.description
	}
	if i.MethodName == "" {
		return NullString
	}
	if isAnonymous(i.MethodName) {
		return DefaultFunctionDescription
	}
	return i.MethodName
}

// IsAsync returns true if the method is invoked asynchronously.
func (i InvocationInfo) IsAsync() bool {
	return i.timing == TimingAsynchronous
}

// functionName returns the unqualified name of fn, or "" for nil.
func functionName(fn any) string {
	if fn == nil {
		return ""
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	name := f.Name()
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	// Drop the package qualifier.
	if idx := strings.Index(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	// Method values carry a -fm suffix.
	name = strings.TrimSuffix(name, "-fm")
	return name
}

// isAnonymous reports whether name is a compiler-generated closure name such
// as "TestX.func1" or "glob..func2".
func isAnonymous(name string) bool {
	last := name
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		last = name[idx+1:]
	}
	return strings.HasPrefix(last, "func") || last == ""
}

// ActionInfo describes an action with optional trigger information.
type ActionInfo struct {
	InvocationInfo

	// FromTrigger is the trigger that scopes this action, or nil.
	FromTrigger any
}

// NewActionInfo creates a new ActionInfo.
func NewActionInfo(method InvocationInfo, fromTrigger any) ActionInfo {
	return ActionInfo{
		InvocationInfo: method,
		FromTrigger:    fromTrigger,
	}
}

// TriggerInfo describes a trigger.
type TriggerInfo struct {
	// UnderlyingTrigger is the underlying trigger value.
	UnderlyingTrigger any
}

// NewTriggerInfo creates a new TriggerInfo.
func NewTriggerInfo(trigger any) TriggerInfo {
	return TriggerInfo{UnderlyingTrigger: trigger}
}

// String returns the string representation of the trigger.
func (t TriggerInfo) String() string {
	if t.UnderlyingTrigger == nil {
		return NullString
	}
	return fmt.Sprint(t.UnderlyingTrigger)
}

// StateMachineInfo exposes the states, transitions, and actions of a state
// machine. It is detached from the machine: later configuration does not
// change a snapshot already taken.
type StateMachineInfo struct {
	// InitialState is the state the machine was constructed in.
	InitialState *StateInfo

	// States contains every configured state in configuration order.
	States *immutable.List[*StateInfo]

	// StateType is a string representation of the state type.
	StateType string

	// TriggerType is a string representation of the trigger type.
	TriggerType string
}

// StateInfo describes an internal state representation through the reflection API.
type StateInfo struct {
	// UnderlyingState is the value this state represents.
	UnderlyingState any

	// Superstate is the superstate defined, if any.
	Superstate *StateInfo

	// Substates are substates defined for this state.
	Substates *immutable.List[*StateInfo]

	// InitialTransitionTarget is the target of the initial transition, if any.
	InitialTransitionTarget *StateInfo

	EntryActions      *immutable.List[ActionInfo]
	ExitActions       *immutable.List[ActionInfo]
	ActivateActions   *immutable.List[InvocationInfo]
	DeactivateActions *immutable.List[InvocationInfo]

	// FixedTransitions covers transitioning, reentry and internal behaviours.
	FixedTransitions   *immutable.List[FixedTransitionInfo]
	DynamicTransitions *immutable.List[DynamicTransitionInfo]
	IgnoredTriggers    *immutable.List[IgnoredTransitionInfo]
}

// String returns the string representation of the state.
func (s *StateInfo) String() string {
	if s == nil || s.UnderlyingState == nil {
		return NullString
	}
	return fmt.Sprint(s.UnderlyingState)
}

// Transitions returns all transitions (both fixed and dynamic) defined for this state.
func (s *StateInfo) Transitions() []TransitionInfo {
	result := make([]TransitionInfo, 0, s.FixedTransitions.Len()+s.DynamicTransitions.Len())
	for _, t := range ListSlice(s.FixedTransitions) {
		result = append(result, t)
	}
	for _, t := range ListSlice(s.DynamicTransitions) {
		result = append(result, t)
	}
	return result
}

// TransitionInfo is the common view of fixed and dynamic transitions.
type TransitionInfo interface {
	GetTrigger() TriggerInfo
	GetGuardConditions() []InvocationInfo
	GetIsInternalTransition() bool
}

type transitionInfoBase struct {
	// Trigger is the trigger whose firing results in this transition.
	Trigger TriggerInfo

	// GuardConditions contains method descriptions of the guard conditions.
	GuardConditions []InvocationInfo

	// IsInternalTransition indicates an internal transition.
	IsInternalTransition bool
}

func (t transitionInfoBase) GetTrigger() TriggerInfo {
	return t.Trigger
}

func (t transitionInfoBase) GetGuardConditions() []InvocationInfo {
	return append([]InvocationInfo(nil), t.GuardConditions...)
}

func (t transitionInfoBase) GetIsInternalTransition() bool {
	return t.IsInternalTransition
}

// FixedTransitionInfo describes a transition with a known destination.
type FixedTransitionInfo struct {
	transitionInfoBase

	// DestinationState is the state that will be transitioned into.
	DestinationState *StateInfo

	// IsReentry marks a reentry transition.
	IsReentry bool

	// Action describes the action of an internal transition.
	Action *InvocationInfo
}

// DynamicStateInfo contains information about a possible destination state for a dynamic transition.
type DynamicStateInfo struct {
	// DestinationState is the name of the destination state.
	DestinationState string

	// Criterion is the reason this destination state would be chosen.
	Criterion string
}

// DynamicTransitionInfo describes a transition whose destination is computed at fire time.
type DynamicTransitionInfo struct {
	transitionInfoBase

	// DestinationStateSelectorDescription describes the destination selector.
	DestinationStateSelectorDescription InvocationInfo

	// PossibleDestinationStates are the advertised destination states.
	PossibleDestinationStates []DynamicStateInfo
}

// IgnoredTransitionInfo describes a trigger that is ignored in a state.
type IgnoredTransitionInfo struct {
	transitionInfoBase
}

// ListSlice copies the elements of an immutable list into a new slice.
func ListSlice[T any](l *immutable.List[T]) []T {
	if l == nil {
		return nil
	}
	result := make([]T, 0, l.Len())
	itr := l.Iterator()
	for !itr.Done() {
		_, value := itr.Next()
		result = append(result, value)
	}
	return result
}

func listOf[T any](values []T) *immutable.List[T] {
	return immutable.NewList(values...)
}
