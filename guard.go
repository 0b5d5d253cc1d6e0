package hsm

import "context"

// GuardFunc is a predicate evaluated against the arguments of a fired trigger.
type GuardFunc func(ctx context.Context, args ...any) bool

// GuardCondition represents a single guard predicate with its description.
type GuardCondition struct {
	guard             GuardFunc
	methodDescription InvocationInfo
}

// NewGuardCondition creates a guard condition. When description is empty the
// function name is used in reports.
func NewGuardCondition(guard GuardFunc, description string) GuardCondition {
	return GuardCondition{
		guard:             guard,
		methodDescription: CreateInvocationInfo(guard, description, TimingSynchronous),
	}
}

// Description returns the description of the guard method.
func (g GuardCondition) Description() string {
	return g.methodDescription.Description()
}

// MethodDescription returns the full method description.
func (g GuardCondition) MethodDescription() InvocationInfo {
	return g.methodDescription
}

// IsMet reports whether the condition holds for args. A nil guard always holds.
func (g GuardCondition) IsMet(ctx context.Context, args []any) bool {
	if g.guard == nil {
		return true
	}
	return g.guard(ctx, args...)
}

// TransitionGuard is an ordered set of conditions that must all hold.
type TransitionGuard struct {
	Conditions []GuardCondition
}

// EmptyTransitionGuard is a transition guard with no conditions (always passes).
var EmptyTransitionGuard = TransitionGuard{}

// NewTransitionGuard creates a guard from a list of conditions.
func NewTransitionGuard(conditions ...GuardCondition) TransitionGuard {
	return TransitionGuard{Conditions: conditions}
}

// newSingleGuard builds the one-condition guard used by the If-style builders.
func newSingleGuard(guard GuardFunc, description []string) TransitionGuard {
	if guard == nil {
		return EmptyTransitionGuard
	}
	return NewTransitionGuard(NewGuardCondition(guard, firstOrEmpty(description)))
}

// GuardConditionsMet returns true if all guard conditions are met.
func (tg TransitionGuard) GuardConditionsMet(ctx context.Context, args []any) bool {
	for _, c := range tg.Conditions {
		if !c.IsMet(ctx, args) {
			return false
		}
	}
	return true
}

// UnmetGuardConditions returns the descriptions of every condition that does
// not hold, in declaration order.
func (tg TransitionGuard) UnmetGuardConditions(ctx context.Context, args []any) []string {
	var unmet []string
	for _, c := range tg.Conditions {
		if !c.IsMet(ctx, args) {
			unmet = append(unmet, c.Description())
		}
	}
	return unmet
}

// IsEmpty returns true if the transition guard has no conditions.
func (tg TransitionGuard) IsEmpty() bool {
	return len(tg.Conditions) == 0
}

func (tg TransitionGuard) descriptions() []InvocationInfo {
	result := make([]InvocationInfo, len(tg.Conditions))
	for i, c := range tg.Conditions {
		result[i] = c.MethodDescription()
	}
	return result
}

func firstOrEmpty(s []string) string {
	if len(s) > 0 {
		return s[0]
	}
	return ""
}
