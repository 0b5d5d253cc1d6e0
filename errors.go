package hsm

import (
	"fmt"
	"reflect"
	"strings"
)

// InvalidOperationError indicates an operation that is not valid given the
// configuration of the machine.
type InvalidOperationError struct {
	Message string
}

func (e *InvalidOperationError) Error() string {
	return e.Message
}

// InvalidTransitionError is returned when a trigger is fired from a state that
// does not have a valid transition for that trigger.
type InvalidTransitionError struct {
	Trigger           any
	State             any
	UnmetGuards       []string
	PermittedTriggers []any
}

func (e *InvalidTransitionError) Error() string {
	if len(e.UnmetGuards) > 0 {
		return fmt.Sprintf(
			"trigger '%v' is valid for transition from state '%v' "+
				"but guard conditions are not met. Guard conditions: %s",
			e.Trigger, e.State, strings.Join(e.UnmetGuards, ", "))
	}

	var permitted string
	if len(e.PermittedTriggers) > 0 {
		triggers := make([]string, len(e.PermittedTriggers))
		for i, t := range e.PermittedTriggers {
			triggers[i] = fmt.Sprintf("%v", t)
		}
		permitted = fmt.Sprintf(" Permitted triggers: %s.", strings.Join(triggers, ", "))
	} else {
		permitted = " No valid leaving transitions are permitted from state."
	}

	return fmt.Sprintf(
		"no valid leaving transitions are permitted from state '%v' for trigger '%v'.%s",
		e.State, e.Trigger, permitted)
}

// GuardBlocked reports whether the trigger was configured but every guard failed.
func (e *InvalidTransitionError) GuardBlocked() bool {
	return len(e.UnmetGuards) > 0
}

// AmbiguousTransitionError is returned when more than one behaviour of a state
// has its guard met for the same trigger.
type AmbiguousTransitionError struct {
	Trigger any
	State   any
	Count   int
}

func (e *AmbiguousTransitionError) Error() string {
	return fmt.Sprintf(
		"%d permitted transitions are configured from state '%v' for trigger '%v'; guards should be mutually exclusive",
		e.Count, e.State, e.Trigger)
}

// ParameterConversionError is returned when the arguments supplied to a fire
// call do not match the trigger's registered parameters.
type ParameterConversionError struct {
	Trigger  any
	Position int
	Expected reflect.Type
	Actual   reflect.Type
	Message  string
}

func (e *ParameterConversionError) Error() string {
	return e.Message
}
