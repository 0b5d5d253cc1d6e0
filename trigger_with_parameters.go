package hsm

import (
	"fmt"
	"reflect"
)

// TriggerWithParameters associates configured parameters with an underlying trigger value.
type TriggerWithParameters[TTrigger comparable] struct {
	underlyingTrigger TTrigger
	argumentTypes     []reflect.Type
}

// NewTriggerWithParameters creates a new configured trigger.
func NewTriggerWithParameters[TTrigger comparable](underlyingTrigger TTrigger, argumentTypes ...reflect.Type) *TriggerWithParameters[TTrigger] {
	return &TriggerWithParameters[TTrigger]{
		underlyingTrigger: underlyingTrigger,
		argumentTypes:     argumentTypes,
	}
}

// TypeOf returns the reflect.Type of T, for use with SetTriggerParameters.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// ArgumentTypes returns the argument types expected by this trigger.
func (t *TriggerWithParameters[TTrigger]) ArgumentTypes() []reflect.Type {
	return t.argumentTypes
}

// Trigger returns the underlying trigger value.
func (t *TriggerWithParameters[TTrigger]) Trigger() TTrigger {
	return t.underlyingTrigger
}

// ValidateParameters ensures that the supplied arguments are compatible with
// those configured for this trigger: same count, each assignable to its type.
func (t *TriggerWithParameters[TTrigger]) ValidateParameters(args []any) error {
	if len(args) != len(t.argumentTypes) {
		return &ParameterConversionError{
			Trigger:  t.underlyingTrigger,
			Position: -1,
			Message: fmt.Sprintf("trigger '%v' expects %d parameters but %d were supplied",
				t.underlyingTrigger, len(t.argumentTypes), len(args)),
		}
	}

	for i, expected := range t.argumentTypes {
		arg := args[i]
		if arg == nil {
			if nillable(expected) {
				continue
			}
			return &ParameterConversionError{
				Trigger:  t.underlyingTrigger,
				Position: i,
				Expected: expected,
				Message: fmt.Sprintf("argument at position %d of trigger '%v' is nil but expected type %v",
					i, t.underlyingTrigger, expected),
			}
		}
		actual := reflect.TypeOf(arg)
		if !actual.AssignableTo(expected) {
			return &ParameterConversionError{
				Trigger:  t.underlyingTrigger,
				Position: i,
				Expected: expected,
				Actual:   actual,
				Message: fmt.Sprintf("argument at position %d of trigger '%v' is of type %v but expected type %v",
					i, t.underlyingTrigger, actual, expected),
			}
		}
	}

	return nil
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return true
	default:
		return false
	}
}
