package hsm

import (
	"context"
	"errors"
	"testing"
)

func TestSuperstateHandlesTrigger(t *testing.T) {
	sm := NewStateMachine[State, Trigger](StateB)
	sm.Configure(StateA).Permit(TriggerX, StateC)
	sm.Configure(StateB).SubstateOf(StateA)

	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sm.State() != StateC {
		t.Errorf("expected StateC, got %v", sm.State())
	}
}

func TestSubstateOverridesSuperstate(t *testing.T) {
	sm := NewStateMachine[State, Trigger](StateB)
	sm.Configure(StateA).Permit(TriggerX, StateC)
	sm.Configure(StateB).SubstateOf(StateA).Permit(TriggerX, StateD)

	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sm.State() != StateD {
		t.Errorf("expected StateD, got %v", sm.State())
	}
}

func TestSuperstateUsedWhenSubstateGuardFails(t *testing.T) {
	sm := NewStateMachine[State, Trigger](StateB)
	sm.Configure(StateA).Permit(TriggerX, StateC)
	sm.Configure(StateB).SubstateOf(StateA).PermitIf(TriggerX, StateD, never)

	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sm.State() != StateC {
		t.Errorf("expected StateC, got %v", sm.State())
	}
}

func TestIsInStateIncludesSuperstates(t *testing.T) {
	sm := NewStateMachine[State, Trigger](StateC)
	sm.Configure(StateB).SubstateOf(StateA)
	sm.Configure(StateC).SubstateOf(StateB)

	for _, state := range []State{StateA, StateB, StateC} {
		if !sm.IsInState(state) {
			t.Errorf("expected machine to be in %v", state)
		}
	}
	if sm.IsInState(StateD) {
		t.Error("expected machine not to be in StateD")
	}
}

func TestTransitionBetweenSiblingsKeepsSuperstate(t *testing.T) {
	sm := NewStateMachine[State, Trigger](StateB)
	rec := &recorder{}
	sm.Configure(StateA).
		OnEntry(rec.action("EnterA")).
		OnExit(rec.action("ExitA"))
	sm.Configure(StateB).
		SubstateOf(StateA).
		Permit(TriggerX, StateC).
		OnExit(rec.action("ExitB"))
	sm.Configure(StateC).
		SubstateOf(StateA).
		OnEntry(rec.action("EnterC"))

	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec.equal(t, "ExitB", "EnterC")
}

func TestTransitionOutOfHierarchyExitsInnermostFirst(t *testing.T) {
	sm := NewStateMachine[State, Trigger](StateC)
	rec := &recorder{}
	sm.Configure(StateA).OnExit(rec.action("ExitA"))
	sm.Configure(StateB).SubstateOf(StateA).OnExit(rec.action("ExitB"))
	sm.Configure(StateC).
		SubstateOf(StateB).
		Permit(TriggerX, StateD).
		OnExit(rec.action("ExitC"))
	sm.Configure(StateD).OnEntry(rec.action("EnterD"))

	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec.equal(t, "ExitC", "ExitB", "ExitA", "EnterD")
}

func TestTransitionIntoNestedStateEntersOutermostFirst(t *testing.T) {
	sm := NewStateMachine[State, Trigger](StateD)
	rec := &recorder{}
	sm.Configure(StateA).OnEntry(rec.action("EnterA"))
	sm.Configure(StateB).SubstateOf(StateA).OnEntry(rec.action("EnterB"))
	sm.Configure(StateC).SubstateOf(StateB).OnEntry(rec.action("EnterC"))
	sm.Configure(StateD).Permit(TriggerX, StateC)

	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec.equal(t, "EnterA", "EnterB", "EnterC")
}

func TestTransitionFromSuperstateToOwnSubstateDoesNotExitSuperstate(t *testing.T) {
	sm := NewStateMachine[State, Trigger](StateA)
	rec := &recorder{}
	sm.Configure(StateA).
		Permit(TriggerX, StateB).
		OnEntry(rec.action("EnterA")).
		OnExit(rec.action("ExitA"))
	sm.Configure(StateB).
		SubstateOf(StateA).
		OnEntry(rec.action("EnterB"))

	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec.equal(t, "EnterB")
}

func TestTransitionFromSubstateToSuperstateExitsOnlySubstate(t *testing.T) {
	sm := NewStateMachine[State, Trigger](StateB)
	rec := &recorder{}
	sm.Configure(StateA).
		OnEntry(rec.action("EnterA")).
		OnExit(rec.action("ExitA"))
	sm.Configure(StateB).
		SubstateOf(StateA).
		Permit(TriggerX, StateA).
		OnExit(rec.action("ExitB"))

	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec.equal(t, "ExitB")
	if sm.State() != StateA {
		t.Errorf("expected StateA, got %v", sm.State())
	}
}

func TestInheritedTransitionToCurrentStateIsNoOp(t *testing.T) {
	sm := NewStateMachine[State, Trigger](StateB)
	rec := &recorder{}
	sm.Configure(StateA).Permit(TriggerX, StateB)
	sm.Configure(StateB).
		SubstateOf(StateA).
		OnEntry(rec.action("EnterB")).
		OnExit(rec.action("ExitB"))
	sm.OnTransitioned(func(context.Context, transition) {
		rec.calls = append(rec.calls, "OnTransitioned")
	})

	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec.equal(t)
	if sm.State() != StateB {
		t.Errorf("expected StateB, got %v", sm.State())
	}
}

func TestReentryInSubstate(t *testing.T) {
	sm := NewStateMachine[State, Trigger](StateB)
	rec := &recorder{}
	sm.Configure(StateA).
		OnEntry(rec.action("EnterA")).
		OnExit(rec.action("ExitA"))
	sm.Configure(StateB).
		SubstateOf(StateA).
		PermitReentry(TriggerX).
		OnEntry(rec.action("EnterB")).
		OnExit(rec.action("ExitB"))

	var seen []transition
	sm.OnTransitioned(func(_ context.Context, tr transition) { seen = append(seen, tr) })

	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec.equal(t, "ExitB", "EnterB")
	if len(seen) != 1 || !seen[0].IsReentry() {
		t.Errorf("expected one reentry notification, got %+v", seen)
	}
}

func TestInheritedReentryReentersSuperstate(t *testing.T) {
	sm := NewStateMachine[State, Trigger](StateB)
	rec := &recorder{}
	sm.Configure(StateA).
		PermitReentry(TriggerX).
		OnEntry(rec.action("EnterA")).
		OnExit(rec.action("ExitA"))
	sm.Configure(StateB).
		SubstateOf(StateA).
		OnEntry(rec.action("EnterB")).
		OnExit(rec.action("ExitB"))

	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec.equal(t, "ExitB", "ExitA", "EnterA")
	if sm.State() != StateA {
		t.Errorf("expected StateA, got %v", sm.State())
	}
}

func TestReentryOfCompositeStateRunsInitialTransition(t *testing.T) {
	sm := NewStateMachine[State, Trigger](StateC)
	rec := &recorder{}
	sm.Configure(StateA).
		InitialTransition(StateB).
		PermitReentry(TriggerX).
		OnEntry(rec.action("EnterA")).
		OnExit(rec.action("ExitA"))
	sm.Configure(StateB).SubstateOf(StateA).OnEntry(rec.action("EnterB"))
	sm.Configure(StateC).SubstateOf(StateA).OnExit(rec.action("ExitC"))

	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec.equal(t, "ExitC", "ExitA", "EnterA", "EnterB")
	if sm.State() != StateB {
		t.Errorf("expected StateB, got %v", sm.State())
	}
}

func TestPermittedTriggersIncludeSuperstates(t *testing.T) {
	sm := NewStateMachine[State, Trigger](StateB)
	sm.Configure(StateA).
		Permit(TriggerX, StateC).
		Permit(TriggerY, StateC)
	sm.Configure(StateB).
		SubstateOf(StateA).
		Permit(TriggerZ, StateD).
		Permit(TriggerX, StateD)

	got := sm.PermittedTriggers()
	want := []Trigger{TriggerZ, TriggerX, TriggerY}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSubstateOfPanics(t *testing.T) {
	tests := []struct {
		name      string
		configure func(sm *StateMachine[State, Trigger])
	}{
		{
			name: "self",
			configure: func(sm *StateMachine[State, Trigger]) {
				sm.Configure(StateA).SubstateOf(StateA)
			},
		},
		{
			name: "second superstate",
			configure: func(sm *StateMachine[State, Trigger]) {
				sm.Configure(StateB).SubstateOf(StateA)
				sm.Configure(StateB).SubstateOf(StateC)
			},
		},
		{
			name: "direct cycle",
			configure: func(sm *StateMachine[State, Trigger]) {
				sm.Configure(StateB).SubstateOf(StateA)
				sm.Configure(StateA).SubstateOf(StateB)
			},
		},
		{
			name: "indirect cycle",
			configure: func(sm *StateMachine[State, Trigger]) {
				sm.Configure(StateB).SubstateOf(StateA)
				sm.Configure(StateC).SubstateOf(StateB)
				sm.Configure(StateA).SubstateOf(StateC)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				var invalid *InvalidOperationError
				if err, ok := recover().(error); !ok || !errors.As(err, &invalid) {
					t.Errorf("expected InvalidOperationError panic")
				}
			}()
			tt.configure(NewStateMachine[State, Trigger](StateA))
		})
	}
}

func TestSubstateOfSameSuperstateTwice(t *testing.T) {
	sm := NewStateMachine[State, Trigger](StateB)
	sm.Configure(StateB).SubstateOf(StateA)
	sm.Configure(StateB).SubstateOf(StateA)

	info := sm.GetInfo()
	for _, state := range ListSlice(info.States) {
		if state.UnderlyingState == StateA && state.Substates.Len() != 1 {
			t.Errorf("expected one substate, got %d", state.Substates.Len())
		}
	}
}

func TestGetSubstates(t *testing.T) {
	sm := NewStateMachine[State, Trigger](StateB)
	sm.Configure(StateB).SubstateOf(StateA)
	sm.Configure(StateC).SubstateOf(StateA)
	sm.Configure(StateD)

	substates := sm.arena.find(StateA).GetSubstates()
	if len(substates) != 2 {
		t.Fatalf("expected two substates, got %d", len(substates))
	}
	if substates[0].UnderlyingState() != StateB || substates[1].UnderlyingState() != StateC {
		t.Errorf("expected [StateB StateC], got [%v %v]",
			substates[0].UnderlyingState(), substates[1].UnderlyingState())
	}
	if superstate := substates[0].Superstate(); superstate == nil || superstate.UnderlyingState() != StateA {
		t.Errorf("expected StateA as superstate of StateB")
	}
	if len(sm.arena.find(StateD).GetSubstates()) != 0 {
		t.Error("expected StateD to have no substates")
	}
}
