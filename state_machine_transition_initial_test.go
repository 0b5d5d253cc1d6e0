package hsm

import (
	"context"
	"errors"
	"testing"
)

func TestInitialTransitionEntersSubstate(t *testing.T) {
	sm := NewStateMachine[State, Trigger](StateA)
	rec := &recorder{}
	sm.Configure(StateA).Permit(TriggerX, StateB)
	sm.Configure(StateB).
		InitialTransition(StateC).
		OnEntry(rec.action("EnterB"))
	sm.Configure(StateC).
		SubstateOf(StateB).
		OnEntry(rec.action("EnterC"))

	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sm.State() != StateC {
		t.Errorf("expected StateC, got %v", sm.State())
	}
	rec.equal(t, "EnterB", "EnterC")
}

func TestInitialTransitionNotifications(t *testing.T) {
	sm := NewStateMachine[State, Trigger](StateA)
	sm.Configure(StateA).Permit(TriggerX, StateB)
	sm.Configure(StateB).InitialTransition(StateC)
	sm.Configure(StateC).SubstateOf(StateB)

	var transitioned, completed []transition
	sm.OnTransitioned(func(_ context.Context, tr transition) { transitioned = append(transitioned, tr) })
	sm.OnTransitionCompleted(func(_ context.Context, tr transition) { completed = append(completed, tr) })

	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(transitioned) != 2 {
		t.Fatalf("expected two OnTransitioned calls, got %d", len(transitioned))
	}
	if transitioned[0].Source != StateA || transitioned[0].Destination != StateB || transitioned[0].IsInitial() {
		t.Errorf("unexpected first transition %+v", transitioned[0])
	}
	if transitioned[1].Source != StateB || transitioned[1].Destination != StateC || !transitioned[1].IsInitial() {
		t.Errorf("unexpected initial transition %+v", transitioned[1])
	}
	if transitioned[1].Trigger != TriggerX {
		t.Errorf("expected the initial transition to carry TriggerX, got %v", transitioned[1].Trigger)
	}

	if len(completed) != 1 {
		t.Fatalf("expected one OnTransitionCompleted call, got %d", len(completed))
	}
	if completed[0].Source != StateA || completed[0].Destination != StateC {
		t.Errorf("expected completion A -> C, got %+v", completed[0])
	}
}

func TestInitialTransitionCascadesThroughLevels(t *testing.T) {
	sm := NewStateMachine[State, Trigger](StateA)
	rec := &recorder{}
	sm.Configure(StateA).Permit(TriggerX, StateB)
	sm.Configure(StateB).InitialTransition(StateC).OnEntry(rec.action("EnterB"))
	sm.Configure(StateC).SubstateOf(StateB).InitialTransition(StateD).OnEntry(rec.action("EnterC"))
	sm.Configure(StateD).SubstateOf(StateC).OnEntry(rec.action("EnterD"))

	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sm.State() != StateD {
		t.Errorf("expected StateD, got %v", sm.State())
	}
	rec.equal(t, "EnterB", "EnterC", "EnterD")
}

func TestInitialTransitionToDeepDescendantEntersIntermediateStates(t *testing.T) {
	sm := NewStateMachine[State, Trigger](StateA)
	rec := &recorder{}
	sm.Configure(StateA).Permit(TriggerX, StateB)
	sm.Configure(StateB).InitialTransition(StateD).OnEntry(rec.action("EnterB"))
	sm.Configure(StateC).SubstateOf(StateB).OnEntry(rec.action("EnterC"))
	sm.Configure(StateD).SubstateOf(StateC).OnEntry(rec.action("EnterD"))

	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec.equal(t, "EnterB", "EnterC", "EnterD")
}

func TestInitialTransitionToNonSubstateFails(t *testing.T) {
	sm := NewStateMachine[State, Trigger](StateA)
	sm.Configure(StateA).Permit(TriggerX, StateB)
	sm.Configure(StateB).InitialTransition(StateC)
	sm.Configure(StateC)

	err := sm.Fire(TriggerX)

	var invalid *InvalidOperationError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidOperationError, got %v", err)
	}
	// The failing step is not rolled back.
	if sm.State() != StateB {
		t.Errorf("expected StateB, got %v", sm.State())
	}
}

func TestInitialTransitionConfigurationPanics(t *testing.T) {
	tests := []struct {
		name      string
		configure func(sm *StateMachine[State, Trigger])
	}{
		{
			name: "self",
			configure: func(sm *StateMachine[State, Trigger]) {
				sm.Configure(StateA).InitialTransition(StateA)
			},
		},
		{
			name: "twice",
			configure: func(sm *StateMachine[State, Trigger]) {
				sm.Configure(StateA).InitialTransition(StateB).InitialTransition(StateC)
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

func TestInitialTransitionSkippedWhenEntryFiresAway(t *testing.T) {
	sm := NewStateMachine[State, Trigger](StateA)
	rec := &recorder{}
	sm.Configure(StateA).Permit(TriggerX, StateB)
	sm.Configure(StateB).
		InitialTransition(StateC).
		Permit(TriggerY, StateD).
		OnEntry(func(ctx context.Context, _ transition) error {
			return sm.FireCtx(ctx, TriggerY)
		})
	sm.Configure(StateC).SubstateOf(StateB).OnEntry(rec.action("EnterC"))
	sm.Configure(StateD).OnEntry(rec.action("EnterD"))

	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec.equal(t, "EnterD")
	if sm.State() != StateD {
		t.Errorf("expected StateD, got %v", sm.State())
	}
}

func TestInitialTransitionInQueuedModeRunsBeforeQueuedTriggers(t *testing.T) {
	sm := NewStateMachineWithMode[State, Trigger](StateA, FiringQueued)
	rec := &recorder{}
	sm.Configure(StateA).Permit(TriggerX, StateB)
	sm.Configure(StateB).
		InitialTransition(StateC).
		OnEntry(func(ctx context.Context, _ transition) error {
			rec.calls = append(rec.calls, "EnterB")
			return sm.FireCtx(ctx, TriggerY)
		})
	sm.Configure(StateC).
		SubstateOf(StateB).
		Permit(TriggerY, StateD).
		OnEntry(rec.action("EnterC"))
	sm.Configure(StateD).OnEntry(rec.action("EnterD"))

	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec.equal(t, "EnterB", "EnterC", "EnterD")
	if sm.State() != StateD {
		t.Errorf("expected StateD, got %v", sm.State())
	}
}
