package hsm

import "context"

// Task is the completion signal of an asynchronous callback. The callback is
// complete when a value is received or the channel is closed; a nil Task is
// already complete.
type Task <-chan error

// Completed returns a Task that is already complete with err.
func Completed(err error) Task {
	ch := make(chan error, 1)
	ch <- err
	close(ch)
	return ch
}

// Go runs fn on its own goroutine and returns a Task that completes with its result.
func Go(fn func() error) Task {
	ch := make(chan error, 1)
	go func() {
		defer close(ch)
		ch <- fn()
	}()
	return ch
}

// Wait blocks until the task completes and returns its error.
func (t Task) Wait() error {
	if t == nil {
		return nil
	}
	err, ok := <-t
	if !ok {
		return nil
	}
	return err
}

// TransitionAction is a synchronous callback invoked with the transition being executed.
type TransitionAction[TState, TTrigger comparable] func(ctx context.Context, t Transition[TState, TTrigger]) error

// TransitionTask is an asynchronous callback invoked with the transition being executed.
type TransitionTask[TState, TTrigger comparable] func(ctx context.Context, t Transition[TState, TTrigger]) Task

// LifecycleAction is a synchronous activation or deactivation callback.
type LifecycleAction func(ctx context.Context) error

// LifecycleTask is an asynchronous activation or deactivation callback.
type LifecycleTask func(ctx context.Context) Task

// actionBehaviour is an entry, exit or internal action. Asynchronous actions
// are awaited on the firing goroutine, so every action runs as one blocking step.
type actionBehaviour[TState, TTrigger comparable] struct {
	run         func(ctx context.Context, t Transition[TState, TTrigger]) error
	description InvocationInfo
	fromTrigger *TTrigger
}

func newActionBehaviour[TState, TTrigger comparable](
	action TransitionAction[TState, TTrigger],
	description string,
) *actionBehaviour[TState, TTrigger] {
	return &actionBehaviour[TState, TTrigger]{
		run:         action,
		description: CreateInvocationInfo(action, description, TimingSynchronous),
	}
}

func newActionBehaviourAsync[TState, TTrigger comparable](
	action TransitionTask[TState, TTrigger],
	description string,
) *actionBehaviour[TState, TTrigger] {
	var run func(ctx context.Context, t Transition[TState, TTrigger]) error
	if action != nil {
		run = func(ctx context.Context, t Transition[TState, TTrigger]) error {
			return action(ctx, t).Wait()
		}
	}
	return &actionBehaviour[TState, TTrigger]{
		run:         run,
		description: CreateInvocationInfo(action, description, TimingAsynchronous),
	}
}

// from restricts the action to transitions caused by trigger.
func (a *actionBehaviour[TState, TTrigger]) from(trigger TTrigger) *actionBehaviour[TState, TTrigger] {
	a.fromTrigger = &trigger
	return a
}

func (a *actionBehaviour[TState, TTrigger]) execute(ctx context.Context, t Transition[TState, TTrigger]) error {
	if a.fromTrigger != nil && *a.fromTrigger != t.Trigger {
		return nil
	}
	if a.run == nil {
		return nil
	}
	return a.run(ctx, t)
}

func (a *actionBehaviour[TState, TTrigger]) info() ActionInfo {
	var from any
	if a.fromTrigger != nil {
		from = *a.fromTrigger
	}
	return NewActionInfo(a.description, from)
}

// lifecycleBehaviour is an activate or deactivate action.
type lifecycleBehaviour struct {
	run         LifecycleAction
	description InvocationInfo
}

func newLifecycleBehaviour(action LifecycleAction, description string) *lifecycleBehaviour {
	return &lifecycleBehaviour{
		run:         action,
		description: CreateInvocationInfo(action, description, TimingSynchronous),
	}
}

func newLifecycleBehaviourAsync(action LifecycleTask, description string) *lifecycleBehaviour {
	var run LifecycleAction
	if action != nil {
		run = func(ctx context.Context) error {
			return action(ctx).Wait()
		}
	}
	return &lifecycleBehaviour{
		run:         run,
		description: CreateInvocationInfo(action, description, TimingAsynchronous),
	}
}

func (l *lifecycleBehaviour) execute(ctx context.Context) error {
	if l.run == nil {
		return nil
	}
	return l.run(ctx)
}
