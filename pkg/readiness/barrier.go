// Package readiness implements the barrier that gates rendering on the
// completion of several independent asynchronous loads.
//
// A Barrier is created with a fixed set of task names. Each task is marked
// done at most once; when the last one completes the ready callback runs
// exactly once. A task may instead report failure, after which the barrier
// can never become ready for this load cycle.
package readiness

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vanderheijden86/graphweave/pkg/debug"
)

// ErrUnknownTask is returned when a task name was not registered.
var ErrUnknownTask = errors.New("unknown readiness task")

// TaskError records which task failed and why.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Barrier tracks completion of named tasks. It is safe for concurrent use;
// callbacks run on the goroutine that caused the transition, outside the
// barrier's lock.
type Barrier struct {
	mu          sync.Mutex
	done        map[string]bool
	remaining   int
	onReady     func()
	fired       bool
	subscribers []func(task string)
	failure     *TaskError

	readyCh  chan struct{}
	failedCh chan struct{}
}

// New creates a barrier over the given task names. Duplicate names collapse
// to a single task. A barrier with no tasks is ready immediately.
func New(tasks ...string) *Barrier {
	b := &Barrier{
		done:     make(map[string]bool, len(tasks)),
		readyCh:  make(chan struct{}),
		failedCh: make(chan struct{}),
	}
	for _, t := range tasks {
		b.done[t] = false
	}
	b.remaining = len(b.done)
	if b.remaining == 0 {
		close(b.readyCh)
	}
	return b
}

// OnReady registers the ready callback. If the barrier is already ready the
// callback runs immediately. Only the first registered callback is kept.
func (b *Barrier) OnReady(fn func()) {
	b.mu.Lock()
	if b.onReady != nil || fn == nil {
		b.mu.Unlock()
		return
	}
	b.onReady = fn
	fire := b.remaining == 0 && b.failure == nil && !b.fired
	if fire {
		b.fired = true
	}
	b.mu.Unlock()

	if fire {
		fn()
	}
}

// Subscribe registers fn to be called after each task completes. It is the
// hook for loading indicators; it carries no readiness semantics.
func (b *Barrier) Subscribe(fn func(task string)) {
	b.mu.Lock()
	b.subscribers = append(b.subscribers, fn)
	b.mu.Unlock()
}

// MarkDone records completion of task. Marking a task twice is a no-op.
func (b *Barrier) MarkDone(task string) error {
	b.mu.Lock()
	done, ok := b.done[task]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownTask, task)
	}
	if done {
		b.mu.Unlock()
		return nil
	}

	b.done[task] = true
	b.remaining--
	subscribers := append([]func(string){}, b.subscribers...)

	var ready func()
	if b.remaining == 0 {
		close(b.readyCh)
		if b.failure == nil && !b.fired && b.onReady != nil {
			b.fired = true
			ready = b.onReady
		}
	}
	remaining := b.remaining
	b.mu.Unlock()

	debug.Log("readiness: %s done (%d remaining)", task, remaining)
	for _, fn := range subscribers {
		fn(task)
	}
	if ready != nil {
		ready()
	}
	return nil
}

// Fail records that task could not complete. Only the first failure is kept.
// A failed barrier never fires its ready callback. Failing a task that
// already completed is a no-op: readiness never goes back.
func (b *Barrier) Fail(task string, err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	done, ok := b.done[task]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTask, task)
	}
	if done || b.failure != nil {
		return nil
	}
	b.failure = &TaskError{Task: task, Err: err}
	close(b.failedCh)
	debug.Log("readiness: %s failed: %v", task, err)
	return nil
}

// Err returns the recorded failure as a *TaskError, or nil.
func (b *Barrier) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failure == nil {
		return nil
	}
	return b.failure
}

// Ready reports whether every task completed and none failed.
func (b *Barrier) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining == 0 && b.failure == nil
}

// IsDone reports whether task has completed.
func (b *Barrier) IsDone(task string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done[task]
}

// Tasks returns every registered task name, sorted.
func (b *Barrier) Tasks() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	tasks := make([]string, 0, len(b.done))
	for t := range b.done {
		tasks = append(tasks, t)
	}
	sort.Strings(tasks)
	return tasks
}

// Pending returns the names of tasks not yet done, sorted.
func (b *Barrier) Pending() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var pending []string
	for t, done := range b.done {
		if !done {
			pending = append(pending, t)
		}
	}
	sort.Strings(pending)
	return pending
}

// Done returns a channel closed once every task has completed. Check Err
// after it closes; a failure may be recorded alongside completions.
func (b *Barrier) Done() <-chan struct{} {
	return b.readyCh
}

// Failed returns a channel closed when the first failure is recorded.
func (b *Barrier) Failed() <-chan struct{} {
	return b.failedCh
}
