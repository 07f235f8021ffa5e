package upload

import (
	"context"
	"sync"

	"github.com/trezcool/certdesk/core/certificate"
	"github.com/trezcool/certdesk/core/event"
)

type TaskState int

// Task states
const (
	Idle TaskState = iota
	InFlight
	Resolved
)

func (s TaskState) String() string {
	switch s {
	case Idle:
		return "idle"
	case InFlight:
		return "in flight"
	case Resolved:
		return "resolved"
	}
	return "unknown"
}

// Result is the outcome of a successful submission.
type Result struct {
	Event        event.Event
	Certificates []certificate.Certificate
	Status       string
}

// Task is a submission whose result arrives later.
type Task struct {
	mu    sync.Mutex
	state TaskState
	done  chan struct{}
	res   Result
	err   error
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

// failedTask returns a Task already resolved with err.
func failedTask(err error) *Task {
	t := newTask()
	t.resolve(Result{}, err)
	return t
}

func (t *Task) start() {
	t.mu.Lock()
	t.state = InFlight
	t.mu.Unlock()
}

func (t *Task) resolve(res Result, err error) {
	t.mu.Lock()
	t.state = Resolved
	t.res, t.err = res, err
	t.mu.Unlock()
	close(t.done)
}

func (t *Task) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Done is closed once the Task is resolved.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the Task is resolved or ctx is done.
// A done ctx stops the waiting only: the submission itself goes on.
func (t *Task) Wait(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.res, t.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
