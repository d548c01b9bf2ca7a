package audit

import (
	"context"

	"github.com/cliniquerisimed-lab/jongwane/internal/playback"
)

// Outcome is what an analysis or follow-up produced.
type Outcome struct {
	Text  string
	Audio *playback.Buffer
}

// Task is the future of one asynchronous request.
type Task struct {
	done    chan struct{}
	outcome Outcome
	err     error
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

func (t *Task) finish(outcome Outcome, err error) {
	t.outcome = outcome
	t.err = err
	close(t.done)
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx ends. Abandoning the wait does
// not cancel the task.
func (t *Task) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-t.done:
		return t.outcome, t.err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}
