// SPDX-License-Identifier: MIT
package analysis

import (
	"context"

	"bandfx/internal/pcm"
	"bandfx/internal/result"
)

// Task is an analysis running on its own goroutine.
type Task struct {
	done   chan struct{}
	cancel context.CancelFunc
	res    *result.Frequency
	err    error
}

// Start dispatches Analyze for buf. Cancelling ctx, or calling Cancel,
// abandons the work at the next stage or band boundary.
func (p *Pipeline) Start(ctx context.Context, buf *pcm.Buffer) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer close(t.done)
		defer cancel()
		t.res, t.err = p.Analyze(ctx, buf)
	}()
	return t
}

// Completed returns a Task that already holds res.
func Completed(res *result.Frequency) *Task {
	t := &Task{done: make(chan struct{}), cancel: func() {}, res: res}
	close(t.done)
	return t
}

// Done is closed once the task has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Cancel abandons the analysis.
func (t *Task) Cancel() { t.cancel() }

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) (*result.Frequency, error) {
	select {
	case <-t.done:
		return t.res, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
