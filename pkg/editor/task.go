package editor

import (
	"context"
	"sync"

	"pageflow/pkg/document"
)

// TaskFunc does background work on a snapshot of the document.
type TaskFunc func(ctx context.Context, snapshot *document.Document) (any, error)

// Task is background work (export, import) running on a deep copy of the
// document, so editing goes on meanwhile. Tasks are not retried.
type Task struct {
	Name string

	done   chan struct{}
	once   sync.Once
	result any
	err    error
}

// Done is closed when the task finishes.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) (any, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result is valid once Done is closed.
func (t *Task) Result() (any, error) {
	<-t.done
	return t.result, t.err
}

// StartTask runs fn in its own goroutine on a clone of the document. On
// failure one error notice is raised; on success, one success notice.
func (e *Editor) StartTask(ctx context.Context, name string, fn TaskFunc) *Task {
	t := &Task{Name: name, done: make(chan struct{})}
	snapshot := e.doc.Clone()
	feed := e.notices
	log := e.log.With().Str("task", name).Logger()
	go func() {
		defer t.once.Do(func() { close(t.done) })
		log.Debug().Msg("task started")
		t.result, t.err = fn(ctx, snapshot)
		if t.err != nil {
			feed.Error(name+" failed", t.err)
			return
		}
		feed.Success(name + " finished")
	}()
	return t
}
