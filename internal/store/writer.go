package store

import (
	"log/slog"
)

type writeJob struct {
	mut  *Mutation // nil marks a barrier used by Sync
	done chan error
}

// writer persists mutations queued by Editor.Apply on a single goroutine,
// in the order they were committed to memory.
type writer struct {
	persist func(Mutation) error
	jobs    chan writeJob
	stopped chan struct{}
	logger  *slog.Logger
}

func newWriter(persist func(Mutation) error, queueSize int, logger *slog.Logger) *writer {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &writer{
		persist: persist,
		jobs:    make(chan writeJob, queueSize),
		stopped: make(chan struct{}),
		logger:  logger,
	}
}

// run processes jobs until the queue is closed.
func (w *writer) run() {
	defer close(w.stopped)
	for job := range w.jobs {
		var err error
		if job.mut != nil {
			err = w.persist(*job.mut)
			if err != nil {
				w.logger.Error("background preference write failed", "error", err)
			}
		}
		job.done <- err
	}
}

func (w *writer) enqueue(m *Mutation) <-chan error {
	done := make(chan error, 1)
	w.jobs <- writeJob{mut: m, done: done}
	return done
}

// stop closes the queue and waits for pending jobs to drain.
func (w *writer) stop() {
	close(w.jobs)
	<-w.stopped
}
