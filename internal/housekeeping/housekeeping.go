// Package housekeeping periodically removes expired auth records.
package housekeeping

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Task deletes expired rows and reports how many were removed.
type Task struct {
	Name  string
	Purge func(ctx context.Context) (int64, error)
}

// Worker runs tasks on a fixed interval until stopped.
type Worker struct {
	tasks    []Task
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
	onPurge  func(name string, n int64)

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a worker. A non-positive interval defaults to one hour.
// onPurge, if set, receives the row count of each successful task.
func New(log *zap.Logger, interval time.Duration, onPurge func(string, int64), tasks ...Task) *Worker {
	if interval <= 0 {
		interval = time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{
		tasks:    tasks,
		log:      log,
		interval: interval,
		timeout:  time.Minute,
		onPurge:  onPurge,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the loop in the background. The first pass runs immediately.
func (w *Worker) Start() {
	go w.run()
	w.log.Info("housekeeping started", zap.Duration("interval", w.interval))
}

// Stop signals the loop and waits for an in-progress pass to finish.
func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.doneCh
	w.log.Info("housekeeping stopped")
}

func (w *Worker) run() {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce(context.Background())
	for {
		select {
		case <-ticker.C:
			w.RunOnce(context.Background())
		case <-w.stopCh:
			return
		}
	}
}

// RunOnce runs every task once. A failing task does not stop the others.
func (w *Worker) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	for _, t := range w.tasks {
		n, err := t.Purge(ctx)
		if err != nil {
			w.log.Error("housekeeping task failed", zap.String("task", t.Name), zap.Error(err))
			continue
		}
		if n > 0 {
			w.log.Info("housekeeping purged", zap.String("task", t.Name), zap.Int64("rows", n))
		}
		if w.onPurge != nil {
			w.onPurge(t.Name, n)
		}
	}
}
