package jobs

import (
	"context"
	"time"

	"github.com/cloo-solutions/gistify/internal/logger"
)

// JobProcessor defines the interface for processing jobs
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker runs a JobProcessor on a fixed interval until stopped
type Worker struct {
	name         string
	processor    JobProcessor
	pollInterval time.Duration
	runOnStart   bool
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// NewWorker creates a new Worker instance
func NewWorker(name string, processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		name:         name,
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// RunOnStart makes the worker process once before the first tick.
func (w *Worker) RunOnStart() *Worker {
	w.runOnStart = true
	return w
}

// Start blocks running the polling loop
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log := logger.FromContext(ctx).With("worker", w.name)
	log.Info("worker started", "interval", w.pollInterval)

	if w.runOnStart {
		w.process(ctx, log)
	}
	for {
		select {
		case <-ctx.Done():
			log.Info("worker stopped", "reason", "context cancelled")
			return
		case <-w.stopChan:
			log.Info("worker stopped", "reason", "stop signal")
			return
		case <-ticker.C:
			w.process(ctx, log)
		}
	}
}

func (w *Worker) process(ctx context.Context, log logger.Logger) {
	if err := w.processor.ProcessJobs(ctx); err != nil {
		log.Error("job run failed", "error", err)
	}
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
}
