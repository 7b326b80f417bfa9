package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shopcheck/backend/pkg/logger"
)

// taskTimeout bounds one background run so a stalled dependency cannot pin a
// worker goroutine forever.
const taskTimeout = 5 * time.Minute

type task struct {
	name string
	fn   func(ctx context.Context)
}

// Worker executes verification runs detached from the HTTP request that
// triggered them. Completion is observable only through the audit store.
type Worker struct {
	tasks chan task
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewWorker(queueSize, concurrency int) *Worker {
	if queueSize <= 0 {
		queueSize = 64
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	w := &Worker{tasks: make(chan task, queueSize)}
	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.loop()
	}

	logger.Info("Background worker started",
		zap.Int("queue_size", queueSize),
		zap.Int("concurrency", concurrency),
	)

	return w
}

// Submit queues a task without blocking. It returns false when the queue is
// full or the worker is stopping; callers treat that as the task's failure.
func (w *Worker) Submit(name string, fn func(ctx context.Context)) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}

	select {
	case w.tasks <- task{name: name, fn: fn}:
		return true
	default:
		logger.Warn("Worker queue full, task dropped", zap.String("task", name))
		return false
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for t := range w.tasks {
		w.run(t)
	}
}

func (w *Worker) run(t task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Background task panicked",
				zap.String("task", t.name),
				zap.Any("panic", r),
			)
		}
	}()

	// Deliberately not derived from the request context: the HTTP response
	// has already been sent by the time this runs.
	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()

	t.fn(ctx)
}

// Stop drains queued tasks and waits for in-flight ones, up to the context
// deadline.
func (w *Worker) Stop(ctx context.Context) {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.tasks)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Background worker stopped")
	case <-ctx.Done():
		logger.Warn("Background worker stop timed out")
	}
}
