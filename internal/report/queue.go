package report

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrQueueClosed is returned when enqueueing after Shutdown
var ErrQueueClosed = errors.New("report queue is shut down")

// JobHandler renders one report. The context carries the render deadline.
type JobHandler func(ctx context.Context, reportID string) error

// WorkerQueue runs report jobs on a fixed pool of goroutines. A report ID
// already queued or rendering is not queued twice.
type WorkerQueue struct {
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan string
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool

	inflightMu sync.Mutex
	inflight   map[string]struct{}
}

type Option func(*WorkerQueue)

func WithWorkers(n int) Option {
	return func(q *WorkerQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *WorkerQueue) {
		if n > 0 {
			q.ch = make(chan string, n)
		}
	}
}

func WithRenderTimeout(d time.Duration) Option {
	return func(q *WorkerQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// NewWorkerQueue creates a queue. Jobs are buffered until Start is called.
func NewWorkerQueue(logger *slog.Logger, opts ...Option) *WorkerQueue {
	q := &WorkerQueue{
		logger:   logger,
		workers:  2,
		timeout:  time.Minute,
		ch:       make(chan string, 256),
		inflight: make(map[string]struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Start launches the workers. Only the first call has any effect.
func (q *WorkerQueue) Start(handler JobHandler) {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("report worker started", "worker_id", workerID)

				for id := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					err := handler(ctx, id)
					cancel()
					q.done(id)

					if err != nil {
						q.logger.Error("report job failed", "worker_id", workerID, "report_id", id, "error", err)
					} else {
						q.logger.Info("report job finished", "worker_id", workerID, "report_id", id)
					}
				}

				q.logger.Info("report worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue schedules a report for rendering. When the buffer is full it
// blocks until a slot frees up or ctx is done.
func (q *WorkerQueue) Enqueue(ctx context.Context, reportID string) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	q.inflightMu.Lock()
	if _, ok := q.inflight[reportID]; ok {
		q.inflightMu.Unlock()
		q.logger.Debug("report already queued", "report_id", reportID)
		return nil
	}
	q.inflight[reportID] = struct{}{}
	q.inflightMu.Unlock()

	select {
	case q.ch <- reportID:
		q.logger.Info("queued report for rendering", "report_id", reportID)
		return nil
	default:
	}

	q.logger.Warn("report queue full, applying backpressure", "report_id", reportID)
	select {
	case q.ch <- reportID:
		return nil
	case <-ctx.Done():
		q.done(reportID)
		return ctx.Err()
	}
}

func (q *WorkerQueue) done(reportID string) {
	q.inflightMu.Lock()
	delete(q.inflight, reportID)
	q.inflightMu.Unlock()
}

// Shutdown stops accepting jobs and waits for queued ones to drain or for
// ctx to end.
func (q *WorkerQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("report queue shutdown interrupted by context")
	case <-done:
		q.logger.Info("report queue drained, shutdown complete")
	}
}
