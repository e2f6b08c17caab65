package async

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/challan-processor/internal/async"
	"github.com/joseph-ayodele/challan-processor/internal/common"
	"github.com/joseph-ayodele/challan-processor/internal/entity"
)

// FileProcessor is the work each job runs. *core.Processor implements it.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string) (*entity.ExtractionResult, error)
}

// Stats counts finished jobs.
type Stats struct {
	Processed int64
	Failed    int64
}

// ProcessorQueue feeds jobs to a fixed pool of workers.
type ProcessorQueue struct {
	proc    FileProcessor
	logger  *zap.Logger
	workers int
	timeout time.Duration
	onDone  func(async.Job, *entity.ExtractionResult, error)

	ch   chan async.Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool

	processed atomic.Int64
	failed    atomic.Int64
}

var _ async.Queue = (*ProcessorQueue)(nil)

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan async.Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithOnDone registers a callback run by the worker after each job.
func WithOnDone(fn func(async.Job, *entity.ExtractionResult, error)) Option {
	return func(q *ProcessorQueue) {
		q.onDone = fn
	}
}

func NewProcessorQueue(proc FileProcessor, logger *zap.Logger, opts ...Option) *ProcessorQueue {
	q := &ProcessorQueue{
		proc:    proc,
		logger:  common.LoggerOrDefault(logger),
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan async.Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", zap.Int("worker_id", workerID))

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Debug("worker stopped", zap.Int("worker_id", workerID))
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job async.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	res, err := q.proc.ProcessFile(ctx, job.Path)
	if err != nil {
		q.failed.Add(1)
		q.logger.Error("processing failed",
			zap.Int("worker_id", workerID),
			zap.String("source_file", job.Path),
			zap.String("trace_id", job.TraceID),
			zap.Error(err),
		)
	} else {
		q.processed.Add(1)
		q.logger.Info("processed file successfully",
			zap.Int("worker_id", workerID),
			zap.String("source_file", job.Path),
			zap.Duration("queued_for", time.Since(job.SubmittedAt)),
		)
	}
	if q.onDone != nil {
		q.onDone(job, res, err)
	}
}

// Enqueue blocks while the queue is full, until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job async.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", zap.String("source_file", job.Path))
		return common.NewAppError("QUEUE_CLOSED", "queue is shutting down", common.ErrInvalidInput)
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queued file for processing", zap.String("source_file", job.Path))
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", zap.String("source_file", job.Path))
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats reports finished job counts.
func (q *ProcessorQueue) Stats() Stats {
	return Stats{Processed: q.processed.Load(), Failed: q.failed.Load()}
}

// Running reports whether the queue still accepts jobs.
func (q *ProcessorQueue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.closed
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
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
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
