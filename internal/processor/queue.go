package processor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	timebackoff "storefront.chapter42.de/mailer/internal/time_backoff"
)

const DefaultConcurrency int = 3

var (
	ErrQueueStopped = errors.New("job queue is stopped")
	ErrNilFunc      = errors.New("job has no work function")
	ErrJobPanic     = errors.New("job panicked")
)

// Status is a point-in-time snapshot of the queue.
type Status struct {
	QueueLength  int  `json:"queue_length"`
	ActiveCount  int  `json:"active_count"`
	IsProcessing bool `json:"is_processing"`
	Delayed      int  `json:"delayed"`
}

// Queue runs submitted jobs in FIFO order with at most Concurrency of them
// active at once. Failed jobs go back to the tail after their retry delay.
type Queue struct {
	mu      sync.Mutex
	pending []*Job
	delayed map[*Job]*time.Timer
	active  int
	stopped bool
	idle    chan struct{}

	concurrency int

	ctx     context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup

	logger *zap.Logger
}

type Option func(*Queue)

func WithConcurrency(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.concurrency = n
		}
	}
}

func New(logger *zap.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		delayed:     make(map[*Job]*time.Timer),
		concurrency: DefaultConcurrency,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Submit enqueues fn and returns a handle that settles when the job succeeds
// or runs out of retries. It never blocks on the job itself.
func (q *Queue) Submit(fn Func, name string, args []any, opts Options) *Handle {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	if opts.Backoff == nil {
		opts.Backoff = timebackoff.Fixed{}
	}

	job := &Job{
		ID:         uuid.NewString(),
		Name:       name,
		Args:       args,
		MaxRetries: opts.MaxRetries,
		RetryDelay: opts.RetryDelay,
		backoff:    opts.Backoff,
		fn:         fn,
	}
	job.handle = newHandle(job.ID)

	if fn == nil {
		job.handle.resolve(Result{Failed: true, Err: ErrNilFunc})
		return job.handle
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	job.CreatedAt = time.Now()
	if q.stopped {
		q.logger.Warn("Job abgelehnt, Queue ist gestoppt:", zap.String("job", name), zap.String("job_id", job.ID))
		job.handle.resolve(Result{Failed: true, Err: ErrQueueStopped})
		return job.handle
	}

	q.pending = append(q.pending, job)
	q.logger.Debug("job queued",
		zap.String("job", name),
		zap.String("job_id", job.ID),
		zap.Int("queue_length", len(q.pending)),
		zap.Int("active", q.active))

	q.scheduleLocked()
	return job.handle
}

func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	return Status{
		QueueLength:  len(q.pending),
		ActiveCount:  q.active,
		IsProcessing: q.active > 0,
		Delayed:      len(q.delayed),
	}
}

// Drain blocks until no job is pending, active or waiting for a retry.
func (q *Queue) Drain(ctx context.Context) error {
	for {
		q.mu.Lock()
		if q.isIdleLocked() {
			q.mu.Unlock()
			return nil
		}
		if q.idle == nil {
			q.idle = make(chan struct{})
		}
		idle := q.idle
		q.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop cancels running job bodies, drops scheduled retries and settles every
// unfinished handle with ErrQueueStopped. It waits for running bodies to return.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.cancel()

	abandoned := q.pending
	q.pending = nil
	for job, timer := range q.delayed {
		timer.Stop()
		abandoned = append(abandoned, job)
	}
	q.delayed = make(map[*Job]*time.Timer)
	q.notifyIdleLocked()
	q.mu.Unlock()

	for _, job := range abandoned {
		job.handle.resolve(Result{Failed: true, Err: ErrQueueStopped, Retries: job.Retries})
	}
	if len(abandoned) > 0 {
		q.logger.Warn("Queue gestoppt, offene Jobs verworfen:", zap.Int("count", len(abandoned)))
	}

	q.running.Wait()
}

func (q *Queue) scheduleLocked() {
	for q.active < q.concurrency && len(q.pending) > 0 {
		job := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]

		q.active++
		q.running.Add(1)
		go q.run(job)
	}
}

func (q *Queue) isIdleLocked() bool {
	return len(q.pending) == 0 && q.active == 0 && len(q.delayed) == 0
}

func (q *Queue) notifyIdleLocked() {
	if q.idle != nil && (q.isIdleLocked() || q.stopped) {
		close(q.idle)
		q.idle = nil
	}
}
