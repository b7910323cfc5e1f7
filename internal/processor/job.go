package processor

import (
	"context"
	"sync"
	"time"

	timebackoff "storefront.chapter42.de/mailer/internal/time_backoff"
)

const (
	DefaultMaxRetries int           = 3
	DefaultRetryDelay time.Duration = 10 * time.Second
)

// Func is the body of a background job. A returned error (or a panic) counts
// as a failed run and is retried according to the job's Options.
type Func func(ctx context.Context, args ...any) (any, error)

// Options configures retries for a single job.
type Options struct {
	MaxRetries int
	RetryDelay time.Duration
	// Backoff derives the actual wait from RetryDelay, nil means fixed.
	Backoff timebackoff.Strategy
}

func DefaultOptions() Options {
	return Options{
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

// Result is the settled outcome of a job. Terminal failure is reported here,
// never as a panic or a separate error path.
type Result struct {
	Value   any   `json:"value,omitempty"`
	Failed  bool  `json:"failed"`
	Err     error `json:"-"`
	Retries int   `json:"retries"`
}

// Job is one unit of background work owned by the queue.
type Job struct {
	ID         string
	Name       string
	Args       []any
	CreatedAt  time.Time
	Retries    int
	MaxRetries int
	RetryDelay time.Duration

	backoff timebackoff.Strategy
	fn      Func
	handle  *Handle
}

// Handle is the caller's side of a submitted job. It is resolved exactly once.
type Handle struct {
	jobID  string
	once   sync.Once
	done   chan struct{}
	result Result
}

func newHandle(jobID string) *Handle {
	return &Handle{jobID: jobID, done: make(chan struct{})}
}

func (h *Handle) JobID() string {
	return h.jobID
}

// Done is closed once the result is available.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result blocks until the job has settled.
func (h *Handle) Result() Result {
	<-h.done
	return h.result
}

// Wait blocks until the job has settled or ctx is done.
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (h *Handle) resolve(r Result) bool {
	resolved := false
	h.once.Do(func() {
		h.result = r
		close(h.done)
		resolved = true
	})
	return resolved
}

type ctxKey int

const (
	retryCountKey ctxKey = iota
	jobIDKey
	jobNameKey
)

// RetryCount returns how many times the running job has already been retried.
func RetryCount(ctx context.Context) int {
	n, _ := ctx.Value(retryCountKey).(int)
	return n
}

func JobID(ctx context.Context) string {
	id, _ := ctx.Value(jobIDKey).(string)
	return id
}

func JobName(ctx context.Context) string {
	name, _ := ctx.Value(jobNameKey).(string)
	return name
}

func jobContext(parent context.Context, job *Job) context.Context {
	ctx := context.WithValue(parent, retryCountKey, job.Retries)
	ctx = context.WithValue(ctx, jobIDKey, job.ID)
	return context.WithValue(ctx, jobNameKey, job.Name)
}
