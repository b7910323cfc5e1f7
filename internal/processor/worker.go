package processor

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

func (q *Queue) run(job *Job) {
	defer q.running.Done()

	start := time.Now()
	value, err := q.execute(job)
	q.finish(job, value, err, time.Since(start))
}

// execute runs the job body. A panic is turned into an error so it follows
// the normal retry path.
func (q *Queue) execute(job *Job) (value any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrJobPanic, rec)
		}
	}()
	return job.fn(jobContext(q.ctx, job), job.Args...)
}

func (q *Queue) finish(job *Job, value any, err error, took time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.active--
	log := q.logger.With(
		zap.String("job", job.Name),
		zap.String("job_id", job.ID),
		zap.Int("retries", job.Retries),
		zap.Duration("took", took))

	switch {
	case err == nil:
		log.Info("Job erfolgreich abgeschlossen:")
		job.handle.resolve(Result{Value: value, Retries: job.Retries})

	case q.stopped:
		log.Warn("Job nach Stop fehlgeschlagen:", zap.Error(err))
		job.handle.resolve(Result{Failed: true, Err: err, Retries: job.Retries})

	case job.Retries < job.MaxRetries:
		job.Retries++
		delay := job.backoff.Delay(job.RetryDelay, job.Retries)
		log.Warn("Job fehlgeschlagen, neuer Versuch geplant:",
			zap.Error(err),
			zap.Int("retry", job.Retries),
			zap.Int("max_retries", job.MaxRetries),
			zap.Duration("delay", delay))
		q.requeueLocked(job, delay)

	default:
		log.Error("Job endgültig fehlgeschlagen:", zap.Error(err), zap.Int("max_retries", job.MaxRetries))
		job.handle.resolve(Result{Failed: true, Err: err, Retries: job.Retries})
	}

	q.scheduleLocked()
	q.notifyIdleLocked()
}

// requeueLocked puts job back at the tail of the queue once delay has passed.
func (q *Queue) requeueLocked(job *Job, delay time.Duration) {
	if delay <= 0 {
		q.pending = append(q.pending, job)
		return
	}

	q.delayed[job] = time.AfterFunc(delay, func() {
		q.mu.Lock()
		defer q.mu.Unlock()

		if _, ok := q.delayed[job]; !ok {
			// Stop got here first.
			return
		}
		delete(q.delayed, job)
		q.pending = append(q.pending, job)
		q.scheduleLocked()
	})
}
