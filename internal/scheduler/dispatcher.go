package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrPermanent marks a handler failure that must not be retried.
var ErrPermanent = errors.New("permanent job failure")

// ErrUnsettled marks a failed job whose retry could not be queued. The worker
// leaves such a job leased so it is delivered again when the lease expires.
var ErrUnsettled = errors.New("job retry not scheduled")

// Permanent wraps err so the dispatcher drops the job instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Dispatcher routes claimed jobs to their handlers. A failed job is put back
// on the queue with a backoff delay until its retries are exhausted.
type Dispatcher struct {
	queue   Scheduler
	backoff Backoff
	now     func() time.Time
	log     *zap.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewDispatcher(queue Scheduler, backoff Backoff, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		queue:    queue,
		backoff:  backoff,
		now:      time.Now,
		log:      log.With(zap.String("worker", "dispatcher")),
		handlers: make(map[string]Handler),
	}
}

func (d *Dispatcher) Handle(kind string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = h
}

// Dispatch runs one job. The returned error is the handler error, after the
// retry has been scheduled. The retry is queued even when ctx is already
// cancelled, as happens to jobs interrupted by shutdown.
func (d *Dispatcher) Dispatch(ctx context.Context, job Job) error {
	d.mu.RLock()
	h, ok := d.handlers[job.Kind]
	d.mu.RUnlock()

	if !ok {
		d.log.Error("No handler for job kind, dropping",
			zap.String("kind", job.Kind),
			zap.String("job_id", job.ID.String()),
		)
		return fmt.Errorf("no handler for job kind %q", job.Kind)
	}

	err := h(ctx, job)
	if err == nil {
		d.log.Debug("Job done",
			zap.String("kind", job.Kind),
			zap.String("booking_id", job.BookingID.String()),
			zap.Int("attempt", job.Attempt),
		)
		return nil
	}

	fields := []zap.Field{
		zap.Error(err),
		zap.String("kind", job.Kind),
		zap.String("job_id", job.ID.String()),
		zap.String("booking_id", job.BookingID.String()),
		zap.Int("attempt", job.Attempt),
	}

	if errors.Is(err, ErrPermanent) || d.backoff.Exhausted(job.Attempt) {
		d.log.Error("Job failed, giving up", fields...)
		return err
	}

	retry := job
	retry.Attempt++
	delay := d.backoff.Delay(retry.Attempt)
	retry.RunAt = d.now().Add(delay)

	if schedErr := d.queue.Schedule(context.WithoutCancel(ctx), retry); schedErr != nil {
		d.log.Error("Job failed and retry could not be scheduled", append(fields, zap.NamedError("schedule_error", schedErr))...)
		return fmt.Errorf("%w: %w", ErrUnsettled, err)
	}

	d.log.Warn("Job failed, retry scheduled", append(fields, zap.Duration("delay", delay))...)
	return err
}
