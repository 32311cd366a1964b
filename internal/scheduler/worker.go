package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type WorkerConfig struct {
	// PollInterval is the delay between two claims of due jobs.
	PollInterval time.Duration
	// BatchSize caps the number of jobs claimed per poll.
	BatchSize int
	// Lease is how long a claimed job stays hidden from other claims. A job
	// not acked by then is delivered again.
	Lease time.Duration
}

func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval: time.Second,
		BatchSize:    100,
		Lease:        5 * time.Minute,
	}
}

// PeriodicTask runs on its own ticker for as long as the worker runs.
type PeriodicTask struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Worker drains due jobs from a Queue through a Dispatcher and runs the
// registered periodic tasks.
type Worker struct {
	queue      Queue
	dispatcher *Dispatcher
	config     WorkerConfig
	tasks      []PeriodicTask
	now        func() time.Time
	log        *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewWorker(queue Queue, dispatcher *Dispatcher, config WorkerConfig, log *zap.Logger) *Worker {
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.Lease <= 0 {
		config.Lease = 5 * time.Minute
	}
	return &Worker{
		queue:      queue,
		dispatcher: dispatcher,
		config:     config,
		now:        time.Now,
		log:        log.With(zap.String("worker", "scheduler")),
	}
}

// Every registers a periodic task. Must be called before Start.
func (w *Worker) Every(name string, interval time.Duration, run func(ctx context.Context) error) {
	if interval <= 0 {
		interval = time.Minute
	}
	w.tasks = append(w.tasks, PeriodicTask{Name: name, Interval: interval, Run: run})
}

func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("scheduler worker already running")
	}
	w.running = true

	ctx, w.cancel = context.WithCancel(ctx)

	w.log.Info("Starting scheduler worker",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("periodic_tasks", len(w.tasks)),
	)

	w.wg.Add(1)
	go w.loop(ctx, w.config.PollInterval, w.poll)

	for _, task := range w.tasks {
		w.wg.Add(1)
		go w.loop(ctx, task.Interval, func(ctx context.Context) {
			if err := task.Run(ctx); err != nil {
				w.log.Error("Periodic task failed", zap.String("task", task.Name), zap.Error(err))
			}
		})
	}

	return nil
}

func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.cancel()
	w.mu.Unlock()

	w.wg.Wait()
	w.log.Info("Scheduler worker stopped")
}

func (w *Worker) loop(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) {
	defer w.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// run immediately on start
	fn(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// poll claims and dispatches every job that is due, batch by batch. Once ctx
// is cancelled the rest of the batch is left leased for redelivery.
func (w *Worker) poll(ctx context.Context) {
	for ctx.Err() == nil {
		jobs, err := w.queue.Claim(ctx, w.now(), w.config.Lease, w.config.BatchSize)
		if err != nil {
			w.log.Error("Failed to claim due jobs", zap.Error(err))
			return
		}

		for i, job := range jobs {
			if ctx.Err() != nil {
				w.log.Info("Stopping mid-batch, unstarted jobs stay leased", zap.Int("left", len(jobs)-i))
				return
			}
			w.run(ctx, job)
		}

		if len(jobs) < w.config.BatchSize {
			return
		}
	}
}

func (w *Worker) run(ctx context.Context, job Job) {
	// failures are logged and retried by the dispatcher
	if err := w.dispatcher.Dispatch(ctx, job); errors.Is(err, ErrUnsettled) {
		return
	}

	if err := w.queue.Ack(context.WithoutCancel(ctx), job); err != nil {
		w.log.Error("Failed to ack job",
			zap.Error(err),
			zap.String("kind", job.Kind),
			zap.String("job_id", job.ID.String()),
		)
	}
}
