package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWorker_DispatchesDueJobsAndRunsTasks(t *testing.T) {
	queue := NewMemoryQueue()
	dispatcher := NewDispatcher(queue, DefaultBackoff(), zap.NewNop())

	var handled, ticks atomic.Int32
	dispatcher.Handle("booking.test", func(context.Context, Job) error {
		handled.Add(1)
		return nil
	})

	ctx := context.Background()
	require.NoError(t, queue.Schedule(ctx, NewJob("booking.test", uuid.New(), time.Now().Add(-time.Second))))
	require.NoError(t, queue.Schedule(ctx, NewJob("booking.test", uuid.New(), time.Now().Add(time.Hour))))

	worker := NewWorker(queue, dispatcher, WorkerConfig{PollInterval: 10 * time.Millisecond, BatchSize: 10}, zap.NewNop())
	worker.Every("tick", 10*time.Millisecond, func(context.Context) error {
		ticks.Add(1)
		return nil
	})

	require.NoError(t, worker.Start(ctx))
	require.Error(t, worker.Start(ctx), "second start is rejected")

	assert.Eventually(t, func() bool {
		return handled.Load() == 1 && ticks.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	worker.Stop()
	worker.Stop()

	assert.Len(t, queue.Pending(), 1, "future job stays queued")
	assert.Zero(t, queue.InFlight(), "handled job is acked")
}

func TestWorker_ShutdownMidBatchKeepsUnstartedJobs(t *testing.T) {
	queue := NewMemoryQueue()
	dispatcher := NewDispatcher(queue, DefaultBackoff(), zap.NewNop())
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var handled atomic.Int32
	dispatcher.Handle("booking.expire_unpaid", func(context.Context, Job) error {
		// shutdown arrives while the first job runs
		if handled.Add(1) == 1 {
			cancel()
		}
		return nil
	})

	for i := range 3 {
		job := NewJob("booking.expire_unpaid", uuid.New(), base.Add(-time.Duration(i+1)*time.Second))
		require.NoError(t, queue.Schedule(context.Background(), job))
	}

	worker := NewWorker(queue, dispatcher, WorkerConfig{BatchSize: 10, Lease: time.Minute}, zap.NewNop())
	worker.now = func() time.Time { return base }

	worker.poll(ctx)
	assert.Equal(t, int32(1), handled.Load())
	assert.Equal(t, 2, queue.InFlight(), "unstarted jobs stay leased")
	assert.Empty(t, queue.Pending())

	// after restart the expired leases are claimed again
	worker.now = func() time.Time { return base.Add(2 * time.Minute) }
	worker.poll(context.Background())
	assert.Equal(t, int32(3), handled.Load())
	assert.Zero(t, queue.InFlight())
	assert.Empty(t, queue.Pending())
}

func TestWorker_UnsettledJobIsRedelivered(t *testing.T) {
	queue := &ctxQueue{MemoryQueue: NewMemoryQueue(), err: errors.New("redis down")}
	dispatcher := NewDispatcher(queue, DefaultBackoff(), zap.NewNop())
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	var handled atomic.Int32
	dispatcher.Handle("booking.payment_reminder", func(context.Context, Job) error {
		if handled.Add(1) == 1 {
			return errors.New("broker unavailable")
		}
		return nil
	})

	require.NoError(t, queue.MemoryQueue.Schedule(context.Background(), NewJob("booking.payment_reminder", uuid.New(), base)))

	worker := NewWorker(queue, dispatcher, WorkerConfig{BatchSize: 10, Lease: time.Minute}, zap.NewNop())
	worker.now = func() time.Time { return base }

	worker.poll(context.Background())
	assert.Equal(t, int32(1), handled.Load())
	assert.Equal(t, 1, queue.InFlight(), "job without a queued retry is not acked")

	worker.now = func() time.Time { return base.Add(2 * time.Minute) }
	worker.poll(context.Background())
	assert.Equal(t, int32(2), handled.Load())
	assert.Zero(t, queue.InFlight())
}
