// Package scheduler runs deferred booking jobs. Delivery is at least once:
// a claimed job is leased, not removed, and comes back to the queue when its
// lease expires before it is acked. Handlers must be idempotent.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Job struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	BookingID uuid.UUID `json:"booking_id"`
	RunAt     time.Time `json:"run_at"`
	Attempt   int       `json:"attempt"`

	// lease identifies the claim that handed out this copy of the job.
	lease string
}

func NewJob(kind string, bookingID uuid.UUID, runAt time.Time) Job {
	return Job{
		ID:        uuid.New(),
		Kind:      kind,
		BookingID: bookingID,
		RunAt:     runAt,
	}
}

type Handler func(ctx context.Context, job Job) error

// Scheduler accepts a job to be run at job.RunAt.
type Scheduler interface {
	Schedule(ctx context.Context, job Job) error
}

// Queue is a Scheduler whose due jobs can be claimed. A claimed job is hidden
// from other claims until now+lease and is delivered again after that unless
// it has been acked.
type Queue interface {
	Scheduler
	Claim(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]Job, error)
	Ack(ctx context.Context, job Job) error
}
