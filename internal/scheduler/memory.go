package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryLease struct {
	job   Job
	until time.Time
}

// MemoryQueue keeps jobs in process. Jobs are lost on restart.
type MemoryQueue struct {
	mu     sync.Mutex
	jobs   []Job
	leased map[string]memoryLease
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{leased: make(map[string]memoryLease)}
}

func (q *MemoryQueue) Schedule(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job.lease = ""
	q.insert(job)
	return nil
}

func (q *MemoryQueue) insert(job Job) {
	i := sort.Search(len(q.jobs), func(i int) bool { return q.jobs[i].RunAt.After(job.RunAt) })
	q.jobs = append(q.jobs, Job{})
	copy(q.jobs[i+1:], q.jobs[i:])
	q.jobs[i] = job
}

func (q *MemoryQueue) Claim(_ context.Context, now time.Time, lease time.Duration, limit int) ([]Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for token, l := range q.leased {
		if !l.until.After(now) {
			delete(q.leased, token)
			q.insert(l.job)
		}
	}

	n := sort.Search(len(q.jobs), func(i int) bool { return q.jobs[i].RunAt.After(now) })
	if limit > 0 && n > limit {
		n = limit
	}

	due := make([]Job, n)
	for i, job := range q.jobs[:n] {
		token := uuid.NewString()
		q.leased[token] = memoryLease{job: job, until: now.Add(lease)}
		job.lease = token
		due[i] = job
	}
	q.jobs = q.jobs[n:]
	return due, nil
}

// Ack drops the lease of a claimed job. Acking an expired or unknown lease
// is a no-op.
func (q *MemoryQueue) Ack(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.leased, job.lease)
	return nil
}

// Pending returns a copy of the queued jobs ordered by run time. Leased jobs
// are not included.
func (q *MemoryQueue) Pending() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Job(nil), q.jobs...)
}

// InFlight reports the number of claimed jobs that have not been acked.
func (q *MemoryQueue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.leased)
}
