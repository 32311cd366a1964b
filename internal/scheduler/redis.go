package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRedisKey holds the delayed jobs sorted set. Leased jobs live in a
// second set under the same key with a ":processing" suffix.
const DefaultRedisKey = "booking:jobs"

// claimScript first returns expired leases in KEYS[2] to KEYS[1], then moves
// up to ARGV[2] members of KEYS[1] scored at or below ARGV[1] into KEYS[2]
// scored by the lease deadline ARGV[3]. Both steps run atomically, so two
// workers never hold the same lease.
var claimScript = redis.NewScript(`
local expired = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[1])
for _, m in ipairs(expired) do
  redis.call('ZREM', KEYS[2], m)
  redis.call('ZADD', KEYS[1], ARGV[1], m)
end
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, m in ipairs(due) do
  redis.call('ZREM', KEYS[1], m)
  redis.call('ZADD', KEYS[2], ARGV[3], m)
end
return due
`)

// RedisQueue is a delayed job queue on a Redis sorted set scored by run time
// in unix milliseconds.
type RedisQueue struct {
	client     *redis.Client
	key        string
	processing string
	log        *zap.Logger
}

func NewRedisQueue(client *redis.Client, key string, log *zap.Logger) *RedisQueue {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisQueue{
		client:     client,
		key:        key,
		processing: key + ":processing",
		log:        log.With(zap.String("queue", "redis"), zap.String("key", key)),
	}
}

func (q *RedisQueue) Schedule(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	err = q.client.ZAdd(ctx, q.key, redis.Z{
		Score:  float64(job.RunAt.UnixMilli()),
		Member: body,
	}).Err()
	if err != nil {
		q.log.Error("Failed to schedule job",
			zap.Error(err),
			zap.String("kind", job.Kind),
			zap.String("booking_id", job.BookingID.String()),
		)
		return fmt.Errorf("schedule job %s: %w", job.Kind, err)
	}

	return nil
}

func (q *RedisQueue) Claim(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 100
	}

	members, err := claimScript.Run(ctx, q.client, []string{q.key, q.processing},
		strconv.FormatInt(now.UnixMilli(), 10),
		limit,
		strconv.FormatInt(now.Add(lease).UnixMilli(), 10),
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("claim due jobs: %w", err)
	}

	jobs := make([]Job, 0, len(members))
	for _, m := range members {
		var job Job
		if err := json.Unmarshal([]byte(m), &job); err != nil {
			q.log.Error("Dropping undecodable job", zap.Error(err), zap.String("member", m))
			q.client.ZRem(ctx, q.processing, m)
			continue
		}
		job.lease = m
		jobs = append(jobs, job)
	}

	return jobs, nil
}

// Ack removes a claimed job from the processing set.
func (q *RedisQueue) Ack(ctx context.Context, job Job) error {
	if job.lease == "" {
		return fmt.Errorf("ack job %s: not claimed", job.ID)
	}
	if err := q.client.ZRem(ctx, q.processing, job.lease).Err(); err != nil {
		return fmt.Errorf("ack job %s: %w", job.ID, err)
	}
	return nil
}

// Len reports the number of queued jobs, leased ones excluded.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.key).Result()
}

// InFlight reports the number of claimed jobs that have not been acked.
func (q *RedisQueue) InFlight(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.processing).Result()
}
