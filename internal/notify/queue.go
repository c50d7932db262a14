// Package notify fans notifications out to group members off the request path.
package notify

import (
	"context"       // Context for blocking calls
	"encoding/json" // JSON encoding/decoding
	"errors"        // Sentinel errors
	"fmt"           // Error formatting
	"time"          // Time handling

	"group_fund/internal/domain" // Importing domain models

	"github.com/redis/go-redis/v9" // Redis client
)

// ErrEmpty is returned by Dequeue when nothing arrived within its wait.
var ErrEmpty = errors.New("notification queue empty")

// Target says who a job is addressed to.
type Target string

const (
	TargetGroup Target = "group"
	TargetUser  Target = "user"
)

// Job is one pending notification.
type Job struct {
	Target     Target                     `json:"target"`
	GroupID    uint                       `json:"group_id,omitempty"`
	UserID     uint                       `json:"user_id,omitempty"`
	Message    domain.NotificationMessage `json:"message"`
	EnqueuedAt time.Time                  `json:"enqueued_at"`
}

// Queue carries jobs from producers to the dispatcher.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	// Dequeue waits up to its configured timeout and returns ErrEmpty when idle.
	Dequeue(ctx context.Context) (Job, error)
}

// RedisQueue is a list: producers LPUSH, the dispatcher BRPOPs.
type RedisQueue struct {
	rdb  redis.Cmdable
	key  string
	wait time.Duration
}

func NewRedisQueue(rdb redis.Cmdable, key string, wait time.Duration) *RedisQueue {
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &RedisQueue{rdb: rdb, key: key, wait: wait}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	return q.rdb.LPush(ctx, q.key, b).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	var job Job
	res, err := q.rdb.BRPop(ctx, q.wait, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return job, ErrEmpty
	}
	if err != nil {
		return job, err
	}
	// BRPOP answers [key, value].
	if len(res) != 2 {
		return job, fmt.Errorf("unexpected BRPOP reply of %d elements", len(res))
	}
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return job, fmt.Errorf("decode job: %w", err)
	}
	return job, nil
}

// MemoryQueue is a buffered channel queue for single-process runs and tests.
type MemoryQueue struct {
	ch   chan Job
	wait time.Duration
}

func NewMemoryQueue(size int, wait time.Duration) *MemoryQueue {
	if size <= 0 {
		size = 256
	}
	if wait <= 0 {
		wait = time.Second
	}
	return &MemoryQueue{ch: make(chan Job, size), wait: wait}
}

// Enqueue never blocks: a full queue rejects the job.
func (q *MemoryQueue) Enqueue(_ context.Context, job Job) error {
	select {
	case q.ch <- job:
		return nil
	default:
		return errors.New("notification queue full")
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	t := time.NewTimer(q.wait)
	defer t.Stop()
	select {
	case job := <-q.ch:
		return job, nil
	case <-t.C:
		return Job{}, ErrEmpty
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Len is the number of queued jobs.
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

// QueueNotifier enqueues notifications instead of delivering them inline.
type QueueNotifier struct {
	queue Queue
	now   func() time.Time
}

func NewQueueNotifier(queue Queue) *QueueNotifier {
	return &QueueNotifier{queue: queue, now: time.Now}
}

func (n *QueueNotifier) NotifyGroup(ctx context.Context, groupID uint, msg domain.NotificationMessage) error {
	return n.queue.Enqueue(ctx, Job{Target: TargetGroup, GroupID: groupID, Message: msg, EnqueuedAt: n.now()})
}

func (n *QueueNotifier) NotifyUser(ctx context.Context, userID uint, msg domain.NotificationMessage) error {
	return n.queue.Enqueue(ctx, Job{Target: TargetUser, UserID: userID, Message: msg, EnqueuedAt: n.now()})
}
