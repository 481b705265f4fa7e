// Package valkey provides Valkey/Redis-backed adapters for the relay worker:
// the work queue, the keyed job record store and the per-job log streams.
package valkey

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/buildrelay/relay-worker/internal/core"
	"github.com/buildrelay/relay-worker/internal/domain/model"
)

// QueueKey is the FIFO list holding JSON-encoded jobs awaiting a worker.
const QueueKey = "queued_jobs"

// JobQueue is the durable FIFO work queue.
type JobQueue struct {
	client redis.UniversalClient
	key    string
}

var _ core.JobQueue = (*JobQueue)(nil)

// NewJobQueue creates a queue over the default key.
func NewJobQueue(client redis.UniversalClient) *JobQueue {
	return &JobQueue{client: client, key: QueueKey}
}

// NewJobQueueWithKey creates a queue over a custom list key.
func NewJobQueueWithKey(client redis.UniversalClient, key string) *JobQueue {
	return &JobQueue{client: client, key: key}
}

// Dequeue blocks on the head of the queue until an item arrives or ctx is
// cancelled.
func (q *JobQueue) Dequeue(ctx context.Context) ([]byte, error) {
	res, err := q.client.BLPop(ctx, 0, q.key).Result()
	if err != nil {
		return nil, fmt.Errorf("blpop %s: %w", q.key, err)
	}
	// BLPOP replies [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("blpop %s: unexpected reply length %d", q.key, len(res))
	}
	return []byte(res[1]), nil
}

// Enqueue appends a JSON-encoded job to the tail of the queue.
func (q *JobQueue) Enqueue(ctx context.Context, job *model.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	if err := q.client.RPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", q.key, err)
	}
	return nil
}
