package valkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/buildrelay/relay-worker/internal/core"
	"github.com/buildrelay/relay-worker/internal/domain/model"
)

// ErrNotFound is returned when no record exists for a job id.
var ErrNotFound = errors.New("job not found")

// ErrStatusConflict is returned when a transition's expected status no longer
// matches the stored one.
var ErrStatusConflict = errors.New("job status conflict")

const (
	jobKeyPrefix   = "job:"
	indexKeyPrefix = "jobs:"
)

// transitionScript performs the status compare-and-set plus index move in one
// atomic step. A job with no record yet is treated as queued, since jobs
// arrive through the queue before any record is written. Replies with the
// stored status when the expected one does not match.
var transitionScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'status')
if not current then
  current = 'queued'
end
if current ~= ARGV[1] then
  return current
end
redis.call('HSET', KEYS[1], 'status', ARGV[2], 'record', ARGV[3])
redis.call('SREM', KEYS[2], ARGV[4])
redis.call('SADD', KEYS[3], ARGV[4])
return 'OK'
`)

// JobStore keeps one record per job, keyed by job id with a status field,
// plus per-status index sets of ids. Nothing is ever removed by value
// equality: mutation of the in-memory job between transitions cannot strand
// stale entries.
type JobStore struct {
	client redis.UniversalClient
}

var _ core.JobStore = (*JobStore)(nil)

// NewJobStore creates a job record store.
func NewJobStore(client redis.UniversalClient) *JobStore {
	return &JobStore{client: client}
}

// Transition persists job and atomically moves it from status `from` to
// job.Status. The status machine guard runs first, so illegal edges never
// reach the store.
func (s *JobStore) Transition(ctx context.Context, job *model.Job, from model.JobStatus) error {
	if !from.CanTransitionTo(job.Status) {
		return fmt.Errorf("illegal transition %s -> %s for job %s", from, job.Status, job.ID)
	}

	record, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}

	keys := []string{
		jobKeyPrefix + job.ID,
		indexKeyPrefix + from.String(),
		indexKeyPrefix + job.Status.String(),
	}
	res, err := transitionScript.Run(ctx, s.client, keys,
		from.String(), job.Status.String(), record, job.ID).Text()
	if err != nil {
		return fmt.Errorf("transition job %s: %w", job.ID, err)
	}
	if res != "OK" {
		return fmt.Errorf("%w: job %s is %s, expected %s", ErrStatusConflict, job.ID, res, from)
	}
	return nil
}

// Get loads the stored record for a job id.
func (s *JobStore) Get(ctx context.Context, id string) (*model.Job, error) {
	record, err := s.client.HGet(ctx, jobKeyPrefix+id, "record").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("hget job %s: %w", id, err)
	}

	var job model.Job
	if err := json.Unmarshal([]byte(record), &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

// Counts returns the current size of each status index.
func (s *JobStore) Counts(ctx context.Context) (map[model.JobStatus]int64, error) {
	statuses := []model.JobStatus{
		model.JobStatusRunning,
		model.JobStatusComplete,
		model.JobStatusFailed,
	}
	counts := make(map[model.JobStatus]int64, len(statuses))
	for _, status := range statuses {
		n, err := s.client.SCard(ctx, indexKeyPrefix+status.String()).Result()
		if err != nil {
			return nil, fmt.Errorf("scard %s: %w", status, err)
		}
		counts[status] = n
	}
	return counts, nil
}

// IDsByStatus lists the job ids currently in a status index.
func (s *JobStore) IDsByStatus(ctx context.Context, status model.JobStatus) ([]string, error) {
	ids, err := s.client.SMembers(ctx, indexKeyPrefix+status.String()).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", status, err)
	}
	return ids, nil
}
