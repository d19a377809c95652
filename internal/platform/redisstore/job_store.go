package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/crewboard/crewboard-api/internal/queue"
)

// JobStore implements queue.Store on Redis. Per queue it keeps a waiting
// list, an active list, a delayed zset scored by ready time, and bounded
// completed/dead history lists; the job record itself is a hash at
// job:{id}.
//
// Claiming is a single LMOVE from the waiting to the active list, which is
// atomic on the server: two workers can never pop the same id. Promotion
// and reclaim rely on the same property through ZREM/LREM return counts:
// whoever removes the member owns the move.
type JobStore struct {
	client *redis.Client
}

var _ queue.Store = (*JobStore)(nil)

// NewJobStore creates a JobStore over an existing client.
func NewJobStore(client *redis.Client) *JobStore {
	return &JobStore{client: client}
}

// Enqueue records the job hash and pushes the id onto the waiting list, or
// into the delayed zset when the job carries a future schedule.
func (s *JobStore) Enqueue(ctx context.Context, job *queue.Job) error {
	id := job.ID.String()

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, jobKey(id), jobFields(job))
		if !job.ScheduledAt.IsZero() && job.ScheduledAt.After(time.Now().UTC()) {
			pipe.ZAdd(ctx, delayedKey(job.Queue), redis.Z{
				Score:  float64(job.ScheduledAt.UnixMilli()),
				Member: id,
			})
		} else {
			pipe.LPush(ctx, waitKey(job.Queue), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue job %s: %w", id, err)
	}
	return nil
}

// Claim atomically moves the oldest waiting id to the active list, bumps
// the attempt count and stamps the claim time.
func (s *JobStore) Claim(ctx context.Context, queueName string) (*queue.Job, error) {
	id, err := s.client.LMove(ctx, waitKey(queueName), activeKey(queueName), "RIGHT", "LEFT").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, queue.ErrNoJob
		}
		return nil, fmt.Errorf("claim from %s: %w", queueName, err)
	}

	now := time.Now().UTC()
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, jobKey(id), "attempts", 1)
		pipe.HSet(ctx, jobKey(id),
			"state", string(queue.StateActive),
			"claimed_at", now.Format(time.RFC3339Nano),
			"scheduled_at", "")
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mark job %s active: %w", id, err)
	}

	return s.GetJob(ctx, id)
}

// Complete records a successful terminal transition and appends the id to
// the bounded completed history.
func (s *JobStore) Complete(ctx context.Context, job *queue.Job, result string) error {
	id := job.ID.String()
	now := time.Now().UTC()

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, activeKey(job.Queue), 1, id)
		pipe.HSet(ctx, jobKey(id),
			"state", string(queue.StateCompleted),
			"result", result,
			"finished_at", now.Format(time.RFC3339Nano))
		pipe.LPush(ctx, completedKey(job.Queue), id)
		pipe.LTrim(ctx, completedKey(job.Queue), 0, historyLimit-1)
		pipe.Expire(ctx, jobKey(id), terminalTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("complete job %s: %w", id, err)
	}
	return nil
}

// Fail records a handler error. With a non-zero retryAt the job goes back
// to waiting through the delayed zset; otherwise it joins the bounded dead
// history.
func (s *JobStore) Fail(ctx context.Context, job *queue.Job, jobErr error, retryAt time.Time) error {
	id := job.ID.String()
	now := time.Now().UTC()
	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, activeKey(job.Queue), 1, id)
		if !retryAt.IsZero() {
			pipe.HSet(ctx, jobKey(id),
				"state", string(queue.StateWaiting),
				"last_error", msg,
				"scheduled_at", retryAt.Format(time.RFC3339Nano))
			pipe.ZAdd(ctx, delayedKey(job.Queue), redis.Z{
				Score:  float64(retryAt.UnixMilli()),
				Member: id,
			})
		} else {
			pipe.HSet(ctx, jobKey(id),
				"state", string(queue.StateDead),
				"last_error", msg,
				"finished_at", now.Format(time.RFC3339Nano))
			pipe.LPush(ctx, deadKey(job.Queue), id)
			pipe.LTrim(ctx, deadKey(job.Queue), 0, historyLimit-1)
			pipe.Expire(ctx, jobKey(id), terminalTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("fail job %s: %w", id, err)
	}
	return nil
}

// PromoteDelayed moves due members of the delayed zset onto the waiting
// list. The ZREM return count arbitrates between concurrent promoters:
// only the caller that removed the member pushes it.
func (s *JobStore) PromoteDelayed(ctx context.Context, queueName string, now time.Time) (int, error) {
	ids, err := s.client.ZRangeByScore(ctx, delayedKey(queueName), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: 128,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("scan delayed for %s: %w", queueName, err)
	}

	promoted := 0
	for _, id := range ids {
		removed, err := s.client.ZRem(ctx, delayedKey(queueName), id).Result()
		if err != nil {
			return promoted, fmt.Errorf("promote job %s: %w", id, err)
		}
		if removed == 0 {
			continue // another promoter won
		}
		if err := s.client.LPush(ctx, waitKey(queueName), id).Err(); err != nil {
			return promoted, fmt.Errorf("push promoted job %s: %w", id, err)
		}
		if err := s.client.HSet(ctx, jobKey(id), "scheduled_at", "").Err(); err != nil {
			return promoted, fmt.Errorf("clear schedule on job %s: %w", id, err)
		}
		promoted++
	}
	return promoted, nil
}

// ReclaimStalled returns active jobs whose claim exceeds olderThan to the
// waiting list. The original worker may still finish such a job; the
// duplicate execution that follows is an accepted cost of liveness.
func (s *JobStore) ReclaimStalled(ctx context.Context, queueName string, olderThan time.Duration) (int, error) {
	ids, err := s.client.LRange(ctx, activeKey(queueName), 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("scan active for %s: %w", queueName, err)
	}

	cutoff := time.Now().UTC().Add(-olderThan)
	reclaimed := 0
	for _, id := range ids {
		claimedAtRaw, err := s.client.HGet(ctx, jobKey(id), "claimed_at").Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Orphaned id with no record; drop it from the active list.
				s.client.LRem(ctx, activeKey(queueName), 1, id)
				continue
			}
			return reclaimed, fmt.Errorf("load claim time of job %s: %w", id, err)
		}

		// An empty or unreadable claim time means the claimer died between
		// the list move and the record stamp; such a job would otherwise
		// sit active forever, so it counts as stalled.
		claimedAt, parseErr := time.Parse(time.RFC3339Nano, claimedAtRaw)
		if parseErr == nil && claimedAt.After(cutoff) {
			continue
		}

		removed, err := s.client.LRem(ctx, activeKey(queueName), 1, id).Result()
		if err != nil {
			return reclaimed, fmt.Errorf("reclaim job %s: %w", id, err)
		}
		if removed == 0 {
			continue // finished or reclaimed concurrently
		}
		_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, jobKey(id),
				"state", string(queue.StateWaiting),
				"claimed_at", "")
			pipe.LPush(ctx, waitKey(queueName), id)
			return nil
		})
		if err != nil {
			return reclaimed, fmt.Errorf("requeue stalled job %s: %w", id, err)
		}
		reclaimed++
	}
	return reclaimed, nil
}

// GetJob loads a job record by id.
func (s *JobStore) GetJob(ctx context.Context, id string) (*queue.Job, error) {
	fields, err := s.client.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, queue.ErrJobNotFound
	}
	return jobFromFields(fields)
}

// Counts reports per-state totals for one queue. Waiting includes the
// delay-scheduled set; Failed is the dead history.
func (s *JobStore) Counts(ctx context.Context, queueName string) (queue.Counts, error) {
	var (
		waiting, active, completed, dead *redis.IntCmd
		delayed                          *redis.IntCmd
	)
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		waiting = pipe.LLen(ctx, waitKey(queueName))
		delayed = pipe.ZCard(ctx, delayedKey(queueName))
		active = pipe.LLen(ctx, activeKey(queueName))
		completed = pipe.LLen(ctx, completedKey(queueName))
		dead = pipe.LLen(ctx, deadKey(queueName))
		return nil
	})
	if err != nil {
		return queue.Counts{}, fmt.Errorf("count queue %s: %w", queueName, err)
	}

	return queue.Counts{
		Waiting:   waiting.Val() + delayed.Val(),
		Active:    active.Val(),
		Completed: completed.Val(),
		Failed:    dead.Val(),
	}, nil
}

func jobFields(job *queue.Job) map[string]any {
	fields := map[string]any{
		"id":           job.ID.String(),
		"queue":        job.Queue,
		"type":         job.Type,
		"payload":      string(job.Payload),
		"state":        string(job.State),
		"attempts":     job.Attempts,
		"max_attempts": job.MaxAttempts,
		"enqueued_at":  job.EnqueuedAt.Format(time.RFC3339Nano),
		"scheduled_at": "",
		"claimed_at":   "",
		"finished_at":  "",
		"last_error":   job.LastError,
		"result":       job.Result,
	}
	if !job.ScheduledAt.IsZero() {
		fields["scheduled_at"] = job.ScheduledAt.Format(time.RFC3339Nano)
	}
	if !job.ClaimedAt.IsZero() {
		fields["claimed_at"] = job.ClaimedAt.Format(time.RFC3339Nano)
	}
	if !job.FinishedAt.IsZero() {
		fields["finished_at"] = job.FinishedAt.Format(time.RFC3339Nano)
	}
	return fields
}

func jobFromFields(fields map[string]string) (*queue.Job, error) {
	id, err := uuid.Parse(fields["id"])
	if err != nil {
		return nil, fmt.Errorf("malformed job id %q: %w", fields["id"], err)
	}

	attempts, err := strconv.Atoi(fields["attempts"])
	if err != nil {
		return nil, fmt.Errorf("malformed attempts %q on job %s: %w", fields["attempts"], id, err)
	}
	maxAttempts, err := strconv.Atoi(fields["max_attempts"])
	if err != nil {
		return nil, fmt.Errorf("malformed max_attempts %q on job %s: %w", fields["max_attempts"], id, err)
	}

	job := &queue.Job{
		ID:          id,
		Queue:       fields["queue"],
		Type:        fields["type"],
		Payload:     json.RawMessage(fields["payload"]),
		State:       queue.State(fields["state"]),
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
		LastError:   fields["last_error"],
		Result:      fields["result"],
	}

	for name, dst := range map[string]*time.Time{
		"enqueued_at":  &job.EnqueuedAt,
		"scheduled_at": &job.ScheduledAt,
		"claimed_at":   &job.ClaimedAt,
		"finished_at":  &job.FinishedAt,
	} {
		if raw := fields[name]; raw != "" {
			if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
				*dst = t
			}
		}
	}

	return job, nil
}
