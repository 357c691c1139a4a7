package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/akulagin/mlservice/internal/apperr"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	pendingKey = "predictions:pending"
	jobPrefix  = "predictions:job:"

	// finished/failed jobs stay readable this long
	resultTTL = time.Hour

	dequeueBlock = time.Second
)

// RedisBroker keeps the pending queue in a list and per-job state in hashes.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(addr, password string) *RedisBroker {
	return &RedisBroker{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
	}
}

// NewRedisBrokerFromClient is handy for tests that run against miniredis.
func NewRedisBrokerFromClient(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Close() error { return b.client.Close() }

func (b *RedisBroker) Enqueue(ctx context.Context, model string, features []float64, userID int64) (string, error) {
	id := uuid.NewString()
	feats, err := json.Marshal(features)
	if err != nil {
		return "", err
	}
	if err := b.client.HSet(ctx, jobPrefix+id, map[string]any{
		"model":    model,
		"user_id":  strconv.FormatInt(userID, 10),
		"features": string(feats),
		"state":    string(StateQueued),
	}).Err(); err != nil {
		return "", fmt.Errorf("enqueue hset: %w", err)
	}
	if err := b.client.LPush(ctx, pendingKey, id).Err(); err != nil {
		return "", fmt.Errorf("enqueue lpush: %w", err)
	}
	return id, nil
}

func (b *RedisBroker) Poll(ctx context.Context, jobID string) (Status, error) {
	m, err := b.client.HGetAll(ctx, jobPrefix+jobID).Result()
	if err != nil {
		return Status{}, err
	}
	if len(m) == 0 {
		return Status{}, fmt.Errorf("job %q: %w", jobID, apperr.ErrNotFound)
	}
	return Status{
		State:  State(m["state"]),
		Result: m["result"],
		Error:  m["error"],
	}, nil
}

// Dequeue blocks briefly for the next pending job. ok is false when the
// wait timed out; callers loop on it so ctx cancellation stays responsive.
func (b *RedisBroker) Dequeue(ctx context.Context) (Job, bool, error) {
	vals, err := b.client.BRPop(ctx, dequeueBlock, pendingKey).Result()
	if err == redis.Nil {
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, err
	}
	id := vals[1]
	m, err := b.client.HGetAll(ctx, jobPrefix+id).Result()
	if err != nil {
		return Job{}, false, err
	}
	if len(m) == 0 {
		// state hash expired or never written; drop the id
		return Job{}, false, nil
	}
	userID, err := strconv.ParseInt(m["user_id"], 10, 64)
	if err != nil {
		return Job{}, false, fmt.Errorf("job %s: bad user_id: %w", id, err)
	}
	var feats []float64
	if err := json.Unmarshal([]byte(m["features"]), &feats); err != nil {
		return Job{}, false, fmt.Errorf("job %s: bad features: %w", id, err)
	}
	return Job{ID: id, Model: m["model"], UserID: userID, Features: feats}, true, nil
}

func (b *RedisBroker) MarkStarted(ctx context.Context, jobID string) error {
	return b.client.HSet(ctx, jobPrefix+jobID, "state", string(StateStarted)).Err()
}

func (b *RedisBroker) Complete(ctx context.Context, jobID, result string) error {
	key := jobPrefix + jobID
	if err := b.client.HSet(ctx, key, "state", string(StateFinished), "result", result).Err(); err != nil {
		return err
	}
	return b.client.Expire(ctx, key, resultTTL).Err()
}

func (b *RedisBroker) Fail(ctx context.Context, jobID, reason string) error {
	key := jobPrefix + jobID
	if err := b.client.HSet(ctx, key, "state", string(StateFailed), "error", reason).Err(); err != nil {
		return err
	}
	return b.client.Expire(ctx, key, resultTTL).Err()
}

func (b *RedisBroker) Depth(ctx context.Context) (int64, error) {
	return b.client.LLen(ctx, pendingKey).Result()
}
