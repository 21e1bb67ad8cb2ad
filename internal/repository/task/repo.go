// Package task persists ingestion tasks on a Redis list used as a FIFO queue.
package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/cmsdex/internal/db"
	"github.com/kailas-cloud/cmsdex/internal/domain/task"
)

// DefaultQueueKey is the list holding pending day tasks.
const DefaultQueueKey = "cms:ingest:tasks"

// ErrNoTask is returned by Next when nothing arrived before the timeout.
var ErrNoTask = errors.New("no task available")

// store is the consumer interface for the task queue (ISP).
type store interface {
	Push(ctx context.Context, key string, payloads ...[]byte) (int64, error)
	Pop(ctx context.Context, key string, timeout time.Duration) ([]byte, error)
	Len(ctx context.Context, key string) (int64, error)
}

// Repo is a task queue backed by a single Redis list.
type Repo struct {
	store store
	key   string
}

// New creates a task queue on key. An empty key selects DefaultQueueKey.
func New(s store, key string) *Repo {
	if key == "" {
		key = DefaultQueueKey
	}
	return &Repo{store: s, key: key}
}

// Submit enqueues t. The call returns once the broker accepted the task.
func (r *Repo) Submit(ctx context.Context, t task.Task) error {
	payload, err := t.Encode()
	if err != nil {
		return err
	}
	if _, err := r.store.Push(ctx, r.key, payload); err != nil {
		return fmt.Errorf("submit task %s (%s): %w", t.ID, t.Day, err)
	}
	return nil
}

// Next blocks up to timeout for the next task.
// Undecodable payloads are returned as errors and are not requeued.
func (r *Repo) Next(ctx context.Context, timeout time.Duration) (task.Task, error) {
	payload, err := r.store.Pop(ctx, r.key, timeout)
	if err != nil {
		if errors.Is(err, db.ErrQueueEmpty) {
			return task.Task{}, ErrNoTask
		}
		return task.Task{}, fmt.Errorf("next task: %w", err)
	}
	return task.Decode(payload)
}

// Depth returns the number of pending tasks.
func (r *Repo) Depth(ctx context.Context) (int64, error) {
	n, err := r.store.Len(ctx, r.key)
	if err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	return n, nil
}
