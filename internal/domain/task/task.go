// Package task defines the per-day ingestion unit placed on the queue.
package task

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/cmsdex/internal/domain/day"
)

// Task asks a worker to fetch and store every CMS record of one day.
// It carries no cross-day state; re-running it is an idempotent upsert.
type Task struct {
	ID          string    `json:"id"`
	Day         day.Day   `json:"day"`
	SubmittedAt time.Time `json:"submitted_at"`
	Attempt     int       `json:"attempt,omitempty"`
}

// New creates a task for d with a fresh ID.
func New(d day.Day, now time.Time) Task {
	return Task{ID: uuid.NewString(), Day: d, SubmittedAt: now.UTC()}
}

// Encode serializes the task for the queue.
func (t Task) Encode() ([]byte, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode task: %w", err)
	}
	return b, nil
}

// Decode parses a queued task.
func Decode(data []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}
	if t.Day.IsZero() {
		return Task{}, fmt.Errorf("decode task: day is required")
	}
	return t, nil
}
