package ingest

import (
	"context"

	"github.com/kailas-cloud/cmsdex/internal/domain/task"
)

// Submitter hands a task to the asynchronous execution substrate.
// It returns once the substrate accepted the task, never once it completed.
type Submitter interface {
	Submit(ctx context.Context, t task.Task) error
}
