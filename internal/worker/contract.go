package worker

import (
	"context"
	"time"

	"github.com/kailas-cloud/cmsdex/internal/domain/day"
	"github.com/kailas-cloud/cmsdex/internal/domain/record"
	"github.com/kailas-cloud/cmsdex/internal/domain/task"
)

// TaskSource hands out queued day tasks.
type TaskSource interface {
	Next(ctx context.Context, timeout time.Duration) (task.Task, error)
	Depth(ctx context.Context) (int64, error)
}

// Fetcher reads one day of records from the CMS.
type Fetcher interface {
	Fetch(ctx context.Context, d day.Day) ([]record.Record, error)
}

// RecordStore persists a day's records.
type RecordStore interface {
	UpsertDay(ctx context.Context, d day.Day, records []record.Record) error
}
