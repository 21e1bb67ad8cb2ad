// Package ingest turns a date range into per-day ingestion tasks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cmsdex/internal/domain"
	"github.com/kailas-cloud/cmsdex/internal/domain/day"
	"github.com/kailas-cloud/cmsdex/internal/domain/task"
	"github.com/kailas-cloud/cmsdex/internal/metrics"
)

// Service dispatches one task per day. It keeps no deduplication state:
// re-dispatching a day is safe because the worker upserts by record ID.
type Service struct {
	queue   Submitter
	logger  *zap.Logger
	maxDays int
	now     func() time.Time
}

// New creates an ingestion service. maxDays <= 0 disables the range guard.
func New(queue Submitter, logger *zap.Logger, maxDays int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{queue: queue, logger: logger, maxDays: maxDays, now: time.Now}
}

// Schedule expands [start, end] and dispatches every day of it.
// A nil end schedules start alone.
func (s *Service) Schedule(ctx context.Context, start day.Day, end *day.Day) ([]day.Day, error) {
	days, err := day.Expand(start, end, s.maxDays)
	if err != nil {
		return nil, err
	}
	return s.Dispatch(ctx, days)
}

// Dispatch submits one task per day and echoes the days back.
//
// Every day is attempted even after a rejection. If any submission fails the
// call returns a *domain.DispatchError listing the accepted and the rejected
// days. Accepted tasks stay queued; nothing is compensated.
func (s *Service) Dispatch(ctx context.Context, days []day.Day) ([]day.Day, error) {
	var (
		submitted []string
		failed    []string
		causes    []error
	)

	for _, d := range days {
		t := task.New(d, s.now())
		err := s.queue.Submit(ctx, t)
		metrics.IngestTasksSubmitted.WithLabelValues(metrics.StatusLabel(err)).Inc()
		if err != nil {
			s.logger.Warn("Task submission rejected",
				zap.String("day", d.String()),
				zap.String("task_id", t.ID),
				zap.Error(err),
			)
			failed = append(failed, d.String())
			causes = append(causes, fmt.Errorf("%s: %w", d, err))
			continue
		}
		submitted = append(submitted, d.String())
	}

	if len(failed) > 0 {
		return nil, &domain.DispatchError{
			Submitted: submitted,
			Failed:    failed,
			Cause:     errors.Join(causes...),
		}
	}

	s.logger.Debug("Days dispatched", zap.Int("count", len(days)))
	return days, nil
}
