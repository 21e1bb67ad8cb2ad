package chi

import (
	"context"
	"iter"

	"github.com/kailas-cloud/cmsdex/internal/domain/day"
	"github.com/kailas-cloud/cmsdex/internal/domain/record"
	"github.com/kailas-cloud/cmsdex/internal/export"
	healthuc "github.com/kailas-cloud/cmsdex/internal/usecase/health"
)

// Ingestor schedules per-day ingestion.
type Ingestor interface {
	Schedule(ctx context.Context, start day.Day, end *day.Day) ([]day.Day, error)
}

// Searcher runs keyword searches.
type Searcher interface {
	Search(ctx context.Context, keyword string) ([]record.Record, error)
	Stream(ctx context.Context, keyword string) iter.Seq2[record.Record, error]
}

// Exporter builds spreadsheet artifacts.
type Exporter interface {
	Build(ctx context.Context, keyword string, records iter.Seq2[record.Record, error]) (*export.Artifact, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
