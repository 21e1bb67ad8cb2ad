package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// IndexChecker checks that the record search index exists.
type IndexChecker interface {
	IndexReady(ctx context.Context) error
}

// QueueInspector reports the ingestion backlog.
type QueueInspector interface {
	Depth(ctx context.Context) (int64, error)
}
