package search

import (
	"context"

	"github.com/kailas-cloud/cmsdex/internal/domain/record"
)

// Repository runs one page of a keyword query against the index.
type Repository interface {
	Search(ctx context.Context, keyword string, offset, limit int) ([]record.Record, int, error)
}
