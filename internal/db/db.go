package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	HashStore
	IndexManager
	Searcher
	Queue
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSetMulti(ctx context.Context, items []HashSetItem) error
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides full-text search over FT indexes.
type Searcher interface {
	SearchText(ctx context.Context, q *TextQuery) (*SearchResult, error)
}

// Queue is a FIFO list used as the ingestion task substrate.
type Queue interface {
	// Push appends payloads to the tail of the list and returns the new length.
	Push(ctx context.Context, key string, payloads ...[]byte) (int64, error)
	// Pop blocks up to timeout for the head of the list. Returns ErrQueueEmpty on timeout.
	Pop(ctx context.Context, key string, timeout time.Duration) ([]byte, error)
	// Len returns the list length.
	Len(ctx context.Context, key string) (int64, error)
}
