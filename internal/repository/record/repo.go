package record

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/cmsdex/internal/db"
	"github.com/kailas-cloud/cmsdex/internal/domain/day"
	"github.com/kailas-cloud/cmsdex/internal/domain/record"
)

// Default key layout.
const (
	DefaultIndexName = "cms:records:idx"
	DefaultKeyPrefix = "cms:record:"
)

// store is the consumer interface for records (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Repo stores CMS records as Redis hashes under an FT index.
type Repo struct {
	store  store
	index  string
	prefix string
	schema Schema
}

// New creates a record repository with the default key layout and schema.
func New(s store) *Repo {
	return &Repo{store: s, index: DefaultIndexName, prefix: DefaultKeyPrefix, schema: DefaultSchema()}
}

// WithIndex overrides the index name and key prefix.
func (r *Repo) WithIndex(name, prefix string) *Repo {
	if name != "" {
		r.index = name
	}
	if prefix != "" {
		r.prefix = prefix
	}
	return r
}

// WithSchema overrides the indexed fields.
func (r *Repo) WithSchema(schema Schema) *Repo {
	if len(schema.TextFields) > 0 {
		r.schema = schema
	}
	return r
}

// Search runs one page of a keyword search. Results are ordered by ingestion day.
func (r *Repo) Search(ctx context.Context, keyword string, offset, limit int) ([]record.Record, int, error) {
	sr, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName: r.index,
		Query:     keyword,
		Offset:    offset,
		Limit:     limit,
		SortBy:    dayField,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("search %s: %w", r.index, err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		total := 0
		if sr != nil {
			total = sr.Total
		}
		return nil, total, nil
	}

	out := make([]record.Record, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		rec, err := entryToRecord(r.prefix, e)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, sr.Total, nil
}

// UpsertDay stores every record of one day. A record that already exists is
// fully replaced, so re-running the same day never duplicates or corrupts data.
func (r *Repo) UpsertDay(ctx context.Context, d day.Day, recs []record.Record) error {
	if len(recs) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, len(recs))
	for i, rec := range recs {
		items[i] = db.HashSetItem{Key: r.key(rec.ID()), Fields: recordToHash(rec, d)}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d records for %s: %w", len(recs), d, err)
	}
	return nil
}

func (r *Repo) key(id string) string { return r.prefix + id }
