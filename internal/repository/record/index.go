package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/cmsdex/internal/db"
)

// dayField is the internal hash field holding the ingestion day (TAG, SORTABLE).
const dayField = "_day"

// Schema lists the record fields the FT index covers.
type Schema struct {
	TextFields []string
	TagFields  []string
}

// DefaultSchema covers the fields the upstream CMS emits for every article.
func DefaultSchema() Schema {
	return Schema{
		TextFields: []string{"title", "summary", "body"},
		TagFields:  []string{"section", "author"},
	}
}

// buildIndex creates the FT index definition over record hashes.
// The first text field (usually the title) is weighted up.
func buildIndex(name, prefix string, schema Schema) (*db.IndexDefinition, error) {
	if len(schema.TextFields) == 0 {
		return nil, errors.New("at least one text field is required")
	}

	b := db.NewIndex(name).OnHash().Prefix(prefix)
	for i, f := range schema.TextFields {
		if i == 0 {
			b = b.TextWeighted(f, 2)
			continue
		}
		b = b.Text(f)
	}
	for _, f := range schema.TagFields {
		b = b.Tag(f)
	}
	b = b.Tag(dayField).Sortable()

	def, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build index %s: %w", name, err)
	}
	return def, nil
}

// EnsureIndex creates the record index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.index)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def, err := buildIndex(r.index, r.prefix, r.schema)
	if err != nil {
		return err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// IndexReady reports whether the record index exists.
func (r *Repo) IndexReady(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.index)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if !exists {
		return fmt.Errorf("index %s: %w", r.index, db.ErrIndexNotFound)
	}
	return nil
}
