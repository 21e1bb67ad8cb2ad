package record

import (
	"fmt"
	"maps"
	"strings"

	"github.com/kailas-cloud/cmsdex/internal/db"
	"github.com/kailas-cloud/cmsdex/internal/domain/day"
	"github.com/kailas-cloud/cmsdex/internal/domain/record"
)

// recordToHash flattens a record into hash fields, tagging it with its ingestion day.
func recordToHash(rec record.Record, d day.Day) map[string]string {
	fields := rec.Fields()
	m := make(map[string]string, len(fields)+2)
	maps.Copy(m, fields)
	m[record.IDField] = rec.ID()
	m[dayField] = d.String()
	return m
}

// entryToRecord rebuilds a record from an FT.SEARCH hit. Internal fields are dropped.
func entryToRecord(prefix string, entry db.SearchEntry) (record.Record, error) {
	fields := make(map[string]string, len(entry.Fields))
	for k, v := range entry.Fields {
		if strings.HasPrefix(k, "_") {
			continue
		}
		fields[k] = v
	}

	id := fields[record.IDField]
	delete(fields, record.IDField)
	if id == "" {
		id = strings.TrimPrefix(entry.Key, prefix)
	}

	rec, err := record.New(id, fields)
	if err != nil {
		return record.Record{}, fmt.Errorf("entry %s: %w", entry.Key, err)
	}
	return rec, nil
}
