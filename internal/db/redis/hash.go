package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/cmsdex/internal/db"
)

// cmdsPerHash is MULTI, DEL, HSET, EXEC.
const cmdsPerHash = 4

// HSetMulti replaces multiple hashes in a single DoMulti round-trip.
// Each key is deleted before HSET so fields dropped upstream do not linger.
// Every DEL+HSET pair runs in its own MULTI/EXEC, so a concurrent FT.SEARCH
// sees either the old hash or the new one, never a missing key.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, 0, len(items)*cmdsPerHash)
	for _, item := range items {
		if len(item.Fields) == 0 {
			return fmt.Errorf("hset %s: no fields", item.Key)
		}
		hset := s.b().Hset().Key(item.Key).FieldValue()
		for k, v := range item.Fields {
			hset = hset.FieldValue(k, v)
		}
		cmds = append(cmds,
			s.b().Multi().Build(),
			s.b().Del().Key(item.Key).Build(),
			hset.Build(),
			s.b().Exec().Build(),
		)
	}

	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		key := items[i/cmdsPerHash].Key
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("key %s: %w", key, err)}
		}
		if i%cmdsPerHash != cmdsPerHash-1 {
			continue
		}
		// EXEC succeeds even when a queued command failed at run time.
		replies, err := res.ToArray()
		if err != nil {
			return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("key %s: exec: %w", key, err)}
		}
		for _, reply := range replies {
			if err := reply.Error(); err != nil {
				return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("key %s: %w", key, err)}
			}
		}
	}
	return nil
}
