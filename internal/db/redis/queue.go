package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/cmsdex/internal/db"
)

// Push appends payloads to the tail of a list (RPUSH) and returns the new length.
func (s *Store) Push(ctx context.Context, key string, payloads ...[]byte) (int64, error) {
	if len(payloads) == 0 {
		return 0, fmt.Errorf("push %s: no payloads", key)
	}
	elems := make([]string, len(payloads))
	for i, p := range payloads {
		elems[i] = string(p)
	}
	cmd := s.b().Rpush().Key(key).Element(elems...).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpRPush, Err: err}
	}
	return n, nil
}

// Pop takes the head of a list, blocking up to timeout (BLPOP).
func (s *Store) Pop(ctx context.Context, key string, timeout time.Duration) ([]byte, error) {
	cmd := s.b().Blpop().Key(key).Timeout(timeout.Seconds()).Build()
	kv, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrQueueEmpty
		}
		return nil, &db.Error{Op: db.OpBLPop, Err: err}
	}
	// BLPOP replies [key, element]
	if len(kv) != 2 {
		return nil, &db.Error{Op: db.OpBLPop, Err: fmt.Errorf("unexpected reply length %d", len(kv))}
	}
	return []byte(kv[1]), nil
}

// Len returns the list length (LLEN).
func (s *Store) Len(ctx context.Context, key string) (int64, error) {
	cmd := s.b().Llen().Key(key).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpLLen, Err: err}
	}
	return n, nil
}
