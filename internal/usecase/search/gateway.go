// Package search wraps the keyword index behind a single failure kind.
package search

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cmsdex/internal/domain"
	"github.com/kailas-cloud/cmsdex/internal/domain/record"
	"github.com/kailas-cloud/cmsdex/internal/metrics"
)

// DefaultPageSize is the number of hits fetched per index round trip.
const DefaultPageSize = 500

// BreakerConfig tunes the circuit breaker in front of the index.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the breaker settings used when none are configured.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// Gateway queries the record index.
//
// Every non-success outcome leaves the gateway as exactly one
// *domain.SearchBackendError: store and parse errors, context expiry,
// an open breaker and panics raised by the adapter alike. Nothing is retried.
type Gateway struct {
	repo     Repository
	cb       *gobreaker.CircuitBreaker
	logger   *zap.Logger
	pageSize int
}

// New creates a search gateway. pageSize <= 0 selects DefaultPageSize.
func New(repo Repository, logger *zap.Logger, pageSize int, bc BreakerConfig) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "search-index",
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= bc.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &Gateway{repo: repo, cb: cb, logger: logger, pageSize: pageSize}
}

// Search returns every record matching keyword. Zero matches is an empty
// slice and a nil error.
func (g *Gateway) Search(ctx context.Context, keyword string) ([]record.Record, error) {
	out := []record.Record{}
	for rec, err := range g.Stream(ctx, keyword) {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Stream yields matches page by page so a caller never holds the whole set.
// On failure it yields one error and stops.
func (g *Gateway) Stream(ctx context.Context, keyword string) iter.Seq2[record.Record, error] {
	return func(yield func(record.Record, error) bool) {
		kw := strings.TrimSpace(keyword)
		if kw == "" {
			yield(record.Record{}, fmt.Errorf("%w: keyword is required", domain.ErrValidation))
			return
		}

		offset := 0
		for {
			recs, total, err := g.page(ctx, kw, offset)
			if err != nil {
				yield(record.Record{}, err)
				return
			}
			for _, rec := range recs {
				if !yield(rec, nil) {
					return
				}
			}
			offset += len(recs)
			if len(recs) < g.pageSize || offset >= total {
				return
			}
		}
	}
}

type page struct {
	records []record.Record
	total   int
}

// page runs one breaker-guarded round trip and normalizes its failure.
func (g *Gateway) page(ctx context.Context, keyword string, offset int) (recs []record.Record, total int, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("search adapter panic: %v", r)
		}
		metrics.SearchDuration.Observe(time.Since(start).Seconds())
		metrics.SearchRequestsTotal.WithLabelValues(metrics.StatusLabel(err)).Inc()
		if err != nil {
			recs, total = nil, 0
			err = domain.NewSearchBackendError(keyword, err)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	res, err := g.cb.Execute(func() (any, error) {
		recs, total, err := g.repo.Search(ctx, keyword, offset, g.pageSize)
		if err != nil {
			return nil, err
		}
		return page{records: recs, total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}

	p, ok := res.(page)
	if !ok {
		return nil, 0, fmt.Errorf("unexpected breaker result %T", res)
	}
	g.logger.Debug("Search page fetched",
		zap.String("keyword", keyword),
		zap.Int("offset", offset),
		zap.Int("hits", len(p.records)),
		zap.Int("total", p.total),
	)
	return p.records, p.total, nil
}
