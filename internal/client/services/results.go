package services

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/dmitrijs2005/ace/internal/client/models"
	"github.com/dmitrijs2005/ace/internal/client/resultcache"
	"github.com/dmitrijs2005/ace/internal/logging"
)

// sequencer numbers requests so that only the newest one may apply its
// response.
type sequencer struct {
	n atomic.Uint64
}

func (s *sequencer) next() uint64 {
	return s.n.Add(1)
}

func (s *sequencer) latest(gen uint64) bool {
	return s.n.Load() == gen
}

// resultFlow is the shared run/save/clear cycle of the search and image
// pages, parameterised by the result item type.
type resultFlow[T any] struct {
	cache  *resultcache.Cache[T]
	seq    sequencer
	run    func(ctx context.Context, query string) ([]T, error)
	save   func(ctx context.Context, query string, items []T) (models.SaveResponse, error)
	logger logging.Logger
}

func (f *resultFlow[T]) current(ctx context.Context) resultcache.Entry[T] {
	return f.cache.Load(ctx)
}

// execute runs query and records its result. The cached entry is only
// replaced on success, so a failed or blank request leaves the previous
// query and results paired. A response that arrives after a newer execute
// started is dropped with ErrStaleResponse.
func (f *resultFlow[T]) execute(ctx context.Context, query string) (resultcache.Entry[T], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return resultcache.Entry[T]{}, ErrEmptyQuery
	}

	gen := f.seq.next()

	items, err := f.run(ctx, query)
	if !f.seq.latest(gen) {
		f.logger.Debug(ctx, "dropping stale response", "query", query)
		return resultcache.Entry[T]{}, ErrStaleResponse
	}
	if err != nil {
		return resultcache.Entry[T]{}, err
	}
	if items == nil {
		items = []T{}
	}

	f.cache.RecordResult(ctx, query, items)
	f.logger.Info(ctx, "result recorded", "query", query, "count", len(items))
	return resultcache.Entry[T]{Query: query, Results: items}, nil
}

// store saves the cached result to the dashboard and marks it saved, unless
// a newer result replaced it while the save was in flight.
func (f *resultFlow[T]) store(ctx context.Context) (models.SaveResponse, error) {
	e := f.cache.Load(ctx)
	if len(e.Results) == 0 || strings.TrimSpace(e.Query) == "" {
		return models.SaveResponse{}, ErrNothingToSave
	}
	if e.Saved {
		return models.SaveResponse{}, ErrAlreadySaved
	}

	gen := f.seq.n.Load()
	resp, err := f.save(ctx, e.Query, e.Results)
	if err != nil {
		return models.SaveResponse{}, fmt.Errorf("save %s: %w", f.cache.Feature(), err)
	}

	if !f.seq.latest(gen) || f.cache.Load(ctx).Query != e.Query {
		f.logger.Info(ctx, "result changed during save, not marking saved", "query", e.Query)
		return resp, nil
	}
	f.cache.MarkSaved(ctx)
	return resp, nil
}

func (f *resultFlow[T]) clear(ctx context.Context) {
	f.seq.next()
	f.cache.Clear(ctx)
}
