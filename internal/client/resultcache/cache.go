// Package resultcache remembers the last search and the last image
// generation across restarts, together with whether that result has been
// saved to the dashboard.
package resultcache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/ace/internal/client/storage"
	"github.com/dmitrijs2005/ace/internal/common"
	"github.com/dmitrijs2005/ace/internal/logging"
)

// Feature selects one of the two independent caches.
type Feature string

const (
	FeatureSearch Feature = "search"
	FeatureImage  Feature = "image"
)

const (
	savedTrue  = "1"
	savedFalse = "0"
)

type keys struct {
	query, results, saved string
}

func keysFor(f Feature) (keys, error) {
	switch f {
	case FeatureSearch:
		return keys{common.KeySearchQuery, common.KeySearchResults, common.KeySearchSaved}, nil
	case FeatureImage:
		return keys{common.KeyImagePrompt, common.KeyImageResults, common.KeyImageSaved}, nil
	}
	return keys{}, fmt.Errorf("unknown result cache feature %q", f)
}

// Entry is the cached state of one feature.
type Entry[T any] struct {
	Query   string
	Results []T
	Saved   bool
}

// Cache persists an Entry[T]. Storage failures are logged and otherwise
// ignored: reads degrade to an empty entry, writes are dropped.
type Cache[T any] struct {
	repo    storage.Repository
	feature Feature
	keys    keys
	logger  logging.Logger
}

func New[T any](repo storage.Repository, feature Feature, logger logging.Logger) (*Cache[T], error) {
	k, err := keysFor(feature)
	if err != nil {
		return nil, err
	}
	return &Cache[T]{
		repo:    repo,
		feature: feature,
		keys:    k,
		logger:  logger.With("component", "resultcache", "feature", string(feature)),
	}, nil
}

func (c *Cache[T]) Feature() Feature {
	return c.feature
}

// Load reads the cached entry. Malformed results read as empty. If results
// exist but the saved flag was never written, the flag is initialised to
// false.
func (c *Cache[T]) Load(ctx context.Context) Entry[T] {
	var e Entry[T]

	if q, ok := c.get(ctx, c.keys.query); ok {
		e.Query = q
	}

	if raw, ok := c.get(ctx, c.keys.results); ok && raw != "" {
		var results []T
		if err := json.Unmarshal([]byte(raw), &results); err != nil {
			c.logger.Warn(ctx, "discarding malformed cached results", "error", err)
		} else {
			e.Results = results
		}
	}

	saved, hasFlag := c.get(ctx, c.keys.saved)
	e.Saved = saved == savedTrue
	if len(e.Results) > 0 && !hasFlag {
		c.set(ctx, map[string]string{c.keys.saved: savedFalse})
	}
	return e
}

// RecordResult replaces query and results and resets the saved flag, all in
// one write.
func (c *Cache[T]) RecordResult(ctx context.Context, query string, results []T) {
	if results == nil {
		results = []T{}
	}
	buf, err := json.Marshal(results)
	if err != nil {
		c.logger.Warn(ctx, "cannot encode results", "error", err)
		return
	}
	c.set(ctx, map[string]string{
		c.keys.query:   query,
		c.keys.results: string(buf),
		c.keys.saved:   savedFalse,
	})
}

// MarkSaved records a confirmed dashboard save.
func (c *Cache[T]) MarkSaved(ctx context.Context) {
	c.set(ctx, map[string]string{c.keys.saved: savedTrue})
}

// Clear removes this feature's query, results and flag. The other feature
// and the dashboard are untouched.
func (c *Cache[T]) Clear(ctx context.Context) {
	if err := c.repo.Delete(ctx, c.keys.query, c.keys.results, c.keys.saved); err != nil {
		c.logger.Warn(ctx, "result cache clear failed", "error", err)
	}
}

func (c *Cache[T]) get(ctx context.Context, key string) (string, bool) {
	v, ok, err := c.repo.Get(ctx, key)
	if err != nil {
		c.logger.Warn(ctx, "result cache read failed", "key", key, "error", err)
		return "", false
	}
	return v, ok
}

func (c *Cache[T]) set(ctx context.Context, values map[string]string) {
	if err := c.repo.SetMany(ctx, values); err != nil {
		c.logger.Warn(ctx, "result cache write failed", "error", err)
	}
}
