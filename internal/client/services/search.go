package services

import (
	"context"

	"github.com/dmitrijs2005/ace/internal/client/models"
	"github.com/dmitrijs2005/ace/internal/client/resultcache"
	"github.com/dmitrijs2005/ace/internal/logging"
)

type SearchEntry = resultcache.Entry[models.SearchItem]

// SearchService is the search page.
type SearchService interface {
	Current(ctx context.Context) SearchEntry
	Search(ctx context.Context, query string) (SearchEntry, error)
	Save(ctx context.Context) (models.SaveResponse, error)
	Clear(ctx context.Context)
}

type searchService struct {
	flow *resultFlow[models.SearchItem]
}

func NewSearchService(backend Backend, cache *resultcache.Cache[models.SearchItem], logger logging.Logger) SearchService {
	return &searchService{flow: &resultFlow[models.SearchItem]{
		cache: cache,
		run: func(ctx context.Context, query string) ([]models.SearchItem, error) {
			resp, err := backend.Search(ctx, query)
			return resp.Results, err
		},
		save:   backend.SaveSearch,
		logger: logger.With("service", "search"),
	}}
}

func (s *searchService) Current(ctx context.Context) SearchEntry {
	return s.flow.current(ctx)
}

func (s *searchService) Search(ctx context.Context, query string) (SearchEntry, error) {
	return s.flow.execute(ctx, query)
}

func (s *searchService) Save(ctx context.Context) (models.SaveResponse, error) {
	return s.flow.store(ctx)
}

func (s *searchService) Clear(ctx context.Context) {
	s.flow.clear(ctx)
}
