package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/ace/internal/client/models"
	"github.com/dmitrijs2005/ace/internal/common"
	"github.com/dmitrijs2005/ace/internal/logging"
)

type DashboardService interface {
	List(ctx context.Context, f models.DashboardFilter) (models.DashboardPage, error)
	Get(ctx context.Context, entryType string, id int64) (models.Detail, error)
	Delete(ctx context.Context, entryType string, id int64) error
	CleanupUntitled(ctx context.Context) (models.CleanupResult, error)
}

type dashboardService struct {
	backend Backend
	logger  logging.Logger
}

func NewDashboardService(backend Backend, logger logging.Logger) DashboardService {
	return &dashboardService{backend: backend, logger: logger.With("service", "dashboard")}
}

// List normalises the filter (type defaults to all, page to 1) and fetches
// one page.
func (s *dashboardService) List(ctx context.Context, f models.DashboardFilter) (models.DashboardPage, error) {
	switch f.Type {
	case "":
		f.Type = models.EntryTypeAll
	case models.EntryTypeAll, models.EntryTypeSearch, models.EntryTypeImage:
	default:
		return models.DashboardPage{}, fmt.Errorf("%w: %q", ErrInvalidEntryType, f.Type)
	}
	if f.Page < 1 {
		f.Page = 1
	}
	f.Query = strings.TrimSpace(f.Query)

	page, err := s.backend.ListDashboard(ctx, f)
	if err != nil {
		return models.DashboardPage{}, err
	}
	if page.Page < 1 {
		page.Page = f.Page
	}
	if page.TotalPages < 1 {
		page.TotalPages = 1
	}
	return page, nil
}

func (s *dashboardService) Get(ctx context.Context, entryType string, id int64) (models.Detail, error) {
	t, ok := models.ParseEntryType(entryType)
	if !ok {
		return models.Detail{}, fmt.Errorf("%w: %q", ErrInvalidEntryType, entryType)
	}
	d, err := s.backend.GetEntry(ctx, t, id)
	if err != nil {
		return models.Detail{}, err
	}
	if d.Type == "" {
		return models.Detail{}, common.ErrNotFound
	}
	return d, nil
}

func (s *dashboardService) Delete(ctx context.Context, entryType string, id int64) error {
	t, ok := models.ParseEntryType(entryType)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidEntryType, entryType)
	}
	if err := s.backend.DeleteEntry(ctx, t, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "entry deleted", "type", t, "id", id)
	return nil
}

func (s *dashboardService) CleanupUntitled(ctx context.Context) (models.CleanupResult, error) {
	res, err := s.backend.CleanupUntitled(ctx)
	if err != nil {
		return models.CleanupResult{}, err
	}
	s.logger.Info(ctx, "untitled entries removed", "search", res.Deleted.Search, "image", res.Deleted.Image)
	return res, nil
}
