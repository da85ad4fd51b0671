package services

import (
	"context"

	"github.com/dmitrijs2005/ace/internal/client/models"
)

// Backend is the set of API calls the page services make. *api.Client
// implements it.
type Backend interface {
	Me(ctx context.Context) (models.User, error)
	Ping(ctx context.Context) error

	Search(ctx context.Context, query string) (models.SearchResponse, error)
	GenerateImage(ctx context.Context, prompt string) (models.ImageResponse, error)
	SaveSearch(ctx context.Context, query string, results []models.SearchItem) (models.SaveResponse, error)
	SaveImage(ctx context.Context, prompt string, images []models.Image) (models.SaveResponse, error)

	ListDashboard(ctx context.Context, f models.DashboardFilter) (models.DashboardPage, error)
	GetEntry(ctx context.Context, t models.EntryType, id int64) (models.Detail, error)
	DeleteEntry(ctx context.Context, t models.EntryType, id int64) error
	CleanupUntitled(ctx context.Context) (models.CleanupResult, error)
}
