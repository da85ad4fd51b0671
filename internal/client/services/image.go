package services

import (
	"context"

	"github.com/dmitrijs2005/ace/internal/client/models"
	"github.com/dmitrijs2005/ace/internal/client/resultcache"
	"github.com/dmitrijs2005/ace/internal/logging"
)

type ImageEntry = resultcache.Entry[models.Image]

// ImageService is the image generation page.
type ImageService interface {
	Current(ctx context.Context) ImageEntry
	Generate(ctx context.Context, prompt string) (ImageEntry, error)
	Save(ctx context.Context) (models.SaveResponse, error)
	Clear(ctx context.Context)
}

type imageService struct {
	flow *resultFlow[models.Image]
}

func NewImageService(backend Backend, cache *resultcache.Cache[models.Image], logger logging.Logger) ImageService {
	return &imageService{flow: &resultFlow[models.Image]{
		cache: cache,
		run: func(ctx context.Context, prompt string) ([]models.Image, error) {
			resp, err := backend.GenerateImage(ctx, prompt)
			return resp.Images, err
		},
		save:   backend.SaveImage,
		logger: logger.With("service", "image"),
	}}
}

func (s *imageService) Current(ctx context.Context) ImageEntry {
	return s.flow.current(ctx)
}

func (s *imageService) Generate(ctx context.Context, prompt string) (ImageEntry, error) {
	return s.flow.execute(ctx, prompt)
}

func (s *imageService) Save(ctx context.Context) (models.SaveResponse, error) {
	return s.flow.store(ctx)
}

func (s *imageService) Clear(ctx context.Context) {
	s.flow.clear(ctx)
}
