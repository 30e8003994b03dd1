package tags

import (
	"context"

	"github.com/inkwell-blog/inkwell/internal/blog/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Tag, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (Tag, error) {
	return s.repo.GetBySlug(ctx, slug)
}

func (s *Service) Create(ctx context.Context, tag Tag) (Tag, error) {
	if tag.Slug == "" {
		tag.Slug = shared.Slugify(tag.Name)
	}
	return s.repo.Create(ctx, tag)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
