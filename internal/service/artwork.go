package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gallery-checkout/internal/dto"
	"gallery-checkout/internal/model"
	"gallery-checkout/internal/repository"
	"gallery-checkout/internal/slug"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// slug picks race with concurrent inserts; the unique index decides
const maxSlugAttempts = 3

type ArtworkService interface {
	Create(ctx context.Context, req *dto.CreateArtworkRequest) (*model.Artwork, error)
	GetBySlug(ctx context.Context, slug string) (*model.Artwork, error)
	BackfillSlugs(ctx context.Context) (int, error)
}

type artworkServiceImpl struct {
	artworkRepo repository.ArtworkRepository
	log         *slog.Logger
}

func NewArtworkService(artworkRepo repository.ArtworkRepository, log *slog.Logger) ArtworkService {
	return &artworkServiceImpl{
		artworkRepo: artworkRepo,
		log:         log,
	}
}

func (s *artworkServiceImpl) Create(ctx context.Context, req *dto.CreateArtworkRequest) (*model.Artwork, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidRequest)
	}
	if !req.Price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidRequest)
	}
	if slug.Generate(title) == "" {
		return nil, fmt.Errorf("%w: title %q has no characters usable in a slug", ErrInvalidRequest, title)
	}

	artwork := &model.Artwork{
		ID:     uuid.NewString(),
		Title:  title,
		Artist: strings.TrimSpace(req.Artist),
		Price:  req.Price.Round(2),
	}

	for attempt := 1; ; attempt++ {
		candidate, err := s.uniqueSlug(ctx, title)
		if err != nil {
			return nil, err
		}
		artwork.Slug = &candidate

		err = s.artworkRepo.Create(ctx, artwork)
		if err == nil {
			return artwork, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) || attempt == maxSlugAttempts {
			return nil, fmt.Errorf("store artwork: %w", err)
		}
	}
}

func (s *artworkServiceImpl) GetBySlug(ctx context.Context, slug string) (*model.Artwork, error) {
	artwork, err := s.artworkRepo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrArtworkNotFound, slug)
		}
		return nil, fmt.Errorf("find artwork by slug: %w", err)
	}
	return artwork, nil
}

// BackfillSlugs assigns slugs to artworks that have none, one at a time so
// each assignment is visible to the next uniqueness check.
func (s *artworkServiceImpl) BackfillSlugs(ctx context.Context) (int, error) {
	artworks, err := s.artworkRepo.FindWithoutSlug(ctx)
	if err != nil {
		return 0, fmt.Errorf("find artworks without slug: %w", err)
	}

	assigned := 0
	for _, artwork := range artworks {
		if slug.Generate(artwork.Title) == "" {
			s.log.WarnContext(ctx, "artwork title yields empty slug, skipping", "artwork_id", artwork.ID, "title", artwork.Title)
			continue
		}

		next, err := s.uniqueSlug(ctx, artwork.Title)
		if err != nil {
			return assigned, err
		}
		if err := s.artworkRepo.SetSlug(ctx, artwork.ID, next); err != nil {
			return assigned, fmt.Errorf("set slug for artwork %s: %w", artwork.ID, err)
		}

		s.log.InfoContext(ctx, "slug assigned", "artwork_id", artwork.ID, "slug", next)
		assigned++
	}

	return assigned, nil
}

func (s *artworkServiceImpl) uniqueSlug(ctx context.Context, title string) (string, error) {
	existing, err := s.artworkRepo.SlugsWithPrefix(ctx, slug.Generate(title))
	if err != nil {
		return "", fmt.Errorf("list existing slugs: %w", err)
	}
	return slug.GenerateUnique(title, existing), nil
}
