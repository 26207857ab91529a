package repository

import (
	"context"
	"time"

	"gallery-checkout/internal/model"

	"gorm.io/gorm"
)

type ArtworkRepository interface {
	Create(ctx context.Context, artwork *model.Artwork) error
	FindBySlug(ctx context.Context, slug string) (*model.Artwork, error)
	SlugsWithPrefix(ctx context.Context, base string) ([]string, error)
	FindWithoutSlug(ctx context.Context) ([]*model.Artwork, error)
	SetSlug(ctx context.Context, id, slug string) error
}

type artworkRepoImpl struct {
	db *gorm.DB
}

func NewArtworkRepository(db *gorm.DB) ArtworkRepository {
	return &artworkRepoImpl{
		db: db,
	}
}

func (r *artworkRepoImpl) Create(ctx context.Context, artwork *model.Artwork) error {
	return r.db.WithContext(ctx).Create(artwork).Error
}

func (r *artworkRepoImpl) FindBySlug(ctx context.Context, slug string) (*model.Artwork, error) {
	var artwork model.Artwork
	err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&artwork).Error

	if err != nil {
		return nil, err
	}

	return &artwork, nil
}

// SlugsWithPrefix returns base itself and every base-N style slug in use.
func (r *artworkRepoImpl) SlugsWithPrefix(ctx context.Context, base string) ([]string, error) {
	var slugs []string
	err := r.db.WithContext(ctx).Model(&model.Artwork{}).
		Where("slug = ? OR slug LIKE ?", base, base+"-%").
		Pluck("slug", &slugs).Error

	if err != nil {
		return nil, err
	}

	return slugs, nil
}

func (r *artworkRepoImpl) FindWithoutSlug(ctx context.Context) ([]*model.Artwork, error) {
	var artworks []*model.Artwork
	err := r.db.WithContext(ctx).
		Where("slug IS NULL OR slug = ?", "").
		Order("created_at").
		Find(&artworks).Error

	if err != nil {
		return nil, err
	}

	return artworks, nil
}

func (r *artworkRepoImpl) SetSlug(ctx context.Context, id, slug string) error {
	result := r.db.WithContext(ctx).Model(&model.Artwork{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"slug":       slug,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
