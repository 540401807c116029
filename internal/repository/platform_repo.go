package repository

import (
	"context"
	"errors"

	"github.com/kaito/tubegrab/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlatformRepository handles the read-mostly platform catalog.
type PlatformRepository struct {
	db *gorm.DB
}

// NewPlatformRepository creates a new PlatformRepository.
func NewPlatformRepository(db *gorm.DB) *PlatformRepository {
	return &PlatformRepository{db: db}
}

// List retrieves all enabled platforms.
func (r *PlatformRepository) List(ctx context.Context) ([]domain.Platform, error) {
	var platforms []domain.Platform
	if err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("name ASC").
		Find(&platforms).Error; err != nil {
		return nil, err
	}
	return platforms, nil
}

// GetByName retrieves a platform by its name, nil when absent.
func (r *PlatformRepository) GetByName(ctx context.Context, name string) (*domain.Platform, error) {
	var p domain.Platform
	if err := r.db.WithContext(ctx).First(&p, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Upsert creates or updates a platform catalog entry keyed by name.
func (r *PlatformRepository) Upsert(ctx context.Context, p *domain.Platform) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(p).Error
}

// Seed inserts catalog entries that do not exist yet. Existing rows are
// left untouched so admin edits survive restarts.
func (r *PlatformRepository) Seed(ctx context.Context, platforms []domain.Platform) error {
	for i := range platforms {
		if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&platforms[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
