package postgres

import (
	"context"

	"opsboard/internal/models"

	"gorm.io/gorm"
)

type NewsRepository struct {
	db *gorm.DB
}

func NewNewsRepository(db *gorm.DB) *NewsRepository {
	return &NewsRepository{db: db}
}

func (r *NewsRepository) List(ctx context.Context, limit int) ([]models.NewsItem, error) {
	var items []models.NewsItem
	if err := r.db.WithContext(ctx).Preload("Author").
		Order("created_at DESC").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *NewsRepository) Create(ctx context.Context, item *models.NewsItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}
