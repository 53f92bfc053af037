package repository

import (
	"context"

	"bakery_orders/internal/models"

	"gorm.io/gorm"
)

type MenuRepository interface {
	Create(ctx context.Context, item *models.MenuItem) error
	FindByIDs(ctx context.Context, ids []uint) ([]models.MenuItem, error)
	Count(ctx context.Context) (int64, error)
}

type menuRepository struct {
	db *gorm.DB
}

func NewMenuRepository(db *gorm.DB) MenuRepository {
	return &menuRepository{db: db}
}

func (r *menuRepository) Create(ctx context.Context, item *models.MenuItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *menuRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.MenuItem, error) {
	var items []models.MenuItem
	if len(ids) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error
	return items, err
}

func (r *menuRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.MenuItem{}).Count(&count).Error
	return count, err
}
