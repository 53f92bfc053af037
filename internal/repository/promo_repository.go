package repository

import (
	"context"

	"bakery_orders/internal/models"

	"gorm.io/gorm"
)

type PromoRepository interface {
	Create(ctx context.Context, promo *models.PromoCode) error
	GetByID(ctx context.Context, id uint) (*models.PromoCode, error)
	GetByCode(ctx context.Context, code string) (*models.PromoCode, error)
	GetAll(ctx context.Context) ([]models.PromoCode, error)
	Update(ctx context.Context, promo *models.PromoCode) error
	SetActive(ctx context.Context, id uint, active bool) error
	IncrementUsage(ctx context.Context, id uint) (bool, error)
	DecrementUsage(ctx context.Context, id uint) (bool, error)
}

type promoRepository struct {
	db *gorm.DB
}

func NewPromoRepository(db *gorm.DB) PromoRepository {
	return &promoRepository{db: db}
}

func (r *promoRepository) Create(ctx context.Context, promo *models.PromoCode) error {
	return translate(r.db.WithContext(ctx).Create(promo).Error)
}

func (r *promoRepository) GetByID(ctx context.Context, id uint) (*models.PromoCode, error) {
	var promo models.PromoCode
	if err := r.db.WithContext(ctx).First(&promo, id).Error; err != nil {
		return nil, translate(err)
	}
	return &promo, nil
}

func (r *promoRepository) GetByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&promo).Error; err != nil {
		return nil, translate(err)
	}
	return &promo, nil
}

func (r *promoRepository) GetAll(ctx context.Context) ([]models.PromoCode, error) {
	var promos []models.PromoCode
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&promos).Error
	return promos, err
}

// Update writes the editable columns. usage_count is never written here so
// an edit never overwrites concurrent redemptions.
func (r *promoRepository) Update(ctx context.Context, promo *models.PromoCode) error {
	err := r.db.WithContext(ctx).Model(promo).
		Select("code", "discount_type", "discount_value", "start_date", "end_date", "is_active").
		Updates(promo).Error
	return translate(err)
}

func (r *promoRepository) SetActive(ctx context.Context, id uint, active bool) error {
	return r.db.WithContext(ctx).Model(&models.PromoCode{}).
		Where("id = ?", id).Update("is_active", active).Error
}

// IncrementUsage adds one redemption with a single UPDATE so concurrent
// checkouts cannot lose increments. It reports false if the code was
// deactivated in the meantime.
func (r *promoRepository) IncrementUsage(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.PromoCode{}).
		Where("id = ? AND is_active = ?", id, true).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DecrementUsage gives back one redemption. It targets the promo row by id
// because codes can be renamed after orders have used them.
func (r *promoRepository) DecrementUsage(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.PromoCode{}).
		Where("id = ? AND usage_count > 0", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count - ?", 1))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
