package repository

import (
	"context"
	"time"

	"bakery_orders/internal/models"

	"gorm.io/gorm"
)

// OrderFilter narrows the staff order listing. Zero values mean "no filter".
type OrderFilter struct {
	Status        models.OrderStatus
	PaymentStatus models.PaymentStatus
	From          *time.Time
	To            *time.Time
	Page          int
	PerPage       int
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	GetByPaymentReference(ctx context.Context, paymentReference string) (*models.Order, error)
	ExistsByPaymentReference(ctx context.Context, paymentReference string) (bool, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
	MarkPaid(ctx context.Context, paymentReference string, paidAt time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id uint, from, to models.OrderStatus) (bool, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return translate(r.db.WithContext(ctx).Create(order).Error)
}

func (r *orderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items", preloadItems).First(&order, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *orderRepository) GetByPaymentReference(ctx context.Context, paymentReference string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items", preloadItems).
		Where("payment_reference = ?", paymentReference).First(&order).Error
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *orderRepository) ExistsByPaymentReference(ctx context.Context, paymentReference string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("payment_reference = ?", paymentReference).Count(&count).Error
	return count > 0, err
}

func (r *orderRepository) ListByUser(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).Preload("Items", preloadItems).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := query.Preload("Items", preloadItems).
		Order("created_at DESC, id DESC").
		Offset((filter.Page - 1) * filter.PerPage).
		Limit(filter.PerPage).
		Find(&orders).Error
	return orders, total, err
}

// MarkPaid flips payment_status to paid in a single conditional statement and
// advances a pending order to processing. It reports false when no unpaid
// order matched, which callers treat as "already applied" or "unknown".
func (r *orderRepository) MarkPaid(ctx context.Context, paymentReference string, paidAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("payment_reference = ? AND payment_status <> ?", paymentReference, models.PaymentPaid).
		Updates(map[string]interface{}{
			"payment_status": models.PaymentPaid,
			"status":         gorm.Expr("CASE WHEN status = ? THEN ? ELSE status END", models.OrderPending, models.OrderProcessing),
			"paid_at":        paidAt,
			"updated_at":     paidAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateStatus moves the order from one status to another only if it is still
// in the expected prior status.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uint, from, to models.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
