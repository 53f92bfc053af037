package repository

import (
	"context"

	"bakery_orders/internal/models"

	"gorm.io/gorm"
)

type NotificationFilter struct {
	UserID *uint
	Skip   int
	Limit  int
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, id uint) (*models.Notification, error)
	List(ctx context.Context, filter NotificationFilter) ([]models.Notification, error)
	MarkRead(ctx context.Context, id uint) error
	MarkAllRead(ctx context.Context, userID *uint) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) GetByID(ctx context.Context, id uint) (*models.Notification, error) {
	var notification models.Notification
	if err := r.db.WithContext(ctx).First(&notification, id).Error; err != nil {
		return nil, translate(err)
	}
	return &notification, nil
}

func (r *notificationRepository) List(ctx context.Context, filter NotificationFilter) ([]models.Notification, error) {
	query := r.db.WithContext(ctx).Model(&models.Notification{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Skip > 0 {
		query = query.Offset(filter.Skip)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var notifications []models.Notification
	err := query.Order("created_at DESC, id DESC").Find(&notifications).Error
	return notifications, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND is_read = ?", id, false).
		Update("is_read", true).Error
}

// MarkAllRead marks unread notifications read, scoped to one user when userID
// is set. It returns how many rows changed.
func (r *notificationRepository) MarkAllRead(ctx context.Context, userID *uint) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Notification{}).Where("is_read = ?", false)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	res := query.Update("is_read", true)
	return res.RowsAffected, res.Error
}
