package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bakery_orders/internal/logger"
	"bakery_orders/internal/metrics"
	"bakery_orders/internal/models"
	"bakery_orders/internal/repository"

	"go.uber.org/zap"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 100
)

// NotificationPublisher fans newly stored notifications out to live
// subscribers. Implementations must not block.
type NotificationPublisher interface {
	Publish(notification models.Notification)
}

type NotificationListFilter struct {
	UserID *uint
	Skip   int
	Limit  int
}

type NotificationService interface {
	Emit(ctx context.Context, userID *uint, title, message string, notificationType models.NotificationType) (*models.Notification, error)
	List(ctx context.Context, actor *Actor, filter NotificationListFilter) ([]models.Notification, error)
	MarkRead(ctx context.Context, actor *Actor, id uint) (*models.Notification, error)
	MarkAllRead(ctx context.Context, actor *Actor) (int64, error)
}

type notificationService struct {
	repo      repository.NotificationRepository
	publisher NotificationPublisher
	log       *zap.Logger
}

func NewNotificationService(repo repository.NotificationRepository, publisher NotificationPublisher, log *zap.Logger) NotificationService {
	return &notificationService{repo: repo, publisher: publisher, log: logger.OrNop(log)}
}

func (s *notificationService) Emit(ctx context.Context, userID *uint, title, message string, notificationType models.NotificationType) (*models.Notification, error) {
	switch notificationType {
	case models.NotificationOrder, models.NotificationUser, models.NotificationSystem:
	default:
		return nil, fmt.Errorf("%w: unknown notification type %q", ErrValidation, notificationType)
	}
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: notification title is required", ErrValidation)
	}

	notification := &models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    notificationType,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}

	if s.publisher != nil {
		s.publisher.Publish(*notification)
	}
	return notification, nil
}

func (s *notificationService) List(ctx context.Context, actor *Actor, filter NotificationListFilter) ([]models.Notification, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if filter.Skip < 0 {
		return nil, fmt.Errorf("%w: skip must not be negative", ErrValidation)
	}
	limit := filter.Limit
	switch {
	case limit <= 0:
		limit = defaultNotificationLimit
	case limit > maxNotificationLimit:
		limit = maxNotificationLimit
	}

	scope := filter.UserID
	if !actor.IsStaff() {
		scope = actor.UserID()
	}
	return s.repo.List(ctx, repository.NotificationFilter{UserID: scope, Skip: filter.Skip, Limit: limit})
}

func (s *notificationService) MarkRead(ctx context.Context, actor *Actor, id uint) (*models.Notification, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	if !actor.IsStaff() && (notification.UserID == nil || *notification.UserID != actor.ID) {
		return nil, ErrForbidden
	}
	if notification.Read {
		return notification, nil
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	notification.Read = true
	return notification, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, actor *Actor) (int64, error) {
	if actor == nil {
		return 0, ErrUnauthenticated
	}
	var scope *uint
	if !actor.IsStaff() {
		scope = actor.UserID()
	}
	return s.repo.MarkAllRead(ctx, scope)
}

// notifyBestEffort emits a notification and swallows any failure after
// logging it; the triggering mutation has already committed.
func notifyBestEffort(ctx context.Context, emitter NotificationService, log *zap.Logger, userID *uint, title, message string, notificationType models.NotificationType) {
	if emitter == nil {
		return
	}
	if _, err := emitter.Emit(ctx, userID, title, message, notificationType); err != nil {
		metrics.NotificationFailures.Inc()
		log.Warn("notification not stored", zap.String("title", title), zap.Error(err))
	}
}
