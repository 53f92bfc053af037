package services

import (
	"context"
	"errors"
	"fmt"

	"bakery_orders/internal/logger"
	"bakery_orders/internal/metrics"
	"bakery_orders/internal/models"
	"bakery_orders/internal/repository"

	"go.uber.org/zap"
)

var orderTransitions = map[models.OrderStatus]map[models.OrderStatus]struct{}{
	models.OrderPending: {
		models.OrderProcessing: {},
		models.OrderCancelled:  {},
	},
	models.OrderProcessing: {
		models.OrderCompleted: {},
		models.OrderCancelled: {},
	},
	models.OrderCompleted: {
		models.OrderDelivered: {},
		models.OrderCancelled: {},
	},
	models.OrderDelivered: {
		models.OrderCancelled: {},
	},
	models.OrderCancelled: {},
}

// CanTransition reports whether the table allows moving from one status to another.
func CanTransition(from, to models.OrderStatus) bool {
	next, ok := orderTransitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

type OrderLifecycleService interface {
	UpdateStatus(ctx context.Context, actor *Actor, orderID uint, to models.OrderStatus) (*models.Order, error)
}

type orderLifecycleService struct {
	store           *repository.Store
	notifier        NotificationService
	releaseOnCancel bool
	log             *zap.Logger
}

func NewOrderLifecycleService(store *repository.Store, notifier NotificationService, releaseOnCancel bool, log *zap.Logger) OrderLifecycleService {
	return &orderLifecycleService{store: store, notifier: notifier, releaseOnCancel: releaseOnCancel, log: logger.OrNop(log)}
}

func (s *orderLifecycleService) UpdateStatus(ctx context.Context, actor *Actor, orderID uint, to models.OrderStatus) (*models.Order, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}

	var (
		order *models.Order
		from  models.OrderStatus
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		current, err := tx.Orders.GetByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		order = current
		from = current.Status
		if from == to {
			return nil
		}
		if !CanTransition(from, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
		}

		ok, err := tx.Orders.UpdateStatus(ctx, orderID, from, to)
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: order %d changed concurrently", ErrConflict, orderID)
		}

		if to == models.OrderCancelled && s.releaseOnCancel && current.PromoCodeID != nil {
			released, err := tx.Promos.DecrementUsage(ctx, *current.PromoCodeID)
			if err != nil {
				return fmt.Errorf("failed to release promo code: %w", err)
			}
			if released {
				metrics.PromoRedemptions.WithLabelValues("release").Inc()
			}
		}

		order.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}
	if from == to {
		return order, nil
	}

	metrics.OrderTransitions.WithLabelValues(string(from), string(to)).Inc()
	s.log.Info("order status changed",
		zap.Uint("order_id", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Uint("actor_id", actor.ID),
	)

	if order.UserID != nil {
		notifyBestEffort(ctx, s.notifier, s.log, order.UserID,
			"Order Status Updated",
			fmt.Sprintf("Your order %s is now %s", order.Reference, to),
			models.NotificationOrder,
		)
	}
	return order, nil
}
