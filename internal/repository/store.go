package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Store groups the repositories that share one *gorm.DB handle, so a service
// can run several of them inside one transaction.
type Store struct {
	db            *gorm.DB
	Orders        OrderRepository
	Promos        PromoRepository
	Notifications NotificationRepository
	Menu          MenuRepository
	Users         UserRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Orders:        NewOrderRepository(db),
		Promos:        NewPromoRepository(db),
		Notifications: NewNotificationRepository(db),
		Menu:          NewMenuRepository(db),
		Users:         NewUserRepository(db),
	}
}

// Transaction runs fn against a Store bound to a single database
// transaction. Returning an error from fn rolls every write back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Join(ErrDuplicate, err)
	default:
		return err
	}
}
