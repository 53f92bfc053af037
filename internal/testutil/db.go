// Package testutil opens throwaway databases and seeds fixtures for tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"bakery_orders/internal/database"
	"bakery_orders/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDB returns a migrated in-memory SQLite database private to the test.
// A single connection is used, so whole transactions run one at a time.
// Only statements issued outside a transaction can interleave.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := database.Open(sqlite.Open(dsn))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func CreateUser(t testing.TB, db *gorm.DB, email string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Fullname: "Test " + email,
		Email:    email,
		Role:     string(role),
		Status:   models.UserActive,
	}
	require.NoError(t, db.WithContext(context.Background()).Create(user).Error)
	return user
}

func CreateMenuItem(t testing.TB, db *gorm.DB, name, price string) *models.MenuItem {
	t.Helper()
	item := &models.MenuItem{
		Name:   name,
		Price:  Dec(price),
		Image:  "/uploads/" + name + ".jpg",
		Status: "active",
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

// CreatePromo inserts a code active from start to end.
func CreatePromo(t testing.TB, db *gorm.DB, code string, discount models.Discount, start, end time.Time, active bool) *models.PromoCode {
	t.Helper()
	promo := &models.PromoCode{
		Code:      code,
		Discount:  discount,
		StartDate: start.UTC(),
		EndDate:   end.UTC(),
		IsActive:  active,
	}
	require.NoError(t, db.Create(promo).Error)
	return promo
}

// CreateOrder inserts a pending order directly, bypassing checkout rules.
func CreateOrder(t testing.TB, db *gorm.DB, userID *uint, paymentReference string) *models.Order {
	t.Helper()
	order := &models.Order{
		Reference:        "ord_" + uuid.NewString()[:8],
		UserID:           userID,
		Amount:           Dec("30"),
		DeliveryFee:      Dec("20"),
		DiscountAmount:   decimal.Zero,
		FinalAmount:      Dec("50"),
		Status:           models.OrderPending,
		PaymentStatus:    models.PaymentPending,
		PaymentReference: paymentReference,
		Email:            "buyer@example.com",
		Name:             "Buyer",
		Items: []models.OrderItem{
			{Position: 0, MenuItemID: 1, Name: "Croissant", Quantity: 2, Price: Dec("15")},
		},
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func UintPtr(v uint) *uint {
	return &v
}
