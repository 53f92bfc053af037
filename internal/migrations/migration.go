package migrations

import (
	"context"
	"errors"
	"time"

	"bakery_orders/internal/database"
	"bakery_orders/internal/models"
	"bakery_orders/internal/repository"
	"bakery_orders/internal/services"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RunMigrations brings the schema up to date. It never drops tables.
func RunMigrations(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	if err := database.Migrate(db); err != nil {
		return err
	}
	log.Info("database migrations completed")
	return nil
}

type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
	Now           time.Time
}

// Seed creates the default staff account, a starter menu and a welcome
// promo code. Each piece is skipped when it already exists.
func Seed(ctx context.Context, store *repository.Store, users services.UserService, opts SeedOptions, log *zap.Logger) error {
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}

	if err := seedAdmin(ctx, store, users, opts, log); err != nil {
		return err
	}
	if err := seedMenu(ctx, store, log); err != nil {
		return err
	}
	return seedPromo(ctx, store, opts.Now, log)
}

func seedAdmin(ctx context.Context, store *repository.Store, users services.UserService, opts SeedOptions, log *zap.Logger) error {
	_, err := store.Users.GetByEmail(ctx, opts.AdminEmail)
	if err == nil {
		log.Info("staff user already exists", zap.String("email", opts.AdminEmail))
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	admin := &models.User{
		Fullname: "Bakery Admin",
		Email:    opts.AdminEmail,
		Role:     string(models.RoleAdmin),
		Status:   models.UserActive,
	}
	if err := users.CreateUser(ctx, admin, opts.AdminPassword); err != nil {
		return err
	}
	log.Info("staff user created", zap.String("email", admin.Email))
	return nil
}

func seedMenu(ctx context.Context, store *repository.Store, log *zap.Logger) error {
	count, err := store.Menu.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	menu := []models.MenuItem{
		{Name: "Meat Pie", Description: "Flaky pastry with spiced minced beef", Price: decimal.NewFromInt(25), Status: "active"},
		{Name: "Croissant", Description: "Butter croissant baked every morning", Price: decimal.NewFromInt(15), Status: "active"},
		{Name: "Sugar Bread", Description: "Soft sweet loaf", Price: decimal.NewFromInt(30), Status: "active"},
		{Name: "Chocolate Cake Slice", Description: "Rich chocolate sponge", Price: decimal.RequireFromString("35.50"), Status: "active"},
	}
	for i := range menu {
		if err := store.Menu.Create(ctx, &menu[i]); err != nil {
			return err
		}
	}
	log.Info("menu seeded", zap.Int("items", len(menu)))
	return nil
}

func seedPromo(ctx context.Context, store *repository.Store, now time.Time, log *zap.Logger) error {
	const code = "WELCOME10"
	_, err := store.Promos.GetByCode(ctx, code)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	promo := &models.PromoCode{
		Code:      code,
		Discount:  models.PercentageDiscount(decimal.NewFromInt(10)),
		StartDate: now,
		EndDate:   now.AddDate(0, 1, 0),
		IsActive:  true,
	}
	if err := store.Promos.Create(ctx, promo); err != nil {
		return err
	}
	log.Info("promo code seeded", zap.String("code", code))
	return nil
}
