package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bakery_orders/internal/config"
	"bakery_orders/internal/database"
	"bakery_orders/internal/handlers"
	"bakery_orders/internal/logger"
	"bakery_orders/internal/migrations"
	"bakery_orders/internal/realtime"
	"bakery_orders/internal/redis"
	"bakery_orders/internal/repository"
	"bakery_orders/internal/services"
	"bakery_orders/pkg/paystack"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "server",
		Short:         "Bakery order and payment service",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Migrate the schema and serve the HTTP API",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply schema migrations and exit",
			RunE:  runMigrate,
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Create the default staff user, starter menu and welcome promo",
			RunE:  runSeed,
		},
	)
	return root
}

// bootstrap loads configuration and opens the database shared by every command.
func bootstrap() (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	db, err := database.Initialize(cfg.DatabaseURL, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, db, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	_, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()
	return migrations.RunMigrations(db, log)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := migrations.RunMigrations(db, log); err != nil {
		return err
	}
	store := repository.NewStore(db)
	users := services.NewUserService(store.Users, cfg.JWTSecret, cfg.JWTTTL)
	return migrations.Seed(cmd.Context(), store, users, migrations.SeedOptions{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
	}, log)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := migrations.RunMigrations(db, log); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthChecks := map[string]handlers.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	var deduper services.EventDeduper = redis.NewMemoryStore()
	if cfg.RedisURL != "" {
		redisClient, err := redis.Initialize(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		deduper = redisClient
		healthChecks["redis"] = redisClient.Ping
		log.Info("redis connected")
	} else {
		log.Info("REDIS_URL not set, using in-memory webhook dedupe")
	}

	hub := realtime.NewHub(cfg.AllowedOrigins, log)
	go hub.Run(ctx)

	store := repository.NewStore(db)
	gateway := paystack.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey, cfg.PaystackTimeout)

	userService := services.NewUserService(store.Users, cfg.JWTSecret, cfg.JWTTTL)
	notificationService := services.NewNotificationService(store.Notifications, hub, log)
	orderService := services.NewOrderService(store, cfg.DeliveryFee, log)
	lifecycleService := services.NewOrderLifecycleService(store, notificationService, cfg.PromoReleaseOnCancel, log)
	promoService := services.NewPromoService(store.Promos, log)
	paymentService := services.NewPaymentService(store.Orders, gateway, deduper, notificationService, services.PaymentConfig{
		WebhookSecret: cfg.PaystackSecretKey,
		VerifyTimeout: cfg.PaystackTimeout,
		DedupeTTL:     cfg.WebhookDedupeTTL,
	}, log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.RouterDeps{
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            log,
		Users:          userService,
		Orders:         orderService,
		Lifecycle:      lifecycleService,
		Payments:       paymentService,
		Promos:         promoService,
		Notifications:  notificationService,
		Stream:         hub,
		HealthChecks:   healthChecks,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
