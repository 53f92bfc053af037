package handlers

import (
	"time"

	"bakery_orders/internal/logger"
	"bakery_orders/internal/metrics"
	"bakery_orders/internal/middleware"
	"bakery_orders/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterDeps struct {
	AllowedOrigins []string
	Log            *zap.Logger

	Users         services.UserService
	Orders        services.OrderService
	Lifecycle     services.OrderLifecycleService
	Payments      services.PaymentService
	Promos        services.PromoService
	Notifications services.NotificationService
	Stream        StreamServer
	HealthChecks  map[string]HealthCheck
}

func NewRouter(deps RouterDeps) *gin.Engine {
	RegisterValidators()

	log := logger.OrNop(deps.Log)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(metrics.Middleware())
	corsConfig := cors.Config{
		AllowOrigins:     deps.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(deps.AllowedOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	authHandler := NewAuthHandler(deps.Users, log)
	orderHandler := NewOrderHandler(deps.Orders, deps.Lifecycle, log)
	paymentHandler := NewPaymentHandler(deps.Payments, log)
	promoHandler := NewPromoHandler(deps.Promos, log)
	notificationHandler := NewNotificationHandler(deps.Notifications, deps.Stream, log)
	healthHandler := NewHealthHandler(deps.HealthChecks)

	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	requireAuth := middleware.RequireAuth(deps.Users)
	requireStaff := middleware.RequireStaff()

	api := router.Group("/api")
	{
		api.POST("/auth/token", authHandler.Token)

		api.POST("/orders", middleware.OptionalAuth(deps.Users), orderHandler.Create)
		api.GET("/orders", requireAuth, orderHandler.ListMine)
		api.GET("/orders/:id", requireAuth, orderHandler.Get)

		api.POST("/payments/webhook", paymentHandler.Webhook)
		api.POST("/payments/verify/:reference", paymentHandler.Verify)

		api.POST("/promo/validate", promoHandler.Validate)
		promo := api.Group("/promo", requireAuth, requireStaff)
		{
			promo.POST("", promoHandler.Create)
			promo.GET("", promoHandler.List)
			promo.GET("/:id", promoHandler.Get)
			promo.PUT("/:id", promoHandler.Update)
			promo.PATCH("/:id/toggle", promoHandler.Toggle)
			promo.DELETE("/:id", promoHandler.Deactivate)
		}

		notifications := api.Group("/notifications", requireAuth)
		{
			notifications.GET("", notificationHandler.List)
			notifications.PATCH("/read-all", notificationHandler.MarkAllRead)
			notifications.PATCH("/:id/read", notificationHandler.MarkRead)
		}

		admin := api.Group("/admin", requireAuth, requireStaff)
		{
			admin.GET("/orders", orderHandler.ListAll)
			admin.PATCH("/orders/:id/status", orderHandler.UpdateStatus)
			admin.GET("/notifications/stream", notificationHandler.Stream)
		}
	}

	return router
}
