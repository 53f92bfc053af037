package handlers

import (
	"net/http"

	"bakery_orders/internal/middleware"
	"bakery_orders/internal/models"
	"bakery_orders/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StreamServer upgrades a request into a live notification feed.
type StreamServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

type NotificationHandler struct {
	notificationService services.NotificationService
	stream              StreamServer
	log                 *zap.Logger
}

func NewNotificationHandler(notificationService services.NotificationService, stream StreamServer, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, stream: stream, log: log}
}

type notificationListQuery struct {
	UserID *uint `form:"user_id"`
	Skip   int   `form:"skip" binding:"min=0"`
	Limit  int   `form:"limit" binding:"min=0,max=100"`
}

func (h *NotificationHandler) List(c *gin.Context) {
	var q notificationListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	notifications, err := h.notificationService.List(c.Request.Context(), middleware.CurrentActor(c), services.NotificationListFilter{
		UserID: q.UserID,
		Skip:   q.Skip,
		Limit:  q.Limit,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	c.JSON(http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	notification, err := h.notificationService.MarkRead(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, notification)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	updated, err := h.notificationService.MarkAllRead(c.Request.Context(), middleware.CurrentActor(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": updated})
}

func (h *NotificationHandler) Stream(c *gin.Context) {
	if h.stream == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notification stream disabled"})
		return
	}
	h.stream.ServeWS(c.Writer, c.Request)
}
