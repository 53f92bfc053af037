package handlers

import (
	"errors"
	"io"
	"net/http"

	"bakery_orders/internal/services"
	"bakery_orders/pkg/paystack"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	paymentService services.PaymentService
	log            *zap.Logger
}

func NewPaymentHandler(paymentService services.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, log: log}
}

// Webhook must see the body exactly as sent; it is never bound before the
// signature is checked.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	status, err := h.paymentService.HandleWebhook(c.Request.Context(), body, c.GetHeader(paystack.SignatureHeader))
	if err != nil {
		if errors.Is(err, services.ErrInvalidSignature) {
			h.log.Warn("webhook signature rejected",
				zap.String("remote_addr", c.ClientIP()),
				zap.Int("body_bytes", len(body)),
			)
		}
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *PaymentHandler) Verify(c *gin.Context) {
	result, err := h.paymentService.Verify(c.Request.Context(), c.Param("reference"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Payment verified successfully",
		"order":   result.Order,
	})
}
