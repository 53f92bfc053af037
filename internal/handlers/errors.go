package handlers

import (
	"errors"
	"net/http"

	"bakery_orders/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{services.ErrValidation, http.StatusBadRequest},
	{services.ErrPromoInvalid, http.StatusBadRequest},
	{services.ErrUnauthenticated, http.StatusUnauthorized},
	{services.ErrInvalidSignature, http.StatusUnauthorized},
	{services.ErrForbidden, http.StatusForbidden},
	{services.ErrOrderNotFound, http.StatusNotFound},
	{services.ErrPromoNotFound, http.StatusNotFound},
	{services.ErrNotificationNotFound, http.StatusNotFound},
	{services.ErrConflict, http.StatusConflict},
	{services.ErrInvalidTransition, http.StatusConflict},
	{services.ErrTotalsMismatch, http.StatusUnprocessableEntity},
	{services.ErrPaymentNotSuccessful, http.StatusUnprocessableEntity},
	{services.ErrGatewayUnavailable, http.StatusBadGateway},
}

// respondError maps service errors onto HTTP responses. Anything unmapped is
// logged and reported as a bare 500.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	for _, m := range errorStatus {
		if !errors.Is(err, m.err) {
			continue
		}
		msg := err.Error()
		switch m.err {
		case services.ErrInvalidSignature, services.ErrPromoInvalid, services.ErrGatewayUnavailable:
			msg = m.err.Error()
		}
		c.JSON(m.status, gin.H{"error": msg})
		return
	}

	_ = c.Error(err)
	log.Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
}
