package handlers

import (
	"net/http"
	"time"

	"bakery_orders/internal/models"
	"bakery_orders/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PromoHandler struct {
	promoService services.PromoService
	log          *zap.Logger
}

func NewPromoHandler(promoService services.PromoService, log *zap.Logger) *PromoHandler {
	return &PromoHandler{promoService: promoService, log: log}
}

type discountRequest struct {
	Type  models.DiscountType `json:"type" binding:"required,discount_type"`
	Value decimal.Decimal     `json:"value"`
}

type promoRequest struct {
	Code      string          `json:"code" binding:"required,max=50"`
	Discount  discountRequest `json:"discount"`
	StartDate time.Time       `json:"start_date" binding:"required"`
	EndDate   time.Time       `json:"end_date" binding:"required"`
	IsActive  *bool           `json:"is_active"`
}

func (r promoRequest) input() services.PromoInput {
	return services.PromoInput{
		Code:      r.Code,
		Discount:  models.Discount{Type: r.Discount.Type, Value: r.Discount.Value},
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		IsActive:  r.IsActive,
	}
}

type validatePromoRequest struct {
	Code string `json:"code" binding:"required"`
}

// Validate answers whether a code can be used right now. Every failure gets
// the same message.
func (h *PromoHandler) Validate(c *gin.Context) {
	var req validatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, services.ErrPromoInvalid)
		return
	}
	promo, err := h.promoService.Validate(c.Request.Context(), req.Code)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":       true,
		"code":        promo.Code,
		"discount":    promo.Discount,
		"usage_count": promo.UsageCount,
	})
}

func (h *PromoHandler) Create(c *gin.Context) {
	var req promoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	promo, err := h.promoService.Create(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, promo)
}

func (h *PromoHandler) List(c *gin.Context) {
	promos, err := h.promoService.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if promos == nil {
		promos = []models.PromoCode{}
	}
	c.JSON(http.StatusOK, promos)
}

func (h *PromoHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	promo, err := h.promoService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, promo)
}

func (h *PromoHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req promoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	promo, err := h.promoService.Update(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, promo)
}

func (h *PromoHandler) Toggle(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	promo, err := h.promoService.Toggle(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, promo)
}

func (h *PromoHandler) Deactivate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.promoService.Deactivate(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Promo code deactivated"})
}
