package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bakery_orders/internal/middleware"
	"bakery_orders/internal/models"
	"bakery_orders/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orderService     services.OrderService
	lifecycleService services.OrderLifecycleService
	log              *zap.Logger
}

func NewOrderHandler(orderService services.OrderService, lifecycleService services.OrderLifecycleService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orderService: orderService, lifecycleService: lifecycleService, log: log}
}

type checkoutItemRequest struct {
	MenuItemID uint            `json:"menu_item_id" binding:"required"`
	Name       string          `json:"name" binding:"required,max=255"`
	Quantity   int             `json:"quantity" binding:"required,gt=0"`
	Price      decimal.Decimal `json:"price"`
	Image      string          `json:"image"`
}

type checkoutRequest struct {
	Amount           *decimal.Decimal      `json:"amount"`
	DeliveryFee      *decimal.Decimal      `json:"delivery_fee"`
	FinalAmount      *decimal.Decimal      `json:"final_amount"`
	PaymentReference string                `json:"payment_reference" binding:"required,max=100"`
	Email            string                `json:"email" binding:"required,email"`
	Name             string                `json:"name" binding:"required,max=255"`
	Phone            string                `json:"phone" binding:"max=50"`
	Address          string                `json:"address" binding:"max=500"`
	PromoCode        *string               `json:"promo_code"`
	Items            []checkoutItemRequest `json:"items" binding:"required,min=1,dive"`
}

type statusUpdateRequest struct {
	Status models.OrderStatus `json:"status" binding:"required,order_status"`
}

type orderListQuery struct {
	Status        string `form:"status"`
	PaymentStatus string `form:"payment_status"`
	StartDate     string `form:"start_date"`
	EndDate       string `form:"end_date"`
	Page          int    `form:"page"`
	PerPage       int    `form:"per_page"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	items := make([]services.CheckoutItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, services.CheckoutItem{
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			Price:      it.Price,
			Image:      it.Image,
		})
	}

	order, err := h.orderService.Create(c.Request.Context(), middleware.CurrentActor(c), services.CheckoutRequest{
		Amount:           req.Amount,
		DeliveryFee:      req.DeliveryFee,
		FinalAmount:      req.FinalAmount,
		PaymentReference: req.PaymentReference,
		Email:            req.Email,
		Name:             req.Name,
		Phone:            req.Phone,
		Address:          req.Address,
		PromoCode:        req.PromoCode,
		Items:            items,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) ListMine(c *gin.Context) {
	orders, err := h.orderService.ListMine(c.Request.Context(), middleware.CurrentActor(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	order, err := h.orderService.Get(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListAll(c *gin.Context) {
	var q orderListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	query := services.OrderQuery{Page: q.Page, PerPage: q.PerPage}
	if q.Status != "" && q.Status != "all" {
		query.Status = models.OrderStatus(q.Status)
	}
	if q.PaymentStatus != "" && q.PaymentStatus != "all" {
		query.PaymentStatus = models.PaymentStatus(q.PaymentStatus)
	}
	var err error
	if query.From, err = parseDate(q.StartDate, false); err != nil {
		respondError(c, h.log, err)
		return
	}
	if query.To, err = parseDate(q.EndDate, true); err != nil {
		respondError(c, h.log, err)
		return
	}

	page, err := h.orderService.ListAll(c.Request.Context(), middleware.CurrentActor(c), query)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	order, err := h.lifecycleService.UpdateStatus(c.Request.Context(), middleware.CurrentActor(c), id, req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return uint(id), true
}

// parseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates. A plain
// end date covers the whole day.
func parseDate(value string, endOfDay bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", services.ErrValidation, value)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
