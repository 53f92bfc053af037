package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"bakery_orders/internal/logger"
	"bakery_orders/internal/metrics"
	"bakery_orders/internal/models"
	"bakery_orders/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

type CheckoutItem struct {
	MenuItemID uint
	Name       string
	Quantity   int
	Price      decimal.Decimal
	Image      string
}

// CheckoutRequest is what a client submits at checkout. Amount, DeliveryFee
// and FinalAmount are optional; when present they must agree with the totals
// the server computes.
type CheckoutRequest struct {
	Amount           *decimal.Decimal
	DeliveryFee      *decimal.Decimal
	FinalAmount      *decimal.Decimal
	PaymentReference string
	Email            string
	Name             string
	Phone            string
	Address          string
	PromoCode        *string
	Items            []CheckoutItem
}

type OrderQuery struct {
	Status        models.OrderStatus
	PaymentStatus models.PaymentStatus
	From          *time.Time
	To            *time.Time
	Page          int
	PerPage       int
}

type OrderPage struct {
	Items   []models.Order `json:"items"`
	Total   int64          `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	Pages   int            `json:"pages"`
}

type OrderService interface {
	Create(ctx context.Context, actor *Actor, req CheckoutRequest) (*models.Order, error)
	Get(ctx context.Context, actor *Actor, id uint) (*models.Order, error)
	ListMine(ctx context.Context, actor *Actor) ([]models.Order, error)
	ListAll(ctx context.Context, actor *Actor, query OrderQuery) (*OrderPage, error)
}

type orderService struct {
	store        *repository.Store
	deliveryFee  decimal.Decimal
	log          *zap.Logger
	now          func() time.Time
	newReference func() string
}

func NewOrderService(store *repository.Store, deliveryFee decimal.Decimal, log *zap.Logger) OrderService {
	return &orderService{
		store:        store,
		deliveryFee:  deliveryFee,
		log:          logger.OrNop(log),
		now:          time.Now,
		newReference: NewOrderReference,
	}
}

// NewOrderReference returns a short opaque token such as "ord_3f9a1c0b7d2e".
func NewOrderReference() string {
	return "ord_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func (s *orderService) Create(ctx context.Context, actor *Actor, req CheckoutRequest) (*models.Order, error) {
	if err := validateCheckout(req); err != nil {
		return nil, err
	}

	amount := decimal.Zero
	items := make([]models.OrderItem, 0, len(req.Items))
	for i, it := range req.Items {
		item := models.OrderItem{
			Position:   i,
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			Price:      it.Price,
			Image:      it.Image,
		}
		amount = amount.Add(item.LineTotal())
		items = append(items, item)
	}
	if req.Amount != nil && !req.Amount.Equal(amount) {
		return nil, fmt.Errorf("%w: amount %s, expected %s", ErrTotalsMismatch, req.Amount.StringFixed(2), amount.StringFixed(2))
	}
	if req.DeliveryFee != nil && !req.DeliveryFee.Equal(s.deliveryFee) {
		return nil, fmt.Errorf("%w: delivery_fee %s, expected %s", ErrTotalsMismatch, req.DeliveryFee.StringFixed(2), s.deliveryFee.StringFixed(2))
	}

	if err := s.checkCatalog(ctx, req.Items); err != nil {
		return nil, err
	}

	order, err := s.insert(ctx, actor, req, amount, items)
	if errors.Is(err, repository.ErrDuplicate) {
		s.log.Warn("order reference collision, retrying", zap.String("payment_reference", req.PaymentReference))
		order, err = s.insert(ctx, actor, req, amount, items)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: could not allocate a unique order reference", ErrConflict)
		}
	}
	if err != nil {
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	s.log.Info("order created",
		zap.Uint("order_id", order.ID),
		zap.String("reference", order.Reference),
		zap.String("final_amount", order.FinalAmount.StringFixed(2)),
	)
	return order, nil
}

// insert runs one checkout attempt in a single transaction: promo redemption,
// order row and line items either all commit or none do.
func (s *orderService) insert(ctx context.Context, actor *Actor, req CheckoutRequest, amount decimal.Decimal, items []models.OrderItem) (*models.Order, error) {
	order := &models.Order{
		Reference:        s.newReference(),
		UserID:           actor.UserID(),
		Amount:           amount,
		DeliveryFee:      s.deliveryFee,
		DiscountAmount:   decimal.Zero,
		Status:           models.OrderPending,
		PaymentStatus:    models.PaymentPending,
		PaymentReference: req.PaymentReference,
		Email:            strings.TrimSpace(req.Email),
		Name:             strings.TrimSpace(req.Name),
		Phone:            req.Phone,
		Address:          req.Address,
		Items:            append([]models.OrderItem(nil), items...),
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		exists, err := tx.Orders.ExistsByPaymentReference(ctx, req.PaymentReference)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: payment reference already used", ErrConflict)
		}

		if req.PromoCode != nil && strings.TrimSpace(*req.PromoCode) != "" {
			promo, err := redeemPromo(ctx, tx.Promos, strings.TrimSpace(*req.PromoCode), s.now())
			if err != nil {
				return err
			}
			code := promo.Code
			promoID := promo.ID
			order.PromoCode = &code
			order.PromoCodeID = &promoID
			order.DiscountAmount = promo.Discount.Amount(amount)
		}

		order.FinalAmount = models.ComputeFinalAmount(order.Amount, order.DeliveryFee, order.DiscountAmount)
		if req.FinalAmount != nil && !req.FinalAmount.Equal(order.FinalAmount) {
			return fmt.Errorf("%w: final_amount %s, expected %s", ErrTotalsMismatch, req.FinalAmount.StringFixed(2), order.FinalAmount.StringFixed(2))
		}

		return tx.Orders.Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func validateCheckout(req CheckoutRequest) error {
	switch {
	case strings.TrimSpace(req.PaymentReference) == "":
		return fmt.Errorf("%w: payment_reference is required", ErrValidation)
	case strings.TrimSpace(req.Email) == "":
		return fmt.Errorf("%w: email is required", ErrValidation)
	case strings.TrimSpace(req.Name) == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case len(req.Items) == 0:
		return fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	for i, it := range req.Items {
		if it.MenuItemID == 0 {
			return fmt.Errorf("%w: items[%d].menu_item_id is required", ErrValidation, i)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: items[%d].quantity must be positive", ErrValidation, i)
		}
		if it.Price.IsNegative() {
			return fmt.Errorf("%w: items[%d].price must not be negative", ErrValidation, i)
		}
	}
	return nil
}

// checkCatalog only confirms each menu item exists. Prices come from the
// submitted snapshot.
func (s *orderService) checkCatalog(ctx context.Context, items []CheckoutItem) error {
	ids := make([]uint, 0, len(items))
	seen := make(map[uint]bool, len(items))
	for _, it := range items {
		if !seen[it.MenuItemID] {
			seen[it.MenuItemID] = true
			ids = append(ids, it.MenuItemID)
		}
	}

	found, err := s.store.Menu.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to look up menu items: %w", err)
	}
	for _, item := range found {
		delete(seen, item.ID)
	}
	for _, id := range ids {
		if seen[id] {
			return fmt.Errorf("%w: menu item %d does not exist", ErrValidation, id)
		}
	}
	return nil
}

func (s *orderService) Get(ctx context.Context, actor *Actor, id uint) (*models.Order, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	order, err := s.store.Orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !actor.IsStaff() && !order.IsOwnedBy(actor.ID) {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *orderService) ListMine(ctx context.Context, actor *Actor) ([]models.Order, error) {
	if actor == nil || actor.ID == 0 {
		return nil, ErrUnauthenticated
	}
	return s.store.Orders.ListByUser(ctx, actor.ID)
}

func (s *orderService) ListAll(ctx context.Context, actor *Actor, query OrderQuery) (*OrderPage, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}

	page, perPage := query.Page, query.PerPage
	if page == 0 {
		page = 1
	}
	if perPage == 0 {
		perPage = defaultPerPage
	}
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be at least 1", ErrValidation)
	}
	if perPage < 1 || perPage > maxPerPage {
		return nil, fmt.Errorf("%w: per_page must be between 1 and %d", ErrValidation, maxPerPage)
	}
	if query.Status != "" && !query.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, query.Status)
	}
	if query.PaymentStatus != "" && !query.PaymentStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown payment_status %q", ErrValidation, query.PaymentStatus)
	}
	if query.From != nil && query.To != nil && query.To.Before(*query.From) {
		return nil, fmt.Errorf("%w: end_date must not precede start_date", ErrValidation)
	}

	orders, total, err := s.store.Orders.List(ctx, repository.OrderFilter{
		Status:        query.Status,
		PaymentStatus: query.PaymentStatus,
		From:          query.From,
		To:            query.To,
		Page:          page,
		PerPage:       perPage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}

	return &OrderPage{
		Items:   orders,
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   int(math.Ceil(float64(total) / float64(perPage))),
	}, nil
}
