package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bakery_orders/internal/logger"
	"bakery_orders/internal/metrics"
	"bakery_orders/internal/models"
	"bakery_orders/internal/repository"
	"bakery_orders/pkg/paystack"

	"go.uber.org/zap"
)

// PaymentGateway is the outbound half of the Paystack integration.
type PaymentGateway interface {
	VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error)
}

// EventDeduper remembers webhook events that were already reconciled.
// It is an optimisation only; the conditional update is what keeps
// reconciliation idempotent.
type EventDeduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string, ttl time.Duration) error
}

type WebhookStatus string

const (
	WebhookSuccess   WebhookStatus = "success"
	WebhookIgnored   WebhookStatus = "ignored"
	WebhookDuplicate WebhookStatus = "duplicate"
)

// PaymentResult describes one reconciliation attempt. Applied is true only
// for the call that actually moved the order to paid.
type PaymentResult struct {
	Order   *models.Order
	Applied bool
}

type PaymentConfig struct {
	WebhookSecret string
	VerifyTimeout time.Duration
	DedupeTTL     time.Duration
}

type PaymentService interface {
	HandleWebhook(ctx context.Context, body []byte, signature string) (WebhookStatus, error)
	Verify(ctx context.Context, paymentReference string) (*PaymentResult, error)
}

type paymentService struct {
	orderRepo repository.OrderRepository
	gateway   PaymentGateway
	deduper   EventDeduper
	notifier  NotificationService
	cfg       PaymentConfig
	log       *zap.Logger
	now       func() time.Time
}

func NewPaymentService(orderRepo repository.OrderRepository, gateway PaymentGateway, deduper EventDeduper, notifier NotificationService, cfg PaymentConfig, log *zap.Logger) PaymentService {
	if cfg.VerifyTimeout <= 0 {
		cfg.VerifyTimeout = 10 * time.Second
	}
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = 24 * time.Hour
	}
	return &paymentService{
		orderRepo: orderRepo,
		gateway:   gateway,
		deduper:   deduper,
		notifier:  notifier,
		cfg:       cfg,
		log:       logger.OrNop(log),
		now:       time.Now,
	}
}

// HandleWebhook authenticates the raw body before looking at it, then
// reconciles charge.success events. Everything else is acknowledged as ignored.
func (s *paymentService) HandleWebhook(ctx context.Context, body []byte, signature string) (WebhookStatus, error) {
	if !paystack.VerifySignature(s.cfg.WebhookSecret, body, signature) {
		metrics.WebhookSignatureFailures.Inc()
		return "", ErrInvalidSignature
	}

	event, err := paystack.ParseEvent(body)
	if err != nil {
		return "", fmt.Errorf("%w: malformed webhook payload", ErrValidation)
	}
	if event.Event != paystack.EventChargeSuccess {
		metrics.PaymentReconciliations.WithLabelValues("webhook", "ignored").Inc()
		return WebhookIgnored, nil
	}

	charge, err := event.Charge()
	if err != nil || strings.TrimSpace(charge.Reference) == "" {
		return "", fmt.Errorf("%w: webhook payload has no reference", ErrValidation)
	}

	key := event.Event + ":" + charge.Reference
	if s.seen(ctx, key) {
		metrics.PaymentReconciliations.WithLabelValues("webhook", "duplicate").Inc()
		return WebhookDuplicate, nil
	}

	if _, err := s.applyPaymentSuccess(ctx, charge.Reference, "webhook"); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			s.log.Info("webhook for unknown payment reference", zap.String("payment_reference", charge.Reference))
			return WebhookIgnored, nil
		}
		return "", err
	}

	s.mark(ctx, key)
	return WebhookSuccess, nil
}

// Verify polls the gateway for the transaction and applies the same
// mutation as the webhook path when it reports success.
func (s *paymentService) Verify(ctx context.Context, paymentReference string) (*PaymentResult, error) {
	paymentReference = strings.TrimSpace(paymentReference)
	if paymentReference == "" {
		return nil, fmt.Errorf("%w: reference is required", ErrValidation)
	}

	order, err := s.orderRepo.GetByPaymentReference(ctx, paymentReference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.PaymentStatus == models.PaymentPaid {
		metrics.PaymentReconciliations.WithLabelValues("verify", "already_paid").Inc()
		return &PaymentResult{Order: order}, nil
	}

	verifyCtx, cancel := context.WithTimeout(ctx, s.cfg.VerifyTimeout)
	defer cancel()

	tx, err := s.gateway.VerifyTransaction(verifyCtx, paymentReference)
	if err != nil {
		metrics.PaymentReconciliations.WithLabelValues("verify", "gateway_error").Inc()
		s.log.Warn("payment verification failed",
			zap.String("payment_reference", paymentReference),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if !tx.Succeeded() {
		metrics.PaymentReconciliations.WithLabelValues("verify", "not_successful").Inc()
		return nil, fmt.Errorf("%w: transaction status %q", ErrPaymentNotSuccessful, tx.Status)
	}
	if tx.Reference != "" && tx.Reference != paymentReference {
		metrics.PaymentReconciliations.WithLabelValues("verify", "reference_mismatch").Inc()
		return nil, fmt.Errorf("%w: gateway returned reference %q", ErrPaymentNotSuccessful, tx.Reference)
	}
	if expected := order.FinalAmount.Shift(2).IntPart(); tx.Amount != expected {
		s.log.Warn("gateway amount differs from order total",
			zap.String("payment_reference", paymentReference),
			zap.Int64("gateway_amount", tx.Amount),
			zap.Int64("order_amount", expected),
		)
	}

	return s.applyPaymentSuccess(ctx, paymentReference, "verify")
}

// applyPaymentSuccess is shared by both entry paths. The conditional update
// decides which caller wins; only the winner notifies.
func (s *paymentService) applyPaymentSuccess(ctx context.Context, paymentReference, path string) (*PaymentResult, error) {
	applied, err := s.orderRepo.MarkPaid(ctx, paymentReference, s.now().UTC())
	if err != nil {
		metrics.PaymentReconciliations.WithLabelValues(path, "error").Inc()
		return nil, fmt.Errorf("failed to mark order paid: %w", err)
	}

	order, err := s.orderRepo.GetByPaymentReference(ctx, paymentReference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.PaymentReconciliations.WithLabelValues(path, "unknown_reference").Inc()
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if !applied {
		metrics.PaymentReconciliations.WithLabelValues(path, "already_paid").Inc()
		return &PaymentResult{Order: order}, nil
	}

	metrics.PaymentReconciliations.WithLabelValues(path, "applied").Inc()
	s.log.Info("payment reconciled",
		zap.String("path", path),
		zap.Uint("order_id", order.ID),
		zap.String("payment_reference", paymentReference),
	)
	notifyBestEffort(ctx, s.notifier, s.log, order.UserID,
		"Payment Successful",
		fmt.Sprintf("Payment received for order %s", order.Reference),
		models.NotificationOrder,
	)
	return &PaymentResult{Order: order, Applied: true}, nil
}

func (s *paymentService) seen(ctx context.Context, key string) bool {
	if s.deduper == nil {
		return false
	}
	seen, err := s.deduper.Seen(ctx, key)
	if err != nil {
		s.log.Warn("webhook dedupe lookup failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return seen
}

func (s *paymentService) mark(ctx context.Context, key string) {
	if s.deduper == nil {
		return
	}
	if err := s.deduper.Mark(ctx, key, s.cfg.DedupeTTL); err != nil {
		s.log.Warn("webhook dedupe store failed", zap.String("key", key), zap.Error(err))
	}
}
