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

	"go.uber.org/zap"
)

// PromoInput carries the staff-editable fields of a promo code.
type PromoInput struct {
	Code      string
	Discount  models.Discount
	StartDate time.Time
	EndDate   time.Time
	IsActive  *bool
}

func (in PromoInput) validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return fmt.Errorf("%w: code is required", ErrValidation)
	}
	if err := in.Discount.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return fmt.Errorf("%w: start_date and end_date are required", ErrValidation)
	}
	if in.EndDate.Before(in.StartDate) {
		return fmt.Errorf("%w: end_date must not precede start_date", ErrValidation)
	}
	return nil
}

type PromoService interface {
	Validate(ctx context.Context, code string) (*models.PromoCode, error)
	Create(ctx context.Context, input PromoInput) (*models.PromoCode, error)
	List(ctx context.Context) ([]models.PromoCode, error)
	Get(ctx context.Context, id uint) (*models.PromoCode, error)
	Update(ctx context.Context, id uint, input PromoInput) (*models.PromoCode, error)
	Toggle(ctx context.Context, id uint) (*models.PromoCode, error)
	Deactivate(ctx context.Context, id uint) error
}

type promoService struct {
	promoRepo repository.PromoRepository
	log       *zap.Logger
	now       func() time.Time
}

func NewPromoService(promoRepo repository.PromoRepository, log *zap.Logger) PromoService {
	return &promoService{promoRepo: promoRepo, log: logger.OrNop(log), now: time.Now}
}

// Validate returns the code only while it is active and inside its window.
// Every failure, including an unknown code, surfaces as ErrPromoInvalid.
func (s *promoService) Validate(ctx context.Context, code string) (*models.PromoCode, error) {
	return lookupActivePromo(ctx, s.promoRepo, code, s.now())
}

func lookupActivePromo(ctx context.Context, repo repository.PromoRepository, code string, now time.Time) (*models.PromoCode, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrPromoInvalid
	}
	promo, err := repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPromoInvalid
		}
		return nil, err
	}
	if !promo.ActiveAt(now) {
		return nil, ErrPromoInvalid
	}
	return promo, nil
}

// redeemPromo validates the code and counts one use of it. It must run
// inside the checkout transaction so a failed insert also undoes the count.
func redeemPromo(ctx context.Context, repo repository.PromoRepository, code string, now time.Time) (*models.PromoCode, error) {
	promo, err := lookupActivePromo(ctx, repo, code, now)
	if err != nil {
		return nil, err
	}
	ok, err := repo.IncrementUsage(ctx, promo.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to redeem promo code: %w", err)
	}
	if !ok {
		return nil, ErrPromoInvalid
	}
	promo.UsageCount++
	metrics.PromoRedemptions.WithLabelValues("redeem").Inc()
	return promo, nil
}

func (s *promoService) Create(ctx context.Context, input PromoInput) (*models.PromoCode, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	promo := &models.PromoCode{
		Code:      strings.TrimSpace(input.Code),
		Discount:  input.Discount,
		StartDate: input.StartDate.UTC(),
		EndDate:   input.EndDate.UTC(),
		IsActive:  active,
	}
	if err := s.promoRepo.Create(ctx, promo); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: promo code %q already exists", ErrConflict, promo.Code)
		}
		return nil, fmt.Errorf("failed to create promo code: %w", err)
	}
	s.log.Info("promo code created", zap.String("code", promo.Code), zap.String("discount", promo.Discount.String()))
	return promo, nil
}

func (s *promoService) List(ctx context.Context) ([]models.PromoCode, error) {
	return s.promoRepo.GetAll(ctx)
}

func (s *promoService) Get(ctx context.Context, id uint) (*models.PromoCode, error) {
	promo, err := s.promoRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPromoNotFound
		}
		return nil, err
	}
	return promo, nil
}

func (s *promoService) Update(ctx context.Context, id uint, input PromoInput) (*models.PromoCode, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	promo, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	promo.Code = strings.TrimSpace(input.Code)
	promo.Discount = input.Discount
	promo.StartDate = input.StartDate.UTC()
	promo.EndDate = input.EndDate.UTC()
	if input.IsActive != nil {
		promo.IsActive = *input.IsActive
	}

	if err := s.promoRepo.Update(ctx, promo); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: promo code %q already exists", ErrConflict, promo.Code)
		}
		return nil, fmt.Errorf("failed to update promo code: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *promoService) Toggle(ctx context.Context, id uint) (*models.PromoCode, error) {
	promo, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.promoRepo.SetActive(ctx, id, !promo.IsActive); err != nil {
		return nil, fmt.Errorf("failed to toggle promo code: %w", err)
	}
	promo.IsActive = !promo.IsActive
	return promo, nil
}

// Deactivate retires a code without deleting it; past orders keep pointing at it.
func (s *promoService) Deactivate(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.promoRepo.SetActive(ctx, id, false)
}
