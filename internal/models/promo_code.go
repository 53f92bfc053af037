package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type PromoCode struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Code       string    `json:"code" gorm:"uniqueIndex;size:50;not null"`
	Discount   Discount  `json:"discount" gorm:"embedded;embeddedPrefix:discount_"`
	StartDate  time.Time `json:"start_date" gorm:"not null"`
	EndDate    time.Time `json:"end_date" gorm:"not null"`
	UsageCount int       `json:"usage_count" gorm:"not null;default:0"`
	IsActive   bool      `json:"is_active" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ActiveAt reports whether the code is switched on and now falls inside the
// inclusive [StartDate, EndDate] window.
func (p *PromoCode) ActiveAt(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	return !now.Before(p.StartDate) && !now.After(p.EndDate)
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

var (
	ErrDiscountType  = errors.New("discount type must be percentage or fixed")
	ErrDiscountValue = errors.New("discount value out of range")
)

var hundred = decimal.NewFromInt(100)

// Discount is either a percentage of the subtotal or a fixed amount off it.
type Discount struct {
	Type  DiscountType    `json:"type" gorm:"size:20;not null"`
	Value decimal.Decimal `json:"value" gorm:"type:decimal(10,2);not null"`
}

func PercentageDiscount(value decimal.Decimal) Discount {
	return Discount{Type: DiscountPercentage, Value: value}
}

func FixedDiscount(value decimal.Decimal) Discount {
	return Discount{Type: DiscountFixed, Value: value}
}

func (d Discount) Validate() error {
	switch d.Type {
	case DiscountPercentage:
		if !d.Value.IsPositive() || d.Value.GreaterThan(hundred) {
			return ErrDiscountValue
		}
	case DiscountFixed:
		if !d.Value.IsPositive() {
			return ErrDiscountValue
		}
	default:
		return ErrDiscountType
	}
	return nil
}

// Amount returns the discount applied to subtotal, rounded to cents and
// capped at the subtotal.
func (d Discount) Amount(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	var off decimal.Decimal
	switch d.Type {
	case DiscountPercentage:
		off = subtotal.Mul(d.Value).Div(hundred).Round(2)
	case DiscountFixed:
		off = d.Value
	default:
		return decimal.Zero
	}
	if off.GreaterThan(subtotal) {
		return subtotal
	}
	return off
}

func (d Discount) String() string {
	if d.Type == DiscountPercentage {
		return d.Value.String() + "%"
	}
	return d.Value.StringFixed(2)
}
