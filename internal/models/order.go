package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	Reference        string          `json:"reference" gorm:"uniqueIndex;size:32;not null"`
	UserID           *uint           `json:"user_id" gorm:"index"`
	Amount           decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	DeliveryFee      decimal.Decimal `json:"delivery_fee" gorm:"type:decimal(10,2);not null"`
	DiscountAmount   decimal.Decimal `json:"discount" gorm:"type:decimal(10,2);not null"`
	FinalAmount      decimal.Decimal `json:"final_amount" gorm:"type:decimal(10,2);not null"`
	Status           OrderStatus     `json:"status" gorm:"size:20;not null;index"`
	PaymentStatus    PaymentStatus   `json:"payment_status" gorm:"size:20;not null;index"`
	PaymentReference string          `json:"payment_reference" gorm:"uniqueIndex;size:100;not null"`
	PromoCode        *string         `json:"promo_code" gorm:"size:50;index"`
	PromoCodeID      *uint           `json:"promo_code_id" gorm:"index"`
	Email            string          `json:"email" gorm:"size:255;not null"`
	Name             string          `json:"name" gorm:"size:255;not null"`
	Phone            string          `json:"phone" gorm:"size:50"`
	Address          string          `json:"address" gorm:"size:500"`
	Items            []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	PaidAt           *time.Time      `json:"paid_at"`
	CreatedAt        time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ComputeFinalAmount is amount + delivery_fee - discount; it never drops below zero.
func ComputeFinalAmount(amount, deliveryFee, discount decimal.Decimal) decimal.Decimal {
	total := amount.Add(deliveryFee).Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// IsOwnedBy reports whether the order belongs to the given user id.
func (o *Order) IsOwnedBy(userID uint) bool {
	return o.UserID != nil && *o.UserID == userID
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
	OrderDelivered  OrderStatus = "delivered"
)

// OrderStatuses lists every accepted fulfillment status.
var OrderStatuses = []OrderStatus{OrderPending, OrderProcessing, OrderCompleted, OrderCancelled, OrderDelivered}

func (s OrderStatus) Valid() bool {
	for _, candidate := range OrderStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentPaid
}
