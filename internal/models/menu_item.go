package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MenuItem is the read-only catalog entry consumed at checkout.
type MenuItem struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"size:255;not null"`
	Description string          `json:"description" gorm:"size:500"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Image       string          `json:"image" gorm:"size:1000"`
	Status      string          `json:"status" gorm:"size:50;not null"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
