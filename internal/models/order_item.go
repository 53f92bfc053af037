package models

import "github.com/shopspring/decimal"

// OrderItem is a snapshot of a catalog entry taken at checkout. It is never
// re-derived from the live menu.
type OrderItem struct {
	ID         uint            `json:"-" gorm:"primaryKey"`
	OrderID    uint            `json:"-" gorm:"index;not null"`
	Position   int             `json:"-" gorm:"not null"`
	MenuItemID uint            `json:"menu_item_id" gorm:"not null"`
	Name       string          `json:"name" gorm:"size:255;not null"`
	Quantity   int             `json:"quantity" gorm:"not null"`
	Price      decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Image      string          `json:"image" gorm:"size:1000"`
}

// LineTotal returns price * quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
