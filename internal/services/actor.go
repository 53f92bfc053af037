package services

import "bakery_orders/internal/models"

// Actor is the authenticated caller as resolved by the identity layer.
type Actor struct {
	ID   uint
	Role models.UserRole
}

func (a *Actor) IsStaff() bool {
	return a != nil && a.Role == models.RoleAdmin
}

// UserID returns the actor id as a pointer, or nil for guests.
func (a *Actor) UserID() *uint {
	if a == nil || a.ID == 0 {
		return nil
	}
	id := a.ID
	return &id
}
