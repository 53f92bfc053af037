package handlers

import (
	"sync"

	"bakery_orders/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds the domain enum checks to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
			return models.OrderStatus(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("discount_type", func(fl validator.FieldLevel) bool {
			switch models.DiscountType(fl.Field().String()) {
			case models.DiscountPercentage, models.DiscountFixed:
				return true
			}
			return false
		})
	})
}
