package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DELIVERY_FEE", "")
	t.Setenv("PAYSTACK_TIMEOUT", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("PROMO_RELEASE_ON_CANCEL", "")

	cfg := Load()

	assert.True(t, cfg.DeliveryFee.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, 10*time.Second, cfg.PaystackTimeout)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.True(t, cfg.PromoReleaseOnCancel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DELIVERY_FEE", "15.50")
	t.Setenv("PAYSTACK_TIMEOUT", "3")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("PROMO_RELEASE_ON_CANCEL", "false")

	cfg := Load()

	assert.Equal(t, "15.5", cfg.DeliveryFee.String())
	assert.Equal(t, 3*time.Second, cfg.PaystackTimeout)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.False(t, cfg.PromoReleaseOnCancel)
}

func TestValidateProductionRequiresSecrets(t *testing.T) {
	cfg := &Config{
		AppEnv:          "production",
		DatabaseURL:     "postgres://x",
		JWTSecret:       "your_jwt_secret",
		PaystackTimeout: time.Second,
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAYSTACK_SECRET_KEY")
	assert.Contains(t, err.Error(), "JWT_SECRET")

	cfg.PaystackSecretKey = "sk_live"
	cfg.JWTSecret = "s3cret"
	assert.NoError(t, cfg.Validate())
}
