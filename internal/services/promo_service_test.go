package services

import (
	"context"
	"testing"
	"time"

	"bakery_orders/internal/models"
	"bakery_orders/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePromoUniformFailures(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	ten := models.FixedDiscount(testutil.Dec("10"))
	testutil.CreatePromo(t, f.db, "FUTURE", ten, now.Add(24*time.Hour), now.Add(48*time.Hour), true)
	testutil.CreatePromo(t, f.db, "EXPIRED", ten, now.Add(-48*time.Hour), now.Add(-24*time.Hour), true)
	testutil.CreatePromo(t, f.db, "DISABLED", ten, now.Add(-time.Hour), now.Add(time.Hour), false)
	testutil.CreatePromo(t, f.db, "LIVE", ten, now.Add(-time.Hour), now.Add(time.Hour), true)

	svc := NewPromoService(f.store.Promos, nil)

	var messages []string
	for _, code := range []string{"FUTURE", "EXPIRED", "DISABLED", "NOPE", ""} {
		_, err := svc.Validate(context.Background(), code)
		require.ErrorIs(t, err, ErrPromoInvalid, code)
		messages = append(messages, err.Error())
	}
	for _, msg := range messages {
		assert.Equal(t, "invalid or expired promo code", msg)
	}

	promo, err := svc.Validate(context.Background(), "LIVE")
	require.NoError(t, err)
	assert.Equal(t, "10.00", promo.Discount.String())
	assert.Equal(t, 0, promo.UsageCount)
}

func TestValidatePromoIsCaseSensitive(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	testutil.CreatePromo(t, f.db, "SAVE10", models.FixedDiscount(testutil.Dec("10")), now.Add(-time.Hour), now.Add(time.Hour), true)

	_, err := NewPromoService(f.store.Promos, nil).Validate(context.Background(), "save10")
	assert.ErrorIs(t, err, ErrPromoInvalid)
}

func TestValidatePromoWindowIsInclusive(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)
	testutil.CreatePromo(t, f.db, "JAN", models.PercentageDiscount(testutil.Dec("15")), start, end, true)

	svc := NewPromoService(f.store.Promos, nil).(*promoService)

	svc.now = func() time.Time { return start }
	_, err := svc.Validate(context.Background(), "JAN")
	assert.NoError(t, err)

	svc.now = func() time.Time { return end }
	_, err = svc.Validate(context.Background(), "JAN")
	assert.NoError(t, err)

	svc.now = func() time.Time { return end.Add(time.Second) }
	_, err = svc.Validate(context.Background(), "JAN")
	assert.ErrorIs(t, err, ErrPromoInvalid)
}

func promoInput(code string) PromoInput {
	now := time.Now().UTC()
	return PromoInput{
		Code:      code,
		Discount:  models.PercentageDiscount(testutil.Dec("20")),
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(24 * time.Hour),
	}
}

func TestCreatePromo(t *testing.T) {
	f := newFixture(t)
	svc := NewPromoService(f.store.Promos, nil)
	ctx := context.Background()

	promo, err := svc.Create(ctx, promoInput("WELCOME"))
	require.NoError(t, err)
	assert.True(t, promo.IsActive)
	assert.Equal(t, "20%", promo.Discount.String())

	_, err = svc.Create(ctx, promoInput("WELCOME"))
	assert.ErrorIs(t, err, ErrConflict)

	bad := promoInput("BAD")
	bad.Discount = models.PercentageDiscount(testutil.Dec("120"))
	_, err = svc.Create(ctx, bad)
	assert.ErrorIs(t, err, ErrValidation)

	backwards := promoInput("BACKWARDS")
	backwards.EndDate = backwards.StartDate.Add(-time.Minute)
	_, err = svc.Create(ctx, backwards)
	assert.ErrorIs(t, err, ErrValidation)

	untyped := promoInput("UNTYPED")
	untyped.Discount = models.Discount{Type: "bogo", Value: testutil.Dec("1")}
	_, err = svc.Create(ctx, untyped)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdatePromo(t *testing.T) {
	f := newFixture(t)
	svc := NewPromoService(f.store.Promos, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, promoInput("FIRST"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, promoInput("SECOND"))
	require.NoError(t, err)
	_, err = f.store.Promos.IncrementUsage(ctx, first.ID)
	require.NoError(t, err)

	in := promoInput("FIRST")
	in.Discount = models.FixedDiscount(testutil.Dec("7.5"))
	updated, err := svc.Update(ctx, first.ID, in)
	require.NoError(t, err)
	assert.Equal(t, models.DiscountFixed, updated.Discount.Type)
	assert.Equal(t, 1, updated.UsageCount)

	_, err = svc.Update(ctx, first.ID, promoInput("SECOND"))
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Update(ctx, first.ID+100, promoInput("GHOST"))
	assert.ErrorIs(t, err, ErrPromoNotFound)
}

func TestTogglePromoAndDeactivate(t *testing.T) {
	f := newFixture(t)
	svc := NewPromoService(f.store.Promos, nil)
	ctx := context.Background()

	promo, err := svc.Create(ctx, promoInput("FLIP"))
	require.NoError(t, err)

	toggled, err := svc.Toggle(ctx, promo.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)
	_, err = svc.Validate(ctx, "FLIP")
	assert.ErrorIs(t, err, ErrPromoInvalid)

	toggled, err = svc.Toggle(ctx, promo.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)

	require.NoError(t, svc.Deactivate(ctx, promo.ID))
	kept, err := svc.Get(ctx, promo.ID)
	require.NoError(t, err)
	assert.False(t, kept.IsActive)

	assert.ErrorIs(t, svc.Deactivate(ctx, promo.ID+100), ErrPromoNotFound)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
