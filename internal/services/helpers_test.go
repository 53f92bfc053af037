package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bakery_orders/internal/models"
	"bakery_orders/internal/repository"
	"bakery_orders/internal/testutil"
	"bakery_orders/pkg/paystack"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var staffActor = &Actor{ID: 9999, Role: models.RoleAdmin}

func userActor(u *models.User) *Actor {
	return &Actor{ID: u.ID, Role: models.RoleUser}
}

type fixture struct {
	db       *gorm.DB
	store    *repository.Store
	notifier NotificationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	return &fixture{
		db:       db,
		store:    store,
		notifier: NewNotificationService(store.Notifications, nil, nil),
	}
}

func (f *fixture) orders() *orderService {
	return NewOrderService(f.store, testutil.Dec("20"), nil).(*orderService)
}

func (f *fixture) notificationCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Notification{}).Count(&n).Error)
	return n
}

func (f *fixture) reload(t *testing.T, id uint) *models.Order {
	t.Helper()
	order, err := f.store.Orders.GetByID(context.Background(), id)
	require.NoError(t, err)
	return order
}

func (f *fixture) promoUsage(t *testing.T, code string) int {
	t.Helper()
	promo, err := f.store.Promos.GetByCode(context.Background(), code)
	require.NoError(t, err)
	return promo.UsageCount
}

type fakeGateway struct {
	mu     sync.Mutex
	status string
	amount int64
	ref    string
	err    error
	delay  time.Duration
	calls  int
}

func (g *fakeGateway) VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error) {
	g.mu.Lock()
	g.calls++
	status, amount, ref, err, delay := g.status, g.amount, g.ref, g.err, g.delay
	g.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if ref == "" {
		ref = reference
	}
	return &paystack.Transaction{Reference: ref, Status: status, Amount: amount}, nil
}

func (g *fakeGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type failingNotifier struct{}

func (failingNotifier) Emit(context.Context, *uint, string, string, models.NotificationType) (*models.Notification, error) {
	return nil, errors.New("notification store down")
}

func (failingNotifier) List(context.Context, *Actor, NotificationListFilter) ([]models.Notification, error) {
	return nil, nil
}

func (failingNotifier) MarkRead(context.Context, *Actor, uint) (*models.Notification, error) {
	return nil, nil
}

func (failingNotifier) MarkAllRead(context.Context, *Actor) (int64, error) {
	return 0, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (p *recordingPublisher) Publish(n models.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
}
