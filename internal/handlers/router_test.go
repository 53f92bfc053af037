package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bakery_orders/internal/models"
	"bakery_orders/internal/redis"
	"bakery_orders/internal/repository"
	"bakery_orders/internal/services"
	"bakery_orders/internal/testutil"
	"bakery_orders/pkg/paystack"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testWebhookSecret = "sk_test_handlers"

type stubGateway struct {
	status string
	err    error
}

func (g stubGateway) VerifyTransaction(_ context.Context, reference string) (*paystack.Transaction, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &paystack.Transaction{Reference: reference, Status: g.status}, nil
}

type testServer struct {
	t          *testing.T
	router     *gin.Engine
	db         *gorm.DB
	staffToken string
	userToken  string
	user       *models.User
	menuItem   *models.MenuItem
}

func newTestServer(t *testing.T, gateway services.PaymentGateway) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	users := services.NewUserService(store.Users, "handler-secret", time.Hour)
	notifications := services.NewNotificationService(store.Notifications, nil, nil)

	ctx := context.Background()
	staff := &models.User{Fullname: "Staff", Email: "staff@example.com", Role: string(models.RoleAdmin)}
	require.NoError(t, users.CreateUser(ctx, staff, "staffpw"))
	customer := &models.User{Fullname: "Ama", Email: "ama@example.com", Role: string(models.RoleUser)}
	require.NoError(t, users.CreateUser(ctx, customer, "amapw"))

	staffToken, _, err := users.Authenticate(ctx, "staff@example.com", "staffpw")
	require.NoError(t, err)
	userToken, _, err := users.Authenticate(ctx, "ama@example.com", "amapw")
	require.NoError(t, err)

	router := NewRouter(RouterDeps{
		AllowedOrigins: []string{"http://localhost:5173"},
		Users:          users,
		Orders:         services.NewOrderService(store, testutil.Dec("20"), nil),
		Lifecycle:      services.NewOrderLifecycleService(store, notifications, true, nil),
		Payments: services.NewPaymentService(store.Orders, gateway, redis.NewMemoryStore(), notifications, services.PaymentConfig{
			WebhookSecret: testWebhookSecret,
			VerifyTimeout: time.Second,
		}, nil),
		Promos:        services.NewPromoService(store.Promos, nil),
		Notifications: notifications,
		HealthChecks: map[string]HealthCheck{
			"database": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		},
	})

	return &testServer{
		t:          t,
		router:     router,
		db:         db,
		staffToken: staffToken,
		userToken:  userToken,
		user:       customer,
		menuItem:   testutil.CreateMenuItem(t, db, "Meat Pie", "25"),
	}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case []byte:
			buf.Write(b)
		case string:
			buf.WriteString(b)
		default:
			require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (s *testServer) checkoutBody(paymentRef string, extra map[string]interface{}) map[string]interface{} {
	body := map[string]interface{}{
		"payment_reference": paymentRef,
		"email":             "ama@example.com",
		"name":              "Ama",
		"items": []map[string]interface{}{
			{"menu_item_id": s.menuItem.ID, "name": "Meat Pie", "quantity": 2, "price": "25.00"},
		},
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

func TestCheckoutEndpoint(t *testing.T) {
	s := newTestServer(t, stubGateway{})
	now := time.Now()
	testutil.CreatePromo(t, s.db, "SAVE10", models.FixedDiscount(testutil.Dec("10")), now.Add(-time.Hour), now.Add(time.Hour), true)

	w := s.do(http.MethodPost, "/api/orders", s.userToken, s.checkoutBody("ps_http", map[string]interface{}{
		"amount":       50,
		"delivery_fee": 20,
		"final_amount": 60,
		"promo_code":   "SAVE10",
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order models.Order
	decode(t, w, &order)
	assert.Equal(t, "60", order.FinalAmount.String())
	assert.Equal(t, models.OrderPending, order.Status)
	require.NotNil(t, order.UserID)
	assert.Equal(t, s.user.ID, *order.UserID)

	w = s.do(http.MethodPost, "/api/orders", "", s.checkoutBody("ps_forged", map[string]interface{}{"final_amount": 1}))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPost, "/api/orders", "", s.checkoutBody("ps_bademail", map[string]interface{}{"email": "nope"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/orders", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/orders", "", s.checkoutBody("ps_http", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/orders", "bogus-token", s.checkoutBody("ps_badtoken", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOrderReadEndpoints(t *testing.T) {
	s := newTestServer(t, stubGateway{})
	mine := testutil.CreateOrder(t, s.db, &s.user.ID, "ps_mine")
	someoneElse := testutil.CreateOrder(t, s.db, testutil.UintPtr(s.user.ID+100), "ps_theirs")

	w := s.do(http.MethodGet, "/api/orders", s.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var orders []models.Order
	decode(t, w, &orders)
	require.Len(t, orders, 1)
	assert.Equal(t, mine.ID, orders[0].ID)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/orders/"+itoa(mine.ID), s.userToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/orders/"+itoa(someoneElse.ID), s.userToken, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/orders/"+itoa(someoneElse.ID), s.staffToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/orders/99999", s.staffToken, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/orders/abc", s.staffToken, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/orders", "", nil).Code)
}

func TestAdminOrderListing(t *testing.T) {
	s := newTestServer(t, stubGateway{})
	for i := 0; i < 25; i++ {
		testutil.CreateOrder(t, s.db, nil, "ps_list_"+itoa(uint(i)))
	}

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/admin/orders", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/admin/orders", s.userToken, nil).Code)

	w := s.do(http.MethodGet, "/api/admin/orders?page=1&per_page=10&payment_status=all", s.staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var page services.OrderPage
	decode(t, w, &page)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, 3, page.Pages)
	assert.Len(t, page.Items, 10)

	w = s.do(http.MethodGet, "/api/admin/orders?page=4&per_page=10", s.staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)
	assert.Empty(t, page.Items)

	today := time.Now().UTC().Format("2006-01-02")
	w = s.do(http.MethodGet, "/api/admin/orders?start_date="+today+"&end_date="+today, s.staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)
	assert.Equal(t, int64(25), page.Total)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/admin/orders?per_page=500", s.staffToken, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/admin/orders?start_date=yesterday", s.staffToken, nil).Code)
}

func TestStatusUpdateEndpoint(t *testing.T) {
	s := newTestServer(t, stubGateway{})
	order := testutil.CreateOrder(t, s.db, &s.user.ID, "ps_status")
	path := "/api/admin/orders/" + itoa(order.ID) + "/status"

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPatch, path, s.userToken, map[string]string{"status": "processing"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPatch, path, s.staffToken, map[string]string{"status": "shipped"}).Code)
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPatch, path, s.staffToken, map[string]string{"status": "delivered"}).Code)

	w := s.do(http.MethodPatch, path, s.staffToken, map[string]string{"status": "processing"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.Order
	decode(t, w, &updated)
	assert.Equal(t, models.OrderProcessing, updated.Status)

	w = s.do(http.MethodGet, "/api/notifications", s.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var inbox []models.Notification
	decode(t, w, &inbox)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.NotificationOrder, inbox[0].Type)
}

func TestWebhookEndpoint(t *testing.T) {
	s := newTestServer(t, stubGateway{})
	order := testutil.CreateOrder(t, s.db, &s.user.ID, "ps_webhook")
	body := []byte(`{"event":"charge.success","data":{"reference":"ps_webhook"}}`)

	send := func(payload []byte, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(payload))
		req.Header.Set(paystack.SignatureHeader, signature)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w
	}

	w := send(body, paystack.Sign("wrong", body))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"invalid signature"}`, w.Body.String())

	w = send(body, paystack.Sign(testWebhookSecret, body))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success"}`, w.Body.String())

	w = send(body, paystack.Sign(testWebhookSecret, body))
	assert.JSONEq(t, `{"status":"duplicate"}`, w.Body.String())

	other := []byte(`{"event":"subscription.create","data":{}}`)
	w = send(other, paystack.Sign(testWebhookSecret, other))
	assert.JSONEq(t, `{"status":"ignored"}`, w.Body.String())

	var stored models.Order
	require.NoError(t, s.db.First(&stored, order.ID).Error)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)

	var count int64
	require.NoError(t, s.db.Model(&models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestVerifyEndpoint(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := newTestServer(t, stubGateway{status: paystack.StatusSuccess})
		testutil.CreateOrder(t, s.db, nil, "ps_verify")

		w := s.do(http.MethodPost, "/api/payments/verify/ps_verify", "", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp struct {
			Status string       `json:"status"`
			Order  models.Order `json:"order"`
		}
		decode(t, w, &resp)
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, models.PaymentPaid, resp.Order.PaymentStatus)

		assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/payments/verify/ps_missing", "", nil).Code)
	})

	t.Run("gateway down", func(t *testing.T) {
		s := newTestServer(t, stubGateway{err: context.DeadlineExceeded})
		testutil.CreateOrder(t, s.db, nil, "ps_down")

		w := s.do(http.MethodPost, "/api/payments/verify/ps_down", "", nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.JSONEq(t, `{"error":"payment gateway unavailable"}`, w.Body.String())
	})

	t.Run("declined", func(t *testing.T) {
		s := newTestServer(t, stubGateway{status: "failed"})
		testutil.CreateOrder(t, s.db, nil, "ps_declined")

		assert.Equal(t, http.StatusUnprocessableEntity, s.do(http.MethodPost, "/api/payments/verify/ps_declined", "", nil).Code)
	})
}

func TestPromoEndpoints(t *testing.T) {
	s := newTestServer(t, stubGateway{})
	now := time.Now().UTC()
	testutil.CreatePromo(t, s.db, "EXPIRED", models.FixedDiscount(testutil.Dec("5")), now.Add(-48*time.Hour), now.Add(-24*time.Hour), true)

	create := map[string]interface{}{
		"code":       "SAVE10",
		"discount":   map[string]interface{}{"type": "fixed", "value": "10"},
		"start_date": now.Add(-time.Hour).Format(time.RFC3339),
		"end_date":   now.Add(time.Hour).Format(time.RFC3339),
	}
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/promo", s.userToken, create).Code)

	w := s.do(http.MethodPost, "/api/promo", s.staffToken, create)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var promo models.PromoCode
	decode(t, w, &promo)

	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/promo", s.staffToken, create).Code)

	create["code"] = "BOGO"
	create["discount"] = map[string]interface{}{"type": "bogo", "value": "1"}
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/promo", s.staffToken, create).Code)

	w = s.do(http.MethodPost, "/api/promo/validate", "", map[string]string{"code": "SAVE10"})
	require.Equal(t, http.StatusOK, w.Code)
	var valid struct {
		Valid      bool            `json:"valid"`
		Discount   models.Discount `json:"discount"`
		UsageCount int             `json:"usage_count"`
	}
	decode(t, w, &valid)
	assert.True(t, valid.Valid)
	assert.Equal(t, models.DiscountFixed, valid.Discount.Type)

	for _, code := range []string{"EXPIRED", "UNKNOWN"} {
		w = s.do(http.MethodPost, "/api/promo/validate", "", map[string]string{"code": code})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"invalid or expired promo code"}`, w.Body.String())
	}

	w = s.do(http.MethodPatch, "/api/promo/"+itoa(promo.ID)+"/toggle", s.staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/promo/validate", "", map[string]string{"code": "SAVE10"}).Code)

	assert.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/api/promo/"+itoa(promo.ID), s.staffToken, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/promo/"+itoa(promo.ID), s.staffToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/promo/9999", s.staffToken, nil).Code)
}

func TestNotificationEndpoints(t *testing.T) {
	s := newTestServer(t, stubGateway{})
	n := models.Notification{UserID: &s.user.ID, Title: "Hi", Message: "m", Type: models.NotificationUser}
	require.NoError(t, s.db.Create(&n).Error)

	w := s.do(http.MethodPatch, "/api/notifications/"+itoa(n.ID)+"/read", s.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var read models.Notification
	decode(t, w, &read)
	assert.True(t, read.Read)

	w = s.do(http.MethodPatch, "/api/notifications/read-all", s.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"updated":0`)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPatch, "/api/notifications/9999/read", s.userToken, nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, s.do(http.MethodGet, "/api/admin/notifications/stream", s.staffToken, nil).Code)
}

func TestAuthTokenEndpoint(t *testing.T) {
	s := newTestServer(t, stubGateway{})

	w := s.do(http.MethodPost, "/api/auth/token", "", map[string]string{"email": "ama@example.com", "password": "amapw"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, w, &resp)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotContains(t, w.Body.String(), "password")

	w = s.do(http.MethodPost, "/api/auth/token", "", map[string]string{"email": "ama@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, stubGateway{})

	w := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok"}}`, w.Body.String())

	w = s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bakery_http_request_duration_seconds")
}
