package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/lx-boutique/storefront-api/models"
	"github.com/lx-boutique/storefront-api/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkoutBody(productID uint, price string, quantity int, total string) map[string]interface{} {
	return map[string]interface{}{
		"customerName":    "Ama Mensah",
		"customerEmail":   "ama@example.com",
		"customerPhone":   "+233200000000",
		"shippingAddress": "12 Oxford Street",
		"shippingCity":    "Accra",
		"shippingRegion":  "Greater Accra",
		"items": []map[string]interface{}{
			{"productId": productID, "name": "Linen Dress", "quantity": quantity, "price": price, "size": "M"},
		},
		"total": total,
	}
}

func TestCreateOrder_Guest(t *testing.T) {
	env := setupControllerTest(t)
	product := testutil.CreateProduct(t, env.db, "Linen Dress", "250.00", 3)

	w := env.request(t, http.MethodPost, "/api/v1/orders", checkoutBody(product.ID, "250.00", 2, "500.00"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order models.Order
	body := decodeData(t, w, &order)
	assert.False(t, body.Replayed)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "LX"))
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Nil(t, order.UserID)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("500")))

	reloaded := testutil.ReloadProduct(t, env.db, product.ID)
	assert.Equal(t, 1, reloaded.StockQuantity)
	assert.Equal(t, 2, reloaded.SalesCount)
	assert.False(t, reloaded.Sold)

	require.True(t, env.notifier.WaitForSend(2*time.Second), "receipt should be dispatched")
	sent := env.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, order.OrderNumber, sent[0].OrderNumber)
}

func TestCreateOrder_SignedInCustomer(t *testing.T) {
	env := setupControllerTest(t)
	product := testutil.CreateProduct(t, env.db, "Linen Dress", "100.00", 5)

	w := env.request(t, http.MethodPost, "/api/v1/orders", checkoutBody(product.ID, "100.00", 1, "100.00"), env.asCustomer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order models.Order
	decodeData(t, w, &order)
	require.NotNil(t, order.UserID)
	assert.Equal(t, env.customer.ID, *order.UserID)
}

func TestCreateOrder_InvalidTokenPlacesGuestOrder(t *testing.T) {
	env := setupControllerTest(t)
	product := testutil.CreateProduct(t, env.db, "Linen Dress", "100.00", 5)

	w := env.request(t, http.MethodPost, "/api/v1/orders", checkoutBody(product.ID, "100.00", 1, "100.00"), func(req *http.Request) {
		testutil.WithBearer(req, "not-a-token")
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order models.Order
	decodeData(t, w, &order)
	assert.Nil(t, order.UserID)
}

func TestCreateOrder_InsufficientStockLeavesNothingBehind(t *testing.T) {
	env := setupControllerTest(t)
	product := testutil.CreateProduct(t, env.db, "Linen Dress", "100.00", 1)

	w := env.request(t, http.MethodPost, "/api/v1/orders", checkoutBody(product.ID, "100.00", 2, "200.00"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INSUFFICIENT_STOCK", decode(t, w).Error.Code)

	assert.Equal(t, 1, testutil.ReloadProduct(t, env.db, product.ID).StockQuantity)
	assert.Equal(t, int64(0), testutil.CountOrders(t, env.db))
}

func TestCreateOrder_LastUnitMarksSold(t *testing.T) {
	env := setupControllerTest(t)
	product := testutil.CreateProduct(t, env.db, "Linen Dress", "80.00", 1)

	w := env.request(t, http.MethodPost, "/api/v1/orders", checkoutBody(product.ID, "80.00", 1, "80.00"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	reloaded := testutil.ReloadProduct(t, env.db, product.ID)
	assert.Equal(t, 0, reloaded.StockQuantity)
	assert.True(t, reloaded.Sold)
}

func TestCreateOrder_ValidationErrors(t *testing.T) {
	env := setupControllerTest(t)
	product := testutil.CreateProduct(t, env.db, "Linen Dress", "100.00", 5)

	tests := []struct {
		name          string
		mutate        func(body map[string]interface{})
		expectedCode  string
		expectedError string
	}{
		{
			name:          "missing email",
			mutate:        func(body map[string]interface{}) { delete(body, "customerEmail") },
			expectedCode:  "VALIDATION_ERROR",
			expectedError: "Valid email is required",
		},
		{
			name:          "malformed email",
			mutate:        func(body map[string]interface{}) { body["customerEmail"] = "not-an-email" },
			expectedCode:  "VALIDATION_ERROR",
			expectedError: "Valid email is required",
		},
		{
			name:          "empty items",
			mutate:        func(body map[string]interface{}) { body["items"] = []interface{}{} },
			expectedCode:  "VALIDATION_ERROR",
			expectedError: "Order must contain items",
		},
		{
			name:          "negative total",
			mutate:        func(body map[string]interface{}) { body["total"] = "-1" },
			expectedCode:  "VALIDATION_ERROR",
			expectedError: "Invalid order total",
		},
		{
			name:         "total that ignores the items",
			mutate:       func(body map[string]interface{}) { body["total"] = "1.00" },
			expectedCode: "TOTAL_MISMATCH",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := checkoutBody(product.ID, "100.00", 1, "100.00")
			tt.mutate(body)

			w := env.request(t, http.MethodPost, "/api/v1/orders", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			resp := decode(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.expectedCode, resp.Error.Code)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, resp.Error.Message)
			}
		})
	}

	assert.Equal(t, 5, testutil.ReloadProduct(t, env.db, product.ID).StockQuantity)
	assert.Equal(t, int64(0), testutil.CountOrders(t, env.db))
}

func TestCreateOrder_MalformedJSON(t *testing.T) {
	env := setupControllerTest(t)

	w := env.request(t, http.MethodPost, "/api/v1/orders", `{"items": [`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w).Error.Code)
}

func TestCreateOrder_WithDiscount(t *testing.T) {
	env := setupControllerTest(t)
	product := testutil.CreateProduct(t, env.db, "Linen Dress", "100.00", 5)
	testutil.CreateDiscount(t, env.db, "save10", models.DiscountTypePercentage, "10", 0, nil)

	body := checkoutBody(product.ID, "100.00", 2, "180.00")
	body["discountCode"] = "SAVE10"
	body["discountAmount"] = "20.00"

	w := env.request(t, http.MethodPost, "/api/v1/orders", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order models.Order
	decodeData(t, w, &order)
	require.NotNil(t, order.DiscountCode)
	assert.Equal(t, "SAVE10", *order.DiscountCode)
	assert.True(t, order.DiscountAmount.Equal(decimal.RequireFromString("20")))

	var discount models.Discount
	require.NoError(t, env.db.Where("code = ?", "SAVE10").First(&discount).Error)
	assert.Equal(t, 1, discount.UsedCount)
}

func TestCreateOrder_InvalidDiscountRollsBack(t *testing.T) {
	env := setupControllerTest(t)
	product := testutil.CreateProduct(t, env.db, "Linen Dress", "100.00", 5)

	body := checkoutBody(product.ID, "100.00", 1, "90.00")
	body["discountCode"] = "NOPE"

	w := env.request(t, http.MethodPost, "/api/v1/orders", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_DISCOUNT", decode(t, w).Error.Code)
	assert.Equal(t, 5, testutil.ReloadProduct(t, env.db, product.ID).StockQuantity)
	assert.Equal(t, int64(0), testutil.CountOrders(t, env.db))
}

func TestCreateOrder_IdempotencyKeyReplays(t *testing.T) {
	env := setupControllerTest(t)
	product := testutil.CreateProduct(t, env.db, "Linen Dress", "100.00", 5)

	withKey := func(req *http.Request) { req.Header.Set(IdempotencyKeyHeader, "checkout-42") }

	first := env.request(t, http.MethodPost, "/api/v1/orders", checkoutBody(product.ID, "100.00", 1, "100.00"), withKey)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	var created models.Order
	decodeData(t, first, &created)

	second := env.request(t, http.MethodPost, "/api/v1/orders", checkoutBody(product.ID, "100.00", 1, "100.00"), withKey)
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())
	var replayed models.Order
	body := decodeData(t, second, &replayed)
	assert.True(t, body.Replayed)
	assert.Equal(t, created.OrderNumber, replayed.OrderNumber)

	assert.Equal(t, 4, testutil.ReloadProduct(t, env.db, product.ID).StockQuantity)
	assert.Equal(t, int64(1), testutil.CountOrders(t, env.db))
}

func TestCreateOrder_IdempotencyKeyFromBody(t *testing.T) {
	env := setupControllerTest(t)
	product := testutil.CreateProduct(t, env.db, "Linen Dress", "100.00", 5)

	body := checkoutBody(product.ID, "100.00", 1, "100.00")
	body["idempotencyKey"] = "body-key"

	require.Equal(t, http.StatusCreated, env.request(t, http.MethodPost, "/api/v1/orders", body).Code)

	body["customerEmail"] = "someone.else@example.com"
	w := env.request(t, http.MethodPost, "/api/v1/orders", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "IDEMPOTENCY_KEY_CONFLICT", decode(t, w).Error.Code)
}

func TestTrackOrder(t *testing.T) {
	env := setupControllerTest(t)
	product := testutil.CreateProduct(t, env.db, "Linen Dress", "100.00", 5)

	w := env.request(t, http.MethodPost, "/api/v1/orders", checkoutBody(product.ID, "100.00", 1, "100.00"))
	require.Equal(t, http.StatusCreated, w.Code)
	var order models.Order
	decodeData(t, w, &order)

	t.Run("matching number and email", func(t *testing.T) {
		w := env.request(t, http.MethodGet, fmt.Sprintf("/api/v1/orders/track/%s?email=AMA@example.com", order.OrderNumber), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var tracked models.TrackedOrder
		decodeData(t, w, &tracked)
		assert.Equal(t, order.OrderNumber, tracked.OrderNumber)
		assert.Equal(t, models.OrderStatusPending, tracked.Status)
	})

	t.Run("missing email", func(t *testing.T) {
		w := env.request(t, http.MethodGet, "/api/v1/orders/track/"+order.OrderNumber, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Email verification required to track order", decode(t, w).Error.Message)
	})

	t.Run("mismatches are indistinguishable", func(t *testing.T) {
		wrongEmail := env.request(t, http.MethodGet, fmt.Sprintf("/api/v1/orders/track/%s?email=other@example.com", order.OrderNumber), nil)
		wrongNumber := env.request(t, http.MethodGet, "/api/v1/orders/track/LX19990101ABCDEF?email=ama@example.com", nil)

		assert.Equal(t, http.StatusNotFound, wrongEmail.Code)
		assert.Equal(t, http.StatusNotFound, wrongNumber.Code)
		assert.Equal(t, wrongEmail.Body.String(), wrongNumber.Body.String())
	})
}

func TestListOrders_AdminOnly(t *testing.T) {
	env := setupControllerTest(t)
	product := testutil.CreateProduct(t, env.db, "Linen Dress", "100.00", 5)
	require.Equal(t, http.StatusCreated, env.request(t, http.MethodPost, "/api/v1/orders", checkoutBody(product.ID, "100.00", 1, "100.00")).Code)

	t.Run("guest is rejected", func(t *testing.T) {
		w := env.request(t, http.MethodGet, "/api/v1/orders", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("customer is forbidden", func(t *testing.T) {
		w := env.request(t, http.MethodGet, "/api/v1/orders", nil, func(req *http.Request) {
			testutil.WithAdminCookie(req, env.customerToken)
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin sees all orders", func(t *testing.T) {
		w := env.request(t, http.MethodGet, "/api/v1/orders", nil, env.asAdmin)
		require.Equal(t, http.StatusOK, w.Code)

		var orders []models.Order
		decodeData(t, w, &orders)
		assert.Len(t, orders, 1)
	})

	t.Run("status filter", func(t *testing.T) {
		w := env.request(t, http.MethodGet, "/api/v1/orders?status=shipped", nil, env.asAdmin)
		require.Equal(t, http.StatusOK, w.Code)

		var orders []models.Order
		decodeData(t, w, &orders)
		assert.Empty(t, orders)

		w = env.request(t, http.MethodGet, "/api/v1/orders?status=lost", nil, env.asAdmin)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListMyOrders(t *testing.T) {
	env := setupControllerTest(t)
	product := testutil.CreateProduct(t, env.db, "Linen Dress", "100.00", 5)

	require.Equal(t, http.StatusCreated, env.request(t, http.MethodPost, "/api/v1/orders", checkoutBody(product.ID, "100.00", 1, "100.00"), env.asCustomer).Code)
	require.Equal(t, http.StatusCreated, env.request(t, http.MethodPost, "/api/v1/orders", checkoutBody(product.ID, "100.00", 1, "100.00")).Code)

	w := env.request(t, http.MethodGet, "/api/v1/orders/my-orders", nil, env.asCustomer)
	require.Equal(t, http.StatusOK, w.Code)

	var orders []models.Order
	decodeData(t, w, &orders)
	require.Len(t, orders, 1)
	assert.Equal(t, env.customer.ID, *orders[0].UserID)

	w = env.request(t, http.MethodGet, "/api/v1/orders/my-orders", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateOrderStatus(t *testing.T) {
	env := setupControllerTest(t)
	product := testutil.CreateProduct(t, env.db, "Linen Dress", "100.00", 5)

	w := env.request(t, http.MethodPost, "/api/v1/orders", checkoutBody(product.ID, "100.00", 1, "100.00"))
	require.Equal(t, http.StatusCreated, w.Code)
	var order models.Order
	decodeData(t, w, &order)
	path := fmt.Sprintf("/api/v1/orders/%d", order.ID)

	w = env.request(t, http.MethodPatch, path, map[string]string{"status": "shipped"}, env.asAdmin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.Order
	decodeData(t, w, &updated)
	assert.Equal(t, models.OrderStatusShipped, updated.Status)

	w = env.request(t, http.MethodPatch, path, map[string]string{"status": "pending"}, env.asAdmin)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_STATUS_TRANSITION", decode(t, w).Error.Code)

	w = env.request(t, http.MethodPatch, path, map[string]string{}, env.asAdmin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.request(t, http.MethodPatch, "/api/v1/orders/9999", map[string]string{"status": "shipped"}, env.asAdmin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteOrder(t *testing.T) {
	env := setupControllerTest(t)
	product := testutil.CreateProduct(t, env.db, "Linen Dress", "100.00", 5)

	w := env.request(t, http.MethodPost, "/api/v1/orders", checkoutBody(product.ID, "100.00", 1, "100.00"))
	require.Equal(t, http.StatusCreated, w.Code)
	var order models.Order
	decodeData(t, w, &order)
	path := fmt.Sprintf("/api/v1/orders/%d", order.ID)

	w = env.request(t, http.MethodDelete, path, nil, env.asAdmin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(0), testutil.CountOrders(t, env.db))

	w = env.request(t, http.MethodDelete, path, nil, env.asAdmin)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Order not found", decode(t, w).Error.Message)

	w = env.request(t, http.MethodDelete, "/api/v1/orders/abc", nil, env.asAdmin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", decode(t, w).Error.Code)
}
