package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lx-boutique/storefront-api/config"
	"github.com/lx-boutique/storefront-api/middleware"
	"github.com/lx-boutique/storefront-api/models"
	"github.com/lx-boutique/storefront-api/services"
	"github.com/lx-boutique/storefront-api/tests/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// testEnv holds what a handler test needs: the database, the router with
// real authentication, and tokens for one customer and one admin
type testEnv struct {
	db            *gorm.DB
	cfg           *config.Config
	router        *gin.Engine
	notifier      *services.MockNotifier
	customer      models.User
	admin         models.User
	customerToken string
	adminToken    string
}

func setupControllerTest(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testutil.TestConfig()
	db := testutil.SetupTestDB(t)

	notifier := services.NewMockNotifier()
	notifier.SetAsMockForTesting()
	t.Cleanup(func() { services.SetNotifier(nil) })

	services.SetImageService(nil)

	previous := authService
	authService = func() *services.AuthService {
		return services.NewAuthService(config.GetDB()).WithBcryptCost(bcrypt.MinCost)
	}
	t.Cleanup(func() { authService = previous })

	customer := testutil.CreateUser(t, db, "ama@example.com", "Ama Mensah", models.RoleCustomer)
	admin := testutil.CreateUser(t, db, "admin@example.com", "Store Admin", models.RoleAdmin)

	return &testEnv{
		db:            db,
		cfg:           cfg,
		router:        newTestRouter(t, cfg),
		notifier:      notifier,
		customer:      customer,
		admin:         admin,
		customerToken: testutil.IssueToken(t, cfg, customer),
		adminToken:    testutil.IssueToken(t, cfg, admin),
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()

	auth, err := middleware.NewAuthenticator(cfg)
	require.NoError(t, err)

	router := gin.New()
	v1 := router.Group("/api/v1")

	v1.POST("/auth/register", Register)
	v1.POST("/auth/login", Login)
	v1.POST("/auth/logout", Logout)
	v1.POST("/auth/admin/logout", AdminLogout)
	v1.GET("/auth/me", auth.Required(), Me)
	v1.GET("/auth/admin/me", auth.Admin(), Me)

	v1.GET("/users", auth.Admin(), ListCustomers)
	v1.GET("/users/:id/orders", auth.Admin(), ListCustomerOrders)
	v1.DELETE("/users/:id", auth.Admin(), DeleteCustomer)

	v1.GET("/products", ListProducts)
	v1.GET("/products/:id", GetProduct)
	v1.POST("/products", auth.Admin(), CreateProduct)
	v1.PUT("/products/:id", auth.Admin(), UpdateProduct)
	v1.DELETE("/products/:id", auth.Admin(), DeleteProduct)
	v1.PATCH("/products/reorder", auth.Admin(), ReorderProducts)
	v1.PATCH("/products/:id/sold", auth.Admin(), ToggleProductSold)
	v1.POST("/products/:id/images", auth.Admin(), UploadProductImage)
	v1.GET("/uploads/:filename", GetUploadedImage)

	v1.POST("/orders", auth.Optional(), CreateOrder)
	v1.GET("/orders", auth.Admin(), ListOrders)
	v1.GET("/orders/my-orders", auth.Required(), ListMyOrders)
	v1.GET("/orders/track/:orderNumber", TrackOrder)
	v1.PATCH("/orders/:id", auth.Admin(), UpdateOrderStatus)
	v1.DELETE("/orders/:id", auth.Admin(), DeleteOrder)

	v1.GET("/wishlist", auth.Required(), GetWishlist)
	v1.POST("/wishlist", auth.Required(), AddToWishlist)
	v1.DELETE("/wishlist/:productId", auth.Required(), RemoveFromWishlist)

	v1.GET("/settings", GetSettings)
	v1.PATCH("/settings", auth.Admin(), UpdateSettings)

	v1.POST("/discounts/validate", ValidateDiscount)
	v1.GET("/discounts", auth.Admin(), ListDiscounts)
	v1.POST("/discounts", auth.Admin(), CreateDiscount)
	v1.PATCH("/discounts/:id", auth.Admin(), UpdateDiscount)
	v1.DELETE("/discounts/:id", auth.Admin(), DeleteDiscount)

	return router
}

// request sends a JSON request through the router. body may be nil, a raw
// string, or any value to marshal.
func (e *testEnv) request(t *testing.T, method, path string, body interface{}, setup ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, fn := range setup {
		fn(req)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) asAdmin(req *http.Request) {
	testutil.WithAdminCookie(req, e.adminToken)
}

func (e *testEnv) asCustomer(req *http.Request) {
	testutil.WithBearer(req, e.customerToken)
}

type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Replayed bool            `json:"replayed"`
	Error    struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()

	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) envelope {
	t.Helper()

	body := decode(t, w)
	require.True(t, body.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(body.Data, out))
	return body
}
