package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/lx-boutique/storefront-api/config"
	"github.com/lx-boutique/storefront-api/controllers"
	"github.com/lx-boutique/storefront-api/middleware"
)

// newRouter registers the storefront routes used by the integration suites
// behind real token authentication
func newRouter(cfg *config.Config) (*gin.Engine, error) {
	auth, err := middleware.NewAuthenticator(cfg)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(middleware.RequestID())

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/register", controllers.Register)
		v1.POST("/auth/login", controllers.Login)
		v1.POST("/auth/logout", controllers.Logout)
		v1.GET("/auth/me", auth.Required(), controllers.Me)

		v1.GET("/products", controllers.ListProducts)
		v1.GET("/products/:id", controllers.GetProduct)
		v1.POST("/products", auth.Admin(), controllers.CreateProduct)
		v1.DELETE("/products/:id", auth.Admin(), controllers.DeleteProduct)
		v1.POST("/products/:id/images", auth.Admin(), controllers.UploadProductImage)

		v1.POST("/orders", auth.Optional(), controllers.CreateOrder)
		v1.GET("/orders", auth.Admin(), controllers.ListOrders)
		v1.GET("/orders/my-orders", auth.Required(), controllers.ListMyOrders)
		v1.GET("/orders/track/:orderNumber", controllers.TrackOrder)
		v1.PATCH("/orders/:id", auth.Admin(), controllers.UpdateOrderStatus)

		v1.GET("/wishlist", auth.Required(), controllers.GetWishlist)
		v1.POST("/wishlist", auth.Required(), controllers.AddToWishlist)

		v1.POST("/discounts", auth.Admin(), controllers.CreateDiscount)
		v1.POST("/discounts/validate", controllers.ValidateDiscount)
	}
	return router, nil
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

func doJSON(router http.Handler, method, path string, body interface{}, setup ...func(*http.Request)) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewBuffer(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, fn := range setup {
		fn(req)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func parse(w *httptest.ResponseRecorder, data interface{}) (envelope, error) {
	var body envelope
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		return body, err
	}
	if data != nil && len(body.Data) > 0 {
		if err := json.Unmarshal(body.Data, data); err != nil {
			return body, err
		}
	}
	return body, nil
}
