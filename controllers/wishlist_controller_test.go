package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/lx-boutique/storefront-api/models"
	"github.com/lx-boutique/storefront-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWishlist(t *testing.T) {
	env := setupControllerTest(t)
	scarf := testutil.CreateProduct(t, env.db, "Silk Scarf", "40.00", 3)
	coat := testutil.CreateProduct(t, env.db, "Wool Coat", "300.00", 1)

	t.Run("requires a session", func(t *testing.T) {
		w := env.request(t, http.MethodGet, "/api/v1/wishlist", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("add products", func(t *testing.T) {
		for _, id := range []uint{scarf.ID, coat.ID} {
			w := env.request(t, http.MethodPost, "/api/v1/wishlist", map[string]interface{}{"productId": id}, env.asCustomer)
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		}
	})

	t.Run("duplicate add", func(t *testing.T) {
		w := env.request(t, http.MethodPost, "/api/v1/wishlist", map[string]interface{}{"productId": scarf.ID}, env.asCustomer)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Product already in wishlist", decode(t, w).Error.Message)
	})

	t.Run("unknown product", func(t *testing.T) {
		w := env.request(t, http.MethodPost, "/api/v1/wishlist", map[string]interface{}{"productId": 999}, env.asCustomer)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Product not found", decode(t, w).Error.Message)
	})

	t.Run("list returns saved products", func(t *testing.T) {
		w := env.request(t, http.MethodGet, "/api/v1/wishlist", nil, env.asCustomer)
		require.Equal(t, http.StatusOK, w.Code)

		var products []models.Product
		decodeData(t, w, &products)
		require.Len(t, products, 2)
		names := []string{products[0].Name, products[1].Name}
		assert.ElementsMatch(t, []string{"Silk Scarf", "Wool Coat"}, names)
	})

	t.Run("remove", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/wishlist/%d", coat.ID)
		w := env.request(t, http.MethodDelete, path, nil, env.asCustomer)
		assert.Equal(t, http.StatusOK, w.Code)

		w = env.request(t, http.MethodDelete, path, nil, env.asCustomer)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Product not found in wishlist", decode(t, w).Error.Message)
	})
}
