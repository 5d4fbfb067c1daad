package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lx-boutique/storefront-api/config"
	"github.com/lx-boutique/storefront-api/middleware"
	"github.com/lx-boutique/storefront-api/models"
	"github.com/lx-boutique/storefront-api/services"
	"github.com/shopspring/decimal"
)

// IdempotencyKeyHeader lets clients retry a checkout without ordering twice
const IdempotencyKeyHeader = "Idempotency-Key"

// CreateOrderRequest represents the checkout submission
type CreateOrderRequest struct {
	CustomerName    string             `json:"customerName"`
	CustomerEmail   string             `json:"customerEmail"`
	CustomerPhone   string             `json:"customerPhone"`
	Items           []models.OrderItem `json:"items"`
	Total           decimal.Decimal    `json:"total"`
	ShippingAddress string             `json:"shippingAddress"`
	ShippingCity    string             `json:"shippingCity"`
	ShippingRegion  string             `json:"shippingRegion"`
	DiscountCode    string             `json:"discountCode"`
	DiscountAmount  *decimal.Decimal   `json:"discountAmount"`
	IdempotencyKey  string             `json:"idempotencyKey"`
}

// UpdateOrderStatusRequest represents the request body for moving an order along
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CreateOrder handles POST /api/v1/orders - places an order for a guest or a
// signed-in customer. An invalid credential is treated as a guest checkout.
func CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
	if idempotencyKey == "" {
		idempotencyKey = req.IdempotencyKey
	}

	result, err := services.NewOrderService(config.GetDB()).PlaceOrder(
		c.Request.Context(),
		middleware.OptionalUserID(c),
		services.PlaceOrderInput{
			CustomerName:    req.CustomerName,
			CustomerEmail:   req.CustomerEmail,
			CustomerPhone:   req.CustomerPhone,
			ShippingAddress: req.ShippingAddress,
			ShippingCity:    req.ShippingCity,
			ShippingRegion:  req.ShippingRegion,
			Items:           req.Items,
			Total:           req.Total,
			DiscountCode:    req.DiscountCode,
			DiscountAmount:  req.DiscountAmount,
			IdempotencyKey:  idempotencyKey,
		},
	)
	if err != nil {
		respondServiceError(c, err, "Database error while placing order")
		return
	}

	if result.Replayed {
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"data":     result.Order,
			"replayed": true,
		})
		return
	}

	services.DispatchReceipt(result.Order)
	respondSuccess(c, http.StatusCreated, result.Order)
}

// ListOrders handles GET /api/v1/orders - all orders, newest first (admin only).
// An optional ?status= narrows the list.
func ListOrders(c *gin.Context) {
	query := config.GetDB().Order("created_at DESC, id DESC")
	if status := strings.ToLower(strings.TrimSpace(c.Query("status"))); status != "" {
		if !models.IsValidOrderStatus(status) {
			respondError(c, http.StatusBadRequest, "INVALID_STATUS", "Unknown order status")
			return
		}
		query = query.Where("status = ?", status)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		respondServiceError(c, err, "Failed to retrieve orders")
		return
	}

	respondSuccess(c, http.StatusOK, orders)
}

// ListMyOrders handles GET /api/v1/orders/my-orders - the signed-in customer's orders
func ListMyOrders(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	var orders []models.Order
	if err := config.GetDB().Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		respondServiceError(c, err, "Failed to retrieve orders")
		return
	}

	respondSuccess(c, http.StatusOK, orders)
}

// UpdateOrderStatus handles PATCH /api/v1/orders/:id - moves an order along
// its fulfilment progression (admin only)
func UpdateOrderStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	order, err := services.NewOrderService(config.GetDB()).UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondServiceError(c, err, "Failed to update order")
		return
	}

	respondSuccess(c, http.StatusOK, order)
}

// DeleteOrder handles DELETE /api/v1/orders/:id (admin only)
func DeleteOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result := config.GetDB().Delete(&models.Order{}, id)
	if result.Error != nil {
		respondServiceError(c, result.Error, "Failed to delete order")
		return
	}
	if result.RowsAffected == 0 {
		respondServiceError(c, services.ErrOrderMissing, "Failed to delete order")
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"message": "Order deleted successfully"})
}

// TrackOrder handles GET /api/v1/orders/track/:orderNumber?email= - public
// order lookup. A wrong number and a wrong email produce the same 404.
func TrackOrder(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		respondError(c, http.StatusBadRequest, "EMAIL_REQUIRED", "Email verification required to track order")
		return
	}

	tracked, err := services.NewOrderService(config.GetDB()).TrackOrder(c.Request.Context(), c.Param("orderNumber"), email)
	if err != nil {
		respondServiceError(c, err, "Failed to track order")
		return
	}

	respondSuccess(c, http.StatusOK, tracked)
}
