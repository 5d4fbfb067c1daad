package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lx-boutique/storefront-api/config"
	"github.com/lx-boutique/storefront-api/models"
	"github.com/lx-boutique/storefront-api/services"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var maxPercentage = decimal.NewFromInt(100)

// DiscountRequest represents the request body for creating or updating a
// discount code. Omitted fields are left unchanged on update.
type DiscountRequest struct {
	Code        *string          `json:"code"`
	Type        *string          `json:"type"`
	Value       *decimal.Decimal `json:"value"`
	MinQuantity *int             `json:"min_quantity"`
	UsageLimit  *int             `json:"usage_limit"`
	IsActive    *bool            `json:"is_active"`
}

// ValidateDiscountRequest is the cart summary a discount code is checked against
type ValidateDiscountRequest struct {
	Code       string          `json:"code" binding:"required"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	ItemsCount int             `json:"itemsCount"`
}

func checkDiscountValue(discountType string, value decimal.Decimal) string {
	if !value.IsPositive() {
		return "Discount value must be greater than zero"
	}
	if discountType == models.DiscountTypePercentage && value.GreaterThan(maxPercentage) {
		return "Percentage discount cannot exceed 100"
	}
	return ""
}

// ListDiscounts handles GET /api/v1/discounts (admin only)
func ListDiscounts(c *gin.Context) {
	var discounts []models.Discount
	if err := config.GetDB().Order("created_at DESC, id DESC").Find(&discounts).Error; err != nil {
		respondServiceError(c, err, "Failed to retrieve discounts")
		return
	}

	respondSuccess(c, http.StatusOK, discounts)
}

// CreateDiscount handles POST /api/v1/discounts (admin only)
func CreateDiscount(c *gin.Context) {
	var req DiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if req.Code == nil || models.NormalizeDiscountCode(*req.Code) == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Discount code is required")
		return
	}
	if req.Type == nil || !models.IsValidDiscountType(*req.Type) {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Discount type must be percentage or fixed")
		return
	}
	if req.Value == nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Discount value is required")
		return
	}
	if msg := checkDiscountValue(*req.Type, *req.Value); msg != "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", msg)
		return
	}
	if req.MinQuantity != nil && *req.MinQuantity < 0 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Minimum quantity cannot be negative")
		return
	}
	if req.UsageLimit != nil && *req.UsageLimit < 1 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Usage limit must be at least 1")
		return
	}

	discount := models.Discount{
		Code:       models.NormalizeDiscountCode(*req.Code),
		Type:       *req.Type,
		Value:      models.RoundMoney(*req.Value),
		UsageLimit: req.UsageLimit,
		IsActive:   true,
	}
	if req.MinQuantity != nil {
		discount.MinQuantity = *req.MinQuantity
	}
	if req.IsActive != nil {
		discount.IsActive = *req.IsActive
	}

	if err := config.GetDB().Create(&discount).Error; err != nil {
		if services.IsUniqueViolation(err) {
			respondError(c, http.StatusBadRequest, "DISCOUNT_EXISTS", "Discount code already exists")
			return
		}
		respondServiceError(c, err, "Failed to create discount")
		return
	}

	respondSuccess(c, http.StatusCreated, discount)
}

// UpdateDiscount handles PATCH /api/v1/discounts/:id (admin only)
func UpdateDiscount(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req DiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var discount models.Discount
	if err := db.First(&discount, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "DISCOUNT_NOT_FOUND", "Discount not found")
			return
		}
		respondServiceError(c, err, "Failed to load discount")
		return
	}

	updates := map[string]interface{}{}
	if req.Code != nil {
		code := models.NormalizeDiscountCode(*req.Code)
		if code == "" {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Discount code is required")
			return
		}
		updates["code"] = code
	}

	discountType := discount.Type
	if req.Type != nil {
		if !models.IsValidDiscountType(*req.Type) {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Discount type must be percentage or fixed")
			return
		}
		discountType = *req.Type
		updates["type"] = discountType
	}

	value := discount.Value
	if req.Value != nil {
		value = models.RoundMoney(*req.Value)
		updates["value"] = value
	}
	if req.Type != nil || req.Value != nil {
		if msg := checkDiscountValue(discountType, value); msg != "" {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", msg)
			return
		}
	}

	if req.MinQuantity != nil {
		if *req.MinQuantity < 0 {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Minimum quantity cannot be negative")
			return
		}
		updates["min_quantity"] = *req.MinQuantity
	}
	if req.UsageLimit != nil {
		if *req.UsageLimit < 1 {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Usage limit must be at least 1")
			return
		}
		if *req.UsageLimit < discount.UsedCount {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", usageLimitBelowUsedMessage(discount.UsedCount))
			return
		}
		updates["usage_limit"] = *req.UsageLimit
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		query := db.Model(&discount)
		if req.UsageLimit != nil {
			// Checkouts may have used the code since it was loaded
			query = query.Where("used_count <= ?", *req.UsageLimit)
		}
		result := query.Updates(updates)
		if err := result.Error; err != nil {
			if services.IsUniqueViolation(err) {
				respondError(c, http.StatusBadRequest, "DISCOUNT_EXISTS", "Discount code already exists")
				return
			}
			respondServiceError(c, err, "Failed to update discount")
			return
		}
		if req.UsageLimit != nil && result.RowsAffected == 0 {
			var current models.Discount
			if err := db.First(&current, id).Error; err != nil {
				respondServiceError(c, err, "Failed to load discount")
				return
			}
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", usageLimitBelowUsedMessage(current.UsedCount))
			return
		}
	}

	if err := db.First(&discount, id).Error; err != nil {
		respondServiceError(c, err, "Failed to load discount")
		return
	}

	respondSuccess(c, http.StatusOK, discount)
}

func usageLimitBelowUsedMessage(usedCount int) string {
	return fmt.Sprintf("Usage limit cannot be lower than the %d uses already made", usedCount)
}

// DeleteDiscount handles DELETE /api/v1/discounts/:id (admin only)
func DeleteDiscount(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result := config.GetDB().Delete(&models.Discount{}, id)
	if result.Error != nil {
		respondServiceError(c, result.Error, "Failed to delete discount")
		return
	}
	if result.RowsAffected == 0 {
		respondError(c, http.StatusNotFound, "DISCOUNT_NOT_FOUND", "Discount not found")
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"message": "Discount deleted successfully"})
}

// ValidateDiscount handles POST /api/v1/discounts/validate - quotes a code
// against the shopper's cart. Nothing is booked until the order is placed.
func ValidateDiscount(c *gin.Context) {
	var req ValidateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Discount code is required")
		return
	}

	quote, err := services.NewDiscountService(config.GetDB()).Validate(c.Request.Context(), req.Code, req.Subtotal, req.ItemsCount)
	if err != nil {
		respondServiceError(c, err, "Failed to validate discount")
		return
	}

	respondSuccess(c, http.StatusOK, quote)
}
