package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lx-boutique/storefront-api/config"
	"github.com/lx-boutique/storefront-api/middleware"
	"github.com/lx-boutique/storefront-api/models"
	"github.com/lx-boutique/storefront-api/services"
	"gorm.io/gorm"
)

// WishlistRequest represents the request body for saving a product
type WishlistRequest struct {
	ProductID uint `json:"productId" binding:"required"`
}

// GetWishlist handles GET /api/v1/wishlist - the caller's saved products, most recent first
func GetWishlist(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	var products []models.Product
	err = config.GetDB().
		Joins("JOIN wishlist ON wishlist.product_id = products.id").
		Where("wishlist.user_id = ?", userID).
		Order("wishlist.created_at DESC, wishlist.id DESC").
		Find(&products).Error
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve wishlist")
		return
	}

	views := make([]models.Product, 0, len(products))
	for _, product := range products {
		views = append(views, productView(c.Request.Context(), product))
	}
	respondSuccess(c, http.StatusOK, views)
}

// AddToWishlist handles POST /api/v1/wishlist
func AddToWishlist(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	var req WishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var product models.Product
	if err := db.First(&product, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found")
			return
		}
		respondServiceError(c, err, "Failed to load product")
		return
	}

	item := models.WishlistItem{UserID: userID, ProductID: product.ID}
	if err := db.Create(&item).Error; err != nil {
		if services.IsUniqueViolation(err) {
			respondError(c, http.StatusBadRequest, "ALREADY_IN_WISHLIST", "Product already in wishlist")
			return
		}
		respondServiceError(c, err, "Failed to add to wishlist")
		return
	}

	respondSuccess(c, http.StatusCreated, item)
}

// RemoveFromWishlist handles DELETE /api/v1/wishlist/:productId
func RemoveFromWishlist(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	productID, ok := parseIDParam(c, "productId")
	if !ok {
		return
	}

	result := config.GetDB().
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.WishlistItem{})
	if result.Error != nil {
		respondServiceError(c, result.Error, "Failed to remove from wishlist")
		return
	}
	if result.RowsAffected == 0 {
		respondError(c, http.StatusNotFound, "NOT_IN_WISHLIST", "Product not found in wishlist")
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"message": "Removed from wishlist"})
}
