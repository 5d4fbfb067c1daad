package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lx-boutique/storefront-api/config"
	"github.com/lx-boutique/storefront-api/logger"
	"github.com/lx-boutique/storefront-api/metrics"
	"github.com/lx-boutique/storefront-api/models"
	"github.com/lx-boutique/storefront-api/services"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProductRequest represents the request body for creating or replacing a product
type ProductRequest struct {
	Name          string           `json:"name"`
	Category      string           `json:"category"`
	Price         *decimal.Decimal `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice"`
	Images        []string         `json:"images"`
	Sizes         []string         `json:"sizes"`
	NewArrival    bool             `json:"newArrival"`
	Description   string           `json:"description"`
	StockQuantity *int             `json:"stock_quantity"`
}

// ReorderRequest assigns display positions to products
type ReorderRequest struct {
	Products []struct {
		ID       uint `json:"id" binding:"required"`
		Position int  `json:"position"`
	} `json:"products" binding:"required"`
}

func (r ProductRequest) validate() string {
	if strings.TrimSpace(r.Name) == "" {
		return "Product name is required"
	}
	if r.Price == nil || r.Price.IsNegative() {
		return "Product price must be zero or more"
	}
	if r.OriginalPrice != nil && r.OriginalPrice.IsNegative() {
		return "Original price must be zero or more"
	}
	if r.StockQuantity != nil && *r.StockQuantity < 0 {
		return "Stock quantity cannot be negative"
	}
	return ""
}

func (r ProductRequest) apply(product *models.Product) {
	product.Name = strings.TrimSpace(r.Name)
	product.Category = strings.TrimSpace(r.Category)
	product.Price = models.RoundMoney(*r.Price)
	product.OriginalPrice = decimal.NullDecimal{}
	if r.OriginalPrice != nil {
		product.OriginalPrice = decimal.NewNullDecimal(models.RoundMoney(*r.OriginalPrice))
	}
	product.Images = r.Images
	if product.Images == nil {
		product.Images = []string{}
	}
	product.Sizes = r.Sizes
	if product.Sizes == nil {
		product.Sizes = []string{}
	}
	product.NewArrival = r.NewArrival
	product.Description = r.Description
	product.StockQuantity = 0
	if r.StockQuantity != nil {
		product.StockQuantity = *r.StockQuantity
	}
	// Nothing left to sell; restocking keeps the operator's sold flag
	if product.StockQuantity == 0 {
		product.Sold = true
	}
}

// productView returns a copy of product whose images are browser-loadable links
func productView(ctx context.Context, product models.Product) models.Product {
	product.Images = services.ResolveImageURLs(ctx, services.GetImageService(), product.Images)
	return product
}

func findProduct(c *gin.Context, id uint) (*models.Product, bool) {
	var product models.Product
	if err := config.GetDB().First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found")
			return nil, false
		}
		respondServiceError(c, err, "Failed to load product")
		return nil, false
	}
	return &product, true
}

// ListProducts handles GET /api/v1/products - the catalog in display order.
// An optional ?category= narrows the list.
func ListProducts(c *gin.Context) {
	query := config.GetDB().Order("position ASC, id ASC")
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		query = query.Where("category = ?", category)
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		respondServiceError(c, err, "Failed to retrieve products")
		return
	}

	views := make([]models.Product, 0, len(products))
	for _, product := range products {
		views = append(views, productView(c.Request.Context(), product))
	}
	respondSuccess(c, http.StatusOK, views)
}

// GetProduct handles GET /api/v1/products/:id
func GetProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, ok := findProduct(c, id)
	if !ok {
		return
	}
	respondSuccess(c, http.StatusOK, productView(c.Request.Context(), *product))
}

// CreateProduct handles POST /api/v1/products - adds a product at the end of the catalog (admin only)
func CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", msg)
		return
	}

	db := config.GetDB()
	var product models.Product
	req.apply(&product)

	var maxPosition int
	if err := db.Model(&models.Product{}).Select("COALESCE(MAX(position), -1)").Row().Scan(&maxPosition); err != nil {
		respondServiceError(c, err, "Failed to create product")
		return
	}
	product.Position = maxPosition + 1

	if err := db.Create(&product).Error; err != nil {
		respondServiceError(c, err, "Failed to create product")
		return
	}
	metrics.RecordStockUpdate(product.StockQuantity)

	respondSuccess(c, http.StatusCreated, productView(c.Request.Context(), product))
}

// UpdateProduct handles PUT /api/v1/products/:id - replaces a product's details (admin only)
func UpdateProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", msg)
		return
	}

	product, ok := findProduct(c, id)
	if !ok {
		return
	}
	req.apply(product)

	if err := config.GetDB().Model(product).
		Select("name", "category", "price", "original_price", "images", "sizes", "new_arrival", "description", "stock_quantity", "sold").
		Updates(product).Error; err != nil {
		respondServiceError(c, err, "Failed to update product")
		return
	}
	metrics.RecordStockUpdate(product.StockQuantity)

	respondSuccess(c, http.StatusOK, productView(c.Request.Context(), *product))
}

// DeleteProduct handles DELETE /api/v1/products/:id (admin only). Past orders
// keep their item snapshots.
func DeleteProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, ok := findProduct(c, id)
	if !ok {
		return
	}

	db := config.GetDB()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", product.ID).Delete(&models.WishlistItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(product).Error
	})
	if err != nil {
		respondServiceError(c, err, "Failed to delete product")
		return
	}

	respondSuccess(c, http.StatusOK, productView(c.Request.Context(), *product))
}

// ToggleProductSold handles PATCH /api/v1/products/:id/sold - flips the sold flag (admin only)
func ToggleProductSold(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	result := db.Model(&models.Product{}).Where("id = ?", id).Update("sold", gorm.Expr("NOT sold"))
	if result.Error != nil {
		respondServiceError(c, result.Error, "Failed to update product")
		return
	}
	if result.RowsAffected == 0 {
		respondError(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found")
		return
	}

	product, ok := findProduct(c, id)
	if !ok {
		return
	}
	respondSuccess(c, http.StatusOK, productView(c.Request.Context(), *product))
}

// ReorderProducts handles PATCH /api/v1/products/reorder - saves display positions (admin only)
func ReorderProducts(c *gin.Context) {
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	err := config.GetDB().Transaction(func(tx *gorm.DB) error {
		for _, entry := range req.Products {
			if err := tx.Model(&models.Product{}).Where("id = ?", entry.ID).Update("position", entry.Position).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		respondServiceError(c, err, "Failed to reorder products")
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"message": "Product order updated successfully"})
}

// UploadProductImage handles POST /api/v1/products/:id/images - stores an image
// and appends it to the product's gallery (admin only)
func UploadProductImage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "An image file is required in the 'image' field")
		return
	}

	product, ok := findProduct(c, id)
	if !ok {
		return
	}

	imageService := services.GetImageService()
	if imageService == nil {
		respondError(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Image storage is not configured")
		return
	}

	key, err := imageService.UploadImage(c.Request.Context(), product.ID, fileHeader)
	if err != nil {
		respondServiceError(c, err, "Failed to upload image")
		return
	}

	product.Images = append(product.Images, key)
	if err := config.GetDB().Model(product).Select("images").Updates(product).Error; err != nil {
		if cleanupErr := imageService.DeleteImage(c.Request.Context(), key); cleanupErr != nil {
			logger.FromContext(c).Warn("Failed to remove orphaned image", zap.String("key", key), zap.Error(cleanupErr))
		}
		respondServiceError(c, err, "Failed to save product image")
		return
	}

	respondSuccess(c, http.StatusCreated, gin.H{
		"key":     key,
		"product": productView(c.Request.Context(), *product),
	})
}
