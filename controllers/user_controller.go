package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lx-boutique/storefront-api/config"
	"github.com/lx-boutique/storefront-api/models"
	"gorm.io/gorm"
)

// customerResponse is a customer account with its number of orders
type customerResponse struct {
	models.User
	OrderCount int64 `json:"order_count"`
}

// ListCustomers handles GET /api/v1/users - lists customer accounts, newest first (admin only)
func ListCustomers(c *gin.Context) {
	db := config.GetDB()

	var users []models.User
	if err := db.Where("role = ?", models.RoleCustomer).Order("created_at DESC, id DESC").Find(&users).Error; err != nil {
		respondServiceError(c, err, "Failed to retrieve customers")
		return
	}

	type orderCount struct {
		UserID uint
		Count  int64
	}
	var counts []orderCount
	if err := db.Model(&models.Order{}).
		Select("user_id, COUNT(*) AS count").
		Where("user_id IS NOT NULL").
		Group("user_id").
		Scan(&counts).Error; err != nil {
		respondServiceError(c, err, "Failed to retrieve customers")
		return
	}

	countByUser := make(map[uint]int64, len(counts))
	for _, oc := range counts {
		countByUser[oc.UserID] = oc.Count
	}

	customers := make([]customerResponse, 0, len(users))
	for _, user := range users {
		customers = append(customers, customerResponse{User: user, OrderCount: countByUser[user.ID]})
	}

	respondSuccess(c, http.StatusOK, customers)
}

// ListCustomerOrders handles GET /api/v1/users/:id/orders - one customer's orders (admin only)
func ListCustomerOrders(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var orders []models.Order
	if err := config.GetDB().Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		respondServiceError(c, err, "Failed to retrieve orders")
		return
	}

	respondSuccess(c, http.StatusOK, orders)
}

// DeleteCustomer handles DELETE /api/v1/users/:id - removes a customer account
// and detaches its orders (admin only). Admin accounts cannot be deleted.
func DeleteCustomer(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
			return
		}
		respondServiceError(c, err, "Failed to delete user")
		return
	}

	if user.IsAdmin() {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "Cannot delete admin accounts")
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Model(&models.Order{}).Where("user_id = ?", user.ID).Update("user_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.WishlistItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		respondServiceError(c, err, "Failed to delete user")
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"message": "User deleted and orders detached successfully"})
}
