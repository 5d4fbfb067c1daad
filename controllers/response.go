package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lx-boutique/storefront-api/config"
	"github.com/lx-boutique/storefront-api/logger"
	"github.com/lx-boutique/storefront-api/services"
	"github.com/lx-boutique/storefront-api/utils"
	"go.uber.org/zap"
)

func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondValidationError(c *gin.Context, err error) {
	body := gin.H{
		"code":    "VALIDATION_ERROR",
		"message": "Invalid request data",
	}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   body,
	})
}

// respondServiceError reports known service and upload errors as-is. Anything
// else is logged and surfaced as an opaque database error, with the detail
// added in development only.
func respondServiceError(c *gin.Context, err error, message string) {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		respondError(c, svcErr.Status, svcErr.Code, svcErr.Message)
		return
	}

	var uploadErr *utils.FileUploadError
	if errors.As(err, &uploadErr) {
		respondError(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
		return
	}

	logger.FromContext(c).Error(message, zap.Error(err))
	_ = c.Error(err)

	body := gin.H{
		"code":    "DATABASE_ERROR",
		"message": message,
	}
	if cfg := config.GetConfig(); cfg != nil && cfg.IsDevelopment() {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   body,
	})
}

// parseIDParam reads a positive numeric path parameter, answering 400 itself
// when it is malformed
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}
