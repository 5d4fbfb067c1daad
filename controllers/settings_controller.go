package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lx-boutique/storefront-api/config"
	"github.com/lx-boutique/storefront-api/models"
	"gorm.io/gorm"
)

// SettingsRequest represents a partial update of the storefront settings.
// Only the fields present in the body are changed.
type SettingsRequest struct {
	Currency               *string `json:"currency"`
	AnnouncementText       *string `json:"announcement_text"`
	AnnouncementBarEnabled *bool   `json:"announcement_bar_enabled"`
	SocialFacebook         *string `json:"social_facebook"`
	SocialInstagram        *string `json:"social_instagram"`
	SocialTwitter          *string `json:"social_twitter"`
	SocialSnapchat         *string `json:"social_snapchat"`
	SocialTiktok           *string `json:"social_tiktok"`
	PopupEnabled           *bool   `json:"popup_enabled"`
	PopupTitle             *string `json:"popup_title"`
	PopupSubtitle          *string `json:"popup_subtitle"`
	PopupMessage           *string `json:"popup_message"`
	PopupCouponCode        *string `json:"popup_coupon_code"`
	PopupButtonText        *string `json:"popup_button_text"`
	PopupButtonLink        *string `json:"popup_button_link"`
	PopupDelay             *int    `json:"popup_delay"`
	PopupShowOnce          *bool   `json:"popup_show_once"`
}

func (r SettingsRequest) updates() map[string]interface{} {
	updates := map[string]interface{}{}
	setString := func(column string, value *string) {
		if value != nil {
			updates[column] = *value
		}
	}
	setBool := func(column string, value *bool) {
		if value != nil {
			updates[column] = *value
		}
	}

	if r.Currency != nil {
		updates["currency"] = strings.ToUpper(strings.TrimSpace(*r.Currency))
	}
	setString("announcement_text", r.AnnouncementText)
	setBool("announcement_bar_enabled", r.AnnouncementBarEnabled)
	setString("social_facebook", r.SocialFacebook)
	setString("social_instagram", r.SocialInstagram)
	setString("social_twitter", r.SocialTwitter)
	setString("social_snapchat", r.SocialSnapchat)
	setString("social_tiktok", r.SocialTiktok)
	setBool("popup_enabled", r.PopupEnabled)
	setString("popup_title", r.PopupTitle)
	setString("popup_subtitle", r.PopupSubtitle)
	setString("popup_message", r.PopupMessage)
	setString("popup_coupon_code", r.PopupCouponCode)
	setString("popup_button_text", r.PopupButtonText)
	setString("popup_button_link", r.PopupButtonLink)
	if r.PopupDelay != nil {
		updates["popup_delay"] = *r.PopupDelay
	}
	setBool("popup_show_once", r.PopupShowOnce)
	return updates
}

func loadSettings(db *gorm.DB) (*models.Settings, error) {
	var settings models.Settings
	err := db.First(&settings, models.SettingsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.DefaultSettings()
		if err := db.Create(&settings).Error; err != nil {
			return nil, err
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// GetSettings handles GET /api/v1/settings - public storefront settings
func GetSettings(c *gin.Context) {
	settings, err := loadSettings(config.GetDB())
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve settings")
		return
	}

	respondSuccess(c, http.StatusOK, settings)
}

// UpdateSettings handles PATCH /api/v1/settings (admin only)
func UpdateSettings(c *gin.Context) {
	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if req.Currency != nil && strings.TrimSpace(*req.Currency) == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Currency cannot be empty")
		return
	}
	if req.PopupDelay != nil && *req.PopupDelay < 0 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Popup delay cannot be negative")
		return
	}

	db := config.GetDB()
	settings, err := loadSettings(db)
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve settings")
		return
	}

	if updates := req.updates(); len(updates) > 0 {
		if err := db.Model(settings).Updates(updates).Error; err != nil {
			respondServiceError(c, err, "Failed to update settings")
			return
		}
	}

	settings, err = loadSettings(db)
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve settings")
		return
	}

	respondSuccess(c, http.StatusOK, settings)
}
