package models

import "time"

// SettingsID is the primary key of the single settings row
const SettingsID = 1

// Settings holds storefront-wide presentation options
type Settings struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	Currency               string    `gorm:"not null" json:"currency"`
	AnnouncementText       string    `json:"announcement_text"`
	AnnouncementBarEnabled bool      `gorm:"not null" json:"announcement_bar_enabled"`
	SocialFacebook         string    `json:"social_facebook"`
	SocialInstagram        string    `json:"social_instagram"`
	SocialTwitter          string    `json:"social_twitter"`
	SocialSnapchat         string    `json:"social_snapchat"`
	SocialTiktok           string    `json:"social_tiktok"`
	PopupEnabled           bool      `gorm:"not null" json:"popup_enabled"`
	PopupTitle             string    `json:"popup_title"`
	PopupSubtitle          string    `json:"popup_subtitle"`
	PopupMessage           string    `gorm:"type:text" json:"popup_message"`
	PopupCouponCode        string    `json:"popup_coupon_code"`
	PopupButtonText        string    `json:"popup_button_text"`
	PopupButtonLink        string    `json:"popup_button_link"`
	PopupDelay             int       `gorm:"not null" json:"popup_delay"`
	PopupShowOnce          bool      `gorm:"not null" json:"popup_show_once"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Settings model
func (Settings) TableName() string {
	return "settings"
}

// DefaultSettings is the row created the first time the schema is migrated
func DefaultSettings() Settings {
	return Settings{
		ID:              SettingsID,
		Currency:        "GHS",
		PopupTitle:      "Special Offer!",
		PopupSubtitle:   "Subscribe to our newsletter and get 20% off your first order.",
		PopupCouponCode: "WELCOME20",
		PopupButtonText: "Shop Now",
		PopupButtonLink: "/shop",
		PopupDelay:      3,
		PopupShowOnce:   true,
	}
}
