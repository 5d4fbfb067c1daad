package models

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates every storefront table and makes sure the
// settings row exists
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&Product{},
		&Order{},
		&Discount{},
		&WishlistItem{},
		&Settings{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	var settings Settings
	err := db.First(&settings, SettingsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		defaults := DefaultSettings()
		if err := db.Create(&defaults).Error; err != nil {
			return fmt.Errorf("failed to create default settings: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	return nil
}
