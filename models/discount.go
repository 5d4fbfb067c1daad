package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// Discount is a promotional code. Code is stored uppercase; UsedCount never
// exceeds UsageLimit when a limit is set.
type Discount struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Code        string          `gorm:"uniqueIndex;size:50;not null" json:"code"`
	Type        string          `gorm:"not null" json:"type"` // percentage, fixed
	Value       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"value"`
	MinQuantity int             `gorm:"not null" json:"min_quantity"`
	UsageLimit  *int            `json:"usage_limit"` // nullable, unlimited when nil
	UsedCount   int             `gorm:"not null" json:"used_count"`
	IsActive    bool            `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Discount model
func (Discount) TableName() string {
	return "discounts"
}

// NormalizeDiscountCode maps user input onto the stored form of a code
func NormalizeDiscountCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidDiscountType reports whether t names a supported discount type
func IsValidDiscountType(t string) bool {
	return t == DiscountTypePercentage || t == DiscountTypeFixed
}

// Exhausted reports whether the usage limit has been reached
func (d Discount) Exhausted() bool {
	return d.UsageLimit != nil && d.UsedCount >= *d.UsageLimit
}
