package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog entry. Sold is forced true when StockQuantity reaches
// zero through an order, and can also be toggled by an operator.
type Product struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	Name          string              `gorm:"not null" json:"name"`
	Category      string              `gorm:"index" json:"category"`
	Price         decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"price"`
	OriginalPrice decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"original_price"`
	Images        []string            `gorm:"serializer:json;type:text" json:"images"`
	Sizes         []string            `gorm:"serializer:json;type:text" json:"sizes"`
	NewArrival    bool                `gorm:"not null" json:"new_arrival"`
	Description   string              `gorm:"type:text" json:"description"`
	StockQuantity int                 `gorm:"not null;check:stock_quantity >= 0" json:"stock_quantity"`
	Sold          bool                `gorm:"not null" json:"sold"`
	Position      int                 `gorm:"not null;index" json:"position"`
	SalesCount    int                 `gorm:"not null" json:"sales_count"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	DeletedAt     gorm.DeletedAt      `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}
