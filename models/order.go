package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// orderProgression is the forward order of fulfilment statuses
var orderProgression = map[string]int{
	OrderStatusPending:    0,
	OrderStatusProcessing: 1,
	OrderStatusShipped:    2,
	OrderStatusDelivered:  3,
}

// OrderItem is a line item captured at checkout. It is a snapshot and is never
// joined back to the live product row.
type OrderItem struct {
	ProductID *uint           `json:"productId,omitempty"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Size      string          `json:"size,omitempty"`
	Image     string          `json:"image,omitempty"`
}

// Subtotal returns price times quantity for the line
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order represents a placed storefront order
type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	OrderNumber     string          `gorm:"uniqueIndex;size:32;not null" json:"order_number"`
	CustomerName    string          `gorm:"not null" json:"customer_name"`
	CustomerEmail   string          `gorm:"not null;index" json:"customer_email"`
	CustomerPhone   string          `json:"customer_phone"`
	ShippingAddress string          `json:"shipping_address"`
	ShippingCity    string          `json:"shipping_city"`
	ShippingRegion  string          `json:"shipping_region"`
	Items           []OrderItem     `gorm:"serializer:json;type:text;not null" json:"items"`
	Total           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	Status          string          `gorm:"not null;index" json:"status"` // pending, processing, shipped, delivered, cancelled
	UserID          *uint           `gorm:"index" json:"user_id"`         // nullable, guest orders have no user
	User            *User           `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`
	DiscountCode    *string         `gorm:"size:50" json:"discount_code"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"discount_amount"`
	IdempotencyKey  *string         `gorm:"uniqueIndex;size:128" json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// ItemsSubtotal sums the line items before any discount
func (o Order) ItemsSubtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.Subtotal())
	}
	return subtotal
}

// IsValidOrderStatus reports whether status is one of the known statuses
func IsValidOrderStatus(status string) bool {
	if status == OrderStatusCancelled {
		return true
	}
	_, ok := orderProgression[status]
	return ok
}

// IsTerminalOrderStatus reports whether no further transition is allowed
func IsTerminalOrderStatus(status string) bool {
	return status == OrderStatusDelivered || status == OrderStatusCancelled
}

// CanTransitionOrderStatus reports whether an operator may move an order from
// one status to another. Fulfilment only moves forward; cancellation is allowed
// from any non-terminal status.
func CanTransitionOrderStatus(from, to string) bool {
	if !IsValidOrderStatus(from) || !IsValidOrderStatus(to) || IsTerminalOrderStatus(from) {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	return orderProgression[to] > orderProgression[from]
}

// TrackedOrder is the public projection returned by the order tracking lookup
type TrackedOrder struct {
	OrderNumber     string          `json:"order_number"`
	CustomerName    string          `json:"customer_name"`
	CustomerEmail   string          `json:"customer_email"`
	CustomerPhone   string          `json:"customer_phone"`
	Total           decimal.Decimal `json:"total"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	Status          string          `json:"status"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress string          `json:"shipping_address"`
	ShippingCity    string          `json:"shipping_city"`
	ShippingRegion  string          `json:"shipping_region"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Tracked builds the public projection of the order
func (o Order) Tracked() TrackedOrder {
	return TrackedOrder{
		OrderNumber:     o.OrderNumber,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		CustomerPhone:   o.CustomerPhone,
		Total:           o.Total,
		DiscountAmount:  o.DiscountAmount,
		Status:          o.Status,
		Items:           o.Items,
		ShippingAddress: o.ShippingAddress,
		ShippingCity:    o.ShippingCity,
		ShippingRegion:  o.ShippingRegion,
		CreatedAt:       o.CreatedAt,
	}
}
