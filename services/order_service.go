package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lx-boutique/storefront-api/logger"
	"github.com/lx-boutique/storefront-api/metrics"
	"github.com/lx-boutique/storefront-api/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// OrderNumberPrefix starts every customer-facing order number
	OrderNumberPrefix = "LX"

	orderNumberAttempts = 5
)

// PlaceOrderInput is a checkout submission after transport decoding
type PlaceOrderInput struct {
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress string
	ShippingCity    string
	ShippingRegion  string
	Items           []models.OrderItem
	Total           decimal.Decimal
	DiscountCode    string
	// DiscountAmount is the figure the client computed. The server recomputes
	// it from the stored rule; this value is only compared for logging.
	DiscountAmount *decimal.Decimal
	IdempotencyKey string
}

// PlaceOrderResult is a committed order, or the earlier order when the
// submission replayed an idempotency key
type PlaceOrderResult struct {
	Order    *models.Order
	Replayed bool
}

// OrderService records orders and keeps product stock consistent with them
type OrderService struct {
	db        *gorm.DB
	discounts *DiscountService
	now       func() time.Time
	random    io.Reader
}

// NewOrderService creates an order service backed by db
func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{
		db:        db,
		discounts: NewDiscountService(db),
		now:       time.Now,
		random:    rand.Reader,
	}
}

// GenerateOrderNumber builds LX + YYYYMMDD + 6 uppercase hex characters drawn
// from r. The random suffix keeps order numbers unguessable for tracking.
func GenerateOrderNumber(now time.Time, r io.Reader) (string, error) {
	suffix := make([]byte, 3)
	if _, err := io.ReadFull(r, suffix); err != nil {
		return "", fmt.Errorf("failed to read random order suffix: %w", err)
	}
	return OrderNumberPrefix + now.UTC().Format("20060102") + strings.ToUpper(hex.EncodeToString(suffix)), nil
}

// PlaceOrder validates a checkout submission and records it. userID is nil for
// guest checkout. Order insertion and stock decrements commit or roll back as
// one unit; discount usage bookkeeping happens after the commit and never
// fails the order.
func (s *OrderService) PlaceOrder(ctx context.Context, userID *uint, in PlaceOrderInput) (*PlaceOrderResult, error) {
	in = normalizeOrderInput(in)
	if err := validateOrderInput(in); err != nil {
		metrics.RecordOrderFailure("validation")
		return nil, err
	}

	if in.IdempotencyKey != "" {
		existing, err := s.findByIdempotencyKey(ctx, in.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return s.replay(existing, in.CustomerEmail)
		}
	}

	order := &models.Order{
		CustomerName:    in.CustomerName,
		CustomerEmail:   in.CustomerEmail,
		CustomerPhone:   in.CustomerPhone,
		ShippingAddress: in.ShippingAddress,
		ShippingCity:    in.ShippingCity,
		ShippingRegion:  in.ShippingRegion,
		Items:           in.Items,
		Total:           models.RoundMoney(in.Total),
		Status:          models.OrderStatusPending,
		UserID:          userID,
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		order.IdempotencyKey = &key
	}

	defer metrics.TrackDBOperation("place_order")(time.Now())

	var stockLevels map[uint]int
	for attempt := 1; ; attempt++ {
		number, err := s.uniqueOrderNumber(ctx)
		if err != nil {
			metrics.RecordOrderFailure("order_number")
			return nil, err
		}
		order.OrderNumber = number

		levels, err := s.insertOrder(ctx, order, in)
		if err == nil {
			stockLevels = levels
			break
		}
		if !IsUniqueViolation(err) {
			return nil, s.placementFailure(err)
		}

		if in.IdempotencyKey != "" {
			// A concurrent submission with the same key won the insert
			existing, findErr := s.findByIdempotencyKey(ctx, in.IdempotencyKey)
			if findErr == nil && existing != nil {
				return s.replay(existing, in.CustomerEmail)
			}
		}

		// Another checkout took the order number after it was checked
		if attempt == orderNumberAttempts {
			return nil, s.placementFailure(err)
		}
		logger.GetLogger().Warn("Order number taken during insert, retrying",
			zap.String("order_number", number),
			zap.Int("attempt", attempt))
	}

	for _, stock := range stockLevels {
		metrics.RecordStockUpdate(stock)
	}
	metrics.RecordOrderCreated(userID == nil)

	if order.DiscountCode != nil {
		if err := s.discounts.IncrementUsage(ctx, *order.DiscountCode); err != nil {
			logger.GetLogger().Warn("Failed to update discount usage count",
				zap.String("order_number", order.OrderNumber),
				zap.String("discount_code", *order.DiscountCode),
				zap.Error(err))
		}
	}

	logger.GetLogger().Info("Order created",
		zap.String("order_number", order.OrderNumber),
		zap.Bool("guest", userID == nil),
		zap.String("total", order.Total.StringFixed(2)))

	return &PlaceOrderResult{Order: order}, nil
}

// TrackOrder finds an order by its exact order number and the customer's email
// (case-insensitive). Any mismatch yields ErrOrderNotFound, whichever part was wrong.
func (s *OrderService) TrackOrder(ctx context.Context, orderNumber, email string) (*models.TrackedOrder, error) {
	cleanNumber := strings.TrimSpace(orderNumber)
	cleanEmail := strings.ToLower(strings.TrimSpace(email))
	if cleanNumber == "" || cleanEmail == "" {
		return nil, ErrOrderNotFound
	}

	var order models.Order
	err := s.db.WithContext(ctx).
		Where("order_number = ? AND LOWER(customer_email) = ?", cleanNumber, cleanEmail).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up order: %w", err)
	}

	tracked := order.Tracked()
	return &tracked, nil
}

// UpdateStatus moves an order along its fulfilment progression
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint, status string) (*models.Order, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !models.IsValidOrderStatus(status) {
		return nil, ValidationError("Unknown order status")
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderMissing
			}
			return err
		}
		if !models.CanTransitionOrderStatus(order.Status, status) {
			return ErrInvalidTransition
		}

		result := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, order.Status).
			Update("status", status)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Another operator changed it first
			return ErrInvalidTransition
		}
		order.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// insertOrder runs the checkout transaction: discount re-evaluation, total
// check, order insert and stock decrements. It returns the resulting stock
// level of each product touched. The order is reset first so a retry starts clean.
func (s *OrderService) insertOrder(ctx context.Context, order *models.Order, in PlaceOrderInput) (map[uint]int, error) {
	order.ID = 0
	order.DiscountCode = nil
	order.DiscountAmount = decimal.Zero

	stockLevels := make(map[uint]int)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subtotal := order.ItemsSubtotal()

		if in.DiscountCode != "" {
			amount, err := s.applyDiscount(tx, in, subtotal)
			if err != nil {
				return err
			}
			code := models.NormalizeDiscountCode(in.DiscountCode)
			order.DiscountCode = &code
			order.DiscountAmount = amount
		}

		expected := models.RoundMoney(subtotal.Sub(order.DiscountAmount))
		if expected.IsNegative() {
			expected = decimal.Zero
		}
		if !order.Total.Equal(expected) {
			return ErrTotalMismatch
		}

		if err := tx.Create(order).Error; err != nil {
			return err
		}

		for _, item := range order.Items {
			if item.ProductID == nil {
				continue
			}
			stock, err := decrementStock(tx, *item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			stockLevels[*item.ProductID] = stock
		}
		return nil
	})
	if err != nil {
		order.ID = 0
		return nil, err
	}
	return stockLevels, nil
}

func (s *OrderService) applyDiscount(tx *gorm.DB, in PlaceOrderInput, subtotal decimal.Decimal) (decimal.Decimal, error) {
	discount, err := findActiveDiscount(tx, in.DiscountCode)
	if err != nil {
		return decimal.Zero, err
	}

	itemsCount := 0
	for _, item := range in.Items {
		itemsCount += item.Quantity
	}

	amount, err := EvaluateDiscount(discount, subtotal, itemsCount)
	if err != nil {
		return decimal.Zero, err
	}

	if in.DiscountAmount != nil && !models.RoundMoney(*in.DiscountAmount).Equal(amount) {
		logger.GetLogger().Warn("Client discount amount differs from server computation",
			zap.String("discount_code", discount.Code),
			zap.String("client_amount", in.DiscountAmount.StringFixed(2)),
			zap.String("server_amount", amount.StringFixed(2)))
	}
	return amount, nil
}

// decrementStock takes quantity units of a product. The update only applies
// while enough stock remains, so concurrent buyers of the last unit cannot both
// succeed and stock never goes negative. Sold is set when stock hits zero.
func decrementStock(tx *gorm.DB, productID uint, quantity int) (int, error) {
	result := tx.Model(&models.Product{}).
		Where("id = ? AND stock_quantity >= ?", productID, quantity).
		Updates(map[string]interface{}{
			"stock_quantity": gorm.Expr("stock_quantity - ?", quantity),
			"sold":           gorm.Expr("CASE WHEN stock_quantity - ? = 0 THEN ? ELSE sold END", quantity, true),
			"sales_count":    gorm.Expr("sales_count + ?", quantity),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update stock for product %d: %w", productID, result.Error)
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
			return 0, err
		}
		if count == 0 {
			return 0, fmt.Errorf("product %d: %w", productID, ErrProductNotFound)
		}
		return 0, fmt.Errorf("product %d: %w", productID, ErrInsufficientStock)
	}

	var stock int
	if err := tx.Model(&models.Product{}).Select("stock_quantity").Where("id = ?", productID).Scan(&stock).Error; err != nil {
		return 0, err
	}
	return stock, nil
}

func (s *OrderService) uniqueOrderNumber(ctx context.Context) (string, error) {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		number, err := GenerateOrderNumber(s.now(), s.random)
		if err != nil {
			return "", err
		}

		var count int64
		if err := s.db.WithContext(ctx).Unscoped().Model(&models.Order{}).Where("order_number = ?", number).Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to check order number: %w", err)
		}
		if count == 0 {
			return number, nil
		}
	}
	return "", ErrOrderNumberExhausted
}

func (s *OrderService) findByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Unscoped().Where("idempotency_key = ?", key).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	return &order, nil
}

func (s *OrderService) replay(existing *models.Order, email string) (*PlaceOrderResult, error) {
	if !strings.EqualFold(existing.CustomerEmail, email) {
		metrics.RecordOrderFailure("idempotency_conflict")
		return nil, ErrIdempotencyConflict
	}
	metrics.OrderReplaysTotal.Inc()
	return &PlaceOrderResult{Order: existing, Replayed: true}, nil
}

func (s *OrderService) placementFailure(err error) error {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		metrics.RecordOrderFailure(strings.ToLower(svcErr.Code))
		return err
	}
	metrics.RecordOrderFailure("database")
	return fmt.Errorf("failed to place order: %w", err)
}

func normalizeOrderInput(in PlaceOrderInput) PlaceOrderInput {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	in.DiscountCode = strings.TrimSpace(in.DiscountCode)
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	return in
}

func validateOrderInput(in PlaceOrderInput) error {
	if in.CustomerEmail == "" || !strings.Contains(in.CustomerEmail, "@") {
		return ValidationError("Valid email is required")
	}
	if !in.Total.IsPositive() {
		return ValidationError("Invalid order total")
	}
	if len(in.Items) == 0 {
		return ValidationError("Order must contain items")
	}
	for _, item := range in.Items {
		if item.Quantity < 1 {
			return ValidationError("Item quantity must be at least 1")
		}
		if item.Price.IsNegative() {
			return ValidationError("Item price cannot be negative")
		}
	}
	if len(in.IdempotencyKey) > 128 {
		return ValidationError("Idempotency key is too long")
	}
	return nil
}
