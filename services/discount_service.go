package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/lx-boutique/storefront-api/metrics"
	"github.com/lx-boutique/storefront-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// DiscountQuote is the result of a successful discount validation. Clients
// hold it as the applied discount until the cart changes.
type DiscountQuote struct {
	Code           string          `json:"code"`
	Type           string          `json:"type"`
	Value          decimal.Decimal `json:"value"`
	MinQuantity    int             `json:"min_quantity"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

// DiscountService validates discount codes and books their usage
type DiscountService struct {
	db *gorm.DB
}

// NewDiscountService creates a discount service backed by db
func NewDiscountService(db *gorm.DB) *DiscountService {
	return &DiscountService{db: db}
}

// EvaluateDiscount applies the discount rules, in order, to a cart and returns
// the amount to take off. The amount never exceeds the subtotal.
func EvaluateDiscount(discount *models.Discount, subtotal decimal.Decimal, itemsCount int) (decimal.Decimal, error) {
	if discount == nil || !discount.IsActive {
		return decimal.Zero, ErrDiscountInvalid
	}
	if discount.Exhausted() {
		return decimal.Zero, ErrDiscountExhausted
	}
	if discount.MinQuantity > 0 && itemsCount < discount.MinQuantity {
		return decimal.Zero, discountMinimumError(discount.MinQuantity)
	}

	var amount decimal.Decimal
	switch discount.Type {
	case models.DiscountTypePercentage:
		amount = subtotal.Mul(discount.Value).Div(hundred)
	case models.DiscountTypeFixed:
		amount = decimal.Min(discount.Value, subtotal)
	default:
		return decimal.Zero, ErrDiscountInvalid
	}

	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return models.RoundMoney(amount), nil
}

// Validate checks whether code is usable for a cart with the given subtotal and
// item count, and quotes the resulting discount
func (s *DiscountService) Validate(ctx context.Context, code string, subtotal decimal.Decimal, itemsCount int) (*DiscountQuote, error) {
	if subtotal.IsNegative() {
		return nil, ValidationError("Subtotal cannot be negative")
	}
	if itemsCount < 0 {
		return nil, ValidationError("Items count cannot be negative")
	}

	discount, err := findActiveDiscount(s.db.WithContext(ctx), code)
	if err != nil {
		recordValidation(err)
		return nil, err
	}

	amount, err := EvaluateDiscount(discount, subtotal, itemsCount)
	recordValidation(err)
	if err != nil {
		return nil, err
	}

	return &DiscountQuote{
		Code:           discount.Code,
		Type:           discount.Type,
		Value:          discount.Value,
		MinQuantity:    discount.MinQuantity,
		DiscountAmount: amount,
	}, nil
}

// IncrementUsage books one use of code. The update is conditional so the
// counter never passes the usage limit.
func (s *DiscountService) IncrementUsage(ctx context.Context, code string) error {
	result := s.db.WithContext(ctx).
		Model(&models.Discount{}).
		Where("code = ? AND (usage_limit IS NULL OR used_count < usage_limit)", models.NormalizeDiscountCode(code)).
		Update("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to increment discount usage: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errDiscountUsageNotTaken
	}
	return nil
}

func findActiveDiscount(db *gorm.DB, code string) (*models.Discount, error) {
	normalized := models.NormalizeDiscountCode(code)
	if normalized == "" {
		return nil, ErrDiscountInvalid
	}

	var discount models.Discount
	err := db.Where("code = ? AND is_active = ?", normalized, true).First(&discount).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDiscountInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load discount: %w", err)
	}
	return &discount, nil
}

func recordValidation(err error) {
	var svcErr *ServiceError
	switch {
	case err == nil:
		metrics.RecordDiscountValidation("accepted")
	case errors.As(err, &svcErr):
		metrics.RecordDiscountValidation("rejected")
	default:
		metrics.RecordDiscountValidation("error")
	}
}
