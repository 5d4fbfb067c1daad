package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

// ServiceError is a failure the HTTP layer can report to the caller as-is
type ServiceError struct {
	Status  int
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

var (
	ErrOrderNotFound         = &ServiceError{Status: http.StatusNotFound, Code: "ORDER_NOT_FOUND", Message: "Order not found or email mismatch"}
	ErrOrderMissing          = &ServiceError{Status: http.StatusNotFound, Code: "ORDER_NOT_FOUND", Message: "Order not found"}
	ErrInvalidTransition     = &ServiceError{Status: http.StatusConflict, Code: "INVALID_STATUS_TRANSITION", Message: "Order cannot move to the requested status"}
	ErrProductNotFound       = &ServiceError{Status: http.StatusNotFound, Code: "PRODUCT_NOT_FOUND", Message: "Product not found"}
	ErrInsufficientStock     = &ServiceError{Status: http.StatusConflict, Code: "INSUFFICIENT_STOCK", Message: "One or more items are out of stock"}
	ErrTotalMismatch         = &ServiceError{Status: http.StatusBadRequest, Code: "TOTAL_MISMATCH", Message: "Order total does not match items and discount"}
	ErrIdempotencyConflict   = &ServiceError{Status: http.StatusConflict, Code: "IDEMPOTENCY_KEY_CONFLICT", Message: "Idempotency key was already used for a different order"}
	ErrDiscountInvalid       = &ServiceError{Status: http.StatusBadRequest, Code: "INVALID_DISCOUNT", Message: "Invalid discount code or code has expired"}
	ErrDiscountExhausted     = &ServiceError{Status: http.StatusBadRequest, Code: "INVALID_DISCOUNT", Message: "This discount code has reached its usage limit"}
	ErrInvalidCredentials    = &ServiceError{Status: http.StatusUnauthorized, Code: "INVALID_CREDENTIALS", Message: "Invalid credentials"}
	ErrUserExists            = &ServiceError{Status: http.StatusBadRequest, Code: "USER_EXISTS", Message: "User already exists"}
	ErrOrderNumberExhausted  = errors.New("could not generate a unique order number")
	errDiscountUsageNotTaken = errors.New("discount usage limit reached or code missing")
)

// ValidationError reports malformed input with a specific human-readable reason
func ValidationError(message string) *ServiceError {
	return &ServiceError{Status: http.StatusBadRequest, Code: "VALIDATION_ERROR", Message: message}
}

func discountMinimumError(minQuantity int) *ServiceError {
	return &ServiceError{
		Status:  http.StatusBadRequest,
		Code:    "INVALID_DISCOUNT",
		Message: fmt.Sprintf("This code requires a minimum of %d items", minQuantity),
	}
}

// IsUniqueViolation reports whether err came from a unique constraint. The
// database is opened with TranslateError, so drivers report it as
// gorm.ErrDuplicatedKey; a raw PostgreSQL error is matched by SQLSTATE.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
