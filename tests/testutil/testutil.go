package testutil

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/lx-boutique/storefront-api/config"
	"github.com/lx-boutique/storefront-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbNameReplacer = strings.NewReplacer("/", "_", " ", "_", "#", "_", "'", "_")

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
// It will fail the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// MustSetTestEnvironment sets GO_ENV to test and fails if it cannot be set.
// Use this in TestMain or suite setup functions.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("Failed to set GO_ENV=test: %v", err)
	}
	if os.Getenv("GO_ENV") != "test" {
		t.Fatal("Failed to verify GO_ENV=test")
	}
}

// TestConfig returns a configuration suitable for handler tests. It is also
// installed as the process configuration.
func TestConfig() *config.Config {
	cfg := &config.Config{
		DatabaseURL:        "sqlite://memory",
		Port:               "8080",
		GoEnv:              "test",
		LogLevel:           "error",
		JWTSecret:          "storefront-test-secret",
		JWTIssuer:          "storefront-api",
		JWTAudience:        "storefront-web",
		JWTExpiration:      time.Hour,
		CORSAllowedOrigins: []string{"http://localhost:5173"},
		AWSRegion:          "us-east-1",
		OrderRateLimit:     100,
		OrderRateWindow:    time.Hour,
		AuthRateLimit:      100,
		AuthRateWindow:     15 * time.Minute,
	}
	config.SetConfig(cfg)
	return cfg
}

// SetupTestDB opens a private in-memory database named after t, migrates the
// schema and installs it as the process database. A single connection keeps
// concurrent transactions serialized.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", dbNameReplacer.Replace(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), config.GormConfig(logger.Silent))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	config.SetDB(db)
	return db
}

// CreateProduct stores a product with the given price and stock
func CreateProduct(t *testing.T, db *gorm.DB, name, price string, stock int) models.Product {
	t.Helper()

	product := models.Product{
		Name:          name,
		Category:      "dresses",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		Images:        []string{},
		Sizes:         []string{"S", "M"},
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

// CreateDiscount stores an active discount code
func CreateDiscount(t *testing.T, db *gorm.DB, code, discountType, value string, minQuantity int, usageLimit *int) models.Discount {
	t.Helper()

	discount := models.Discount{
		Code:        models.NormalizeDiscountCode(code),
		Type:        discountType,
		Value:       decimal.RequireFromString(value),
		MinQuantity: minQuantity,
		UsageLimit:  usageLimit,
		IsActive:    true,
	}
	require.NoError(t, db.Create(&discount).Error)
	return discount
}

// ReloadProduct reads the current row for product id
func ReloadProduct(t *testing.T, db *gorm.DB, id uint) models.Product {
	t.Helper()

	var product models.Product
	require.NoError(t, db.Unscoped().First(&product, id).Error)
	return product
}

// CountOrders returns the number of live orders
func CountOrders(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	return count
}
