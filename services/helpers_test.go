package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/lx-boutique/storefront-api/config"
	"github.com/lx-boutique/storefront-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbNameReplacer = strings.NewReplacer("/", "_", " ", "_", "#", "_")

// setupServiceTestDB opens a private in-memory database for t. A single
// connection serializes concurrent transactions the way row locks would.
func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", dbNameReplacer.Replace(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), config.GormConfig(logger.Silent))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func createProduct(t *testing.T, db *gorm.DB, name string, price string, stock int) models.Product {
	t.Helper()
	product := models.Product{
		Name:          name,
		Category:      "dresses",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		Images:        []string{},
		Sizes:         []string{"M"},
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func createDiscount(t *testing.T, db *gorm.DB, discount models.Discount) models.Discount {
	t.Helper()
	require.NoError(t, db.Create(&discount).Error)
	return discount
}

func intPtr(v int) *int {
	return &v
}

func uintPtr(v uint) *uint {
	return &v
}
