package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lx-boutique/storefront-api/config"
	"github.com/lx-boutique/storefront-api/controllers"
	"github.com/lx-boutique/storefront-api/logger"
	"github.com/lx-boutique/storefront-api/metrics"
	"github.com/lx-boutique/storefront-api/middleware"
	"github.com/lx-boutique/storefront-api/models"
	"github.com/lx-boutique/storefront-api/services"
	"github.com/lx-boutique/storefront-api/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.GetLogger().Sync() //nolint:errcheck
	logger.GetLogger().Info("Starting Storefront API server...", zap.String("env", cfg.GoEnv))

	if err := config.ConnectDatabase(); err != nil {
		logger.GetLogger().Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := models.AutoMigrate(config.GetDB()); err != nil {
		logger.GetLogger().Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.GetLogger().Info("Database migration completed successfully")

	ctx := context.Background()
	if err := seedAdmin(ctx, cfg, services.NewAuthService(config.GetDB())); err != nil {
		logger.GetLogger().Fatal("Failed to create admin account", zap.Error(err))
	}
	if cfg.UsesS3() {
		s3Service, err := services.InitS3Service(ctx, cfg)
		if err != nil {
			logger.GetLogger().Fatal("Failed to initialize S3 service", zap.Error(err))
		}
		services.InitImageService(s3Service)
		logger.GetLogger().Info("Storing product images in S3", zap.String("bucket", cfg.AWSS3Bucket))
	} else {
		utils.UploadDir = cfg.UploadDir
		services.InitLocalImageService(cfg.UploadDir)
		logger.GetLogger().Info("Storing product images on local disk", zap.String("dir", cfg.UploadDir))
	}

	if _, err := services.InitNotifier(ctx, cfg); err != nil {
		logger.GetLogger().Fatal("Failed to initialize notifier", zap.Error(err))
	}

	router, err := setupRouter(cfg)
	if err != nil {
		logger.GetLogger().Fatal("Failed to set up router", zap.Error(err))
	}

	addr := ":" + cfg.Port
	logger.GetLogger().Info("Server is running", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.GetLogger().Fatal("Failed to start server", zap.Error(err))
	}
}

// seedAdmin ensures the operator account named by ADMIN_EMAIL exists. An
// existing account is left untouched.
func seedAdmin(ctx context.Context, cfg *config.Config, authService *services.AuthService) error {
	if !cfg.SeedsAdmin() {
		return nil
	}

	admin, err := authService.CreateAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName)
	if errors.Is(err, services.ErrUserExists) {
		logger.GetLogger().Info("Admin account already exists", zap.String("email", cfg.AdminEmail))
		return nil
	}
	if err != nil {
		return err
	}

	logger.GetLogger().Info("Admin account created", zap.Uint("user_id", admin.ID), zap.String("email", admin.Email))
	return nil
}

// setupRouter builds the engine with every storefront route registered
func setupRouter(cfg *config.Config) (*gin.Engine, error) {
	auth, err := middleware.NewAuthenticator(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}

	orderLimiter := middleware.NewRateLimiter(cfg.OrderRateLimit, cfg.OrderRateWindow,
		"Too many orders from this IP, please try again later.")
	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow,
		"Too many login attempts, please try again later.")

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.AdminAuthorizationHeader, controllers.IdempotencyKeyHeader, logger.RequestIDHeader},
		ExposeHeaders:    []string{logger.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
	}))
	router.Use(middleware.RequestID())
	router.Use(logger.Middleware())
	router.Use(metrics.Middleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus)

		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/register", authLimiter.Middleware(), controllers.Register)
			authRoutes.POST("/login", authLimiter.Middleware(), controllers.Login)
			authRoutes.POST("/logout", controllers.Logout)
			authRoutes.POST("/admin/logout", controllers.AdminLogout)
			authRoutes.GET("/me", auth.Required(), controllers.Me)
			authRoutes.GET("/admin/me", auth.Admin(), controllers.Me)
		}

		users := v1.Group("/users", auth.Admin())
		{
			users.GET("", controllers.ListCustomers)
			users.GET("/:id/orders", controllers.ListCustomerOrders)
			users.DELETE("/:id", controllers.DeleteCustomer)
		}

		products := v1.Group("/products")
		{
			products.GET("", controllers.ListProducts)
			products.GET("/:id", controllers.GetProduct)
			products.POST("", auth.Admin(), controllers.CreateProduct)
			products.PUT("/:id", auth.Admin(), controllers.UpdateProduct)
			products.DELETE("/:id", auth.Admin(), controllers.DeleteProduct)
			products.PATCH("/reorder", auth.Admin(), controllers.ReorderProducts)
			products.PATCH("/:id/sold", auth.Admin(), controllers.ToggleProductSold)
			products.POST("/:id/images", auth.Admin(), controllers.UploadProductImage)
		}

		if !cfg.UsesS3() {
			v1.GET("/uploads/:filename", controllers.GetUploadedImage)
		}

		orders := v1.Group("/orders")
		{
			orders.POST("", orderLimiter.Middleware(), auth.Optional(), controllers.CreateOrder)
			orders.GET("", auth.Admin(), controllers.ListOrders)
			orders.GET("/my-orders", auth.Required(), controllers.ListMyOrders)
			orders.GET("/track/:orderNumber", controllers.TrackOrder)
			orders.PATCH("/:id", auth.Admin(), controllers.UpdateOrderStatus)
			orders.DELETE("/:id", auth.Admin(), controllers.DeleteOrder)
		}

		wishlist := v1.Group("/wishlist", auth.Required())
		{
			wishlist.GET("", controllers.GetWishlist)
			wishlist.POST("", controllers.AddToWishlist)
			wishlist.DELETE("/:productId", controllers.RemoveFromWishlist)
		}

		v1.GET("/settings", controllers.GetSettings)
		v1.PATCH("/settings", auth.Admin(), controllers.UpdateSettings)

		discounts := v1.Group("/discounts")
		{
			discounts.POST("/validate", controllers.ValidateDiscount)
			discounts.GET("", auth.Admin(), controllers.ListDiscounts)
			discounts.POST("", auth.Admin(), controllers.CreateDiscount)
			discounts.PATCH("/:id", auth.Admin(), controllers.UpdateDiscount)
			discounts.DELETE("/:id", auth.Admin(), controllers.DeleteDiscount)
		}
	}

	return router, nil
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Storefront API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()
	if db == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Database is not connected",
			},
		})
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	tables, err := db.Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
