package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lx-boutique/storefront-api/config"
	"github.com/lx-boutique/storefront-api/logger"
	"github.com/lx-boutique/storefront-api/middleware"
	"github.com/lx-boutique/storefront-api/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegisterRequest represents the request body for creating an account
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"fullName" binding:"required"`
}

// LoginRequest represents the request body for signing in
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// authService is swapped by tests for a cheaper bcrypt cost
var authService = func() *services.AuthService {
	return services.NewAuthService(config.GetDB())
}

// Register handles POST /api/v1/auth/register - creates a customer account
func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	user, err := authService().Register(c.Request.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		respondServiceError(c, err, "Server error during registration")
		return
	}

	respondSuccess(c, http.StatusCreated, user)
}

// Login handles POST /api/v1/auth/login - checks credentials and starts a session.
// The token is set as an HttpOnly cookie named after the role and also returned.
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	user, err := authService().Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(c, err, "Server error during login")
		return
	}

	token, expiresAt, err := services.NewTokenService(config.GetConfig()).Issue(user)
	if err != nil {
		respondServiceError(c, err, "Server error during login")
		return
	}

	cookieName := middleware.CustomerCookie
	if user.IsAdmin() {
		cookieName = middleware.AdminCookie
	}
	setSessionCookie(c, cookieName, token, int(time.Until(expiresAt).Seconds()))

	logger.FromContext(c).Info("Login successful",
		zap.Uint("user_id", user.ID),
		zap.String("role", user.Role))

	respondSuccess(c, http.StatusOK, gin.H{
		"user":       user,
		"token":      token,
		"expires_at": expiresAt,
	})
}

// Logout handles POST /api/v1/auth/logout - clears the customer session cookie
func Logout(c *gin.Context) {
	setSessionCookie(c, middleware.CustomerCookie, "", -1)
	respondSuccess(c, http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// AdminLogout handles POST /api/v1/auth/admin/logout - clears the admin session cookie
func AdminLogout(c *gin.Context) {
	setSessionCookie(c, middleware.AdminCookie, "", -1)
	respondSuccess(c, http.StatusOK, gin.H{"message": "Admin logged out successfully"})
}

// Me handles GET /api/v1/auth/me and /api/v1/auth/admin/me - returns the signed-in account
func Me(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	user, err := authService().GetUser(c.Request.Context(), userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
		return
	}
	if err != nil {
		respondServiceError(c, err, "Failed to load user")
		return
	}

	respondSuccess(c, http.StatusOK, user)
}

// setSessionCookie writes an HttpOnly session cookie. In production the
// cookie is Secure and SameSite=None so a storefront on another origin can send it.
func setSessionCookie(c *gin.Context, name, value string, maxAge int) {
	secure := true
	sameSite := http.SameSiteNoneMode
	if cfg := config.GetConfig(); cfg == nil || !cfg.IsProduction() {
		secure = false
		sameSite = http.SameSiteLaxMode
	}

	c.SetSameSite(sameSite)
	c.SetCookie(name, value, maxAge, "/", "", secure, true)
}
