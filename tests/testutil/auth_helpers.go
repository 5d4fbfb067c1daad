package testutil

import (
	"net/http"
	"testing"

	"github.com/lx-boutique/storefront-api/config"
	"github.com/lx-boutique/storefront-api/middleware"
	"github.com/lx-boutique/storefront-api/models"
	"github.com/lx-boutique/storefront-api/services"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the password of every account made by CreateUser
const TestPassword = "Secret123"

// CreateUser stores an account with the given role and TestPassword
func CreateUser(t *testing.T, db *gorm.DB, email, name, role string) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: string(hash),
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// IssueToken signs a session token for user with cfg's secret
func IssueToken(t *testing.T, cfg *config.Config, user models.User) string {
	t.Helper()

	token, _, err := services.NewTokenService(cfg).Issue(&user)
	require.NoError(t, err)
	return token
}

// WithBearer sets the Authorization header on req
func WithBearer(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}

// WithAdminCookie attaches token as the admin session cookie
func WithAdminCookie(req *http.Request, token string) {
	req.AddCookie(&http.Cookie{Name: middleware.AdminCookie, Value: token})
}

// WithCustomerCookie attaches token as the customer session cookie
func WithCustomerCookie(req *http.Request, token string) {
	req.AddCookie(&http.Cookie{Name: middleware.CustomerCookie, Value: token})
}
