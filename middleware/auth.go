package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/lx-boutique/storefront-api/config"
	"github.com/lx-boutique/storefront-api/logger"
	"github.com/lx-boutique/storefront-api/models"
	"go.uber.org/zap"
)

const (
	// CustomerCookie holds a shopper's session token
	CustomerCookie = "token"
	// AdminCookie holds an operator's session token
	AdminCookie = "adminToken"
	// AdminAuthorizationHeader lets the admin dashboard send its token
	// alongside a customer session
	AdminAuthorizationHeader = "Admin-Authorization"

	userIDKey = "user_id"
	roleKey   = "user_role"
	claimsKey = "validated_claims"
)

// CustomClaims contains custom data we want from the token.
type CustomClaims struct {
	Role string `json:"role"`
}

// Validate rejects tokens carrying a role this service does not know.
func (c CustomClaims) Validate(ctx context.Context) error {
	if c.Role != models.RoleCustomer && c.Role != models.RoleAdmin {
		return fmt.Errorf("unknown role %q", c.Role)
	}
	return nil
}

// Authenticator verifies storefront session tokens
type Authenticator struct {
	validator *validator.Validator
}

// NewAuthenticator builds an authenticator for HS256 tokens signed with the
// configured secret, issuer and audience
func NewAuthenticator(cfg *config.Config) (*Authenticator, error) {
	secret := []byte(cfg.JWTSecret)
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return secret, nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		cfg.JWTIssuer,
		[]string{cfg.JWTAudience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the jwt validator: %w", err)
	}

	return &Authenticator{validator: jwtValidator}, nil
}

// CookieTokenExtractor reads a token from a cookie. A missing cookie yields no
// token rather than an error, so later extractors still run.
func CookieTokenExtractor(name string) jwtmiddleware.TokenExtractor {
	return func(r *http.Request) (string, error) {
		cookie, err := r.Cookie(name)
		if err != nil || cookie.Value == "" {
			return "", nil
		}
		return cookie.Value, nil
	}
}

// HeaderTokenExtractor reads a bearer token from header
func HeaderTokenExtractor(header string) jwtmiddleware.TokenExtractor {
	return func(r *http.Request) (string, error) {
		value := r.Header.Get(header)
		if value == "" {
			return "", nil
		}
		parts := strings.Fields(value)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return "", errors.New("authorization header format must be Bearer {token}")
		}
		return parts[1], nil
	}
}

func customerExtractor() jwtmiddleware.TokenExtractor {
	return jwtmiddleware.MultiTokenExtractor(
		CookieTokenExtractor(CustomerCookie),
		jwtmiddleware.AuthHeaderTokenExtractor,
	)
}

func adminExtractor() jwtmiddleware.TokenExtractor {
	return jwtmiddleware.MultiTokenExtractor(
		CookieTokenExtractor(AdminCookie),
		HeaderTokenExtractor(AdminAuthorizationHeader),
		jwtmiddleware.AuthHeaderTokenExtractor,
	)
}

// Optional resolves the caller's identity when a valid customer token is
// present. A missing, malformed or expired token leaves the request anonymous.
func (a *Authenticator) Optional() gin.HandlerFunc {
	extract := customerExtractor()

	return func(c *gin.Context) {
		token, err := extract(c.Request)
		if err != nil || token == "" {
			c.Next()
			return
		}

		validated, err := a.validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			logger.FromContext(c).Debug("Ignoring invalid credential on optional route", zap.Error(err))
			c.Next()
			return
		}

		if claims, ok := validated.(*validator.ValidatedClaims); ok {
			if err := setIdentity(c, claims); err != nil {
				logger.FromContext(c).Debug("Ignoring credential with unusable subject", zap.Error(err))
			}
		}
		c.Next()
	}
}

// Required rejects requests without a valid customer or admin token
func (a *Authenticator) Required() gin.HandlerFunc {
	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		if errors.Is(err, jwtmiddleware.ErrJWTMissing) {
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		writeAuthError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
	}

	return a.check(customerExtractor(), errorHandler, "")
}

// Admin rejects requests that do not carry a valid admin token
func (a *Authenticator) Admin() gin.HandlerFunc {
	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		if errors.Is(err, jwtmiddleware.ErrJWTMissing) {
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Admin authentication required")
			return
		}
		writeAuthError(w, http.StatusForbidden, "INVALID_TOKEN", "Invalid or expired admin token")
	}

	return a.check(adminExtractor(), errorHandler, models.RoleAdmin)
}

func (a *Authenticator) check(extract jwtmiddleware.TokenExtractor, errorHandler jwtmiddleware.ErrorHandler, role string) gin.HandlerFunc {
	mw := jwtmiddleware.New(
		a.validator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
		jwtmiddleware.WithTokenExtractor(extract),
	)

	return func(c *gin.Context) {
		var passed bool
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			if !ok {
				errorHandler(w, r, errors.New("claims missing from request context"))
				return
			}
			if err := setIdentity(c, claims); err != nil {
				errorHandler(w, r, err)
				return
			}
			c.Request = r
			passed = true
		}

		mw.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
			return
		}

		if role != "" && GetRole(c) != role {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Admin access required",
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func setIdentity(c *gin.Context, claims *validator.ValidatedClaims) error {
	id, err := strconv.ParseUint(claims.RegisteredClaims.Subject, 10, 64)
	if err != nil || id == 0 {
		return &AuthError{Code: "INVALID_SUBJECT", Message: "Token subject is not a user id"}
	}

	role := ""
	if custom, ok := claims.CustomClaims.(*CustomClaims); ok {
		role = custom.Role
	}

	c.Set(userIDKey, uint(id))
	c.Set(roleKey, role)
	c.Set(claimsKey, claims)
	return nil
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := fmt.Sprintf(`{"success":false,"error":{"code":%q,"message":%q}}`, code, message)
	if _, err := w.Write([]byte(body)); err != nil {
		logger.GetLogger().Warn("Failed to write error response", zap.Error(err))
	}
}

// GetUserID extracts the authenticated user ID from the Gin context
func GetUserID(c *gin.Context) (uint, error) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return 0, &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	id, ok := userID.(uint)
	if !ok {
		return 0, &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not a number"}
	}

	return id, nil
}

// OptionalUserID returns the caller's user id, or nil for guests
func OptionalUserID(c *gin.Context) *uint {
	id, err := GetUserID(c)
	if err != nil {
		return nil
	}
	return &id
}

// GetRole returns the role of the authenticated caller, empty for guests
func GetRole(c *gin.Context) string {
	return c.GetString(roleKey)
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(claimsKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
