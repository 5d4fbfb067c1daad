package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/lx-boutique/storefront-api/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

// AuthService registers accounts and checks their credentials
type AuthService struct {
	db         *gorm.DB
	bcryptCost int
}

// NewAuthService creates an auth service backed by db
func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db, bcryptCost: bcrypt.DefaultCost}
}

// WithBcryptCost returns a copy of the service hashing with cost. Tests use
// bcrypt.MinCost to stay fast.
func (s *AuthService) WithBcryptCost(cost int) *AuthService {
	clone := *s
	clone.bcryptCost = cost
	return &clone
}

// Register creates a customer account
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	return s.createUser(ctx, email, password, name, models.RoleCustomer)
}

// CreateAdmin creates an operator account
func (s *AuthService) CreateAdmin(ctx context.Context, email, password, name string) (*models.User, error) {
	return s.createUser(ctx, email, password, name, models.RoleAdmin)
}

// Authenticate returns the user for a matching email and password. Unknown
// emails and wrong passwords yield the same error.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// GetUser loads a user by id
func (s *AuthService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) createUser(ctx context.Context, email, password, name, role string) (*models.User, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)

	if email == "" || !strings.Contains(email, "@") {
		return nil, ValidationError("Valid email is required")
	}
	if name == "" {
		return nil, ValidationError("Full name is required")
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// ValidatePassword enforces the password policy: at least eight characters
// with at least one letter and one digit
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ValidationError(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return ValidationError("Password must contain at least one letter and one number")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
