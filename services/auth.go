package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"aftercollage_app_go/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10
	// MinPasswordLength applies to local admin accounts
	MinPasswordLength = 12
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// VerifyPassword verifies a password against a bcrypt hash
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// WeakPasswordError lists every requirement a password misses
type WeakPasswordError struct {
	Missing []string
}

func (e *WeakPasswordError) Error() string {
	return "password must " + strings.Join(e.Missing, ", ")
}

// ValidatePassword requires at least MinPasswordLength characters with upper and lower case
// letters, a number and a symbol
func ValidatePassword(password string) error {
	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	var missing []string
	if len([]rune(password)) < MinPasswordLength {
		missing = append(missing, fmt.Sprintf("be at least %d characters long", MinPasswordLength))
	}
	if !hasUpper {
		missing = append(missing, "contain an uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "contain a lowercase letter")
	}
	if !hasNumber {
		missing = append(missing, "contain a number")
	}
	if !hasSpecial {
		missing = append(missing, "contain a special character")
	}
	if len(missing) > 0 {
		return &WeakPasswordError{Missing: missing}
	}
	return nil
}

// ErrUserExists is returned when creating an admin whose email is taken
var ErrUserExists = errors.New("user already exists")

// CreateAdmin creates an active local user and grants it the admin role in one transaction
func CreateAdmin(ctx context.Context, db *gorm.DB, name, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Name: strings.TrimSpace(name), Email: email, Password: hash, IsActive: true}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrUserExists
		}
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return grantAdmin(tx, user.ID)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GrantAdmin gives an existing user id the admin role; granting twice is a no-op
func GrantAdmin(ctx context.Context, db *gorm.DB, userID string) error {
	return grantAdmin(db.WithContext(ctx), userID)
}

func grantAdmin(tx *gorm.DB, userID string) error {
	role := models.UserRole{UserID: userID, Role: models.RoleAdmin}
	err := tx.Where(models.UserRole{UserID: userID, Role: models.RoleAdmin}).FirstOrCreate(&role).Error
	if err != nil {
		return fmt.Errorf("failed to grant admin role: %w", err)
	}
	return nil
}
