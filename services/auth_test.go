package services

import (
	"context"
	"testing"

	"aftercollage_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	password := "SecretPass123!"

	hash, err := HashPassword(password)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, password, hash)

	assert.True(t, VerifyPassword(hash, password))
	assert.False(t, VerifyPassword(hash, "WrongPass"))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		missing  []string
	}{
		{"valid complex password", "StrongPassword123!", nil},
		{"too short", "Short1!", []string{"be at least 12 characters long"}},
		{"missing uppercase", "lowercase123!", []string{"contain an uppercase letter"}},
		{"missing lowercase", "UPPERCASE123!", []string{"contain a lowercase letter"}},
		{"missing number", "NoNumberPass!", []string{"contain a number"}},
		{"missing special char", "NoSpecialChar123", []string{"contain a special character"}},
		{"several at once", "abc", []string{"be at least 12 characters long", "contain an uppercase letter", "contain a number", "contain a special character"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.missing == nil {
				assert.NoError(t, err)
				return
			}
			var weak *WeakPasswordError
			require.ErrorAs(t, err, &weak)
			assert.Equal(t, tt.missing, weak.Missing)
		})
	}
}

func TestCreateAdmin(t *testing.T) {
	b, db := setupBackend(t)
	ctx := context.Background()

	user, err := CreateAdmin(ctx, db, " Priya ", " Priya@AfterCollage.in ", "StrongPassword123!")
	require.NoError(t, err)
	assert.Equal(t, "priya@aftercollage.in", user.Email)
	assert.Equal(t, "Priya", user.Name)
	assert.True(t, VerifyPassword(user.Password, "StrongPassword123!"))

	isAdmin, err := HasAdminRole(ctx, b, user.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	t.Run("signs in through the backend", func(t *testing.T) {
		session, err := b.SignIn(ctx, "priya@aftercollage.in", "StrongPassword123!")
		require.NoError(t, err)
		assert.Equal(t, user.ID, session.UserID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := CreateAdmin(ctx, db, "Other", "priya@aftercollage.in", "StrongPassword123!")
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := CreateAdmin(ctx, db, "Weak", "weak@aftercollage.in", "password")
		var weak *WeakPasswordError
		assert.ErrorAs(t, err, &weak)

		var count int64
		db.Model(&models.User{}).Where("email = ?", "weak@aftercollage.in").Count(&count)
		assert.Zero(t, count)
	})

	t.Run("grant is idempotent", func(t *testing.T) {
		require.NoError(t, GrantAdmin(ctx, db, user.ID))
		require.NoError(t, GrantAdmin(ctx, db, user.ID))

		var roles int64
		db.Model(&models.UserRole{}).Where("user_id = ?", user.ID).Count(&roles)
		assert.Equal(t, int64(1), roles)
	})
}
