package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aftercollage_app_go/backend"
	"aftercollage_app_go/models"
	"aftercollage_app_go/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testPassword = "StrongPassword123!"

func setupBackend(t *testing.T) (*backend.GormBackend, *gorm.DB) {
	// Unique shared memory name isolates tests
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, testDB.AutoMigrate(backend.Models()...))
	return backend.NewGormBackend(testDB, "test-secret-with-enough-length-123456", time.Hour), testDB
}

// signIn creates a user and returns a session token for it
func signIn(t *testing.T, b *backend.GormBackend, testDB *gorm.DB, email string, admin bool) string {
	ctx := context.Background()
	if admin {
		_, err := services.CreateAdmin(ctx, testDB, "Admin", email, testPassword)
		require.NoError(t, err)
	} else {
		hash, err := services.HashPassword(testPassword)
		require.NoError(t, err)
		require.NoError(t, testDB.Create(&models.User{Name: "Viewer", Email: email, Password: hash, IsActive: true}).Error)
	}

	session, err := b.SignIn(ctx, email, testPassword)
	require.NoError(t, err)
	return session.Token
}

func newContext(e *echo.Echo, method, path, token string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)
	return c, rec
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "success")
}
