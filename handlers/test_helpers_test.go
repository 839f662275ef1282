package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aftercollage_app_go/backend"
	"aftercollage_app_go/config"
	"aftercollage_app_go/middleware"
	"aftercollage_app_go/models"
	"aftercollage_app_go/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testPassword = "StrongPassword123!"

// testApp is the whole HTTP surface over an in-memory database
type testApp struct {
	e        *echo.Echo
	h        *Handlers
	db       *gorm.DB
	backend  *backend.GormBackend
	auditor  *services.Auditor
	inflight *services.MemoryInFlight
	exports  string
}

func setupApp(t *testing.T, configure ...func(*config.Config)) *testApp {
	t.Helper()

	// Unique shared memory name isolates tests
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, testDB.AutoMigrate(backend.Models()...))

	cfg := &config.Config{
		Environment:   "test",
		Backend:       config.BackendLocal,
		EmailTestMode: true,
		ExportDir:     t.TempDir(),
	}
	for _, fn := range configure {
		fn(cfg)
	}

	b := backend.NewGormBackend(testDB, "test-secret-with-enough-length-123456", time.Hour)
	auditor := services.NewAuditor(b, nil)
	guards := middleware.NewGuards(b, nil)
	guards.SetAuditor(auditor)
	inflight := services.NewMemoryInFlight()

	h := New(Deps{
		Config:  cfg,
		Backend: b,
		Intake:  services.NewIntake(b, inflight, nil),
		Reviews: services.NewReviewStore(b, nil),
		Guards:  guards,
		Auditor: auditor,
		Storage: services.NewLocalStorage(cfg.ExportDir),
		Monitor: services.NewLoginMonitor(nil, "", nil),
	})
	h.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }

	e := echo.New()
	h.Register(e)

	return &testApp{e: e, h: h, db: testDB, backend: b, auditor: auditor, inflight: inflight, exports: cfg.ExportDir}
}

// adminToken creates an admin and signs them in
func (a *testApp) adminToken(t *testing.T) string {
	t.Helper()
	_, err := services.CreateAdmin(context.Background(), a.db, "Admin", "admin@aftercollage.in", testPassword)
	require.NoError(t, err)
	session, err := a.backend.SignIn(context.Background(), "admin@aftercollage.in", testPassword)
	require.NoError(t, err)
	return session.Token
}

// viewerToken signs in a user without the admin role
func (a *testApp) viewerToken(t *testing.T) string {
	t.Helper()
	hash, err := services.HashPassword(testPassword)
	require.NoError(t, err)
	require.NoError(t, a.db.Create(&models.User{Name: "Viewer", Email: "viewer@example.com", Password: hash, IsActive: true}).Error)
	session, err := a.backend.SignIn(context.Background(), "viewer@example.com", testPassword)
	require.NoError(t, err)
	return session.Token
}

type requestOption func(*http.Request)

func withToken(token string) requestOption {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	}
}

func withHeader(key, value string) requestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

func asJSON(r *http.Request) {
	r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	r.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
}

func asForm(r *http.Request) {
	r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
}

func asHTMX(r *http.Request) {
	r.Header.Set("HX-Request", "true")
}

func (a *testApp) do(method, path string, body io.Reader, opts ...requestOption) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) seedContact(t *testing.T, name, email string) *models.ContactSubmission {
	t.Helper()
	sub := &models.ContactSubmission{Name: name, Email: email, Message: "Looking forward to hearing more"}
	require.NoError(t, a.db.Create(sub).Error)
	return sub
}

func (a *testApp) seedPartner(t *testing.T, name string) *models.PartnerSubmission {
	t.Helper()
	sub := &models.PartnerSubmission{
		FullName:          name,
		PhoneNumber:       "9876543210",
		Email:             "partner@fund.in",
		UserRole:          "Investor",
		AreasOfInterest:   []string{"Investment"},
		InterestedDomains: []string{"Education"},
		Consent:           true,
	}
	require.NoError(t, a.db.Create(sub).Error)
	return sub
}
