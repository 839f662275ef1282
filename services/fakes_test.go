package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"aftercollage_app_go/backend"
	"aftercollage_app_go/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSecret = "test-secret-with-enough-length-123456"

// setupBackend returns a GormBackend over a private in-memory database
func setupBackend(t *testing.T) (*backend.GormBackend, *gorm.DB) {
	dbName := "mem_" + uuid.New().String()
	db, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(backend.Models()...))
	return backend.NewGormBackend(db, testSecret, time.Hour), db
}

func createTestUser(t *testing.T, db *gorm.DB, email, password string, admin bool) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{Name: "Operator", Email: email, Password: string(hash), IsActive: true}
	require.NoError(t, db.Create(user).Error)
	if admin {
		require.NoError(t, db.Create(&models.UserRole{UserID: user.ID, Role: models.RoleAdmin}).Error)
	}
	return user
}

// fakeBackend is a scriptable backend.Backend
type fakeBackend struct {
	mu          sync.Mutex
	sessions    map[string]*backend.Session
	admins      map[string]bool
	roleErr     error
	insertErr   error
	insertGate  chan struct{}
	started     chan struct{}
	inserts     []interface{}
	roleQueries int
	signOuts    []string
	nextSub     int
	subs        map[int]func(backend.AuthChange)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		sessions: make(map[string]*backend.Session),
		admins:   make(map[string]bool),
		subs:     make(map[int]func(backend.AuthChange)),
	}
}

func (f *fakeBackend) addSession(token, userID string, admin bool) *backend.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &backend.Session{Token: token, UserID: userID, Email: userID + "@example.com", ExpiresAt: time.Now().Add(time.Hour)}
	f.sessions[token] = s
	if admin {
		f.admins[userID] = true
	}
	return s
}

func (f *fakeBackend) Insert(ctx context.Context, collection string, row interface{}) (string, error) {
	f.mu.Lock()
	gate, started, err := f.insertGate, f.started, f.insertErr
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts = append(f.inserts, row)
	return fmt.Sprintf("id-%d", len(f.inserts)), nil
}

func (f *fakeBackend) Select(ctx context.Context, collection string, dest interface{}, q backend.Query) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if collection != models.TableUserRoles {
		return nil
	}
	f.roleQueries++
	if f.roleErr != nil {
		return f.roleErr
	}
	roles := dest.(*[]models.UserRole)
	userID, _ := q.Filter["user_id"].(string)
	if f.admins[userID] {
		*roles = []models.UserRole{{UserID: userID, Role: models.RoleAdmin}}
	}
	return nil
}

func (f *fakeBackend) Update(ctx context.Context, collection, id string, patch map[string]interface{}) error {
	return nil
}

func (f *fakeBackend) SignIn(ctx context.Context, email, password string) (*backend.Session, error) {
	return nil, backend.ErrInvalidCredentials
}

func (f *fakeBackend) GetSession(ctx context.Context, token string) (*backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[token], nil
}

func (f *fakeBackend) OnAuthStateChange(fn func(backend.AuthChange)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSub++
	id := f.nextSub
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *fakeBackend) SignOut(ctx context.Context, token string) error {
	f.mu.Lock()
	f.signOuts = append(f.signOuts, token)
	delete(f.sessions, token)
	f.mu.Unlock()

	f.emit(backend.AuthChange{Event: backend.EventSignedOut, Token: token})
	return nil
}

func (f *fakeBackend) emit(change backend.AuthChange) {
	f.mu.Lock()
	fns := make([]func(backend.AuthChange), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}

func (f *fakeBackend) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeBackend) insertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserts)
}

func (f *fakeBackend) signedOut() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.signOuts...)
}

func (f *fakeBackend) roleQueryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roleQueries
}
