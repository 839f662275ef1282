// Package backend is the persistence and identity service the landing site depends on.
// GormBackend keeps everything in the app's own database; RestBackend talks to a hosted
// Supabase project.
package backend

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Query narrows a Select. Rows are ordered by created_at, newest first unless Ascending.
// Unordered skips ordering for tables without created_at.
type Query struct {
	Filter    map[string]interface{}
	Ascending bool
	Unordered bool
	Limit     int
}

// Session is a signed-in identity
type Session struct {
	Token     string
	UserID    string
	Email     string
	ExpiresAt time.Time
}

type AuthEvent string

const (
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthChange is delivered to OnAuthStateChange subscribers.
// Token is the token the change applies to. Session is the resulting session, nil after sign-out.
type AuthChange struct {
	Event   AuthEvent
	Token   string
	Session *Session
}

// Store is the CRUD half of the persistence service
type Store interface {
	// Insert writes one row and returns its id
	Insert(ctx context.Context, collection string, row interface{}) (string, error)
	// Select loads rows into dest, a pointer to a slice
	Select(ctx context.Context, collection string, dest interface{}, q Query) error
	// Update patches exactly one row, ErrNotFound when no row has that id
	Update(ctx context.Context, collection, id string, patch map[string]interface{}) error
}

// Identity is the auth half of the persistence service
type Identity interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	// GetSession returns nil without error when the token carries no live session
	GetSession(ctx context.Context, token string) (*Session, error)
	OnAuthStateChange(fn func(AuthChange)) (unsubscribe func())
	SignOut(ctx context.Context, token string) error
}

type Backend interface {
	Store
	Identity
}

type ctxKey string

const (
	accessTokenKey ctxKey = "access_token"
	clientIPKey    ctxKey = "client_ip"
	userAgentKey   ctxKey = "user_agent"
)

// WithAccessToken makes store calls act on behalf of the signed-in user
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey, token)
}

func accessTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey).(string)
	return token
}

// WithClient attaches request metadata recorded on new sessions
func WithClient(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey, ip)
	return context.WithValue(ctx, userAgentKey, userAgent)
}

func clientFrom(ctx context.Context) (ip, userAgent string) {
	ip, _ = ctx.Value(clientIPKey).(string)
	userAgent, _ = ctx.Value(userAgentKey).(string)
	return ip, userAgent
}

// authListeners fans auth changes out to subscribers in subscription order
type authListeners struct {
	mu     sync.Mutex
	nextID int
	subs   []authSub
}

type authSub struct {
	id int
	fn func(AuthChange)
}

func (l *authListeners) subscribe(fn func(AuthChange)) func() {
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.subs = append(l.subs, authSub{id: id, fn: fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for i, s := range l.subs {
				if s.id == id {
					l.subs = append(l.subs[:i:i], l.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// emit calls subscribers outside the lock so they may subscribe or unsubscribe
func (l *authListeners) emit(change AuthChange) {
	l.mu.Lock()
	subs := make([]authSub, len(l.subs))
	copy(subs, l.subs)
	l.mu.Unlock()

	for _, s := range subs {
		s.fn(change)
	}
}
