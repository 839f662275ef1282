package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"aftercollage_app_go/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultSessionDuration is used when no session lifetime is configured
const DefaultSessionDuration = 7 * 24 * time.Hour

// GormBackend stores submissions, users, sessions and roles in the app's own database
type GormBackend struct {
	db        *gorm.DB
	secret    []byte
	ttl       time.Duration
	now       func() time.Time
	listeners authListeners
}

func NewGormBackend(db *gorm.DB, secret string, ttl time.Duration) *GormBackend {
	if ttl <= 0 {
		ttl = DefaultSessionDuration
	}
	return &GormBackend{
		db:     db,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Models lists the tables GormBackend needs migrated
func Models() []interface{} {
	return []interface{}{
		&models.ContactSubmission{},
		&models.EarlyAccessSubmission{},
		&models.PartnerSubmission{},
		&models.User{},
		&models.UserRole{},
		&models.Session{},
		&models.AuditLog{},
	}
}

func (b *GormBackend) Insert(ctx context.Context, collection string, row interface{}) (string, error) {
	if err := b.db.WithContext(ctx).Table(collection).Create(row).Error; err != nil {
		return "", fmt.Errorf("insert into %s: %w", collection, err)
	}
	if r, ok := row.(interface{ GetID() string }); ok {
		return r.GetID(), nil
	}
	return "", nil
}

func (b *GormBackend) Select(ctx context.Context, collection string, dest interface{}, q Query) error {
	tx := b.db.WithContext(ctx).Table(collection)
	if len(q.Filter) > 0 {
		tx = tx.Where(q.Filter)
	}
	switch {
	case q.Unordered:
	case q.Ascending:
		tx = tx.Order("created_at ASC")
	default:
		tx = tx.Order("created_at DESC")
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if err := tx.Find(dest).Error; err != nil {
		return fmt.Errorf("select from %s: %w", collection, err)
	}
	return nil
}

func (b *GormBackend) Update(ctx context.Context, collection, id string, patch map[string]interface{}) error {
	result := b.db.WithContext(ctx).Table(collection).Where("id = ?", id).Updates(patch)
	if result.Error != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SignIn checks the password and opens a new session
func (b *GormBackend) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var user models.User
	err := b.db.WithContext(ctx).
		Where("email = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(email)), true).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	ip, userAgent := clientFrom(ctx)
	now := b.now()
	stored := &models.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		ExpiresAt: now.Add(b.ttl),
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if err := b.db.WithContext(ctx).Create(stored).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	b.db.WithContext(ctx).Model(&user).Update("last_login_at", now)

	session, err := b.issue(stored, user.Email, now)
	if err != nil {
		return nil, err
	}
	b.listeners.emit(AuthChange{Event: EventSignedIn, Token: session.Token, Session: session})
	return session, nil
}

// GetSession resolves a token to its live session. Sessions past half their lifetime are
// extended and re-issued, which subscribers see as TOKEN_REFRESHED for the old token.
func (b *GormBackend) GetSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}
	claims, err := ParseSessionToken(b.secret, token, b.now)
	if err != nil {
		return nil, nil
	}

	var stored models.Session
	err = b.db.WithContext(ctx).Preload("User").Where("id = ?", claims.SessionID).First(&stored).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to validate session: %w", err)
	}

	now := b.now()
	if now.After(stored.ExpiresAt) {
		b.db.WithContext(ctx).Delete(&stored)
		return nil, nil
	}
	if !stored.User.IsActive {
		return nil, nil
	}

	if stored.ExpiresAt.Sub(now) >= b.ttl/2 {
		return &Session{
			Token:     token,
			UserID:    stored.UserID,
			Email:     stored.User.Email,
			ExpiresAt: stored.ExpiresAt,
		}, nil
	}

	stored.ExpiresAt = now.Add(b.ttl)
	if err := b.db.WithContext(ctx).Model(&stored).Update("expires_at", stored.ExpiresAt).Error; err != nil {
		return nil, fmt.Errorf("failed to extend session: %w", err)
	}
	session, err := b.issue(&stored, stored.User.Email, now)
	if err != nil {
		return nil, err
	}
	b.listeners.emit(AuthChange{Event: EventTokenRefreshed, Token: token, Session: session})
	return session, nil
}

func (b *GormBackend) OnAuthStateChange(fn func(AuthChange)) func() {
	return b.listeners.subscribe(fn)
}

// SignOut deletes the session behind token. Unknown tokens are ignored.
func (b *GormBackend) SignOut(ctx context.Context, token string) error {
	claims, err := ParseSessionToken(b.secret, token, b.now)
	if err != nil {
		return nil
	}
	result := b.db.WithContext(ctx).Where("id = ?", claims.SessionID).Delete(&models.Session{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete session: %w", result.Error)
	}
	b.listeners.emit(AuthChange{Event: EventSignedOut, Token: token})
	return nil
}

// CleanupExpiredSessions removes all expired sessions from the database
func (b *GormBackend) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	result := b.db.WithContext(ctx).Where("expires_at < ?", b.now()).Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to cleanup expired sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (b *GormBackend) issue(stored *models.Session, email string, now time.Time) (*Session, error) {
	token, err := SignSessionToken(b.secret, stored.ID, stored.UserID, email, now, stored.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		UserID:    stored.UserID,
		Email:     email,
		ExpiresAt: stored.ExpiresAt,
	}, nil
}
