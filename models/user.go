package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a local dashboard identity, used when BACKEND=local
type User struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string     `gorm:"not null" json:"name"`
	Email       string     `gorm:"uniqueIndex;not null" json:"email"`
	Password    string     `gorm:"not null" json:"-"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// RoleAdmin is the only role that grants dashboard access
const RoleAdmin = "admin"

// UserRole grants a role to a user id. The id may belong to a local User or to a hosted identity.
type UserRole struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_role" json:"user_id"`
	Role      string    `gorm:"not null;uniqueIndex:idx_user_role" json:"role"`
	CreatedAt time.Time `gorm:"<-:create;autoCreateTime" json:"created_at"`
}

// BeforeCreate hook to generate UUID
func (r *UserRole) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

func (UserRole) TableName() string {
	return TableUserRoles
}
