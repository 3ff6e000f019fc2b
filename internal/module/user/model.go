package user

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered customer or admin.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name         string    `json:"name" gorm:"not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;not null"`

	EmailVerified bool `json:"email_verified" gorm:"column:email_verified;default:false"`
	IsAdmin       bool `json:"is_admin" gorm:"column:is_admin;default:false"`

	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-" gorm:"index"` // soft delete
}

// TableName returns the database table name.
func (User) TableName() string {
	return "users"
}

// CanLogin checks if the user is allowed to login.
func (u *User) CanLogin() bool {
	return u.EmailVerified && u.DeletedAt == nil
}
