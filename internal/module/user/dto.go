package user

import (
	"time"

	"github.com/google/uuid"
)

// UpdateProfileRequest represents a profile update.
type UpdateProfileRequest struct {
	Name    string  `json:"name"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

// ChangePasswordRequest represents a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// SetAdminRequest toggles the admin flag on a user.
type SetAdminRequest struct {
	IsAdmin bool `json:"is_admin"`
}

// Response represents a user in API responses.
type Response struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	IsAdmin       bool      `json:"is_admin"`
	Phone         string    `json:"phone,omitempty"`
	Address       string    `json:"address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToResponse converts a User to its API representation.
func ToResponse(u *User) *Response {
	return &Response{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		IsAdmin:       u.IsAdmin,
		Phone:         u.Phone,
		Address:       u.Address,
		CreatedAt:     u.CreatedAt,
	}
}
