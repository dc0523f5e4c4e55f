package domain

import (
	"time"
)

// User represents a registered portal user, keyed by email.
// Profile data is opaque to the coordination core; only email and role are
// read when routing events.
type User struct {
	Email          string                 `json:"email"`
	Role           string                 `json:"user_type"` // Patient, Doctor
	Profile        map[string]interface{} `json:"user_data"`
	PasswordHash   string                 `json:"-"` // Never expose in JSON
	RegisteredDate time.Time              `json:"registered_date"`
}

// UserResponse is the safe user representation returned to clients
type UserResponse struct {
	Email          string                 `json:"email"`
	Role           string                 `json:"user_type"`
	Profile        map[string]interface{} `json:"user_data"`
	RegisteredDate time.Time              `json:"registered_date"`
}

// ToResponse converts User to UserResponse (removes sensitive data)
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		Email:          u.Email,
		Role:           u.Role,
		Profile:        u.Profile,
		RegisteredDate: u.RegisteredDate,
	}
}
