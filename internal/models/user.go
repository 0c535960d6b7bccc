package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the local record of an identity owned by the external auth provider.
// ExternalID is the provider's subject and is unique.
type User struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	ImageURL   string    `json:"image_url,omitempty"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user may moderate community content.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
