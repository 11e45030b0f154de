package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleIntern Role = "intern"
)

// Profile mirrors an authenticated identity inside the application. ID is the identity id.
type Profile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      Role      `gorm:"default:intern" json:"role"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName falls back to the email when no name was stored.
func (p Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}

// Account is the identity record owned by the auth client.
type Account struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string            `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string            `json:"-"`
	Provider     string            `gorm:"default:email" json:"provider"`
	UserMetadata datatypes.JSONMap `json:"user_metadata"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (Account) TableName() string {
	return "auth_accounts"
}

// Identity is the application view of the signed-in user.
type Identity struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// FallbackName derives a display name from the email local part.
func FallbackName(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	if email != "" {
		return email
	}
	return "Intern"
}
