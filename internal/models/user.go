package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles within a tenant.
const (
	RoleTenantAdmin = "admin"
	RoleTenantUser  = "user"
)

type User struct {
	ID            uuid.UUID `json:"id" db:"id"`
	TenantID      uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Email         string    `json:"email" db:"email"`
	PasswordHash  string    `json:"-" db:"password_hash"` // Never serialize in JSON
	FirstName     string    `json:"first_name" db:"first_name"`
	LastName      string    `json:"last_name" db:"last_name"`
	Role          string    `json:"role" db:"role"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	MFASecret     string    `json:"-" db:"mfa_secret"`
	MFAEnabled    bool      `json:"mfa_enabled" db:"mfa_enabled"`
	MFAConfirmed  bool      `json:"mfa_confirmed" db:"mfa_confirmed"`
	RecoveryCodes []string  `json:"-" db:"recovery_codes"` // sha256 hex hashes, never plaintext
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// IsTenantAdmin reports whether the user holds the tenant admin role.
func (u *User) IsTenantAdmin() bool {
	return u.Role == RoleTenantAdmin
}

// DisplayName returns a human readable name, falling back to the email.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.Email
}
