package models

import (
	"time"

	"github.com/google/uuid"
)

// ResetTokenValidity is how long a password reset link stays usable.
const ResetTokenValidity = time.Hour

// PasswordResetToken is a single-use, short-lived credential for the
// password reset flow.
type PasswordResetToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TenantID  uuid.UUID `json:"tenant_id" db:"tenant_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Token     string    `json:"-" db:"token"`
	Used      bool      `json:"used" db:"used"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsValid reports whether the token is unused and within its validity window.
func (t *PasswordResetToken) IsValid(now time.Time) bool {
	return !t.Used && now.Sub(t.CreatedAt) < ResetTokenValidity
}
