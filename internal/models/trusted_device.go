package models

import (
	"time"

	"github.com/google/uuid"
)

// TrustedDevice grants a time-boxed MFA bypass for a recognized device
// fingerprint. The fingerprint is a hash over (user id, user agent) and is
// spoofable via headers; this is a convenience mechanism, not a security
// boundary.
type TrustedDevice struct {
	ID         uuid.UUID `json:"id" db:"id"`
	TenantID   uuid.UUID `json:"tenant_id" db:"tenant_id"`
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	DeviceHash string    `json:"-" db:"device_hash"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
}

// IsValid reports whether the record still grants an MFA bypass.
func (d *TrustedDevice) IsValid(now time.Time) bool {
	return now.Before(d.ExpiresAt)
}
