package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit event types recorded by the security flows.
const (
	EventLoginSuccess          = "login_success"
	EventLoginFailure          = "login_failure"
	EventLogout                = "logout"
	EventMFASetupComplete      = "mfa_setup_complete"
	EventMFAVerifySuccess      = "mfa_verify_success"
	EventMFAVerifyFailure      = "mfa_verify_failure"
	EventMFAReset              = "mfa_reset"
	EventRecoveryRegenerated   = "recovery_codes_regenerated"
	EventPasswordResetRequest  = "password_reset_requested"
	EventPasswordResetComplete = "password_reset_complete"
	EventUserCreated           = "user_created"
	EventUserUpdated           = "user_updated"
	EventClientCreated         = "client_created"
	EventClientUpdated         = "client_updated"
	EventClientAccountsAdded   = "client_accounts_added"
	EventClientAccountRemoved  = "client_account_removed"
	EventCSVExportInitiated    = "csv_export_initiated"
	EventCSVExportCompleted    = "csv_export_completed"
	EventCSVExportDenied       = "csv_export_denied"
)

// AuditEntry is an immutable, append-only record of a security-relevant
// event. Application logic never updates or deletes entries.
type AuditEntry struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	TenantID  uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	Timestamp time.Time  `json:"timestamp" db:"timestamp"`
	EventType string     `json:"event_type" db:"event_type"`
	UserID    *uuid.UUID `json:"user_id" db:"user_id"`
	Detail    string     `json:"detail" db:"detail"`
	IPAddress string     `json:"ip_address" db:"ip_address"`
	UserAgent string     `json:"user_agent" db:"user_agent"`
}
