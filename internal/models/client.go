package models

import (
	"time"

	"github.com/google/uuid"
)

// Client groups a set of external account identifiers. Dashboard views are
// scoped to the accounts mapped to the selected client.
type Client struct {
	ClientID  uuid.UUID `json:"client_id" db:"client_id"`
	TenantID  uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Name      string    `json:"name" db:"name"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ClientAccount maps a client to an account_id from the analytics views.
// (client_id, account_id) pairs are unique.
type ClientAccount struct {
	ID        int64     `json:"id" db:"id"`
	TenantID  uuid.UUID `json:"tenant_id" db:"tenant_id"`
	ClientID  uuid.UUID `json:"client_id" db:"client_id"`
	AccountID string    `json:"account_id" db:"account_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
