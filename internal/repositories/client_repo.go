package repositories

import (
	"context"
	"errors"

	"soundcheck/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
)

type ClientRepository interface {
	Create(ctx context.Context, client *models.Client) error
	GetByID(ctx context.Context, tenantID, clientID uuid.UUID) (*models.Client, error)
	Update(ctx context.Context, client *models.Client) error
	List(ctx context.Context, tenantID uuid.UUID) ([]*models.Client, error)
	ListActive(ctx context.Context, tenantID uuid.UUID) ([]*models.Client, error)

	// Account mappings
	AddAccounts(ctx context.Context, tenantID, clientID uuid.UUID, accountIDs []string) (int, error)
	ListMappings(ctx context.Context, tenantID, clientID uuid.UUID) ([]*models.ClientAccount, error)
	ListAccountIDs(ctx context.Context, tenantID, clientID uuid.UUID) ([]string, error)
	DeleteMapping(ctx context.Context, tenantID, clientID uuid.UUID, mappingID int64) (string, error)
}

type clientRepo struct {
	db Database
}

func NewClientRepo(db Database) ClientRepository {
	return &clientRepo{db: db}
}

func (r *clientRepo) Create(ctx context.Context, client *models.Client) error {
	query := `
		INSERT INTO clients (client_id, tenant_id, name, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, client.ClientID, client.TenantID, client.Name, client.Active)
	return err
}

func (r *clientRepo) GetByID(ctx context.Context, tenantID, clientID uuid.UUID) (*models.Client, error) {
	client := &models.Client{}
	query := `
		SELECT client_id, tenant_id, name, active, created_at, updated_at
		FROM clients
		WHERE tenant_id = $1 AND client_id = $2
	`
	err := r.db.QueryRow(ctx, query, tenantID, clientID).Scan(&client.ClientID, &client.TenantID,
		&client.Name, &client.Active, &client.CreatedAt, &client.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (r *clientRepo) Update(ctx context.Context, client *models.Client) error {
	query := `
		UPDATE clients
		SET name = $1, active = $2, updated_at = NOW()
		WHERE tenant_id = $3 AND client_id = $4
	`
	_, err := r.db.Exec(ctx, query, client.Name, client.Active, client.TenantID, client.ClientID)
	return err
}

func (r *clientRepo) List(ctx context.Context, tenantID uuid.UUID) ([]*models.Client, error) {
	return r.list(ctx, tenantID, false)
}

func (r *clientRepo) ListActive(ctx context.Context, tenantID uuid.UUID) ([]*models.Client, error) {
	return r.list(ctx, tenantID, true)
}

func (r *clientRepo) list(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]*models.Client, error) {
	query := `
		SELECT client_id, tenant_id, name, active, created_at, updated_at
		FROM clients
		WHERE tenant_id = $1
	`
	if activeOnly {
		query += ` AND active = true`
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		client := &models.Client{}
		if err := rows.Scan(&client.ClientID, &client.TenantID, &client.Name, &client.Active,
			&client.CreatedAt, &client.UpdatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}

// AddAccounts inserts the given account IDs for a client, skipping pairs that
// already exist. Returns the number of mappings actually created.
func (r *clientRepo) AddAccounts(ctx context.Context, tenantID, clientID uuid.UUID, accountIDs []string) (int, error) {
	query := `
		INSERT INTO client_accounts (tenant_id, client_id, account_id, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (client_id, account_id) DO NOTHING
	`
	created := 0
	for _, accountID := range accountIDs {
		tag, err := r.db.Exec(ctx, query, tenantID, clientID, accountID)
		if err != nil {
			return created, err
		}
		created += int(tag.RowsAffected())
	}
	return created, nil
}

func (r *clientRepo) ListMappings(ctx context.Context, tenantID, clientID uuid.UUID) ([]*models.ClientAccount, error) {
	query := `
		SELECT id, tenant_id, client_id, account_id, created_at
		FROM client_accounts
		WHERE tenant_id = $1 AND client_id = $2
		ORDER BY account_id
	`
	rows, err := r.db.Query(ctx, query, tenantID, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []*models.ClientAccount
	for rows.Next() {
		m := &models.ClientAccount{}
		if err := rows.Scan(&m.ID, &m.TenantID, &m.ClientID, &m.AccountID, &m.CreatedAt); err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// ListAccountIDs returns the account identifiers a client is permitted to
// see. An empty result means the client has no account access at all.
func (r *clientRepo) ListAccountIDs(ctx context.Context, tenantID, clientID uuid.UUID) ([]string, error) {
	query := `
		SELECT account_id
		FROM client_accounts
		WHERE tenant_id = $1 AND client_id = $2
		ORDER BY account_id
	`
	rows, err := r.db.Query(ctx, query, tenantID, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accountIDs := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		accountIDs = append(accountIDs, id)
	}
	return accountIDs, rows.Err()
}

// DeleteMapping removes one client→account mapping and returns the removed
// account ID for audit purposes. Returns "" when no such mapping existed.
func (r *clientRepo) DeleteMapping(ctx context.Context, tenantID, clientID uuid.UUID, mappingID int64) (string, error) {
	var accountID string
	query := `
		DELETE FROM client_accounts
		WHERE tenant_id = $1 AND client_id = $2 AND id = $3
		RETURNING account_id
	`
	err := r.db.QueryRow(ctx, query, tenantID, clientID, mappingID).Scan(&accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return accountID, nil
}
