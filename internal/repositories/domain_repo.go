package repositories

import (
	"context"
	"errors"

	"soundcheck/internal/models"

	pgx "github.com/jackc/pgx/v5"
)

type DomainRepository interface {
	Create(ctx context.Context, domain *models.Domain) error
	// GetTenantByHost resolves a request hostname to its active tenant.
	// Returns (nil, nil) when no mapping exists or the tenant is inactive.
	GetTenantByHost(ctx context.Context, host string) (*models.Tenant, error)
}

type domainRepo struct {
	db Database
}

func NewDomainRepo(db Database) DomainRepository {
	return &domainRepo{db: db}
}

func (r *domainRepo) Create(ctx context.Context, domain *models.Domain) error {
	query := `
		INSERT INTO domains (id, tenant_id, domain, is_primary, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	_, err := r.db.Exec(ctx, query, domain.ID, domain.TenantID, domain.Domain, domain.IsPrimary)
	return err
}

func (r *domainRepo) GetTenantByHost(ctx context.Context, host string) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	query := `
		SELECT t.id, t.name, t.slug, t.schema_name, t.is_active, t.created_at, t.updated_at
		FROM domains d
		JOIN tenants t ON t.id = d.tenant_id
		WHERE d.domain = $1 AND t.is_active = true
	`
	err := r.db.QueryRow(ctx, query, host).Scan(&tenant.ID, &tenant.Name, &tenant.Slug,
		&tenant.SchemaName, &tenant.IsActive, &tenant.CreatedAt, &tenant.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tenant, nil
}
