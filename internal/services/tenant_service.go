package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"soundcheck/internal/models"
	"soundcheck/internal/repositories"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrSlugTaken = errors.New("tenant slug is already in use")

// ProvisionInput describes a new tenant and its first admin user.
type ProvisionInput struct {
	Name           string
	Slug           string
	Domain         string
	AdminEmail     string
	AdminPassword  string
	AdminFirstName string
	AdminLastName  string
}

type TenantService interface {
	Provision(ctx context.Context, input *ProvisionInput) (*models.Tenant, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	ResolveHost(ctx context.Context, host string) (*models.Tenant, error)
	List(ctx context.Context, limit, offset int) ([]*models.Tenant, error)
}

type tenantService struct {
	tenantRepo repositories.TenantRepository
	domainRepo repositories.DomainRepository
	userRepo   repositories.UserRepository
}

func NewTenantService(tenantRepo repositories.TenantRepository, domainRepo repositories.DomainRepository, userRepo repositories.UserRepository) TenantService {
	return &tenantService{
		tenantRepo: tenantRepo,
		domainRepo: domainRepo,
		userRepo:   userRepo,
	}
}

// Provision creates the tenant, attaches its primary domain and seeds the
// first admin account in one go. The operation is not transactional; a
// failure partway leaves the tenant without a domain or admin, which the
// provisioning CLI reports so the operator can retry.
func (s *tenantService) Provision(ctx context.Context, input *ProvisionInput) (*models.Tenant, error) {
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	existing, err := s.tenantRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if existing != nil {
		return nil, ErrSlugTaken
	}

	tenant := &models.Tenant{
		ID:         uuid.New(),
		Name:       input.Name,
		Slug:       slug,
		SchemaName: "tenant_" + strings.ReplaceAll(slug, "-", "_"),
		IsActive:   true,
	}
	if err := s.tenantRepo.Create(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	domain := &models.Domain{
		ID:        uuid.New(),
		TenantID:  tenant.ID,
		Domain:    strings.ToLower(strings.TrimSpace(input.Domain)),
		IsPrimary: true,
	}
	if err := s.domainRepo.Create(ctx, domain); err != nil {
		return nil, fmt.Errorf("failed to create domain: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}
	admin := &models.User{
		ID:           uuid.New(),
		TenantID:     tenant.ID,
		Email:        strings.ToLower(strings.TrimSpace(input.AdminEmail)),
		PasswordHash: string(hash),
		FirstName:    input.AdminFirstName,
		LastName:     input.AdminLastName,
		Role:         models.RoleTenantAdmin,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	return tenant, nil
}

func (s *tenantService) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return s.tenantRepo.GetByID(ctx, id)
}

// ResolveHost maps a request host to its active tenant. Returns nil when no
// tenant claims the host.
func (s *tenantService) ResolveHost(ctx context.Context, host string) (*models.Tenant, error) {
	return s.domainRepo.GetTenantByHost(ctx, host)
}

func (s *tenantService) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	return s.tenantRepo.List(ctx, limit, offset)
}
