package services

import (
	"context"
	"errors"

	"soundcheck/internal/caching"
	"soundcheck/internal/models"
	"soundcheck/internal/repositories"

	"github.com/google/uuid"
)

var ErrClientNotFound = errors.New("client not found")

type ClientService interface {
	Create(ctx context.Context, tenantID uuid.UUID, name string) (*models.Client, error)
	GetByID(ctx context.Context, tenantID, clientID uuid.UUID) (*models.Client, error)
	Update(ctx context.Context, tenantID, clientID uuid.UUID, name *string, active *bool) (*models.Client, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*models.Client, error)
	AddAccounts(ctx context.Context, tenantID, clientID uuid.UUID, accountIDs []string) (int, error)
	ListMappings(ctx context.Context, tenantID, clientID uuid.UUID) ([]*models.ClientAccount, error)
	RemoveMapping(ctx context.Context, tenantID, clientID uuid.UUID, mappingID int64) (string, error)
}

type clientService struct {
	clientRepo repositories.ClientRepository
	cache      caching.CacheService
}

func NewClientService(clientRepo repositories.ClientRepository, cache caching.CacheService) ClientService {
	return &clientService{clientRepo: clientRepo, cache: cache}
}

func (s *clientService) Create(ctx context.Context, tenantID uuid.UUID, name string) (*models.Client, error) {
	client := &models.Client{
		ClientID: uuid.New(),
		TenantID: tenantID,
		Name:     name,
		Active:   true,
	}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *clientService) GetByID(ctx context.Context, tenantID, clientID uuid.UUID) (*models.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, tenantID, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrClientNotFound
	}
	return client, nil
}

func (s *clientService) Update(ctx context.Context, tenantID, clientID uuid.UUID, name *string, active *bool) (*models.Client, error) {
	client, err := s.GetByID(ctx, tenantID, clientID)
	if err != nil {
		return nil, err
	}
	if name != nil {
		client.Name = *name
	}
	if active != nil {
		client.Active = *active
	}
	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *clientService) List(ctx context.Context, tenantID uuid.UUID) ([]*models.Client, error) {
	return s.clientRepo.List(ctx, tenantID)
}

// AddAccounts attaches account ids to the client's scope. Duplicates are
// skipped; the returned count is the number of new mappings. Cached KPI
// aggregates are invalidated because scope changes alter them.
func (s *clientService) AddAccounts(ctx context.Context, tenantID, clientID uuid.UUID, accountIDs []string) (int, error) {
	if _, err := s.GetByID(ctx, tenantID, clientID); err != nil {
		return 0, err
	}
	added, err := s.clientRepo.AddAccounts(ctx, tenantID, clientID, accountIDs)
	if err != nil {
		return 0, err
	}
	if added > 0 {
		_ = s.cache.InvalidateSummaryKPIs(ctx, tenantID)
	}
	return added, nil
}

func (s *clientService) ListMappings(ctx context.Context, tenantID, clientID uuid.UUID) ([]*models.ClientAccount, error) {
	if _, err := s.GetByID(ctx, tenantID, clientID); err != nil {
		return nil, err
	}
	return s.clientRepo.ListMappings(ctx, tenantID, clientID)
}

func (s *clientService) RemoveMapping(ctx context.Context, tenantID, clientID uuid.UUID, mappingID int64) (string, error) {
	accountID, err := s.clientRepo.DeleteMapping(ctx, tenantID, clientID, mappingID)
	if err != nil {
		return "", err
	}
	if accountID != "" {
		_ = s.cache.InvalidateSummaryKPIs(ctx, tenantID)
	}
	return accountID, nil
}
