package services

import (
	"context"
	"sync"
	"time"

	"soundcheck/internal/caching"
	"soundcheck/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*models.User, error) {
	args := m.Called(ctx, tenantID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepo) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepo) UpdatePassword(ctx context.Context, tenantID, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, tenantID, id, passwordHash)
	return args.Error(0)
}

func (m *MockUserRepo) UpdateMFA(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepo) UpdateRecoveryCodes(ctx context.Context, tenantID, id uuid.UUID, hashes []string) error {
	args := m.Called(ctx, tenantID, id, hashes)
	return args.Error(0)
}

func (m *MockUserRepo) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

type MockTrustedDeviceRepo struct {
	mock.Mock
}

func (m *MockTrustedDeviceRepo) Create(ctx context.Context, device *models.TrustedDevice) error {
	args := m.Called(ctx, device)
	return args.Error(0)
}

func (m *MockTrustedDeviceRepo) FindValid(ctx context.Context, tenantID, userID uuid.UUID, deviceHash string, now time.Time) (*models.TrustedDevice, error) {
	args := m.Called(ctx, tenantID, userID, deviceHash, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TrustedDevice), args.Error(1)
}

func (m *MockTrustedDeviceRepo) DeleteForUser(ctx context.Context, tenantID, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTrustedDeviceRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockResetTokenRepo struct {
	mock.Mock
}

func (m *MockResetTokenRepo) Create(ctx context.Context, token *models.PasswordResetToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockResetTokenRepo) GetByToken(ctx context.Context, tenantID uuid.UUID, token string) (*models.PasswordResetToken, error) {
	args := m.Called(ctx, tenantID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PasswordResetToken), args.Error(1)
}

func (m *MockResetTokenRepo) MarkUsed(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockResetTokenRepo) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// fakeCache is an in-memory stand-in for the Redis cache service, enough
// for exercising session lifecycle in tests.
type fakeCache struct {
	mu       sync.Mutex
	sessions map[string]*caching.SessionData
}

func newFakeCache() *fakeCache {
	return &fakeCache{sessions: make(map[string]*caching.SessionData)}
}

func (f *fakeCache) key(tenantID uuid.UUID, sessionID string) string {
	return tenantID.String() + ":" + sessionID
}

func (f *fakeCache) SetSession(_ context.Context, tenantID uuid.UUID, sessionID string, data *caching.SessionData, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[f.key(tenantID, sessionID)] = data
	return nil
}

func (f *fakeCache) GetSession(_ context.Context, tenantID uuid.UUID, sessionID string) (*caching.SessionData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[f.key(tenantID, sessionID)], nil
}

func (f *fakeCache) MarkSessionVerified(_ context.Context, tenantID uuid.UUID, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[f.key(tenantID, sessionID)]; ok {
		s.MFAVerified = true
	}
	return nil
}

func (f *fakeCache) DeleteSession(_ context.Context, tenantID uuid.UUID, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, f.key(tenantID, sessionID))
	return nil
}

func (f *fakeCache) GetSummaryKPIs(context.Context, uuid.UUID, *uuid.UUID) (*models.SummaryKPIs, error) {
	return nil, nil
}

func (f *fakeCache) SetSummaryKPIs(context.Context, uuid.UUID, *uuid.UUID, *models.SummaryKPIs, time.Duration) error {
	return nil
}

func (f *fakeCache) InvalidateSummaryKPIs(context.Context, uuid.UUID) error {
	return nil
}

func (f *fakeCache) IsRateLimited(context.Context, string, int, time.Duration) (bool, error) {
	return false, nil
}

type MockTenantRepo struct {
	mock.Mock
}

func (m *MockTenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepo) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepo) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Tenant), args.Error(1)
}

type MockDomainRepo struct {
	mock.Mock
}

func (m *MockDomainRepo) Create(ctx context.Context, domain *models.Domain) error {
	args := m.Called(ctx, domain)
	return args.Error(0)
}

func (m *MockDomainRepo) GetTenantByHost(ctx context.Context, host string) (*models.Tenant, error) {
	args := m.Called(ctx, host)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}
