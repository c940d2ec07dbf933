package services

import (
	"context"
	"testing"

	"soundcheck/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type TenantServiceTestSuite struct {
	suite.Suite
	tenantRepo *MockTenantRepo
	domainRepo *MockDomainRepo
	userRepo   *MockUserRepo
	service    TenantService
	ctx        context.Context
}

func (suite *TenantServiceTestSuite) SetupTest() {
	suite.tenantRepo = new(MockTenantRepo)
	suite.domainRepo = new(MockDomainRepo)
	suite.userRepo = new(MockUserRepo)
	suite.service = NewTenantService(suite.tenantRepo, suite.domainRepo, suite.userRepo)
	suite.ctx = context.Background()
}

func TestTenantServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TenantServiceTestSuite))
}

func (suite *TenantServiceTestSuite) provisionInput() *ProvisionInput {
	return &ProvisionInput{
		Name:          "Acme Capital",
		Slug:          "Acme-Capital",
		Domain:        "Acme.Dashboards.Test",
		AdminEmail:    "Admin@acme.test",
		AdminPassword: "correct horse battery",
	}
}

func (suite *TenantServiceTestSuite) TestProvision_Success() {
	suite.tenantRepo.On("GetBySlug", mock.Anything, "acme-capital").Return(nil, nil)

	var createdTenant *models.Tenant
	suite.tenantRepo.On("Create", mock.Anything, mock.MatchedBy(func(t *models.Tenant) bool {
		createdTenant = t
		return t.Slug == "acme-capital" && t.SchemaName == "tenant_acme_capital" && t.IsActive
	})).Return(nil)

	suite.domainRepo.On("Create", mock.Anything, mock.MatchedBy(func(d *models.Domain) bool {
		return d.Domain == "acme.dashboards.test" && d.IsPrimary
	})).Return(nil)

	var createdAdmin *models.User
	suite.userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		createdAdmin = u
		return u.Email == "admin@acme.test" && u.Role == models.RoleTenantAdmin && u.IsActive
	})).Return(nil)

	tenant, err := suite.service.Provision(suite.ctx, suite.provisionInput())
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), tenant)

	assert.NotEqual(suite.T(), uuid.Nil, tenant.ID)
	assert.Equal(suite.T(), createdTenant.ID, tenant.ID)
	assert.Equal(suite.T(), tenant.ID, createdAdmin.TenantID)

	// The admin password must be stored hashed, never verbatim.
	assert.NotEqual(suite.T(), "correct horse battery", createdAdmin.PasswordHash)
	assert.NoError(suite.T(), bcrypt.CompareHashAndPassword(
		[]byte(createdAdmin.PasswordHash), []byte("correct horse battery")))

	suite.tenantRepo.AssertExpectations(suite.T())
	suite.domainRepo.AssertExpectations(suite.T())
	suite.userRepo.AssertExpectations(suite.T())
}

func (suite *TenantServiceTestSuite) TestProvision_SlugTaken() {
	existing := &models.Tenant{ID: uuid.New(), Slug: "acme-capital"}
	suite.tenantRepo.On("GetBySlug", mock.Anything, "acme-capital").Return(existing, nil)

	tenant, err := suite.service.Provision(suite.ctx, suite.provisionInput())
	assert.ErrorIs(suite.T(), err, ErrSlugTaken)
	assert.Nil(suite.T(), tenant)
	suite.tenantRepo.AssertNotCalled(suite.T(), "Create", mock.Anything, mock.Anything)
}

func (suite *TenantServiceTestSuite) TestResolveHost_UnknownHost() {
	suite.domainRepo.On("GetTenantByHost", mock.Anything, "nobody.example.com").Return(nil, nil)

	tenant, err := suite.service.ResolveHost(suite.ctx, "nobody.example.com")
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), tenant)
}

func (suite *TenantServiceTestSuite) TestResolveHost_KnownHost() {
	want := &models.Tenant{ID: uuid.New(), Slug: "acme-capital", IsActive: true}
	suite.domainRepo.On("GetTenantByHost", mock.Anything, "acme.dashboards.test").Return(want, nil)

	tenant, err := suite.service.ResolveHost(suite.ctx, "acme.dashboards.test")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), want.ID, tenant.ID)
}
