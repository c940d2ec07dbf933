package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"soundcheck/internal/common"
	"soundcheck/internal/models"
	"soundcheck/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTenantService struct {
	mock.Mock
}

func (m *mockTenantService) Provision(ctx context.Context, input *services.ProvisionInput) (*models.Tenant, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *mockTenantService) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *mockTenantService) ResolveHost(ctx context.Context, host string) (*models.Tenant, error) {
	args := m.Called(ctx, host)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *mockTenantService) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Tenant), args.Error(1)
}

func TestTenantResolver_KnownHost(t *testing.T) {
	tenant := &models.Tenant{ID: uuid.New(), Name: "Acme", Slug: "acme", IsActive: true}

	svc := new(mockTenantService)
	svc.On("ResolveHost", mock.Anything, "acme.dashboards.test").Return(tenant, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Host = "acme.dashboards.test:8080"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seenTenantID uuid.UUID
	err := TenantResolver(svc)(func(c echo.Context) error {
		got, ok := c.Get(common.EchoTenantKey).(*models.Tenant)
		require.True(t, ok)
		assert.Equal(t, tenant.ID, got.ID)
		seenTenantID, _ = common.GetTenantIDFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tenant.ID, seenTenantID)
	svc.AssertExpectations(t)
}

func TestTenantResolver_UnknownHostGetsLandingPage(t *testing.T) {
	svc := new(mockTenantService)
	svc.On("ResolveHost", mock.Anything, "nobody.example.com").Return(nil, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Host = "nobody.example.com"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	err := TenantResolver(svc)(func(c echo.Context) error {
		called = true
		return nil
	})(c)

	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp landingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Landing)
	// The landing notice must not leak tenant names.
	assert.NotContains(t, resp.Message, "acme")
}

func TestTenantResolver_LookupFailure(t *testing.T) {
	svc := new(mockTenantService)
	svc.On("ResolveHost", mock.Anything, "acme.dashboards.test").
		Return(nil, assert.AnError)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Host = "acme.dashboards.test"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := TenantResolver(svc)(okHandler)(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
