package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"soundcheck/internal/caching"
	"soundcheck/internal/common"
	"soundcheck/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGateContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard/summary", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func TestRequireMFA_NoUserInContext(t *testing.T) {
	c, rec := newGateContext(t)

	err := RequireMFA()(okHandler)(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireMFA_SetupRequired(t *testing.T) {
	c, rec := newGateContext(t)
	c.Set(common.EchoCurrentUserKey, &models.User{ID: uuid.New(), MFAConfirmed: false})
	c.Set(common.EchoSessionKey, &caching.SessionData{MFAVerified: false})

	err := RequireMFA()(okHandler)(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var resp mfaRequiredResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "mfa_setup_required", resp.Code)
	assert.Equal(t, "/v1/auth/mfa/setup", resp.RedirectTo)
}

func TestRequireMFA_VerificationRequired(t *testing.T) {
	c, rec := newGateContext(t)
	c.Set(common.EchoCurrentUserKey, &models.User{ID: uuid.New(), MFAConfirmed: true})
	c.Set(common.EchoSessionKey, &caching.SessionData{MFAVerified: false})

	err := RequireMFA()(okHandler)(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var resp mfaRequiredResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "mfa_verification_required", resp.Code)
	assert.Equal(t, "/v1/auth/mfa/verify", resp.RedirectTo)
}

func TestRequireMFA_VerifiedSessionPassesThrough(t *testing.T) {
	c, rec := newGateContext(t)
	c.Set(common.EchoCurrentUserKey, &models.User{ID: uuid.New(), MFAConfirmed: true})
	c.Set(common.EchoSessionKey, &caching.SessionData{MFAVerified: true})

	called := false
	err := RequireMFA()(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})(c)

	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin_RejectsRegularUser(t *testing.T) {
	c, rec := newGateContext(t)
	c.Set(common.EchoCurrentUserKey, &models.User{ID: uuid.New(), Role: models.RoleTenantUser})

	err := RequireAdmin()(okHandler)(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdmin_AllowsAdmin(t *testing.T) {
	c, rec := newGateContext(t)
	c.Set(common.EchoCurrentUserKey, &models.User{ID: uuid.New(), Role: models.RoleTenantAdmin})

	called := false
	err := RequireAdmin()(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})(c)

	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin_NoUserInContext(t *testing.T) {
	c, rec := newGateContext(t)

	err := RequireAdmin()(okHandler)(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
