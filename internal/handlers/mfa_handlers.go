package handlers

import (
	"errors"
	"net/http"
	"strings"

	"soundcheck/internal/common"
	"soundcheck/internal/models"
	"soundcheck/internal/services"

	"github.com/labstack/echo/v4"
)

// MFAHandlers covers TOTP enrollment and per-session verification. These
// routes sit inside authentication but outside the MFA gate.
type MFAHandlers struct {
	mfaService   services.MFAService
	authService  services.AuthService
	auditService services.AuditService
}

func NewMFAHandlers(mfaService services.MFAService, authService services.AuthService, auditService services.AuditService) *MFAHandlers {
	return &MFAHandlers{
		mfaService:   mfaService,
		authService:  authService,
		auditService: auditService,
	}
}

// BeginSetup generates (or regenerates) the pending TOTP secret and returns
// the otpauth URL for the authenticator app.
func (h *MFAHandlers) BeginSetup(c echo.Context) error {
	ctx := c.Request().Context()
	user := c.Get(common.EchoCurrentUserKey).(*models.User)

	enrollment, err := h.mfaService.EnrollTOTP(ctx, user)
	if err != nil {
		if errors.Is(err, services.ErrMFAAlreadySetup) {
			return common.SendClientError(c, "Two-factor authentication is already set up")
		}
		c.Logger().Errorf("MFA enrollment failed: %v", err)
		return common.SendServerError(c, "Unable to start two-factor setup")
	}

	return c.JSON(http.StatusOK, enrollment)
}

type ConfirmSetupRequest struct {
	Code string `json:"code"`
}

type ConfirmSetupResponse struct {
	RecoveryCodes []string `json:"recovery_codes"`
	Message       string   `json:"message"`
}

// ConfirmSetup activates MFA after the user proves they scanned the secret.
// The recovery codes in the response are the only copy that will ever exist.
func (h *MFAHandlers) ConfirmSetup(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)
	user := c.Get(common.EchoCurrentUserKey).(*models.User)

	var req ConfirmSetupRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	codes, err := h.mfaService.ConfirmSetup(ctx, user, strings.TrimSpace(req.Code))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidMFACode):
			return common.SendClientError(c, "Invalid verification code")
		case errors.Is(err, services.ErrMFANotEnrolled):
			return common.SendClientError(c, "Start setup before confirming")
		case errors.Is(err, services.ErrMFAAlreadySetup):
			return common.SendClientError(c, "Two-factor authentication is already set up")
		}
		c.Logger().Errorf("MFA confirm failed: %v", err)
		return common.SendServerError(c, "Unable to complete two-factor setup")
	}

	// The session that just finished setup counts as verified.
	if sessionID, ok := common.GetSessionIDFromContext(ctx); ok {
		if err := h.authService.MarkSessionVerified(ctx, tenant.ID, sessionID); err != nil {
			c.Logger().Errorf("Failed to mark session verified: %v", err)
		}
	}

	h.auditService.Record(ctx, tenant.ID, models.EventMFASetupComplete, &user.ID, "", common.ClientIP(c), common.UserAgent(c))
	return c.JSON(http.StatusOK, &ConfirmSetupResponse{
		RecoveryCodes: codes,
		Message:       "Store these recovery codes somewhere safe. They will not be shown again.",
	})
}

type VerifyRequest struct {
	Code           string `json:"code"`
	RememberDevice bool   `json:"remember_device"`
}

// Verify checks a TOTP or recovery code for the current session and
// optionally registers this device as trusted.
func (h *MFAHandlers) Verify(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)
	user := c.Get(common.EchoCurrentUserKey).(*models.User)

	var req VerifyRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return common.SendValidationError(c, "code", "Verification code is required")
	}

	method, err := h.mfaService.Verify(ctx, user, code)
	if err != nil {
		if errors.Is(err, services.ErrInvalidMFACode) || errors.Is(err, services.ErrNoRecoveryCodes) {
			h.auditService.Record(ctx, tenant.ID, models.EventMFAVerifyFailure, &user.ID, "", common.ClientIP(c), common.UserAgent(c))
			return common.SendClientError(c, "Invalid verification code")
		}
		if errors.Is(err, services.ErrMFANotEnrolled) {
			return common.SendClientError(c, "Two-factor authentication is not set up")
		}
		c.Logger().Errorf("MFA verify failed: %v", err)
		return common.SendServerError(c, "Unable to verify code")
	}

	sessionID, ok := common.GetSessionIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	if err := h.authService.MarkSessionVerified(ctx, tenant.ID, sessionID); err != nil {
		c.Logger().Errorf("Failed to mark session verified: %v", err)
		return common.SendServerError(c, "Unable to verify session")
	}

	if req.RememberDevice {
		if err := h.mfaService.RememberDevice(ctx, user, common.UserAgent(c)); err != nil {
			c.Logger().Errorf("Failed to remember device: %v", err)
		}
	}

	h.auditService.Record(ctx, tenant.ID, models.EventMFAVerifySuccess, &user.ID, "method="+method, common.ClientIP(c), common.UserAgent(c))
	return c.JSON(http.StatusOK, map[string]any{
		"verified": true,
		"method":   method,
	})
}
