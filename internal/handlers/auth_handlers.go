package handlers

import (
	"errors"
	"net/http"

	"soundcheck/internal/common"
	"soundcheck/internal/models"
	"soundcheck/internal/services"

	"github.com/labstack/echo/v4"
)

// AuthHandlers handles login, logout and the password reset flow.
type AuthHandlers struct {
	authService  services.AuthService
	auditService services.AuditService
}

func NewAuthHandlers(authService services.AuthService, auditService services.AuditService) *AuthHandlers {
	return &AuthHandlers{
		authService:  authService,
		auditService: auditService,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse tells the client what to do next: "" means the session is
// fully verified, otherwise the client sends the user to the named MFA step.
type LoginResponse struct {
	Token       string       `json:"token"`
	MFAVerified bool         `json:"mfa_verified"`
	NextStep    string       `json:"next_step,omitempty"`
	User        *models.User `json:"user"`
}

// Login authenticates with email and password. All failures return the same
// generic message.
func (h *AuthHandlers) Login(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.Email == "" || req.Password == "" {
		return common.SendValidationError(c, "email", "Email and password are required")
	}

	result, err := h.authService.Login(ctx, tenant, req.Email, req.Password, common.UserAgent(c))
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.auditService.Record(ctx, tenant.ID, models.EventLoginFailure, nil, "email="+req.Email, common.ClientIP(c), common.UserAgent(c))
			return c.JSON(http.StatusUnauthorized, common.CreateErrorResponse("INVALID_CREDENTIALS", "Invalid email or password", nil))
		}
		c.Logger().Errorf("Login failed: %v", err)
		return common.SendServerError(c, "Unable to log in")
	}

	h.auditService.Record(ctx, tenant.ID, models.EventLoginSuccess, &result.User.ID, "", common.ClientIP(c), common.UserAgent(c))

	next := ""
	if !result.User.MFAConfirmed {
		next = "mfa_setup"
	} else if !result.MFAVerified {
		next = "mfa_verify"
	}

	return c.JSON(http.StatusOK, &LoginResponse{
		Token:       result.Token,
		MFAVerified: result.MFAVerified,
		NextStep:    next,
		User:        result.User,
	})
}

// Logout deletes the server-side session. The client token is useless
// afterwards even though it has not expired.
func (h *AuthHandlers) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)
	user := c.Get(common.EchoCurrentUserKey).(*models.User)

	sessionID, ok := common.GetSessionIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	if err := h.authService.Logout(ctx, tenant.ID, sessionID); err != nil {
		c.Logger().Errorf("Logout failed: %v", err)
		return common.SendServerError(c, "Unable to log out")
	}

	h.auditService.Record(ctx, tenant.ID, models.EventLogout, &user.ID, "", common.ClientIP(c), common.UserAgent(c))
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out"})
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset always reports success so the endpoint cannot be
// used to enumerate accounts.
func (h *AuthHandlers) RequestPasswordReset(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)

	var req PasswordResetRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.Email == "" {
		return common.SendValidationError(c, "email", "Email is required")
	}

	if err := h.authService.RequestPasswordReset(ctx, tenant, req.Email); err != nil {
		c.Logger().Errorf("Password reset request failed: %v", err)
	}
	h.auditService.Record(ctx, tenant.ID, models.EventPasswordResetRequest, nil, "email="+req.Email, common.ClientIP(c), common.UserAgent(c))

	return c.JSON(http.StatusOK, map[string]string{
		"message": "If an account exists for that email, a reset link has been sent.",
	})
}

type PasswordResetConfirmRequest struct {
	Password string `json:"password"`
}

// ConfirmPasswordReset consumes a reset token and sets the new password.
func (h *AuthHandlers) ConfirmPasswordReset(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)
	token := c.Param("token")

	var req PasswordResetConfirmRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if len(req.Password) < 8 {
		return common.SendValidationError(c, "password", "Password must be at least 8 characters")
	}

	user, err := h.authService.ConfirmPasswordReset(ctx, tenant.ID, token, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidResetToken) {
			return common.SendClientError(c, "Reset link is invalid or expired")
		}
		c.Logger().Errorf("Password reset confirm failed: %v", err)
		return common.SendServerError(c, "Unable to reset password")
	}

	h.auditService.Record(ctx, tenant.ID, models.EventPasswordResetComplete, &user.ID, "", common.ClientIP(c), common.UserAgent(c))
	return c.JSON(http.StatusOK, map[string]string{"message": "Password has been reset. You can now log in."})
}
