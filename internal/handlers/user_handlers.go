package handlers

import (
	"errors"
	"net/http"

	"soundcheck/internal/common"
	"soundcheck/internal/models"
	"soundcheck/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// UserHandlers is the admin surface for user management, including the MFA
// escape hatches (reset, recovery code regeneration).
type UserHandlers struct {
	userService  services.UserService
	mfaService   services.MFAService
	auditService services.AuditService
}

func NewUserHandlers(userService services.UserService, mfaService services.MFAService, auditService services.AuditService) *UserHandlers {
	return &UserHandlers{
		userService:  userService,
		mfaService:   mfaService,
		auditService: auditService,
	}
}

type CreateUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

func (h *UserHandlers) Create(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)
	actor := c.Get(common.EchoCurrentUserKey).(*models.User)

	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.Email == "" {
		return common.SendValidationError(c, "email", "Email is required")
	}
	if len(req.Password) < 8 {
		return common.SendValidationError(c, "password", "Password must be at least 8 characters")
	}

	user, err := h.userService.Create(ctx, tenant.ID, &services.CreateUserInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		c.Logger().Errorf("Failed to create user: %v", err)
		return common.SendClientError(c, "Unable to create user")
	}

	h.auditService.Record(ctx, tenant.ID, models.EventUserCreated, &actor.ID, "created="+user.ID.String(), common.ClientIP(c), common.UserAgent(c))
	return c.JSON(http.StatusCreated, user)
}

func (h *UserHandlers) List(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)

	limit := common.ParseIntParam(c.QueryParam("limit"), 50, 1, 200)
	offset := common.ParseIntParam(c.QueryParam("offset"), 0, 0, 0)

	users, err := h.userService.List(ctx, tenant.ID, limit, offset)
	if err != nil {
		c.Logger().Errorf("Failed to list users: %v", err)
		return common.SendServerError(c, "Unable to list users")
	}
	return c.JSON(http.StatusOK, map[string]any{"users": users})
}

func (h *UserHandlers) Get(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return common.SendValidationError(c, "id", "Must be a valid UUID")
	}

	user, err := h.userService.GetByID(ctx, tenant.ID, id)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return common.SendNotFoundError(c, "User")
		}
		c.Logger().Errorf("Failed to load user: %v", err)
		return common.SendServerError(c, "Unable to load user")
	}
	return c.JSON(http.StatusOK, user)
}

type UpdateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Role      *string `json:"role"`
	IsActive  *bool   `json:"is_active"`
}

func (h *UserHandlers) Update(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)
	actor := c.Get(common.EchoCurrentUserKey).(*models.User)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return common.SendValidationError(c, "id", "Must be a valid UUID")
	}

	var req UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	user, err := h.userService.Update(ctx, tenant.ID, id, &services.UpdateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		IsActive:  req.IsActive,
	})
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return common.SendNotFoundError(c, "User")
		}
		c.Logger().Errorf("Failed to update user: %v", err)
		return common.SendClientError(c, "Unable to update user")
	}

	h.auditService.Record(ctx, tenant.ID, models.EventUserUpdated, &actor.ID, "updated="+user.ID.String(), common.ClientIP(c), common.UserAgent(c))
	return c.JSON(http.StatusOK, user)
}

// ResetMFA wipes a user's two-factor setup so they can re-enroll, for lost
// authenticators with no recovery codes left.
func (h *UserHandlers) ResetMFA(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)
	actor := c.Get(common.EchoCurrentUserKey).(*models.User)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return common.SendValidationError(c, "id", "Must be a valid UUID")
	}

	if err := h.mfaService.ResetMFA(ctx, tenant.ID, id); err != nil {
		c.Logger().Errorf("Failed to reset MFA for %s: %v", id, err)
		return common.SendServerError(c, "Unable to reset two-factor authentication")
	}

	h.auditService.Record(ctx, tenant.ID, models.EventMFAReset, &actor.ID, "target="+id.String(), common.ClientIP(c), common.UserAgent(c))
	return c.JSON(http.StatusOK, map[string]string{"message": "Two-factor authentication has been reset"})
}

// RegenerateRecoveryCodes issues a fresh batch for a user, shown once in the
// response.
func (h *UserHandlers) RegenerateRecoveryCodes(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)
	actor := c.Get(common.EchoCurrentUserKey).(*models.User)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return common.SendValidationError(c, "id", "Must be a valid UUID")
	}

	user, err := h.userService.GetByID(ctx, tenant.ID, id)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return common.SendNotFoundError(c, "User")
		}
		c.Logger().Errorf("Failed to load user: %v", err)
		return common.SendServerError(c, "Unable to load user")
	}

	codes, err := h.mfaService.RegenerateRecoveryCodes(ctx, user)
	if err != nil {
		if errors.Is(err, services.ErrMFANotEnrolled) {
			return common.SendClientError(c, "User has not completed two-factor setup")
		}
		c.Logger().Errorf("Failed to regenerate recovery codes: %v", err)
		return common.SendServerError(c, "Unable to regenerate recovery codes")
	}

	h.auditService.Record(ctx, tenant.ID, models.EventRecoveryRegenerated, &actor.ID, "target="+id.String(), common.ClientIP(c), common.UserAgent(c))
	return c.JSON(http.StatusOK, &ConfirmSetupResponse{
		RecoveryCodes: codes,
		Message:       "Previous recovery codes no longer work.",
	})
}
