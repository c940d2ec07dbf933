package handlers

import (
	"net/http"

	"soundcheck/internal/common"
	"soundcheck/internal/models"
	"soundcheck/internal/services"

	"github.com/labstack/echo/v4"
)

const auditListMax = 500

// AuditHandlers exposes the read-only audit trail to tenant admins.
type AuditHandlers struct {
	auditService services.AuditService
}

func NewAuditHandlers(auditService services.AuditService) *AuditHandlers {
	return &AuditHandlers{auditService: auditService}
}

// List returns the most recent entries, newest first.
func (h *AuditHandlers) List(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)

	limit := common.ParseIntParam(c.QueryParam("limit"), 100, 1, auditListMax)
	offset := common.ParseIntParam(c.QueryParam("offset"), 0, 0, 0)

	entries, err := h.auditService.List(ctx, tenant.ID, limit, offset)
	if err != nil {
		c.Logger().Errorf("Failed to list audit entries: %v", err)
		return common.SendServerError(c, "Unable to load audit trail")
	}
	return c.JSON(http.StatusOK, map[string]any{"entries": entries})
}
