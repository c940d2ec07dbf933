package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"soundcheck/internal/common"
	"soundcheck/internal/models"
	"soundcheck/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ClientHandlers is the admin surface for clients and their account-scope
// mappings.
type ClientHandlers struct {
	clientService services.ClientService
	auditService  services.AuditService
}

func NewClientHandlers(clientService services.ClientService, auditService services.AuditService) *ClientHandlers {
	return &ClientHandlers{
		clientService: clientService,
		auditService:  auditService,
	}
}

type CreateClientRequest struct {
	Name string `json:"name"`
}

func (h *ClientHandlers) Create(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)
	actor := c.Get(common.EchoCurrentUserKey).(*models.User)

	var req CreateClientRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return common.SendValidationError(c, "name", "Name is required")
	}

	client, err := h.clientService.Create(ctx, tenant.ID, name)
	if err != nil {
		c.Logger().Errorf("Failed to create client: %v", err)
		return common.SendServerError(c, "Unable to create client")
	}

	h.auditService.Record(ctx, tenant.ID, models.EventClientCreated, &actor.ID, "client="+client.ClientID.String(), common.ClientIP(c), common.UserAgent(c))
	return c.JSON(http.StatusCreated, client)
}

func (h *ClientHandlers) List(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)

	clients, err := h.clientService.List(ctx, tenant.ID)
	if err != nil {
		c.Logger().Errorf("Failed to list clients: %v", err)
		return common.SendServerError(c, "Unable to list clients")
	}
	return c.JSON(http.StatusOK, map[string]any{"clients": clients})
}

func (h *ClientHandlers) Get(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)

	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return common.SendValidationError(c, "id", "Must be a valid UUID")
	}

	client, err := h.clientService.GetByID(ctx, tenant.ID, clientID)
	if err != nil {
		if errors.Is(err, services.ErrClientNotFound) {
			return common.SendNotFoundError(c, "Client")
		}
		c.Logger().Errorf("Failed to load client: %v", err)
		return common.SendServerError(c, "Unable to load client")
	}

	mappings, err := h.clientService.ListMappings(ctx, tenant.ID, clientID)
	if err != nil {
		c.Logger().Errorf("Failed to list mappings: %v", err)
		return common.SendServerError(c, "Unable to load account mappings")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"client":   client,
		"accounts": mappings,
	})
}

type UpdateClientRequest struct {
	Name   *string `json:"name"`
	Active *bool   `json:"active"`
}

func (h *ClientHandlers) Update(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)
	actor := c.Get(common.EchoCurrentUserKey).(*models.User)

	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return common.SendValidationError(c, "id", "Must be a valid UUID")
	}

	var req UpdateClientRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return common.SendValidationError(c, "name", "Name cannot be empty")
	}

	client, err := h.clientService.Update(ctx, tenant.ID, clientID, req.Name, req.Active)
	if err != nil {
		if errors.Is(err, services.ErrClientNotFound) {
			return common.SendNotFoundError(c, "Client")
		}
		c.Logger().Errorf("Failed to update client: %v", err)
		return common.SendServerError(c, "Unable to update client")
	}

	h.auditService.Record(ctx, tenant.ID, models.EventClientUpdated, &actor.ID, "client="+clientID.String(), common.ClientIP(c), common.UserAgent(c))
	return c.JSON(http.StatusOK, client)
}

type AddAccountsRequest struct {
	AccountIDs []string `json:"account_ids"`
}

// AddAccounts bulk-attaches account ids to the client's visibility scope.
// Already-mapped ids are skipped silently.
func (h *ClientHandlers) AddAccounts(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)
	actor := c.Get(common.EchoCurrentUserKey).(*models.User)

	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return common.SendValidationError(c, "id", "Must be a valid UUID")
	}

	var req AddAccountsRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	accountIDs := make([]string, 0, len(req.AccountIDs))
	for _, id := range req.AccountIDs {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			accountIDs = append(accountIDs, trimmed)
		}
	}
	if len(accountIDs) == 0 {
		return common.SendValidationError(c, "account_ids", "At least one account id is required")
	}

	added, err := h.clientService.AddAccounts(ctx, tenant.ID, clientID, accountIDs)
	if err != nil {
		if errors.Is(err, services.ErrClientNotFound) {
			return common.SendNotFoundError(c, "Client")
		}
		c.Logger().Errorf("Failed to add accounts: %v", err)
		return common.SendServerError(c, "Unable to add accounts")
	}

	detail := fmt.Sprintf("client=%s added=%d", clientID, added)
	h.auditService.Record(ctx, tenant.ID, models.EventClientAccountsAdded, &actor.ID, detail, common.ClientIP(c), common.UserAgent(c))
	return c.JSON(http.StatusOK, map[string]any{
		"added":   added,
		"skipped": len(accountIDs) - added,
	})
}

func (h *ClientHandlers) RemoveAccount(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)
	actor := c.Get(common.EchoCurrentUserKey).(*models.User)

	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return common.SendValidationError(c, "id", "Must be a valid UUID")
	}
	mappingID, err := strconv.ParseInt(c.Param("mappingID"), 10, 64)
	if err != nil {
		return common.SendValidationError(c, "mappingID", "Must be an integer")
	}

	accountID, err := h.clientService.RemoveMapping(ctx, tenant.ID, clientID, mappingID)
	if err != nil {
		c.Logger().Errorf("Failed to remove mapping: %v", err)
		return common.SendServerError(c, "Unable to remove account mapping")
	}
	if accountID == "" {
		return common.SendNotFoundError(c, "Account mapping")
	}

	detail := fmt.Sprintf("client=%s account=%s", clientID, accountID)
	h.auditService.Record(ctx, tenant.ID, models.EventClientAccountRemoved, &actor.ID, detail, common.ClientIP(c), common.UserAgent(c))
	return c.JSON(http.StatusOK, map[string]string{"removed": accountID})
}
