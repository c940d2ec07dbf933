package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"time"

	"soundcheck/internal/analytics"
	"soundcheck/internal/common"
	"soundcheck/internal/models"
	"soundcheck/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// DashboardHandlers serves the read-only analytics surface: KPI summary,
// paginated accounts and transactions, filter options and CSV export.
type DashboardHandlers struct {
	analyticsService *analytics.Service
	auditService     services.AuditService
	archiveService   services.ExportArchiveService
}

func NewDashboardHandlers(analyticsService *analytics.Service, auditService services.AuditService, archiveService services.ExportArchiveService) *DashboardHandlers {
	return &DashboardHandlers{
		analyticsService: analyticsService,
		auditService:     auditService,
		archiveService:   archiveService,
	}
}

// Me returns the authenticated user's profile.
func (h *DashboardHandlers) Me(c echo.Context) error {
	user := c.Get(common.EchoCurrentUserKey).(*models.User)
	return c.JSON(http.StatusOK, user)
}

type SummaryResponse struct {
	KPIs     *models.SummaryKPIs  `json:"kpis"`
	Accounts *models.AccountsPage `json:"accounts"`
}

// Summary returns the KPI tiles plus one page of accounts.
func (h *DashboardHandlers) Summary(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)

	clientID, ok := common.ParseOptionalUUID(c.QueryParam("client_id"))
	if !ok {
		return common.SendValidationError(c, "client_id", "Must be a valid UUID")
	}

	scope, err := h.analyticsService.ResolveScope(ctx, tenant.ID, clientID)
	if err != nil {
		c.Logger().Errorf("Failed to resolve scope: %v", err)
		return common.SendServerError(c, "Unable to resolve client scope")
	}
	if accountID := strings.TrimSpace(c.QueryParam("account_id")); accountID != "" {
		scope = scope.Narrow(accountID)
	}

	kpis, err := h.analyticsService.SummaryKPIs(ctx, tenant.ID, clientID)
	if err != nil {
		c.Logger().Errorf("Failed to compute KPIs: %v", err)
		return common.SendServerError(c, "Unable to compute summary")
	}

	query := analytics.AccountsQuery{
		Scope:    scope,
		Search:   strings.TrimSpace(c.QueryParam("search")),
		Sort:     c.QueryParam("sort"),
		Order:    c.QueryParam("order"),
		Page:     common.ParseIntParam(c.QueryParam("page"), 1, 1, 0),
		PageSize: common.ParseIntParam(c.QueryParam("page_size"), 0, 0, 0),
	}
	accounts, err := h.analyticsService.AccountsPage(ctx, tenant.ID, query)
	if err != nil {
		c.Logger().Errorf("Failed to query accounts: %v", err)
		return common.SendServerError(c, "Unable to load accounts")
	}

	return c.JSON(http.StatusOK, &SummaryResponse{KPIs: kpis, Accounts: accounts})
}

// Transactions returns one filtered, sorted page of the transactions view.
func (h *DashboardHandlers) Transactions(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)

	query, err := h.buildTransactionsQuery(c, tenant.ID)
	if err != nil {
		return err
	}

	page, err := h.analyticsService.TransactionsPage(ctx, tenant.ID, *query)
	if err != nil {
		c.Logger().Errorf("Failed to query transactions: %v", err)
		return common.SendServerError(c, "Unable to load transactions")
	}
	return c.JSON(http.StatusOK, page)
}

// AccountOptions lists (account_id, label) pairs for filter dropdowns,
// honoring the client scope.
func (h *DashboardHandlers) AccountOptions(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)

	clientID, ok := common.ParseOptionalUUID(c.QueryParam("client_id"))
	if !ok {
		return common.SendValidationError(c, "client_id", "Must be a valid UUID")
	}
	scope, err := h.analyticsService.ResolveScope(ctx, tenant.ID, clientID)
	if err != nil {
		c.Logger().Errorf("Failed to resolve scope: %v", err)
		return common.SendServerError(c, "Unable to resolve client scope")
	}

	options, err := h.analyticsService.AccountOptions(ctx, tenant.ID, scope)
	if err != nil {
		c.Logger().Errorf("Failed to list account options: %v", err)
		return common.SendServerError(c, "Unable to load account options")
	}
	return c.JSON(http.StatusOK, map[string]any{"options": options})
}

// ExportTransactions streams the current filter set as CSV. Exports larger
// than the configured row cap are refused outright rather than truncated.
func (h *DashboardHandlers) ExportTransactions(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := c.Get(common.EchoTenantKey).(*models.Tenant)
	user := c.Get(common.EchoCurrentUserKey).(*models.User)

	query, err := h.buildTransactionsQuery(c, tenant.ID)
	if err != nil {
		return err
	}

	h.auditService.Record(ctx, tenant.ID, models.EventCSVExportInitiated, &user.ID, "", common.ClientIP(c), common.UserAgent(c))

	rows, total, exceeded, err := h.analyticsService.TransactionsForExport(ctx, tenant.ID, *query)
	if err != nil {
		c.Logger().Errorf("Failed to run export query: %v", err)
		return common.SendServerError(c, "Unable to export transactions")
	}
	if exceeded {
		detail := fmt.Sprintf("rows=%d cap=%d", total, h.analyticsService.ExportMaxRows())
		h.auditService.Record(ctx, tenant.ID, models.EventCSVExportDenied, &user.ID, detail, common.ClientIP(c), common.UserAgent(c))
		return common.SendClientError(c, fmt.Sprintf("Export matches %d rows, above the %d row limit. Narrow the filters and try again.", total, h.analyticsService.ExportMaxRows()))
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(analytics.CSVColumns); err != nil {
		return common.SendServerError(c, "Unable to write export")
	}
	for _, row := range rows {
		if err := w.Write(row.CSVRecord()); err != nil {
			return common.SendServerError(c, "Unable to write export")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return common.SendServerError(c, "Unable to write export")
	}

	h.auditService.Record(ctx, tenant.ID, models.EventCSVExportCompleted, &user.ID, fmt.Sprintf("rows=%d", len(rows)), common.ClientIP(c), common.UserAgent(c))

	// Retention copy; the user's download never waits on object storage.
	data := make([]byte, buf.Len())
	copy(data, buf.Bytes())
	go func() {
		archiveCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := h.archiveService.Archive(archiveCtx, tenant.ID, data); err != nil {
			c.Logger().Errorf("Failed to archive export: %v", err)
		}
	}()

	filename := "transactions-" + time.Now().UTC().Format("20060102-150405") + ".csv"
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}

func (h *DashboardHandlers) buildTransactionsQuery(c echo.Context, tenantID uuid.UUID) (*analytics.TransactionsQuery, error) {
	ctx := c.Request().Context()

	clientID, ok := common.ParseOptionalUUID(c.QueryParam("client_id"))
	if !ok {
		return nil, common.SendValidationError(c, "client_id", "Must be a valid UUID")
	}
	scope, err := h.analyticsService.ResolveScope(ctx, tenantID, clientID)
	if err != nil {
		c.Logger().Errorf("Failed to resolve scope: %v", err)
		return nil, common.SendServerError(c, "Unable to resolve client scope")
	}
	if accountID := strings.TrimSpace(c.QueryParam("account_id")); accountID != "" {
		scope = scope.Narrow(accountID)
	}

	dateFrom, ok := parseOptionalDate(c.QueryParam("date_from"))
	if !ok {
		return nil, common.SendValidationError(c, "date_from", "Must be YYYY-MM-DD")
	}
	dateTo, ok := parseOptionalDate(c.QueryParam("date_to"))
	if !ok {
		return nil, common.SendValidationError(c, "date_to", "Must be YYYY-MM-DD")
	}

	return &analytics.TransactionsQuery{
		Scope:    scope,
		DateFrom: dateFrom,
		DateTo:   dateTo,
		Pending:  common.ParseOptionalBool(c.QueryParam("pending")),
		Search:   strings.TrimSpace(c.QueryParam("search")),
		Sort:     c.QueryParam("sort"),
		Order:    c.QueryParam("order"),
		Page:     common.ParseIntParam(c.QueryParam("page"), 1, 1, 0),
		PageSize: common.ParseIntParam(c.QueryParam("page_size"), 0, 0, 0),
	}, nil
}

func parseOptionalDate(value string) (*time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, false
	}
	return &t, true
}
