package analytics

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"soundcheck/internal/caching"
	"soundcheck/internal/models"
	"soundcheck/internal/repositories"

	"github.com/google/uuid"
)

const kpiCacheTTL = 5 * time.Minute

// Service answers the dashboard's read queries against the analytics views,
// enforcing per-client account scoping on every query.
type Service struct {
	db           repositories.Database
	clientRepo   repositories.ClientRepository
	cacheService caching.CacheService

	defaultPageSize int
	maxPageSize     int
	exportMaxRows   int
}

func NewService(db repositories.Database, clientRepo repositories.ClientRepository,
	cacheService caching.CacheService, defaultPageSize, maxPageSize, exportMaxRows int) *Service {
	return &Service{
		db:              db,
		clientRepo:      clientRepo,
		cacheService:    cacheService,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		exportMaxRows:   exportMaxRows,
	}
}

// ResolveScope turns an optional client filter into an account scope. No
// client means unrestricted; a client with no mappings yields a scope that
// matches nothing.
func (s *Service) ResolveScope(ctx context.Context, tenantID uuid.UUID, clientID *uuid.UUID) (AccountScope, error) {
	if clientID == nil {
		return UnrestrictedScope(), nil
	}
	accountIDs, err := s.clientRepo.ListAccountIDs(ctx, tenantID, *clientID)
	if err != nil {
		return AccountScope{}, fmt.Errorf("failed to resolve client account scope: %w", err)
	}
	return RestrictedScope(accountIDs), nil
}

// SummaryKPIs returns the aggregate balance figures for the scope. Results
// are cached per (tenant, client) for a few minutes.
func (s *Service) SummaryKPIs(ctx context.Context, tenantID uuid.UUID, clientID *uuid.UUID) (*models.SummaryKPIs, error) {
	if kpis, err := s.cacheService.GetSummaryKPIs(ctx, tenantID, clientID); err == nil && kpis != nil {
		return kpis, nil
	}

	scope, err := s.ResolveScope(ctx, tenantID, clientID)
	if err != nil {
		return nil, err
	}

	kpis := &models.SummaryKPIs{}

	b := &builder{}
	b.where("tenant_id = %s", tenantID)
	b.scope(scope)
	balanceSQL := fmt.Sprintf(`
		SELECT COALESCE(SUM(current_balance), 0), COALESCE(SUM(available_balance), 0)
		FROM %s %s`, accountsView, b.whereClause())
	if err := s.db.QueryRow(ctx, balanceSQL, b.args...).Scan(&kpis.TotalBalance, &kpis.TotalAvailable); err != nil {
		return nil, fmt.Errorf("failed to query balance KPIs: %w", err)
	}

	// Pending total comes from the transactions view with no date filter.
	pb := &builder{}
	pb.where("tenant_id = %s", tenantID)
	pb.scope(scope)
	pb.conds = append(pb.conds, "pending = true")
	pendingSQL := fmt.Sprintf(`
		SELECT COALESCE(SUM(amount_abs), 0)
		FROM %s %s`, transactionsView, pb.whereClause())
	if err := s.db.QueryRow(ctx, pendingSQL, pb.args...).Scan(&kpis.TotalPending); err != nil {
		return nil, fmt.Errorf("failed to query pending KPI: %w", err)
	}

	if err := s.cacheService.SetSummaryKPIs(ctx, tenantID, clientID, kpis, kpiCacheTTL); err != nil {
		log.Printf("Failed to cache summary KPIs for tenant %s: %v", tenantID, err)
	}
	return kpis, nil
}

// AccountsPage returns one page of the accounts table plus the total match
// count.
func (s *Service) AccountsPage(ctx context.Context, tenantID uuid.UUID, q AccountsQuery) (*models.AccountsPage, error) {
	page, pageSize := clampPage(q.Page, q.PageSize, s.defaultPageSize, s.maxPageSize)
	q.Page, q.PageSize = page, pageSize

	dataSQL, countSQL, dataArgs, countArgs := buildAccountsQuery(tenantID, q, s.defaultPageSize, s.maxPageSize)

	var total int
	if err := s.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}

	rows, err := s.db.Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	result := &models.AccountsPage{
		Rows:       []models.AccountRow{},
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}
	for rows.Next() {
		var row models.AccountRow
		if err := rows.Scan(&row.AccountID, &row.AccountName, &row.InstitutionName, &row.Type,
			&row.Subtype, &row.Mask, &row.CurrentBalance, &row.AvailableBalance, &row.CreditLimit,
			&row.UtilizationPct, &row.IsOverdrawn, &row.BalanceAsOf); err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, row)
	}
	return result, rows.Err()
}

// TransactionsPage returns one page of the transactions table plus the total
// match count.
func (s *Service) TransactionsPage(ctx context.Context, tenantID uuid.UUID, q TransactionsQuery) (*models.TransactionsPage, error) {
	page, pageSize := clampPage(q.Page, q.PageSize, s.defaultPageSize, s.maxPageSize)
	q.Page, q.PageSize = page, pageSize

	dataSQL, countSQL, dataArgs, countArgs := buildTransactionsQuery(tenantID, q, s.defaultPageSize, s.maxPageSize)

	var total int
	if err := s.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	rows, err := s.db.Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	result := &models.TransactionsPage{
		Rows:       []models.TransactionRow{},
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}
	for rows.Next() {
		var row models.TransactionRow
		if err := rows.Scan(&row.TransactionID, &row.TransactionDate, &row.TransactionName,
			&row.MerchantName, &row.Amount, &row.AmountAbs, &row.Pending, &row.AccountName,
			&row.AccountID, &row.InstitutionName, &row.PaymentChannel, &row.TransactionType,
			&row.CategoryID, &row.FlowDirection, &row.ISOCurrencyCode); err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, row)
	}
	return result, rows.Err()
}

// AccountOptions lists (account_id, label) pairs for the filter dropdown,
// limited to the scope.
func (s *Service) AccountOptions(ctx context.Context, tenantID uuid.UUID, scope AccountScope) ([]models.AccountOption, error) {
	b := &builder{}
	b.where("tenant_id = %s", tenantID)
	b.scope(scope)
	query := fmt.Sprintf(`
		SELECT account_id, account_name || ' (' || COALESCE(mask, '') || ')' AS label
		FROM %s %s
		ORDER BY account_name`, accountsView, b.whereClause())

	rows, err := s.db.Query(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query account options: %w", err)
	}
	defer rows.Close()

	options := []models.AccountOption{}
	for rows.Next() {
		var opt models.AccountOption
		if err := rows.Scan(&opt.AccountID, &opt.Label); err != nil {
			return nil, err
		}
		options = append(options, opt)
	}
	return options, rows.Err()
}

// ExportRow is one CSV export record in the fixed column order.
type ExportRow struct {
	TransactionDate time.Time
	TransactionName string
	MerchantName    *string
	Amount          float64
	Pending         bool
	AccountName     string
	InstitutionName string
	PaymentChannel  *string
	TransactionType *string
	CategoryID      *string
	FlowDirection   *string
}

// CSVRecord renders the row in the fixed export column order.
func (r ExportRow) CSVRecord() []string {
	return []string{
		r.TransactionDate.Format("2006-01-02"),
		r.TransactionName,
		derefString(r.MerchantName),
		strconv.FormatFloat(r.Amount, 'f', 2, 64),
		strconv.FormatBool(r.Pending),
		r.AccountName,
		r.InstitutionName,
		derefString(r.PaymentChannel),
		derefString(r.TransactionType),
		derefString(r.CategoryID),
		derefString(r.FlowDirection),
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// TransactionsForExport counts the matching rows first; when the count
// exceeds the configured cap it returns no rows at all and signals the
// overflow, so the caller can refuse to produce a file.
func (s *Service) TransactionsForExport(ctx context.Context, tenantID uuid.UUID, q TransactionsQuery) (rows []ExportRow, total int, exceeded bool, err error) {
	dataSQL, countSQL, dataArgs, countArgs := buildExportQuery(tenantID, q, s.exportMaxRows)

	if err := s.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, false, fmt.Errorf("failed to count export rows: %w", err)
	}
	if total > s.exportMaxRows {
		return nil, total, true, nil
	}

	result, err := s.db.Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to query export rows: %w", err)
	}
	defer result.Close()

	rows = []ExportRow{}
	for result.Next() {
		var row ExportRow
		if err := result.Scan(&row.TransactionDate, &row.TransactionName, &row.MerchantName,
			&row.Amount, &row.Pending, &row.AccountName, &row.InstitutionName,
			&row.PaymentChannel, &row.TransactionType, &row.CategoryID, &row.FlowDirection); err != nil {
			return nil, 0, false, err
		}
		rows = append(rows, row)
	}
	return rows, total, false, result.Err()
}

// ExportMaxRows exposes the configured export cap.
func (s *Service) ExportMaxRows() int {
	return s.exportMaxRows
}
