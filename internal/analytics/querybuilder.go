package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// The dashboard reads from append-only analytics views. Every user-supplied
// value travels as a bound parameter; sort column and direction are checked
// against fixed allow-lists and anything unrecognized silently falls back to
// the documented default. SQL text is assembled only from literals in this
// file, never from request input.

const (
	accountsView     = "analytics.accounts_current"
	transactionsView = "analytics.transactions"

	defaultAccountsSort     = "account_name"
	defaultTransactionsSort = "transaction_date"
)

// accountsSortable and transactionsSortable are the only column names the
// ORDER BY clause can ever contain.
var accountsSortable = map[string]bool{
	"account_name":      true,
	"institution_name":  true,
	"type":              true,
	"subtype":           true,
	"mask":              true,
	"current_balance":   true,
	"available_balance": true,
	"credit_limit":      true,
	"utilization_pct":   true,
	"balance_as_of":     true,
}

var transactionsSortable = map[string]bool{
	"transaction_date": true,
	"transaction_name": true,
	"merchant_name":    true,
	"amount":           true,
	"account_name":     true,
	"institution_name": true,
	"payment_channel":  true,
	"transaction_type": true,
	"flow_direction":   true,
	"pending":          true,
}

// CSVColumns is the fixed export column order.
var CSVColumns = []string{
	"transaction_date", "transaction_name", "merchant_name", "amount", "pending",
	"account_name", "institution_name", "payment_channel", "transaction_type",
	"category_id", "flow_direction",
}

// AccountScope restricts which analytics rows a query may see. The zero
// value is unrestricted; a restricted scope with no account IDs matches
// nothing at all.
type AccountScope struct {
	Restricted bool
	AccountIDs []string
}

// UnrestrictedScope allows every account of the tenant.
func UnrestrictedScope() AccountScope {
	return AccountScope{}
}

// RestrictedScope limits queries to exactly the given account IDs.
func RestrictedScope(accountIDs []string) AccountScope {
	if accountIDs == nil {
		accountIDs = []string{}
	}
	return AccountScope{Restricted: true, AccountIDs: accountIDs}
}

// Narrow intersects the scope with a single account ID. An ID outside a
// restricted scope yields a scope that matches nothing.
func (s AccountScope) Narrow(accountID string) AccountScope {
	if accountID == "" {
		return s
	}
	if !s.Restricted {
		return RestrictedScope([]string{accountID})
	}
	for _, id := range s.AccountIDs {
		if id == accountID {
			return RestrictedScope([]string{accountID})
		}
	}
	return RestrictedScope([]string{})
}

// AccountsQuery describes a page of the accounts table.
type AccountsQuery struct {
	Scope    AccountScope
	Search   string
	Sort     string
	Order    string
	Page     int
	PageSize int
}

// TransactionsQuery describes a page of the transactions table. The same
// filter set drives the CSV export.
type TransactionsQuery struct {
	Scope    AccountScope
	DateFrom *time.Time
	DateTo   *time.Time
	Pending  *bool
	Search   string
	Sort     string
	Order    string
	Page     int
	PageSize int
}

// builder accumulates WHERE conditions with positional bind parameters.
type builder struct {
	conds []string
	args  []any
}

// bind appends a value and returns its placeholder.
func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *builder) where(format string, vals ...any) {
	placeholders := make([]any, len(vals))
	for i, v := range vals {
		placeholders[i] = b.bind(v)
	}
	b.conds = append(b.conds, fmt.Sprintf(format, placeholders...))
}

func (b *builder) whereClause() string {
	return "WHERE " + strings.Join(b.conds, " AND ")
}

// scope adds the account-access condition. A restricted scope always becomes
// a bound-array membership test, so an empty list can never widen to
// unscoped results.
func (b *builder) scope(s AccountScope) {
	if !s.Restricted {
		return
	}
	ids := s.AccountIDs
	if ids == nil {
		ids = []string{}
	}
	b.where("account_id = ANY(%s)", ids)
}

func normalizeSort(sortable map[string]bool, sort, fallback string) string {
	if sortable[sort] {
		return sort
	}
	return fallback
}

func normalizeOrder(order, fallback string) string {
	switch strings.ToLower(order) {
	case "asc", "desc":
		return strings.ToLower(order)
	}
	return fallback
}

// clampPage forces page into [1, ∞) and pageSize into [1, max].
func clampPage(page, pageSize, defaultSize, maxSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultSize
	}
	if pageSize > maxSize {
		pageSize = maxSize
	}
	return page, pageSize
}

func totalPages(total, pageSize int) int {
	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}
	return pages
}

// snapshot copies the current bind args so the count query can run with
// exactly the filter arguments, before LIMIT/OFFSET are bound.
func (b *builder) snapshot() []any {
	out := make([]any, len(b.args))
	copy(out, b.args)
	return out
}

// buildAccountsQuery returns the data query, the matching count query and
// bind arguments for each.
func buildAccountsQuery(tenantID uuid.UUID, q AccountsQuery, defaultSize, maxSize int) (dataSQL, countSQL string, dataArgs, countArgs []any) {
	b := &builder{}
	b.where("tenant_id = %s", tenantID)
	b.scope(q.Scope)
	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		ph := b.bind(pattern)
		b.conds = append(b.conds, fmt.Sprintf(
			"(account_name ILIKE %[1]s OR institution_name ILIKE %[1]s OR mask ILIKE %[1]s)", ph))
	}

	where := b.whereClause()
	countSQL = fmt.Sprintf("SELECT COUNT(*) FROM %s %s", accountsView, where)
	countArgs = b.snapshot()

	sort := normalizeSort(accountsSortable, q.Sort, defaultAccountsSort)
	order := normalizeOrder(q.Order, "asc")
	page, pageSize := clampPage(q.Page, q.PageSize, defaultSize, maxSize)

	limitPH := b.bind(pageSize)
	offsetPH := b.bind((page - 1) * pageSize)
	dataSQL = fmt.Sprintf(`
		SELECT account_id, account_name, institution_name, type, subtype, mask,
			current_balance, available_balance, credit_limit, utilization_pct,
			is_overdrawn, balance_as_of
		FROM %s
		%s
		ORDER BY %s %s NULLS LAST
		LIMIT %s OFFSET %s`,
		accountsView, where, sort, order, limitPH, offsetPH)

	return dataSQL, countSQL, b.args, countArgs
}

// buildTransactionsQuery is the shared filter builder for the transactions
// page, the export and the pending KPI.
func buildTransactionsWhere(tenantID uuid.UUID, q TransactionsQuery) *builder {
	b := &builder{}
	b.where("tenant_id = %s", tenantID)
	b.scope(q.Scope)
	if q.DateFrom != nil {
		b.where("transaction_date >= %s", *q.DateFrom)
	}
	if q.DateTo != nil {
		b.where("transaction_date <= %s", *q.DateTo)
	}
	if q.Pending != nil {
		b.where("pending = %s", *q.Pending)
	}
	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		ph := b.bind(pattern)
		b.conds = append(b.conds, fmt.Sprintf(
			"(transaction_name ILIKE %[1]s OR merchant_name ILIKE %[1]s)", ph))
	}
	return b
}

func buildTransactionsQuery(tenantID uuid.UUID, q TransactionsQuery, defaultSize, maxSize int) (dataSQL, countSQL string, dataArgs, countArgs []any) {
	b := buildTransactionsWhere(tenantID, q)
	where := b.whereClause()
	countSQL = fmt.Sprintf("SELECT COUNT(*) FROM %s %s", transactionsView, where)
	countArgs = b.snapshot()

	sort := normalizeSort(transactionsSortable, q.Sort, defaultTransactionsSort)
	order := normalizeOrder(q.Order, "desc")
	page, pageSize := clampPage(q.Page, q.PageSize, defaultSize, maxSize)

	limitPH := b.bind(pageSize)
	offsetPH := b.bind((page - 1) * pageSize)
	dataSQL = fmt.Sprintf(`
		SELECT transaction_id, transaction_date, transaction_name, merchant_name,
			amount, amount_abs, pending, account_name, account_id, institution_name,
			payment_channel, transaction_type, category_id, flow_direction,
			iso_currency_code
		FROM %s
		%s
		ORDER BY %s %s NULLS LAST
		LIMIT %s OFFSET %s`,
		transactionsView, where, sort, order, limitPH, offsetPH)

	return dataSQL, countSQL, b.args, countArgs
}

// buildExportQuery caps rows at maxRows and always orders by date descending.
func buildExportQuery(tenantID uuid.UUID, q TransactionsQuery, maxRows int) (dataSQL, countSQL string, dataArgs, countArgs []any) {
	b := buildTransactionsWhere(tenantID, q)
	where := b.whereClause()
	countSQL = fmt.Sprintf("SELECT COUNT(*) FROM %s %s", transactionsView, where)
	countArgs = b.snapshot()

	limitPH := b.bind(maxRows)
	dataSQL = fmt.Sprintf(`
		SELECT transaction_date, transaction_name, merchant_name, amount, pending,
			account_name, institution_name, payment_channel, transaction_type,
			category_id, flow_direction
		FROM %s
		%s
		ORDER BY transaction_date DESC
		LIMIT %s`,
		transactionsView, where, limitPH)

	return dataSQL, countSQL, b.args, countArgs
}
