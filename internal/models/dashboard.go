package models

import "time"

// AccountRow is one row of the accounts table, read from the
// analytics.accounts_current view.
type AccountRow struct {
	AccountID        string     `json:"account_id"`
	AccountName      string     `json:"account_name"`
	InstitutionName  string     `json:"institution_name"`
	Type             string     `json:"type"`
	Subtype          *string    `json:"subtype"`
	Mask             *string    `json:"mask"`
	CurrentBalance   *float64   `json:"current_balance"`
	AvailableBalance *float64   `json:"available_balance"`
	CreditLimit      *float64   `json:"credit_limit"`
	UtilizationPct   *float64   `json:"utilization_pct"`
	IsOverdrawn      bool       `json:"is_overdrawn"`
	BalanceAsOf      *time.Time `json:"balance_as_of"`
}

// TransactionRow is one row of the transactions table, read from the
// analytics.transactions view.
type TransactionRow struct {
	TransactionID   string    `json:"transaction_id"`
	TransactionDate time.Time `json:"transaction_date"`
	TransactionName string    `json:"transaction_name"`
	MerchantName    *string   `json:"merchant_name"`
	Amount          float64   `json:"amount"`
	AmountAbs       float64   `json:"amount_abs"`
	Pending         bool      `json:"pending"`
	AccountName     string    `json:"account_name"`
	AccountID       string    `json:"account_id"`
	InstitutionName string    `json:"institution_name"`
	PaymentChannel  *string   `json:"payment_channel"`
	TransactionType *string   `json:"transaction_type"`
	CategoryID      *string   `json:"category_id"`
	FlowDirection   *string   `json:"flow_direction"`
	ISOCurrencyCode *string   `json:"iso_currency_code"`
}

// SummaryKPIs are the aggregate figures shown at the top of the summary page.
type SummaryKPIs struct {
	TotalBalance   float64 `json:"total_balance"`
	TotalAvailable float64 `json:"total_available"`
	TotalPending   float64 `json:"total_pending"`
}

// AccountOption is an (id, label) pair for the account filter dropdown.
type AccountOption struct {
	AccountID string `json:"account_id"`
	Label     string `json:"label"`
}

// AccountsPage is a paginated slice of the accounts table.
type AccountsPage struct {
	Rows       []AccountRow `json:"rows"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
}

// TransactionsPage is a paginated slice of the transactions table.
type TransactionsPage struct {
	Rows       []TransactionRow `json:"rows"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}
