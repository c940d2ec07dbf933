package analytics

import (
	"context"
	"testing"
	"time"

	"soundcheck/internal/caching"
	"soundcheck/internal/models"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// nopCache never hits, so every query in these tests goes to the database.
type nopCache struct{}

func (nopCache) SetSession(context.Context, uuid.UUID, string, *caching.SessionData, time.Duration) error {
	return nil
}
func (nopCache) GetSession(context.Context, uuid.UUID, string) (*caching.SessionData, error) {
	return nil, nil
}
func (nopCache) MarkSessionVerified(context.Context, uuid.UUID, string) error { return nil }
func (nopCache) DeleteSession(context.Context, uuid.UUID, string) error       { return nil }
func (nopCache) GetSummaryKPIs(context.Context, uuid.UUID, *uuid.UUID) (*models.SummaryKPIs, error) {
	return nil, nil
}
func (nopCache) SetSummaryKPIs(context.Context, uuid.UUID, *uuid.UUID, *models.SummaryKPIs, time.Duration) error {
	return nil
}
func (nopCache) InvalidateSummaryKPIs(context.Context, uuid.UUID) error { return nil }
func (nopCache) IsRateLimited(context.Context, string, int, time.Duration) (bool, error) {
	return false, nil
}

// stubClientRepo serves a fixed account-ID mapping for one client.
type stubClientRepo struct {
	clientID   uuid.UUID
	accountIDs []string
}

func (s *stubClientRepo) Create(context.Context, *models.Client) error { return nil }
func (s *stubClientRepo) GetByID(context.Context, uuid.UUID, uuid.UUID) (*models.Client, error) {
	return nil, nil
}
func (s *stubClientRepo) Update(context.Context, *models.Client) error { return nil }
func (s *stubClientRepo) List(context.Context, uuid.UUID) ([]*models.Client, error) {
	return nil, nil
}
func (s *stubClientRepo) ListActive(context.Context, uuid.UUID) ([]*models.Client, error) {
	return nil, nil
}
func (s *stubClientRepo) AddAccounts(context.Context, uuid.UUID, uuid.UUID, []string) (int, error) {
	return 0, nil
}
func (s *stubClientRepo) ListMappings(context.Context, uuid.UUID, uuid.UUID) ([]*models.ClientAccount, error) {
	return nil, nil
}
func (s *stubClientRepo) ListAccountIDs(_ context.Context, _ uuid.UUID, clientID uuid.UUID) ([]string, error) {
	if clientID == s.clientID {
		return s.accountIDs, nil
	}
	return []string{}, nil
}
func (s *stubClientRepo) DeleteMapping(context.Context, uuid.UUID, uuid.UUID, int64) (string, error) {
	return "", nil
}

type AnalyticsServiceTestSuite struct {
	suite.Suite
	mock       pgxmock.PgxPoolIface
	clientRepo *stubClientRepo
	service    *Service
	ctx        context.Context
	tenantID   uuid.UUID
}

func (suite *AnalyticsServiceTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(suite.T(), err)
	suite.mock = mock
	suite.clientRepo = &stubClientRepo{clientID: uuid.New(), accountIDs: []string{"acc_1", "acc_2"}}
	suite.service = NewService(mock, suite.clientRepo, nopCache{}, 25, 100, 1000)
	suite.ctx = context.Background()
	suite.tenantID = uuid.New()
}

func (suite *AnalyticsServiceTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestAnalyticsServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AnalyticsServiceTestSuite))
}

func (suite *AnalyticsServiceTestSuite) TestResolveScope() {
	scope, err := suite.service.ResolveScope(suite.ctx, suite.tenantID, nil)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), scope.Restricted)

	scope, err = suite.service.ResolveScope(suite.ctx, suite.tenantID, &suite.clientRepo.clientID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), scope.Restricted)
	assert.Equal(suite.T(), []string{"acc_1", "acc_2"}, scope.AccountIDs)

	// A client with no mappings sees nothing, not everything
	other := uuid.New()
	scope, err = suite.service.ResolveScope(suite.ctx, suite.tenantID, &other)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), scope.Restricted)
	assert.Empty(suite.T(), scope.AccountIDs)
}

func (suite *AnalyticsServiceTestSuite) TestSummaryKPIs() {
	suite.mock.ExpectQuery(`SELECT COALESCE\(SUM\(current_balance\), 0\), COALESCE\(SUM\(available_balance\), 0\)`).
		WithArgs(suite.tenantID).
		WillReturnRows(pgxmock.NewRows([]string{"balance", "available"}).AddRow(1500.25, 1200.00))
	suite.mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount_abs\), 0\)`).
		WithArgs(suite.tenantID).
		WillReturnRows(pgxmock.NewRows([]string{"pending"}).AddRow(42.50))

	kpis, err := suite.service.SummaryKPIs(suite.ctx, suite.tenantID, nil)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1500.25, kpis.TotalBalance)
	assert.Equal(suite.T(), 1200.00, kpis.TotalAvailable)
	assert.Equal(suite.T(), 42.50, kpis.TotalPending)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *AnalyticsServiceTestSuite) TestTransactionsPage() {
	suite.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM analytics\.transactions`).
		WithArgs(suite.tenantID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(51))

	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	merchant := "Blue Bottle"
	suite.mock.ExpectQuery(`SELECT transaction_id, transaction_date, transaction_name`).
		WithArgs(suite.tenantID, 25, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"transaction_id", "transaction_date", "transaction_name", "merchant_name",
			"amount", "amount_abs", "pending", "account_name", "account_id", "institution_name",
			"payment_channel", "transaction_type", "category_id", "flow_direction", "iso_currency_code",
		}).AddRow(
			"txn_1", date, "Coffee", &merchant,
			-4.50, 4.50, false, "Checking", "acc_1", "First Bank",
			nil, nil, nil, nil, nil,
		))

	page, err := suite.service.TransactionsPage(suite.ctx, suite.tenantID, TransactionsQuery{})
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), 51, page.Total)
	assert.Equal(suite.T(), 1, page.Page)
	assert.Equal(suite.T(), 25, page.PageSize)
	assert.Equal(suite.T(), 3, page.TotalPages)
	require.Len(suite.T(), page.Rows, 1)
	assert.Equal(suite.T(), "Coffee", page.Rows[0].TransactionName)
	assert.Equal(suite.T(), -4.50, page.Rows[0].Amount)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *AnalyticsServiceTestSuite) TestTransactionsForExport_OverCap() {
	// Cap is 1000 in this suite; a 5000 row result must be refused
	suite.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM analytics\.transactions`).
		WithArgs(suite.tenantID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(5000))

	rows, total, exceeded, err := suite.service.TransactionsForExport(suite.ctx, suite.tenantID, TransactionsQuery{})
	require.NoError(suite.T(), err)
	assert.True(suite.T(), exceeded)
	assert.Equal(suite.T(), 5000, total)
	assert.Nil(suite.T(), rows)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *AnalyticsServiceTestSuite) TestTransactionsForExport_UnderCap() {
	suite.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM analytics\.transactions`).
		WithArgs(suite.tenantID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	suite.mock.ExpectQuery(`SELECT transaction_date, transaction_name, merchant_name`).
		WithArgs(suite.tenantID, 1000).
		WillReturnRows(pgxmock.NewRows([]string{
			"transaction_date", "transaction_name", "merchant_name", "amount", "pending",
			"account_name", "institution_name", "payment_channel", "transaction_type",
			"category_id", "flow_direction",
		}).AddRow(date, "Coffee", nil, -4.50, false, "Checking", "First Bank", nil, nil, nil, nil))

	rows, total, exceeded, err := suite.service.TransactionsForExport(suite.ctx, suite.tenantID, TransactionsQuery{})
	require.NoError(suite.T(), err)
	assert.False(suite.T(), exceeded)
	assert.Equal(suite.T(), 1, total)
	require.Len(suite.T(), rows, 1)
	assert.Equal(suite.T(), "Coffee", rows[0].TransactionName)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func TestExportRowCSVRecord(t *testing.T) {
	merchant := "Blue Bottle"
	channel := "in store"
	row := ExportRow{
		TransactionDate: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		TransactionName: "Coffee",
		MerchantName:    &merchant,
		Amount:          -4.5,
		Pending:         true,
		AccountName:     "Checking",
		InstitutionName: "First Bank",
		PaymentChannel:  &channel,
	}

	record := row.CSVRecord()
	require.Len(t, record, len(CSVColumns))
	assert.Equal(t, []string{
		"2025-03-14", "Coffee", "Blue Bottle", "-4.50", "true",
		"Checking", "First Bank", "in store", "", "", "",
	}, record)
}
