package repositories

import (
	"context"
	"testing"
	"time"

	"soundcheck/internal/models"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type TrustedDeviceRepoTestSuite struct {
	suite.Suite
	mock     pgxmock.PgxPoolIface
	repo     TrustedDeviceRepository
	tenantID uuid.UUID
	userID   uuid.UUID
	ctx      context.Context
}

func (suite *TrustedDeviceRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(suite.T(), err)
	suite.mock = mock
	suite.repo = NewTrustedDeviceRepo(mock)
	suite.tenantID = uuid.New()
	suite.userID = uuid.New()
	suite.ctx = context.Background()
}

func (suite *TrustedDeviceRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestTrustedDeviceRepoTestSuite(t *testing.T) {
	suite.Run(t, new(TrustedDeviceRepoTestSuite))
}

func (suite *TrustedDeviceRepoTestSuite) TestCreate() {
	device := &models.TrustedDevice{
		ID:         uuid.New(),
		TenantID:   suite.tenantID,
		UserID:     suite.userID,
		DeviceHash: "abc123",
		ExpiresAt:  time.Now().Add(7 * 24 * time.Hour),
	}

	suite.mock.ExpectExec(`INSERT INTO trusted_devices`).
		WithArgs(device.ID, device.TenantID, device.UserID, device.DeviceHash, device.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.Create(suite.ctx, device)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *TrustedDeviceRepoTestSuite) TestFindValid_Found() {
	now := time.Now()
	id := uuid.New()

	suite.mock.ExpectQuery(`SELECT .+ FROM trusted_devices WHERE tenant_id = \$1 AND user_id = \$2 AND device_hash = \$3 AND expires_at > \$4`).
		WithArgs(suite.tenantID, suite.userID, "abc123", now).
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "user_id", "device_hash", "created_at", "expires_at"}).
			AddRow(id, suite.tenantID, suite.userID, "abc123", now.Add(-time.Hour), now.Add(6*24*time.Hour)))

	device, err := suite.repo.FindValid(suite.ctx, suite.tenantID, suite.userID, "abc123", now)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), device)
	assert.Equal(suite.T(), id, device.ID)
	assert.Equal(suite.T(), "abc123", device.DeviceHash)
}

func (suite *TrustedDeviceRepoTestSuite) TestFindValid_ExpiredOrMissing() {
	now := time.Now()

	suite.mock.ExpectQuery(`SELECT .+ FROM trusted_devices`).
		WithArgs(suite.tenantID, suite.userID, "abc123", now).
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "user_id", "device_hash", "created_at", "expires_at"}))

	device, err := suite.repo.FindValid(suite.ctx, suite.tenantID, suite.userID, "abc123", now)
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), device)
}

func (suite *TrustedDeviceRepoTestSuite) TestDeleteForUser() {
	suite.mock.ExpectExec(`DELETE FROM trusted_devices WHERE tenant_id = \$1 AND user_id = \$2`).
		WithArgs(suite.tenantID, suite.userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	removed, err := suite.repo.DeleteForUser(suite.ctx, suite.tenantID, suite.userID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(2), removed)
}

func (suite *TrustedDeviceRepoTestSuite) TestDeleteExpired() {
	now := time.Now()
	suite.mock.ExpectExec(`DELETE FROM trusted_devices WHERE expires_at <= \$1`).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))

	removed, err := suite.repo.DeleteExpired(suite.ctx, now)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(5), removed)
}
