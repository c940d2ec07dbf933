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

type ResetTokenRepoTestSuite struct {
	suite.Suite
	mock     pgxmock.PgxPoolIface
	repo     ResetTokenRepository
	tenantID uuid.UUID
	ctx      context.Context
}

func (suite *ResetTokenRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(suite.T(), err)
	suite.mock = mock
	suite.repo = NewResetTokenRepo(mock)
	suite.tenantID = uuid.New()
	suite.ctx = context.Background()
}

func (suite *ResetTokenRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestResetTokenRepoTestSuite(t *testing.T) {
	suite.Run(t, new(ResetTokenRepoTestSuite))
}

func (suite *ResetTokenRepoTestSuite) TestCreate() {
	token := &models.PasswordResetToken{
		ID:       uuid.New(),
		TenantID: suite.tenantID,
		UserID:   uuid.New(),
		Token:    "opaque-token",
	}

	suite.mock.ExpectExec(`INSERT INTO password_reset_tokens`).
		WithArgs(token.ID, token.TenantID, token.UserID, token.Token).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.Create(suite.ctx, token)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *ResetTokenRepoTestSuite) TestGetByToken_Found() {
	id := uuid.New()
	userID := uuid.New()
	now := time.Now()

	suite.mock.ExpectQuery(`SELECT .+ FROM password_reset_tokens WHERE tenant_id = \$1 AND token = \$2`).
		WithArgs(suite.tenantID, "opaque-token").
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "user_id", "token", "used", "created_at"}).
			AddRow(id, suite.tenantID, userID, "opaque-token", false, now))

	token, err := suite.repo.GetByToken(suite.ctx, suite.tenantID, "opaque-token")
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), token)
	assert.Equal(suite.T(), id, token.ID)
	assert.Equal(suite.T(), userID, token.UserID)
	assert.False(suite.T(), token.Used)
}

func (suite *ResetTokenRepoTestSuite) TestGetByToken_NotFound() {
	suite.mock.ExpectQuery(`SELECT .+ FROM password_reset_tokens WHERE tenant_id = \$1 AND token = \$2`).
		WithArgs(suite.tenantID, "missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "user_id", "token", "used", "created_at"}))

	token, err := suite.repo.GetByToken(suite.ctx, suite.tenantID, "missing")
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), token)
}

func (suite *ResetTokenRepoTestSuite) TestMarkUsed_Consumes() {
	id := uuid.New()
	suite.mock.ExpectExec(`UPDATE password_reset_tokens SET used = true WHERE tenant_id = \$1 AND id = \$2 AND used = false`).
		WithArgs(suite.tenantID, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := suite.repo.MarkUsed(suite.ctx, suite.tenantID, id)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)
}

func (suite *ResetTokenRepoTestSuite) TestMarkUsed_AlreadyConsumed() {
	id := uuid.New()
	suite.mock.ExpectExec(`UPDATE password_reset_tokens SET used = true WHERE tenant_id = \$1 AND id = \$2 AND used = false`).
		WithArgs(suite.tenantID, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := suite.repo.MarkUsed(suite.ctx, suite.tenantID, id)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok)
}

func (suite *ResetTokenRepoTestSuite) TestDeleteStale() {
	cutoff := time.Now().Add(-25 * time.Hour)
	suite.mock.ExpectExec(`DELETE FROM password_reset_tokens WHERE used = true OR created_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	removed, err := suite.repo.DeleteStale(suite.ctx, cutoff)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(3), removed)
}
