package repositories

import (
	"context"
	"testing"
	"time"

	"civreg/internal/models"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type AuditLogsRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    AuditLogsRepository
	context context.Context
}

func (suite *AuditLogsRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewAuditLogsRepo(mock)
	suite.context = context.Background()
}

func (suite *AuditLogsRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestAuditLogsRepoTestSuite(t *testing.T) {
	suite.Run(t, new(AuditLogsRepoTestSuite))
}

func auditLogColumnNames() []string {
	return []string{"id", "entity", "record_id", "action", "actor_id", "data", "created_at"}
}

func (suite *AuditLogsRepoTestSuite) TestCreate_MarshalsData() {
	actor := uuid.New()
	entry := &models.AuditLog{
		Entity:   models.EntityUser,
		RecordID: "42",
		Action:   models.ActionCreate,
		ActorID:  &actor,
		Data:     models.JSONB{"role": "hospital"},
	}

	suite.mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs(pgxmock.AnyArg(), models.EntityUser, "42", models.ActionCreate, &actor, []byte(`{"role":"hospital"}`), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(suite.T(), suite.repo.Create(suite.context, entry))
	assert.NotEqual(suite.T(), uuid.Nil, entry.ID)
	assert.False(suite.T(), entry.CreatedAt.IsZero())
}

func (suite *AuditLogsRepoTestSuite) TestList_NoFilters() {
	suite.mock.ExpectQuery(`WHERE 1 = 1 ORDER BY created_at DESC$`).
		WillReturnRows(pgxmock.NewRows(auditLogColumnNames()))

	logs, err := suite.repo.List(suite.context, nil)
	require.NoError(suite.T(), err)
	assert.NotNil(suite.T(), logs)
	assert.Empty(suite.T(), logs)
}

func (suite *AuditLogsRepoTestSuite) TestList_NumbersPlaceholdersInFilterOrder() {
	entity := models.EntityBirthDeclaration
	actor := uuid.New()
	filters := &models.AuditLogFilters{Entity: &entity, ActorID: &actor, Limit: 20, Offset: 40}

	id := uuid.New()
	now := time.Now()
	rows := pgxmock.NewRows(auditLogColumnNames()).
		AddRow(id, entity, "abc", models.ActionValidate, &actor, []byte(`{"comment":"ok"}`), now)

	suite.mock.ExpectQuery(`WHERE 1 = 1 AND entity = \$1 AND actor_id = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4$`).
		WithArgs(entity, actor, 20, 40).
		WillReturnRows(rows)

	logs, err := suite.repo.List(suite.context, filters)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), logs, 1)
	assert.Equal(suite.T(), id, logs[0].ID)
	assert.Equal(suite.T(), actor, *logs[0].ActorID)
	assert.Equal(suite.T(), "ok", logs[0].Data["comment"])
}

func (suite *AuditLogsRepoTestSuite) TestList_AllFieldFilters() {
	entity := models.EntityUser
	record := "rec-1"
	action := models.ActionDelete
	actor := uuid.New()
	filters := &models.AuditLogFilters{Entity: &entity, RecordID: &record, Action: &action, ActorID: &actor}

	suite.mock.ExpectQuery(`AND entity = \$1 AND record_id = \$2 AND action = \$3 AND actor_id = \$4 ORDER BY created_at DESC$`).
		WithArgs(entity, record, action, actor).
		WillReturnRows(pgxmock.NewRows(auditLogColumnNames()))

	_, err := suite.repo.List(suite.context, filters)
	assert.NoError(suite.T(), err)
}

func (suite *AuditLogsRepoTestSuite) TestList_OffsetIgnoredWithoutLimit() {
	action := models.ActionReject
	filters := &models.AuditLogFilters{Action: &action, Offset: 10}

	id := uuid.New()
	rows := pgxmock.NewRows(auditLogColumnNames()).
		AddRow(id, models.EntityBirthDeclaration, "abc", action, nil, nil, time.Now())

	suite.mock.ExpectQuery(`WHERE 1 = 1 AND action = \$1 ORDER BY created_at DESC$`).
		WithArgs(action).
		WillReturnRows(rows)

	logs, err := suite.repo.List(suite.context, filters)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), logs, 1)
	assert.Nil(suite.T(), logs[0].ActorID)
	assert.Nil(suite.T(), logs[0].Data)
}
