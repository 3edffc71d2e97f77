package repositories

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"civreg/internal/models"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type DeathDeclarationRepoTestSuite struct {
	suite.Suite
	mock       pgxmock.PgxPoolIface
	repo       DeathDeclarationRepository
	hospitalID uuid.UUID
	context    context.Context
}

func (suite *DeathDeclarationRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewDeathDeclarationRepo(mock)
	suite.hospitalID = uuid.New()
	suite.context = context.Background()
}

func (suite *DeathDeclarationRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestDeathDeclarationRepoTestSuite(t *testing.T) {
	suite.Run(t, new(DeathDeclarationRepoTestSuite))
}

func deathColumnNames() []string {
	return []string{
		"id", "father", "mother", "cause_of_death", "submitting_hospital_id",
		"hospital_name", "hospital_email", "created_at", "updated_at",
	}
}

func (suite *DeathDeclarationRepoTestSuite) TestCreate_WithoutParentsStoresNull() {
	d := &models.DeathDeclaration{
		ID:                   uuid.New(),
		CauseOfDeath:         "Prématurité",
		SubmittingHospitalID: suite.hospitalID,
		HospitalName:         "CHU Nord",
		HospitalEmail:        "chu@example.org",
	}

	suite.mock.ExpectExec(`INSERT INTO death_declarations`).
		WithArgs(d.ID, []byte(nil), []byte(nil), "Prématurité", suite.hospitalID, "CHU Nord", "chu@example.org", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.Create(suite.context, d)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), d.CreatedAt.IsZero())
	assert.Equal(suite.T(), d.CreatedAt, d.UpdatedAt)
}

func (suite *DeathDeclarationRepoTestSuite) TestCreate_EncodesParentAndAssignsID() {
	father := &models.Parent{GivenName: "Paul", FamilyName: "Martin", Email: "paul@example.org"}
	encoded, err := json.Marshal(father)
	require.NoError(suite.T(), err)

	d := &models.DeathDeclaration{
		Father:               father,
		CauseOfDeath:         "Arrêt cardiaque",
		SubmittingHospitalID: suite.hospitalID,
	}

	suite.mock.ExpectExec(`INSERT INTO death_declarations`).
		WithArgs(pgxmock.AnyArg(), encoded, []byte(nil), "Arrêt cardiaque", suite.hospitalID, "", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(suite.T(), suite.repo.Create(suite.context, d))
	assert.NotEqual(suite.T(), uuid.Nil, d.ID)
}

func (suite *DeathDeclarationRepoTestSuite) TestGetByID_NullParentsDecodeToNil() {
	id := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows(deathColumnNames()).AddRow(
		id, nil, []byte("null"), "Prématurité", suite.hospitalID, "CHU Nord", "chu@example.org", now, now,
	)
	suite.mock.ExpectQuery(`SELECT .+ FROM death_declarations WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(rows)

	d, err := suite.repo.GetByID(suite.context, id)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), d)
	assert.Nil(suite.T(), d.Father)
	assert.Nil(suite.T(), d.Mother)
	assert.Equal(suite.T(), "", d.ParentEmail())
	assert.Equal(suite.T(), "CHU Nord", d.HospitalName)
}

func (suite *DeathDeclarationRepoTestSuite) TestGetByID_DecodesParent() {
	id := uuid.New()
	now := time.Now()
	mother, _ := json.Marshal(models.Parent{GivenName: "Anne", FamilyName: "Martin", Email: "anne@example.org"})

	rows := pgxmock.NewRows(deathColumnNames()).AddRow(
		id, nil, mother, "Prématurité", suite.hospitalID, "CHU Nord", "chu@example.org", now, now,
	)
	suite.mock.ExpectQuery(`SELECT .+ FROM death_declarations WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(rows)

	d, err := suite.repo.GetByID(suite.context, id)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), d.Mother)
	assert.Equal(suite.T(), "Anne", d.Mother.GivenName)
	assert.Equal(suite.T(), "anne@example.org", d.ParentEmail())
}

func (suite *DeathDeclarationRepoTestSuite) TestGetByID_NotFound() {
	id := uuid.New()
	suite.mock.ExpectQuery(`SELECT .+ FROM death_declarations WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(deathColumnNames()))

	d, err := suite.repo.GetByID(suite.context, id)
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), d)
}

func (suite *DeathDeclarationRepoTestSuite) TestCountPerHospital() {
	other := uuid.New()
	rows := pgxmock.NewRows([]string{"submitting_hospital_id", "hospital_name", "count"}).
		AddRow(suite.hospitalID, "CHU Nord", 2).
		AddRow(other, "Clinique Sud", 5)

	suite.mock.ExpectQuery(`SELECT submitting_hospital_id, MAX\(hospital_name\), COUNT\(\*\)\s+FROM death_declarations`).
		WillReturnRows(rows)

	counts, err := suite.repo.CountPerHospital(suite.context)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), counts, 2)
	assert.Equal(suite.T(), suite.hospitalID, counts[0].HospitalID)
	assert.Equal(suite.T(), 2, counts[0].Count)
	assert.Equal(suite.T(), 5, counts[1].Count)
}

func (suite *DeathDeclarationRepoTestSuite) TestDelete() {
	id := uuid.New()
	suite.mock.ExpectExec(`DELETE FROM death_declarations WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	deleted, err := suite.repo.Delete(suite.context, id)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), deleted)
}

func (suite *DeathDeclarationRepoTestSuite) TestDelete_Missing() {
	id := uuid.New()
	suite.mock.ExpectExec(`DELETE FROM death_declarations WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	deleted, err := suite.repo.Delete(suite.context, id)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), deleted)
}
