package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"civreg/internal/common"
	"civreg/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type DeclarationServiceTestSuite struct {
	suite.Suite
	userRepo     *MockUserRepository
	birthRepo    *MockBirthDeclarationRepository
	deathRepo    *MockDeathDeclarationRepository
	mailer       *MockMailer
	audit        *recordingAudit
	service      DeclarationService
	hospital     *models.User
	municipality *models.User
	admin        models.Identity
	ctx          context.Context
}

func (suite *DeclarationServiceTestSuite) SetupTest() {
	suite.userRepo = &MockUserRepository{}
	suite.userRepo.Test(suite.T())
	suite.birthRepo = &MockBirthDeclarationRepository{}
	suite.birthRepo.Test(suite.T())
	suite.deathRepo = &MockDeathDeclarationRepository{}
	suite.deathRepo.Test(suite.T())
	suite.mailer = &MockMailer{}
	suite.mailer.Test(suite.T())
	suite.audit = &recordingAudit{}

	notifier := NewNotificationService(suite.mailer, zap.NewNop())
	suite.service = NewDeclarationService(suite.userRepo, suite.birthRepo, suite.deathRepo, notifier, suite.audit, zap.NewNop())

	suite.hospital = &models.User{ID: uuid.New(), DisplayName: "CHU Nord", Email: "chu@example.org", Role: models.RoleHospital}
	suite.municipality = &models.User{ID: uuid.New(), DisplayName: "Mairie de Lyon", Email: "mairie@lyon.fr", Role: models.RoleMunicipality}
	suite.admin = models.Identity{UserID: uuid.New(), Role: models.RoleAdmin}
	suite.ctx = context.Background()
}

func (suite *DeclarationServiceTestSuite) TearDownTest() {
	suite.userRepo.AssertExpectations(suite.T())
	suite.birthRepo.AssertExpectations(suite.T())
	suite.deathRepo.AssertExpectations(suite.T())
	suite.mailer.AssertExpectations(suite.T())
}

func TestDeclarationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DeclarationServiceTestSuite))
}

func (suite *DeclarationServiceTestSuite) hospitalCaller() models.Identity {
	return models.Identity{UserID: suite.hospital.ID, Role: models.RoleHospital}
}

func (suite *DeclarationServiceTestSuite) birth() *models.BirthDeclaration {
	return &models.BirthDeclaration{
		ID:                        uuid.New(),
		ChildGivenName:            "Awa",
		Sex:                       models.SexFemale,
		DestinationMunicipalityID: suite.municipality.ID,
		SubmittingHospitalID:      suite.hospital.ID,
		ValidationStatus:          models.StatusPending,
	}
}

func (suite *DeclarationServiceTestSuite) TestCreateDeath_Success() {
	req := &DeathDeclarationRequest{
		Mother:       &models.Parent{FamilyName: "Diallo", Email: "fatou@example.org"},
		CauseOfDeath: "Détresse respiratoire",
	}
	suite.userRepo.On("GetByID", suite.ctx, suite.hospital.ID).Return(suite.hospital, nil)
	suite.deathRepo.On("Create", suite.ctx, mock.AnythingOfType("*models.DeathDeclaration")).Return(nil)
	suite.mailer.On("Send", mock.Anything, "fatou@example.org", "Pré-déclaration de décès enregistrée", mock.Anything).Return(nil)

	declaration, err := suite.service.CreateDeath(suite.ctx, suite.hospitalCaller(), req)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "CHU Nord", declaration.HospitalName)
	assert.Nil(suite.T(), declaration.Father)
	assert.Equal(suite.T(), []string{"death_declaration:CREATE"}, suite.audit.actions())
}

func (suite *DeclarationServiceTestSuite) TestCreateDeath_RequiresCause() {
	_, err := suite.service.CreateDeath(suite.ctx, suite.hospitalCaller(), &DeathDeclarationRequest{})
	assert.Equal(suite.T(), common.KindValidation, common.KindOf(err))
}

func (suite *DeclarationServiceTestSuite) TestCreateDeath_MunicipalityForbidden() {
	caller := models.Identity{UserID: suite.municipality.ID, Role: models.RoleMunicipality}
	_, err := suite.service.CreateDeath(suite.ctx, caller, &DeathDeclarationRequest{CauseOfDeath: "x"})
	assert.True(suite.T(), errors.Is(err, common.ErrForbidden))
}

func (suite *DeclarationServiceTestSuite) TestListOwn_ResolvesMunicipality() {
	birth := suite.birth()
	suite.birthRepo.On("ListByHospital", mock.Anything, suite.hospital.ID).Return([]*models.BirthDeclaration{birth}, nil)
	suite.deathRepo.On("ListByHospital", mock.Anything, suite.hospital.ID).Return([]*models.DeathDeclaration{}, nil)
	suite.userRepo.On("GetByIDs", mock.Anything, []uuid.UUID{suite.municipality.ID}).
		Return(map[uuid.UUID]*models.User{suite.municipality.ID: suite.municipality}, nil)

	bundle, err := suite.service.ListOwn(suite.ctx, suite.hospitalCaller())
	require.NoError(suite.T(), err)
	require.Len(suite.T(), bundle.Births, 1)
	assert.Equal(suite.T(), "Mairie de Lyon", bundle.Births[0].DestinationMunicipality.Name)
	assert.Empty(suite.T(), bundle.Deaths)
}

func (suite *DeclarationServiceTestSuite) TestListAddressedBirths_DanglingHospital() {
	birth := suite.birth()
	caller := models.Identity{UserID: suite.municipality.ID, Role: models.RoleMunicipality}
	suite.birthRepo.On("ListByMunicipality", suite.ctx, suite.municipality.ID).Return([]*models.BirthDeclaration{birth}, nil)
	suite.userRepo.On("GetByIDs", suite.ctx, []uuid.UUID{suite.hospital.ID}).Return(map[uuid.UUID]*models.User{}, nil)

	views, err := suite.service.ListAddressedBirths(suite.ctx, caller)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), views, 1)
	assert.Nil(suite.T(), views[0].SubmittingHospital)
	assert.Equal(suite.T(), birth.ID, views[0].ID)
}

func (suite *DeclarationServiceTestSuite) TestListAll_AdminOnly() {
	_, err := suite.service.ListAll(suite.ctx, suite.hospitalCaller())
	assert.True(suite.T(), errors.Is(err, common.ErrForbidden))
}

func (suite *DeclarationServiceTestSuite) TestListAll_ResolvesReferencesInOneLookup() {
	birth := suite.birth()
	death := &models.DeathDeclaration{ID: uuid.New(), SubmittingHospitalID: suite.hospital.ID}
	suite.birthRepo.On("ListAll", mock.Anything).Return([]*models.BirthDeclaration{birth}, nil)
	suite.deathRepo.On("ListAll", mock.Anything).Return([]*models.DeathDeclaration{death}, nil)
	suite.userRepo.On("GetByIDs", suite.ctx, []uuid.UUID{suite.municipality.ID, suite.hospital.ID}).Return(map[uuid.UUID]*models.User{
		suite.municipality.ID: suite.municipality,
		suite.hospital.ID:     suite.hospital,
	}, nil).Once()

	bundle, err := suite.service.ListAll(suite.ctx, suite.admin)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "CHU Nord", bundle.Births[0].SubmittingHospital.Name)
	assert.Equal(suite.T(), "Mairie de Lyon", bundle.Births[0].DestinationMunicipality.Name)
	assert.Equal(suite.T(), "CHU Nord", bundle.Deaths[0].SubmittingHospital.Name)
}

func (suite *DeclarationServiceTestSuite) TestGetBirth_Access() {
	birth := suite.birth()
	suite.birthRepo.On("GetByID", suite.ctx, birth.ID).Return(birth, nil)
	suite.userRepo.On("GetByIDs", suite.ctx, mock.Anything).Return(map[uuid.UUID]*models.User{}, nil)

	_, err := suite.service.GetBirth(suite.ctx, suite.hospitalCaller(), birth.ID)
	assert.NoError(suite.T(), err)

	_, err = suite.service.GetBirth(suite.ctx, models.Identity{UserID: suite.municipality.ID, Role: models.RoleMunicipality}, birth.ID)
	assert.NoError(suite.T(), err)

	_, err = suite.service.GetBirth(suite.ctx, models.Identity{UserID: uuid.New(), Role: models.RoleHospital}, birth.ID)
	assert.True(suite.T(), errors.Is(err, common.ErrForbidden))

	_, err = suite.service.GetBirth(suite.ctx, models.Identity{UserID: uuid.New(), Role: models.RoleMunicipality}, birth.ID)
	assert.True(suite.T(), errors.Is(err, common.ErrForbidden))
}

func (suite *DeclarationServiceTestSuite) TestGetDeath_NotFound() {
	id := uuid.New()
	suite.deathRepo.On("GetByID", suite.ctx, id).Return(nil, nil)

	_, err := suite.service.GetDeath(suite.ctx, suite.admin, id)
	assert.True(suite.T(), errors.Is(err, common.ErrNotFound))
}

func (suite *DeclarationServiceTestSuite) TestUpdateBirth_HospitalEditsOwn() {
	birth := suite.birth()
	name := "Aïcha"
	suite.birthRepo.On("GetByID", suite.ctx, birth.ID).Return(birth, nil)
	suite.birthRepo.On("Update", suite.ctx, birth).Return(nil)

	updated, err := suite.service.UpdateBirth(suite.ctx, suite.hospitalCaller(), birth.ID, &UpdateBirthRequest{ChildGivenName: &name})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Aïcha", updated.ChildGivenName)
	assert.Equal(suite.T(), models.StatusPending, updated.ValidationStatus)
	assert.Equal(suite.T(), []string{"birth_declaration:UPDATE"}, suite.audit.actions())
}

func (suite *DeclarationServiceTestSuite) TestUpdateBirth_OtherHospitalSeesNotFound() {
	birth := suite.birth()
	name := "x"
	suite.birthRepo.On("GetByID", suite.ctx, birth.ID).Return(birth, nil)

	_, err := suite.service.UpdateBirth(suite.ctx, models.Identity{UserID: uuid.New(), Role: models.RoleHospital}, birth.ID, &UpdateBirthRequest{ChildGivenName: &name})
	assert.True(suite.T(), errors.Is(err, common.ErrNotFound))
}

func (suite *DeclarationServiceTestSuite) TestUpdateBirth_HospitalCannotChangeStatus() {
	status := "validated"
	_, err := suite.service.UpdateBirth(suite.ctx, suite.hospitalCaller(), uuid.New(), &UpdateBirthRequest{ValidationStatus: &status})
	assert.True(suite.T(), errors.Is(err, common.ErrForbidden))
}

func (suite *DeclarationServiceTestSuite) TestUpdateBirth_AdminResetsStatus() {
	birth := suite.birth()
	birth.ValidationStatus = models.StatusRejected
	decidedAt := time.Now().UTC()
	birth.ValidationDate = &decidedAt
	status := "pending"
	suite.birthRepo.On("GetByID", suite.ctx, birth.ID).Return(birth, nil)
	suite.birthRepo.On("Update", suite.ctx, birth).Return(nil)

	updated, err := suite.service.UpdateBirth(suite.ctx, suite.admin, birth.ID, &UpdateBirthRequest{ValidationStatus: &status})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.StatusPending, updated.ValidationStatus)
	assert.Nil(suite.T(), updated.ValidationDate)
}

func (suite *DeclarationServiceTestSuite) TestUpdateBirth_AdminDecisionStampsValidationDate() {
	decidedAt := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)
	suite.service.(*declarationService).now = func() time.Time { return decidedAt }

	birth := suite.birth()
	status := "rejected"
	suite.birthRepo.On("GetByID", suite.ctx, birth.ID).Return(birth, nil)
	suite.birthRepo.On("Update", suite.ctx, birth).Return(nil)

	updated, err := suite.service.UpdateBirth(suite.ctx, suite.admin, birth.ID, &UpdateBirthRequest{ValidationStatus: &status})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.StatusRejected, updated.ValidationStatus)
	require.NotNil(suite.T(), updated.ValidationDate)
	assert.Equal(suite.T(), decidedAt, *updated.ValidationDate)
}

func (suite *DeclarationServiceTestSuite) TestUpdateBirth_MunicipalityForbidden() {
	name := "x"
	caller := models.Identity{UserID: suite.municipality.ID, Role: models.RoleMunicipality}
	_, err := suite.service.UpdateBirth(suite.ctx, caller, uuid.New(), &UpdateBirthRequest{ChildGivenName: &name})
	assert.True(suite.T(), errors.Is(err, common.ErrForbidden))
}

func (suite *DeclarationServiceTestSuite) TestUpdateDeath_Success() {
	death := &models.DeathDeclaration{ID: uuid.New(), SubmittingHospitalID: suite.hospital.ID, CauseOfDeath: "old"}
	cause := "Prématurité"
	suite.deathRepo.On("GetByID", suite.ctx, death.ID).Return(death, nil)
	suite.deathRepo.On("Update", suite.ctx, death).Return(nil)

	updated, err := suite.service.UpdateDeath(suite.ctx, suite.hospitalCaller(), death.ID, &UpdateDeathRequest{CauseOfDeath: &cause})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), cause, updated.CauseOfDeath)
}

func (suite *DeclarationServiceTestSuite) TestDeleteBirth_OwnerAndAdmin() {
	birth := suite.birth()
	suite.birthRepo.On("GetByID", suite.ctx, birth.ID).Return(birth, nil)
	suite.birthRepo.On("Delete", suite.ctx, birth.ID).Return(true, nil)

	require.NoError(suite.T(), suite.service.DeleteBirth(suite.ctx, suite.hospitalCaller(), birth.ID))
	require.NoError(suite.T(), suite.service.DeleteBirth(suite.ctx, suite.admin, birth.ID))
	assert.Equal(suite.T(), []string{"birth_declaration:DELETE", "birth_declaration:DELETE"}, suite.audit.actions())
}

func (suite *DeclarationServiceTestSuite) TestDeleteDeath_NotOwned() {
	death := &models.DeathDeclaration{ID: uuid.New(), SubmittingHospitalID: uuid.New()}
	suite.deathRepo.On("GetByID", suite.ctx, death.ID).Return(death, nil)

	err := suite.service.DeleteDeath(suite.ctx, suite.hospitalCaller(), death.ID)
	assert.True(suite.T(), errors.Is(err, common.ErrNotFound))
	suite.deathRepo.AssertNotCalled(suite.T(), "Delete", mock.Anything, mock.Anything)
}
