package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"civreg/internal/caching"
	"civreg/internal/common"
	"civreg/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type TokenServiceTestSuite struct {
	suite.Suite
	userRepo *MockUserRepository
	store    *caching.MemoryRevocationStore
	service  *tokenService
	userID   uuid.UUID
	ctx      context.Context
}

func (suite *TokenServiceTestSuite) SetupTest() {
	suite.userRepo = &MockUserRepository{}
	suite.userRepo.Test(suite.T())
	suite.store = caching.NewMemoryRevocationStore()
	suite.service = NewTokenService(suite.userRepo, suite.store, TokenConfig{
		AccessSecret:    "access-secret",
		RefreshSecret:   "refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		RevocationTTL:   time.Hour,
	}).(*tokenService)
	suite.userID = uuid.New()
	suite.ctx = context.Background()
}

func (suite *TokenServiceTestSuite) TearDownTest() {
	suite.userRepo.AssertExpectations(suite.T())
}

func TestTokenServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TokenServiceTestSuite))
}

func (suite *TokenServiceTestSuite) issue(role models.Role) *models.Session {
	suite.userRepo.On("RotateRefreshToken", suite.ctx, suite.userID, mock.AnythingOfType("*string")).Return(nil).Once()
	session, err := suite.service.IssueSession(suite.ctx, suite.userID, role)
	require.NoError(suite.T(), err)
	return session
}

func (suite *TokenServiceTestSuite) TestIssueThenVerify_ReturnsEmbeddedIdentity() {
	session := suite.issue(models.RoleMunicipality)

	identity, err := suite.service.Verify(suite.ctx, session.AccessToken)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.userID, identity.UserID)
	assert.Equal(suite.T(), models.RoleMunicipality, identity.Role)
}

func (suite *TokenServiceTestSuite) TestRevokeThenVerify_ReportsRevoked() {
	session := suite.issue(models.RoleHospital)

	require.NoError(suite.T(), suite.service.Revoke(suite.ctx, session.AccessToken))

	_, err := suite.service.Verify(suite.ctx, session.AccessToken)
	assert.True(suite.T(), errors.Is(err, common.ErrRevokedToken))
}

func (suite *TokenServiceTestSuite) TestVerify_ExpiredToken() {
	session := suite.issue(models.RoleHospital)

	suite.service.now = func() time.Time { return time.Now().Add(16 * time.Minute) }

	_, err := suite.service.Verify(suite.ctx, session.AccessToken)
	assert.True(suite.T(), errors.Is(err, common.ErrInvalidToken))
}

func (suite *TokenServiceTestSuite) TestVerify_RefreshTokenIsNotAnAccessToken() {
	session := suite.issue(models.RoleHospital)

	_, err := suite.service.Verify(suite.ctx, session.RefreshToken)
	assert.True(suite.T(), errors.Is(err, common.ErrInvalidToken))
}

func (suite *TokenServiceTestSuite) TestVerify_Garbage() {
	_, err := suite.service.Verify(suite.ctx, "not-a-jwt")
	assert.True(suite.T(), errors.Is(err, common.ErrInvalidToken))

	_, err = suite.service.Verify(suite.ctx, "")
	assert.True(suite.T(), errors.Is(err, common.ErrMissingToken))
}

func (suite *TokenServiceTestSuite) TestRevoke_UsesAccessLifetimeAsFloor() {
	store := &MockRevocationStore{}
	store.Test(suite.T())
	suite.service.revocations = store
	suite.service.cfg.RevocationTTL = time.Minute

	store.On("Add", suite.ctx, revocationKey("token"), 15*time.Minute).Return(nil).Once()
	require.NoError(suite.T(), suite.service.Revoke(suite.ctx, "token"))

	suite.service.cfg.RevocationTTL = time.Hour
	store.On("Add", suite.ctx, revocationKey("token"), time.Hour).Return(nil).Once()
	require.NoError(suite.T(), suite.service.Revoke(suite.ctx, "token"))

	store.AssertExpectations(suite.T())
}

func (suite *TokenServiceTestSuite) TestVerify_StoreFailureIsPersistenceError() {
	store := &MockRevocationStore{}
	suite.service.revocations = store
	store.On("Contains", suite.ctx, mock.Anything).Return(false, errors.New("redis down")).Once()

	_, err := suite.service.Verify(suite.ctx, "token")
	assert.Equal(suite.T(), common.KindPersistence, common.KindOf(err))
}

func (suite *TokenServiceTestSuite) TestRefresh_MatchingStoredToken() {
	session := suite.issue(models.RoleHospital)
	stored := session.RefreshToken
	suite.userRepo.On("GetByID", suite.ctx, suite.userID).Return(&models.User{
		ID:           suite.userID,
		Role:         models.RoleAdmin,
		RefreshToken: &stored,
	}, nil).Once()

	accessToken, err := suite.service.Refresh(suite.ctx, session.RefreshToken)
	require.NoError(suite.T(), err)

	identity, err := suite.service.Verify(suite.ctx, accessToken)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.RoleAdmin, identity.Role, "refresh carries the account's current role")
}

func (suite *TokenServiceTestSuite) TestRefresh_RotatedTokenIsRejected() {
	first := suite.issue(models.RoleHospital)
	second := suite.issue(models.RoleHospital)
	current := second.RefreshToken
	suite.userRepo.On("GetByID", suite.ctx, suite.userID).Return(&models.User{
		ID:           suite.userID,
		Role:         models.RoleHospital,
		RefreshToken: &current,
	}, nil).Once()

	_, err := suite.service.Refresh(suite.ctx, first.RefreshToken)
	assert.True(suite.T(), errors.Is(err, common.ErrInvalidToken))
}

func (suite *TokenServiceTestSuite) TestRefresh_DeletedAccount() {
	session := suite.issue(models.RoleHospital)
	suite.userRepo.On("GetByID", suite.ctx, suite.userID).Return(nil, nil).Once()

	_, err := suite.service.Refresh(suite.ctx, session.RefreshToken)
	assert.True(suite.T(), errors.Is(err, common.ErrInvalidToken))
}

func (suite *TokenServiceTestSuite) TestRefresh_AccessTokenRejected() {
	session := suite.issue(models.RoleHospital)

	_, err := suite.service.Refresh(suite.ctx, session.AccessToken)
	assert.True(suite.T(), errors.Is(err, common.ErrInvalidToken))
}
