package services

import (
	"context"
	"sync"
	"time"

	"civreg/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindMunicipalityByName(ctx context.Context, name string) (*models.User, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, filter models.UserFilter) ([]*models.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ExistsByRole(ctx context.Context, role models.Role) (bool, error) {
	args := m.Called(ctx, role)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) RotateRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

func (m *MockUserRepository) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiry time.Time) error {
	args := m.Called(ctx, id, token, expiry)
	return args.Error(0)
}

func (m *MockUserRepository) GetByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	args := m.Called(ctx, token, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUserRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockBirthDeclarationRepository struct {
	mock.Mock
}

func (m *MockBirthDeclarationRepository) Create(ctx context.Context, d *models.BirthDeclaration) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockBirthDeclarationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BirthDeclaration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BirthDeclaration), args.Error(1)
}

func (m *MockBirthDeclarationRepository) Update(ctx context.Context, d *models.BirthDeclaration) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockBirthDeclarationRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockBirthDeclarationRepository) SetValidation(ctx context.Context, id uuid.UUID, status models.ValidationStatus, comment *string, decidedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, status, comment, decidedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockBirthDeclarationRepository) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*models.BirthDeclaration, error) {
	args := m.Called(ctx, hospitalID)
	return args.Get(0).([]*models.BirthDeclaration), args.Error(1)
}

func (m *MockBirthDeclarationRepository) ListByMunicipality(ctx context.Context, municipalityID uuid.UUID) ([]*models.BirthDeclaration, error) {
	args := m.Called(ctx, municipalityID)
	return args.Get(0).([]*models.BirthDeclaration), args.Error(1)
}

func (m *MockBirthDeclarationRepository) ListAll(ctx context.Context) ([]*models.BirthDeclaration, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.BirthDeclaration), args.Error(1)
}

func (m *MockBirthDeclarationRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockBirthDeclarationRepository) CountByHospital(ctx context.Context, hospitalID uuid.UUID) (int, error) {
	args := m.Called(ctx, hospitalID)
	return args.Int(0), args.Error(1)
}

func (m *MockBirthDeclarationRepository) CountByStatus(ctx context.Context) (map[models.ValidationStatus]int, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[models.ValidationStatus]int), args.Error(1)
}

func (m *MockBirthDeclarationRepository) CountByMunicipalityStatus(ctx context.Context, municipalityID uuid.UUID) (map[models.ValidationStatus]int, error) {
	args := m.Called(ctx, municipalityID)
	return args.Get(0).(map[models.ValidationStatus]int), args.Error(1)
}

func (m *MockBirthDeclarationRepository) CountPerHospital(ctx context.Context) ([]models.HospitalCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.HospitalCount), args.Error(1)
}

type MockDeathDeclarationRepository struct {
	mock.Mock
}

func (m *MockDeathDeclarationRepository) Create(ctx context.Context, d *models.DeathDeclaration) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDeathDeclarationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DeathDeclaration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DeathDeclaration), args.Error(1)
}

func (m *MockDeathDeclarationRepository) Update(ctx context.Context, d *models.DeathDeclaration) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDeathDeclarationRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockDeathDeclarationRepository) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*models.DeathDeclaration, error) {
	args := m.Called(ctx, hospitalID)
	return args.Get(0).([]*models.DeathDeclaration), args.Error(1)
}

func (m *MockDeathDeclarationRepository) ListAll(ctx context.Context) ([]*models.DeathDeclaration, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.DeathDeclaration), args.Error(1)
}

func (m *MockDeathDeclarationRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockDeathDeclarationRepository) CountByHospital(ctx context.Context, hospitalID uuid.UUID) (int, error) {
	args := m.Called(ctx, hospitalID)
	return args.Int(0), args.Error(1)
}

func (m *MockDeathDeclarationRepository) CountPerHospital(ctx context.Context) ([]models.HospitalCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.HospitalCount), args.Error(1)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

type MockAuditLogsRepository struct {
	mock.Mock
}

func (m *MockAuditLogsRepository) Create(ctx context.Context, auditLog *models.AuditLog) error {
	args := m.Called(ctx, auditLog)
	return args.Error(0)
}

func (m *MockAuditLogsRepository) List(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.AuditLog), args.Error(1)
}

// recordingAudit captures audit entries without a repository.
type recordingAudit struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (r *recordingAudit) Record(_ context.Context, entity, recordID, action string, actorID *uuid.UUID, data models.JSONB) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, &models.AuditLog{Entity: entity, RecordID: recordID, Action: action, ActorID: actorID, Data: data})
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Entity + ":" + e.Action
	}
	return out
}

type MockRevocationStore struct {
	mock.Mock
}

func (m *MockRevocationStore) Add(ctx context.Context, key string, ttl time.Duration) error {
	args := m.Called(ctx, key, ttl)
	return args.Error(0)
}

func (m *MockRevocationStore) Contains(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockRevocationStore) Close() error {
	return nil
}
