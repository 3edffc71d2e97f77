package testhelpers

import (
	"context"
	"testing"
	"time"

	"civreg/internal/models"
	"civreg/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBirth(hospital, municipality *models.User) *models.BirthDeclaration {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.BirthDeclaration{
		ID:                        uuid.New(),
		ChildGivenName:            "Alice",
		ChildFamilyName:           "Martin",
		Sex:                       models.SexFemale,
		BirthDate:                 time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		BirthPlace:                "Lyon",
		BirthTime:                 "08:30",
		Father:                    models.Parent{GivenName: "Paul", FamilyName: "Martin", Email: "paul@example.com"},
		Mother:                    models.Parent{GivenName: "Anne", FamilyName: "Martin"},
		DestinationMunicipalityID: municipality.ID,
		SubmittingHospitalID:      hospital.ID,
		HospitalName:              hospital.DisplayName,
		HospitalEmail:             hospital.Email,
		ValidationStatus:          models.StatusPending,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
}

func TestBirthDeclarationRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup()

	ctx := context.Background()
	hospital := SetupTestUser(t, testDB, models.RoleHospital, "CHU Lyon")
	municipality := SetupTestUser(t, testDB, models.RoleMunicipality, "Mairie de Lyon")
	repo := repositories.NewBirthDeclarationRepo(testDB.Pool)

	birth := newBirth(hospital, municipality)
	require.NoError(t, repo.Create(ctx, birth))

	t.Run("GetByID", func(t *testing.T) {
		got, err := repo.GetByID(ctx, birth.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Alice", got.ChildGivenName)
		assert.Equal(t, "paul@example.com", got.ParentEmail())
		assert.Equal(t, models.StatusPending, got.ValidationStatus)
	})

	t.Run("GetByID missing", func(t *testing.T) {
		got, err := repo.GetByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("SetValidation keeps comment when nil", func(t *testing.T) {
		decidedAt := time.Now().UTC()
		ok, err := repo.SetValidation(ctx, birth.ID, models.StatusRejected, stringPtr("incomplete"), decidedAt)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = repo.SetValidation(ctx, birth.ID, models.StatusValidated, nil, decidedAt.Add(time.Minute))
		require.NoError(t, err)
		require.True(t, ok)

		got, err := repo.GetByID(ctx, birth.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusValidated, got.ValidationStatus)
		require.NotNil(t, got.ValidationComment)
		assert.Equal(t, "incomplete", *got.ValidationComment)
		require.NotNil(t, got.ValidationDate)
	})

	t.Run("Counts", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, newBirth(hospital, municipality)))

		total, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, total)

		byStatus, err := repo.CountByMunicipalityStatus(ctx, municipality.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, byStatus[models.StatusValidated])
		assert.Equal(t, 1, byStatus[models.StatusPending])

		perHospital, err := repo.CountPerHospital(ctx)
		require.NoError(t, err)
		require.Len(t, perHospital, 1)
		assert.Equal(t, hospital.ID, perHospital[0].HospitalID)
		assert.Equal(t, 2, perHospital[0].Count)
	})

	t.Run("Delete", func(t *testing.T) {
		deleted, err := repo.Delete(ctx, birth.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, birth.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestUserRepository_MunicipalityLookup(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup()

	ctx := context.Background()
	municipality := SetupTestUser(t, testDB, models.RoleMunicipality, "Mairie de Lyon")
	SetupTestUser(t, testDB, models.RoleHospital, "Mairie de Lyon")
	repo := repositories.NewUserRepo(testDB.Pool)

	got, err := repo.FindMunicipalityByName(ctx, "Mairie de Lyon")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, municipality.ID, got.ID)

	got, err = repo.FindMunicipalityByName(ctx, "Mairie de Paris")
	require.NoError(t, err)
	assert.Nil(t, got)
}
