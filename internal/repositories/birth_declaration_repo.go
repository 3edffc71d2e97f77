package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"civreg/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type BirthDeclarationRepository interface {
	Create(ctx context.Context, d *models.BirthDeclaration) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BirthDeclaration, error)
	Update(ctx context.Context, d *models.BirthDeclaration) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// SetValidation records a decision; a nil comment keeps the stored one.
	SetValidation(ctx context.Context, id uuid.UUID, status models.ValidationStatus, comment *string, decidedAt time.Time) (bool, error)

	ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*models.BirthDeclaration, error)
	ListByMunicipality(ctx context.Context, municipalityID uuid.UUID) ([]*models.BirthDeclaration, error)
	ListAll(ctx context.Context) ([]*models.BirthDeclaration, error)

	Count(ctx context.Context) (int, error)
	CountByHospital(ctx context.Context, hospitalID uuid.UUID) (int, error)
	CountByStatus(ctx context.Context) (map[models.ValidationStatus]int, error)
	CountByMunicipalityStatus(ctx context.Context, municipalityID uuid.UUID) (map[models.ValidationStatus]int, error)
	CountPerHospital(ctx context.Context) ([]models.HospitalCount, error)
}

const birthColumns = `id, child_given_name, child_family_name, sex, birth_date, birth_place, birth_time,
	father, mother, destination_municipality_id, submitting_hospital_id, hospital_name, hospital_email,
	validation_status, validation_comment, validation_date, created_at, updated_at`

type birthDeclarationRepo struct {
	db DBTX
}

func NewBirthDeclarationRepo(db DBTX) BirthDeclarationRepository {
	return &birthDeclarationRepo{db: db}
}

func scanBirth(row rowScanner) (*models.BirthDeclaration, error) {
	d := &models.BirthDeclaration{}
	var father, mother []byte
	var status sql.NullString
	err := row.Scan(&d.ID, &d.ChildGivenName, &d.ChildFamilyName, &d.Sex, &d.BirthDate, &d.BirthPlace, &d.BirthTime,
		&father, &mother, &d.DestinationMunicipalityID, &d.SubmittingHospitalID, &d.HospitalName, &d.HospitalEmail,
		&status, &d.ValidationComment, &d.ValidationDate, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(father, &d.Father); err != nil {
		return nil, fmt.Errorf("failed to decode father: %w", err)
	}
	if err := json.Unmarshal(mother, &d.Mother); err != nil {
		return nil, fmt.Errorf("failed to decode mother: %w", err)
	}
	d.ValidationStatus = models.ValidationStatus(status.String).Normalize()
	return d, nil
}

func (r *birthDeclarationRepo) list(ctx context.Context, query string, args ...any) ([]*models.BirthDeclaration, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list birth declarations: %w", err)
	}
	defer rows.Close()

	declarations := []*models.BirthDeclaration{}
	for rows.Next() {
		d, err := scanBirth(rows)
		if err != nil {
			return nil, err
		}
		declarations = append(declarations, d)
	}
	return declarations, rows.Err()
}

func (r *birthDeclarationRepo) Create(ctx context.Context, d *models.BirthDeclaration) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	if d.ValidationStatus == "" {
		d.ValidationStatus = models.StatusPending
	}

	father, err := json.Marshal(d.Father)
	if err != nil {
		return fmt.Errorf("failed to marshal father: %w", err)
	}
	mother, err := json.Marshal(d.Mother)
	if err != nil {
		return fmt.Errorf("failed to marshal mother: %w", err)
	}

	query := `
		INSERT INTO birth_declarations (` + birthColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err = r.db.Exec(ctx, query, d.ID, d.ChildGivenName, d.ChildFamilyName, d.Sex, d.BirthDate, d.BirthPlace, d.BirthTime,
		father, mother, d.DestinationMunicipalityID, d.SubmittingHospitalID, d.HospitalName, d.HospitalEmail,
		d.ValidationStatus, d.ValidationComment, d.ValidationDate, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create birth declaration: %w", err)
	}
	return nil
}

func (r *birthDeclarationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.BirthDeclaration, error) {
	query := `SELECT ` + birthColumns + ` FROM birth_declarations WHERE id = $1`
	d, err := scanBirth(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get birth declaration: %w", err)
	}
	return d, nil
}

// Update overwrites every mutable field. Submitting hospital and the denormalised
// hospital name/email are never touched.
func (r *birthDeclarationRepo) Update(ctx context.Context, d *models.BirthDeclaration) error {
	d.UpdatedAt = time.Now().UTC()

	father, err := json.Marshal(d.Father)
	if err != nil {
		return fmt.Errorf("failed to marshal father: %w", err)
	}
	mother, err := json.Marshal(d.Mother)
	if err != nil {
		return fmt.Errorf("failed to marshal mother: %w", err)
	}

	query := `
		UPDATE birth_declarations
		SET child_given_name = $1, child_family_name = $2, sex = $3, birth_date = $4, birth_place = $5,
			birth_time = $6, father = $7, mother = $8, destination_municipality_id = $9,
			validation_status = $10, validation_comment = $11, validation_date = $12, updated_at = $13
		WHERE id = $14
	`
	_, err = r.db.Exec(ctx, query, d.ChildGivenName, d.ChildFamilyName, d.Sex, d.BirthDate, d.BirthPlace,
		d.BirthTime, father, mother, d.DestinationMunicipalityID,
		d.ValidationStatus, d.ValidationComment, d.ValidationDate, d.UpdatedAt, d.ID)
	if err != nil {
		return fmt.Errorf("failed to update birth declaration: %w", err)
	}
	return nil
}

func (r *birthDeclarationRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM birth_declarations WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete birth declaration: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *birthDeclarationRepo) SetValidation(ctx context.Context, id uuid.UUID, status models.ValidationStatus, comment *string, decidedAt time.Time) (bool, error) {
	query := `
		UPDATE birth_declarations
		SET validation_status = $1, validation_comment = COALESCE($2, validation_comment),
			validation_date = $3, updated_at = $3
		WHERE id = $4
	`
	tag, err := r.db.Exec(ctx, query, status, comment, decidedAt, id)
	if err != nil {
		return false, fmt.Errorf("failed to record validation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *birthDeclarationRepo) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*models.BirthDeclaration, error) {
	query := `SELECT ` + birthColumns + ` FROM birth_declarations WHERE submitting_hospital_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, hospitalID)
}

func (r *birthDeclarationRepo) ListByMunicipality(ctx context.Context, municipalityID uuid.UUID) ([]*models.BirthDeclaration, error) {
	query := `SELECT ` + birthColumns + ` FROM birth_declarations WHERE destination_municipality_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, municipalityID)
}

func (r *birthDeclarationRepo) ListAll(ctx context.Context) ([]*models.BirthDeclaration, error) {
	query := `SELECT ` + birthColumns + ` FROM birth_declarations ORDER BY created_at DESC`
	return r.list(ctx, query)
}

func (r *birthDeclarationRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM birth_declarations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count birth declarations: %w", err)
	}
	return count, nil
}

func (r *birthDeclarationRepo) CountByHospital(ctx context.Context, hospitalID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM birth_declarations WHERE submitting_hospital_id = $1`
	if err := r.db.QueryRow(ctx, query, hospitalID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count birth declarations: %w", err)
	}
	return count, nil
}

// CountByStatus groups by the raw stored status; NULL comes back as the empty status.
func (r *birthDeclarationRepo) CountByStatus(ctx context.Context) (map[models.ValidationStatus]int, error) {
	query := `SELECT COALESCE(validation_status, ''), COUNT(*) FROM birth_declarations GROUP BY 1`
	return r.statusCounts(ctx, query)
}

func (r *birthDeclarationRepo) CountByMunicipalityStatus(ctx context.Context, municipalityID uuid.UUID) (map[models.ValidationStatus]int, error) {
	query := `
		SELECT COALESCE(validation_status, ''), COUNT(*)
		FROM birth_declarations
		WHERE destination_municipality_id = $1
		GROUP BY 1
	`
	return r.statusCounts(ctx, query, municipalityID)
}

func (r *birthDeclarationRepo) statusCounts(ctx context.Context, query string, args ...any) (map[models.ValidationStatus]int, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ValidationStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[models.ValidationStatus(status)] += count
	}
	return counts, rows.Err()
}

func (r *birthDeclarationRepo) CountPerHospital(ctx context.Context) ([]models.HospitalCount, error) {
	query := `
		SELECT submitting_hospital_id, MAX(hospital_name), COUNT(*)
		FROM birth_declarations
		GROUP BY submitting_hospital_id
	`
	return hospitalCounts(ctx, r.db, query)
}

func hospitalCounts(ctx context.Context, db DBTX, query string) ([]models.HospitalCount, error) {
	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count per hospital: %w", err)
	}
	defer rows.Close()

	var counts []models.HospitalCount
	for rows.Next() {
		var c models.HospitalCount
		if err := rows.Scan(&c.HospitalID, &c.HospitalName, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
