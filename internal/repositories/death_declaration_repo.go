package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"civreg/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type DeathDeclarationRepository interface {
	Create(ctx context.Context, d *models.DeathDeclaration) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DeathDeclaration, error)
	Update(ctx context.Context, d *models.DeathDeclaration) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*models.DeathDeclaration, error)
	ListAll(ctx context.Context) ([]*models.DeathDeclaration, error)
	Count(ctx context.Context) (int, error)
	CountByHospital(ctx context.Context, hospitalID uuid.UUID) (int, error)
	CountPerHospital(ctx context.Context) ([]models.HospitalCount, error)
}

const deathColumns = `id, father, mother, cause_of_death, submitting_hospital_id, hospital_name, hospital_email, created_at, updated_at`

type deathDeclarationRepo struct {
	db DBTX
}

func NewDeathDeclarationRepo(db DBTX) DeathDeclarationRepository {
	return &deathDeclarationRepo{db: db}
}

func marshalParent(p *models.Parent) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

func unmarshalParent(raw []byte) (*models.Parent, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	p := &models.Parent{}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, err
	}
	return p, nil
}

func scanDeath(row rowScanner) (*models.DeathDeclaration, error) {
	d := &models.DeathDeclaration{}
	var father, mother []byte
	err := row.Scan(&d.ID, &father, &mother, &d.CauseOfDeath, &d.SubmittingHospitalID, &d.HospitalName, &d.HospitalEmail, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if d.Father, err = unmarshalParent(father); err != nil {
		return nil, fmt.Errorf("failed to decode father: %w", err)
	}
	if d.Mother, err = unmarshalParent(mother); err != nil {
		return nil, fmt.Errorf("failed to decode mother: %w", err)
	}
	return d, nil
}

func (r *deathDeclarationRepo) Create(ctx context.Context, d *models.DeathDeclaration) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	father, err := marshalParent(d.Father)
	if err != nil {
		return fmt.Errorf("failed to marshal father: %w", err)
	}
	mother, err := marshalParent(d.Mother)
	if err != nil {
		return fmt.Errorf("failed to marshal mother: %w", err)
	}

	query := `
		INSERT INTO death_declarations (` + deathColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.Exec(ctx, query, d.ID, father, mother, d.CauseOfDeath, d.SubmittingHospitalID, d.HospitalName, d.HospitalEmail, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create death declaration: %w", err)
	}
	return nil
}

func (r *deathDeclarationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.DeathDeclaration, error) {
	query := `SELECT ` + deathColumns + ` FROM death_declarations WHERE id = $1`
	d, err := scanDeath(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get death declaration: %w", err)
	}
	return d, nil
}

func (r *deathDeclarationRepo) Update(ctx context.Context, d *models.DeathDeclaration) error {
	d.UpdatedAt = time.Now().UTC()

	father, err := marshalParent(d.Father)
	if err != nil {
		return fmt.Errorf("failed to marshal father: %w", err)
	}
	mother, err := marshalParent(d.Mother)
	if err != nil {
		return fmt.Errorf("failed to marshal mother: %w", err)
	}

	query := `
		UPDATE death_declarations
		SET father = $1, mother = $2, cause_of_death = $3, updated_at = $4
		WHERE id = $5
	`
	if _, err := r.db.Exec(ctx, query, father, mother, d.CauseOfDeath, d.UpdatedAt, d.ID); err != nil {
		return fmt.Errorf("failed to update death declaration: %w", err)
	}
	return nil
}

func (r *deathDeclarationRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM death_declarations WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete death declaration: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *deathDeclarationRepo) list(ctx context.Context, query string, args ...any) ([]*models.DeathDeclaration, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list death declarations: %w", err)
	}
	defer rows.Close()

	declarations := []*models.DeathDeclaration{}
	for rows.Next() {
		d, err := scanDeath(rows)
		if err != nil {
			return nil, err
		}
		declarations = append(declarations, d)
	}
	return declarations, rows.Err()
}

func (r *deathDeclarationRepo) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*models.DeathDeclaration, error) {
	query := `SELECT ` + deathColumns + ` FROM death_declarations WHERE submitting_hospital_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, hospitalID)
}

func (r *deathDeclarationRepo) ListAll(ctx context.Context) ([]*models.DeathDeclaration, error) {
	query := `SELECT ` + deathColumns + ` FROM death_declarations ORDER BY created_at DESC`
	return r.list(ctx, query)
}

func (r *deathDeclarationRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM death_declarations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count death declarations: %w", err)
	}
	return count, nil
}

func (r *deathDeclarationRepo) CountByHospital(ctx context.Context, hospitalID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM death_declarations WHERE submitting_hospital_id = $1`
	if err := r.db.QueryRow(ctx, query, hospitalID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count death declarations: %w", err)
	}
	return count, nil
}

func (r *deathDeclarationRepo) CountPerHospital(ctx context.Context) ([]models.HospitalCount, error) {
	query := `
		SELECT submitting_hospital_id, MAX(hospital_name), COUNT(*)
		FROM death_declarations
		GROUP BY submitting_hospital_id
	`
	return hospitalCounts(ctx, r.db, query)
}
