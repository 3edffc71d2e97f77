package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"civreg/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepository is the identity store. Lookups return (nil, nil) when no row matches.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	FindMunicipalityByName(ctx context.Context, name string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsByRole(ctx context.Context, role models.Role) (bool, error)

	// RotateRefreshToken replaces the single stored refresh token; nil clears it.
	RotateRefreshToken(ctx context.Context, id uuid.UUID, token *string) error

	SetResetToken(ctx context.Context, id uuid.UUID, token string, expiry time.Time) error
	GetByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error)
	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

const userColumns = `id, display_name, email, password_hash, role, reset_token, reset_token_expiry, refresh_token, created_at, updated_at`

type userRepo struct {
	db DBTX
}

func NewUserRepo(db DBTX) UserRepository {
	return &userRepo{db: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.Role,
		&user.ResetToken, &user.ResetTokenExpiry, &user.RefreshToken, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, display_name, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query, user.ID, user.DisplayName, user.Email, user.PasswordHash, user.Role, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *userRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error) {
	users := make(map[uuid.UUID]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1)`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users[user.ID] = user
	}
	return users, rows.Err()
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return r.getOne(ctx, query, email)
}

// FindMunicipalityByName resolves a municipality account from its display name.
func (r *userRepo) FindMunicipalityByName(ctx context.Context, name string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 AND display_name = $2 ORDER BY created_at LIMIT 1`
	return r.getOne(ctx, query, models.RoleMunicipality, name)
}

func (r *userRepo) List(ctx context.Context, filter models.UserFilter) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if len(filter.Roles) > 0 {
		roles := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			roles[i] = string(role)
		}
		query += ` WHERE role = ANY($1)`
		args = append(args, roles)
	}
	query += ` ORDER BY display_name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE users
		SET display_name = $1, email = $2, password_hash = $3, role = $4, updated_at = $5
		WHERE id = $6
	`
	_, err := r.db.Exec(ctx, query, user.DisplayName, user.Email, user.PasswordHash, user.Role, user.UpdatedAt, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *userRepo) ExistsByRole(ctx context.Context, role models.Role) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE role = $1)`, role).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check role existence: %w", err)
	}
	return exists, nil
}

func (r *userRepo) RotateRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	query := `UPDATE users SET refresh_token = $1, updated_at = NOW() WHERE id = $2`
	if _, err := r.db.Exec(ctx, query, token, id); err != nil {
		return fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	return nil
}

func (r *userRepo) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiry time.Time) error {
	query := `UPDATE users SET reset_token = $1, reset_token_expiry = $2, updated_at = NOW() WHERE id = $3`
	if _, err := r.db.Exec(ctx, query, token, expiry, id); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

// GetByResetToken only matches tokens that have not expired at now.
func (r *userRepo) GetByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_token = $1 AND reset_token_expiry > $2`
	return r.getOne(ctx, query, token, now)
}

// ResetPassword stores a new hash and clears the reset token in one statement.
func (r *userRepo) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $1, reset_token = NULL, reset_token_expiry = NULL, updated_at = NOW()
		WHERE id = $2
	`
	if _, err := r.db.Exec(ctx, query, passwordHash, id); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	return nil
}

func (r *userRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE users SET reset_token = NULL, reset_token_expiry = NULL WHERE reset_token_expiry <= $1`
	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired reset tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
