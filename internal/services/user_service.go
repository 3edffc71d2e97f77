package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"civreg/internal/common"
	"civreg/internal/models"
	"civreg/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RegisterUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required"`
}

// UpdateUserRequest only changes the fields that are set.
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

// UserService manages accounts on behalf of administrators.
type UserService interface {
	Register(ctx context.Context, actor models.Identity, req *RegisterUserRequest) (*models.User, error)
	ListUsers(ctx context.Context, actor models.Identity, roleFilter string) ([]*models.User, error)
	UpdateUser(ctx context.Context, actor models.Identity, id uuid.UUID, req *UpdateUserRequest) (*models.User, error)
	DeleteUser(ctx context.Context, actor models.Identity, id uuid.UUID) error
	BootstrapSuperAdmin(ctx context.Context, email, password string) (bool, error)
}

type userService struct {
	userRepo repositories.UserRepository
	audit    AuditRecorder
	logger   *zap.Logger
}

func NewUserService(userRepo repositories.UserRepository, audit AuditRecorder, logger *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		audit:    audit,
		logger:   logger,
	}
}

var errEmailInUse = common.Validation("Email already in use")

func validateEmail(email string) error {
	if email == "" {
		return common.Validation("Email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return common.Validation("Email is not valid")
	}
	return nil
}

func (s *userService) ensureEmailFree(ctx context.Context, email string, self uuid.UUID) error {
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return common.Persistence(err)
	}
	if existing != nil && existing.ID != self {
		return errEmailInUse
	}
	return nil
}

// saveError maps a lost race on the email index to the same error
// ensureEmailFree returns.
func saveError(err error) error {
	if repositories.IsUniqueViolation(err) {
		return errEmailInUse
	}
	return common.Persistence(err)
}

func (s *userService) Register(ctx context.Context, actor models.Identity, req *RegisterUserRequest) (*models.User, error) {
	if err := Authorize(actor.Role, OpManageUsers); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, common.Validation("Name is required")
	}
	email := normalizeEmail(req.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		return nil, common.Validation(fmt.Sprintf("Invalid role %q", req.Role))
	}
	if !CanManageTarget(actor.Role, role) {
		return nil, common.Forbidden("Admins can only create hospital or municipality accounts")
	}
	if err := ValidatePasswordStrength(req.Password); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, email, uuid.Nil); err != nil {
		return nil, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		ID:           uuid.New(),
		DisplayName:  name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, saveError(err)
	}

	s.audit.Record(ctx, models.EntityUser, user.ID.String(), models.ActionCreate, &actor.UserID, models.JSONB{"role": string(role)})
	return user, nil
}

// ListUsers scopes the listing to what the caller may see: superadmins see every
// account, admins see hospitals and municipalities, hospitals see municipalities.
func (s *userService) ListUsers(ctx context.Context, actor models.Identity, roleFilter string) ([]*models.User, error) {
	if err := Authorize(actor.Role, OpListUsers); err != nil {
		return nil, err
	}

	var requested models.Role
	if strings.TrimSpace(roleFilter) != "" {
		role, ok := models.ParseRole(roleFilter)
		if !ok {
			return nil, common.Validation(fmt.Sprintf("Invalid role %q", roleFilter))
		}
		requested = role
	}

	var filter models.UserFilter
	switch actor.Role {
	case models.RoleSuperAdmin:
		if requested != "" {
			filter.Roles = []models.Role{requested}
		}
	case models.RoleAdmin:
		switch {
		case requested == "":
			filter.Roles = []models.Role{models.RoleHospital, models.RoleMunicipality}
		case requested.IsStaff():
			filter.Roles = []models.Role{requested}
		default:
			return nil, common.Forbidden("Admins can only list hospital and municipality accounts")
		}
	case models.RoleHospital:
		if requested != "" && requested != models.RoleMunicipality {
			return nil, common.Forbidden("Hospitals can only list municipalities")
		}
		filter.Roles = []models.Role{models.RoleMunicipality}
	}

	users, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, common.Persistence(err)
	}
	if users == nil {
		users = []*models.User{}
	}
	return users, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor models.Identity, id uuid.UUID, req *UpdateUserRequest) (*models.User, error) {
	if err := Authorize(actor.Role, OpManageUsers); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, common.Persistence(err)
	}
	if user == nil {
		return nil, common.NotFound("User")
	}
	if !CanManageTarget(actor.Role, user.Role) {
		return nil, common.Forbidden("Admins can only modify hospital or municipality accounts")
	}

	changes := models.JSONB{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, common.Validation("Name cannot be empty")
		}
		user.DisplayName = name
		changes["name"] = name
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		if err := s.ensureEmailFree(ctx, email, user.ID); err != nil {
			return nil, err
		}
		user.Email = email
		changes["email"] = email
	}
	if req.Role != nil {
		role, ok := models.ParseRole(*req.Role)
		if !ok {
			return nil, common.Validation(fmt.Sprintf("Invalid role %q", *req.Role))
		}
		if !CanManageTarget(actor.Role, role) {
			return nil, common.Forbidden("Admins cannot assign admin roles")
		}
		user.Role = role
		changes["role"] = string(role)
	}
	if req.Password != nil {
		if err := ValidatePasswordStrength(*req.Password); err != nil {
			return nil, err
		}
		hash, err := hashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
		changes["password"] = "changed"
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, saveError(err)
	}

	s.audit.Record(ctx, models.EntityUser, user.ID.String(), models.ActionUpdate, &actor.UserID, changes)
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, actor models.Identity, id uuid.UUID) error {
	if err := Authorize(actor.Role, OpManageUsers); err != nil {
		return err
	}
	if id == actor.UserID {
		return common.Validation("You cannot delete your own account")
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return common.Persistence(err)
	}
	if user == nil {
		return common.NotFound("User")
	}
	if !CanManageTarget(actor.Role, user.Role) {
		return common.Forbidden("Admins can only delete hospital or municipality accounts")
	}

	deleted, err := s.userRepo.Delete(ctx, id)
	if err != nil {
		return common.Persistence(err)
	}
	if !deleted {
		return common.NotFound("User")
	}

	s.audit.Record(ctx, models.EntityUser, id.String(), models.ActionDelete, &actor.UserID, models.JSONB{"role": string(user.Role), "email": user.Email})
	return nil
}

// BootstrapSuperAdmin creates the first superadmin when none exists. It reports
// whether an account was created.
func (s *userService) BootstrapSuperAdmin(ctx context.Context, email, password string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return false, nil
	}

	exists, err := s.userRepo.ExistsByRole(ctx, models.RoleSuperAdmin)
	if err != nil {
		return false, common.Persistence(err)
	}
	if exists {
		return false, nil
	}

	if err := validateEmail(email); err != nil {
		return false, err
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return false, err
	}
	if err := s.ensureEmailFree(ctx, email, uuid.Nil); err != nil {
		return false, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return false, err
	}
	user := &models.User{
		ID:           uuid.New(),
		DisplayName:  "Super Admin",
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return false, saveError(err)
	}

	s.logger.Info("superadmin account created", zap.String("email", email))
	return true, nil
}
