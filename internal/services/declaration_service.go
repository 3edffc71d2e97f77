package services

import (
	"context"
	"strings"
	"time"

	"civreg/internal/common"
	"civreg/internal/metrics"
	"civreg/internal/models"
	"civreg/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type DeathDeclarationRequest struct {
	Father       *models.Parent `json:"father"`
	Mother       *models.Parent `json:"mother"`
	CauseOfDeath string         `json:"causeOfDeath"`
}

// UpdateBirthRequest changes only the fields that are set. The validation
// fields are reserved to administrators.
type UpdateBirthRequest struct {
	ChildGivenName          *string        `json:"childGivenName"`
	ChildFamilyName         *string        `json:"childFamilyName"`
	Sex                     *string        `json:"sex"`
	BirthDate               *string        `json:"birthDate"`
	BirthPlace              *string        `json:"birthPlace"`
	BirthTime               *string        `json:"birthTime"`
	Father                  *models.Parent `json:"father"`
	Mother                  *models.Parent `json:"mother"`
	DestinationMunicipality *string        `json:"destinationMunicipality"`
	ValidationStatus        *string        `json:"validationStatus"`
	ValidationComment       *string        `json:"validationComment"`
}

type UpdateDeathRequest struct {
	Father       *models.Parent `json:"father"`
	Mother       *models.Parent `json:"mother"`
	CauseOfDeath *string        `json:"causeOfDeath"`
}

// DeclarationService covers declaration CRUD and listings. Birth submission and
// decisions live in ValidationService.
type DeclarationService interface {
	CreateDeath(ctx context.Context, caller models.Identity, req *DeathDeclarationRequest) (*models.DeathDeclaration, error)

	ListOwnBirths(ctx context.Context, caller models.Identity) ([]*models.BirthDeclarationView, error)
	ListOwnDeaths(ctx context.Context, caller models.Identity) ([]*models.DeathDeclarationView, error)
	ListOwn(ctx context.Context, caller models.Identity) (*models.DeclarationBundle, error)
	ListAddressedBirths(ctx context.Context, caller models.Identity) ([]*models.BirthDeclarationView, error)
	ListAll(ctx context.Context, caller models.Identity) (*models.DeclarationBundle, error)

	GetBirth(ctx context.Context, caller models.Identity, id uuid.UUID) (*models.BirthDeclarationView, error)
	GetDeath(ctx context.Context, caller models.Identity, id uuid.UUID) (*models.DeathDeclarationView, error)
	UpdateBirth(ctx context.Context, caller models.Identity, id uuid.UUID, req *UpdateBirthRequest) (*models.BirthDeclaration, error)
	UpdateDeath(ctx context.Context, caller models.Identity, id uuid.UUID, req *UpdateDeathRequest) (*models.DeathDeclaration, error)
	DeleteBirth(ctx context.Context, caller models.Identity, id uuid.UUID) error
	DeleteDeath(ctx context.Context, caller models.Identity, id uuid.UUID) error
}

type declarationService struct {
	userRepo  repositories.UserRepository
	birthRepo repositories.BirthDeclarationRepository
	deathRepo repositories.DeathDeclarationRepository
	notifier  NotificationService
	audit     AuditRecorder
	logger    *zap.Logger
	now       func() time.Time
}

func NewDeclarationService(
	userRepo repositories.UserRepository,
	birthRepo repositories.BirthDeclarationRepository,
	deathRepo repositories.DeathDeclarationRepository,
	notifier NotificationService,
	audit AuditRecorder,
	logger *zap.Logger,
) DeclarationService {
	return &declarationService{
		userRepo:  userRepo,
		birthRepo: birthRepo,
		deathRepo: deathRepo,
		notifier:  notifier,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
	}
}

func isAdmin(role models.Role) bool {
	return role == models.RoleAdmin || role == models.RoleSuperAdmin
}

func (s *declarationService) CreateDeath(ctx context.Context, caller models.Identity, req *DeathDeclarationRequest) (*models.DeathDeclaration, error) {
	if err := Authorize(caller.Role, OpCreateDeath); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.CauseOfDeath) == "" {
		return nil, common.Validation("causeOfDeath is required")
	}

	hospital, err := s.userRepo.GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, common.Persistence(err)
	}
	if hospital == nil {
		return nil, common.NotFound("Hospital account")
	}

	now := time.Now().UTC()
	declaration := &models.DeathDeclaration{
		ID:                   uuid.New(),
		Father:               req.Father,
		Mother:               req.Mother,
		CauseOfDeath:         strings.TrimSpace(req.CauseOfDeath),
		SubmittingHospitalID: hospital.ID,
		HospitalName:         hospital.DisplayName,
		HospitalEmail:        hospital.Email,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.deathRepo.Create(ctx, declaration); err != nil {
		return nil, common.Persistence(err)
	}
	metrics.DeclarationsSubmitted.WithLabelValues("death").Inc()

	s.audit.Record(ctx, models.EntityDeathDeclaration, declaration.ID.String(), models.ActionCreate, &caller.UserID, nil)
	s.notifier.Notify(ctx, declaration.ParentEmail(),
		"Pré-déclaration de décès enregistrée",
		"Votre déclaration a bien été reçue. Référence : "+declaration.ID.String())

	return declaration, nil
}

// resolveUsers loads every referenced account in one query. Dangling references
// are simply absent from the result.
func (s *declarationService) resolveUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]*models.User{}, nil
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	users, err := s.userRepo.GetByIDs(ctx, unique)
	if err != nil {
		return nil, common.Persistence(err)
	}
	if users == nil {
		users = map[uuid.UUID]*models.User{}
	}
	return users, nil
}

func birthViews(births []*models.BirthDeclaration, users map[uuid.UUID]*models.User, withMunicipality, withHospital bool) []*models.BirthDeclarationView {
	views := make([]*models.BirthDeclarationView, 0, len(births))
	for _, b := range births {
		view := &models.BirthDeclarationView{BirthDeclaration: b}
		if withMunicipality {
			view.DestinationMunicipality = users[b.DestinationMunicipalityID].Ref()
		}
		if withHospital {
			view.SubmittingHospital = users[b.SubmittingHospitalID].Ref()
		}
		views = append(views, view)
	}
	return views
}

func deathViews(deaths []*models.DeathDeclaration, users map[uuid.UUID]*models.User) []*models.DeathDeclarationView {
	views := make([]*models.DeathDeclarationView, 0, len(deaths))
	for _, d := range deaths {
		views = append(views, &models.DeathDeclarationView{
			DeathDeclaration:   d,
			SubmittingHospital: users[d.SubmittingHospitalID].Ref(),
		})
	}
	return views
}

func (s *declarationService) ListOwnBirths(ctx context.Context, caller models.Identity) ([]*models.BirthDeclarationView, error) {
	if err := Authorize(caller.Role, OpReadOwnDeclarations); err != nil {
		return nil, err
	}
	births, err := s.birthRepo.ListByHospital(ctx, caller.UserID)
	if err != nil {
		return nil, common.Persistence(err)
	}

	ids := make([]uuid.UUID, 0, len(births))
	for _, b := range births {
		ids = append(ids, b.DestinationMunicipalityID)
	}
	users, err := s.resolveUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	return birthViews(births, users, true, false), nil
}

func (s *declarationService) ListOwnDeaths(ctx context.Context, caller models.Identity) ([]*models.DeathDeclarationView, error) {
	if err := Authorize(caller.Role, OpReadOwnDeclarations); err != nil {
		return nil, err
	}
	deaths, err := s.deathRepo.ListByHospital(ctx, caller.UserID)
	if err != nil {
		return nil, common.Persistence(err)
	}
	return deathViews(deaths, nil), nil
}

func (s *declarationService) ListOwn(ctx context.Context, caller models.Identity) (*models.DeclarationBundle, error) {
	if err := Authorize(caller.Role, OpReadOwnDeclarations); err != nil {
		return nil, err
	}

	bundle := &models.DeclarationBundle{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		births, err := s.ListOwnBirths(gctx, caller)
		bundle.Births = births
		return err
	})
	g.Go(func() error {
		deaths, err := s.ListOwnDeaths(gctx, caller)
		bundle.Deaths = deaths
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bundle, nil
}

func (s *declarationService) ListAddressedBirths(ctx context.Context, caller models.Identity) ([]*models.BirthDeclarationView, error) {
	if err := Authorize(caller.Role, OpReadAddressedBirths); err != nil {
		return nil, err
	}
	births, err := s.birthRepo.ListByMunicipality(ctx, caller.UserID)
	if err != nil {
		return nil, common.Persistence(err)
	}

	ids := make([]uuid.UUID, 0, len(births))
	for _, b := range births {
		ids = append(ids, b.SubmittingHospitalID)
	}
	users, err := s.resolveUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	return birthViews(births, users, false, true), nil
}

func (s *declarationService) ListAll(ctx context.Context, caller models.Identity) (*models.DeclarationBundle, error) {
	if err := Authorize(caller.Role, OpReadAllDeclarations); err != nil {
		return nil, err
	}

	var (
		births []*models.BirthDeclaration
		deaths []*models.DeathDeclaration
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		births, err = s.birthRepo.ListAll(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		deaths, err = s.deathRepo.ListAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, common.Persistence(err)
	}

	ids := make([]uuid.UUID, 0, 2*len(births)+len(deaths))
	for _, b := range births {
		ids = append(ids, b.DestinationMunicipalityID, b.SubmittingHospitalID)
	}
	for _, d := range deaths {
		ids = append(ids, d.SubmittingHospitalID)
	}
	users, err := s.resolveUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	return &models.DeclarationBundle{
		Births: birthViews(births, users, true, true),
		Deaths: deathViews(deaths, users),
	}, nil
}

func (s *declarationService) GetBirth(ctx context.Context, caller models.Identity, id uuid.UUID) (*models.BirthDeclarationView, error) {
	declaration, err := s.birthRepo.GetByID(ctx, id)
	if err != nil {
		return nil, common.Persistence(err)
	}
	if declaration == nil {
		return nil, common.NotFound("Birth pre-declaration")
	}

	allowed := isAdmin(caller.Role) ||
		(caller.Role == models.RoleHospital && declaration.SubmittingHospitalID == caller.UserID) ||
		(caller.Role == models.RoleMunicipality && declaration.DestinationMunicipalityID == caller.UserID)
	if !allowed {
		return nil, common.Forbidden("Access denied")
	}

	users, err := s.resolveUsers(ctx, []uuid.UUID{declaration.DestinationMunicipalityID, declaration.SubmittingHospitalID})
	if err != nil {
		return nil, err
	}
	return birthViews([]*models.BirthDeclaration{declaration}, users, true, true)[0], nil
}

func (s *declarationService) GetDeath(ctx context.Context, caller models.Identity, id uuid.UUID) (*models.DeathDeclarationView, error) {
	declaration, err := s.deathRepo.GetByID(ctx, id)
	if err != nil {
		return nil, common.Persistence(err)
	}
	if declaration == nil {
		return nil, common.NotFound("Death pre-declaration")
	}
	if !isAdmin(caller.Role) && !(caller.Role == models.RoleHospital && declaration.SubmittingHospitalID == caller.UserID) {
		return nil, common.Forbidden("Access denied")
	}

	users, err := s.resolveUsers(ctx, []uuid.UUID{declaration.SubmittingHospitalID})
	if err != nil {
		return nil, err
	}
	return deathViews([]*models.DeathDeclaration{declaration}, users)[0], nil
}

// loadOwnedBirth hides declarations of other hospitals behind NotFound.
func (s *declarationService) loadOwnedBirth(ctx context.Context, caller models.Identity, id uuid.UUID) (*models.BirthDeclaration, error) {
	declaration, err := s.birthRepo.GetByID(ctx, id)
	if err != nil {
		return nil, common.Persistence(err)
	}
	if declaration == nil || (!isAdmin(caller.Role) && declaration.SubmittingHospitalID != caller.UserID) {
		return nil, common.NotFound("Birth pre-declaration")
	}
	return declaration, nil
}

func (s *declarationService) loadOwnedDeath(ctx context.Context, caller models.Identity, id uuid.UUID) (*models.DeathDeclaration, error) {
	declaration, err := s.deathRepo.GetByID(ctx, id)
	if err != nil {
		return nil, common.Persistence(err)
	}
	if declaration == nil || (!isAdmin(caller.Role) && declaration.SubmittingHospitalID != caller.UserID) {
		return nil, common.NotFound("Death pre-declaration")
	}
	return declaration, nil
}

func (s *declarationService) UpdateBirth(ctx context.Context, caller models.Identity, id uuid.UUID, req *UpdateBirthRequest) (*models.BirthDeclaration, error) {
	if err := Authorize(caller.Role, OpUpdateDeclaration); err != nil {
		return nil, err
	}
	if !isAdmin(caller.Role) && (req.ValidationStatus != nil || req.ValidationComment != nil) {
		return nil, common.Forbidden("Only the destination municipality or an administrator can change the validation status")
	}

	declaration, err := s.loadOwnedBirth(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	changed := []string{}
	if req.ChildGivenName != nil {
		declaration.ChildGivenName = strings.TrimSpace(*req.ChildGivenName)
		changed = append(changed, "childGivenName")
	}
	if req.ChildFamilyName != nil {
		declaration.ChildFamilyName = strings.TrimSpace(*req.ChildFamilyName)
		changed = append(changed, "childFamilyName")
	}
	if req.Sex != nil {
		sex, err := parseSex(*req.Sex)
		if err != nil {
			return nil, err
		}
		declaration.Sex = sex
		changed = append(changed, "sex")
	}
	if req.BirthDate != nil {
		date, err := parseDate("birthDate", *req.BirthDate)
		if err != nil {
			return nil, err
		}
		declaration.BirthDate = date
		changed = append(changed, "birthDate")
	}
	if req.BirthPlace != nil {
		declaration.BirthPlace = *req.BirthPlace
		changed = append(changed, "birthPlace")
	}
	if req.BirthTime != nil {
		declaration.BirthTime = *req.BirthTime
		changed = append(changed, "birthTime")
	}
	if req.Father != nil {
		declaration.Father = *req.Father
		changed = append(changed, "father")
	}
	if req.Mother != nil {
		declaration.Mother = *req.Mother
		changed = append(changed, "mother")
	}
	if req.DestinationMunicipality != nil {
		municipality, err := s.userRepo.FindMunicipalityByName(ctx, strings.TrimSpace(*req.DestinationMunicipality))
		if err != nil {
			return nil, common.Persistence(err)
		}
		if municipality == nil {
			return nil, common.ErrMunicipalityNotFound
		}
		declaration.DestinationMunicipalityID = municipality.ID
		changed = append(changed, "destinationMunicipality")
	}
	if req.ValidationStatus != nil {
		status := models.ValidationStatus(strings.TrimSpace(*req.ValidationStatus))
		if parsed, ok := ParseDecision(*req.ValidationStatus); ok {
			status = parsed
		} else if status != models.StatusPending {
			return nil, common.ErrInvalidDecision
		}
		declaration.ValidationStatus = status
		if status.Terminal() {
			decidedAt := s.now().UTC()
			declaration.ValidationDate = &decidedAt
		} else {
			declaration.ValidationDate = nil
		}
		changed = append(changed, "validationStatus")
	}
	if req.ValidationComment != nil {
		declaration.ValidationComment = req.ValidationComment
		changed = append(changed, "validationComment")
	}

	if err := s.birthRepo.Update(ctx, declaration); err != nil {
		return nil, common.Persistence(err)
	}
	s.audit.Record(ctx, models.EntityBirthDeclaration, id.String(), models.ActionUpdate, &caller.UserID, models.JSONB{"fields": changed})
	return declaration, nil
}

func (s *declarationService) UpdateDeath(ctx context.Context, caller models.Identity, id uuid.UUID, req *UpdateDeathRequest) (*models.DeathDeclaration, error) {
	if err := Authorize(caller.Role, OpUpdateDeclaration); err != nil {
		return nil, err
	}
	declaration, err := s.loadOwnedDeath(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	changed := []string{}
	if req.Father != nil {
		declaration.Father = req.Father
		changed = append(changed, "father")
	}
	if req.Mother != nil {
		declaration.Mother = req.Mother
		changed = append(changed, "mother")
	}
	if req.CauseOfDeath != nil {
		if strings.TrimSpace(*req.CauseOfDeath) == "" {
			return nil, common.Validation("causeOfDeath cannot be empty")
		}
		declaration.CauseOfDeath = strings.TrimSpace(*req.CauseOfDeath)
		changed = append(changed, "causeOfDeath")
	}

	if err := s.deathRepo.Update(ctx, declaration); err != nil {
		return nil, common.Persistence(err)
	}
	s.audit.Record(ctx, models.EntityDeathDeclaration, id.String(), models.ActionUpdate, &caller.UserID, models.JSONB{"fields": changed})
	return declaration, nil
}

func (s *declarationService) DeleteBirth(ctx context.Context, caller models.Identity, id uuid.UUID) error {
	if err := Authorize(caller.Role, OpDeleteDeclaration); err != nil {
		return err
	}
	if _, err := s.loadOwnedBirth(ctx, caller, id); err != nil {
		return err
	}

	deleted, err := s.birthRepo.Delete(ctx, id)
	if err != nil {
		return common.Persistence(err)
	}
	if !deleted {
		return common.NotFound("Birth pre-declaration")
	}
	s.audit.Record(ctx, models.EntityBirthDeclaration, id.String(), models.ActionDelete, &caller.UserID, nil)
	return nil
}

func (s *declarationService) DeleteDeath(ctx context.Context, caller models.Identity, id uuid.UUID) error {
	if err := Authorize(caller.Role, OpDeleteDeclaration); err != nil {
		return err
	}
	if _, err := s.loadOwnedDeath(ctx, caller, id); err != nil {
		return err
	}

	deleted, err := s.deathRepo.Delete(ctx, id)
	if err != nil {
		return common.Persistence(err)
	}
	if !deleted {
		return common.NotFound("Death pre-declaration")
	}
	s.audit.Record(ctx, models.EntityDeathDeclaration, id.String(), models.ActionDelete, &caller.UserID, nil)
	return nil
}
