package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"civreg/internal/common"
	"civreg/internal/metrics"
	"civreg/internal/models"
	"civreg/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubmitBirthRequest is the body of a birth pre-declaration. The destination
// municipality is given by display name.
type SubmitBirthRequest struct {
	ChildGivenName          string        `json:"childGivenName"`
	ChildFamilyName         string        `json:"childFamilyName"`
	Sex                     string        `json:"sex"`
	BirthDate               string        `json:"birthDate"`
	BirthPlace              string        `json:"birthPlace"`
	BirthTime               string        `json:"birthTime"`
	Father                  models.Parent `json:"father"`
	Mother                  models.Parent `json:"mother"`
	DestinationMunicipality string        `json:"destinationMunicipality"`
}

// ValidationRequest keeps the field names existing municipality clients send.
type ValidationRequest struct {
	Decision string `json:"statutValidation"`
	Comment  string `json:"commentaire"`
}

// ValidationService owns the birth declaration status workflow.
type ValidationService interface {
	SubmitBirth(ctx context.Context, caller models.Identity, req *SubmitBirthRequest) (*models.BirthDeclaration, error)
	Decide(ctx context.Context, caller models.Identity, declarationID uuid.UUID, decision, comment string) (*models.BirthDeclaration, error)
}

type validationService struct {
	userRepo  repositories.UserRepository
	birthRepo repositories.BirthDeclarationRepository
	notifier  NotificationService
	audit     AuditRecorder
	logger    *zap.Logger
	now       func() time.Time
}

func NewValidationService(
	userRepo repositories.UserRepository,
	birthRepo repositories.BirthDeclarationRepository,
	notifier NotificationService,
	audit AuditRecorder,
	logger *zap.Logger,
) ValidationService {
	return &validationService{
		userRepo:  userRepo,
		birthRepo: birthRepo,
		notifier:  notifier,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
	}
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, time.RFC3339Nano}

func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, common.Validation(fmt.Sprintf("%s is required", field))
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, common.Validation(fmt.Sprintf("%s must be a date (YYYY-MM-DD)", field))
}

func parseSex(value string) (models.Sex, error) {
	sex := models.Sex(strings.ToLower(strings.TrimSpace(value)))
	if !sex.Valid() {
		return "", common.Validation("sex must be 'male' or 'female'")
	}
	return sex, nil
}

// ParseDecision maps a decision to its terminal status. The French values sent by
// older clients are accepted.
func ParseDecision(value string) (models.ValidationStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "validated", "validée", "validee":
		return models.StatusValidated, true
	case "rejected", "refusée", "refusee":
		return models.StatusRejected, true
	}
	return "", false
}

func (s *validationService) SubmitBirth(ctx context.Context, caller models.Identity, req *SubmitBirthRequest) (*models.BirthDeclaration, error) {
	if err := Authorize(caller.Role, OpCreateBirth); err != nil {
		return nil, err
	}

	sex, err := parseSex(req.Sex)
	if err != nil {
		return nil, err
	}
	birthDate, err := parseDate("birthDate", req.BirthDate)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.DestinationMunicipality) == "" {
		return nil, common.Validation("destinationMunicipality is required")
	}

	municipality, err := s.userRepo.FindMunicipalityByName(ctx, strings.TrimSpace(req.DestinationMunicipality))
	if err != nil {
		return nil, common.Persistence(err)
	}
	if municipality == nil {
		return nil, common.ErrMunicipalityNotFound
	}

	hospital, err := s.userRepo.GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, common.Persistence(err)
	}
	if hospital == nil {
		return nil, common.NotFound("Hospital account")
	}

	now := s.now().UTC()
	declaration := &models.BirthDeclaration{
		ID:                        uuid.New(),
		ChildGivenName:            strings.TrimSpace(req.ChildGivenName),
		ChildFamilyName:           strings.TrimSpace(req.ChildFamilyName),
		Sex:                       sex,
		BirthDate:                 birthDate,
		BirthPlace:                req.BirthPlace,
		BirthTime:                 req.BirthTime,
		Father:                    req.Father,
		Mother:                    req.Mother,
		DestinationMunicipalityID: municipality.ID,
		SubmittingHospitalID:      hospital.ID,
		HospitalName:              hospital.DisplayName,
		HospitalEmail:             hospital.Email,
		ValidationStatus:          models.StatusPending,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
	if err := s.birthRepo.Create(ctx, declaration); err != nil {
		return nil, common.Persistence(err)
	}
	metrics.DeclarationsSubmitted.WithLabelValues("birth").Inc()

	s.audit.Record(ctx, models.EntityBirthDeclaration, declaration.ID.String(), models.ActionCreate, &caller.UserID,
		models.JSONB{"destinationMunicipalityId": municipality.ID.String()})

	municipalityLabel := municipality.DisplayName
	if municipalityLabel == "" {
		municipalityLabel = municipality.Email
	}
	s.notifier.Notify(ctx, declaration.ParentEmail(),
		"Pré-déclaration de naissance enregistrée",
		fmt.Sprintf("La pré-déclaration de naissance de %s %s, né(e) le %s, est enregistrée sous la référence %s.\nMairie : %s",
			declaration.ChildGivenName, declaration.ChildFamilyName, birthDate.Format("02/01/2006"),
			declaration.ID, municipalityLabel))

	return declaration, nil
}

// Decide records a municipality's decision. A declaration that was already
// decided is overwritten; the latest decision wins.
func (s *validationService) Decide(ctx context.Context, caller models.Identity, declarationID uuid.UUID, decision, comment string) (*models.BirthDeclaration, error) {
	if err := Authorize(caller.Role, OpValidateBirth); err != nil {
		return nil, common.Forbidden("Only municipalities can validate pre-declarations")
	}

	status, ok := ParseDecision(decision)
	if !ok {
		return nil, common.ErrInvalidDecision.WithMessage("statutValidation must be 'validated' or 'rejected'")
	}

	declaration, err := s.birthRepo.GetByID(ctx, declarationID)
	if err != nil {
		return nil, common.Persistence(err)
	}
	if declaration == nil {
		return nil, common.NotFound("Birth pre-declaration")
	}
	if declaration.DestinationMunicipalityID != caller.UserID {
		return nil, common.Forbidden("This pre-declaration is not addressed to your municipality")
	}

	var commentPtr *string
	if c := strings.TrimSpace(comment); c != "" {
		commentPtr = &c
	}
	decidedAt := s.now().UTC()

	updated, err := s.birthRepo.SetValidation(ctx, declarationID, status, commentPtr, decidedAt)
	if err != nil {
		return nil, common.Persistence(err)
	}
	if !updated {
		return nil, common.NotFound("Birth pre-declaration")
	}

	declaration.ValidationStatus = status
	if commentPtr != nil {
		declaration.ValidationComment = commentPtr
	}
	declaration.ValidationDate = &decidedAt
	declaration.UpdatedAt = decidedAt
	metrics.ValidationDecisions.WithLabelValues(string(status)).Inc()

	action := models.ActionValidate
	if status == models.StatusRejected {
		action = models.ActionReject
	}
	s.audit.Record(ctx, models.EntityBirthDeclaration, declarationID.String(), action, &caller.UserID,
		models.JSONB{"status": string(status), "comment": comment})

	s.notifyDecision(ctx, declaration, status, commentPtr)
	return declaration, nil
}

func (s *validationService) notifyDecision(ctx context.Context, d *models.BirthDeclaration, status models.ValidationStatus, comment *string) {
	label := "validée"
	if status == models.StatusRejected {
		label = "refusée"
	}
	suffix := ""
	if comment != nil {
		suffix = "\n\nCommentaire : " + *comment
	}
	child := strings.TrimSpace(d.ChildGivenName + " " + d.ChildFamilyName)

	s.notifier.Notify(ctx, d.HospitalEmail,
		"Pré-déclaration de naissance "+label,
		fmt.Sprintf("La pré-déclaration de naissance de %s a été %s par la mairie.%s", child, label, suffix))
	s.notifier.Notify(ctx, d.ParentEmail(),
		"Déclaration de naissance "+label,
		fmt.Sprintf("Votre déclaration de naissance pour %s a été %s par la mairie.%s", child, label, suffix))
}
