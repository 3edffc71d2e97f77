package analytics

import (
	"context"
	"sort"
	"strings"

	"civreg/internal/common"
	"civreg/internal/models"
	"civreg/internal/repositories"
	"civreg/internal/services"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StatisticsService computes read-only counts over declarations. Every call
// checks the access matrix before touching storage.
type StatisticsService struct {
	userRepo  repositories.UserRepository
	birthRepo repositories.BirthDeclarationRepository
	deathRepo repositories.DeathDeclarationRepository
	logger    *zap.Logger
}

func NewStatisticsService(
	userRepo repositories.UserRepository,
	birthRepo repositories.BirthDeclarationRepository,
	deathRepo repositories.DeathDeclarationRepository,
	logger *zap.Logger,
) *StatisticsService {
	return &StatisticsService{
		userRepo:  userRepo,
		birthRepo: birthRepo,
		deathRepo: deathRepo,
		logger:    logger,
	}
}

// accountLabel prefers the display name and falls back to the email.
func accountLabel(user *models.User) string {
	if user == nil {
		return ""
	}
	if user.DisplayName != "" {
		return user.DisplayName
	}
	return user.Email
}

func (s *StatisticsService) loadCaller(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, common.Persistence(err)
	}
	if user == nil {
		return nil, common.NotFound("User")
	}
	return user, nil
}

// HospitalStats counts the births and deaths submitted by the calling hospital.
func (s *StatisticsService) HospitalStats(ctx context.Context, caller models.Identity) (*models.HospitalStats, error) {
	if err := services.Authorize(caller.Role, services.OpHospitalStats); err != nil {
		return nil, err
	}

	var (
		hospital      *models.User
		births, death int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		hospital, err = s.loadCaller(gctx, caller.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		births, err = s.birthRepo.CountByHospital(gctx, caller.UserID)
		return common.Persistence(err)
	})
	g.Go(func() error {
		var err error
		death, err = s.deathRepo.CountByHospital(gctx, caller.UserID)
		return common.Persistence(err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.HospitalStats{
		Hospital: accountLabel(hospital),
		Births:   births,
		Deaths:   death,
		Total:    births + death,
	}, nil
}

// MunicipalityStats groups the births addressed to the calling municipality by
// status. Unset or unknown statuses count as pending.
func (s *StatisticsService) MunicipalityStats(ctx context.Context, caller models.Identity) (*models.MunicipalityStats, error) {
	if err := services.Authorize(caller.Role, services.OpMunicipalityStats); err != nil {
		return nil, err
	}

	var (
		municipality *models.User
		grouped      map[models.ValidationStatus]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		municipality, err = s.loadCaller(gctx, caller.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		grouped, err = s.birthRepo.CountByMunicipalityStatus(gctx, caller.UserID)
		return common.Persistence(err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.MunicipalityStats{
		Municipality: accountLabel(municipality),
		Statistics:   foldStatuses(grouped),
	}, nil
}

func foldStatuses(grouped map[models.ValidationStatus]int) models.ValidationCounts {
	var counts models.ValidationCounts
	for status, n := range grouped {
		counts.Add(status, n)
	}
	return counts
}

func (s *StatisticsService) GlobalStats(ctx context.Context, caller models.Identity) (*models.GlobalStats, error) {
	if err := services.Authorize(caller.Role, services.OpGlobalStats); err != nil {
		return nil, err
	}
	return s.globalStats(ctx)
}

func (s *StatisticsService) globalStats(ctx context.Context) (*models.GlobalStats, error) {
	var births, deaths int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		births, err = s.birthRepo.Count(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		deaths, err = s.deathRepo.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, common.Persistence(err)
	}
	return &models.GlobalStats{TotalBirths: births, TotalDeaths: deaths, Total: births + deaths}, nil
}

// GlobalValidationStats is MunicipalityStats over every birth declaration.
func (s *StatisticsService) GlobalValidationStats(ctx context.Context, caller models.Identity) (*models.ValidationCounts, error) {
	if err := services.Authorize(caller.Role, services.OpGlobalStats); err != nil {
		return nil, err
	}
	return s.globalValidationStats(ctx)
}

func (s *StatisticsService) globalValidationStats(ctx context.Context) (*models.ValidationCounts, error) {
	grouped, err := s.birthRepo.CountByStatus(ctx)
	if err != nil {
		return nil, common.Persistence(err)
	}
	counts := foldStatuses(grouped)
	return &counts, nil
}

// PerHospitalBreakdown merges per-hospital birth and death counts. Hospitals
// with only one kind of declaration still appear, with zero for the other.
func (s *StatisticsService) PerHospitalBreakdown(ctx context.Context, caller models.Identity) ([]*models.HospitalBreakdown, error) {
	if err := services.Authorize(caller.Role, services.OpGlobalStats); err != nil {
		return nil, err
	}
	return s.perHospitalBreakdown(ctx)
}

func (s *StatisticsService) perHospitalBreakdown(ctx context.Context) ([]*models.HospitalBreakdown, error) {
	var births, deaths []models.HospitalCount
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		births, err = s.birthRepo.CountPerHospital(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		deaths, err = s.deathRepo.CountPerHospital(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, common.Persistence(err)
	}

	merged := make(map[uuid.UUID]*models.HospitalBreakdown)
	var order []uuid.UUID
	entry := func(c models.HospitalCount) *models.HospitalBreakdown {
		b, ok := merged[c.HospitalID]
		if !ok {
			b = &models.HospitalBreakdown{HospitalID: c.HospitalID, HospitalName: c.HospitalName}
			merged[c.HospitalID] = b
			order = append(order, c.HospitalID)
		}
		if b.HospitalName == "" {
			b.HospitalName = c.HospitalName
		}
		return b
	}
	for _, c := range births {
		entry(c).TotalBirths += c.Count
	}
	for _, c := range deaths {
		entry(c).TotalDeaths += c.Count
	}

	result := make([]*models.HospitalBreakdown, 0, len(order))
	if len(order) == 0 {
		return result, nil
	}

	users, err := s.userRepo.GetByIDs(ctx, order)
	if err != nil {
		return nil, common.Persistence(err)
	}
	for _, id := range order {
		b := merged[id]
		if label := accountLabel(users[id]); label != "" {
			b.HospitalName = label
		}
		result = append(result, b)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return strings.ToLower(result[i].HospitalName) < strings.ToLower(result[j].HospitalName)
	})
	return result, nil
}

// Snapshot gathers the daily roll-up archived by the scheduler. It bypasses the
// access matrix and must not be exposed over HTTP.
func (s *StatisticsService) Snapshot(ctx context.Context) (*models.StatisticsSnapshot, error) {
	var (
		global      *models.GlobalStats
		validation  *models.ValidationCounts
		perHospital []*models.HospitalBreakdown
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		global, err = s.globalStats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		validation, err = s.globalValidationStats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		perHospital, err = s.perHospitalBreakdown(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Debug("statistics snapshot computed",
		zap.Int("births", global.TotalBirths),
		zap.Int("deaths", global.TotalDeaths),
		zap.Int("hospitals", len(perHospital)))

	return &models.StatisticsSnapshot{
		Global:      *global,
		Validation:  *validation,
		PerHospital: perHospital,
	}, nil
}
