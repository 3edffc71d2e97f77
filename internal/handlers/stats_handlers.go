package handlers

import (
	"context"
	"net/http"

	"civreg/internal/models"

	"github.com/labstack/echo/v4"
)

// StatisticsReader is the read side of the statistics service used over HTTP.
type StatisticsReader interface {
	HospitalStats(ctx context.Context, caller models.Identity) (*models.HospitalStats, error)
	MunicipalityStats(ctx context.Context, caller models.Identity) (*models.MunicipalityStats, error)
	GlobalStats(ctx context.Context, caller models.Identity) (*models.GlobalStats, error)
	GlobalValidationStats(ctx context.Context, caller models.Identity) (*models.ValidationCounts, error)
	PerHospitalBreakdown(ctx context.Context, caller models.Identity) ([]*models.HospitalBreakdown, error)
}

type StatsHandlers struct {
	stats StatisticsReader
}

func NewStatsHandlers(stats StatisticsReader) *StatsHandlers {
	return &StatsHandlers{stats: stats}
}

// respond runs fn with the caller identity and writes its result as JSON.
func respond[T any](c echo.Context, fn func(context.Context, models.Identity) (T, error)) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	result, err := fn(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Hospital godoc
// @Summary  Counts for the calling hospital
// @Tags     stats
// @Security BearerAuth
// @Success  200 {object} models.HospitalStats
// @Router   /predeclarations/stats/hopital [get]
func (h *StatsHandlers) Hospital(c echo.Context) error {
	return respond(c, h.stats.HospitalStats)
}

// Municipality godoc
// @Summary  Validation counts for the calling municipality
// @Tags     stats
// @Security BearerAuth
// @Success  200 {object} models.MunicipalityStats
// @Router   /predeclarations/stats/mairie [get]
func (h *StatsHandlers) Municipality(c echo.Context) error {
	return respond(c, h.stats.MunicipalityStats)
}

// Global godoc
// @Summary  Total declarations (admin)
// @Tags     stats
// @Security BearerAuth
// @Success  200 {object} models.GlobalStats
// @Router   /predeclarations/stats/globales [get]
func (h *StatsHandlers) Global(c echo.Context) error {
	return respond(c, h.stats.GlobalStats)
}

// Validations godoc
// @Summary  Validation counts over every birth (admin)
// @Tags     stats
// @Security BearerAuth
// @Success  200 {object} models.ValidationCounts
// @Router   /predeclarations/stats/validations [get]
func (h *StatsHandlers) Validations(c echo.Context) error {
	return respond(c, h.stats.GlobalValidationStats)
}

// PerHospital godoc
// @Summary  Births and deaths per hospital (admin)
// @Tags     stats
// @Security BearerAuth
// @Success  200 {array} models.HospitalBreakdown
// @Router   /predeclarations/stats/par-hopital [get]
func (h *StatsHandlers) PerHospital(c echo.Context) error {
	return respond(c, h.stats.PerHospitalBreakdown)
}
