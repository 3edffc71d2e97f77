package handlers

import (
	"net/http"

	"civreg/internal/services"

	"github.com/labstack/echo/v4"
)

// DeclarationHandlers serves birth and death pre-declarations.
type DeclarationHandlers struct {
	declarations services.DeclarationService
	validation   services.ValidationService
}

func NewDeclarationHandlers(declarations services.DeclarationService, validation services.ValidationService) *DeclarationHandlers {
	return &DeclarationHandlers{declarations: declarations, validation: validation}
}

// CreateBirth godoc
// @Summary  Submit a birth pre-declaration (hospital)
// @Tags     predeclarations
// @Security BearerAuth
// @Param    body body services.SubmitBirthRequest true "Declaration"
// @Success  201 {object} models.BirthDeclaration
// @Failure  400 {object} common.ErrorResponse
// @Router   /predeclarations/naissance [post]
func (h *DeclarationHandlers) CreateBirth(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req services.SubmitBirthRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	declaration, err := h.validation.SubmitBirth(c.Request().Context(), caller, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, declaration)
}

// CreateDeath godoc
// @Summary  Submit a death pre-declaration (hospital)
// @Tags     predeclarations
// @Security BearerAuth
// @Param    body body services.DeathDeclarationRequest true "Declaration"
// @Success  201 {object} models.DeathDeclaration
// @Router   /predeclarations/deces [post]
func (h *DeclarationHandlers) CreateDeath(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req services.DeathDeclarationRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	declaration, err := h.declarations.CreateDeath(c.Request().Context(), caller, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, declaration)
}

// ListOwn godoc
// @Summary  Births and deaths submitted by the calling hospital
// @Tags     predeclarations
// @Security BearerAuth
// @Success  200 {object} models.DeclarationBundle
// @Router   /predeclarations/mes-predeclarations [get]
func (h *DeclarationHandlers) ListOwn(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	bundle, err := h.declarations.ListOwn(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bundle)
}

func (h *DeclarationHandlers) ListOwnBirths(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	births, err := h.declarations.ListOwnBirths(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, births)
}

func (h *DeclarationHandlers) ListOwnDeaths(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	deaths, err := h.declarations.ListOwnDeaths(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deaths)
}

// ListAddressed godoc
// @Summary  Births addressed to the calling municipality
// @Tags     predeclarations
// @Security BearerAuth
// @Success  200 {array} models.BirthDeclarationView
// @Router   /predeclarations/predeclarations/mairie [get]
func (h *DeclarationHandlers) ListAddressed(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	births, err := h.declarations.ListAddressedBirths(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, births)
}

// ListAll godoc
// @Summary  Every declaration (admin)
// @Tags     predeclarations
// @Security BearerAuth
// @Success  200 {object} models.DeclarationBundle
// @Router   /predeclarations/predeclarations [get]
func (h *DeclarationHandlers) ListAll(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	bundle, err := h.declarations.ListAll(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bundle)
}

func (h *DeclarationHandlers) GetBirth(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	birth, err := h.declarations.GetBirth(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, birth)
}

func (h *DeclarationHandlers) GetDeath(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	death, err := h.declarations.GetDeath(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, death)
}

// UpdateBirth godoc
// @Summary  Edit a birth pre-declaration (owner or admin)
// @Tags     predeclarations
// @Security BearerAuth
// @Param    id path string true "Declaration ID"
// @Param    body body services.UpdateBirthRequest true "Fields to change"
// @Success  200 {object} models.BirthDeclaration
// @Router   /predeclarations/naissance/{id} [put]
func (h *DeclarationHandlers) UpdateBirth(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req services.UpdateBirthRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	birth, err := h.declarations.UpdateBirth(c.Request().Context(), caller, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, birth)
}

func (h *DeclarationHandlers) UpdateDeath(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req services.UpdateDeathRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	death, err := h.declarations.UpdateDeath(c.Request().Context(), caller, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, death)
}

func (h *DeclarationHandlers) DeleteBirth(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.declarations.DeleteBirth(c.Request().Context(), caller, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Birth pre-declaration deleted"})
}

func (h *DeclarationHandlers) DeleteDeath(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.declarations.DeleteDeath(c.Request().Context(), caller, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Death pre-declaration deleted"})
}

// ValidateBirth godoc
// @Summary  Validate or reject a birth pre-declaration (municipality)
// @Tags     predeclarations
// @Security BearerAuth
// @Param    id path string true "Declaration ID"
// @Param    body body services.ValidationRequest true "Decision"
// @Success  200 {object} models.BirthDeclaration
// @Failure  403 {object} common.ErrorResponse
// @Router   /predeclarations/naissance/{id}/validation [put]
func (h *DeclarationHandlers) ValidateBirth(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req services.ValidationRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	birth, err := h.validation.Decide(c.Request().Context(), caller, id, req.Decision, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, birth)
}
