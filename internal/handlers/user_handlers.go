package handlers

import (
	"net/http"

	"civreg/internal/services"

	"github.com/labstack/echo/v4"
)

type UserHandlers struct {
	userService services.UserService
}

func NewUserHandlers(userService services.UserService) *UserHandlers {
	return &UserHandlers{userService: userService}
}

// Register godoc
// @Summary  Create an account (admin or superadmin)
// @Tags     users
// @Security BearerAuth
// @Param    body body services.RegisterUserRequest true "Account"
// @Success  201 {object} models.User
// @Failure  400 {object} common.ErrorResponse
// @Failure  403 {object} common.ErrorResponse
// @Router   /users/register [post]
func (h *UserHandlers) Register(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req services.RegisterUserRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	user, err := h.userService.Register(c.Request().Context(), caller, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// ListUsers godoc
// @Summary  List the accounts visible to the caller
// @Tags     users
// @Security BearerAuth
// @Param    role query string false "Role filter"
// @Success  200 {object} DataResponse
// @Router   /users [get]
func (h *UserHandlers) ListUsers(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}

	users, err := h.userService.ListUsers(c.Request().Context(), caller, c.QueryParam("role"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, DataResponse{Data: users})
}

// UpdateUser godoc
// @Summary  Update an account
// @Tags     users
// @Security BearerAuth
// @Param    id path string true "User ID"
// @Param    body body services.UpdateUserRequest true "Fields to change"
// @Success  200 {object} models.User
// @Router   /users/{id} [put]
func (h *UserHandlers) UpdateUser(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req services.UpdateUserRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	user, err := h.userService.UpdateUser(c.Request().Context(), caller, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser godoc
// @Summary  Delete an account
// @Tags     users
// @Security BearerAuth
// @Param    id path string true "User ID"
// @Success  200 {object} MessageResponse
// @Router   /users/{id} [delete]
func (h *UserHandlers) DeleteUser(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.userService.DeleteUser(c.Request().Context(), caller, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "User deleted"})
}
