package handlers

import (
	"net/http"

	"civreg/internal/common"
	"civreg/internal/middleware"
	"civreg/internal/models"
	"civreg/internal/services"

	"github.com/labstack/echo/v4"
)

// AuthHandlers serves login, logout, token refresh and the password reset flow.
type AuthHandlers struct {
	authService services.AuthService
}

func NewAuthHandlers(authService services.AuthService) *AuthHandlers {
	return &AuthHandlers{authService: authService}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

type VerifyResetTokenResponse struct {
	Valid bool `json:"valid"`
}

// Login godoc
// @Summary  Authenticate with email and password
// @Tags     users
// @Accept   json
// @Produce  json
// @Param    body body LoginRequest true "Credentials"
// @Success  200 {object} models.LoginResponse
// @Failure  401 {object} common.ErrorResponse
// @Router   /users/login [post]
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	resp, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// RefreshToken godoc
// @Summary  Exchange a refresh token for a new access token
// @Tags     users
// @Param    body body models.RefreshTokenRequest true "Refresh token"
// @Success  200 {object} models.AccessTokenResponse
// @Failure  401 {object} common.ErrorResponse
// @Router   /users/refresh-token [post]
func (h *AuthHandlers) RefreshToken(c echo.Context) error {
	var req models.RefreshTokenRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	accessToken, err := h.authService.RefreshAccessToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.AccessTokenResponse{AccessToken: accessToken})
}

// Logout godoc
// @Summary  Revoke the presented access token
// @Tags     users
// @Security BearerAuth
// @Success  200 {object} MessageResponse
// @Router   /users/logout [post]
func (h *AuthHandlers) Logout(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	if err := h.authService.Logout(c.Request().Context(), caller, middleware.AccessToken(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Logged out"})
}

// ForgotPassword godoc
// @Summary  Request a password reset link
// @Description Answers identically whether or not the email is registered.
// @Tags     users
// @Param    body body ForgotPasswordRequest true "Account email"
// @Success  200 {object} MessageResponse
// @Router   /users/forgot-password [post]
func (h *AuthHandlers) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := h.authService.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "If this email is registered, a reset link has been sent"})
}

// ResetPassword godoc
// @Summary  Set a new password with a reset token
// @Tags     users
// @Param    token path string true "Reset token"
// @Param    body body ResetPasswordRequest true "New password"
// @Success  200 {object} MessageResponse
// @Failure  400 {object} common.ErrorResponse
// @Router   /users/reset-password/{token} [post]
func (h *AuthHandlers) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := common.ValidateRequiredString(req.Password, "password"); err != nil {
		return err
	}
	if err := h.authService.ResetPassword(c.Request().Context(), c.Param("token"), req.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Password updated"})
}

// VerifyResetToken godoc
// @Summary  Check whether a reset token is still usable
// @Tags     users
// @Param    token path string true "Reset token"
// @Success  200 {object} VerifyResetTokenResponse
// @Router   /users/verify-reset-token/{token} [get]
func (h *AuthHandlers) VerifyResetToken(c echo.Context) error {
	valid, err := h.authService.VerifyResetToken(c.Request().Context(), c.Param("token"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, VerifyResetTokenResponse{Valid: valid})
}
