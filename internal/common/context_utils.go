package common

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"civreg/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RoleKey   contextKey = "role"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendValidationError sends a validation error response
func SendValidationError(c echo.Context, field, message string) error {
	details := map[string]string{
		field: message,
	}
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", "Validation failed", details))
}

// ValidateUUID parses a path or body identifier.
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		return uuid.Nil, Validation(fmt.Sprintf("%s is required", fieldName))
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, Validation(fmt.Sprintf("%s is not a valid identifier", fieldName))
	}
	return id, nil
}

// ValidateRequiredString validates required string fields
func ValidateRequiredString(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return Validation(fmt.Sprintf("%s is required", fieldName))
	}
	return nil
}

// ValidatePaginationParams clamps limit into [1, 500] and offset to >= 0.
func ValidatePaginationParams(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// WithIdentity stores the authenticated caller on ctx.
func WithIdentity(ctx context.Context, userID uuid.UUID, role models.Role) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, RoleKey, role)
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// GetRoleFromContext extracts the caller's role from the request context
func GetRoleFromContext(ctx context.Context) (models.Role, bool) {
	role, ok := ctx.Value(RoleKey).(models.Role)
	return role, ok
}

// GetIdentityFromContext returns the caller set by the auth middleware.
func GetIdentityFromContext(ctx context.Context) (models.Identity, bool) {
	userID, ok := GetUserIDFromContext(ctx)
	if !ok {
		return models.Identity{}, false
	}
	role, ok := GetRoleFromContext(ctx)
	if !ok {
		return models.Identity{}, false
	}
	return models.Identity{UserID: userID, Role: role}, true
}
