package handlers

import (
	"civreg/internal/common"
	"civreg/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// MessageResponse is the body of operations that return no resource.
type MessageResponse struct {
	Message string `json:"message"`
}

// DataResponse wraps a listing the way existing clients expect it.
type DataResponse struct {
	Data interface{} `json:"data"`
}

func callerIdentity(c echo.Context) (models.Identity, error) {
	identity, ok := common.GetIdentityFromContext(c.Request().Context())
	if !ok {
		return models.Identity{}, common.ErrMissingToken
	}
	return identity, nil
}

func pathID(c echo.Context) (uuid.UUID, error) {
	return common.ValidateUUID(c.Param("id"), "id")
}

func bindBody(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return common.Validation("Invalid request format")
	}
	return nil
}
