package middleware

import (
	"civreg/internal/common"
	"civreg/internal/services"

	"github.com/labstack/echo/v4"
)

type RBACMiddleware struct {
	rbacService services.RBACService
}

func NewRBACMiddleware(rbacService services.RBACService) *RBACMiddleware {
	return &RBACMiddleware{
		rbacService: rbacService,
	}
}

// RequireOperation rejects callers whose role may not perform op. It must run
// after JWTMiddleware.
func (m *RBACMiddleware) RequireOperation(op services.Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := common.GetRoleFromContext(c.Request().Context())
			if !ok {
				return common.ErrMissingToken
			}
			if err := m.rbacService.Authorize(role, op); err != nil {
				return err
			}
			return next(c)
		}
	}
}
