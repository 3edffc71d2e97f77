package middleware

import (
	"errors"

	"civreg/internal/common"
	"civreg/internal/repositories"
	"civreg/internal/services"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	identityContextKey    = "identity"
	accessTokenContextKey = "access_token"
)

// JWTMiddleware authenticates bearer tokens through the token service, so
// revoked tokens are refused before their signature is checked. The role put
// in the request context is the one currently stored for the account, not the
// one embedded in the token.
func JWTMiddleware(tokens services.TokenService, userRepo repositories.UserRepository) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey: identityContextKey,
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			ctx := c.Request().Context()
			identity, err := tokens.Verify(ctx, auth)
			if err != nil {
				return nil, err
			}

			user, err := userRepo.GetByID(ctx, identity.UserID)
			if err != nil {
				return nil, common.Persistence(err)
			}
			if user == nil {
				return nil, common.ErrInvalidToken.WithMessage("Account no longer exists")
			}
			identity.Role = user.Role

			c.SetRequest(c.Request().WithContext(common.WithIdentity(ctx, user.ID, user.Role)))
			c.Set(accessTokenContextKey, auth)
			return identity, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			var appErr *common.AppError
			if errors.As(err, &appErr) {
				return appErr
			}
			return common.ErrMissingToken
		},
	})
}

// AccessToken returns the raw bearer token of an authenticated request.
func AccessToken(c echo.Context) string {
	token, _ := c.Get(accessTokenContextKey).(string)
	return token
}
