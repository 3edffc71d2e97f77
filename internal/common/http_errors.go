package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorToResponse renders err in the standard error envelope.
func ErrorToResponse(err error) (int, *ErrorResponse) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		status := appErr.Kind.Status()
		var details map[string]string
		if appErr.Kind == KindPersistence && appErr.Err != nil {
			details = map[string]string{"cause": appErr.Err.Error()}
		}
		return status, CreateErrorResponse(appErr.Code, appErr.Message, details)
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		} else if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		return he.Code, CreateErrorResponse(codeForStatus(he.Code), msg, nil)
	}

	return http.StatusInternalServerError, CreateErrorResponse("SERVER_ERROR", "Server error", map[string]string{"cause": err.Error()})
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "CLIENT_ERROR"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	}
	if status >= 500 {
		return "SERVER_ERROR"
	}
	return "CLIENT_ERROR"
}

// NewHTTPErrorHandler returns the echo error handler used by the API server.
func NewHTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, resp := ErrorToResponse(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, resp)
		}
		if err != nil {
			logger.Warn("failed to write error response", zap.Error(err))
		}
	}
}
