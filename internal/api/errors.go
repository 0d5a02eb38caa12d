package api

import (
	"errors"
	"net/http"

	"github.com/Freeeeeet/lesson_bot/internal/meet"
	"github.com/Freeeeeet/lesson_bot/internal/repository"
	"github.com/Freeeeeet/lesson_bot/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var errNotFound = echo.NewHTTPError(http.StatusNotFound, "not found")

// newHTTPErrorHandler переводит ошибки сервисов в HTTP-ответы; детали 500 только в лог
func newHTTPErrorHandler(rv *requestValidator, logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code    int
			message any
		)

		var (
			httpErr *echo.HTTPError
			valErrs validator.ValidationErrors
			svcErr  *service.ValidationError
		)

		switch {
		case errors.As(err, &httpErr):
			code = httpErr.Code
			message = httpErr.Message
		case errors.As(err, &valErrs):
			code = http.StatusBadRequest
			message = rv.fieldErrors(valErrs)
		case errors.As(err, &svcErr):
			code = http.StatusBadRequest
			if svcErr.Field != "" {
				message = map[string]string{string(svcErr.Field): svcErr.Message}
			} else {
				message = svcErr.Message
			}
		case errors.Is(err, service.ErrLessonNotFound),
			errors.Is(err, service.ErrStudentNotFound),
			errors.Is(err, service.ErrTeacherNotFound):
			code = http.StatusNotFound
			message = err.Error()
		case errors.Is(err, service.ErrTransitionNotAllowed),
			errors.Is(err, service.ErrLessonConflict),
			errors.Is(err, service.ErrEmailTaken):
			code = http.StatusConflict
			message = err.Error()
		case errors.Is(err, service.ErrReasonRequired),
			errors.Is(err, repository.ErrFieldNotAllowed):
			code = http.StatusBadRequest
			message = err.Error()
		case errors.Is(err, meet.ErrNotConfigured):
			code = http.StatusServiceUnavailable
			message = err.Error()
		default:
			code = http.StatusInternalServerError
			message = http.StatusText(http.StatusInternalServerError)

			logger.Error("Request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.Error(err),
			)
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, message)
		}
		if err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
	}
}
