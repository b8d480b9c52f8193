package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/garyjia/ops-approval/internal/application/service"
	domainwf "github.com/garyjia/ops-approval/internal/domain/workflow"
)

// Error codes carried in Response.Code
const (
	CodeBadRequest    = "bad_request"
	CodeNotFound      = "not_found"
	CodeConflict      = "state_conflict"
	CodeConfiguration = "workflow_configuration"
	CodeInternal      = "internal_error"
)

// requestError marks a request that could not be read: bad path params or an undecodable body
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &requestError{err: err}
}

// errorMiddleware renders the last error a handler attached with c.Error
func errorMiddleware(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status, code := classify(err)

		if status >= http.StatusInternalServerError {
			logger.Error("Request failed",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err)
		}

		message := err.Error()
		if status >= http.StatusInternalServerError {
			message = "internal server error"
		}

		c.JSON(status, Response{
			Success: false,
			Error:   message,
			Code:    code,
		})
	}
}

// classify maps application errors onto HTTP status codes
func classify(err error) (int, string) {
	var validationErrs validator.ValidationErrors
	var reqErr *requestError

	switch {
	case errors.As(err, &validationErrs), errors.As(err, &reqErr):
		return http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, domainwf.ErrInvalidAction), errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, domainwf.ErrNotFound), errors.Is(err, service.ErrUnknownBusinessType):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, domainwf.ErrState):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, domainwf.ErrConfiguration):
		return http.StatusUnprocessableEntity, CodeConfiguration
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
