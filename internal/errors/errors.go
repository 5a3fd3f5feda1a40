package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// APIError is the error shape every handler responds with. Internal is never
// serialized; it is only logged by the error middleware.
type APIError struct {
	Status   int    `json:"-"`
	Code     string `json:"code"`
	Message  string `json:"error"`
	Internal error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Internal
}

func New(status int, code, message string, err error) *APIError {
	return &APIError{Status: status, Code: code, Message: message, Internal: err}
}

func BadRequest(message string, err error) *APIError {
	return New(http.StatusBadRequest, "bad_request", message, err)
}

func Unauthorized(message string, err error) *APIError {
	return New(http.StatusUnauthorized, "unauthorized", message, err)
}

func Forbidden(message string, err error) *APIError {
	return New(http.StatusForbidden, "forbidden", message, err)
}

func NotFound(message string, err error) *APIError {
	return New(http.StatusNotFound, "not_found", message, err)
}

func Conflict(message string, err error) *APIError {
	return New(http.StatusConflict, "conflict", message, err)
}

func UnprocessableEntity(message string, err error) *APIError {
	return New(http.StatusUnprocessableEntity, "unprocessable_entity", message, err)
}

// SessionExpired maps to 410: the editing session is gone and the client has
// to start a new one. Retrying the same call is pointless.
func SessionExpired(err error) *APIError {
	return New(http.StatusGone, "session_expired", "Editing session expired, start a new one", err)
}

func Internal(err error) *APIError {
	return New(http.StatusInternalServerError, "internal", "Internal server error", err)
}

// NewValidationError turns gin binding failures into a 422 with readable
// per-field messages instead of validator's raw struct paths.
func NewValidationError(err error) *APIError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
		}
		return UnprocessableEntity(strings.Join(msgs, "; "), err)
	}
	return UnprocessableEntity("Invalid request body", err)
}
