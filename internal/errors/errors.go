package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Sentinel errors used across the pipeline. Handlers map these to HTTP
// status codes; everything else is treated as a 500.
var (
	ErrDataFormat        = new(ErrCodeDataFormat, "invalid input data")
	ErrNotFound          = new(ErrCodeNotFound, "resource not found")
	ErrValidation        = new(ErrCodeValidation, "validation error")
	ErrRenderFailed      = new(ErrCodeRenderFailed, "render failed")
	ErrEngineUnavailable = new(ErrCodeEngineUnavailable, "render engine unavailable")
	ErrDeliveryFailed    = new(ErrCodeDeliveryFailed, "delivery failed")
	ErrSystem            = new(ErrCodeSystemError, "system error")

	statusCodeMap = map[error]int{
		ErrDataFormat:        http.StatusBadRequest,
		ErrValidation:        http.StatusBadRequest,
		ErrNotFound:          http.StatusNotFound,
		ErrRenderFailed:      http.StatusInternalServerError,
		ErrEngineUnavailable: http.StatusServiceUnavailable,
		ErrDeliveryFailed:    http.StatusBadGateway,
		ErrSystem:            http.StatusInternalServerError,
	}
)

const (
	ErrCodeDataFormat        = "data_format"
	ErrCodeNotFound          = "not_found"
	ErrCodeValidation        = "validation_error"
	ErrCodeRenderFailed      = "render_failed"
	ErrCodeEngineUnavailable = "engine_unavailable"
	ErrCodeDeliveryFailed    = "delivery_failed"
	ErrCodeSystemError       = "system_error"
)

// InternalError is a coded domain error.
type InternalError struct {
	Code    string
	Message string
	Err     error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is matches either the wrapped chain or another InternalError by code.
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}
	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}
	return e.Code == t.Code
}

func new(code, message string) *InternalError {
	return &InternalError{Code: code, Message: message}
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func IsDataFormat(err error) bool {
	return errors.Is(err, ErrDataFormat)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsEngineUnavailable(err error) bool {
	return errors.Is(err, ErrEngineUnavailable)
}

// HTTPStatus returns the status code for a marked error, 500 otherwise.
func HTTPStatus(err error) int {
	for sentinel, status := range statusCodeMap {
		if errors.Is(err, sentinel) {
			return status
		}
	}
	return http.StatusInternalServerError
}

// Code returns the machine-readable code of a marked error.
func Code(err error) string {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.Code
	}
	for sentinel := range statusCodeMap {
		if errors.Is(err, sentinel) {
			return sentinel.(*InternalError).Code
		}
	}
	return ErrCodeSystemError
}
