package http

import (
	"errors"
	"fmt"
	"net/http"

	"MarketLab/internal/domain"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

// WithParam sets a single error param.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// NotFoundError creates a 404 error.
func NotFoundError(message string) *AppError {
	return NewAppError("ERR_NOT_FOUND", message, http.StatusNotFound)
}

// BadRequestError creates a 400 error.
func BadRequestError(message string) *AppError {
	return NewAppError("ERR_BAD_REQUEST", message, http.StatusBadRequest)
}

// InternalError creates a 500 error.
func InternalError(message string) *AppError {
	return NewAppError("ERR_INTERNAL", message, http.StatusInternalServerError)
}

// MapDomainError converts domain errors to their HTTP representation.
// Unknown errors become 500s without leaking internals.
func MapDomainError(err error) *AppError {
	switch {
	case errors.Is(err, domain.ErrDataUnavailable):
		return NewAppError("ERR_DATA_UNAVAILABLE", "market data unavailable from all sources", http.StatusBadGateway).WithError(err)
	case errors.Is(err, domain.ErrModelNotReady):
		return NewAppError("ERR_MODEL_NOT_READY", "no trained model for symbol", http.StatusConflict).WithError(err)
	}

	var ie *domain.InsufficientDataError
	if errors.As(err, &ie) {
		return NewAppError("ERR_INSUFFICIENT_DATA", ie.Error(), http.StatusUnprocessableEntity).
			WithParam("required", ie.Required).
			WithParam("got", ie.Got).
			WithError(err)
	}

	return InternalError("internal error").WithError(err)
}
