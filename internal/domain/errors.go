package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable means every source in the fallback chain failed and
	// no cached entry (even expired) exists for the key.
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrModelNotReady means a prediction was requested before any successful
	// training for the symbol.
	ErrModelNotReady = errors.New("model not ready")

	// ErrSourceFailure is the per-source failure recovered locally by trying
	// the next source in the chain; it only surfaces when all sources fail.
	ErrSourceFailure = errors.New("source failure")
)

// InsufficientDataError reports too few bars for feature extraction, training
// or backtesting, along with the minimum required count.
type InsufficientDataError struct {
	Op       string
	Got      int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: got %d bars, need %d", e.Op, e.Got, e.Required)
}

// NewInsufficientData builds an InsufficientDataError for an operation.
func NewInsufficientData(op string, got, required int) error {
	return &InsufficientDataError{Op: op, Got: got, Required: required}
}

// IsInsufficientData reports whether err wraps an InsufficientDataError.
func IsInsufficientData(err error) bool {
	var ie *InsufficientDataError
	return errors.As(err, &ie)
}
