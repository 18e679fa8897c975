package source

import (
	"context"
	"fmt"
	"time"

	"MarketLab/internal/domain"
	"MarketLab/internal/domain/models"
)

// Source abstracts one external quote provider. Implementations fetch raw
// OHLCV bars for a symbol/period/interval and may fail or rate-limit; the
// cache recovers by trying the next source in its chain.
type Source interface {
	Name() string
	Fetch(ctx context.Context, symbol, period, interval string) ([]models.Bar, error)
}

// Failure records one source's error during a fallback chain walk.
type Failure struct {
	Source string
	Err    error
	At     time.Time
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Source, f.Err)
}

func (f Failure) Unwrap() error { return domain.ErrSourceFailure }

// validateBars rejects payloads that cannot serve as a cache entry: empty
// sequences, non-positive prices, or out-of-order timestamps.
func validateBars(name string, bars []models.Bar) error {
	if len(bars) == 0 {
		return fmt.Errorf("%s returned empty payload", name)
	}
	prev := time.Time{}
	for i, b := range bars {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return fmt.Errorf("%s bar %d has non-positive price", name, i)
		}
		if b.High < b.Low {
			return fmt.Errorf("%s bar %d has high below low", name, i)
		}
		if !b.Timestamp.After(prev) {
			return fmt.Errorf("%s bars not strictly ascending at index %d", name, i)
		}
		prev = b.Timestamp
	}
	return nil
}
