package repository

import "time"

// Interval is a supported bar interval.
type Interval string

const (
	Interval1h Interval = "1h"
	Interval1d Interval = "1d"
	Interval1w Interval = "1wk"
)

// IsValidInterval returns true if iv is a supported interval.
func IsValidInterval(iv Interval) bool {
	switch iv {
	case Interval1h, Interval1d, Interval1w:
		return true
	default:
		return false
	}
}

// DefaultInterval returns the default interval.
func DefaultInterval() Interval { return Interval1d }

// NormalizeInterval converts raw string to a valid interval (or default).
func NormalizeInterval(s string) Interval {
	if s == "" {
		return DefaultInterval()
	}
	iv := Interval(s)
	if IsValidInterval(iv) {
		return iv
	}
	return DefaultInterval()
}

// IntervalDuration returns the nominal duration of one bar.
func IntervalDuration(iv Interval) time.Duration {
	switch iv {
	case Interval1h:
		return time.Hour
	case Interval1w:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// BarsPerYear returns the approximate number of trading bars per year for an
// interval, used for Sharpe annualization and volatility scaling.
func BarsPerYear(iv Interval) float64 {
	switch iv {
	case Interval1h:
		return 252 * 6.5
	case Interval1w:
		return 52
	default:
		return 252
	}
}

// PeriodDuration maps a period token ("1mo", "1y", ...) to a duration.
// Unknown tokens fall back to one month.
func PeriodDuration(period string) time.Duration {
	const day = 24 * time.Hour
	switch period {
	case "5d":
		return 5 * day
	case "1mo":
		return 30 * day
	case "3mo":
		return 90 * day
	case "6mo":
		return 180 * day
	case "1y":
		return 365 * day
	case "2y":
		return 2 * 365 * day
	case "5y":
		return 5 * 365 * day
	default:
		return 30 * day
	}
}
