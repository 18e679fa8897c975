package models

import "time"

// Bar is one OHLCV sample for a symbol at a given timestamp/interval.
// Bars are immutable once cached.
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Source    string    `json:"-"`
}

// CacheEntry is the cached bar sequence for one (symbol, period, interval) key.
type CacheEntry struct {
	Symbol    string    `json:"symbol"`
	Period    string    `json:"period"`
	Interval  string    `json:"interval"`
	Bars      []Bar     `json:"bars"`
	FetchedAt time.Time `json:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Source    string    `json:"source"`
}

// Expired reports whether the entry has passed its TTL at the given instant.
func (e *CacheEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// HistoricalResult is the outcome of a cache lookup: the bar sequence plus a
// staleness flag set when an expired entry was served because every source in
// the fallback chain failed.
type HistoricalResult struct {
	Symbol     string    `json:"symbol"`
	Period     string    `json:"period"`
	Interval   string    `json:"interval"`
	Bars       []Bar     `json:"data"`
	DataPoints int       `json:"dataPoints"`
	Stale      bool      `json:"stale,omitempty"`
	FetchedAt  time.Time `json:"fetchedAt"`
	Source     string    `json:"source"`
}

// BatchFailure records one symbol that could not be downloaded in a batch.
type BatchFailure struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// BatchResult collects per-symbol outcomes of a bulk download. One symbol's
// failure never aborts the batch.
type BatchResult struct {
	Succeeded []string       `json:"succeeded"`
	Failed    []BatchFailure `json:"failed"`
}

// SymbolAge reports the age of one cached entry for statistics.
type SymbolAge struct {
	Symbol    string    `json:"symbol"`
	Period    string    `json:"period"`
	Interval  string    `json:"interval"`
	AgeSec    int64     `json:"ageSeconds"`
	BarCount  int       `json:"barCount"`
	Stale     bool      `json:"stale"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// CacheStatistics is a health snapshot of the historical cache.
type CacheStatistics struct {
	Hits       int64       `json:"hits"`
	Misses     int64       `json:"misses"`
	HitRate    float64     `json:"hitRate"`
	EntryCount int         `json:"entryCount"`
	TotalBars  int         `json:"totalBars"`
	PerSymbol  []SymbolAge `json:"perSymbolAge"`
}
