package histcache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"MarketLab/internal/domain"
	"MarketLab/internal/domain/models"
	"MarketLab/internal/source"
	pkgcache "MarketLab/pkg/cache"
	xlogger "MarketLab/pkg/logger"
)

type fakeSource struct {
	name  string
	mu    sync.Mutex
	calls int
	bars  []models.Bar
	err   error
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Fetch(_ context.Context, _, _, _ string) ([]models.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.bars, nil
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *fakeSource) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *fakeSource) setBars(bars []models.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bars = bars
	s.err = nil
}

type memBarStore struct {
	mu   sync.Mutex
	bars []models.Bar
}

func (m *memBarStore) Init(context.Context) error { return nil }
func (m *memBarStore) StoreBars(_ context.Context, bars []models.Bar, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars = append(m.bars, bars...)
	return nil
}
func (m *memBarStore) QueryBars(_ context.Context, symbol, _ string, limit int) ([]models.Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Bar
	for _, b := range m.bars {
		if b.Symbol == symbol {
			out = append(out, b)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
func (m *memBarStore) CountBars(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bars), nil
}
func (m *memBarStore) Health(context.Context) error { return nil }
func (m *memBarStore) Close() error                 { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordCacheHit(string)         {}
func (nopMetrics) RecordCacheMiss(string)        {}
func (nopMetrics) RecordSourceFailure(string)    {}
func (nopMetrics) RecordStaleServed(string)      {}
func (nopMetrics) RecordStoredBars(int)          {}
func (nopMetrics) RecordLatency(string, float64) {}

func makeBars(symbol string, start time.Time, n int) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		price := 100 + float64(i)
		bars[i] = models.Bar{
			Symbol:    symbol,
			Timestamp: start.Add(time.Duration(i) * 24 * time.Hour),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price + 0.5,
			Volume:    1000,
		}
	}
	return bars
}

func newTestCache(sources []source.Source, opts ...Option) *Cache {
	return newTestCacheWithStore(&memBarStore{}, sources, opts...)
}

func newTestCacheWithStore(store *memBarStore, sources []source.Source, opts ...Option) *Cache {
	return New(pkgcache.NewMemoryCache(), store, sources, xlogger.Nop(), nopMetrics{}, opts...)
}

func TestGetIdempotentWithinTTL(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	primary := &fakeSource{name: "primary", bars: makeBars("XYZ", start, 22)}
	c := newTestCache([]source.Source{primary})

	first, err := c.Get(context.Background(), "XYZ", "1mo", "1d")
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	if first.DataPoints != 22 {
		t.Fatalf("expected 22 bars, got %d", first.DataPoints)
	}

	second, err := c.Get(context.Background(), "XYZ", "1mo", "1d")
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if !reflect.DeepEqual(first.Bars, second.Bars) {
		t.Fatalf("cached bars differ between calls")
	}
	if got := primary.callCount(); got != 1 {
		t.Fatalf("expected 1 upstream fetch, got %d", got)
	}

	stats := c.Statistics(context.Background())
	if stats.EntryCount != 1 {
		t.Fatalf("expected 1 entry, got %d", stats.EntryCount)
	}
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("expected 1 hit / 1 miss, got %d / %d", stats.Hits, stats.Misses)
	}
}

func TestFallbackActivation(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	primary := &fakeSource{name: "primary", err: errors.New("timeout")}
	secondary := &fakeSource{name: "secondary", bars: makeBars("ABC", start, 10)}
	c := newTestCache([]source.Source{primary, secondary})

	res, err := c.Get(context.Background(), "ABC", "1mo", "1d")
	if err != nil {
		t.Fatalf("expected fallback success, got %v", err)
	}
	if res.Source != "secondary" {
		t.Fatalf("expected secondary source, got %q", res.Source)
	}
	if primary.callCount() != 1 || secondary.callCount() != 1 {
		t.Fatalf("unexpected call counts: primary=%d secondary=%d", primary.callCount(), secondary.callCount())
	}
}

func TestDataUnavailableWithoutCache(t *testing.T) {
	primary := &fakeSource{name: "primary", err: errors.New("down")}
	c := newTestCache([]source.Source{primary})

	_, err := c.Get(context.Background(), "NOPE", "1mo", "1d")
	if !errors.Is(err, domain.ErrDataUnavailable) {
		t.Fatalf("expected DataUnavailable, got %v", err)
	}
}

func TestStaleServeOnSourceExhaustion(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	primary := &fakeSource{name: "primary", bars: makeBars("XYZ", start, 5)}
	// Entries are retained past expiry (the stale-serve window), so the TTL
	// just has to elapse before the second lookup.
	c := newTestCache([]source.Source{primary}, WithTTL(200*time.Millisecond))

	if _, err := c.Get(context.Background(), "XYZ", "5d", "1d"); err != nil {
		t.Fatalf("seed get: %v", err)
	}
	time.Sleep(250 * time.Millisecond)
	primary.setErr(errors.New("down"))

	res, err := c.Get(context.Background(), "XYZ", "5d", "1d")
	if err != nil {
		t.Fatalf("expected stale serve, got %v", err)
	}
	if !res.Stale {
		t.Fatalf("expected stale flag")
	}
	if res.DataPoints != 5 {
		t.Fatalf("expected retained bars, got %d", res.DataPoints)
	}
}

func TestMonotonicCoverageOnRefresh(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	primary := &fakeSource{name: "primary", bars: makeBars("XYZ", start, 10)}
	c := newTestCache([]source.Source{primary}, WithTTL(200*time.Millisecond))

	first, err := c.Get(context.Background(), "XYZ", "1mo", "1d")
	if err != nil {
		t.Fatalf("seed get: %v", err)
	}
	time.Sleep(250 * time.Millisecond)

	// The refreshed payload starts later and overlaps the tail of the first:
	// coverage must grow to the union, never shrink to the new window.
	primary.setBars(makeBars("XYZ", start.Add(5*24*time.Hour), 10))

	second, err := c.Get(context.Background(), "XYZ", "1mo", "1d")
	if err != nil {
		t.Fatalf("refresh get: %v", err)
	}
	if second.DataPoints != 15 {
		t.Fatalf("expected union of 15 bars, got %d", second.DataPoints)
	}
	if !second.Bars[0].Timestamp.Equal(first.Bars[0].Timestamp) {
		t.Fatalf("coverage start moved forward: %v -> %v", first.Bars[0].Timestamp, second.Bars[0].Timestamp)
	}
	for i := 1; i < len(second.Bars); i++ {
		if !second.Bars[i-1].Timestamp.Before(second.Bars[i].Timestamp) {
			t.Fatalf("bars not strictly ascending at %d", i)
		}
	}
}

func TestConcurrentGetSingleFetch(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	primary := &fakeSource{name: "primary", bars: makeBars("XYZ", start, 22)}
	c := newTestCache([]source.Source{primary})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Get(context.Background(), "XYZ", "1mo", "1d"); err != nil {
				t.Errorf("concurrent get: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := primary.callCount(); got != 1 {
		t.Fatalf("expected a single in-flight fetch, got %d", got)
	}
}

type selectiveSource struct {
	name string
	bars map[string][]models.Bar
}

func (s *selectiveSource) Name() string { return s.name }

func (s *selectiveSource) Fetch(_ context.Context, symbol, _, _ string) ([]models.Bar, error) {
	bars, ok := s.bars[symbol]
	if !ok {
		return nil, fmt.Errorf("no data for %s", symbol)
	}
	return bars, nil
}

func TestBatchDownloadPartialFailure(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	primary := &selectiveSource{
		name: "primary",
		bars: map[string][]models.Bar{
			"GOOD": makeBars("GOOD", start, 10),
			"ALSO": makeBars("ALSO", start, 10),
		},
	}
	c := newTestCache([]source.Source{primary})

	res := c.BatchDownload(context.Background(), []string{"GOOD", "BAD", "ALSO"}, "1mo", "1d", 2, time.Minute)
	if len(res.Succeeded) != 2 {
		t.Fatalf("expected 2 successes, got %v", res.Succeeded)
	}
	if len(res.Failed) != 1 || res.Failed[0].Symbol != "BAD" {
		t.Fatalf("expected BAD to fail, got %v", res.Failed)
	}
	if res.Failed[0].Reason == "" {
		t.Fatalf("expected failure reason to be populated")
	}
}

func TestColdStartServesDurableHistory(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	store := &memBarStore{}
	if err := store.StoreBars(context.Background(), makeBars("XYZ", start, 12), "1d"); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	down := &fakeSource{name: "primary", err: errors.New("upstream down")}
	c := newTestCacheWithStore(store, []source.Source{down})

	res, err := c.Get(context.Background(), "XYZ", "1mo", "1d")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !res.Stale {
		t.Fatalf("expected durable fallback to be flagged stale")
	}
	if res.Source != "store" {
		t.Fatalf("source = %q, want store", res.Source)
	}
	if res.DataPoints != 12 {
		t.Fatalf("got %d bars, want 12", res.DataPoints)
	}
}

func TestRefreshReusesCommittedEntry(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	down := &fakeSource{name: "primary", err: errors.New("upstream down")}
	c := newTestCache([]source.Source{down})

	// Another writer commits between the caller's miss and its refresh.
	key := cacheKey{Symbol: "XYZ", Period: "1mo", Interval: "1d"}
	now := time.Now().UTC()
	committed := &models.CacheEntry{
		Symbol:    "XYZ",
		Period:    "1mo",
		Interval:  "1d",
		Bars:      makeBars("XYZ", start, 8),
		FetchedAt: now,
		ExpiresAt: now.Add(time.Hour),
		Source:    "other",
	}
	if err := c.entries.Set(context.Background(), key.String(), committed, time.Hour); err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	entry, err := c.refresh(context.Background(), key, nil)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(entry.Bars) != 8 || entry.Source != "other" {
		t.Fatalf("expected the committed entry, got %+v", entry)
	}
	if down.callCount() != 0 {
		t.Fatalf("expected no upstream fetch, got %d", down.callCount())
	}
}
