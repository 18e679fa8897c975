package histcache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"MarketLab/internal/domain"
	"MarketLab/internal/domain/models"
	domrepo "MarketLab/internal/domain/repository"
	"MarketLab/internal/source"
	pkgcache "MarketLab/pkg/cache"
	xlogger "MarketLab/pkg/logger"
)

const writeLockTTL = 30 * time.Second

// Cache is the tiered historical-data cache. Entries live in the entry store
// (memory/redis) under a TTL; bars are also appended to the durable bar store.
// On miss or expiry the ordered source chain is walked; if every source fails
// an expired entry is served flagged stale instead of failing the caller.
type Cache struct {
	entries pkgcache.Service
	bars    domrepo.BarStore
	sources []source.Source
	ttl     time.Duration
	logger  *xlogger.Logger
	metrics domrepo.Metrics
	events  domrepo.EventPublisher

	hits   atomic.Int64
	misses atomic.Int64

	mu       sync.Mutex
	inflight map[string]*fetchCall
	index    map[string]cacheKey
}

type cacheKey struct {
	Symbol   string
	Period   string
	Interval string
}

func (k cacheKey) String() string {
	return pkgcache.Key("hist", strings.ToUpper(k.Symbol), k.Period, k.Interval)
}

// fetchCall is one in-flight refresh; concurrent callers for the same key
// wait on done and share the result instead of hitting upstream twice.
type fetchCall struct {
	done  chan struct{}
	entry *models.CacheEntry
	err   error
}

// Option configures Cache.
type Option func(*Cache)

// WithTTL sets the entry time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithEvents sets the refresh event publisher.
func WithEvents(events domrepo.EventPublisher) Option {
	return func(c *Cache) {
		c.events = events
	}
}

// New creates a historical cache over the given entry store, durable bar
// store and ordered source chain.
func New(entries pkgcache.Service, bars domrepo.BarStore, sources []source.Source, logger *xlogger.Logger, metrics domrepo.Metrics, opts ...Option) *Cache {
	c := &Cache{
		entries:  entries,
		bars:     bars,
		sources:  sources,
		ttl:      24 * time.Hour,
		logger:   logger,
		metrics:  metrics,
		inflight: make(map[string]*fetchCall),
		index:    make(map[string]cacheKey),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached bar sequence for (symbol, period, interval),
// refreshing through the source chain on miss or expiry.
func (c *Cache) Get(ctx context.Context, symbol, period, interval string) (*models.HistoricalResult, error) {
	key := cacheKey{Symbol: symbol, Period: period, Interval: interval}

	entry := c.loadEntry(ctx, key)
	if entry != nil && !entry.Expired(time.Now()) {
		c.hits.Add(1)
		c.metrics.RecordCacheHit(symbol)
		return resultFromEntry(entry, false), nil
	}

	c.misses.Add(1)
	c.metrics.RecordCacheMiss(symbol)

	fresh, err := c.refresh(ctx, key, entry)
	if err == nil {
		return resultFromEntry(fresh, false), nil
	}

	// All sources failed: serve the expired entry flagged stale if we have
	// one, otherwise fall back to durable history before failing outright.
	if entry != nil {
		c.logger.Warn("serving stale cache entry",
			xlogger.String("symbol", symbol),
			xlogger.Error(err),
		)
		c.metrics.RecordStaleServed(symbol)
		return resultFromEntry(entry, true), nil
	}

	if stored := c.durableHistory(ctx, key); stored != nil {
		c.logger.Warn("serving durable history on cold start",
			xlogger.String("symbol", symbol),
			xlogger.Int("bars", stored.DataPoints),
			xlogger.Error(err),
		)
		c.metrics.RecordStaleServed(symbol)
		return stored, nil
	}

	return nil, fmt.Errorf("%w: %s %s/%s: %v", domain.ErrDataUnavailable, symbol, period, interval, err)
}

// refresh walks the source chain once per key, deduplicating concurrent
// callers, and commits the winning payload with write-then-publish semantics.
func (c *Cache) refresh(ctx context.Context, key cacheKey, prev *models.CacheEntry) (*models.CacheEntry, error) {
	c.mu.Lock()
	if call, ok := c.inflight[key.String()]; ok {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.entry, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &fetchCall{done: make(chan struct{})}
	c.inflight[key.String()] = call
	c.mu.Unlock()

	// A refresh that committed and deregistered between our miss and this
	// call registering would make the fetch redundant; re-check the entry
	// store before walking the chain.
	if entry := c.loadEntry(ctx, key); entry != nil && !entry.Expired(time.Now()) {
		call.entry = entry
		close(call.done)
		c.mu.Lock()
		delete(c.inflight, key.String())
		c.mu.Unlock()
		return entry, nil
	}

	call.entry, call.err = c.fetchAndCommit(ctx, key, prev)
	close(call.done)

	c.mu.Lock()
	delete(c.inflight, key.String())
	c.mu.Unlock()

	return call.entry, call.err
}

func (c *Cache) fetchAndCommit(ctx context.Context, key cacheKey, prev *models.CacheEntry) (*models.CacheEntry, error) {
	bars, src, err := c.fetchChain(ctx, key)
	if err != nil {
		return nil, err
	}

	// Cross-process single-writer rule: only the lock holder publishes the
	// new entry. Losing the lock means another process just refreshed; fall
	// back to its entry.
	lockKey := key.String() + ":lock"
	if acquired, lockErr := c.entries.TryLock(ctx, lockKey, writeLockTTL); lockErr == nil && !acquired {
		if entry := c.loadEntry(ctx, key); entry != nil && !entry.Expired(time.Now()) {
			return entry, nil
		}
	} else if lockErr == nil {
		defer func() { _ = c.entries.Unlock(context.WithoutCancel(ctx), lockKey) }()
	}

	merged := mergeBars(prev, bars)

	now := time.Now().UTC()
	entry := &models.CacheEntry{
		Symbol:    key.Symbol,
		Period:    key.Period,
		Interval:  key.Interval,
		Bars:      merged,
		FetchedAt: now,
		ExpiresAt: now.Add(c.ttl),
		Source:    src,
	}

	if err := c.entries.Set(ctx, key.String(), entry, c.ttl+c.ttl); err != nil {
		return nil, fmt.Errorf("store cache entry: %w", err)
	}

	c.mu.Lock()
	c.index[key.String()] = key
	c.mu.Unlock()

	// Durable history is append-only; failures here degrade durability, not
	// the lookup.
	if err := c.bars.StoreBars(ctx, bars, key.Interval); err != nil {
		c.logger.Error("store bars failed", xlogger.String("symbol", key.Symbol), xlogger.Error(err))
	}
	if total, err := c.bars.CountBars(ctx); err == nil {
		c.metrics.RecordStoredBars(total)
	}

	if c.events != nil {
		if err := c.events.PublishCacheRefresh(ctx, key.Symbol, key.Period, key.Interval, src, len(bars)); err != nil {
			c.logger.Warn("publish cache refresh event failed", xlogger.Error(err))
		}
	}

	c.logger.Info("cache entry refreshed",
		xlogger.String("symbol", key.Symbol),
		xlogger.String("source", src),
		xlogger.Int("bars", len(merged)),
	)
	return entry, nil
}

// fetchChain tries sources in priority order; the first schema-valid,
// non-empty payload wins. Per-source failures are recorded and recovered
// locally; only exhaustion surfaces.
func (c *Cache) fetchChain(ctx context.Context, key cacheKey) ([]models.Bar, string, error) {
	var failures []source.Failure
	start := time.Now()
	defer func() { c.metrics.RecordLatency("fetch", time.Since(start).Seconds()) }()

	for _, src := range c.sources {
		bars, err := src.Fetch(ctx, key.Symbol, key.Period, key.Interval)
		if err == nil {
			return bars, src.Name(), nil
		}
		c.metrics.RecordSourceFailure(src.Name())
		c.logger.Warn("source fetch failed",
			xlogger.String("source", src.Name()),
			xlogger.String("symbol", key.Symbol),
			xlogger.Error(err),
		)
		failures = append(failures, source.Failure{Source: src.Name(), Err: err, At: time.Now()})
		if ctx.Err() != nil {
			break
		}
	}

	msgs := make([]string, len(failures))
	for i, f := range failures {
		msgs[i] = f.Error()
	}
	return nil, "", fmt.Errorf("%w: all sources failed: %s", domain.ErrSourceFailure, strings.Join(msgs, "; "))
}

// durableHistory serves a cold start from the bar store when the entry store
// is empty and every source is down. The result is flagged stale: coverage is
// whatever previous refreshes persisted, not a fresh upstream payload.
func (c *Cache) durableHistory(ctx context.Context, key cacheKey) *models.HistoricalResult {
	iv := domrepo.NormalizeInterval(key.Interval)
	limit := int(domrepo.PeriodDuration(key.Period)/domrepo.IntervalDuration(iv)) + 1
	bars, err := c.bars.QueryBars(ctx, key.Symbol, string(iv), limit)
	if err != nil {
		c.logger.Warn("durable history read failed",
			xlogger.String("symbol", key.Symbol), xlogger.Error(err))
		return nil
	}
	if len(bars) == 0 {
		return nil
	}
	return &models.HistoricalResult{
		Symbol:     key.Symbol,
		Period:     key.Period,
		Interval:   key.Interval,
		Bars:       bars,
		DataPoints: len(bars),
		Stale:      true,
		FetchedAt:  bars[len(bars)-1].Timestamp,
		Source:     "store",
	}
}

func (c *Cache) loadEntry(ctx context.Context, key cacheKey) *models.CacheEntry {
	var entry models.CacheEntry
	if err := c.entries.Get(ctx, key.String(), &entry); err != nil {
		if !errors.Is(err, pkgcache.ErrCacheMiss) {
			c.logger.Warn("cache entry read failed", xlogger.Error(err))
		}
		return nil
	}
	return &entry
}

// mergeBars unions previously retained history with a fresh payload so the
// cached date range never shrinks on refresh. On duplicate timestamps the
// fresh bar wins.
func mergeBars(prev *models.CacheEntry, fresh []models.Bar) []models.Bar {
	if prev == nil || len(prev.Bars) == 0 {
		return fresh
	}

	seen := make(map[int64]struct{}, len(fresh))
	for _, b := range fresh {
		seen[b.Timestamp.Unix()] = struct{}{}
	}

	merged := make([]models.Bar, 0, len(fresh)+len(prev.Bars))
	merged = append(merged, fresh...)
	for _, b := range prev.Bars {
		if _, ok := seen[b.Timestamp.Unix()]; !ok {
			merged = append(merged, b)
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp.Before(merged[j].Timestamp) })
	return merged
}

func resultFromEntry(entry *models.CacheEntry, stale bool) *models.HistoricalResult {
	return &models.HistoricalResult{
		Symbol:     entry.Symbol,
		Period:     entry.Period,
		Interval:   entry.Interval,
		Bars:       entry.Bars,
		DataPoints: len(entry.Bars),
		Stale:      stale,
		FetchedAt:  entry.FetchedAt,
		Source:     entry.Source,
	}
}
