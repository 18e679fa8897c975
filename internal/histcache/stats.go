package histcache

import (
	"context"
	"sort"
	"time"

	"MarketLab/internal/domain/models"
)

// Statistics reports cache hit/miss counters, per-symbol entry ages and the
// total stored bar count. Used for cache-health reporting, not correctness.
func (c *Cache) Statistics(ctx context.Context) *models.CacheStatistics {
	hits := c.hits.Load()
	misses := c.misses.Load()

	stats := &models.CacheStatistics{
		Hits:      hits,
		Misses:    misses,
		PerSymbol: []models.SymbolAge{},
	}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}

	c.mu.Lock()
	keys := make([]cacheKey, 0, len(c.index))
	for _, k := range c.index {
		keys = append(keys, k)
	}
	c.mu.Unlock()

	now := time.Now()
	for _, k := range keys {
		entry := c.loadEntry(ctx, k)
		if entry == nil {
			continue
		}
		stats.EntryCount++
		stats.PerSymbol = append(stats.PerSymbol, models.SymbolAge{
			Symbol:    entry.Symbol,
			Period:    entry.Period,
			Interval:  entry.Interval,
			AgeSec:    int64(now.Sub(entry.FetchedAt) / time.Second),
			BarCount:  len(entry.Bars),
			Stale:     entry.Expired(now),
			FetchedAt: entry.FetchedAt,
		})
	}
	sort.Slice(stats.PerSymbol, func(i, j int) bool {
		return stats.PerSymbol[i].Symbol < stats.PerSymbol[j].Symbol
	})

	if total, err := c.bars.CountBars(ctx); err == nil {
		stats.TotalBars = total
	}
	return stats
}
