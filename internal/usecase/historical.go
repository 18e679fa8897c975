package usecase

import (
	"context"
	"time"

	"MarketLab/internal/domain/models"
	"MarketLab/internal/domain/repository"
	"MarketLab/internal/histcache"
)

// HistoricalUseCase provides business logic for cached market history.
type HistoricalUseCase struct {
	cache        *histcache.Cache
	metrics      repository.Metrics
	batchWorkers int
	batchTimeout time.Duration
}

func NewHistoricalUseCase(cache *histcache.Cache, metrics repository.Metrics, batchWorkers int, batchTimeout time.Duration) *HistoricalUseCase {
	if batchWorkers <= 0 {
		batchWorkers = 4
	}
	if batchTimeout <= 0 {
		batchTimeout = 2 * time.Minute
	}
	return &HistoricalUseCase{
		cache:        cache,
		metrics:      metrics,
		batchWorkers: batchWorkers,
		batchTimeout: batchTimeout,
	}
}

func (uc *HistoricalUseCase) Get(ctx context.Context, req models.HistoricalRequest) (*models.HistoricalResult, error) {
	started := time.Now()
	interval := string(repository.NormalizeInterval(req.Interval))
	result, err := uc.cache.Get(ctx, req.Symbol, req.Period, interval)
	uc.metrics.RecordLatency("historical_get", time.Since(started).Seconds())
	return result, err
}

func (uc *HistoricalUseCase) BatchDownload(ctx context.Context, req models.BatchDownloadRequest) *models.BatchResult {
	started := time.Now()
	interval := string(repository.NormalizeInterval(req.Interval))
	result := uc.cache.BatchDownload(ctx, req.Symbols, req.Period, interval, uc.batchWorkers, uc.batchTimeout)
	uc.metrics.RecordLatency("historical_batch", time.Since(started).Seconds())
	return result
}

func (uc *HistoricalUseCase) Statistics(ctx context.Context) *models.CacheStatistics {
	return uc.cache.Statistics(ctx)
}
