package repository

import (
	"context"

	"MarketLab/internal/domain/models"
)

// BarStore is the durable append-only store of cached bar history.
// Refreshing a key may extend its coverage but never truncates it.
type BarStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	StoreBars(ctx context.Context, bars []models.Bar, interval string) error
	QueryBars(ctx context.Context, symbol, interval string, limit int) ([]models.Bar, error)
	CountBars(ctx context.Context) (int, error)
	Health(ctx context.Context) error
	Close() error
}

// ArtifactStore persists trained model artifacts, one row per
// symbol/family/version, append-on-retrain rather than mutate-in-place.
type ArtifactStore interface {
	Init(ctx context.Context) error
	SaveArtifacts(ctx context.Context, artifacts []models.ModelArtifact) error
	LatestArtifacts(ctx context.Context, symbol string) ([]models.ModelArtifact, error)
	ListArtifacts(ctx context.Context, symbol string, limit int) ([]models.ModelArtifact, error)
	NextVersion(ctx context.Context, symbol string) (int, error)
	Close() error
}

// EventPublisher pushes retrain and cache-refresh events to downstream
// consumers. Publish failures must never fail the triggering operation.
type EventPublisher interface {
	PublishCacheRefresh(ctx context.Context, symbol, period, interval, source string, barCount int) error
	PublishRetrain(ctx context.Context, report *models.TrainReport) error
	Close() error
}

// Metrics records operational counters for cache health and pipeline latency.
type Metrics interface {
	RecordCacheHit(symbol string)
	RecordCacheMiss(symbol string)
	RecordSourceFailure(source string)
	RecordStaleServed(symbol string)
	RecordStoredBars(count int)
	RecordLatency(op string, seconds float64)
}
