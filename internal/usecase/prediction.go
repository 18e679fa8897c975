package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"MarketLab/internal/domain"
	"MarketLab/internal/domain/models"
	"MarketLab/internal/domain/repository"
	"MarketLab/internal/features"
	"MarketLab/internal/histcache"
	"MarketLab/internal/predictor"
	"MarketLab/pkg/logger"
)

// Training pulls a longer window than prediction serving needs; prediction
// only has to cover the feature lookback.
const (
	trainPeriod   = "2y"
	predictPeriod = "1y"
)

// PredictionUseCase orchestrates the cache, feature engineer and ensemble for
// training and serving predictions.
type PredictionUseCase struct {
	cache        *histcache.Cache
	engineer     *features.Engineer
	ensemble     *predictor.Ensemble
	artifacts    repository.ArtifactStore
	events       repository.EventPublisher
	log          *logger.Logger
	trainTimeout time.Duration
}

func NewPredictionUseCase(
	cache *histcache.Cache,
	engineer *features.Engineer,
	ensemble *predictor.Ensemble,
	artifacts repository.ArtifactStore,
	events repository.EventPublisher,
	log *logger.Logger,
	trainTimeout time.Duration,
) *PredictionUseCase {
	if trainTimeout <= 0 {
		trainTimeout = 2 * time.Minute
	}
	return &PredictionUseCase{
		cache:        cache,
		engineer:     engineer,
		ensemble:     ensemble,
		artifacts:    artifacts,
		events:       events,
		log:          log,
		trainTimeout: trainTimeout,
	}
}

// Train fetches history, extracts features and retrains the full ensemble for
// one symbol. The run is bounded by the configured training timeout; on
// timeout nothing is committed.
func (uc *PredictionUseCase) Train(ctx context.Context, req models.TrainRequest) (*models.TrainReport, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.trainTimeout)
	defer cancel()

	vectors, err := uc.featureVectors(ctx, req.Symbol, req.Period, req.Interval)
	if err != nil {
		return nil, err
	}
	report, err := uc.ensemble.Train(ctx, req.Symbol, vectors)
	if err != nil {
		return nil, err
	}
	if uc.events != nil {
		if err := uc.events.PublishRetrain(ctx, report); err != nil {
			uc.log.Warn("retrain event publish failed",
				logger.String("symbol", req.Symbol), logger.Error(err))
		}
	}
	return report, nil
}

// Predict serves an ensemble prediction from the latest feature vector. When
// the model is untrained or stale, mode "train" retrains synchronously and
// retries once; mode "fail" surfaces ModelNotReady to the caller.
func (uc *PredictionUseCase) Predict(ctx context.Context, req models.PredictRequest) (*models.Prediction, error) {
	vectors, err := uc.featureVectors(ctx, req.Symbol, predictPeriod, string(repository.DefaultInterval()))
	if err != nil {
		return nil, err
	}
	latest := vectors[len(vectors)-1]

	pred, err := uc.ensemble.Predict(ctx, req.Symbol, latest, req.Horizon)
	if err == nil {
		return pred, nil
	}
	if !errors.Is(err, domain.ErrModelNotReady) || req.Mode != "train" {
		return nil, err
	}

	uc.log.Info("model not ready, training synchronously",
		logger.String("symbol", req.Symbol))
	if _, err := uc.Train(ctx, models.TrainRequest{
		Symbol:   req.Symbol,
		Period:   trainPeriod,
		Interval: string(repository.DefaultInterval()),
	}); err != nil {
		return nil, fmt.Errorf("synchronous train: %w", err)
	}
	return uc.ensemble.Predict(ctx, req.Symbol, latest, req.Horizon)
}

// ModelHistory lists persisted artifact rows for a symbol, newest first.
func (uc *PredictionUseCase) ModelHistory(ctx context.Context, symbol string, limit int) ([]models.ModelArtifact, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return uc.artifacts.ListArtifacts(ctx, symbol, limit)
}

func (uc *PredictionUseCase) featureVectors(ctx context.Context, symbol, period, interval string) ([]models.FeatureVector, error) {
	interval = string(repository.NormalizeInterval(interval))
	hist, err := uc.cache.Get(ctx, symbol, period, interval)
	if err != nil {
		return nil, err
	}
	return uc.engineer.Compute(hist.Bars)
}
