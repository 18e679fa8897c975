package di

import (
	"context"
	"fmt"
	"time"

	"MarketLab/internal/backtest"
	"MarketLab/internal/domain/repository"
	"MarketLab/internal/features"
	"MarketLab/internal/handler/api"
	"MarketLab/internal/histcache"
	"MarketLab/internal/predictor"
	internalrepo "MarketLab/internal/repository"
	"MarketLab/internal/source"
	"MarketLab/internal/strategy"
	"MarketLab/internal/usecase"
	pkgcache "MarketLab/pkg/cache"
	pkgch "MarketLab/pkg/clickhouse"
	"MarketLab/pkg/config"
	xhttp "MarketLab/pkg/http"
	pkgkafka "MarketLab/pkg/kafka"
	applogger "MarketLab/pkg/logger"
	"MarketLab/pkg/metrics"
	"MarketLab/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideEntryCache creates the cache-entry store: in-memory only, or layered
// over Redis when enabled so entries survive restarts and are shared across
// replicas.
func ProvideEntryCache(cfg *config.Config) (pkgcache.Service, error) {
	memOpts := []pkgcache.MemoryOption{
		pkgcache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
	}
	if !cfg.Cache.Redis.Enabled {
		return pkgcache.NewMemoryCache(memOpts...), nil
	}
	redisCache, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(cfg.Cache.Redis.Host, cfg.Cache.Redis.Port),
		pkgcache.WithRedisAuth(cfg.Cache.Redis.Password, cfg.Cache.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(redisCache, memOpts...), nil
}

// ProvideClickHouseClient creates the ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideBarStore creates the durable bar store and ensures its schema.
func ProvideBarStore(ch *pkgch.Client, l *applogger.Logger) (repository.BarStore, error) {
	store := internalrepo.NewCHBarStore(ch, l)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("bar store schema: %w", err)
	}
	return store, nil
}

// ProvideArtifactStore creates the model-artifact store and ensures its schema.
func ProvideArtifactStore(ch *pkgch.Client, l *applogger.Logger) (repository.ArtifactStore, error) {
	store := internalrepo.NewCHArtifactStore(ch, l)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("artifact store schema: %w", err)
	}
	return store, nil
}

// ProvideEventPublisher creates the Kafka event publisher, or a no-op when
// Kafka is disabled.
func ProvideEventPublisher(cfg *config.Config, l *applogger.Logger) (repository.EventPublisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopEventPublisher{}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.EventsTopic, l), nil
}

// ProvideSources builds the ordered fallback chain of quote providers.
func ProvideSources(cfg *config.Config) ([]source.Source, error) {
	sources := make([]source.Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		switch sc.Name {
		case "yahoo":
			sources = append(sources, source.NewYahooSource(sc.BaseURL, sc.Timeout))
		case "alphavantage":
			sources = append(sources, source.NewAlphaVantageSource(sc.BaseURL, sc.APIKey, sc.Timeout))
		default:
			return nil, fmt.Errorf("unknown source %q", sc.Name)
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one source required")
	}
	return sources, nil
}

// ProvideHistoricalCache wires the TTL cache over the entry store, durable
// bar store and source chain.
func ProvideHistoricalCache(
	cfg *config.Config,
	entries pkgcache.Service,
	bars repository.BarStore,
	sources []source.Source,
	l *applogger.Logger,
	m repository.Metrics,
	events repository.EventPublisher,
) *histcache.Cache {
	return histcache.New(entries, bars, sources, l, m,
		histcache.WithTTL(cfg.Cache.TTL),
		histcache.WithEvents(events),
	)
}

// ProvideEngineer creates the feature engineer from the window configuration.
func ProvideEngineer(cfg *config.Config) (*features.Engineer, error) {
	return features.NewEngineer(features.Config{
		Lookback:     cfg.Features.Lookback,
		RSIPeriod:    cfg.Features.RSIPeriod,
		MACDFast:     cfg.Features.MACDFast,
		MACDSlow:     cfg.Features.MACDSlow,
		MACDSignal:   cfg.Features.MACDSignal,
		BollPeriod:   cfg.Features.BollPeriod,
		ATRPeriod:    cfg.Features.ATRPeriod,
		VolumeWindow: cfg.Features.VolumeWindow,
	})
}

// ProvideEnsemble creates the ensemble predictor bound to the feature schema.
func ProvideEnsemble(cfg *config.Config, engineer *features.Engineer, artifacts repository.ArtifactStore, l *applogger.Logger) *predictor.Ensemble {
	return predictor.NewEnsemble(predictor.Config{
		MinTrainBars:  cfg.Predictor.MinTrainBars,
		StaleAfter:    cfg.Predictor.StaleAfter,
		Seed:          cfg.Predictor.Seed,
		FlatThreshold: cfg.Predictor.FlatThreshold,
		SchemaVersion: engineer.SchemaVersion(),
	}, artifacts, l)
}

// ProvideStrategies creates the default strategy registry.
func ProvideStrategies() *strategy.Registry {
	return strategy.NewRegistry(strategy.DefaultConfig())
}

// ProvideSimulator creates the backtest simulator.
func ProvideSimulator(engineer *features.Engineer, l *applogger.Logger) *backtest.Simulator {
	return backtest.NewSimulator(engineer, l)
}

// ProvideHistoricalUseCase creates the historical usecase.
func ProvideHistoricalUseCase(cfg *config.Config, cache *histcache.Cache, m repository.Metrics) *usecase.HistoricalUseCase {
	return usecase.NewHistoricalUseCase(cache, m, cfg.Cache.BatchWorkers, cfg.Cache.BatchTimeout)
}

// ProvidePredictionUseCase creates the prediction usecase.
func ProvidePredictionUseCase(
	cfg *config.Config,
	cache *histcache.Cache,
	engineer *features.Engineer,
	ensemble *predictor.Ensemble,
	artifacts repository.ArtifactStore,
	events repository.EventPublisher,
	l *applogger.Logger,
) *usecase.PredictionUseCase {
	return usecase.NewPredictionUseCase(cache, engineer, ensemble, artifacts, events, l, cfg.Predictor.TrainTimeout)
}

// ProvideBacktestUseCase creates the backtest usecase.
func ProvideBacktestUseCase(
	cfg *config.Config,
	cache *histcache.Cache,
	simulator *backtest.Simulator,
	strategies *strategy.Registry,
	ensemble *predictor.Ensemble,
	m repository.Metrics,
) *usecase.BacktestUseCase {
	return usecase.NewBacktestUseCase(cache, simulator, strategies, ensemble, m, cfg.Backtest.FeeRate, cfg.Backtest.SlippageBps)
}

// ProvideRouter aggregates all HTTP handlers.
func ProvideRouter(
	l *applogger.Logger,
	historical *usecase.HistoricalUseCase,
	prediction *usecase.PredictionUseCase,
	bt *usecase.BacktestUseCase,
	bars repository.BarStore,
) xhttp.Handler {
	return api.NewRouter(
		api.NewHistoricalHandler(l, historical),
		api.NewPredictionHandler(l, prediction),
		api.NewBacktestHandler(l, bt),
		api.NewHealthHandler(bars),
	)
}

// ProvideApp assembles the application with its lifecycle dependencies.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	router xhttp.Handler,
	entries pkgcache.Service,
	bars repository.BarStore,
	events repository.EventPublisher,
) *server.App {
	return server.New(cfg, l, router, entries, bars, events)
}
