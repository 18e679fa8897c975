//go:build wireinject
// +build wireinject

package di

import (
	"MarketLab/pkg/config"
	"MarketLab/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient infrastructure
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideEntryCache,
		ProvideClickHouseClient,
		ProvideEventPublisher,

		// Repositories
		ProvideBarStore,
		ProvideArtifactStore,

		// Domain components
		ProvideSources,
		ProvideHistoricalCache,
		ProvideEngineer,
		ProvideEnsemble,
		ProvideStrategies,
		ProvideSimulator,

		// Use cases
		ProvideHistoricalUseCase,
		ProvidePredictionUseCase,
		ProvideBacktestUseCase,

		// HTTP surface
		ProvideRouter,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
