package usecase

import (
	"context"
	"testing"
	"time"

	"MarketLab/internal/backtest"
	"MarketLab/internal/domain/models"
	"MarketLab/internal/features"
	"MarketLab/internal/histcache"
	"MarketLab/internal/predictor"
	"MarketLab/internal/source"
	"MarketLab/internal/strategy"
	pkgcache "MarketLab/pkg/cache"
	xlogger "MarketLab/pkg/logger"
)

func newTestBacktestUseCase(t *testing.T, bars []models.Bar) *BacktestUseCase {
	t.Helper()
	eng, err := features.NewEngineer(features.DefaultConfig())
	if err != nil {
		t.Fatalf("engineer: %v", err)
	}
	cache := histcache.New(
		pkgcache.NewMemoryCache(),
		stubBarStore{},
		[]source.Source{&stubSource{bars: bars}},
		xlogger.Nop(),
		stubMetrics{},
	)
	ensemble := predictor.NewEnsemble(predictor.Config{
		SchemaVersion: eng.SchemaVersion(),
	}, &stubArtifactStore{}, xlogger.Nop())
	return NewBacktestUseCase(
		cache,
		backtest.NewSimulator(eng, xlogger.Nop()),
		strategy.NewRegistry(strategy.DefaultConfig()),
		ensemble,
		stubMetrics{},
		0.001, 5,
	)
}

func TestBacktestRunDefaultsOpenEndDate(t *testing.T) {
	bars := syntheticBars("TEST", 300)
	uc := newTestBacktestUseCase(t, bars)

	run, err := uc.Run(context.Background(), models.BacktestRequest{
		Symbol:       "TEST",
		Strategy:     "momentum",
		StartCapital: 100000,
		StartDate:    "2023-01-02",
		Period:       "2y",
		Interval:     "1d",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// Without an end date the replay covers the full cached range.
	if !run.EndDate.Equal(bars[len(bars)-1].Timestamp) {
		t.Fatalf("end date %v, want last bar %v", run.EndDate, bars[len(bars)-1].Timestamp)
	}
	if len(run.EquityCurve) == 0 {
		t.Fatalf("expected a populated equity curve")
	}
}

func TestBacktestAlignsStartToBarBoundary(t *testing.T) {
	bars := syntheticBars("TEST", 300)
	uc := newTestBacktestUseCase(t, bars)

	// A mid-day start timestamp must still include that day's bar.
	start := bars[0].Timestamp.Add(6 * time.Hour).Format(time.RFC3339)
	run, err := uc.Run(context.Background(), models.BacktestRequest{
		Symbol:       "TEST",
		Strategy:     "momentum",
		StartCapital: 100000,
		StartDate:    start,
		Period:       "2y",
		Interval:     "1d",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !run.StartDate.Equal(bars[0].Timestamp) {
		t.Fatalf("replay starts at %v, want %v", run.StartDate, bars[0].Timestamp)
	}
}

func TestBacktestUnknownStrategy(t *testing.T) {
	uc := newTestBacktestUseCase(t, syntheticBars("TEST", 300))
	_, err := uc.Run(context.Background(), models.BacktestRequest{
		Symbol:       "TEST",
		Strategy:     "martingale",
		StartCapital: 100000,
		StartDate:    "2023-01-02",
		Period:       "2y",
		Interval:     "1d",
	})
	if err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}
