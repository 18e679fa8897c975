package usecase

import (
	"context"
	"fmt"
	"time"

	"MarketLab/internal/backtest"
	"MarketLab/internal/domain/models"
	"MarketLab/internal/domain/repository"
	"MarketLab/internal/histcache"
	"MarketLab/internal/predictor"
	"MarketLab/internal/strategy"
	"MarketLab/pkg/util"
)

// BacktestUseCase runs strategy replays over cached history. Runs share only
// the read-only cache, so independent requests execute concurrently.
type BacktestUseCase struct {
	cache       *histcache.Cache
	simulator   *backtest.Simulator
	strategies  *strategy.Registry
	ensemble    *predictor.Ensemble
	metrics     repository.Metrics
	feeRate     float64
	slippageBps float64
}

func NewBacktestUseCase(
	cache *histcache.Cache,
	simulator *backtest.Simulator,
	strategies *strategy.Registry,
	ensemble *predictor.Ensemble,
	metrics repository.Metrics,
	feeRate, slippageBps float64,
) *BacktestUseCase {
	return &BacktestUseCase{
		cache:       cache,
		simulator:   simulator,
		strategies:  strategies,
		ensemble:    ensemble,
		metrics:     metrics,
		feeRate:     feeRate,
		slippageBps: slippageBps,
	}
}

// Run resolves the strategy, loads bars for the requested range and replays.
// ML strategies predict through the live ensemble; an untrained model
// surfaces ModelNotReady rather than silently running without signals.
func (uc *BacktestUseCase) Run(ctx context.Context, req models.BacktestRequest) (*models.BacktestRun, error) {
	strat, err := uc.strategies.Get(req.Strategy)
	if err != nil {
		return nil, err
	}
	start, ok := util.ParseTime(req.StartDate)
	if !ok {
		return nil, fmt.Errorf("invalid start date %q", req.StartDate)
	}
	// An omitted end date runs the replay up to the latest cached bar.
	end := util.ParseTimeDefault(req.EndDate, time.Now().UTC())
	if !start.Before(end) {
		return nil, fmt.Errorf("start date must precede end date")
	}

	interval := string(repository.NormalizeInterval(req.Interval))
	hist, err := uc.cache.Get(ctx, req.Symbol, req.Period, interval)
	if err != nil {
		return nil, err
	}
	// Align the window's start down to a bar boundary so a mid-session start
	// timestamp still includes that bar.
	bars := filterRange(hist.Bars, util.AlignToInterval(start, interval), end)

	in := backtest.Input{
		Symbol:       req.Symbol,
		Bars:         bars,
		Strategy:     strat,
		StartCapital: req.StartCapital,
		FeeRate:      uc.feeRate,
		SlippageBps:  uc.slippageBps,
		BarsPerYear:  repository.BarsPerYear(repository.Interval(interval)),
	}
	if strat.UsesPrediction() {
		in.HorizonDays = 1
		in.Predict = uc.ensemble.Predict
	}

	started := time.Now()
	run, err := uc.simulator.Run(ctx, in)
	uc.metrics.RecordLatency("backtest", time.Since(started).Seconds())
	return run, err
}

// filterRange keeps bars within [start, end] inclusive. Bars are already
// chronological so a single scan suffices.
func filterRange(bars []models.Bar, start, end time.Time) []models.Bar {
	out := make([]models.Bar, 0, len(bars))
	for _, b := range bars {
		if b.Timestamp.Before(start) {
			continue
		}
		if b.Timestamp.After(end) {
			break
		}
		out = append(out, b)
	}
	return out
}
