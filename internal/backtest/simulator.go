package backtest

import (
	"context"
	"errors"

	"MarketLab/internal/domain"
	"MarketLab/internal/domain/models"
	"MarketLab/internal/features"
	"MarketLab/internal/strategy"
	"MarketLab/pkg/logger"
)

// PredictFunc supplies an ensemble prediction for one feature vector during
// replay. It only sees vectors derived from bars at or before the decision
// bar, so the replay cannot leak future information through the model.
type PredictFunc func(ctx context.Context, symbol string, vec models.FeatureVector, horizonDays int) (*models.Prediction, error)

// Input describes one simulation request. Bars must be chronological and are
// treated as read-only.
type Input struct {
	Symbol       string
	Bars         []models.Bar
	Strategy     strategy.Strategy
	StartCapital float64
	FeeRate      float64
	SlippageBps  float64
	Predict      PredictFunc
	HorizonDays  int
	BarsPerYear  float64
}

// Simulator replays a strategy over cached history, one pass, no shared
// mutable state, so independent runs may execute concurrently.
type Simulator struct {
	engineer *features.Engineer
	log      *logger.Logger
}

// NewSimulator builds a simulator around a feature engineer.
func NewSimulator(engineer *features.Engineer, log *logger.Logger) *Simulator {
	return &Simulator{engineer: engineer, log: log}
}

// Run executes a deterministic single-pass replay. An action decided on bar t
// fills at bar t+1's open with fee and slippage applied, and the position is
// marked to market only from the fill bar onward; the action on the final bar
// has no next open and is discarded. Open positions at the end stay marked to
// market instead of being force-closed.
func (s *Simulator) Run(ctx context.Context, in Input) (*models.BacktestRun, error) {
	if in.StartCapital <= 0 {
		return nil, errors.New("start capital must be positive")
	}
	minBars := s.engineer.Lookback() + 1
	if len(in.Bars) < minBars {
		return nil, domain.NewInsufficientData("backtest", len(in.Bars), minBars)
	}

	vectors, err := s.engineer.Compute(in.Bars)
	if err != nil {
		return nil, err
	}
	// vectors[j] corresponds to bars[lookback+j].
	offset := len(in.Bars) - len(vectors)

	useML := in.Strategy.UsesPrediction() && in.Predict != nil
	slip := in.SlippageBps / 10000

	cash := in.StartCapital
	var quantity float64
	pos := strategy.PositionState{}
	var trades []models.TradeRecord
	var roundTrips []roundTrip
	var entryCost float64
	equity := make([]models.EquityPoint, 0, len(vectors))
	var predHits, predCalls int

	pending := strategy.ActionHold

	for j := range vectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec := vectors[j]
		barIdx := offset + j
		bar := in.Bars[barIdx]

		// Execute the action decided on the previous bar at this bar's open,
		// before this bar contributes to the equity curve.
		switch {
		case pending == strategy.ActionBuy && !pos.InPosition:
			price := bar.Open * (1 + slip)
			qty := cash / (price * (1 + in.FeeRate))
			fee := qty * price * in.FeeRate
			cash -= qty*price + fee
			quantity = qty
			entryCost = qty*price + fee
			pos = strategy.PositionState{InPosition: true, EntryPrice: price}
			trades = append(trades, models.TradeRecord{
				Timestamp: bar.Timestamp, Side: models.SideBuy,
				Quantity: qty, Price: price, Fee: fee,
			})
		case pending == strategy.ActionSell && pos.InPosition:
			price := bar.Open * (1 - slip)
			proceeds := quantity * price
			fee := proceeds * in.FeeRate
			cash += proceeds - fee
			trades = append(trades, models.TradeRecord{
				Timestamp: bar.Timestamp, Side: models.SideSell,
				Quantity: quantity, Price: price, Fee: fee,
			})
			roundTrips = append(roundTrips, roundTrip{cost: entryCost, proceeds: proceeds - fee})
			quantity = 0
			pos = strategy.PositionState{CooldownLeft: in.Strategy.Cooldown()}
		}

		var pred *models.Prediction
		if useML {
			pred, err = in.Predict(ctx, in.Symbol, vec, in.HorizonDays)
			if err != nil {
				return nil, err
			}
			if barIdx+1 < len(in.Bars) && pred.Direction != models.DirectionFlat {
				predCalls++
				realizedUp := in.Bars[barIdx+1].Close > bar.Close
				if (pred.Direction == models.DirectionUp) == realizedUp {
					predHits++
				}
			}
		}

		pending = in.Strategy.Decide(vec, pred, pos)

		if pos.InPosition {
			pos.BarsHeld++
		} else if pos.CooldownLeft > 0 {
			pos.CooldownLeft--
		}
		equity = append(equity, models.EquityPoint{
			Timestamp: vec.Timestamp,
			Equity:    cash + quantity*bar.Close,
		})
	}

	summary := computeSummary(equity, roundTrips, in.StartCapital, in.BarsPerYear)
	summary.TotalTrades = len(trades)
	if useML && predCalls > 0 {
		acc := float64(predHits) / float64(predCalls)
		summary.DirectionalAccuracy = &acc
	}

	run := &models.BacktestRun{
		Strategy:     in.Strategy.Name(),
		Symbol:       in.Symbol,
		StartCapital: in.StartCapital,
		StartDate:    in.Bars[0].Timestamp,
		EndDate:      in.Bars[len(in.Bars)-1].Timestamp,
		Trades:       trades,
		EquityCurve:  equity,
		Summary:      summary,
	}
	s.log.Debug("backtest complete",
		logger.String("symbol", in.Symbol),
		logger.String("strategy", in.Strategy.Name()),
		logger.Int("trades", len(trades)),
		logger.Float64("finalEquity", summary.FinalEquity))
	return run, nil
}
