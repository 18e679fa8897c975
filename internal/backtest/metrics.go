package backtest

import (
	"math"

	"MarketLab/internal/domain/models"
)

// roundTrip pairs an entry's full cost with the exit's net proceeds.
type roundTrip struct {
	cost     float64
	proceeds float64
}

// computeSummary derives the performance report from the equity curve.
// Sharpe uses per-bar return standard deviation annualized by the square root
// of bars-per-year; a zero-variance curve reports 0 rather than dividing out.
func computeSummary(equity []models.EquityPoint, trips []roundTrip, startCapital, barsPerYear float64) models.BacktestSummary {
	summary := models.BacktestSummary{FinalEquity: startCapital}
	if len(equity) > 0 {
		summary.FinalEquity = equity[len(equity)-1].Equity
	}
	summary.TotalReturn = summary.FinalEquity - startCapital
	summary.TotalReturnPct = summary.TotalReturn / startCapital

	summary.SharpeRatio = sharpe(equity, barsPerYear)
	summary.MaxDrawdown = maxDrawdown(equity)

	for _, t := range trips {
		if t.proceeds > t.cost {
			summary.WinningTrades++
		} else {
			summary.LosingTrades++
		}
	}
	if n := summary.WinningTrades + summary.LosingTrades; n > 0 {
		summary.WinRate = float64(summary.WinningTrades) / float64(n)
	}
	return summary
}

func sharpe(equity []models.EquityPoint, barsPerYear float64) float64 {
	if len(equity) < 3 || barsPerYear <= 0 {
		return 0
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev <= 0 {
			return 0
		}
		returns = append(returns, equity[i].Equity/prev-1)
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var sq float64
	for _, r := range returns {
		d := r - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(returns)-1))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(barsPerYear)
}

// maxDrawdown is the largest peak-to-trough equity decline as a positive
// fraction of the peak.
func maxDrawdown(equity []models.EquityPoint) float64 {
	var peak, worst float64
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			dd := (peak - p.Equity) / peak
			if dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
