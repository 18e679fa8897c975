package models

import "time"

// TradeSide distinguishes entries from exits in the trade log.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// TradeRecord is one executed fill in a backtest. Fills happen at the next
// bar's open after the signal bar, with fees applied.
type TradeRecord struct {
	Timestamp time.Time `json:"time"`
	Side      TradeSide `json:"side"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Fee       float64   `json:"fee"`
}

// EquityPoint is one sample of the portfolio value curve.
type EquityPoint struct {
	Timestamp time.Time `json:"time"`
	Equity    float64   `json:"equity"`
}

// BacktestSummary holds the performance metrics of one completed run.
type BacktestSummary struct {
	TotalReturn    float64 `json:"totalReturn"`
	TotalReturnPct float64 `json:"totalReturnPct"`
	SharpeRatio    float64 `json:"sharpeRatio"`
	MaxDrawdown    float64 `json:"maxDrawdown"`
	WinRate        float64 `json:"winRate"`
	TotalTrades    int     `json:"totalTrades"`
	WinningTrades  int     `json:"winningTrades"`
	LosingTrades   int     `json:"losingTrades"`
	FinalEquity    float64 `json:"finalEquity"`
	// DirectionalAccuracy is only set when an ML strategy drove the run:
	// fraction of predictions matching the realized next-period direction.
	DirectionalAccuracy *float64 `json:"directionalAccuracy,omitempty"`
}

// BacktestRun is the immutable result of one simulation invocation.
type BacktestRun struct {
	Strategy     string          `json:"strategy"`
	Symbol       string          `json:"symbol"`
	StartCapital float64         `json:"startCapital"`
	StartDate    time.Time       `json:"startDate"`
	EndDate      time.Time       `json:"endDate"`
	Trades       []TradeRecord   `json:"tradeLog"`
	EquityCurve  []EquityPoint   `json:"equityCurve"`
	Summary      BacktestSummary `json:"summary"`
}
