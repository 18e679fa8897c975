package features

import (
	"math"

	"MarketLab/internal/domain"
	"MarketLab/internal/domain/models"
)

// Names is the fixed feature computation order. Position matters: trained
// models consume vectors positionally, so the order never changes within a
// schema version.
var Names = []string{
	"ret_1", "ret_5", "ret_10", "ret_20", "log_ret_1",
	"rsi", "macd", "macd_signal", "macd_hist",
	"boll_width", "boll_pctb",
	"atr", "atr_pct",
	"vol_ratio", "volume_z",
	"volatility_10", "volatility_20",
	"mom_10", "mom_20",
	"sma_ratio_10", "sma_ratio_20", "sma_ratio_50",
	"ema_ratio_fast", "ema_ratio_slow",
	"range_pct", "close_pos", "gap_pct", "updown_streak",
	"flag_above_sma50", "flag_rsi_overbought", "flag_rsi_oversold", "flag_high_vol",
}

// Engineer is the pure, stateless bar-to-feature transform. Given an ordered
// bar sequence it produces one vector per index at or above the lookback
// floor; rows with insufficient trailing history are omitted, never
// zero-filled.
type Engineer struct {
	cfg Config
}

// NewEngineer builds an engineer after validating the window configuration.
func NewEngineer(cfg Config) (*Engineer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engineer{cfg: cfg}, nil
}

// Config returns the window configuration in effect.
func (e *Engineer) Config() Config { return e.cfg }

// SchemaVersion returns the fingerprint of the window configuration.
func (e *Engineer) SchemaVersion() int { return e.cfg.SchemaVersion() }

// Lookback returns the minimum trailing bars required for one vector.
func (e *Engineer) Lookback() int { return e.cfg.Lookback }

// Compute derives feature vectors from bars. Returns InsufficientData when
// fewer than lookback+1 bars are available.
func (e *Engineer) Compute(bars []models.Bar) ([]models.FeatureVector, error) {
	if len(bars) <= e.cfg.Lookback {
		return nil, domain.NewInsufficientData("features", len(bars), e.cfg.Lookback+1)
	}

	n := len(bars)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	opens := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
		opens[i] = b.Open
		volumes[i] = b.Volume
	}

	rsi := RSISeries(closes, e.cfg.RSIPeriod)
	macd, macdSig, macdHist := MACDSeries(closes, e.cfg.MACDFast, e.cfg.MACDSlow, e.cfg.MACDSignal)
	atr := ATRSeries(highs, lows, closes, e.cfg.ATRPeriod)
	emaFast := EMASeries(closes, e.cfg.MACDFast)
	emaSlow := EMASeries(closes, e.cfg.MACDSlow)

	returns := make([]float64, n)
	for i := 1; i < n; i++ {
		if closes[i-1] > 0 {
			returns[i] = closes[i]/closes[i-1] - 1
		}
	}

	vectors := make([]models.FeatureVector, 0, n-e.cfg.Lookback)
	for i := e.cfg.Lookback; i < n; i++ {
		c := closes[i]

		sma10 := SMA(closes, i, 10)
		sma20 := SMA(closes, i, 20)
		sma50 := SMA(closes, i, 50)
		bollMid := SMA(closes, i, e.cfg.BollPeriod)
		bollStd := StdDev(closes, i, e.cfg.BollPeriod)
		volSMA := SMA(volumes, i, e.cfg.VolumeWindow)
		volStd := StdDev(volumes, i, e.cfg.VolumeWindow)
		vol10 := StdDev(returns, i, 10)
		vol20 := StdDev(returns, i, 20)

		values := make([]float64, 0, len(Names))
		values = append(values,
			pctChange(c, closes[i-1]),
			pctChange(c, closes[i-5]),
			pctChange(c, closes[i-10]),
			pctChange(c, closes[i-20]),
			logReturn(c, closes[i-1]),
			rsi[i],
			macd[i],
			macdSig[i],
			macdHist[i],
			safeDiv(4*bollStd, bollMid),
			bollPctB(c, bollMid, bollStd),
			atr[i],
			safeDiv(atr[i], c),
			safeDiv(volumes[i], volSMA),
			safeDiv(volumes[i]-volSMA, volStd),
			vol10,
			vol20,
			pctChange(c, closes[i-10]),
			pctChange(c, closes[i-20]),
			safeDiv(c, sma10)-1,
			safeDiv(c, sma20)-1,
			safeDiv(c, sma50)-1,
			safeDiv(c, emaFast[i])-1,
			safeDiv(c, emaSlow[i])-1,
			safeDiv(highs[i]-lows[i], c),
			closePosition(c, highs[i], lows[i]),
			pctChange(opens[i], closes[i-1]),
			float64(streak(returns, i)),
			boolFlag(c > sma50),
			boolFlag(rsi[i] >= 70),
			boolFlag(rsi[i] <= 30),
			boolFlag(vol20 > 0 && vol10 > 1.5*vol20),
		)

		vectors = append(vectors, models.FeatureVector{
			Symbol:    bars[i].Symbol,
			Timestamp: bars[i].Timestamp,
			Names:     Names,
			Values:    values,
			Close:     c,
		})
	}
	return vectors, nil
}

func pctChange(cur, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return cur/prev - 1
}

func logReturn(cur, prev float64) float64 {
	if prev <= 0 || cur <= 0 {
		return 0
	}
	return math.Log(cur / prev)
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func bollPctB(c, mid, std float64) float64 {
	lower := mid - 2*std
	upper := mid + 2*std
	if upper == lower {
		return 0.5
	}
	return (c - lower) / (upper - lower)
}

func closePosition(c, high, low float64) float64 {
	if high == low {
		return 0.5
	}
	return (c - low) / (high - low)
}

// streak counts consecutive same-sign returns ending at index i, signed by
// direction.
func streak(returns []float64, i int) int {
	if returns[i] == 0 {
		return 0
	}
	up := returns[i] > 0
	count := 0
	for j := i; j > 0; j-- {
		if returns[j] == 0 || (returns[j] > 0) != up {
			break
		}
		count++
	}
	if up {
		return count
	}
	return -count
}

func boolFlag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
