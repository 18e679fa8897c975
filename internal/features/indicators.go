package features

import "math"

// SMA returns the simple moving average of the last window values ending at
// index i (inclusive). Returns 0 when not enough history exists.
func SMA(values []float64, i, window int) float64 {
	if window <= 0 || i+1 < window {
		return 0
	}
	sum := 0.0
	for j := i - window + 1; j <= i; j++ {
		sum += values[j]
	}
	return sum / float64(window)
}

// StdDev returns the sample standard deviation of the last window values
// ending at index i.
func StdDev(values []float64, i, window int) float64 {
	if window <= 1 || i+1 < window {
		return 0
	}
	mean := SMA(values, i, window)
	sum := 0.0
	for j := i - window + 1; j <= i; j++ {
		d := values[j] - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(window-1))
}

// EMASeries computes the exponential moving average series with the standard
// 2/(period+1) smoothing, seeded with an SMA over the first period values.
// Entries before index period-1 are zero.
func EMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	k := 2.0 / float64(period+1)
	ema := SMA(values, period-1, period)
	out[period-1] = ema
	for i := period; i < len(values); i++ {
		ema = values[i]*k + ema*(1-k)
		out[i] = ema
	}
	return out
}

// RSISeries computes the Relative Strength Index with Wilder smoothing.
// Entries before index period are zero.
func RSISeries(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if period <= 0 || len(closes) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACDSeries returns the MACD line, signal line and histogram series.
func MACDSeries(closes []float64, fast, slow, signal int) (line, sig, hist []float64) {
	emaFast := EMASeries(closes, fast)
	emaSlow := EMASeries(closes, slow)

	line = make([]float64, len(closes))
	for i := slow - 1; i < len(closes); i++ {
		line[i] = emaFast[i] - emaSlow[i]
	}

	// Signal EMA starts once slow-1+signal values of the MACD line exist.
	sig = make([]float64, len(closes))
	start := slow - 1
	if len(closes) >= start+signal {
		k := 2.0 / float64(signal+1)
		seed := 0.0
		for i := start; i < start+signal; i++ {
			seed += line[i]
		}
		ema := seed / float64(signal)
		sig[start+signal-1] = ema
		for i := start + signal; i < len(closes); i++ {
			ema = line[i]*k + ema*(1-k)
			sig[i] = ema
		}
	}

	hist = make([]float64, len(closes))
	for i := range hist {
		hist[i] = line[i] - sig[i]
	}
	return line, sig, hist
}

// ATRSeries computes the Average True Range with Wilder smoothing.
func ATRSeries(highs, lows, closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if period <= 0 || len(closes) <= period {
		return out
	}

	tr := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	atr := sum / float64(period)
	out[period] = atr
	for i := period + 1; i < len(closes); i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
		out[i] = atr
	}
	return out
}
