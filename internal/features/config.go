package features

import (
	"fmt"
	"hash/fnv"
)

// Config holds the indicator window lengths. Windows are configuration, not
// constants, but must be held fixed for the lifetime of a trained model:
// SchemaVersion fingerprints them so artifacts trained under different
// windows are never mixed.
type Config struct {
	Lookback     int
	RSIPeriod    int
	MACDFast     int
	MACDSlow     int
	MACDSignal   int
	BollPeriod   int
	ATRPeriod    int
	VolumeWindow int
}

// DefaultConfig returns the standard window lengths.
func DefaultConfig() Config {
	return Config{
		Lookback:     50,
		RSIPeriod:    14,
		MACDFast:     12,
		MACDSlow:     26,
		MACDSignal:   9,
		BollPeriod:   20,
		ATRPeriod:    14,
		VolumeWindow: 20,
	}
}

// Validate checks window sanity.
func (c Config) Validate() error {
	if c.MACDFast >= c.MACDSlow {
		return fmt.Errorf("macd fast window %d must be below slow window %d", c.MACDFast, c.MACDSlow)
	}
	for name, v := range map[string]int{
		"lookback":      c.Lookback,
		"rsi_period":    c.RSIPeriod,
		"macd_signal":   c.MACDSignal,
		"boll_period":   c.BollPeriod,
		"atr_period":    c.ATRPeriod,
		"volume_window": c.VolumeWindow,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.Lookback < c.MACDSlow+c.MACDSignal {
		return fmt.Errorf("lookback %d too small for macd windows", c.Lookback)
	}
	return nil
}

// SchemaVersion fingerprints the window configuration. Two configs with the
// same windows always produce the same version.
func (c Config) SchemaVersion() int {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d|%d|%d|%d|%d|%d|%d|%d",
		c.Lookback, c.RSIPeriod, c.MACDFast, c.MACDSlow,
		c.MACDSignal, c.BollPeriod, c.ATRPeriod, c.VolumeWindow)
	return int(h.Sum32() & 0x7fffffff)
}
