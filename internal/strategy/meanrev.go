package strategy

import "MarketLab/internal/domain/models"

// MeanReversion trades deviation from the 20-bar moving average: buy when
// price sits more than the band below it, exit once price reverts to or above
// the average. Predictions are ignored.
type MeanReversion struct {
	band     float64
	cooldown int
}

func NewMeanReversion(band float64, cooldown int) *MeanReversion {
	return &MeanReversion{band: band, cooldown: cooldown}
}

func (s *MeanReversion) Name() string         { return "mean_reversion" }
func (s *MeanReversion) UsesPrediction() bool { return false }
func (s *MeanReversion) Cooldown() int        { return s.cooldown }

func (s *MeanReversion) Decide(vec models.FeatureVector, _ *models.Prediction, pos PositionState) Action {
	if pos.CooldownLeft > 0 {
		return ActionHold
	}
	// sma_ratio_20 is close/SMA20 - 1, so -band means price is band below
	// the average.
	dev, ok := vec.Get("sma_ratio_20")
	if !ok {
		return ActionHold
	}
	switch {
	case !pos.InPosition && dev < -s.band:
		return ActionBuy
	case pos.InPosition && dev >= 0:
		return ActionSell
	default:
		return ActionHold
	}
}
