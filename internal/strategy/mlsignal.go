package strategy

import "MarketLab/internal/domain/models"

// MLSignal trades on ensemble confidence crossing a threshold: buy on a
// confident up call, exit on a confident down call. Without a prediction it
// always holds.
type MLSignal struct {
	threshold float64
	cooldown  int
}

func NewMLSignal(threshold float64, cooldown int) *MLSignal {
	return &MLSignal{threshold: threshold, cooldown: cooldown}
}

func (s *MLSignal) Name() string         { return "ml_signal" }
func (s *MLSignal) UsesPrediction() bool { return true }
func (s *MLSignal) Cooldown() int        { return s.cooldown }

func (s *MLSignal) Decide(_ models.FeatureVector, pred *models.Prediction, pos PositionState) Action {
	if pred == nil || pos.CooldownLeft > 0 {
		return ActionHold
	}
	confident := pred.Confidence >= s.threshold
	switch {
	case !pos.InPosition && confident && pred.Direction == models.DirectionUp:
		return ActionBuy
	case pos.InPosition && confident && pred.Direction == models.DirectionDown:
		return ActionSell
	default:
		return ActionHold
	}
}
