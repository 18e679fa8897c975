package strategy

import "MarketLab/internal/domain/models"

// Momentum follows the trailing 10-bar return: buy when it exceeds the
// threshold, exit when it turns negative. Predictions are ignored.
type Momentum struct {
	threshold float64
	cooldown  int
}

func NewMomentum(threshold float64, cooldown int) *Momentum {
	return &Momentum{threshold: threshold, cooldown: cooldown}
}

func (s *Momentum) Name() string         { return "momentum" }
func (s *Momentum) UsesPrediction() bool { return false }
func (s *Momentum) Cooldown() int        { return s.cooldown }

func (s *Momentum) Decide(vec models.FeatureVector, _ *models.Prediction, pos PositionState) Action {
	if pos.CooldownLeft > 0 {
		return ActionHold
	}
	mom, ok := vec.Get("mom_10")
	if !ok {
		return ActionHold
	}
	switch {
	case !pos.InPosition && mom > s.threshold:
		return ActionBuy
	case pos.InPosition && mom < 0:
		return ActionSell
	default:
		return ActionHold
	}
}
