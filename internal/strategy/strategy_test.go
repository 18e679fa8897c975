package strategy

import (
	"testing"

	"MarketLab/internal/domain/models"
)

func vec(name string, value float64) models.FeatureVector {
	return models.FeatureVector{
		Symbol: "TEST",
		Names:  []string{name},
		Values: []float64{value},
		Close:  100,
	}
}

func TestRegistryResolvesKnownStrategies(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	for _, name := range []string{"ml_signal", "momentum", "mean_reversion"} {
		s, err := r.Get(name)
		if err != nil {
			t.Fatalf("get %s: %v", name, err)
		}
		if s.Name() != name {
			t.Fatalf("expected %s, got %s", name, s.Name())
		}
	}
	if _, err := r.Get("martingale"); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

func TestMLSignalThreshold(t *testing.T) {
	s := NewMLSignal(0.60, 3)
	up := &models.Prediction{Direction: models.DirectionUp, Confidence: 0.75}
	weak := &models.Prediction{Direction: models.DirectionUp, Confidence: 0.55}
	down := &models.Prediction{Direction: models.DirectionDown, Confidence: 0.80}

	if got := s.Decide(vec("rsi", 50), up, PositionState{}); got != ActionBuy {
		t.Fatalf("confident up call should buy, got %s", got)
	}
	if got := s.Decide(vec("rsi", 50), weak, PositionState{}); got != ActionHold {
		t.Fatalf("sub-threshold confidence should hold, got %s", got)
	}
	if got := s.Decide(vec("rsi", 50), down, PositionState{InPosition: true}); got != ActionSell {
		t.Fatalf("confident down call in position should sell, got %s", got)
	}
	if got := s.Decide(vec("rsi", 50), nil, PositionState{}); got != ActionHold {
		t.Fatalf("no prediction should hold, got %s", got)
	}
}

func TestMomentumIgnoresPrediction(t *testing.T) {
	s := NewMomentum(0.03, 3)
	down := &models.Prediction{Direction: models.DirectionDown, Confidence: 0.99}

	if got := s.Decide(vec("mom_10", 0.05), down, PositionState{}); got != ActionBuy {
		t.Fatalf("strong trailing return should buy regardless of prediction, got %s", got)
	}
	if got := s.Decide(vec("mom_10", -0.01), nil, PositionState{InPosition: true}); got != ActionSell {
		t.Fatalf("negative momentum in position should sell, got %s", got)
	}
	if got := s.Decide(vec("mom_10", 0.01), nil, PositionState{}); got != ActionHold {
		t.Fatalf("weak momentum should hold, got %s", got)
	}
}

func TestMeanReversionBand(t *testing.T) {
	s := NewMeanReversion(0.05, 3)

	if got := s.Decide(vec("sma_ratio_20", -0.08), nil, PositionState{}); got != ActionBuy {
		t.Fatalf("deep discount to the average should buy, got %s", got)
	}
	if got := s.Decide(vec("sma_ratio_20", 0.01), nil, PositionState{InPosition: true}); got != ActionSell {
		t.Fatalf("reversion to the average should exit, got %s", got)
	}
	if got := s.Decide(vec("sma_ratio_20", -0.02), nil, PositionState{}); got != ActionHold {
		t.Fatalf("inside the band should hold, got %s", got)
	}
}

func TestCooldownBlocksEntries(t *testing.T) {
	pos := PositionState{CooldownLeft: 2}
	m := NewMomentum(0.03, 3)
	if got := m.Decide(vec("mom_10", 0.10), nil, pos); got != ActionHold {
		t.Fatalf("cooldown must block entries, got %s", got)
	}
	ml := NewMLSignal(0.60, 3)
	strong := &models.Prediction{Direction: models.DirectionUp, Confidence: 0.95}
	if got := ml.Decide(vec("rsi", 50), strong, pos); got != ActionHold {
		t.Fatalf("cooldown must block ML entries, got %s", got)
	}
}
