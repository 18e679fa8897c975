package strategy

import (
	"fmt"
	"sort"

	"MarketLab/internal/domain/models"
)

// Action is a trade decision for one bar.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// PositionState carries every path-dependent fact a strategy may react to.
// Strategies themselves are stateless; cooldowns and holding periods live
// here so two replays with identical inputs always decide identically.
type PositionState struct {
	InPosition   bool
	EntryPrice   float64
	BarsHeld     int
	CooldownLeft int
}

// Strategy maps the current feature vector, an optional ensemble prediction
// and the position state to an action. Prediction is nil for strategies that
// ignore the model, and for ML strategies when no model output is available.
type Strategy interface {
	Name() string
	UsesPrediction() bool

	// Cooldown is the number of bars to hold off after an exit. The replay
	// loop counts it down through PositionState.
	Cooldown() int

	Decide(vec models.FeatureVector, pred *models.Prediction, pos PositionState) Action
}

// Registry holds the available strategies keyed by name.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry builds a registry with the default strategy set.
func NewRegistry(cfg Config) *Registry {
	r := &Registry{strategies: make(map[string]Strategy)}
	r.Register(NewMLSignal(cfg.MLConfidenceThreshold, cfg.CooldownBars))
	r.Register(NewMomentum(cfg.MomentumThreshold, cfg.CooldownBars))
	r.Register(NewMeanReversion(cfg.MeanRevBand, cfg.CooldownBars))
	return r
}

func (r *Registry) Register(s Strategy) { r.strategies[s.Name()] = s }

// Get resolves a strategy by name.
func (r *Registry) Get(name string) (Strategy, error) {
	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (available: %v)", name, r.Names())
	}
	return s, nil
}

// Names lists registered strategies in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Config tunes the default strategy set.
type Config struct {
	MLConfidenceThreshold float64
	MomentumThreshold     float64
	MeanRevBand           float64
	CooldownBars          int
}

// DefaultConfig returns the stock strategy parameters.
func DefaultConfig() Config {
	return Config{
		MLConfidenceThreshold: 0.60,
		MomentumThreshold:     0.03,
		MeanRevBand:           0.05,
		CooldownBars:          3,
	}
}
