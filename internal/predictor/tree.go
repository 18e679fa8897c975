package predictor

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"sort"

	"MarketLab/internal/domain/models"
)

// stump is one depth-1 decision rule: predict up when the feature clears the
// threshold in the polarity direction.
type stump struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Polarity  int     `json:"polarity"`
	Alpha     float64 `json:"alpha"`
}

// stumpEnsemble is an adaptively boosted set of decision stumps. Each round
// fits the stump minimizing weighted error and reweights samples toward the
// mistakes, which is the classic tree-ensemble baseline for tabular signals.
type stumpEnsemble struct {
	seed   int64
	rounds int

	Stumps []stump `json:"stumps"`
	Scale  scaler  `json:"scale"`
}

func newStumpEnsemble(seed int64) *stumpEnsemble {
	return &stumpEnsemble{seed: seed, rounds: 25}
}

func (m *stumpEnsemble) Family() models.ModelFamily { return models.FamilyTreeEnsemble }

func (m *stumpEnsemble) Train(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("tree: empty or mismatched training data")
	}
	m.Scale = fitScaler(X)
	scaled := m.Scale.applyAll(X)

	n := len(scaled)
	dim := len(scaled[0])
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1 / float64(n)
	}

	// Candidate thresholds per feature come from a seeded subsample of the
	// observed values, keeping each round's search cost bounded.
	rng := rand.New(rand.NewSource(m.seed))
	candidates := make([][]float64, dim)
	for j := 0; j < dim; j++ {
		vals := make([]float64, 0, 24)
		for k := 0; k < 24; k++ {
			vals = append(vals, scaled[rng.Intn(n)][j])
		}
		sort.Float64s(vals)
		candidates[j] = vals
	}

	m.Stumps = m.Stumps[:0]
	for round := 0; round < m.rounds; round++ {
		best, bestErr := m.bestStump(scaled, y, weights, candidates)
		if bestErr >= 0.5 {
			break
		}
		if bestErr < 1e-9 {
			bestErr = 1e-9
		}
		best.Alpha = 0.5 * math.Log((1-bestErr)/bestErr)
		m.Stumps = append(m.Stumps, best)

		var total float64
		for i := range weights {
			correct := best.classify(scaled[i]) == y[i]
			if correct {
				weights[i] *= math.Exp(-best.Alpha)
			} else {
				weights[i] *= math.Exp(best.Alpha)
			}
			total += weights[i]
		}
		for i := range weights {
			weights[i] /= total
		}
	}
	if len(m.Stumps) == 0 {
		// Degenerate split, fall back to the majority-class prior.
		up := 0
		for _, label := range y {
			up += label
		}
		polarity := -1
		if up*2 >= n {
			polarity = 1
		}
		m.Stumps = append(m.Stumps, stump{Feature: 0, Threshold: math.Inf(-1), Polarity: polarity, Alpha: 0.01})
	}
	return nil
}

func (m *stumpEnsemble) bestStump(X [][]float64, y []int, weights []float64, candidates [][]float64) (stump, float64) {
	best := stump{}
	bestErr := math.Inf(1)
	for j := range candidates {
		for _, thr := range candidates[j] {
			for _, pol := range []int{1, -1} {
				s := stump{Feature: j, Threshold: thr, Polarity: pol}
				var werr float64
				for i, row := range X {
					if s.classify(row) != y[i] {
						werr += weights[i]
					}
				}
				if werr < bestErr {
					bestErr = werr
					best = s
				}
			}
		}
	}
	return best, bestErr
}

func (s stump) classify(x []float64) int {
	above := x[s.Feature] > s.Threshold
	if s.Polarity < 0 {
		above = !above
	}
	if above {
		return 1
	}
	return 0
}

func (m *stumpEnsemble) ProbaUp(x []float64) float64 {
	scaled := m.Scale.apply(x)
	var score, total float64
	for _, s := range m.Stumps {
		vote := -1.0
		if s.classify(scaled) == 1 {
			vote = 1.0
		}
		score += s.Alpha * vote
		total += s.Alpha
	}
	if total == 0 {
		return 0.5
	}
	// Map the boosted margin through a sigmoid for a calibrated-ish proba.
	return clampProba(sigmoid(2 * score))
}

func (m *stumpEnsemble) Marshal() ([]byte, error) { return json.Marshal(m) }

func (m *stumpEnsemble) Unmarshal(params []byte) error { return json.Unmarshal(params, m) }
