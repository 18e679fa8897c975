package predictor

import (
	"math"

	"MarketLab/internal/domain/models"
)

// Member is the capability contract every ensemble model family implements.
// Train must be reproducible for a fixed seed, and ProbaUp must stay within
// [0,1] for any input vector of the trained width.
type Member interface {
	Family() models.ModelFamily

	// Train fits the member on feature rows X and binary labels y
	// (1 = next close up, 0 = down).
	Train(X [][]float64, y []int) error

	// ProbaUp returns the member's probability that the next move is up.
	ProbaUp(x []float64) float64

	// Marshal serializes the fitted parameters for artifact storage.
	Marshal() ([]byte, error)

	// Unmarshal restores a member from stored artifact parameters.
	Unmarshal(params []byte) error
}

// newMember constructs an unfitted member for a family. Seeds are derived
// per family so members draw independent random streams from one root seed.
func newMember(family models.ModelFamily, seed int64) Member {
	switch family {
	case models.FamilyTreeEnsemble:
		return newStumpEnsemble(seed + 1)
	case models.FamilyKernel:
		return newKernelModel(seed + 2)
	case models.FamilyLinear:
		return newLogisticModel(seed + 3)
	case models.FamilyNeural:
		return newNeuralModel(seed + 4)
	}
	return nil
}

// scaler standardizes feature columns to zero mean and unit variance using
// statistics from the training split only.
type scaler struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

func fitScaler(X [][]float64) scaler {
	if len(X) == 0 {
		return scaler{}
	}
	dim := len(X[0])
	s := scaler{Means: make([]float64, dim), Stds: make([]float64, dim)}
	for j := 0; j < dim; j++ {
		var sum float64
		for _, row := range X {
			sum += row[j]
		}
		mean := sum / float64(len(X))
		var sq float64
		for _, row := range X {
			d := row[j] - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(len(X)))
		if std == 0 {
			std = 1
		}
		s.Means[j] = mean
		s.Stds[j] = std
	}
	return s
}

func (s scaler) apply(x []float64) []float64 {
	out := make([]float64, len(x))
	for j := range x {
		if j < len(s.Means) {
			out[j] = (x[j] - s.Means[j]) / s.Stds[j]
		} else {
			out[j] = x[j]
		}
	}
	return out
}

func (s scaler) applyAll(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.apply(row)
	}
	return out
}

func sigmoid(z float64) float64 {
	if z > 35 {
		return 1
	}
	if z < -35 {
		return 0
	}
	return 1 / (1 + math.Exp(-z))
}

func clampProba(p float64) float64 {
	if math.IsNaN(p) {
		return 0.5
	}
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
