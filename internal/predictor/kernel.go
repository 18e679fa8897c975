package predictor

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"

	"MarketLab/internal/domain/models"
)

// kernelModel is an RBF kernel classifier over a seeded subsample of training
// rows. Coefficients are fit by gradient descent on logistic loss, so the
// model stays convex and reproducible while capturing non-linear structure
// the linear baseline misses.
type kernelModel struct {
	seed          int64
	maxPrototypes int
	epochs        int
	learningRate  float64

	Prototypes [][]float64 `json:"prototypes"`
	Coeffs     []float64   `json:"coeffs"`
	Bias       float64     `json:"bias"`
	Gamma      float64     `json:"gamma"`
	Scale      scaler      `json:"scale"`
}

func newKernelModel(seed int64) *kernelModel {
	return &kernelModel{
		seed:          seed,
		maxPrototypes: 120,
		epochs:        150,
		learningRate:  0.05,
	}
}

func (m *kernelModel) Family() models.ModelFamily { return models.FamilyKernel }

func (m *kernelModel) Train(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("kernel: empty or mismatched training data")
	}
	m.Scale = fitScaler(X)
	scaled := m.Scale.applyAll(X)

	rng := rand.New(rand.NewSource(m.seed))
	idx := rng.Perm(len(scaled))
	count := m.maxPrototypes
	if count > len(scaled) {
		count = len(scaled)
	}
	m.Prototypes = make([][]float64, count)
	for i := 0; i < count; i++ {
		m.Prototypes[i] = scaled[idx[i]]
	}

	// Median-heuristic bandwidth over prototype pairs.
	m.Gamma = medianGamma(m.Prototypes)

	features := make([][]float64, len(scaled))
	for i, row := range scaled {
		features[i] = m.kernelRow(row)
	}

	m.Coeffs = make([]float64, count)
	m.Bias = 0
	lambda := 1e-3
	for epoch := 0; epoch < m.epochs; epoch++ {
		for _, i := range rng.Perm(len(features)) {
			p := sigmoid(dot(m.Coeffs, features[i]) + m.Bias)
			grad := p - float64(y[i])
			for j := range m.Coeffs {
				m.Coeffs[j] -= m.learningRate * (grad*features[i][j] + lambda*m.Coeffs[j])
			}
			m.Bias -= m.learningRate * grad
		}
	}
	return nil
}

func (m *kernelModel) kernelRow(x []float64) []float64 {
	row := make([]float64, len(m.Prototypes))
	for j, proto := range m.Prototypes {
		row[j] = math.Exp(-m.Gamma * sqDist(x, proto))
	}
	return row
}

func (m *kernelModel) ProbaUp(x []float64) float64 {
	if len(m.Prototypes) == 0 {
		return 0.5
	}
	scaled := m.Scale.apply(x)
	return clampProba(sigmoid(dot(m.Coeffs, m.kernelRow(scaled)) + m.Bias))
}

func (m *kernelModel) Marshal() ([]byte, error) { return json.Marshal(m) }

func (m *kernelModel) Unmarshal(params []byte) error { return json.Unmarshal(params, m) }

func medianGamma(rows [][]float64) float64 {
	if len(rows) < 2 {
		return 1
	}
	var sum float64
	var count int
	step := len(rows)/64 + 1
	for i := 0; i < len(rows); i += step {
		for j := i + 1; j < len(rows); j += step {
			sum += sqDist(rows[i], rows[j])
			count++
		}
	}
	if count == 0 || sum == 0 {
		return 1
	}
	return 1 / (sum / float64(count))
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
