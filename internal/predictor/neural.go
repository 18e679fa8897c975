package predictor

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"

	"MarketLab/internal/domain/models"
)

// neuralModel is a small one-hidden-layer network (tanh hidden units, sigmoid
// output) trained by seeded stochastic gradient descent. Sized for dozens of
// features and a few hundred samples, not for deep-learning workloads.
type neuralModel struct {
	seed         int64
	hidden       int
	epochs       int
	learningRate float64

	W1    [][]float64 `json:"w1"`
	B1    []float64   `json:"b1"`
	W2    []float64   `json:"w2"`
	B2    float64     `json:"b2"`
	Scale scaler      `json:"scale"`
}

func newNeuralModel(seed int64) *neuralModel {
	return &neuralModel{seed: seed, hidden: 16, epochs: 200, learningRate: 0.02}
}

func (m *neuralModel) Family() models.ModelFamily { return models.FamilyNeural }

func (m *neuralModel) Train(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("neural: empty or mismatched training data")
	}
	m.Scale = fitScaler(X)
	scaled := m.Scale.applyAll(X)
	dim := len(scaled[0])

	rng := rand.New(rand.NewSource(m.seed))
	limit := math.Sqrt(6 / float64(dim+m.hidden))
	m.W1 = make([][]float64, m.hidden)
	m.B1 = make([]float64, m.hidden)
	for h := 0; h < m.hidden; h++ {
		m.W1[h] = make([]float64, dim)
		for j := 0; j < dim; j++ {
			m.W1[h][j] = (rng.Float64()*2 - 1) * limit
		}
	}
	m.W2 = make([]float64, m.hidden)
	for h := range m.W2 {
		m.W2[h] = (rng.Float64()*2 - 1) * limit
	}
	m.B2 = 0

	hiddenOut := make([]float64, m.hidden)
	for epoch := 0; epoch < m.epochs; epoch++ {
		for _, i := range rng.Perm(len(scaled)) {
			x := scaled[i]
			for h := 0; h < m.hidden; h++ {
				hiddenOut[h] = math.Tanh(dot(m.W1[h], x) + m.B1[h])
			}
			out := sigmoid(dot(m.W2, hiddenOut) + m.B2)

			dOut := out - float64(y[i])
			for h := 0; h < m.hidden; h++ {
				dHidden := dOut * m.W2[h] * (1 - hiddenOut[h]*hiddenOut[h])
				m.W2[h] -= m.learningRate * dOut * hiddenOut[h]
				for j := 0; j < dim; j++ {
					m.W1[h][j] -= m.learningRate * dHidden * x[j]
				}
				m.B1[h] -= m.learningRate * dHidden
			}
			m.B2 -= m.learningRate * dOut
		}
	}
	return nil
}

func (m *neuralModel) ProbaUp(x []float64) float64 {
	if len(m.W1) == 0 {
		return 0.5
	}
	scaled := m.Scale.apply(x)
	var z float64
	for h := range m.W1 {
		z += m.W2[h] * math.Tanh(dot(m.W1[h], scaled)+m.B1[h])
	}
	return clampProba(sigmoid(z + m.B2))
}

func (m *neuralModel) Marshal() ([]byte, error) { return json.Marshal(m) }

func (m *neuralModel) Unmarshal(params []byte) error { return json.Unmarshal(params, m) }
