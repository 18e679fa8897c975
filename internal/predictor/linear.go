package predictor

import (
	"encoding/json"
	"errors"
	"math/rand"

	"MarketLab/internal/domain/models"
)

// logisticModel is the L2-regularized logistic regression baseline. It anchors
// the ensemble: when the richer members overfit a short history, the inverse
// validation-error weighting shifts mass toward this one.
type logisticModel struct {
	seed         int64
	epochs       int
	learningRate float64

	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	Scale   scaler    `json:"scale"`
}

func newLogisticModel(seed int64) *logisticModel {
	return &logisticModel{seed: seed, epochs: 300, learningRate: 0.05}
}

func (m *logisticModel) Family() models.ModelFamily { return models.FamilyLinear }

func (m *logisticModel) Train(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("linear: empty or mismatched training data")
	}
	m.Scale = fitScaler(X)
	scaled := m.Scale.applyAll(X)

	m.Weights = make([]float64, len(scaled[0]))
	m.Bias = 0
	lambda := 1e-3
	rng := rand.New(rand.NewSource(m.seed))
	for epoch := 0; epoch < m.epochs; epoch++ {
		for _, i := range rng.Perm(len(scaled)) {
			p := sigmoid(dot(m.Weights, scaled[i]) + m.Bias)
			grad := p - float64(y[i])
			for j := range m.Weights {
				m.Weights[j] -= m.learningRate * (grad*scaled[i][j] + lambda*m.Weights[j])
			}
			m.Bias -= m.learningRate * grad
		}
	}
	return nil
}

func (m *logisticModel) ProbaUp(x []float64) float64 {
	if len(m.Weights) == 0 {
		return 0.5
	}
	scaled := m.Scale.apply(x)
	return clampProba(sigmoid(dot(m.Weights, scaled) + m.Bias))
}

func (m *logisticModel) Marshal() ([]byte, error) { return json.Marshal(m) }

func (m *logisticModel) Unmarshal(params []byte) error { return json.Unmarshal(params, m) }
