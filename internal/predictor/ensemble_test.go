package predictor

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"MarketLab/internal/domain"
	"MarketLab/internal/domain/models"
	xlogger "MarketLab/pkg/logger"
)

type memArtifactStore struct {
	mu   sync.Mutex
	rows []models.ModelArtifact
}

func (m *memArtifactStore) Init(context.Context) error { return nil }

func (m *memArtifactStore) SaveArtifacts(_ context.Context, artifacts []models.ModelArtifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, artifacts...)
	return nil
}

func (m *memArtifactStore) LatestArtifacts(_ context.Context, symbol string) ([]models.ModelArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	latest := 0
	for _, r := range m.rows {
		if r.Symbol == symbol && r.Version > latest {
			latest = r.Version
		}
	}
	var out []models.ModelArtifact
	for _, r := range m.rows {
		if r.Symbol == symbol && r.Version == latest {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memArtifactStore) ListArtifacts(_ context.Context, symbol string, limit int) ([]models.ModelArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ModelArtifact
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if m.rows[i].Symbol == symbol {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

func (m *memArtifactStore) NextVersion(_ context.Context, symbol string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	latest := 0
	for _, r := range m.rows {
		if r.Symbol == symbol && r.Version > latest {
			latest = r.Version
		}
	}
	return latest + 1, nil
}

func (m *memArtifactStore) Close() error { return nil }

func testConfig(schema int) Config {
	return Config{
		MinTrainBars:  100,
		StaleAfter:    7 * 24 * time.Hour,
		Seed:          42,
		FlatThreshold: 0.55,
		SchemaVersion: schema,
	}
}

// syntheticVectors produces a deterministic feature/price series with enough
// structure that members beat coin flips on the validation split.
func syntheticVectors(n int) []models.FeatureVector {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	names := []string{"f1", "f2", "f3"}
	vectors := make([]models.FeatureVector, n)
	price := 100.0
	for i := 0; i < n; i++ {
		trend := math.Sin(float64(i) / 9)
		price += trend + 0.1*math.Cos(float64(i)/4)
		vectors[i] = models.FeatureVector{
			Symbol:    "TEST",
			Timestamp: start.Add(time.Duration(i) * 24 * time.Hour),
			Names:     names,
			Values:    []float64{trend, math.Cos(float64(i) / 4), float64(i % 5)},
			Close:     price,
		}
	}
	return vectors
}

func TestTrainAndPredict(t *testing.T) {
	store := &memArtifactStore{}
	e := NewEnsemble(testConfig(1), store, xlogger.Nop())
	vectors := syntheticVectors(200)

	report, err := e.Train(context.Background(), "TEST", vectors)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if len(report.Members) != len(models.Families()) {
		t.Fatalf("expected %d member reports, got %d", len(models.Families()), len(report.Members))
	}
	var totalWeight float64
	for _, m := range report.Members {
		if m.Weight <= 0 {
			t.Fatalf("member %s has non-positive weight", m.Family)
		}
		totalWeight += m.Weight
	}
	if math.Abs(totalWeight-1) > 1e-9 {
		t.Fatalf("weights must sum to 1, got %f", totalWeight)
	}

	pred, err := e.Predict(context.Background(), "TEST", vectors[len(vectors)-1], 1)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if pred.Confidence < 0 || pred.Confidence > 1 {
		t.Fatalf("confidence out of bounds: %f", pred.Confidence)
	}
	switch pred.Direction {
	case models.DirectionUp, models.DirectionDown, models.DirectionFlat:
	default:
		t.Fatalf("unexpected direction %q", pred.Direction)
	}
	if len(pred.Votes) != len(models.Families()) {
		t.Fatalf("expected a vote per member, got %d", len(pred.Votes))
	}
	for _, v := range pred.Votes {
		if v.ProbaUp < 0 || v.ProbaUp > 1 {
			t.Fatalf("member %s proba out of bounds: %f", v.Family, v.ProbaUp)
		}
	}
}

func TestTrainDeterministic(t *testing.T) {
	vectors := syntheticVectors(200)

	a := NewEnsemble(testConfig(1), &memArtifactStore{}, xlogger.Nop())
	b := NewEnsemble(testConfig(1), &memArtifactStore{}, xlogger.Nop())

	ra, err := a.Train(context.Background(), "TEST", vectors)
	if err != nil {
		t.Fatalf("train a: %v", err)
	}
	rb, err := b.Train(context.Background(), "TEST", vectors)
	if err != nil {
		t.Fatalf("train b: %v", err)
	}
	if !reflect.DeepEqual(ra.Members, rb.Members) {
		t.Fatalf("identical input and seed produced different member reports")
	}

	pa, err := a.Predict(context.Background(), "TEST", vectors[len(vectors)-1], 1)
	if err != nil {
		t.Fatalf("predict a: %v", err)
	}
	pb, err := b.Predict(context.Background(), "TEST", vectors[len(vectors)-1], 1)
	if err != nil {
		t.Fatalf("predict b: %v", err)
	}
	if pa.Direction != pb.Direction || pa.Confidence != pb.Confidence {
		t.Fatalf("identical models produced different predictions")
	}
}

func TestTrainInsufficientData(t *testing.T) {
	e := NewEnsemble(testConfig(1), &memArtifactStore{}, xlogger.Nop())
	_, err := e.Train(context.Background(), "TEST", syntheticVectors(50))
	if !domain.IsInsufficientData(err) {
		t.Fatalf("expected InsufficientData, got %v", err)
	}
}

func TestPredictUntrainedFails(t *testing.T) {
	e := NewEnsemble(testConfig(1), &memArtifactStore{}, xlogger.Nop())
	vectors := syntheticVectors(10)
	_, err := e.Predict(context.Background(), "TEST", vectors[len(vectors)-1], 1)
	if !errors.Is(err, domain.ErrModelNotReady) {
		t.Fatalf("expected ModelNotReady, got %v", err)
	}
}

func TestPredictRestoresFromStore(t *testing.T) {
	store := &memArtifactStore{}
	vectors := syntheticVectors(200)

	trainer := NewEnsemble(testConfig(1), store, xlogger.Nop())
	if _, err := trainer.Train(context.Background(), "TEST", vectors); err != nil {
		t.Fatalf("train: %v", err)
	}

	// A fresh process sharing the store must serve without retraining.
	server := NewEnsemble(testConfig(1), store, xlogger.Nop())
	pred, err := server.Predict(context.Background(), "TEST", vectors[len(vectors)-1], 1)
	if err != nil {
		t.Fatalf("predict from restored artifacts: %v", err)
	}
	if pred.Confidence < 0 || pred.Confidence > 1 {
		t.Fatalf("confidence out of bounds: %f", pred.Confidence)
	}
}

func TestPredictRejectsSchemaMismatch(t *testing.T) {
	store := &memArtifactStore{}
	vectors := syntheticVectors(200)

	trainer := NewEnsemble(testConfig(1), store, xlogger.Nop())
	if _, err := trainer.Train(context.Background(), "TEST", vectors); err != nil {
		t.Fatalf("train: %v", err)
	}

	// Changed feature windows invalidate stored artifacts.
	server := NewEnsemble(testConfig(2), store, xlogger.Nop())
	_, err := server.Predict(context.Background(), "TEST", vectors[len(vectors)-1], 1)
	if !errors.Is(err, domain.ErrModelNotReady) {
		t.Fatalf("expected ModelNotReady on schema mismatch, got %v", err)
	}
}

func TestVersionIncrementsOnRetrain(t *testing.T) {
	store := &memArtifactStore{}
	e := NewEnsemble(testConfig(1), store, xlogger.Nop())
	vectors := syntheticVectors(200)

	if _, err := e.Train(context.Background(), "TEST", vectors); err != nil {
		t.Fatalf("train 1: %v", err)
	}
	if _, err := e.Train(context.Background(), "TEST", vectors); err != nil {
		t.Fatalf("train 2: %v", err)
	}

	latest, err := store.LatestArtifacts(context.Background(), "TEST")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(latest) != len(models.Families()) {
		t.Fatalf("expected one artifact per family, got %d", len(latest))
	}
	for _, a := range latest {
		if a.Version != 2 {
			t.Fatalf("expected version 2 after retrain, got %d", a.Version)
		}
	}
	all, err := store.ListArtifacts(context.Background(), "TEST", 100)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2*len(models.Families()) {
		t.Fatalf("retrain must append, not replace: got %d rows", len(all))
	}
}

// fixedMember always votes the same up-probability, letting tests place the
// weighted vote exactly where they need it.
type fixedMember struct {
	family models.ModelFamily
	p      float64
}

func (m *fixedMember) Family() models.ModelFamily     { return m.family }
func (m *fixedMember) Train([][]float64, []int) error { return nil }
func (m *fixedMember) ProbaUp([]float64) float64      { return m.p }
func (m *fixedMember) Marshal() ([]byte, error)       { return []byte("{}"), nil }
func (m *fixedMember) Unmarshal([]byte) error         { return nil }

var _ Member = (*fixedMember)(nil)

func fixedSet(probs ...float64) *trainedSet {
	set := &trainedSet{trainedAt: time.Now().UTC()}
	w := 1 / float64(len(probs))
	for i, p := range probs {
		family := models.Families()[i%len(models.Families())]
		set.members = append(set.members, &fixedMember{family: family, p: p})
		set.artifacts = append(set.artifacts, models.ModelArtifact{
			Symbol: "BAND", Family: family, Weight: w, ValAccuracy: 0.6,
		})
	}
	return set
}

func TestPredictFlatWithinThresholdBand(t *testing.T) {
	cases := []struct {
		name  string
		probs []float64
		want  models.Direction
	}{
		{"weighted vote inside the band", []float64{0.58, 0.46}, models.DirectionFlat},
		{"weighted vote at the threshold", []float64{0.60, 0.50}, models.DirectionUp},
		{"complement clears the threshold", []float64{0.40, 0.46}, models.DirectionDown},
	}
	vec := syntheticVectors(1)[0]
	for _, tc := range cases {
		e := NewEnsemble(testConfig(1), &memArtifactStore{}, xlogger.Nop())
		st := e.symbol("BAND")
		st.current = fixedSet(tc.probs...)

		pred, err := e.Predict(context.Background(), "BAND", vec, 1)
		if err != nil {
			t.Fatalf("%s: predict: %v", tc.name, err)
		}
		if pred.Direction != tc.want {
			t.Fatalf("%s: direction = %s, want %s", tc.name, pred.Direction, tc.want)
		}
		if pred.Confidence < 0.5 || pred.Confidence > 1 {
			t.Fatalf("%s: confidence out of bounds: %f", tc.name, pred.Confidence)
		}
	}
}

func TestPredictStaleModelNotReady(t *testing.T) {
	cfg := testConfig(1)
	cfg.StaleAfter = 50 * time.Millisecond
	e := NewEnsemble(cfg, &memArtifactStore{}, xlogger.Nop())
	vectors := syntheticVectors(200)

	if _, err := e.Train(context.Background(), "TEST", vectors); err != nil {
		t.Fatalf("train: %v", err)
	}
	latest := vectors[len(vectors)-1]
	if _, err := e.Predict(context.Background(), "TEST", latest, 1); err != nil {
		t.Fatalf("fresh predict: %v", err)
	}

	time.Sleep(80 * time.Millisecond)

	if _, err := e.Predict(context.Background(), "TEST", latest, 1); !errors.Is(err, domain.ErrModelNotReady) {
		t.Fatalf("expected ModelNotReady from a stale model, got %v", err)
	}
	if st := e.State(context.Background(), "TEST"); st != StateStale {
		t.Fatalf("state = %s, want %s", st, StateStale)
	}
}
