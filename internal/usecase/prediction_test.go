package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"MarketLab/internal/domain"
	"MarketLab/internal/domain/models"
	"MarketLab/internal/features"
	"MarketLab/internal/histcache"
	"MarketLab/internal/predictor"
	"MarketLab/internal/source"
	pkgcache "MarketLab/pkg/cache"
	xlogger "MarketLab/pkg/logger"
)

type stubSource struct {
	bars []models.Bar
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Fetch(context.Context, string, string, string) ([]models.Bar, error) {
	return s.bars, nil
}

type stubBarStore struct{}

func (stubBarStore) Init(context.Context) error { return nil }
func (stubBarStore) StoreBars(context.Context, []models.Bar, string) error {
	return nil
}
func (stubBarStore) QueryBars(context.Context, string, string, int) ([]models.Bar, error) {
	return nil, nil
}
func (stubBarStore) CountBars(context.Context) (int, error) { return 0, nil }
func (stubBarStore) Health(context.Context) error           { return nil }
func (stubBarStore) Close() error                           { return nil }

type stubMetrics struct{}

func (stubMetrics) RecordCacheHit(string)         {}
func (stubMetrics) RecordCacheMiss(string)        {}
func (stubMetrics) RecordSourceFailure(string)    {}
func (stubMetrics) RecordStaleServed(string)      {}
func (stubMetrics) RecordStoredBars(int)          {}
func (stubMetrics) RecordLatency(string, float64) {}

type stubArtifactStore struct {
	mu   sync.Mutex
	rows []models.ModelArtifact
}

func (m *stubArtifactStore) Init(context.Context) error { return nil }

func (m *stubArtifactStore) SaveArtifacts(_ context.Context, artifacts []models.ModelArtifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, artifacts...)
	return nil
}

func (m *stubArtifactStore) LatestArtifacts(_ context.Context, symbol string) ([]models.ModelArtifact, error) {
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

func (m *stubArtifactStore) ListArtifacts(_ context.Context, symbol string, limit int) ([]models.ModelArtifact, error) {
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

func (m *stubArtifactStore) NextVersion(_ context.Context, symbol string) (int, error) {
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

func (m *stubArtifactStore) Close() error { return nil }

func syntheticBars(symbol string, n int) []models.Bar {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	price := 100.0
	for i := range bars {
		price += math.Sin(float64(i)/9) + 0.1*math.Cos(float64(i)/4)
		bars[i] = models.Bar{
			Symbol:    symbol,
			Timestamp: start.Add(time.Duration(i) * 24 * time.Hour),
			Open:      price * 0.999,
			High:      price * 1.005,
			Low:       price * 0.994,
			Close:     price,
			Volume:    1000 + float64(i%7)*50,
		}
	}
	return bars
}

func newTestPredictionUseCase(t *testing.T, store *stubArtifactStore) *PredictionUseCase {
	t.Helper()
	eng, err := features.NewEngineer(features.DefaultConfig())
	if err != nil {
		t.Fatalf("engineer: %v", err)
	}
	cache := histcache.New(
		pkgcache.NewMemoryCache(),
		stubBarStore{},
		[]source.Source{&stubSource{bars: syntheticBars("TEST", 300)}},
		xlogger.Nop(),
		stubMetrics{},
	)
	ensemble := predictor.NewEnsemble(predictor.Config{
		MinTrainBars:  100,
		StaleAfter:    time.Hour,
		Seed:          7,
		FlatThreshold: 0.55,
		SchemaVersion: eng.SchemaVersion(),
	}, store, xlogger.Nop())
	return NewPredictionUseCase(cache, eng, ensemble, store, nil, xlogger.Nop(), time.Minute)
}

func TestPredictFailModeSurfacesModelNotReady(t *testing.T) {
	uc := newTestPredictionUseCase(t, &stubArtifactStore{})

	_, err := uc.Predict(context.Background(), models.PredictRequest{
		Symbol: "TEST", Horizon: 1, Mode: "fail",
	})
	if !errors.Is(err, domain.ErrModelNotReady) {
		t.Fatalf("expected ModelNotReady on untrained symbol, got %v", err)
	}
}

func TestPredictTrainModeRetrainsSynchronously(t *testing.T) {
	store := &stubArtifactStore{}
	uc := newTestPredictionUseCase(t, store)

	pred, err := uc.Predict(context.Background(), models.PredictRequest{
		Symbol: "TEST", Horizon: 1, Mode: "train",
	})
	if err != nil {
		t.Fatalf("predict in train mode: %v", err)
	}
	if pred.Direction != models.DirectionUp && pred.Direction != models.DirectionDown &&
		pred.Direction != models.DirectionFlat {
		t.Fatalf("unexpected direction %q", pred.Direction)
	}
	if pred.Confidence < 0.5 || pred.Confidence > 1 {
		t.Fatalf("confidence out of bounds: %f", pred.Confidence)
	}

	arts, err := store.ListArtifacts(context.Background(), "TEST", 10)
	if err != nil {
		t.Fatalf("list artifacts: %v", err)
	}
	if len(arts) != len(models.Families()) {
		t.Fatalf("expected one artifact per family, got %d", len(arts))
	}
}
