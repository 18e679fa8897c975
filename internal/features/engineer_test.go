package features

import (
	"math"
	"reflect"
	"testing"
	"time"

	"MarketLab/internal/domain"
	"MarketLab/internal/domain/models"
)

func syntheticBars(n int) []models.Bar {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		// Trending price with a deterministic wobble so indicators have
		// something to measure.
		price := 100 + 0.3*float64(i) + 5*math.Sin(float64(i)/7)
		bars[i] = models.Bar{
			Symbol:    "TEST",
			Timestamp: start.Add(time.Duration(i) * 24 * time.Hour),
			Open:      price - 0.2,
			High:      price + 1.5,
			Low:       price - 1.5,
			Close:     price,
			Volume:    1000 + 50*math.Sin(float64(i)/3),
		}
	}
	return bars
}

func TestComputeVectorCountAndOrder(t *testing.T) {
	eng, err := NewEngineer(DefaultConfig())
	if err != nil {
		t.Fatalf("engineer: %v", err)
	}
	bars := syntheticBars(120)

	vectors, err := eng.Compute(bars)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if want := 120 - eng.Lookback(); len(vectors) != want {
		t.Fatalf("expected %d vectors, got %d", want, len(vectors))
	}
	for _, vec := range vectors {
		if !reflect.DeepEqual(vec.Names, Names) {
			t.Fatalf("feature order differs from fixed order")
		}
		if len(vec.Values) != len(Names) {
			t.Fatalf("expected %d values, got %d", len(Names), len(vec.Values))
		}
		for i, v := range vec.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("feature %s is not finite at %v", Names[i], vec.Timestamp)
			}
		}
	}
	if !vectors[0].Timestamp.Equal(bars[eng.Lookback()].Timestamp) {
		t.Fatalf("first vector should sit at the lookback floor bar")
	}
}

func TestComputeDeterministic(t *testing.T) {
	eng, err := NewEngineer(DefaultConfig())
	if err != nil {
		t.Fatalf("engineer: %v", err)
	}
	bars := syntheticBars(150)

	a, err := eng.Compute(bars)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	b, err := eng.Compute(bars)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("identical input produced different vectors")
	}
}

func TestComputeInsufficientHistory(t *testing.T) {
	eng, err := NewEngineer(DefaultConfig())
	if err != nil {
		t.Fatalf("engineer: %v", err)
	}
	_, err = eng.Compute(syntheticBars(eng.Lookback()))
	if !domain.IsInsufficientData(err) {
		t.Fatalf("expected InsufficientData, got %v", err)
	}
}

func TestRSIBounds(t *testing.T) {
	eng, err := NewEngineer(DefaultConfig())
	if err != nil {
		t.Fatalf("engineer: %v", err)
	}
	vectors, err := eng.Compute(syntheticBars(200))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for _, vec := range vectors {
		rsi, ok := vec.Get("rsi")
		if !ok {
			t.Fatalf("rsi missing")
		}
		if rsi < 0 || rsi > 100 {
			t.Fatalf("rsi out of bounds: %f", rsi)
		}
	}
}

func TestSchemaVersionTracksWindows(t *testing.T) {
	base := DefaultConfig()
	changed := base
	changed.RSIPeriod = 21
	if base.SchemaVersion() == changed.SchemaVersion() {
		t.Fatalf("schema version must change when windows change")
	}
	if base.SchemaVersion() != DefaultConfig().SchemaVersion() {
		t.Fatalf("schema version must be stable for identical windows")
	}
}
