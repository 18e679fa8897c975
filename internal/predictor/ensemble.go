package predictor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MarketLab/internal/domain"
	"MarketLab/internal/domain/models"
	"MarketLab/internal/domain/repository"
	"MarketLab/pkg/logger"
)

// State is the per-symbol model lifecycle.
type State string

const (
	StateUntrained State = "untrained"
	StateTrained   State = "trained"
	StateStale     State = "stale"
)

// Config tunes the ensemble's training policy.
type Config struct {
	MinTrainBars  int
	StaleAfter    time.Duration
	Seed          int64
	FlatThreshold float64
	SchemaVersion int
}

// trainedSet is one immutable generation of fitted members. A pointer to it is
// swapped under the symbol lock on successful retrain, so readers never
// observe a half-updated ensemble.
type trainedSet struct {
	members   []Member
	artifacts []models.ModelArtifact
	trainedAt time.Time
}

type symbolState struct {
	mu      sync.RWMutex
	current *trainedSet
}

// Ensemble combines the four member families into one weighted predictor.
// Training for different symbols may run concurrently; prediction for a
// symbol never blocks on a concurrent retrain of that symbol.
type Ensemble struct {
	cfg       Config
	artifacts repository.ArtifactStore
	log       *logger.Logger

	mu      sync.Mutex
	symbols map[string]*symbolState
}

// NewEnsemble builds an ensemble predictor backed by an artifact store.
func NewEnsemble(cfg Config, store repository.ArtifactStore, log *logger.Logger) *Ensemble {
	if cfg.FlatThreshold <= 0.5 || cfg.FlatThreshold >= 1 {
		cfg.FlatThreshold = 0.55
	}
	if cfg.MinTrainBars <= 0 {
		cfg.MinTrainBars = 100
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 7 * 24 * time.Hour
	}
	return &Ensemble{
		cfg:       cfg,
		artifacts: store,
		log:       log,
		symbols:   make(map[string]*symbolState),
	}
}

func (e *Ensemble) symbol(symbol string) *symbolState {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.symbols[symbol]
	if !ok {
		st = &symbolState{}
		e.symbols[symbol] = st
	}
	return st
}

// State reports the lifecycle state for a symbol, loading persisted artifacts
// on first access.
func (e *Ensemble) State(ctx context.Context, symbol string) State {
	set := e.loadSet(ctx, symbol)
	switch {
	case set == nil:
		return StateUntrained
	case time.Since(set.trainedAt) > e.cfg.StaleAfter:
		return StateStale
	default:
		return StateTrained
	}
}

func (e *Ensemble) loadSet(ctx context.Context, symbol string) *trainedSet {
	st := e.symbol(symbol)
	st.mu.RLock()
	set := st.current
	st.mu.RUnlock()
	if set != nil {
		return set
	}

	arts, err := e.artifacts.LatestArtifacts(ctx, symbol)
	if err != nil || len(arts) == 0 {
		return nil
	}
	restored, err := restoreMembers(arts, e.cfg.SchemaVersion)
	if err != nil {
		e.log.Warn("stored artifacts not restorable, retrain required",
			logger.String("symbol", symbol), logger.Error(err))
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.current == nil {
		st.current = restored
	}
	return st.current
}

func restoreMembers(arts []models.ModelArtifact, schemaVersion int) (*trainedSet, error) {
	set := &trainedSet{}
	for _, art := range arts {
		if art.SchemaVersion != schemaVersion {
			return nil, fmt.Errorf("artifact schema %d does not match current %d", art.SchemaVersion, schemaVersion)
		}
		member := newMember(art.Family, 0)
		if member == nil {
			return nil, fmt.Errorf("unknown model family %q", art.Family)
		}
		if err := member.Unmarshal(art.Params); err != nil {
			return nil, fmt.Errorf("restore %s params: %w", art.Family, err)
		}
		set.members = append(set.members, member)
		set.artifacts = append(set.artifacts, art)
		if art.TrainedAt.After(set.trainedAt) {
			set.trainedAt = art.TrainedAt
		}
	}
	if len(set.members) == 0 {
		return nil, fmt.Errorf("no artifacts to restore")
	}
	return set, nil
}

// Train fits every member family on a chronological 80/20 split of the
// feature vectors and commits one artifact per member. The in-memory ensemble
// swaps only after the full set persisted, so a failed run changes nothing.
func (e *Ensemble) Train(ctx context.Context, symbol string, vectors []models.FeatureVector) (*models.TrainReport, error) {
	X, y, err := buildDataset(vectors)
	if err != nil {
		return nil, err
	}
	if len(X) < e.cfg.MinTrainBars {
		return nil, domain.NewInsufficientData("train", len(X), e.cfg.MinTrainBars)
	}

	split := len(X) * 8 / 10
	trainX, trainY := X[:split], y[:split]
	valX, valY := X[split:], y[split:]

	started := time.Now()
	trainedAt := started.UTC()
	version, err := e.artifacts.NextVersion(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("allocate artifact version: %w", err)
	}

	set := &trainedSet{trainedAt: trainedAt}
	votes := make([]models.MemberVote, 0, len(models.Families()))
	weights := make([]float64, 0, len(models.Families()))
	for _, family := range models.Families() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("training %s aborted: %w", symbol, err)
		}
		member := newMember(family, e.cfg.Seed)
		if err := member.Train(trainX, trainY); err != nil {
			return nil, fmt.Errorf("train %s member: %w", family, err)
		}
		acc := accuracy(member, valX, valY)
		params, err := member.Marshal()
		if err != nil {
			return nil, fmt.Errorf("serialize %s member: %w", family, err)
		}
		// Inverse validation-error weighting, floored so a perfect
		// validation score cannot monopolize the vote.
		weight := 1 / (1 - acc + 0.05)
		weights = append(weights, weight)
		set.members = append(set.members, member)
		set.artifacts = append(set.artifacts, models.ModelArtifact{
			Symbol:        symbol,
			Family:        family,
			Version:       version,
			SchemaVersion: e.cfg.SchemaVersion,
			TrainedAt:     trainedAt,
			TrainStart:    vectors[0].Timestamp,
			TrainEnd:      vectors[len(vectors)-1].Timestamp,
			ValAccuracy:   acc,
			Params:        params,
		})
		votes = append(votes, models.MemberVote{Family: family, ValAcc: acc})
	}

	var totalWeight float64
	for _, w := range weights {
		totalWeight += w
	}
	var weightedAcc float64
	for i := range set.artifacts {
		w := weights[i] / totalWeight
		set.artifacts[i].Weight = w
		votes[i].Weight = w
		weightedAcc += w * set.artifacts[i].ValAccuracy
	}

	if err := e.artifacts.SaveArtifacts(ctx, set.artifacts); err != nil {
		return nil, fmt.Errorf("persist artifacts: %w", err)
	}

	st := e.symbol(symbol)
	st.mu.Lock()
	st.current = set
	st.mu.Unlock()

	e.log.Info("ensemble trained",
		logger.String("symbol", symbol),
		logger.Int("version", version),
		logger.Int("samples", len(X)),
		logger.Float64("valAccuracy", weightedAcc),
		logger.Duration("elapsed", time.Since(started)))

	return &models.TrainReport{
		Symbol:      symbol,
		TrainedAt:   trainedAt,
		ValAccuracy: weightedAcc,
		Members:     votes,
		SampleCount: len(X),
	}, nil
}

// Predict combines member votes for the latest feature vector. An untrained
// or stale symbol returns ModelNotReady; the caller decides whether to train
// synchronously and retry.
func (e *Ensemble) Predict(ctx context.Context, symbol string, vec models.FeatureVector, horizonDays int) (*models.Prediction, error) {
	set := e.loadSet(ctx, symbol)
	if set == nil {
		return nil, fmt.Errorf("%s: %w", symbol, domain.ErrModelNotReady)
	}
	if time.Since(set.trainedAt) > e.cfg.StaleAfter {
		return nil, fmt.Errorf("%s: model trained %s ago: %w",
			symbol, time.Since(set.trainedAt).Round(time.Hour), domain.ErrModelNotReady)
	}

	var weightedUp float64
	votes := make([]models.MemberVote, 0, len(set.members))
	for i, member := range set.members {
		art := set.artifacts[i]
		p := member.ProbaUp(vec.Values)
		weightedUp += art.Weight * p
		dir := models.DirectionDown
		if p > 0.5 {
			dir = models.DirectionUp
		} else if p == 0.5 {
			dir = models.DirectionFlat
		}
		votes = append(votes, models.MemberVote{
			Family:    art.Family,
			Direction: dir,
			ProbaUp:   p,
			Weight:    art.Weight,
			ValAcc:    art.ValAccuracy,
		})
	}

	confidence := weightedUp
	if confidence < 1-weightedUp {
		confidence = 1 - weightedUp
	}
	direction := models.DirectionFlat
	switch {
	case weightedUp >= e.cfg.FlatThreshold:
		direction = models.DirectionUp
	case 1-weightedUp >= e.cfg.FlatThreshold:
		direction = models.DirectionDown
	}

	return &models.Prediction{
		Symbol:      symbol,
		HorizonDays: horizonDays,
		Direction:   direction,
		Confidence:  confidence,
		Votes:       votes,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// buildDataset turns feature vectors into rows labeled with the next bar's
// realized direction. The final vector has no label and is dropped.
func buildDataset(vectors []models.FeatureVector) ([][]float64, []int, error) {
	if len(vectors) < 2 {
		return nil, nil, domain.NewInsufficientData("train", len(vectors), 2)
	}
	X := make([][]float64, 0, len(vectors)-1)
	y := make([]int, 0, len(vectors)-1)
	for i := 0; i < len(vectors)-1; i++ {
		label := 0
		if vectors[i+1].Close > vectors[i].Close {
			label = 1
		}
		X = append(X, vectors[i].Values)
		y = append(y, label)
	}
	return X, y, nil
}

func accuracy(m Member, X [][]float64, y []int) float64 {
	if len(X) == 0 {
		return 0.5
	}
	correct := 0
	for i, row := range X {
		pred := 0
		if m.ProbaUp(row) > 0.5 {
			pred = 1
		}
		if pred == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(X))
}
