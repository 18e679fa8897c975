package models

import "time"

// Direction is the predicted price direction over a horizon.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// ModelFamily is a closed set of ensemble member families.
type ModelFamily string

const (
	FamilyTreeEnsemble ModelFamily = "tree_ensemble"
	FamilyKernel       ModelFamily = "kernel"
	FamilyLinear       ModelFamily = "linear"
	FamilyNeural       ModelFamily = "neural"
)

// Families lists every member family in the fixed training order.
func Families() []ModelFamily {
	return []ModelFamily{FamilyTreeEnsemble, FamilyKernel, FamilyLinear, FamilyNeural}
}

// MemberVote is one member's contribution to an ensemble prediction.
type MemberVote struct {
	Family    ModelFamily `json:"family"`
	Direction Direction   `json:"direction"`
	ProbaUp   float64     `json:"probaUp"`
	Weight    float64     `json:"weight"`
	ValAcc    float64     `json:"validationAccuracy"`
}

// Prediction is the combined ensemble output for one symbol/horizon.
// Confidence is always within [0,1]; vote ties resolve to flat.
type Prediction struct {
	Symbol      string       `json:"symbol"`
	HorizonDays int          `json:"horizon"`
	Direction   Direction    `json:"direction"`
	Confidence  float64      `json:"confidence"`
	Votes       []MemberVote `json:"modelBreakdown"`
	GeneratedAt time.Time    `json:"generatedAt"`
}

// ModelArtifact is one trained member model. Artifacts are replaced wholesale
// on retrain, never mutated, and persisted append-only so prior versions stay
// inspectable until pruned.
type ModelArtifact struct {
	Symbol        string      `json:"symbol"`
	Family        ModelFamily `json:"family"`
	Version       int         `json:"version"`
	SchemaVersion int         `json:"schemaVersion"`
	TrainedAt     time.Time   `json:"trainedAt"`
	TrainStart    time.Time   `json:"trainStart"`
	TrainEnd      time.Time   `json:"trainEnd"`
	ValAccuracy   float64     `json:"validationAccuracy"`
	Weight        float64     `json:"weight"`
	Params        []byte      `json:"-"`
}

// TrainReport summarizes one completed training run.
type TrainReport struct {
	Symbol      string       `json:"symbol"`
	TrainedAt   time.Time    `json:"trainedAt"`
	ValAccuracy float64      `json:"validationAccuracy"`
	Members     []MemberVote `json:"memberBreakdown"`
	SampleCount int          `json:"sampleCount"`
}
