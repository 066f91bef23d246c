package ranking

import (
	"context"

	"github.com/yanqian/ml-services/internal/domain/dispatch"
)

// DefaultThreshold is the minimum score a class needs to be reported.
const DefaultThreshold = 0.75

// Config tunes the classifier. A zero Threshold keeps every label.
type Config struct {
	Threshold float64
}

// DefaultConfig returns the classifier settings used when none are configured.
func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold}
}

// RerankRequest is the payload of a rerank call.
type RerankRequest struct {
	BasePassage string   `json:"base_passage"`
	Queries     []string `json:"queries"`
}

// ClassifyRequest is the payload of a classify call.
type ClassifyRequest struct {
	Queries []string `json:"queries"`
	Classes []string `json:"classes"`
}

// Pair is one cross-encoder input.
type Pair struct {
	Text     string
	TextPair string
}

// LabelScore is one class with its entailment score.
type LabelScore struct {
	Label string
	Score float64
}

// CrossEncoder scores text pairs in a single forward pass.
type CrossEncoder interface {
	dispatch.Model
	Score(ctx context.Context, pairs []Pair) ([]float64, error)
}

// ZeroShotModel classifies one sequence against candidate labels, scoring
// each label independently.
type ZeroShotModel interface {
	dispatch.Model
	Classify(ctx context.Context, sequence string, labels []string) ([]LabelScore, error)
}
