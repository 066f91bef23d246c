package summarizer

import (
	"context"

	"github.com/yanqian/ml-services/internal/domain/dispatch"
)

// Config holds the length targets of the recursive summarizer, in tokens.
type Config struct {
	// MaxLength is the target summary length; shorter texts are returned as is.
	MaxLength int
	// ModelMaxLength is the model's input window; longer texts are split.
	ModelMaxLength int
}

// Request represents the incoming summarization payload.
type Request struct {
	Text string `json:"text"`
}

// Response carries the final summary.
type Response struct {
	Summary string `json:"summary"`
}

// GenerateOptions controls one model pass.
type GenerateOptions struct {
	MaxLength int
	DoSample  bool
}

// Model is a loaded summarization model.
type Model interface {
	dispatch.Model
	Summarize(ctx context.Context, text string, opts GenerateOptions) (string, error)
}

// Tokenizer measures text length in model tokens.
type Tokenizer interface {
	CountTokens(text string) int
}
