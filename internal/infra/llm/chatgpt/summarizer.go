package chatgpt

import (
	"context"
	"errors"
	"strings"

	"github.com/yanqian/ml-services/internal/domain/summarizer"
)

const summaryPrompt = `You are a summarization model. Summarize the user's text.
Constraints:
- Reply with the summary only, no preamble.
- Keep the facts and names of the source; do not add information.
- Write plain prose in the language of the source.`

// Summarizer adapts the chat completion API to the summarizer domain.
type Summarizer struct {
	client *Client
	model  string
}

// NewSummarizer constructs the adapter.
func NewSummarizer(client *Client, model string) *Summarizer {
	return &Summarizer{client: client, model: model}
}

// Load checks the adapter is usable; the model lives on the API side.
func (s *Summarizer) Load(context.Context) error {
	if s.client == nil {
		return errors.New("chatgpt client is not configured")
	}
	if strings.TrimSpace(s.model) == "" {
		return errors.New("chatgpt model cannot be empty")
	}
	return nil
}

// Close is a no-op.
func (s *Summarizer) Close() error {
	return nil
}

// Summarize asks for a deterministic summary capped at opts.MaxLength tokens.
func (s *Summarizer) Summarize(ctx context.Context, text string, opts summarizer.GenerateOptions) (string, error) {
	var temperature float32
	if opts.DoSample {
		temperature = 0.7
	}
	resp, err := s.client.CreateChatCompletion(ctx, ChatCompletionRequest{
		Model:       s.model,
		Temperature: temperature,
		MaxTokens:   opts.MaxLength,
		Messages: []Message{
			{Role: "system", Content: summaryPrompt},
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chatgpt returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

var _ summarizer.Model = (*Summarizer)(nil)
