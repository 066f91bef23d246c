package summarizer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/yanqian/ml-services/internal/domain/dispatch"
	apperrors "github.com/yanqian/ml-services/pkg/errors"
)

// Service exposes summarization capabilities.
type Service interface {
	Summarize(ctx context.Context, req Request) (Response, error)
}

type service struct {
	cfg        Config
	model      Model
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	reducer    *recursive
}

// NewService is a wire provider for the summarizer domain. The dispatcher
// must own the same model.
func NewService(cfg Config, model Model, tokens Tokenizer, dispatcher *dispatch.Dispatcher, logger *slog.Logger) Service {
	s := &service{
		cfg:        cfg,
		model:      model,
		dispatcher: dispatcher,
		logger:     logger.With("component", "summarizer.service"),
	}
	s.reducer = &recursive{
		maxLength:      cfg.MaxLength,
		modelMaxLength: cfg.ModelMaxLength,
		tokens:         tokens,
		pass:           s.modelPass,
	}
	return s
}

func (s *service) Summarize(ctx context.Context, req Request) (Response, error) {
	text := normalize(req.Text)
	if strings.TrimSpace(text) == "" {
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "text cannot be empty", nil)
	}

	start := time.Now()
	summary, err := s.reducer.summarize(ctx, text)
	if err != nil {
		if apperrors.CodeOf(err) != "" {
			return Response{}, err
		}
		return Response{}, apperrors.Wrap(apperrors.CodeModel, "summarization failed", err)
	}
	s.logger.Info("text summarized", "input_chars", len(text), "summary_chars", len(summary), "latency_ms", time.Since(start).Milliseconds())
	return Response{Summary: summary}, nil
}

func (s *service) modelPass(ctx context.Context, text string) (string, error) {
	opts := GenerateOptions{MaxLength: s.cfg.MaxLength, DoSample: false}
	summary, err := dispatch.DispatchOne(ctx, s.dispatcher, text, func(ctx context.Context, text string) (string, error) {
		return s.model.Summarize(ctx, text, opts)
	})
	if err != nil {
		return "", err
	}
	s.logger.Debug("model pass finished", "input_chars", len(text), "summary_chars", len(summary))
	return strings.TrimSpace(summary), nil
}

// normalize turns line breaks into spaces so sentence boundaries survive.
func normalize(text string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)
}
