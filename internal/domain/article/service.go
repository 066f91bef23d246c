package article

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/yanqian/ml-services/internal/domain/dispatch"
	apperrors "github.com/yanqian/ml-services/pkg/errors"
)

// Service extracts the main text of web pages.
type Service interface {
	Fetch(ctx context.Context, req Request) ([]dispatch.Outcome[string], error)
}

type service struct {
	fetcher    Fetcher
	extractor  Extractor
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

// NewService wires the article extractor. The dispatcher must own extractor.
func NewService(fetcher Fetcher, extractor Extractor, dispatcher *dispatch.Dispatcher, logger *slog.Logger) Service {
	return &service{
		fetcher:    fetcher,
		extractor:  extractor,
		dispatcher: dispatcher,
		logger:     logger.With("component", "article.service"),
	}
}

// Fetch returns one entry per URL: the extracted text, or null when the URL
// is null, cannot be downloaded, or has no main text.
func (s *service) Fetch(ctx context.Context, req Request) ([]dispatch.Outcome[string], error) {
	start := time.Now()
	out, err := dispatch.DispatchMany(ctx, s.dispatcher, req.URLs, dispatch.Work[*string, Page, string]{
		Skip: func(url *string) bool {
			return url == nil || strings.TrimSpace(*url) == ""
		},
		Prepare: func(ctx context.Context, url *string) (Page, error) {
			return s.fetcher.FetchPage(ctx, strings.TrimSpace(*url))
		},
		Infer: s.extract,
	})
	if err != nil {
		if apperrors.CodeOf(err) != "" {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CodeModel, "article extraction failed", err)
	}

	found := 0
	for _, o := range out {
		if o.Valid {
			found++
		}
	}
	s.logger.Info("articles extracted", "urls", len(req.URLs), "found", found, "latency_ms", time.Since(start).Milliseconds())
	return out, nil
}

func (s *service) extract(ctx context.Context, page Page) (string, error) {
	text, err := s.extractor.Extract(ctx, page)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", dispatch.ErrNoResult
	}
	return text, nil
}
