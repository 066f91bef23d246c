package vision

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/yanqian/ml-services/internal/domain/dispatch"
	apperrors "github.com/yanqian/ml-services/pkg/errors"
)

// Service reads text from images and describes them.
type Service interface {
	OCR(ctx context.Context, req Request) ([]string, error)
	Caption(ctx context.Context, req Request) ([]string, error)
}

// Deps groups the collaborators of the vision service.
type Deps struct {
	Source      ImageSource
	Decoder     Decoder
	OCR         OCRModel
	OCRPool     *dispatch.Dispatcher
	Captioner   CaptionModel
	CaptionPool *dispatch.Dispatcher
}

type service struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
}

// NewService wires the vision processors. Either model may be nil when its
// route is disabled.
func NewService(cfg Config, deps Deps, logger *slog.Logger) Service {
	if cfg.LineTolerance < 0 {
		cfg.LineTolerance = 0
	}
	return &service{cfg: cfg, deps: deps, logger: logger.With("component", "vision.service")}
}

// OCR returns the recognised lines of the image, top to bottom.
func (s *service) OCR(ctx context.Context, req Request) ([]string, error) {
	if s.deps.OCR == nil {
		return nil, apperrors.Wrap(apperrors.CodeNotReady, "ocr is disabled", nil)
	}
	img, err := s.load(ctx, req.ImageURL)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	fragments, err := dispatch.DispatchOne(ctx, s.deps.OCRPool, img, s.deps.OCR.Recognize)
	if err != nil {
		return nil, modelError("ocr failed", err)
	}
	lines := groupLines(fragments, s.cfg.MinConfidence, s.cfg.LineTolerance)
	s.logger.Info("image read", "fragments", len(fragments), "lines", len(lines), "latency_ms", time.Since(start).Milliseconds())
	return lines, nil
}

// Caption returns the generated descriptions of the image.
func (s *service) Caption(ctx context.Context, req Request) ([]string, error) {
	if s.deps.Captioner == nil {
		return nil, apperrors.Wrap(apperrors.CodeNotReady, "captioning is disabled", nil)
	}
	img, err := s.load(ctx, req.ImageURL)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	captions, err := dispatch.DispatchOne(ctx, s.deps.CaptionPool, img, s.deps.Captioner.Caption)
	if err != nil {
		return nil, modelError("caption failed", err)
	}
	out := make([]string, 0, len(captions))
	for _, c := range captions {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	s.logger.Info("image captioned", "captions", len(out), "latency_ms", time.Since(start).Milliseconds())
	return out, nil
}

func (s *service) load(ctx context.Context, url string) (Image, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return Image{}, apperrors.Wrap(apperrors.CodeInvalidInput, "imageUrl cannot be empty", nil)
	}
	data, err := s.deps.Source.Fetch(ctx, url)
	if err != nil {
		return Image{}, apperrors.Wrap(apperrors.CodeFetch, "fetch image", err)
	}
	img, err := s.deps.Decoder.Decode(data)
	if err != nil {
		return Image{}, apperrors.Wrap(apperrors.CodeInvalidInput, "decode image", err)
	}
	return img, nil
}

func modelError(message string, err error) error {
	if apperrors.CodeOf(err) != "" {
		return err
	}
	return apperrors.Wrap(apperrors.CodeModel, message, err)
}
