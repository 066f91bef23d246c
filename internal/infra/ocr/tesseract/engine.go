package tesseract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/yanqian/ml-services/internal/domain/vision"
)

// Engine implements vision.OCRModel with the local Tesseract library. Every
// call uses its own client, so the engine is safe on a multi-worker pool.
type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewEngine constructs a Tesseract-backed OCR engine.
func NewEngine(languages []string) *Engine {
	langs := make([]string, 0, len(languages))
	for _, l := range languages {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	return &Engine{languages: langs, clientFactory: gosseract.NewClient}
}

// Load verifies the library is linked and the language data is installed.
func (e *Engine) Load(context.Context) error {
	if strings.TrimSpace(gosseract.Version()) == "" {
		return errors.New("tesseract library not available")
	}
	c := e.clientFactory()
	defer c.Close()
	if err := c.SetLanguage(e.languages...); err != nil {
		return fmt.Errorf("set languages %v: %w", e.languages, err)
	}
	return nil
}

// Close is a no-op; clients are released per call.
func (e *Engine) Close() error {
	return nil
}

// Recognize returns one fragment per recognised word.
func (e *Engine) Recognize(_ context.Context, img vision.Image) ([]vision.Fragment, error) {
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(e.languages...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetImageFromBytes(img.Data); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("recognize words: %w", err)
	}

	fragments := make([]vision.Fragment, 0, len(boxes))
	for _, b := range boxes {
		fragments = append(fragments, vision.Fragment{
			Box:        vision.Box{X0: b.Box.Min.X, Y0: b.Box.Min.Y, X1: b.Box.Max.X, Y1: b.Box.Max.Y},
			Text:       b.Word,
			Confidence: b.Confidence / 100.0,
		})
	}
	return fragments, nil
}

var _ vision.OCRModel = (*Engine)(nil)
