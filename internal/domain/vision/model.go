package vision

import (
	"context"

	"github.com/yanqian/ml-services/internal/domain/dispatch"
)

const (
	// DefaultMinConfidence drops OCR fragments the engine is unsure about.
	DefaultMinConfidence = 0.8
	// DefaultLineTolerance is the vertical distance in pixels within which
	// word boxes belong to the same line.
	DefaultLineTolerance = 10
)

// Config tunes OCR post-processing. A zero MinConfidence keeps every
// fragment the engine reports with a positive confidence.
type Config struct {
	MinConfidence float64
	LineTolerance int
}

// DefaultConfig returns the OCR settings used when none are configured.
func DefaultConfig() Config {
	return Config{MinConfidence: DefaultMinConfidence, LineTolerance: DefaultLineTolerance}
}

// Request carries the image location.
type Request struct {
	ImageURL string `json:"imageUrl"`
}

// Image is a fetched and decoded-checked image.
type Image struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// Box is an axis-aligned bounding box in pixels.
type Box struct {
	X0, Y0, X1, Y1 int
}

// Fragment is one piece of recognised text.
type Fragment struct {
	Box        Box
	Text       string
	Confidence float64
}

// OCRModel recognises text fragments in an image.
type OCRModel interface {
	dispatch.Model
	Recognize(ctx context.Context, img Image) ([]Fragment, error)
}

// CaptionModel describes an image in natural language.
type CaptionModel interface {
	dispatch.Model
	Caption(ctx context.Context, img Image) ([]string, error)
}

// ImageSource downloads raw image bytes.
type ImageSource interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Decoder validates image bytes and reports their format.
type Decoder interface {
	Decode(data []byte) (Image, error)
}
