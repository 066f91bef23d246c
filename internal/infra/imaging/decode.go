package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/yanqian/ml-services/internal/domain/vision"
)

// maxPixels rejects decompression bombs before they reach a model.
const maxPixels = 50_000_000

// Decoder checks image bytes against the registered formats.
type Decoder struct{}

// NewDecoder builds the decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode reads the image header and reports format and size.
func (*Decoder) Decode(data []byte) (vision.Image, error) {
	if len(data) == 0 {
		return vision.Image{}, errors.New("image is empty")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return vision.Image{}, fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return vision.Image{}, fmt.Errorf("invalid image size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return vision.Image{}, fmt.Errorf("image too large: %dx%d", cfg.Width, cfg.Height)
	}
	return vision.Image{Data: data, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

var _ vision.Decoder = (*Decoder)(nil)
