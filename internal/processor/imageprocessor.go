// imageprocessor.go - Portrait preprocessing before upload to the model

package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"os"

	// Register decoders for formats browsers commonly upload.
	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultMaxDimension bounds the longest edge of the uploaded portrait.
	DefaultMaxDimension = 512
	// DefaultQuality is the JPEG quality used for re-encoding.
	DefaultQuality = 60
)

// Preprocessor downsizes and re-encodes images.
type Preprocessor struct {
	MaxDimension int
	Quality      int
}

// NewPreprocessor returns a Preprocessor, substituting defaults for non-positive values.
func NewPreprocessor(maxDimension, quality int) *Preprocessor {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Preprocessor{MaxDimension: maxDimension, Quality: quality}
}

// Preprocess returns a JPEG whose longest edge is at most MaxDimension.
// It never fails: on any decode or encode error the original bytes are returned unchanged,
// together with a MIME type sniffed from them.
func (p *Preprocessor) Preprocess(data []byte) ([]byte, string) {
	out, err := p.process(data)
	if err != nil {
		return data, DetectMIMEType(data)
	}
	return out, "image/jpeg"
}

// PreprocessFile reads path and runs Preprocess on its contents.
func (p *Preprocessor) PreprocessFile(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	out, mimeType := p.Preprocess(data)
	return out, mimeType, nil
}

func (p *Preprocessor) process(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img = resizeToBound(img, p.MaxDimension)

	// JPEG has no alpha channel; flatten onto white like a canvas fill.
	bounds := img.Bounds()
	canvas := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	flat := imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: p.Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode processed image: %w", err)
	}
	return buf.Bytes(), nil
}

// resizeToBound scales img so its longest edge equals maxDimension, preserving aspect ratio.
// Images already within the bound are returned as-is.
func resizeToBound(img image.Image, maxDimension int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxDimension && height <= maxDimension {
		return img
	}
	if width >= height {
		return imaging.Resize(img, maxDimension, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxDimension, imaging.Lanczos)
}

// DetectMIMEType sniffs an image MIME type, defaulting to image/jpeg.
func DetectMIMEType(data []byte) string {
	switch mimeType := http.DetectContentType(data); mimeType {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
