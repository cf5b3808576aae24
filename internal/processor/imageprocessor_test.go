package processor

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func encodePNG(t *testing.T, width, height int, transparent bool) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255}
			if transparent {
				c.A = 0
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func decodeConfig(t *testing.T, data []byte) image.Config {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("expected jpeg output, got %s", format)
	}
	return cfg
}

func TestPreprocessResizesToBound(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{"landscape", 2000, 1000, 512, 256},
		{"portrait", 900, 1800, 256, 512},
		{"square", 1024, 1024, 512, 512},
		{"odd ratio", 1500, 1001, 512, 342},
	}

	p := NewPreprocessor(512, 60)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, mimeType := p.Preprocess(encodePNG(t, tt.width, tt.height, false))
			if mimeType != "image/jpeg" {
				t.Errorf("mime = %s, want image/jpeg", mimeType)
			}
			cfg := decodeConfig(t, out)
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.wantW, tt.wantH)
			}

			inRatio := float64(tt.width) / float64(tt.height)
			outRatio := float64(cfg.Width) / float64(cfg.Height)
			if math.Abs(inRatio-outRatio) > 0.01 {
				t.Errorf("aspect ratio drifted: in %.4f out %.4f", inRatio, outRatio)
			}
		})
	}
}

func TestPreprocessKeepsSmallImageSize(t *testing.T) {
	p := NewPreprocessor(512, 60)
	out, _ := p.Preprocess(encodePNG(t, 300, 200, false))
	cfg := decodeConfig(t, out)
	if cfg.Width != 300 || cfg.Height != 200 {
		t.Errorf("size = %dx%d, want 300x200", cfg.Width, cfg.Height)
	}
}

func TestPreprocessFlattensTransparencyOntoWhite(t *testing.T) {
	p := NewPreprocessor(512, 90)
	out, _ := p.Preprocess(encodePNG(t, 20, 20, true))

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	r, g, b, _ := img.At(10, 10).RGBA()
	if r>>8 < 240 || g>>8 < 240 || b>>8 < 240 {
		t.Errorf("expected near-white pixel, got %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestPreprocessReturnsOriginalOnDecodeError(t *testing.T) {
	p := NewPreprocessor(512, 60)
	garbage := []byte("definitely not an image")

	out, mimeType := p.Preprocess(garbage)
	if !bytes.Equal(out, garbage) {
		t.Error("expected original bytes back on decode failure")
	}
	if mimeType != "image/jpeg" {
		t.Errorf("mime = %s, want image/jpeg fallback", mimeType)
	}
}

func TestPreprocessFile(t *testing.T) {
	p := NewPreprocessor(0, 0)
	if p.MaxDimension != DefaultMaxDimension || p.Quality != DefaultQuality {
		t.Fatalf("defaults not applied: %+v", p)
	}

	path := filepath.Join(t.TempDir(), "face.png")
	if err := os.WriteFile(path, encodePNG(t, 1200, 600, false), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, mimeType, err := p.PreprocessFile(path)
	if err != nil {
		t.Fatalf("PreprocessFile: %v", err)
	}
	if mimeType != "image/jpeg" {
		t.Errorf("mime = %s", mimeType)
	}
	if cfg := decodeConfig(t, out); cfg.Width != 512 || cfg.Height != 256 {
		t.Errorf("size = %dx%d, want 512x256", cfg.Width, cfg.Height)
	}

	if _, _, err := p.PreprocessFile(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDetectMIMEType(t *testing.T) {
	if got := DetectMIMEType(encodePNG(t, 2, 2, false)); got != "image/png" {
		t.Errorf("DetectMIMEType(png) = %s", got)
	}
	if got := DetectMIMEType([]byte("text")); got != "image/jpeg" {
		t.Errorf("DetectMIMEType(text) = %s", got)
	}
}
