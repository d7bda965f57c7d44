// Package imaging implements the JPEG codec used for captured photos.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	"github.com/FairyDevicesRD/ai.chat.kmp/domain/repositories"
)

const (
	resizeQuality = 90
	encodeQuality = 100
)

// Editor implements repositories.ImageCodec.
type Editor struct{}

var _ repositories.ImageCodec = (*Editor)(nil)

// NewEditor creates a new JPEG editor.
func NewEditor() *Editor {
	return &Editor{}
}

// ResizeJpeg scales a JPEG down so its long side does not exceed
// maxLongSide pixels, preserving aspect ratio. Images already within the
// bound are returned unchanged.
func (e *Editor) ResizeJpeg(jpegBytes []byte, maxLongSide int) ([]byte, error) {
	src, err := jpeg.Decode(bytes.NewReader(jpegBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode jpeg: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	longSide := width
	if height > longSide {
		longSide = height
	}
	if longSide <= maxLongSide {
		return jpegBytes, nil
	}

	scale := float64(maxLongSide) / float64(longSide)
	dst := image.NewRGBA(image.Rect(0, 0,
		int(float64(width)*scale), int(float64(height)*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: resizeQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode resized jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJpeg encodes a decoded image back to JPEG at full quality.
func (e *Editor) EncodeJpeg(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: encodeQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
