package repositories

import "image"

// ImageCodec wraps platform JPEG handling.
type ImageCodec interface {
	// ResizeJpeg scales a JPEG down so its long side does not exceed
	// maxLongSide pixels, preserving aspect ratio. Images already within
	// the bound are returned unchanged.
	ResizeJpeg(jpegBytes []byte, maxLongSide int) ([]byte, error)

	// EncodeJpeg encodes a decoded image back to JPEG at full quality.
	EncodeJpeg(img image.Image) ([]byte, error)
}
