package compositor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrLoadFailure is returned when a raster cannot be decoded, whether it came
// from an uploaded file or from a remote retouch response.
var ErrLoadFailure = errors.New("failed to load image")

// Decode decodes an encoded raster, applying any EXIF orientation so phone
// photos come out upright.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image data", ErrLoadFailure)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailure, err)
	}

	return img, nil
}

// EncodePNG writes img as a PNG, preserving transparency.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// EncodeJPEG writes img as a JPEG. Quality is clamped to [1, 100]; zero
// selects DefaultJPEGQuality.
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(clampQuality(quality))); err != nil {
		return fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return nil
}

func clampQuality(quality int) int {
	switch {
	case quality == 0:
		return DefaultJPEGQuality
	case quality < 1:
		return 1
	case quality > 100:
		return 100
	default:
		return quality
	}
}
