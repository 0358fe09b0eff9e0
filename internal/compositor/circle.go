// Package compositor renders circular avatar badges and lays them out on a
// printable A4 sheet.
package compositor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

const (
	// Size is the edge length of every circular output.
	Size = 800
	// Radius of the clip circle, centred in the frame.
	Radius = Size / 2

	MinScale  = 0.1
	MaxScale  = 3.0
	MaxOffset = 400

	// fillThreshold is how far (in pixels) the image may be nudged before
	// the frame is considered likely to show a gap.
	fillThreshold = 5

	// maskSamples is the per-axis supersampling used for the antialiased clip edge.
	maskSamples = 4
)

// ErrInvalidTransform is returned when a scale or offset is outside the
// editable range.
var ErrInvalidTransform = errors.New("invalid transform")

// Transform is the user's zoom and pan applied to a source image.
type Transform struct {
	Scale float64 `json:"scale"`
	X     int     `json:"x"`
	Y     int     `json:"y"`
}

// DefaultTransform is the cover fit with no zoom and no offset.
func DefaultTransform() Transform {
	return Transform{Scale: 1.0}
}

// Validate checks the transform against the editable ranges.
func (t Transform) Validate() error {
	if math.IsNaN(t.Scale) || t.Scale < MinScale || t.Scale > MaxScale {
		return fmt.Errorf("%w: scale %g outside [%g, %g]", ErrInvalidTransform, t.Scale, MinScale, MaxScale)
	}
	if t.X < -MaxOffset || t.X > MaxOffset {
		return fmt.Errorf("%w: x offset %d outside [%d, %d]", ErrInvalidTransform, t.X, -MaxOffset, MaxOffset)
	}
	if t.Y < -MaxOffset || t.Y > MaxOffset {
		return fmt.Errorf("%w: y offset %d outside [%d, %d]", ErrInvalidTransform, t.Y, -MaxOffset, MaxOffset)
	}
	return nil
}

// IsDefault reports whether t is the identity cover fit.
func (t Transform) IsDefault() bool {
	return t == DefaultTransform()
}

// NeedsFill reports whether the transform is likely to leave empty regions
// inside the circle. It is a cheap heuristic; HasGap inspects actual pixels.
func (t Transform) NeedsFill() bool {
	return t.Scale < 1.0 || abs(t.X) > fillThreshold || abs(t.Y) > fillThreshold
}

// Rect is a draw rectangle in destination pixel space.
type Rect struct {
	X, Y, W, H float64
}

// DrawRect computes where a srcW×srcH image lands in the frame. At scale 1
// the image covers the whole frame, cropping the longer axis.
func DrawRect(srcW, srcH int, t Transform) Rect {
	aspect := float64(srcW) / float64(srcH)

	var baseW, baseH float64
	if aspect > 1 {
		baseH = Size
		baseW = Size * aspect
	} else {
		baseW = Size
		baseH = Size / aspect
	}

	w := baseW * t.Scale
	h := baseH * t.Scale

	return Rect{
		X: (Size-w)/2 + float64(t.X),
		Y: (Size-h)/2 + float64(t.Y),
		W: w,
		H: h,
	}
}

// Circle composites src into a Size×Size frame clipped to a centred circle.
// Everything outside the circle, and any part of the frame the drawn image
// does not reach, is left fully transparent.
func Circle(src image.Image, t Transform) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, Size, Size))

	b := src.Bounds()
	if b.Empty() {
		return dst
	}

	r := DrawRect(b.Dx(), b.Dy(), t)

	// Large sources are reduced first; a kernel transform with a wide
	// downscale footprint is far slower than a separable resize.
	if tw, th := int(math.Ceil(r.W)), int(math.Ceil(r.H)); tw > 0 && th > 0 && (b.Dx() > 2*tw || b.Dy() > 2*th) {
		src = imaging.Resize(src, tw, th, imaging.Lanczos)
		b = src.Bounds()
	}

	sx := r.W / float64(b.Dx())
	sy := r.H / float64(b.Dy())
	s2d := f64.Aff3{
		sx, 0, r.X - sx*float64(b.Min.X),
		0, sy, r.Y - sy*float64(b.Min.Y),
	}

	draw.CatmullRom.Transform(dst, s2d, src, b, draw.Over, &draw.Options{
		DstMask:  circleMask(),
		DstMaskP: image.Point{},
	})

	return dst
}

// CircleBytes decodes data, composites it with t and returns a PNG.
func CircleBytes(data []byte, t Transform) ([]byte, error) {
	src, err := Decode(data)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := EncodePNG(&buf, Circle(src, t)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HasGap reports whether any pixel well inside the circle is mostly
// transparent, meaning the drawn image does not cover it.
func HasGap(img image.Image) bool {
	b := img.Bounds()
	inner := float64(Radius - 2)
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			if distance(float64(x)+0.5, float64(y)+0.5) > inner {
				continue
			}
			_, _, _, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if a < 0x8000 {
				return true
			}
		}
	}
	return false
}

var (
	maskOnce sync.Once
	mask     *image.Alpha
)

// circleMask returns the shared antialiased clip mask. It is read-only
// once built.
func circleMask() *image.Alpha {
	maskOnce.Do(func() {
		mask = image.NewAlpha(image.Rect(0, 0, Size, Size))
		const total = maskSamples * maskSamples
		for y := 0; y < Size; y++ {
			for x := 0; x < Size; x++ {
				// The antialiased band lies inside the edge only.
				if distance(float64(x)+0.5, float64(y)+0.5) > Radius {
					continue
				}
				inside := 0
				for j := 0; j < maskSamples; j++ {
					for i := 0; i < maskSamples; i++ {
						px := float64(x) + (float64(i)+0.5)/maskSamples
						py := float64(y) + (float64(j)+0.5)/maskSamples
						if distance(px, py) <= Radius {
							inside++
						}
					}
				}
				mask.Pix[y*mask.Stride+x] = uint8(inside * 255 / total)
			}
		}
	})
	return mask
}

func distance(x, y float64) float64 {
	return math.Hypot(x-Radius, y-Radius)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
