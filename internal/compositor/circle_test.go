package compositor

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// bands returns a landscape image whose left and right 200 columns are red
// and blue with a green centre, so the visible crop can be identified.
func bands() *image.NRGBA {
	img := solid(1200, 800, green)
	for y := 0; y < 800; y++ {
		for x := 0; x < 200; x++ {
			img.SetNRGBA(x, y, red)
			img.SetNRGBA(1199-x, y, blue)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	return buf.Bytes()
}

func TestDrawRect(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		tr   Transform
		want Rect
	}{
		{
			name: "landscape cover",
			w:    1200, h: 800,
			tr:   DefaultTransform(),
			want: Rect{X: -200, Y: 0, W: 1200, H: 800},
		},
		{
			name: "portrait cover",
			w:    800, h: 1600,
			tr:   DefaultTransform(),
			want: Rect{X: 0, Y: -400, W: 800, H: 1600},
		},
		{
			name: "square cover",
			w:    300, h: 300,
			tr:   DefaultTransform(),
			want: Rect{X: 0, Y: 0, W: 800, H: 800},
		},
		{
			name: "zoomed out",
			w:    1200, h: 800,
			tr:   Transform{Scale: 0.5},
			want: Rect{X: 100, Y: 200, W: 600, H: 400},
		},
		{
			name: "zoomed in with offset",
			w:    1000, h: 1000,
			tr:   Transform{Scale: 2, X: 50, Y: -30},
			want: Rect{X: -350, Y: -430, W: 1600, H: 1600},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DrawRect(tt.w, tt.h, tt.tr)
			if math.Abs(got.X-tt.want.X) > 1e-9 || math.Abs(got.Y-tt.want.Y) > 1e-9 ||
				math.Abs(got.W-tt.want.W) > 1e-9 || math.Abs(got.H-tt.want.H) > 1e-9 {
				t.Errorf("DrawRect(%d, %d, %+v) = %+v, want %+v", tt.w, tt.h, tt.tr, got, tt.want)
			}
		})
	}
}

func TestTransformValidate(t *testing.T) {
	tests := []struct {
		name    string
		tr      Transform
		wantErr bool
	}{
		{"default", DefaultTransform(), false},
		{"min scale", Transform{Scale: 0.1}, false},
		{"max scale and offsets", Transform{Scale: 3, X: -400, Y: 400}, false},
		{"scale too small", Transform{Scale: 0.05}, true},
		{"scale too large", Transform{Scale: 3.5}, true},
		{"scale NaN", Transform{Scale: math.NaN()}, true},
		{"x out of range", Transform{Scale: 1, X: 401}, true},
		{"y out of range", Transform{Scale: 1, Y: -401}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tr.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTransform) {
					t.Errorf("Expected ErrInvalidTransform, got %v", err)
				}
			} else if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestTransformNeedsFill(t *testing.T) {
	tests := []struct {
		tr   Transform
		want bool
	}{
		{DefaultTransform(), false},
		{Transform{Scale: 1.5, X: 5, Y: -5}, false},
		{Transform{Scale: 0.99}, true},
		{Transform{Scale: 1, X: 6}, true},
		{Transform{Scale: 1, Y: -6}, true},
	}

	for _, tt := range tests {
		if got := tt.tr.NeedsFill(); got != tt.want {
			t.Errorf("%+v.NeedsFill() = %v, want %v", tt.tr, got, tt.want)
		}
	}
}

func TestCircleOutsideIsTransparent(t *testing.T) {
	transforms := []Transform{
		DefaultTransform(),
		{Scale: 0.1},
		{Scale: 0.5, X: 400, Y: -400},
		{Scale: 3, X: -250, Y: 120},
	}
	sources := map[string]image.Image{
		"landscape": solid(1200, 800, red),
		"portrait":  solid(600, 900, blue),
	}

	for name, src := range sources {
		for _, tr := range transforms {
			out := Circle(src, tr)
			if got := out.Bounds(); got.Dx() != Size || got.Dy() != Size {
				t.Fatalf("%s %+v: bounds %v, want %dx%d", name, tr, got, Size, Size)
			}
			for y := 0; y < Size; y++ {
				for x := 0; x < Size; x++ {
					if distance(float64(x)+0.5, float64(y)+0.5) <= Radius {
						continue
					}
					if a := out.NRGBAAt(x, y).A; a != 0 {
						t.Fatalf("%s %+v: pixel (%d,%d) outside circle has alpha %d", name, tr, x, y, a)
					}
				}
			}
		}
	}
}

func TestCircleCoverHasNoGap(t *testing.T) {
	sources := map[string]image.Image{
		"landscape": solid(1200, 800, red),
		"portrait":  solid(600, 900, green),
		"square":    solid(500, 500, blue),
	}

	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			out := Circle(src, DefaultTransform())
			if HasGap(out) {
				t.Error("Expected no gap at default transform")
			}
			if a := out.NRGBAAt(Radius, Radius).A; a != 255 {
				t.Errorf("Centre alpha = %d, want 255", a)
			}
		})
	}
}

func TestCircleZoomedOutHasGap(t *testing.T) {
	out := Circle(solid(1200, 800, red), Transform{Scale: 0.5})

	if !HasGap(out) {
		t.Fatal("Expected a gap at scale 0.5")
	}
	// Drawn area is (100,200)-(700,600); (400,100) is inside the circle but above it.
	if a := out.NRGBAAt(400, 100).A; a != 0 {
		t.Errorf("Gap pixel alpha = %d, want 0", a)
	}
	if c := out.NRGBAAt(400, 400); c != red {
		t.Errorf("Centre pixel = %v, want %v", c, red)
	}
}

func TestCircleLandscapeShowsCentre(t *testing.T) {
	out := Circle(bands(), DefaultTransform())

	for _, p := range []image.Point{{10, 400}, {400, 400}, {789, 400}, {400, 10}, {400, 789}} {
		if c := out.NRGBAAt(p.X, p.Y); c != green {
			t.Errorf("Pixel %v = %v, want green", p, c)
		}
	}
}

func TestCircleOffsetMovesImage(t *testing.T) {
	// Shifting right by 200 brings the red band into the left edge of the frame.
	out := Circle(bands(), Transform{Scale: 1, X: 200})

	if c := out.NRGBAAt(100, 400); c != red {
		t.Errorf("Pixel (100,400) = %v, want red", c)
	}
	if c := out.NRGBAAt(600, 400); c != green {
		t.Errorf("Pixel (600,400) = %v, want green", c)
	}
}

func TestCircleIsDeterministic(t *testing.T) {
	src := bands()
	tr := Transform{Scale: 0.73, X: -41, Y: 17}

	first := Circle(src, tr)
	second := Circle(src, tr)

	if !bytes.Equal(first.Pix, second.Pix) {
		t.Error("Expected identical output for identical input")
	}
}

func TestCircleBytes(t *testing.T) {
	data := encodePNG(t, solid(640, 480, red))

	out, err := CircleBytes(data, DefaultTransform())
	if err != nil {
		t.Fatalf("CircleBytes failed: %v", err)
	}

	img, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode output failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != Size || b.Dy() != Size {
		t.Errorf("Output bounds %v, want %dx%d", b, Size, Size)
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Errorf("Corner alpha = %d, want 0", a)
	}
}

func TestCircleBytesLoadFailure(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":   nil,
		"garbage": []byte("definitely not an image"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := CircleBytes(data, DefaultTransform())
			if !errors.Is(err, ErrLoadFailure) {
				t.Errorf("Expected ErrLoadFailure, got %v", err)
			}
		})
	}
}

func TestCircleLargeSource(t *testing.T) {
	out := Circle(solid(4000, 3000, blue), DefaultTransform())

	if HasGap(out) {
		t.Error("Expected no gap for downscaled source")
	}
	if c := out.NRGBAAt(Radius, Radius); c != blue {
		t.Errorf("Centre pixel = %v, want blue", c)
	}
}
