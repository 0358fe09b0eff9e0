package compositor

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
)

// A4 at 300 DPI, holding up to six badges in two columns.
const (
	PageWidth  = 2480
	PageHeight = 3508
	Columns    = 2
	Rows       = 3
	ItemSize   = Size
	MaxItems   = Columns * Rows

	DefaultJPEGQuality = 98
)

// Slot is the placement of one badge on the sheet. X and Y are the exact
// top-left origin; the raster is drawn at the nearest whole pixel.
type Slot struct {
	Index int     `json:"index" yaml:"index"`
	Col   int     `json:"col" yaml:"col"`
	Row   int     `json:"row" yaml:"row"`
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
}

// Gutters returns the horizontal and vertical spacing. Page margins and
// the gaps between items are all equal on each axis.
func Gutters() (colGap, rowGap float64) {
	colGap = float64(PageWidth-Columns*ItemSize) / float64(Columns+1)
	rowGap = float64(PageHeight-Rows*ItemSize) / float64(Rows+1)
	return colGap, rowGap
}

// Layout returns the slots for the first n items, capped at MaxItems.
func Layout(n int) []Slot {
	n = max(0, min(n, MaxItems))
	colGap, rowGap := Gutters()

	slots := make([]Slot, n)
	for i := range slots {
		col := i % Columns
		row := i / Columns
		slots[i] = Slot{
			Index: i,
			Col:   col,
			Row:   row,
			X:     colGap + float64(col)*(ItemSize+colGap),
			Y:     rowGap + float64(row)*(ItemSize+rowGap),
		}
	}
	return slots
}

// Sheet draws up to MaxItems badges on a white page. Items beyond the
// sixth are ignored and missing items leave their cells blank.
func Sheet(items []image.Image) (*image.RGBA, []Slot) {
	page := image.NewRGBA(image.Rect(0, 0, PageWidth, PageHeight))
	draw.Draw(page, page.Bounds(), image.White, image.Point{}, draw.Src)

	slots := Layout(len(items))
	for i, slot := range slots {
		item := items[i]
		at := image.Pt(int(math.Round(slot.X)), int(math.Round(slot.Y)))
		dr := image.Rectangle{Min: at, Max: at.Add(image.Pt(ItemSize, ItemSize))}

		b := item.Bounds()
		if b.Dx() == ItemSize && b.Dy() == ItemSize {
			draw.Draw(page, dr, item, b.Min, draw.Over)
		} else {
			draw.CatmullRom.Scale(page, dr, item, b, draw.Over, nil)
		}
	}

	return page, slots
}

// SheetBytes decodes the encoded badges, composes the sheet and returns it
// as a JPEG together with the slots that were used.
func SheetBytes(items [][]byte, quality int) ([]byte, []Slot, error) {
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}

	decoded := make([]image.Image, 0, len(items))
	for i, data := range items {
		img, err := Decode(data)
		if err != nil {
			return nil, nil, fmt.Errorf("sheet item %d: %w", i, err)
		}
		decoded = append(decoded, img)
	}

	page, slots := Sheet(decoded)

	var buf bytes.Buffer
	if err := EncodeJPEG(&buf, page, quality); err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), slots, nil
}
