package session

import (
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/avatarsheet/internal/compositor"
	"github.com/lehigh-university-libraries/avatarsheet/internal/models"
)

// SheetFilename is the download name of the composed sheet.
const SheetFilename = "badge-sheet-2x3.jpg"

// SheetResult is a composed sheet and what went into it.
type SheetResult struct {
	JPEG    []byte
	Slots   []compositor.Slot
	Entries []models.Entry
}

// Sheet composes the ready entries, in session order, into a printable page.
// Entries that are still processing or failed are skipped.
func (c *Controller) Sheet(quality int) (*SheetResult, error) {
	var ready []models.Entry
	for _, e := range c.Entries() {
		if e.Status == models.StatusReady && len(e.Output) > 0 {
			ready = append(ready, e)
		}
	}
	if len(ready) > compositor.MaxItems {
		ready = ready[:compositor.MaxItems]
	}

	pngs := make([][]byte, 0, len(ready))
	for _, e := range ready {
		pngs = append(pngs, e.Output)
	}

	jpeg, slots, err := compositor.SheetBytes(pngs, quality)
	if err != nil {
		return nil, fmt.Errorf("failed to compose sheet: %w", err)
	}

	slog.Info("Sheet generated", "items", len(slots), "bytes", len(jpeg))
	return &SheetResult{JPEG: jpeg, Slots: slots, Entries: ready}, nil
}

// EntryImage returns the entry's badge PNG and its download name.
func (c *Controller) EntryImage(id string) ([]byte, string, error) {
	e, err := c.Get(id)
	if err != nil {
		return nil, "", err
	}
	if len(e.Output) == 0 {
		return nil, "", fmt.Errorf("%w: %s", ErrNotReady, e.Status)
	}
	return e.Output, e.Filename(), nil
}
