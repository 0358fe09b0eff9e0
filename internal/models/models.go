package models

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/avatarsheet/internal/compositor"
)

// Status is the lifecycle state of an editing entry
type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFilling    Status = "filling"
	StatusError      Status = "error"
)

// Position is the pan offset from centre, in output pixels
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Entry is one uploaded image being edited into a badge.
// Byte slices are treated as immutable once an entry is stored.
type Entry struct {
	ID           string
	OriginalName string
	// Source is the baseline the badge is cropped from: the uploaded file,
	// or the last successful retouch result.
	Source []byte
	// Output is the current circular PNG.
	Output    []byte
	Scale     float64
	Position  Position
	Status    Status
	Persona   string
	LastError string
	// Revision increases on every edit that re-derives Output.
	Revision  uint64
	CreatedAt time.Time
}

// EntryView is the JSON shape of an entry returned to clients
type EntryView struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	Scale        float64   `json:"scale"`
	Position     Position  `json:"position"`
	Status       Status    `json:"status"`
	Persona      string    `json:"persona,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	NeedsFill    bool      `json:"needs_fill"`
	HasOutput    bool      `json:"has_output"`
	ImageURL     string    `json:"image_url,omitempty"`
	Revision     uint64    `json:"revision"`
	CreatedAt    time.Time `json:"created_at"`
}

// Transform returns the entry's zoom and pan
func (e Entry) Transform() compositor.Transform {
	return compositor.Transform{Scale: e.Scale, X: e.Position.X, Y: e.Position.Y}
}

// Filename is the download name for the entry's badge
func (e Entry) Filename() string {
	return AvatarFilename(e.OriginalName)
}

func (e Entry) View() EntryView {
	view := EntryView{
		ID:           e.ID,
		OriginalName: e.OriginalName,
		Scale:        e.Scale,
		Position:     e.Position,
		Status:       e.Status,
		Persona:      e.Persona,
		LastError:    e.LastError,
		NeedsFill:    e.Transform().NeedsFill(),
		HasOutput:    len(e.Output) > 0,
		Revision:     e.Revision,
		CreatedAt:    e.CreatedAt,
	}
	if view.HasOutput {
		view.ImageURL = "/api/entries/" + e.ID + "/image"
	}
	return view
}

// AvatarFilename derives "avatar-<stem>.png" from an uploaded file name,
// where the stem is everything before the first dot.
func AvatarFilename(name string) string {
	stem, _, _ := strings.Cut(filepath.Base(name), ".")
	if stem == "" || stem == "/" {
		stem = "image"
	}
	return "avatar-" + stem + ".png"
}

// Views projects entries for JSON output
func Views(entries []Entry) []EntryView {
	views := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, e.View())
	}
	return views
}
