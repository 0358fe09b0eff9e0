package results

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lehigh-university-libraries/avatarsheet/internal/compositor"
	"github.com/lehigh-university-libraries/avatarsheet/internal/session"
	"gopkg.in/yaml.v3"
)

// PageConfig describes the sheet the manifest belongs to
type PageConfig struct {
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	Columns   int     `yaml:"columns"`
	Rows      int     `yaml:"rows"`
	ItemSize  int     `yaml:"itemsize"`
	ColGutter float64 `yaml:"colgutter"`
	RowGutter float64 `yaml:"rowgutter"`
	Quality   int     `yaml:"quality"`
	Output    string  `yaml:"output"`
	Timestamp string  `yaml:"timestamp"`
}

// SlotResult is one placed badge
type SlotResult struct {
	compositor.Slot `yaml:",inline"`
	Source          string  `yaml:"source"`
	Persona         string  `yaml:"persona,omitempty"`
	Scale           float64 `yaml:"scale"`
	OffsetX         int     `yaml:"offsetx"`
	OffsetY         int     `yaml:"offsety"`
}

// Manifest is the YAML description of a generated sheet
type Manifest struct {
	Page    PageConfig   `yaml:"page"`
	Slots   []SlotResult `yaml:"slots"`
	Skipped []string     `yaml:"skipped,omitempty"`
}

// NewManifest describes sheet as written to output. Skipped lists inputs
// that did not make it onto the page.
func NewManifest(sheet *session.SheetResult, output string, quality int, skipped []string) Manifest {
	colGap, rowGap := compositor.Gutters()
	m := Manifest{
		Page: PageConfig{
			Width:     compositor.PageWidth,
			Height:    compositor.PageHeight,
			Columns:   compositor.Columns,
			Rows:      compositor.Rows,
			ItemSize:  compositor.ItemSize,
			ColGutter: colGap,
			RowGutter: rowGap,
			Quality:   quality,
			Output:    output,
			Timestamp: time.Now().Format("2006-01-02_15-04-05"),
		},
		Slots:   make([]SlotResult, 0, len(sheet.Slots)),
		Skipped: skipped,
	}

	for i, slot := range sheet.Slots {
		e := sheet.Entries[i]
		m.Slots = append(m.Slots, SlotResult{
			Slot:    slot,
			Source:  e.OriginalName,
			Persona: e.Persona,
			Scale:   e.Scale,
			OffsetX: e.Position.X,
			OffsetY: e.Position.Y,
		})
	}

	return m
}

// SaveManifest writes m to path as YAML, creating parent directories.
func SaveManifest(path string, m Manifest) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create manifest directory: %w", err)
		}
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}

	return nil
}

// LoadManifest reads a manifest written by SaveManifest.
func LoadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return m, nil
}
