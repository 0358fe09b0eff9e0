package results

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/avatarsheet/internal/compositor"
	"github.com/lehigh-university-libraries/avatarsheet/internal/models"
	"github.com/lehigh-university-libraries/avatarsheet/internal/session"
)

func TestNewManifest(t *testing.T) {
	sheet := &session.SheetResult{
		Slots: compositor.Layout(3),
		Entries: []models.Entry{
			{OriginalName: "a.jpg", Persona: "Quiet Forest Guide", Scale: 1},
			{OriginalName: "b.jpg", Scale: 1.5, Position: models.Position{X: 12, Y: -4}},
			{OriginalName: "c.jpg", Scale: 1},
		},
	}

	m := NewManifest(sheet, "sheet.jpg", 90, []string{"d.jpg"})

	if m.Page.Width != 2480 || m.Page.Height != 3508 || m.Page.Quality != 90 {
		t.Errorf("Unexpected page config: %+v", m.Page)
	}
	if m.Page.RowGutter != 277 {
		t.Errorf("RowGutter = %v, want 277", m.Page.RowGutter)
	}
	if len(m.Slots) != 3 {
		t.Fatalf("Expected 3 slots, got %d", len(m.Slots))
	}

	second := m.Slots[1]
	if second.Col != 1 || second.Row != 0 || second.Source != "b.jpg" || second.OffsetX != 12 || second.OffsetY != -4 {
		t.Errorf("Unexpected second slot: %+v", second)
	}
	if m.Slots[2].Row != 1 || m.Slots[2].Y != 1354 {
		t.Errorf("Unexpected third slot: %+v", m.Slots[2])
	}
}

func TestSaveAndLoadManifest(t *testing.T) {
	sheet := &session.SheetResult{
		Slots:   compositor.Layout(1),
		Entries: []models.Entry{{OriginalName: "me.png", Persona: "Bold Night Explorer", Scale: 1}},
	}
	path := filepath.Join(t.TempDir(), "out", "manifest.yaml")

	if err := SaveManifest(path, NewManifest(sheet, "sheet.jpg", 98, nil)); err != nil {
		t.Fatalf("SaveManifest failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"page:", "persona: Bold Night Explorer", "source: me.png", "index: 0"} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("manifest missing %q:\n%s", want, raw)
		}
	}
	if strings.Contains(string(raw), "skipped") {
		t.Error("empty skipped list should be omitted")
	}

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}
	if len(m.Slots) != 1 || m.Slots[0].Source != "me.png" || m.Slots[0].X != sheet.Slots[0].X {
		t.Errorf("Unexpected manifest: %+v", m)
	}
}

func TestLoadManifestMissing(t *testing.T) {
	if _, err := LoadManifest(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
