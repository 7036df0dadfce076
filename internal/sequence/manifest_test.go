package sequence

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(`
defaults:
  timesignature: "3:4"
  frame_rate: 25
sequences:
  - name: intro
  - name: outlaw-star
    bpm: 110
    duration: 30
  - file: chase.yaml
    disabled: true
`))
	if err != nil {
		t.Fatalf("ParseManifest() error = %v", err)
	}
	if m.Defaults.FrameRate != 25 || m.Defaults.TimeSignature != "3:4" {
		t.Errorf("Defaults = %+v", m.Defaults)
	}
	if len(m.Sequences) != 3 {
		t.Fatalf("len(Sequences) = %d, want 3", len(m.Sequences))
	}
	if e := m.Sequences[1]; e.Overrides.Name != "outlaw-star" || e.Overrides.BPM != 110 || e.Overrides.Duration != 30 {
		t.Errorf("Sequences[1] = %+v", e)
	}
	if !m.Sequences[2].Disabled || m.Sequences[2].File != "chase.yaml" {
		t.Errorf("Sequences[2] = %+v", m.Sequences[2])
	}
}

func TestParseManifest_Invalid(t *testing.T) {
	for _, doc := range []string{"sequences: [", "sequences:\n  - bpm: 90\n"} {
		if _, err := ParseManifest([]byte(doc)); !errors.Is(err, ErrInvalidDefinition) {
			t.Errorf("ParseManifest(%q) error = %v, want ErrInvalidDefinition", doc, err)
		}
	}
}

func TestLoadManifest_Missing(t *testing.T) {
	m, err := LoadManifest(filepath.Join(t.TempDir(), "manifest.yaml"))
	if err != nil {
		t.Fatalf("LoadManifest(missing) error = %v", err)
	}
	if len(m.Sequences) != 0 {
		t.Errorf("Sequences = %v, want empty", m.Sequences)
	}
}

func TestManifest_PlanMergeOrder(t *testing.T) {
	m := &Manifest{
		Defaults: Meta{TimeSignature: "3:4", FrameRate: 25},
		Sequences: []ManifestEntry{
			{Overrides: Meta{Name: "outlaw-star", BPM: 110}},
			{Overrides: Meta{Name: "intro"}},
		},
	}
	base := Meta{TimeSignature: "2:4", FrameRate: 40, Duration: 5}

	jobs, err := m.Plan(NewDefaultLibrary(), t.TempDir(), base)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("len(jobs) = %d, want 2", len(jobs))
	}

	// Entry override beats the definition's 108 bpm; the definition's 4:4
	// beats the manifest default; the manifest frame rate beats the base.
	want := Meta{Name: "outlaw-star", BPM: 110, TimeSignature: "4:4", FrameRate: 25, Duration: 5}
	if jobs[0].Meta != want {
		t.Errorf("jobs[0].Meta = %+v, want %+v", jobs[0].Meta, want)
	}
	if jobs[1].Meta.Name != "intro" || jobs[1].Meta.BPM != 60 {
		t.Errorf("jobs[1].Meta = %+v", jobs[1].Meta)
	}
}

func TestManifest_PlanEmptySelectsLibrary(t *testing.T) {
	jobs, err := (&Manifest{}).Plan(NewDefaultLibrary(), "", Meta{FrameRate: 40})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(jobs) != 2 || jobs[0].Meta.Name != "intro" || jobs[1].Meta.Name != "outlaw-star" {
		t.Errorf("Plan() = %+v, want intro and outlaw-star", jobs)
	}
	if jobs[0].Meta.FrameRate != 40 {
		t.Errorf("FrameRate = %v, want base 40", jobs[0].Meta.FrameRate)
	}
}

func TestManifest_PlanCueFilesAndErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "chase.yaml"), []byte(chaseCueFile), 0600); err != nil {
		t.Fatalf("failed to write cue file: %v", err)
	}

	m := &Manifest{
		Sequences: []ManifestEntry{
			{File: "chase.yaml"},
			{Overrides: Meta{Name: "missing"}},
			{Overrides: Meta{Name: "other"}, File: "chase.yaml"},
			{Overrides: Meta{Name: "intro"}, Disabled: true},
		},
	}
	lib := NewDefaultLibrary()
	jobs, err := m.Plan(lib, dir, Meta{})

	if !errors.Is(err, ErrUnknownSequence) {
		t.Errorf("Plan() error = %v, want ErrUnknownSequence", err)
	}
	if !errors.Is(err, ErrInvalidDefinition) {
		t.Errorf("Plan() error = %v, want ErrInvalidDefinition for name mismatch", err)
	}
	if len(jobs) != 1 || jobs[0].Meta.Name != "chase" {
		t.Fatalf("Plan() jobs = %+v, want only chase", jobs)
	}
	if _, err := lib.Get("chase"); err != nil {
		t.Errorf("cue file was not registered: %v", err)
	}

	// Planning again reuses the registered definition.
	if _, err := (&Manifest{Sequences: []ManifestEntry{{File: "chase.yaml"}}}).Plan(lib, dir, Meta{}); err != nil {
		t.Errorf("second Plan() error = %v", err)
	}
}
