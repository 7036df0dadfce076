package sequence

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestLibrary_Register(t *testing.T) {
	lib := NewLibrary()

	if err := lib.Register(demo("demo")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := lib.Register(demo("demo")); !errors.Is(err, ErrDuplicateSequence) {
		t.Errorf("Register(duplicate) error = %v, want ErrDuplicateSequence", err)
	}
	if err := lib.Register(nil); !errors.Is(err, ErrInvalidDefinition) {
		t.Errorf("Register(nil) error = %v, want ErrInvalidDefinition", err)
	}
	if err := lib.Register(demo("Bad Name")); !errors.Is(err, ErrInvalidDefinition) {
		t.Errorf("Register(bad name) error = %v, want ErrInvalidDefinition", err)
	}

	def, err := lib.Get("demo")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if def.Meta().BPM != 120 {
		t.Errorf("Get().Meta().BPM = %v, want 120", def.Meta().BPM)
	}
	if _, err := lib.Get("missing"); !errors.Is(err, ErrUnknownSequence) {
		t.Errorf("Get(missing) error = %v, want ErrUnknownSequence", err)
	}
	if lib.Len() != 1 {
		t.Errorf("Len() = %d, want 1", lib.Len())
	}
}

func TestNewDefaultLibrary(t *testing.T) {
	lib := NewDefaultLibrary()
	want := []string{"intro", "outlaw-star"}
	if got := lib.Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestLibrary_LoadDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"chase.yaml":     chaseCueFile,
		"finale.yml":     "bpm: 90\ncues:\n  - frame: 0\n    color: RED\n",
		"_default.yaml":  "bpm: 1\n",
		"manifest.yaml":  "sequences: []\n",
		"broken.yaml":    "cues:\n  - color: RED\n",
		"notes.txt":      "not a sequence",
		"duplicate.yaml": "name: chase\nbpm: 100\ncues:\n  - frame: 0\n    color: RED\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	lib := NewLibrary()
	loaded, err := lib.LoadDir(dir, "manifest.yaml")

	// os.ReadDir sorts by name: broken, chase, duplicate, finale.
	if want := []string{"chase", "finale"}; !slices.Equal(loaded, want) {
		t.Errorf("LoadDir() loaded = %v, want %v", loaded, want)
	}
	if !errors.Is(err, ErrInvalidDefinition) {
		t.Errorf("LoadDir() error = %v, want ErrInvalidDefinition for broken.yaml", err)
	}
	if !errors.Is(err, ErrDuplicateSequence) {
		t.Errorf("LoadDir() error = %v, want ErrDuplicateSequence for duplicate.yaml", err)
	}
}

func TestLibrary_LoadDirMissing(t *testing.T) {
	if _, err := NewLibrary().LoadDir(filepath.Join(t.TempDir(), "none")); err == nil {
		t.Error("LoadDir(missing) error = nil")
	}
}
