package device

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const testStage = `
universe:
  size: 512
fixtures:
  rgb:
    attributes:
      - {name: red, type: onebyte}
      - {name: green, type: onebyte}
      - {name: blue, type: onebyte}
  effect:
    attributes:
      - {name: red, type: onebyte}
      - {name: green, type: onebyte}
      - {name: blue, type: onebyte}
      - {name: x, type: twobyte}
      - {name: globo, type: enum, labels: [open, dots, star]}
devices:
  - {name: par, fixture: rgb, count: 3}
  - {name: spot, fixture: effect}
`

func TestLoadStage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stage.yaml")
	if err := os.WriteFile(path, []byte(testStage), 0600); err != nil {
		t.Fatalf("failed to write stage: %v", err)
	}

	reg, err := LoadStage(path)
	if err != nil {
		t.Fatalf("LoadStage() error = %v", err)
	}

	if reg.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", reg.Len())
	}
	names := []string{"par1", "par2", "par3", "spot"}
	for i, d := range reg.Devices() {
		if d.Name != names[i] {
			t.Errorf("device %d = %q, want %q", i, d.Name, names[i])
		}
	}

	spot, _ := reg.Device("spot")
	if spot.Offset != 9 || spot.Width != 6 || spot.Fixture != "effect" {
		t.Errorf("spot = %+v", spot)
	}
	if reg.Width() != 15 {
		t.Errorf("Width() = %d, want 15", reg.Width())
	}
}

func TestParseStage_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"invalid yaml", "devices: [:"},
		{"undefined fixture", "devices:\n  - {name: a, fixture: nope}\n"},
		{"bad encoding", "fixtures:\n  f:\n    attributes: [{name: a, type: threebyte}]\ndevices:\n  - {name: a, fixture: f}\n"},
		{"too big", "universe: {size: 4}\nfixtures:\n  f:\n    attributes: [{name: a, type: twobyte}, {name: b, type: twobyte}, {name: c, type: onebyte}]\ndevices:\n  - {name: a, fixture: f}\n"},
		{"duplicate", "fixtures:\n  f:\n    attributes: [{name: a, type: onebyte}]\ndevices:\n  - {name: a, fixture: f}\n  - {name: a, fixture: f}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseStage([]byte(tt.yaml)); !errors.Is(err, ErrConfiguration) {
				t.Errorf("ParseStage() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestParseStage_KeepsCause(t *testing.T) {
	yaml := "universe: {size: 2}\nfixtures:\n  f:\n    attributes: [{name: a, type: twobyte}, {name: b, type: onebyte}]\ndevices:\n  - {name: a, fixture: f}\n"
	_, err := ParseStage([]byte(yaml))
	if !errors.Is(err, ErrAddressSpaceExhausted) {
		t.Errorf("ParseStage() error = %v, want wrapped ErrAddressSpaceExhausted", err)
	}
}

func TestLoadStage_MissingFile(t *testing.T) {
	if _, err := LoadStage("/nonexistent/stage.yaml"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("LoadStage() error = %v, want ErrConfiguration", err)
	}
}
