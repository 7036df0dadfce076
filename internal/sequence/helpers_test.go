package sequence

import (
	"testing"

	"github.com/nerrad567/lightshow-core/internal/device"
	"github.com/nerrad567/lightshow-core/internal/musictime"
	"github.com/nerrad567/lightshow-core/internal/timeline"
)

// testStage lays out par1..par3 at 0, 3, 6 and spot at 9 (width 15).
const testStage = `
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

const testWidth = 15

func testRegistry(t *testing.T) *device.Registry {
	t.Helper()
	reg, err := device.ParseStage([]byte(testStage))
	if err != nil {
		t.Fatalf("ParseStage() error = %v", err)
	}
	if reg.Width() != testWidth {
		t.Fatalf("Width() = %d, want %d", reg.Width(), testWidth)
	}
	return reg
}

// demo is cyan from frame 0, red from bar 2 and one trigger on beat 3.
// At 120 bpm and 10 fps bar 2 is frame 20 and beat 3 is frame 10.
func demo(name string) Definition {
	meta := Meta{Name: name, BPM: 120, TimeSignature: "4:4", FrameRate: 10}
	return New(meta, func(dc DeviceCollection, t musictime.TimeFunc, tl *timeline.Builder, el *timeline.EventList) error {
		cyan, _ := Color("CYAN")
		red, _ := Color("RED")
		lights := colorDevices(dc)
		if err := tl.Set(lights, cyan, 0); err != nil {
			return err
		}
		bar2, err := t("2.1.1")
		if err != nil {
			return err
		}
		if err := tl.Set(lights, red, bar2); err != nil {
			return err
		}
		beat3, err := t("1.3.1")
		if err != nil {
			return err
		}
		return el.AddTrigger(timeline.Trigger{
			Frame:    beat3,
			DeviceID: "audio",
			Action:   "audio.start",
			Source:   name + "/audio.ogg",
			Payload:  map[string]any{"volume": 0.8, "cue": map[string]any{"label": "go"}},
		})
	})
}

func newTestCompiler(t *testing.T, cfg CompilerConfig) *Compiler {
	t.Helper()
	if cfg.Devices == nil {
		cfg.Devices = testRegistry(t)
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = t.TempDir()
	}
	c, err := NewCompiler(cfg)
	if err != nil {
		t.Fatalf("NewCompiler() error = %v", err)
	}
	return c
}
