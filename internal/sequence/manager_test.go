package sequence

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/lightshow-core/internal/musictime"
	"github.com/nerrad567/lightshow-core/internal/timeline"
)

func newTestManager(t *testing.T, manifest *Manifest) *Manager {
	t.Helper()
	lib := NewDefaultLibrary()
	for _, def := range []Definition{
		demo("demo"),
		New(Meta{Name: "broken", BPM: 120}, func(DeviceCollection, musictime.TimeFunc, *timeline.Builder, *timeline.EventList) error {
			return errors.New("broken on purpose")
		}),
	} {
		if err := lib.Register(def); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	return NewManager(ManagerConfig{
		Compiler: newTestCompiler(t, CompilerConfig{}),
		Library:  lib,
		Manifest: manifest,
		Defaults: Meta{TimeSignature: "4:4", FrameRate: 40},
		Workers:  2,
	})
}

func TestManager_CompileAllIndependent(t *testing.T) {
	m := newTestManager(t, nil)

	outcomes, err := m.CompileAll(context.Background())
	if err != nil {
		t.Fatalf("CompileAll() error = %v", err)
	}
	if len(outcomes) != 4 {
		t.Fatalf("len(outcomes) = %d, want 4", len(outcomes))
	}

	for _, o := range outcomes {
		switch o.Name {
		case "broken":
			if o.Err == nil {
				t.Error("broken: Err = nil, want failure")
			}
		default:
			if o.Err != nil || o.Result == nil {
				t.Errorf("%s: Err = %v, want success", o.Name, o.Err)
			}
		}
	}

	o, ok := m.Outcome("demo")
	if !ok || o.Result.Frames != 21 {
		t.Errorf("Outcome(demo) = %+v, %v", o, ok)
	}
	if got := len(m.Outcomes()); got != 4 {
		t.Errorf("len(Outcomes()) = %d, want 4", got)
	}
	if names := m.Outcomes(); names[0].Name != "broken" || names[3].Name != "outlaw-star" {
		t.Errorf("Outcomes() not sorted: %v, %v", names[0].Name, names[3].Name)
	}
}

func TestManager_CompileOne(t *testing.T) {
	m := newTestManager(t, &Manifest{Sequences: []ManifestEntry{{Overrides: Meta{Name: "demo", FrameRate: 20}}}})

	res, err := m.Compile(context.Background(), "demo")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	// The definition's own 10 fps sits beneath the entry override of 20 fps.
	if res.Meta.FrameRate != 20 || res.Frames != 41 {
		t.Errorf("Compile() = %+v, want 41 frames at 20 fps", res)
	}

	if _, err := m.Compile(context.Background(), "intro"); !errors.Is(err, ErrUnknownSequence) {
		t.Errorf("Compile(unplanned) error = %v, want ErrUnknownSequence", err)
	}
}

func TestManager_PlanErrorsReported(t *testing.T) {
	m := newTestManager(t, &Manifest{Sequences: []ManifestEntry{
		{Overrides: Meta{Name: "demo"}},
		{Overrides: Meta{Name: "ghost"}},
	}})

	outcomes, err := m.CompileAll(context.Background())
	if !errors.Is(err, ErrUnknownSequence) {
		t.Errorf("CompileAll() error = %v, want ErrUnknownSequence", err)
	}
	if len(outcomes) != 1 || outcomes[0].Err != nil {
		t.Errorf("CompileAll() outcomes = %+v, want demo compiled", outcomes)
	}
}
