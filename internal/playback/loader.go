package playback

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/nerrad567/lightshow-core/internal/framestore"
	"github.com/nerrad567/lightshow-core/internal/sequence"
)

// Program is a compiled sequence opened for playback.
type Program struct {
	Name      string
	FrameRate float64
	Frames    *framestore.Reader
}

// Close releases the frame store.
func (p *Program) Close() error {
	return p.Frames.Close()
}

// Loader opens compiled sequences by name.
type Loader interface {
	Load(name string) (*Program, error)
}

// StoreLoader opens the artefacts a sequence.Compiler writes: the frame
// store, and the events sidecar for the frame rate.
type StoreLoader struct {
	Compiler *sequence.Compiler
}

// Load implements Loader.
func (l StoreLoader) Load(name string) (*Program, error) {
	ef, err := sequence.ReadEvents(l.Compiler.EventsPath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s is not compiled", sequence.ErrUnknownSequence, name)
		}
		return nil, err
	}
	r, err := framestore.Open(l.Compiler.StorePath(name), l.Compiler.Width())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s has no frame store", sequence.ErrUnknownSequence, name)
		}
		return nil, err
	}
	return &Program{Name: name, FrameRate: ef.FrameRate, Frames: r}, nil
}
