package sequence

import (
	"fmt"
	"regexp"

	"github.com/nerrad567/lightshow-core/internal/device"
	"github.com/nerrad567/lightshow-core/internal/musictime"
	"github.com/nerrad567/lightshow-core/internal/timeline"
)

// Logger defines the logging interface used by the sequence package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// validName restricts sequence names to what is safe as a file stem and an
// MQTT topic level.
var validName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Meta describes the musical and output parameters of one sequence.
// Zero fields are "unset" and are filled by Merge.
type Meta struct {
	Name          string  `json:"name" yaml:"name,omitempty"`
	BPM           float64 `json:"bpm" yaml:"bpm,omitempty"`
	TimeSignature string  `json:"timesignature" yaml:"timesignature,omitempty"`
	FrameRate     float64 `json:"frame_rate" yaml:"frame_rate,omitempty"`

	// Duration is the length in seconds. Zero means "up to the last
	// instruction or trigger".
	Duration float64 `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// Merge returns m with every non-zero field of over laid on top.
func (m Meta) Merge(over Meta) Meta {
	if over.Name != "" {
		m.Name = over.Name
	}
	if over.BPM != 0 {
		m.BPM = over.BPM
	}
	if over.TimeSignature != "" {
		m.TimeSignature = over.TimeSignature
	}
	if over.FrameRate != 0 {
		m.FrameRate = over.FrameRate
	}
	if over.Duration != 0 {
		m.Duration = over.Duration
	}
	return m
}

// Validate checks that m is complete enough to compile.
func (m Meta) Validate() error {
	if !validName.MatchString(m.Name) {
		return fmt.Errorf("%w: name %q must match %s", ErrInvalidMeta, m.Name, validName)
	}
	if m.BPM <= 0 {
		return fmt.Errorf("%w: %s: bpm must be positive, got %v", ErrInvalidMeta, m.Name, m.BPM)
	}
	if _, err := musictime.ParseTimeSignature(m.TimeSignature); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidMeta, m.Name, err)
	}
	if m.FrameRate <= 0 {
		return fmt.Errorf("%w: %s: frame_rate must be positive, got %v", ErrInvalidMeta, m.Name, m.FrameRate)
	}
	if m.Duration < 0 {
		return fmt.Errorf("%w: %s: duration must not be negative", ErrInvalidMeta, m.Name)
	}
	return nil
}

// DeviceCollection is the read-only view of the stage handed to
// definitions. *device.Registry satisfies it.
type DeviceCollection interface {
	Devices() []*device.Device
	Device(name string) (*device.Device, error)
}

// Definition is one authored sequence.
type Definition interface {
	// Meta returns the definition's own meta. Fields left zero are taken
	// from manifest defaults.
	Meta() Meta

	// CreateTimeline records the sequence's instructions and triggers.
	// t converts "bar.beat.tick" positions into frame indices.
	CreateTimeline(dc DeviceCollection, t musictime.TimeFunc, tl *timeline.Builder, el *timeline.EventList) error
}

// TimelineFunc is the callback shape of a Go-authored definition.
type TimelineFunc func(dc DeviceCollection, t musictime.TimeFunc, tl *timeline.Builder, el *timeline.EventList) error

// funcDefinition adapts a meta plus a TimelineFunc to Definition.
type funcDefinition struct {
	meta Meta
	fn   TimelineFunc
}

// New returns a Definition backed by fn.
func New(meta Meta, fn TimelineFunc) Definition {
	return funcDefinition{meta: meta, fn: fn}
}

func (d funcDefinition) Meta() Meta { return d.meta }

func (d funcDefinition) CreateTimeline(dc DeviceCollection, t musictime.TimeFunc, tl *timeline.Builder, el *timeline.EventList) error {
	return d.fn(dc, t, tl, el)
}
