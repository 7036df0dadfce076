package timeline

import (
	"fmt"
	"slices"
	"sync"

	"github.com/nerrad567/lightshow-core/internal/device"
)

// Instruction is one recorded step change.
type Instruction struct {
	Frame   int
	Seq     int
	Devices []string
	Values  device.Values

	patches []device.Patch
	end     int // first universe offset past the last patched byte
}

// Builder accumulates instructions for one sequence.
//
// A Builder is used by a single compile goroutine, but its methods are
// guarded so a definition may fan out work internally.
type Builder struct {
	mu     sync.Mutex
	instrs []Instruction
	seq    int
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Set schedules values for every device in devices at frame. Values are
// encoded immediately, so unknown attributes and invalid enum labels are
// reported here rather than at render time.
//
// Parameters:
//   - devices: Target devices; each must have every attribute named in values
//   - values: Attribute values to apply
//   - frame: Frame index at which the change takes effect
//
// Returns:
//   - error: ErrInvalidFrame, ErrInvalidInstruction, or a device codec error
func (b *Builder) Set(devices []*device.Device, values device.Values, frame int) error {
	if frame < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidFrame, frame)
	}
	if len(devices) == 0 {
		return fmt.Errorf("%w: no devices at frame %d", ErrInvalidInstruction, frame)
	}

	in := Instruction{
		Frame:   frame,
		Devices: make([]string, 0, len(devices)),
		Values:  values.Merge(nil),
	}
	for _, d := range devices {
		p, err := d.Patches(values)
		if err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		in.patches = append(in.patches, p...)
		in.Devices = append(in.Devices, d.Name)
		in.end = max(in.end, d.End())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	in.Seq = b.seq
	b.seq++
	b.instrs = append(b.instrs, in)
	return nil
}

// SetOne is Set for a single device.
func (b *Builder) SetOne(d *device.Device, values device.Values, frame int) error {
	return b.Set([]*device.Device{d}, values, frame)
}

// Len returns the number of recorded instructions.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.instrs)
}

// LastFrame returns the highest scheduled frame, or -1 if nothing is scheduled.
func (b *Builder) LastFrame() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	last := -1
	for _, in := range b.instrs {
		last = max(last, in.Frame)
	}
	return last
}

// Instructions returns the recorded instructions in application order.
func (b *Builder) Instructions() []Instruction {
	b.mu.Lock()
	out := slices.Clone(b.instrs)
	b.mu.Unlock()

	slices.SortStableFunc(out, func(a, c Instruction) int {
		if a.Frame != c.Frame {
			return a.Frame - c.Frame
		}
		return a.Seq - c.Seq
	})
	return out
}

// RenderStats summarises one render pass.
type RenderStats struct {
	Frames  int
	Applied int
	Dropped int
}

// EmitFunc receives each frame. frame is an independent copy the callee may keep.
type EmitFunc func(index int, frame []byte) error

// Render produces totalFrames snapshots of a width-byte universe that
// starts all zero. Instructions scheduled at or after totalFrames are not
// applied and are counted in RenderStats.Dropped.
//
// Parameters:
//   - totalFrames: Number of frames to emit
//   - width: Universe width in bytes
//   - emit: Called once per frame in order; an error stops rendering
//
// Returns:
//   - RenderStats: Frames emitted and instructions applied/dropped
//   - error: ErrWidthMismatch or the first emit error
func (b *Builder) Render(totalFrames, width int, emit EmitFunc) (RenderStats, error) {
	instrs := b.Instructions()
	stats := RenderStats{}

	for _, in := range instrs {
		if in.end > width {
			return stats, fmt.Errorf("%w: frame %d reaches channel %d, universe is %d wide",
				ErrWidthMismatch, in.Frame, in.end, width)
		}
	}

	live := make([]byte, width)
	k := 0
	for i := range totalFrames {
		for k < len(instrs) && instrs[k].Frame == i {
			for _, p := range instrs[k].patches {
				p.Apply(live)
			}
			stats.Applied++
			k++
		}
		if err := emit(i, slices.Clone(live)); err != nil {
			return stats, fmt.Errorf("emitting frame %d: %w", i, err)
		}
		stats.Frames++
	}
	stats.Dropped = len(instrs) - k
	return stats, nil
}
