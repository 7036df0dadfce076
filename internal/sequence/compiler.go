package sequence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nerrad567/lightshow-core/internal/device"
	"github.com/nerrad567/lightshow-core/internal/framestore"
	"github.com/nerrad567/lightshow-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/lightshow-core/internal/musictime"
	"github.com/nerrad567/lightshow-core/internal/timeline"
)

// File extensions of compiled artefacts.
const (
	StoreExt  = ".dmx"
	EventsExt = ".events.cbor"
)

// Publisher sends compiled event lists to the message bus.
// *mqtt.Client satisfies it.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// Telemetry receives compile metrics. *influxdb.Client satisfies it.
type Telemetry interface {
	WriteCompileRun(sequence string, frames, dropped int, elapsed time.Duration)
}

// CompilerConfig wires a Compiler. Only Devices and OutputDir are required.
type CompilerConfig struct {
	Devices       *device.Registry
	OutputDir     string
	PulsesPerBeat int

	Runs      Repository
	Publisher Publisher
	Telemetry Telemetry
	Logger    Logger
}

// Compiler renders sequences to frame stores.
type Compiler struct {
	devices       *device.Registry
	outputDir     string
	pulsesPerBeat int

	runs      Repository
	publisher Publisher
	telemetry Telemetry
	logger    Logger
}

// Result describes a successful compile.
type Result struct {
	RunID           string        `json:"run_id,omitempty"`
	Meta            Meta          `json:"meta"`
	StorePath       string        `json:"store_path"`
	EventsPath      string        `json:"events_path"`
	Width           int           `json:"width"`
	Frames          int           `json:"frames"`
	Applied         int           `json:"applied"`
	Dropped         int           `json:"dropped"`
	Triggers        int           `json:"triggers"`
	DroppedTriggers int           `json:"dropped_triggers"`
	Checksum        string        `json:"checksum"`
	Elapsed         time.Duration `json:"elapsed"`
}

// NewCompiler validates cfg and returns a Compiler.
func NewCompiler(cfg CompilerConfig) (*Compiler, error) {
	if cfg.Devices == nil {
		return nil, fmt.Errorf("%w: compiler needs a device registry", ErrInvalidDefinition)
	}
	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("%w: compiler needs an output directory", ErrInvalidDefinition)
	}
	if cfg.PulsesPerBeat <= 0 {
		cfg.PulsesPerBeat = musictime.DefaultPulsesPerBeat
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Compiler{
		devices:       cfg.Devices,
		outputDir:     cfg.OutputDir,
		pulsesPerBeat: cfg.PulsesPerBeat,
		runs:          cfg.Runs,
		publisher:     cfg.Publisher,
		telemetry:     cfg.Telemetry,
		logger:        cfg.Logger,
	}, nil
}

// StorePath returns where the frame store for name is written.
func (c *Compiler) StorePath(name string) string {
	return filepath.Join(c.outputDir, name+StoreExt)
}

// EventsPath returns where the trigger sidecar for name is written.
func (c *Compiler) EventsPath(name string) string {
	return filepath.Join(c.outputDir, name+EventsExt)
}

// Width returns the universe width every store is written with.
func (c *Compiler) Width() int {
	return c.devices.Width()
}

// TotalFrames returns the number of frames a sequence renders to: the
// meta duration rounded up to whole frames, or one past the last
// instruction or trigger when no duration is set.
func TotalFrames(meta Meta, lastInstruction, lastTrigger int) int {
	if meta.Duration > 0 {
		return musictime.FrameCount(meta.Duration, meta.FrameRate)
	}
	return max(lastInstruction, lastTrigger) + 1
}

// Compile renders one job. The new store and sidecar replace the previous
// ones only when both are complete; a failed compile leaves the last good
// output in place and is recorded as failed.
//
// Parameters:
//   - ctx: Cancels rendering at the next frame
//   - job: Definition and merged meta
//
// Returns:
//   - *Result: Store location and render statistics
//   - error: Meta, authoring, I/O or cancellation error
func (c *Compiler) Compile(ctx context.Context, job Job) (*Result, error) {
	start := time.Now()
	meta := job.Meta
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	run := &Run{
		Sequence:  meta.Name,
		StorePath: c.StorePath(meta.Name),
		Width:     c.Width(),
		FrameRate: meta.FrameRate,
		BPM:       meta.BPM,
	}
	c.startRun(ctx, run)

	res, err := c.compile(ctx, job.Definition, meta)
	c.finishRun(ctx, run, res, err)
	if err != nil {
		c.logger.Error("sequence compile failed", "sequence", meta.Name, "error", err)
		return nil, err
	}

	res.RunID = run.ID
	res.Elapsed = time.Since(start)
	c.logger.Info("sequence compiled",
		"sequence", meta.Name,
		"frames", res.Frames,
		"width", res.Width,
		"triggers", res.Triggers,
		"elapsed", res.Elapsed,
	)
	if c.telemetry != nil {
		c.telemetry.WriteCompileRun(meta.Name, res.Frames, res.Dropped, res.Elapsed)
	}
	return res, nil
}

func (c *Compiler) compile(ctx context.Context, def Definition, meta Meta) (res *Result, err error) {
	if def == nil {
		return nil, fmt.Errorf("%w: %s has no definition", ErrInvalidDefinition, meta.Name)
	}
	resolver, err := musictime.NewResolver(meta.BPM, meta.TimeSignature, c.pulsesPerBeat)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidMeta, meta.Name, err)
	}

	tl := timeline.NewBuilder()
	el := timeline.NewEventList()
	if err := def.CreateTimeline(c.devices, resolver.TimeFunc(meta.FrameRate), tl, el); err != nil {
		return nil, fmt.Errorf("sequence %s: creating timeline: %w", meta.Name, err)
	}

	// The previous store and sidecar stay in place until both new files
	// are complete.
	total := TotalFrames(meta, tl.LastFrame(), el.LastFrame())
	w, err := framestore.CreateStaged(c.StorePath(meta.Name), c.Width())
	if err != nil {
		return nil, fmt.Errorf("sequence %s: %w", meta.Name, err)
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil {
			res, err = nil, errors.Join(err, fmt.Errorf("sequence %s: %w", meta.Name, closeErr))
		}
	}()

	res, err = c.render(ctx, meta, tl, total, w)
	if err != nil {
		return nil, fmt.Errorf("sequence %s: %w", meta.Name, err)
	}
	if res.Dropped > 0 {
		c.logger.Warn("instructions past the end of the sequence were dropped",
			"sequence", meta.Name, "dropped", res.Dropped, "frames", total)
	}

	triggers, cut := el.Within(total)
	if cut > 0 {
		c.logger.Warn("triggers past the end of the sequence were dropped",
			"sequence", meta.Name, "dropped", cut, "frames", total)
	}
	ef := EventsFile{
		Sequence:      meta.Name,
		BPM:           meta.BPM,
		TimeSignature: meta.TimeSignature,
		FrameRate:     meta.FrameRate,
		Frames:        total,
		Triggers:      triggers,
	}
	if err := WriteEvents(res.EventsPath, ef); err != nil {
		return nil, fmt.Errorf("sequence %s: %w", meta.Name, err)
	}
	if err := w.Commit(); err != nil {
		return nil, fmt.Errorf("sequence %s: %w", meta.Name, err)
	}
	res.Checksum = w.Checksum()
	res.Triggers = len(triggers)
	res.DroppedTriggers = cut

	c.publish(meta.Name, ef, res)
	return res, nil
}

// render streams the timeline into w. The caller commits the store.
func (c *Compiler) render(ctx context.Context, meta Meta, tl *timeline.Builder, total int, w *framestore.Writer) (*Result, error) {
	stats, err := tl.Render(total, c.Width(), func(_ int, frame []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return w.Append(frame)
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Meta:       meta,
		StorePath:  c.StorePath(meta.Name),
		EventsPath: c.EventsPath(meta.Name),
		Width:      c.Width(),
		Frames:     stats.Frames,
		Applied:    stats.Applied,
		Dropped:    stats.Dropped,
	}, nil
}

func (c *Compiler) publish(name string, ef EventsFile, res *Result) {
	if c.publisher == nil {
		return
	}
	topics := mqtt.Topics{}
	if err := c.publisher.PublishJSON(topics.SequenceEvents(name), ef, true); err != nil {
		c.logger.Warn("failed to publish event list", "sequence", name, "error", err)
	}
	summary := map[string]any{
		"sequence": name,
		"frames":   res.Frames,
		"width":    res.Width,
		"checksum": res.Checksum,
	}
	if err := c.publisher.PublishJSON(topics.SequenceCompiled(name), summary, true); err != nil {
		c.logger.Warn("failed to publish compile summary", "sequence", name, "error", err)
	}
}

func (c *Compiler) startRun(ctx context.Context, run *Run) {
	if c.runs == nil {
		return
	}
	if err := c.runs.Create(ctx, run); err != nil {
		c.logger.Warn("failed to record compile start", "sequence", run.Sequence, "error", err)
	}
}

func (c *Compiler) finishRun(ctx context.Context, run *Run, res *Result, compileErr error) {
	if c.runs == nil || run.ID == "" {
		return
	}
	if compileErr != nil {
		run.Status = RunFailed
		run.Error = compileErr.Error()
	} else {
		run.Status = RunSucceeded
		run.FrameCount = res.Frames
		run.Checksum = res.Checksum
		run.Dropped = res.Dropped
	}
	// The compile context may be cancelled; the outcome is still recorded.
	if err := c.runs.Finish(context.WithoutCancel(ctx), run); err != nil {
		c.logger.Warn("failed to record compile result", "sequence", run.Sequence, "error", err)
	}
}
