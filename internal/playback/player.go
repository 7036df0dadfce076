package playback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultLateThreshold is how far past its deadline a frame may be sent
// before it counts as late.
const DefaultLateThreshold = time.Millisecond

// Logger defines the logging interface used by the playback package.
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

// Sink receives each frame at its scheduled instant.
type Sink interface {
	Send(frame []byte) error
}

// Telemetry receives per-frame timing. *influxdb.Client satisfies it.
type Telemetry interface {
	WritePlaybackFrame(sequence string, frame int, lateness time.Duration)
}

// Stats summarises one playback run.
type Stats struct {
	Frames      int           `json:"frames"`
	Late        int           `json:"late"`
	MaxLateness time.Duration `json:"max_lateness"`
	SendErrors  int           `json:"send_errors"`
}

// Player sends a Source to a Sink at a fixed frame rate.
//
// Clock and Sink are required. A Player may be reused for sequential runs
// but must not play two sources at once.
type Player struct {
	Clock     Clock
	Sink      Sink
	Logger    Logger
	Telemetry Telemetry

	// Sequence labels log lines and telemetry points.
	Sequence string

	// LateThreshold defaults to DefaultLateThreshold.
	LateThreshold time.Duration

	// OnFrame, when set, is called after each frame is sent.
	OnFrame func(index int, lateness time.Duration)
}

// Play streams src at frameRate until it ends or ctx is cancelled.
//
// Parameters:
//   - ctx: Cancellation stops at the next frame boundary
//   - src: Frames to send, in order
//   - frameRate: Frames per second
//
// Returns:
//   - Stats: Frames sent, late frames, worst lateness and send failures
//   - error: ctx.Err() on cancellation, ErrInvalidFrameRate, or the
//     source's read error
func (p *Player) Play(ctx context.Context, src Source, frameRate float64) (Stats, error) {
	var stats Stats
	if frameRate <= 0 {
		return stats, fmt.Errorf("%w: %v", ErrInvalidFrameRate, frameRate)
	}
	logger := p.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	threshold := p.LateThreshold
	if threshold <= 0 {
		threshold = DefaultLateThreshold
	}

	start := p.Clock.Now()
	logger.Info("playback started", "sequence", p.Sequence, "frames", src.Len(), "frame_rate", frameRate)

	for i, frame := range src.All() {
		if err := ctx.Err(); err != nil {
			return p.stopped(logger, stats, err)
		}
		deadline := start.Add(frameOffset(i, frameRate))
		if err := p.Clock.SleepUntil(ctx, deadline); err != nil {
			return p.stopped(logger, stats, err)
		}

		lateness := p.Clock.Now().Sub(deadline)
		if lateness > threshold {
			stats.Late++
		}
		stats.MaxLateness = max(stats.MaxLateness, lateness)

		if err := p.Sink.Send(frame); err != nil {
			n := countErrors(err)
			stats.SendErrors += n
			logger.Warn("frame send failed", "sequence", p.Sequence, "frame", i, "failures", n, "error", err)
		}
		stats.Frames++

		if p.Telemetry != nil {
			p.Telemetry.WritePlaybackFrame(p.Sequence, i, lateness)
		}
		if p.OnFrame != nil {
			p.OnFrame(i, lateness)
		}
	}
	if err := src.Err(); err != nil {
		return stats, fmt.Errorf("reading frames: %w", err)
	}

	logger.Info("playback finished",
		"sequence", p.Sequence,
		"frames", stats.Frames,
		"late", stats.Late,
		"max_lateness", stats.MaxLateness,
		"send_errors", stats.SendErrors,
	)
	return stats, nil
}

func (p *Player) stopped(logger Logger, stats Stats, err error) (Stats, error) {
	logger.Info("playback stopped", "sequence", p.Sequence, "frames", stats.Frames, "reason", err)
	return stats, err
}

// frameOffset returns i/frameRate seconds, rounded to the nanosecond.
func frameOffset(i int, frameRate float64) time.Duration {
	return time.Duration(math.Round(float64(i) * float64(time.Second) / frameRate))
}

// countErrors returns how many failures err carries: the length of a
// joined error, or 1.
func countErrors(err error) int {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		return len(joined.Unwrap())
	}
	return 1
}
