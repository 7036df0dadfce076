package musictime

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultPulsesPerBeat is the tick resolution used when none is configured.
const DefaultPulsesPerBeat = 24

// frameEpsilon absorbs float error so a position that lands exactly on a
// frame boundary does not floor to the previous frame.
const frameEpsilon = 1e-9

// TimeSignature is "beats per bar : beat unit". Only BeatsPerBar enters
// the arithmetic; BeatUnit is kept for display.
type TimeSignature struct {
	BeatsPerBar int
	BeatUnit    int
}

// ParseTimeSignature parses "4:4" or "4/4".
func ParseTimeSignature(s string) (TimeSignature, error) {
	sep := ":"
	if !strings.Contains(s, sep) {
		sep = "/"
	}
	num, den, ok := strings.Cut(strings.TrimSpace(s), sep)
	if !ok {
		return TimeSignature{}, fmt.Errorf("%w: %q", ErrInvalidSignature, s)
	}
	bpb, err1 := strconv.Atoi(strings.TrimSpace(num))
	unit, err2 := strconv.Atoi(strings.TrimSpace(den))
	if err1 != nil || err2 != nil || bpb < 1 || unit < 1 {
		return TimeSignature{}, fmt.Errorf("%w: %q", ErrInvalidSignature, s)
	}
	return TimeSignature{BeatsPerBar: bpb, BeatUnit: unit}, nil
}

func (ts TimeSignature) String() string {
	return fmt.Sprintf("%d:%d", ts.BeatsPerBar, ts.BeatUnit)
}

// Position is a 1-indexed musical position.
type Position struct {
	Bar  int
	Beat int
	Tick int
}

// ParsePosition parses "bar.beat.tick". Missing trailing components
// default to 1, so "5" and "5.1" both mean "5.1.1".
func ParsePosition(s string) (Position, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) > 3 || s == "" {
		return Position{}, fmt.Errorf("%w: %q", ErrInvalidPosition, s)
	}

	vals := [3]int{1, 1, 1}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return Position{}, fmt.Errorf("%w: %q (component %d must be a positive integer)", ErrInvalidPosition, s, i+1)
		}
		vals[i] = n
	}
	return Position{Bar: vals[0], Beat: vals[1], Tick: vals[2]}, nil
}

func (p Position) String() string {
	return fmt.Sprintf("%d.%d.%d", p.Bar, p.Beat, p.Tick)
}

// Resolver turns positions into seconds for one tempo and signature.
type Resolver struct {
	BPM           float64
	Signature     TimeSignature
	PulsesPerBeat int
}

// NewResolver validates its inputs. ppb <= 0 selects DefaultPulsesPerBeat.
func NewResolver(bpm float64, signature string, ppb int) (*Resolver, error) {
	if bpm <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return nil, fmt.Errorf("%w: bpm %v", ErrInvalidTempo, bpm)
	}
	ts, err := ParseTimeSignature(signature)
	if err != nil {
		return nil, err
	}
	if ppb <= 0 {
		ppb = DefaultPulsesPerBeat
	}
	return &Resolver{BPM: bpm, Signature: ts, PulsesPerBeat: ppb}, nil
}

// SecondsPerBeat returns 60/BPM.
func (r *Resolver) SecondsPerBeat() float64 {
	return 60 / r.BPM
}

// Seconds resolves p to seconds from the start of the sequence. Beats past
// the bar length and ticks past the beat length carry over, they are not
// rejected.
func (r *Resolver) Seconds(p Position) float64 {
	spb := r.SecondsPerBeat()
	bars := float64(p.Bar-1) * float64(r.Signature.BeatsPerBar) * spb
	beats := float64(p.Beat-1) * spb
	ticks := float64(p.Tick-1) / float64(r.PulsesPerBeat) * spb
	return bars + beats + ticks
}

// Resolve parses s and resolves it to seconds.
func (r *Resolver) Resolve(s string) (float64, error) {
	p, err := ParsePosition(s)
	if err != nil {
		return 0, err
	}
	return r.Seconds(p), nil
}

// BarsToSeconds returns the length of n whole bars.
func (r *Resolver) BarsToSeconds(n float64) float64 {
	return n * float64(r.Signature.BeatsPerBar) * r.SecondsPerBeat()
}

// FrameIndex returns floor(seconds × frameRate).
func FrameIndex(seconds, frameRate float64) int {
	return int(math.Floor(seconds*frameRate + frameEpsilon))
}

// FrameCount returns ceil(seconds × frameRate), the number of frames that
// cover a duration.
func FrameCount(seconds, frameRate float64) int {
	if seconds <= 0 {
		return 0
	}
	return int(math.Ceil(seconds*frameRate - frameEpsilon))
}

// TimeFunc maps a position string to a frame index. It is the single
// callable handed to sequence authors.
type TimeFunc func(position string) (int, error)

// TimeFunc binds the resolver to a frame rate.
func (r *Resolver) TimeFunc(frameRate float64) TimeFunc {
	return func(position string) (int, error) {
		sec, err := r.Resolve(position)
		if err != nil {
			return 0, err
		}
		return FrameIndex(sec, frameRate), nil
	}
}
