package influxdb

import (
	"math"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by this package.
const (
	MeasurementPlaybackFrame   = "playback_frame"
	MeasurementPlaybackSession = "playback_session"
	MeasurementCompileRun      = "compile_run"
	MeasurementReceiverStats   = "receiver_stats"
)

// WritePlaybackFrame records how late a single frame was sent.
//
// Parameters:
//   - sequence: Name of the sequence being played
//   - frame: Zero-based frame index
//   - lateness: Difference between the actual and scheduled send time
func (c *Client) WritePlaybackFrame(sequence string, frame int, lateness time.Duration) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(playbackFramePoint(sequence, frame, lateness, time.Now()))
}

// WritePlaybackSession records the totals of a finished playback run.
//
// Parameters:
//   - sequence: Name of the sequence that was played
//   - outcome: "completed", "cancelled" or "failed"
//   - frames: Frames sent
//   - late: Frames sent after their scheduled instant
//   - sendErrors: Datagrams that failed to send
//   - maxLateness: Worst observed lateness
func (c *Client) WritePlaybackSession(sequence, outcome string, frames, late, sendErrors int, maxLateness time.Duration) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(playbackSessionPoint(sequence, outcome, frames, late, sendErrors, maxLateness, time.Now()))
}

// WriteCompileRun records a compile of one sequence.
func (c *Client) WriteCompileRun(sequence string, frames, dropped int, elapsed time.Duration) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(compileRunPoint(sequence, frames, dropped, elapsed, time.Now()))
}

// WriteReceiverStats records the simulator's datagram counters.
//
// Parameters:
//   - listen: The receiver's listen address, used as a tag
//   - received: Datagrams accepted and applied
//   - rejected: Datagrams dropped by the short-payload policy
//   - timeouts: Read deadlines that expired without data
func (c *Client) WriteReceiverStats(listen string, received, rejected, timeouts uint64) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(receiverStatsPoint(listen, received, rejected, timeouts, time.Now()))
}

func playbackFramePoint(sequence string, frame int, lateness time.Duration, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementPlaybackFrame,
		map[string]string{"sequence": sequence},
		map[string]any{
			"frame":       frame,
			"lateness_ms": durationMillis(lateness),
		},
		ts,
	)
}

func playbackSessionPoint(sequence, outcome string, frames, late, sendErrors int, maxLateness time.Duration, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementPlaybackSession,
		map[string]string{
			"sequence": sequence,
			"outcome":  outcome,
		},
		map[string]any{
			"frames":          frames,
			"late_frames":     late,
			"send_errors":     sendErrors,
			"max_lateness_ms": durationMillis(maxLateness),
		},
		ts,
	)
}

func compileRunPoint(sequence string, frames, dropped int, elapsed time.Duration, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementCompileRun,
		map[string]string{"sequence": sequence},
		map[string]any{
			"frames":     frames,
			"dropped":    dropped,
			"elapsed_ms": durationMillis(elapsed),
		},
		ts,
	)
}

func receiverStatsPoint(listen string, received, rejected, timeouts uint64, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementReceiverStats,
		map[string]string{"listen": listen},
		map[string]any{
			"received": received,
			"rejected": rejected,
			"timeouts": timeouts,
		},
		ts,
	)
}

// durationMillis converts d to milliseconds at microsecond resolution.
func durationMillis(d time.Duration) float64 {
	return math.Round(float64(d)/float64(time.Microsecond)) / 1000
}
