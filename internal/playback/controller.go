package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/lightshow-core/internal/infrastructure/mqtt"
)

// Session states reported by Status.
const (
	StateIdle      = "idle"
	StatePlaying   = "playing"
	StateCompleted = "completed"
	StateCancelled = "cancelled"
	StateFailed    = "failed"
)

// Status is a snapshot of the controller.
type Status struct {
	State       string     `json:"state"`
	SessionID   string     `json:"session_id,omitempty"`
	Sequence    string     `json:"sequence,omitempty"`
	Frame       int        `json:"frame"`
	TotalFrames int        `json:"total_frames"`
	Stats       Stats      `json:"stats"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// Publisher sends status updates to the message bus. *mqtt.Client satisfies it.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// ControllerConfig wires a Controller. Loader and Sink are required.
type ControllerConfig struct {
	Loader    Loader
	Sink      Sink
	Clock     Clock
	Sessions  Repository
	Publisher Publisher
	Telemetry Telemetry
	Logger    Logger

	// Endpoints are recorded with each session.
	Endpoints []string

	// OnStatus, when set, receives every state change.
	OnStatus func(Status)
}

// Controller runs at most one playback session at a time.
//
// All methods are thread-safe.
type Controller struct {
	cfg ControllerConfig

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
	done   chan struct{}
	frame  atomic.Int64
}

// NewController creates an idle controller.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	return &Controller{cfg: cfg, status: Status{State: StateIdle}}
}

// Start begins playing the named sequence in the background.
//
// Parameters:
//   - ctx: Parent context; cancelling it stops the session
//   - name: Compiled sequence name
//
// Returns:
//   - Status: The new session's initial status
//   - error: ErrAlreadyPlaying, or the loader's error
func (c *Controller) Start(ctx context.Context, name string) (Status, error) {
	c.mu.Lock()
	if c.done != nil {
		st := c.snapshotLocked()
		c.mu.Unlock()
		return st, fmt.Errorf("%w: %s", ErrAlreadyPlaying, st.Sequence)
	}

	prog, err := c.cfg.Loader.Load(name)
	if err != nil {
		st := c.snapshotLocked()
		c.mu.Unlock()
		return st, err
	}

	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.NewString(),
		Sequence:  name,
		Endpoints: c.cfg.Endpoints,
		StartedAt: now,
	}
	if c.cfg.Sessions != nil {
		if err := c.cfg.Sessions.Create(ctx, session); err != nil {
			c.cfg.Logger.Warn("failed to record playback session", "sequence", name, "error", err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.frame.Store(0)
	c.status = Status{
		State:       StatePlaying,
		SessionID:   session.ID,
		Sequence:    name,
		TotalFrames: prog.Frames.Len(),
		StartedAt:   &now,
	}
	st := c.snapshotLocked()
	done := c.done
	c.mu.Unlock()

	c.notify(st)
	go c.run(runCtx, prog, session, done)
	return st, nil
}

func (c *Controller) run(ctx context.Context, prog *Program, session *Session, done chan struct{}) {
	defer close(done)
	defer prog.Close() //nolint:errcheck // read-only store

	player := &Player{
		Clock:     c.cfg.Clock,
		Sink:      c.cfg.Sink,
		Logger:    c.cfg.Logger,
		Telemetry: c.cfg.Telemetry,
		Sequence:  prog.Name,
		OnFrame: func(i int, _ time.Duration) {
			c.frame.Store(int64(i + 1))
		},
	}
	stats, err := player.Play(ctx, prog.Frames, prog.FrameRate)

	outcome := StateCompleted
	switch {
	case err == nil:
	case ctx.Err() != nil:
		outcome = StateCancelled
	default:
		outcome = StateFailed
	}

	finished := time.Now().UTC()
	session.Stats = stats
	session.Outcome = outcome
	session.FinishedAt = &finished
	if c.cfg.Sessions != nil {
		if ferr := c.cfg.Sessions.Finish(context.WithoutCancel(ctx), session); ferr != nil {
			c.cfg.Logger.Warn("failed to record playback result", "session", session.ID, "error", ferr)
		}
	}

	c.mu.Lock()
	c.status.State = outcome
	c.status.Stats = stats
	c.status.FinishedAt = &finished
	if outcome == StateFailed {
		c.status.Error = err.Error()
	}
	c.cancel()
	c.cancel = nil
	c.done = nil
	st := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(st)
}

// Stop cancels the active session and waits for it to finish.
func (c *Controller) Stop() (Status, error) {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if done == nil {
		return c.Status(), ErrNotPlaying
	}
	cancel()
	<-done
	return c.Status(), nil
}

// Wait blocks until the active session ends or ctx is done. It returns
// at once when idle.
func (c *Controller) Wait(ctx context.Context) (Status, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return c.Status(), ctx.Err()
		}
	}
	return c.Status(), nil
}

// Status returns the current or most recent session's status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close stops any active session.
func (c *Controller) Close() error {
	if _, err := c.Stop(); err != nil && !errors.Is(err, ErrNotPlaying) {
		return err
	}
	return nil
}

func (c *Controller) snapshotLocked() Status {
	st := c.status
	if st.State == StatePlaying {
		st.Frame = int(c.frame.Load())
	} else if st.SessionID != "" {
		st.Frame = st.Stats.Frames
	}
	return st
}

func (c *Controller) notify(st Status) {
	if c.cfg.Publisher != nil {
		if err := c.cfg.Publisher.PublishJSON(mqtt.Topics{}.PlaybackStatus(), st, true); err != nil {
			c.cfg.Logger.Warn("failed to publish playback status", "error", err)
		}
	}
	if c.cfg.OnStatus != nil {
		c.cfg.OnStatus(st)
	}
}
