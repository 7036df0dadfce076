package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Status is the lifecycle state of a supervised process.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusBackoff  Status = "backoff"
	StatusFailed   Status = "failed"
)

// Defaults applied by NewSupervisor to zero Config fields.
const (
	DefaultRestartDelay        = 2 * time.Second
	DefaultMaxRestartDelay     = time.Minute
	DefaultStableThreshold     = 30 * time.Second
	DefaultGracefulTimeout     = 5 * time.Second
	DefaultHealthCheckInterval = 10 * time.Second

	// maxProbeFailures consecutive failed probes kill the process.
	maxProbeFailures = 3
	probeTimeout     = 3 * time.Second
	maxLineLength    = 4096
)

// Config describes a supervised process.
type Config struct {
	Name    string
	Binary  string
	Args    []string
	Env     []string // appended to the parent environment
	WorkDir string

	RestartOnFailure bool

	// RestartDelay doubles per consecutive failure up to MaxRestartDelay.
	RestartDelay    time.Duration
	MaxRestartDelay time.Duration

	// A run lasting StableThreshold resets the backoff.
	StableThreshold time.Duration

	// MaxRestartAttempts bounds consecutive restarts. 0 means unlimited.
	MaxRestartAttempts int

	// GracefulTimeout is the wait between SIGTERM and SIGKILL.
	GracefulTimeout time.Duration

	HealthCheck         func(ctx context.Context) error
	HealthCheckInterval time.Duration

	OnStart func(pid int)
	OnExit  func(err error)
}

// Logger is the logging interface used by the supervisor.
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

// Supervisor runs one child process and keeps it alive.
//
// All methods are thread-safe.
type Supervisor struct {
	cfg    Config
	logger Logger

	mu        sync.RWMutex
	cmd       *exec.Cmd
	status    Status
	restarts  int
	failures  int
	lastErr   error
	startedAt time.Time
	stopping  bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// Stats is a point-in-time view of a supervised process.
type Stats struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	PID       int           `json:"pid,omitempty"`
	Uptime    time.Duration `json:"uptime,omitempty"`
	Restarts  int           `json:"restarts"`
	LastError string        `json:"last_error,omitempty"`
}

// NewSupervisor applies defaults to cfg and returns a stopped supervisor.
func NewSupervisor(cfg Config) *Supervisor {
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = DefaultRestartDelay
	}
	if cfg.MaxRestartDelay <= 0 {
		cfg.MaxRestartDelay = DefaultMaxRestartDelay
	}
	if cfg.MaxRestartDelay < cfg.RestartDelay {
		cfg.MaxRestartDelay = cfg.RestartDelay
	}
	if cfg.StableThreshold <= 0 {
		cfg.StableThreshold = DefaultStableThreshold
	}
	if cfg.GracefulTimeout <= 0 {
		cfg.GracefulTimeout = DefaultGracefulTimeout
	}
	if cfg.HealthCheckInterval <= 0 {
		cfg.HealthCheckInterval = DefaultHealthCheckInterval
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Binary
	}
	return &Supervisor{cfg: cfg, logger: noopLogger{}, status: StatusStopped}
}

// SetLogger sets the supervisor's logger.
func (s *Supervisor) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()
}

// Start launches the process and supervises it until Stop or ctx is done.
//
// Returns:
//   - error: ErrNoBinary, ErrAlreadyRunning, or the exec error of the first launch
func (s *Supervisor) Start(ctx context.Context) error {
	if s.cfg.Binary == "" {
		return ErrNoBinary
	}

	s.mu.Lock()
	if s.done != nil {
		select {
		case <-s.done:
			// The previous run gave up; start afresh.
			s.cancel()
			s.done, s.cancel = nil, nil
		default:
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrAlreadyRunning, s.cfg.Name)
		}
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.status = StatusStarting
	s.stopping = false
	s.restarts = 0
	s.failures = 0
	s.lastErr = nil
	s.mu.Unlock()

	cmd, err := s.launch()
	if err != nil {
		cancel()
		s.mu.Lock()
		s.status = StatusFailed
		s.lastErr = err
		s.mu.Unlock()
		return err
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.supervise(runCtx, cmd, done)
	return nil
}

func (s *Supervisor) launch() (*exec.Cmd, error) {
	logger := s.log()
	cmd := exec.Command(s.cfg.Binary, s.cfg.Args...) //nolint:gosec // binary comes from operator config
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if len(s.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), s.cfg.Env...)
	}
	cmd.Dir = s.cfg.WorkDir
	cmd.Stdout = &lineWriter{s: s, stream: "stdout"}
	cmd.Stderr = &lineWriter{s: s, stream: "stderr"}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", s.cfg.Name, err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.status = StatusRunning
	s.startedAt = time.Now()
	s.mu.Unlock()

	pid := cmd.Process.Pid
	logger.Info("process started", "name", s.cfg.Name, "pid", pid)
	if s.cfg.OnStart != nil {
		s.cfg.OnStart(pid)
	}
	return cmd, nil
}

// lineWriter logs a child's output one line at a time. exec copies each
// stream from a single goroutine.
type lineWriter struct {
	s      *Supervisor
	stream string
	buf    []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		line, rest, ok := bytes.Cut(w.buf, []byte{'\n'})
		if !ok {
			break
		}
		w.s.log().Debug("process output", "name", w.s.cfg.Name, "stream", w.stream, "line", string(line))
		w.buf = rest
	}
	if len(w.buf) > maxLineLength {
		w.s.log().Debug("process output", "name", w.s.cfg.Name, "stream", w.stream, "line", string(w.buf))
		w.buf = w.buf[:0]
	}
	return len(p), nil
}

// supervise waits on cmd and relaunches it until stopped.
func (s *Supervisor) supervise(ctx context.Context, cmd *exec.Cmd, done chan struct{}) {
	defer close(done)
	logger := s.log()

	for {
		err := s.wait(ctx, cmd)

		s.mu.Lock()
		stopping := s.stopping || ctx.Err() != nil
		ran := time.Since(s.startedAt)
		s.mu.Unlock()

		if stopping {
			s.setExited(StatusStopped, nil)
			logger.Info("process stopped", "name", s.cfg.Name)
			s.exited(nil)
			return
		}

		if err == nil {
			err = errors.New("exited with status 0")
		}
		logger.Warn("process exited unexpectedly", "name", s.cfg.Name, "error", err, "ran", ran)
		s.exited(err)

		if !s.cfg.RestartOnFailure {
			s.setExited(StatusFailed, err)
			return
		}

		s.mu.Lock()
		if ran >= s.cfg.StableThreshold {
			s.failures = 0
		}
		s.failures++
		attempt := s.failures
		s.mu.Unlock()

		if s.cfg.MaxRestartAttempts > 0 && attempt > s.cfg.MaxRestartAttempts {
			logger.Error("giving up on process", "name", s.cfg.Name, "attempts", attempt-1)
			s.setExited(StatusFailed, err)
			return
		}
		s.setExited(StatusBackoff, err)

		delay := s.backoffDelay(attempt)
		logger.Info("restarting process", "name", s.cfg.Name, "attempt", attempt, "delay", delay)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.setExited(StatusStopped, err)
			return
		case <-timer.C:
		}

		next, lerr := s.launch()
		if lerr != nil {
			logger.Error("failed to restart process", "name", s.cfg.Name, "error", lerr)
			s.setExited(StatusFailed, lerr)
			return
		}
		s.mu.Lock()
		s.restarts++
		s.mu.Unlock()
		cmd = next
	}
}

// wait returns when cmd exits. Repeated probe failures kill the process
// group; cancelling ctx terminates it gracefully.
func (s *Supervisor) wait(ctx context.Context, cmd *exec.Cmd) error {
	exitCh := make(chan error, 1)
	go func() { exitCh <- cmd.Wait() }()

	var tick <-chan time.Time
	if s.cfg.HealthCheck != nil {
		ticker := time.NewTicker(s.cfg.HealthCheckInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	failures := 0
	var probeErr error
	for {
		select {
		case err := <-exitCh:
			if probeErr != nil && failures >= maxProbeFailures {
				return fmt.Errorf("%w: %w", ErrUnhealthy, probeErr)
			}
			return err

		case <-ctx.Done():
			s.terminate(cmd, exitCh)
			return ctx.Err()

		case <-tick:
			pctx, cancel := context.WithTimeout(ctx, probeTimeout)
			err := s.cfg.HealthCheck(pctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			probeErr = err
			s.log().Warn("health check failed", "name", s.cfg.Name, "failures", failures, "error", err)
			if failures == maxProbeFailures {
				signalGroup(cmd, syscall.SIGKILL) //nolint:errcheck // exit is observed on exitCh
			}
		}
	}
}

// terminate sends SIGTERM, then SIGKILL after GracefulTimeout, and waits
// for exitCh.
func (s *Supervisor) terminate(cmd *exec.Cmd, exitCh <-chan error) {
	if err := signalGroup(cmd, syscall.SIGTERM); err != nil {
		s.log().Warn("failed to signal process", "name", s.cfg.Name, "error", err)
	}
	timer := time.NewTimer(s.cfg.GracefulTimeout)
	defer timer.Stop()
	select {
	case <-exitCh:
		return
	case <-timer.C:
	}
	s.log().Warn("graceful shutdown timed out, killing", "name", s.cfg.Name, "timeout", s.cfg.GracefulTimeout)
	signalGroup(cmd, syscall.SIGKILL) //nolint:errcheck // the group may already be gone
	<-exitCh
}

func signalGroup(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd.Process == nil {
		return nil
	}
	err := syscall.Kill(-cmd.Process.Pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

// backoffDelay returns RestartDelay doubled per attempt after the first,
// capped at MaxRestartDelay.
func (s *Supervisor) backoffDelay(attempt int) time.Duration {
	delay := s.cfg.RestartDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= s.cfg.MaxRestartDelay {
			return s.cfg.MaxRestartDelay
		}
	}
	return delay
}

// Stop terminates the process and waits for the supervisor to exit. It is
// a no-op when nothing is running.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	done, cancel := s.done, s.cancel
	if done == nil {
		s.mu.Unlock()
		return nil
	}
	s.stopping = true
	s.mu.Unlock()

	s.log().Info("stopping process", "name", s.cfg.Name)
	cancel()
	<-done

	s.mu.Lock()
	s.done = nil
	s.cancel = nil
	s.mu.Unlock()
	return nil
}

// Done is closed when supervision ends, or nil before Start.
func (s *Supervisor) Done() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done
}

func (s *Supervisor) setExited(status Status, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.cmd = nil
	if err != nil {
		s.lastErr = err
	}
}

func (s *Supervisor) exited(err error) {
	if s.cfg.OnExit != nil {
		s.cfg.OnExit(err)
	}
}

func (s *Supervisor) log() Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logger
}

// Status returns the current lifecycle state.
func (s *Supervisor) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// PID returns the running process's ID, or 0.
func (s *Supervisor) PID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cmd != nil && s.cmd.Process != nil {
		return s.cmd.Process.Pid
	}
	return 0
}

// Stats returns a snapshot for health reporting.
func (s *Supervisor) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{Name: s.cfg.Name, Status: s.status, Restarts: s.restarts}
	if s.cmd != nil && s.cmd.Process != nil {
		st.PID = s.cmd.Process.Pid
	}
	if s.status == StatusRunning {
		st.Uptime = time.Since(s.startedAt)
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
