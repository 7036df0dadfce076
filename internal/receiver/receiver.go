package receiver

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/lightshow-core/internal/device"
)

// Defaults for Config fields left at zero.
const (
	DefaultBufferSize = 1024
	DefaultListen     = "127.0.0.1:5005"
)

// Logger is the logging interface used by the receiver.
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

// Telemetry receives periodic receiver counters.
type Telemetry interface {
	WriteReceiverStats(listen string, received, rejected, timeouts uint64)
}

// Config holds NetworkReceiver settings.
type Config struct {
	Listen     string
	BufferSize int

	// ReadTimeout bounds each read; expiries are counted and the loop
	// continues. Zero blocks until a datagram arrives.
	ReadTimeout time.Duration

	Seed   uint64
	Policy Policy
}

// Stats counts datagrams seen by a NetworkReceiver.
type Stats struct {
	Received uint64 `json:"received"`
	Rejected uint64 `json:"rejected"`
	Timeouts uint64 `json:"timeouts"`
}

// NetworkReceiver applies UDP datagrams to an atomically published State.
type NetworkReceiver struct {
	cfg     Config
	decoder *Decoder
	logger  Logger

	state atomic.Pointer[State]

	received atomic.Uint64
	rejected atomic.Uint64
	timeouts atomic.Uint64

	mu   sync.Mutex
	conn *net.UDPConn
}

// New creates a receiver for every device in reg. The initial state is a
// random universe drawn from cfg.Seed.
//
// Parameters:
//   - reg: Device registry describing the universe layout
//   - cfg: Listen address, buffer, timeout, seed and policy
//   - logger: Logger instance (nil for no logging)
//
// Returns:
//   - *NetworkReceiver: Receiver ready for Listen
//   - error: ErrInvalidPolicy or a layout error
func New(reg *device.Registry, cfg Config, logger Logger) (*NetworkReceiver, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}

	policy, err := ParsePolicy(string(cfg.Policy))
	if err != nil {
		return nil, err
	}
	cfg.Policy = policy

	layout := reg.Layout()
	dec, err := NewDecoder(layout.Devices, layout.Width, policy)
	if err != nil {
		return nil, err
	}

	r := &NetworkReceiver{cfg: cfg, decoder: dec, logger: logger}
	r.state.Store(dec.Initial(rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))))
	return r, nil
}

// Listen binds the UDP socket.
func (r *NetworkReceiver) Listen() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		return nil
	}
	addr, err := net.ResolveUDPAddr("udp", r.cfg.Listen)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", r.cfg.Listen, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", r.cfg.Listen, err)
	}
	r.conn = conn
	r.logger.Info("receiver listening",
		"addr", conn.LocalAddr().String(),
		"width", r.decoder.Width(),
		"policy", string(r.decoder.Policy()),
	)
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (r *NetworkReceiver) Addr() *net.UDPAddr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr().(*net.UDPAddr) //nolint:forcetypeassert // ListenUDP always yields *UDPAddr
}

// Run reads datagrams until ctx is cancelled or the socket is closed.
// Undecodable datagrams are counted, logged and discarded.
//
// Returns:
//   - error: nil when ctx is cancelled or Close is called, ErrNotListening
//     before Listen, otherwise the read error
func (r *NetworkReceiver) Run(ctx context.Context) error {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return ErrNotListening
	}

	stop := context.AfterFunc(ctx, func() {
		conn.Close() //nolint:errcheck // unblocks the pending read
	})
	defer stop()

	buf := make([]byte, r.cfg.BufferSize)
	for {
		if r.cfg.ReadTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(r.cfg.ReadTimeout)); err != nil {
				return r.exitErr(ctx, err)
			}
		}

		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				r.timeouts.Add(1)
				continue
			}
			return r.exitErr(ctx, err)
		}

		r.received.Add(1)
		if err := r.Apply(buf[:n]); err != nil {
			r.rejected.Add(1)
			r.logger.Warn("datagram rejected", "from", from.String(), "size", n, "error", err)
		}
	}
}

func (r *NetworkReceiver) exitErr(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return fmt.Errorf("reading datagram: %w", err)
}

// Apply decodes payload against the current state and publishes the
// result. Only the receive loop calls it in production; it is exported
// for replaying captured frames.
func (r *NetworkReceiver) Apply(payload []byte) error {
	next, err := r.decoder.Apply(r.state.Load(), payload, time.Now())
	if err != nil {
		return err
	}
	r.state.Store(next)
	return nil
}

// State returns the latest snapshot. It never blocks and never returns nil.
func (r *NetworkReceiver) State() *State {
	return r.state.Load()
}

// Stats returns the current counters.
func (r *NetworkReceiver) Stats() Stats {
	return Stats{
		Received: r.received.Load(),
		Rejected: r.rejected.Load(),
		Timeouts: r.timeouts.Load(),
	}
}

// Devices returns the devices the receiver decodes.
func (r *NetworkReceiver) Devices() []*device.Device {
	return r.decoder.Devices()
}

// Width returns the expected universe width.
func (r *NetworkReceiver) Width() int {
	return r.decoder.Width()
}

// ReportStats writes the counters to t every interval until ctx is done.
func (r *NetworkReceiver) ReportStats(ctx context.Context, t Telemetry, interval time.Duration) {
	if t == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := r.Stats()
			t.WriteReceiverStats(r.cfg.Listen, s.Received, s.Rejected, s.Timeouts)
		}
	}
}

// Close releases the socket. A running Run returns nil.
func (r *NetworkReceiver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}
