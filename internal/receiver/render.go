package receiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/lightshow-core/internal/device"
	"github.com/nerrad567/lightshow-core/internal/infrastructure/mqtt"
)

// DefaultRenderRate is the RenderLoop tick rate when none is set.
const DefaultRenderRate = 3

// StateSource is anything that publishes State snapshots.
// *NetworkReceiver implements it.
type StateSource interface {
	State() *State
}

// Renderer consumes snapshots. Render is only called from the RenderLoop
// goroutine and only with a snapshot it has not seen before.
type Renderer interface {
	Render(ctx context.Context, st *State) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, st *State) error

// Render calls f(ctx, st).
func (f RendererFunc) Render(ctx context.Context, st *State) error {
	return f(ctx, st)
}

// RenderLoop polls a StateSource at a fixed rate.
type RenderLoop struct {
	Source    StateSource
	Renderers []Renderer

	// Rate is ticks per second; DefaultRenderRate when zero.
	Rate   float64
	Logger Logger
}

// Run renders until ctx is cancelled. The current snapshot is rendered
// immediately; after that a tick with an unchanged snapshot is skipped.
// Renderer errors are logged and do not stop the loop.
func (l *RenderLoop) Run(ctx context.Context) error {
	logger := l.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	rate := l.Rate
	if rate <= 0 {
		rate = DefaultRenderRate
	}

	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()

	var last *State
	for {
		if st := l.Source.State(); st != nil && st != last {
			last = st
			for _, r := range l.Renderers {
				if err := r.Render(ctx, st); err != nil {
					logger.Warn("render failed", "seq", st.Seq, "error", err)
				}
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// TextRenderer prints one line per device.
type TextRenderer struct {
	W       io.Writer
	Devices []*device.Device
}

// Render writes a header line followed by the device table.
func (r *TextRenderer) Render(_ context.Context, st *State) error {
	var b strings.Builder
	fmt.Fprintf(&b, "--- seq %d", st.Seq)
	if !st.ReceivedAt.IsZero() {
		fmt.Fprintf(&b, " @ %s", st.ReceivedAt.Format("15:04:05.000"))
	}
	if st.Partial {
		b.WriteString(" (partial)")
	}
	b.WriteByte('\n')

	for _, d := range r.Devices {
		b.WriteString(FormatDevice(d, st.Values[d.Name]))
		b.WriteByte('\n')
	}
	_, err := io.WriteString(r.W, b.String())
	return err
}

// FormatDevice renders one device's values in attribute order, for
// example "par1       red=1.00 green=0.50 blue=0.00".
func FormatDevice(d *device.Device, values device.Values) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s", d.Name)
	for _, a := range d.Attributes {
		v, ok := values[a.Name]
		switch {
		case !ok:
			fmt.Fprintf(&b, " %s=?", a.Name)
		case a.Encoding == device.EncodingEnum:
			fmt.Fprintf(&b, " %s=%v", a.Name, v)
		default:
			fmt.Fprintf(&b, " %s=%.2f", a.Name, v)
		}
	}
	return b.String()
}

// Publisher is the subset of the MQTT client used by StatePublisher.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// StatePublisher publishes each device whose values changed since the
// last render as a retained message on its state topic.
type StatePublisher struct {
	Publisher Publisher

	mu   sync.Mutex
	sent map[string]device.Values
}

// Render publishes changed devices.
func (p *StatePublisher) Render(_ context.Context, st *State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sent == nil {
		p.sent = make(map[string]device.Values, len(st.Values))
	}

	var errs []error
	for name, values := range st.Values {
		if prev, ok := p.sent[name]; ok && maps.Equal(prev, values) {
			continue
		}
		if err := p.Publisher.PublishJSON(mqtt.Topics{}.DeviceState(name), values, true); err != nil {
			errs = append(errs, fmt.Errorf("publishing %s: %w", name, err))
			continue
		}
		p.sent[name] = values
	}
	return errors.Join(errs...)
}
