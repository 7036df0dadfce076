package device

import (
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry assigns universe addresses to devices and answers lookups.
//
// Addresses are handed out contiguously in registration order, so the
// same registration sequence always produces the same layout.
//
// All public methods are thread-safe.
type Registry struct {
	mu       sync.RWMutex
	devices  []*Device
	byName   map[string]*Device
	capacity int
	next     int
	logger   Logger
}

// NewRegistry creates an empty registry whose universe may grow up to
// capacity bytes. A capacity outside (0, MaxUniverseSize] is treated as
// MaxUniverseSize.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 || capacity > MaxUniverseSize {
		capacity = MaxUniverseSize
	}
	return &Registry{
		byName:   make(map[string]*Device),
		capacity: capacity,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Register adds a device with the given attributes at the next free offset.
//
// Parameters:
//   - name: Unique device name
//   - schemas: Ordered attributes; their widths sum to the device width
//
// Returns:
//   - *Device: The registered, immutable device
//   - error: ErrDeviceExists, ErrInvalidDevice or ErrAddressSpaceExhausted
func (r *Registry) Register(name string, schemas []AttributeSchema) (*Device, error) {
	return r.RegisterFixture(name, "", schemas)
}

// RegisterFixture is Register with the fixture type recorded on the device,
// so sequences can select "all effect lights" by type.
func (r *Registry) RegisterFixture(name, fixture string, schemas []AttributeSchema) (*Device, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: device name is empty", ErrInvalidDevice)
	}
	if len(schemas) == 0 {
		return nil, fmt.Errorf("%w: device %q has no attributes", ErrInvalidDevice, name)
	}
	seen := make(map[string]bool, len(schemas))
	for _, a := range schemas {
		if err := a.validate(); err != nil {
			return nil, fmt.Errorf("device %q: %w", name, err)
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("%w: device %q repeats attribute %q", ErrInvalidDevice, name, a.Name)
		}
		seen[a.Name] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDeviceExists, name)
	}

	d := newDevice(name, fixture, schemas, r.next)
	if d.End() > r.capacity {
		return nil, fmt.Errorf("%w: %q needs %d channels at offset %d, capacity is %d",
			ErrAddressSpaceExhausted, name, d.Width, d.Offset, r.capacity)
	}

	r.devices = append(r.devices, d)
	r.byName[name] = d
	r.next = d.End()

	r.logger.Debug("device registered", "name", name, "offset", d.Offset, "width", d.Width)
	return d, nil
}

// Device returns the device registered under name.
func (r *Registry) Device(name string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, name)
	}
	return d, nil
}

// Devices returns every device in registration (address) order.
// The slice is a copy; the devices are shared and must not be modified.
func (r *Registry) Devices() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]*Device(nil), r.devices...)
}

// Select resolves several names at once, preserving the order given.
func (r *Registry) Select(names ...string) ([]*Device, error) {
	out := make([]*Device, 0, len(names))
	for _, n := range names {
		d, err := r.Device(n)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// ByFixture returns the devices of one fixture type in address order.
func (r *Registry) ByFixture(fixture string) []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Device
	for _, d := range r.devices {
		if d.Fixture == fixture {
			out = append(out, d)
		}
	}
	return out
}

// Width returns the universe width: the sum of all registered device widths.
func (r *Registry) Width() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.next
}

// Capacity returns the maximum universe width.
func (r *Registry) Capacity() int {
	return r.capacity
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Layout is an immutable snapshot of device placement, sufficient to
// decode a universe without holding the registry.
type Layout struct {
	Devices []*Device
	Width   int
}

// Layout returns the current placement snapshot.
func (r *Registry) Layout() Layout {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Layout{Devices: append([]*Device(nil), r.devices...), Width: r.next}
}

// RGB returns the attribute set of a plain red/green/blue light.
func RGB() []AttributeSchema {
	return []AttributeSchema{
		{Name: "red", Encoding: EncodingOneByte},
		{Name: "green", Encoding: EncodingOneByte},
		{Name: "blue", Encoding: EncodingOneByte},
	}
}

// RGBW returns RGB plus a white channel.
func RGBW() []AttributeSchema {
	return append(RGB(), AttributeSchema{Name: "white", Encoding: EncodingOneByte})
}
