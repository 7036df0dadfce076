package receiver

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/nerrad567/lightshow-core/internal/device"
)

// Policy selects how datagrams shorter than the universe are handled.
type Policy string

// Short-payload policies.
const (
	PolicyReject  Policy = "reject"
	PolicyPartial Policy = "partial"
)

// ParsePolicy converts a configuration string to a Policy. Empty means
// PolicyReject.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicyPartial:
		return PolicyPartial, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
}

// State is one decoded universe. A State is never modified after it is
// published; readers may keep it as long as they like.
type State struct {
	Universe []byte
	Values   map[string]device.Values

	// Seq counts applied datagrams; 0 is the seeded initial state.
	Seq        uint64
	ReceivedAt time.Time

	// Partial marks a state built from a short datagram.
	Partial bool
}

// Device returns the decoded values of one device.
func (s *State) Device(name string) (device.Values, bool) {
	v, ok := s.Values[name]
	return v, ok
}

// Decoder turns raw universes into States for a fixed device layout.
type Decoder struct {
	devices []*device.Device
	width   int
	policy  Policy
}

// NewDecoder creates a decoder for devices laid out in a width-byte universe.
func NewDecoder(devices []*device.Device, width int, policy Policy) (*Decoder, error) {
	if _, err := ParsePolicy(string(policy)); err != nil {
		return nil, err
	}
	if policy == "" {
		policy = PolicyReject
	}
	for _, d := range devices {
		if d.End() > width {
			return nil, fmt.Errorf("%w: %s does not fit a %d byte universe", device.ErrConfiguration, d, width)
		}
	}
	return &Decoder{devices: slices.Clone(devices), width: width, policy: policy}, nil
}

// Width returns the expected universe width.
func (d *Decoder) Width() int {
	return d.width
}

// Policy returns the active short-payload policy.
func (d *Decoder) Policy() Policy {
	return d.policy
}

// Devices returns the decoder's devices in address order.
func (d *Decoder) Devices() []*device.Device {
	return slices.Clone(d.devices)
}

// Initial returns a random state drawn from rng.
func (d *Decoder) Initial(rng *rand.Rand) *State {
	universe := make([]byte, d.width)
	for i := range universe {
		universe[i] = byte(rng.IntN(256))
	}
	st, err := d.decodeAll(universe)
	if err != nil {
		// Every device fits the universe, so decoding cannot fail.
		panic(err)
	}
	return st
}

// Apply builds the state that follows prev after receiving payload.
//
// Parameters:
//   - prev: Current state; required for PolicyPartial carry-over
//   - payload: Raw datagram bytes
//   - at: Receive time stamped on the new state
//
// Returns:
//   - *State: Newly allocated state
//   - error: ErrProtocol for a short payload under PolicyReject
func (d *Decoder) Apply(prev *State, payload []byte, at time.Time) (*State, error) {
	var (
		st  *State
		err error
	)
	switch {
	case len(payload) >= d.width:
		st, err = d.decodeAll(slices.Clone(payload[:d.width]))
	case d.policy == PolicyPartial && prev != nil:
		st, err = d.decodePartial(prev, payload)
	default:
		return nil, fmt.Errorf("%w: datagram of %d bytes, universe is %d", ErrProtocol, len(payload), d.width)
	}
	if err != nil {
		return nil, err
	}

	st.ReceivedAt = at
	if prev != nil {
		st.Seq = prev.Seq + 1
	} else {
		st.Seq = 1
	}
	return st, nil
}

func (d *Decoder) decodeAll(universe []byte) (*State, error) {
	st := &State{Universe: universe, Values: make(map[string]device.Values, len(d.devices))}
	for _, dev := range d.devices {
		v, err := dev.Decode(universe)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
		}
		st.Values[dev.Name] = v
	}
	return st, nil
}

func (d *Decoder) decodePartial(prev *State, payload []byte) (*State, error) {
	universe := slices.Clone(prev.Universe)
	st := &State{Universe: universe, Values: make(map[string]device.Values, len(d.devices)), Partial: true}

	for _, dev := range d.devices {
		if dev.End() > len(payload) {
			st.Values[dev.Name] = prev.Values[dev.Name]
			continue
		}
		copy(universe[dev.Offset:dev.End()], payload[dev.Offset:dev.End()])
		v, err := dev.Decode(universe)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
		}
		st.Values[dev.Name] = v
	}
	return st, nil
}

// Export returns the state as device name → attribute → value, the shape
// used by JSON snapshots. The result is a deep copy.
func Export(st *State) map[string]map[string]any {
	out := make(map[string]map[string]any, len(st.Values))
	for name, values := range st.Values {
		m := make(map[string]any, len(values))
		for k, v := range values {
			m[k] = v
		}
		out[name] = m
	}
	return out
}
