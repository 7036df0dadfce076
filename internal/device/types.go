package device

import "fmt"

// MaxUniverseSize is the number of channels in one universe.
const MaxUniverseSize = 512

// Encoding identifies how an attribute value maps to bytes.
type Encoding string

// Supported attribute encodings.
const (
	EncodingOneByte Encoding = "onebyte"
	EncodingTwoByte Encoding = "twobyte"
	EncodingEnum    Encoding = "enum"
)

// Width returns the number of universe bytes the encoding occupies,
// or 0 for an unknown encoding.
func (e Encoding) Width() int {
	switch e {
	case EncodingOneByte, EncodingEnum:
		return 1
	case EncodingTwoByte:
		return 2
	default:
		return 0
	}
}

// AttributeSchema describes one controllable property of a device.
type AttributeSchema struct {
	Name     string   `json:"name" yaml:"name"`
	Encoding Encoding `json:"type" yaml:"type"`

	// Labels is the ordered domain of an enum attribute.
	Labels []string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// Width returns the attribute's size in bytes.
func (a AttributeSchema) Width() int {
	return a.Encoding.Width()
}

func (a AttributeSchema) validate() error {
	if a.Name == "" {
		return fmt.Errorf("%w: attribute name is empty", ErrInvalidDevice)
	}
	switch a.Encoding {
	case EncodingOneByte, EncodingTwoByte:
	case EncodingEnum:
		if len(a.Labels) == 0 {
			return fmt.Errorf("%w: enum attribute %q has no labels", ErrInvalidDevice, a.Name)
		}
		if len(a.Labels) > 256 {
			return fmt.Errorf("%w: enum attribute %q has %d labels, max 256", ErrInvalidDevice, a.Name, len(a.Labels))
		}
	default:
		return fmt.Errorf("%w: attribute %q has unknown encoding %q", ErrInvalidDevice, a.Name, a.Encoding)
	}
	return nil
}

// Values maps attribute names to values: float64 (or any integer type) for
// onebyte/twobyte, a label string or integer index for enum.
type Values map[string]any

// Merge returns a new Values with other's entries laid over v's.
func (v Values) Merge(other Values) Values {
	out := make(Values, len(v)+len(other))
	for k, val := range v {
		out[k] = val
	}
	for k, val := range other {
		out[k] = val
	}
	return out
}

// Device is a registered fixture. Offset and Width locate its window in
// the universe. A Device is immutable once returned by the registry.
type Device struct {
	Name       string            `json:"name"`
	Fixture    string            `json:"fixture,omitempty"`
	Attributes []AttributeSchema `json:"attributes"`
	Offset     int               `json:"offset"`
	Width      int               `json:"width"`

	// attrOffsets[i] is the position of Attributes[i] inside the window.
	attrOffsets []int
	attrIndex   map[string]int
}

func newDevice(name, fixture string, schemas []AttributeSchema, offset int) *Device {
	d := &Device{
		Name:        name,
		Fixture:     fixture,
		Attributes:  append([]AttributeSchema(nil), schemas...),
		Offset:      offset,
		attrOffsets: make([]int, len(schemas)),
		attrIndex:   make(map[string]int, len(schemas)),
	}
	for i, a := range d.Attributes {
		d.attrOffsets[i] = d.Width
		d.attrIndex[a.Name] = i
		d.Width += a.Width()
	}
	return d
}

// Attribute returns the named attribute schema and its position relative
// to the device's offset.
func (d *Device) Attribute(name string) (AttributeSchema, int, bool) {
	i, ok := d.attrIndex[name]
	if !ok {
		return AttributeSchema{}, 0, false
	}
	return d.Attributes[i], d.attrOffsets[i], true
}

// End returns the first universe offset past the device.
func (d *Device) End() int {
	return d.Offset + d.Width
}

// Slice returns the device's window of universe, or nil when universe is
// too short to contain it. The window aliases universe.
func (d *Device) Slice(universe []byte) []byte {
	if len(universe) < d.End() {
		return nil
	}
	return universe[d.Offset:d.End()]
}

func (d *Device) String() string {
	return fmt.Sprintf("%s@%d+%d", d.Name, d.Offset, d.Width)
}
