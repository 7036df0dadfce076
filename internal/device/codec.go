package device

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Codec scaling constants.
const (
	oneByteMax = 255
	twoByteMax = 65535
)

// Encode converts value into the attribute's byte representation.
//
// Parameters:
//   - a: Attribute schema describing the encoding
//   - value: float/integer level in [0,1] (clamped), or enum label/index
//
// Returns:
//   - []byte: Exactly a.Width() bytes
//   - error: ErrInvalidValue for a wrong value type or unknown enum label
func Encode(a AttributeSchema, value any) ([]byte, error) {
	switch a.Encoding {
	case EncodingOneByte:
		f, err := toLevel(a, value)
		if err != nil {
			return nil, err
		}
		return []byte{byte(math.Round(f * oneByteMax))}, nil

	case EncodingTwoByte:
		f, err := toLevel(a, value)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 2)
		binary.BigEndian.PutUint16(out, uint16(math.Round(f*twoByteMax)))
		return out, nil

	case EncodingEnum:
		idx, err := enumIndex(a, value)
		if err != nil {
			return nil, err
		}
		return []byte{byte(idx)}, nil

	default:
		return nil, fmt.Errorf("%w: attribute %q has unknown encoding %q", ErrInvalidDevice, a.Name, a.Encoding)
	}
}

// Decode converts the attribute's bytes back into a value: float64 for
// onebyte/twobyte, the label string for enum. Enum bytes past the end of
// the label list decode to the last label.
//
// Parameters:
//   - a: Attribute schema describing the encoding
//   - data: At least a.Width() bytes; extra bytes are ignored
//
// Returns:
//   - any: Decoded value
//   - error: ErrDecodingFailed if data is too short
func Decode(a AttributeSchema, data []byte) (any, error) {
	w := a.Width()
	if w == 0 {
		return nil, fmt.Errorf("%w: attribute %q has unknown encoding %q", ErrInvalidDevice, a.Name, a.Encoding)
	}
	if len(data) < w {
		return nil, fmt.Errorf("%w: %s %q requires %d bytes, got %d", ErrDecodingFailed, a.Encoding, a.Name, w, len(data))
	}

	switch a.Encoding {
	case EncodingOneByte:
		return float64(data[0]) / oneByteMax, nil
	case EncodingTwoByte:
		return float64(binary.BigEndian.Uint16(data)) / twoByteMax, nil
	default:
		idx := min(int(data[0]), len(a.Labels)-1)
		return a.Labels[idx], nil
	}
}

// toLevel normalises a numeric value and clamps it to [0,1].
func toLevel(a AttributeSchema, value any) (float64, error) {
	f, ok := toFloat(value)
	if !ok || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: %s attribute %q expects a number, got %T(%v)", ErrInvalidValue, a.Encoding, a.Name, value, value)
	}
	return max(0, min(1, f)), nil
}

func enumIndex(a AttributeSchema, value any) (int, error) {
	if label, ok := value.(string); ok {
		for i, l := range a.Labels {
			if l == label {
				return i, nil
			}
		}
		return 0, fmt.Errorf("%w: %q is not a label of enum attribute %q", ErrInvalidValue, label, a.Name)
	}

	f, ok := toFloat(value)
	if !ok || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: enum attribute %q expects a label or index, got %T", ErrInvalidValue, a.Name, value)
	}
	return max(0, min(len(a.Labels)-1, int(math.Round(f)))), nil
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Patch is a pre-encoded write of Data at absolute universe Offset.
type Patch struct {
	Offset int
	Data   []byte
}

// Apply copies the patch into universe.
func (p Patch) Apply(universe []byte) {
	copy(universe[p.Offset:], p.Data)
}

// Patches encodes values for this device without touching a universe.
// The result is ordered by attribute position so applying it is
// deterministic regardless of map iteration order.
//
// Returns:
//   - []Patch: One patch per value
//   - error: ErrUnknownAttribute or ErrInvalidValue
func (d *Device) Patches(values Values) ([]Patch, error) {
	patches := make([]Patch, 0, len(values))
	for i, a := range d.Attributes {
		v, ok := values[a.Name]
		if !ok {
			continue
		}
		data, err := Encode(a, v)
		if err != nil {
			return nil, fmt.Errorf("device %q: %w", d.Name, err)
		}
		patches = append(patches, Patch{Offset: d.Offset + d.attrOffsets[i], Data: data})
	}
	if len(patches) != len(values) {
		for name := range values {
			if _, ok := d.attrIndex[name]; !ok {
				return nil, fmt.Errorf("%w: device %q has no attribute %q", ErrUnknownAttribute, d.Name, name)
			}
		}
	}
	return patches, nil
}

// Encode writes values into the device's window of universe. Attributes
// not mentioned in values are left untouched.
func (d *Device) Encode(universe []byte, values Values) error {
	if len(universe) < d.End() {
		return fmt.Errorf("%w: universe of %d bytes cannot hold %s", ErrInvalidDevice, len(universe), d)
	}
	patches, err := d.Patches(values)
	if err != nil {
		return err
	}
	for _, p := range patches {
		p.Apply(universe)
	}
	return nil
}

// Decode reads every attribute of the device from universe.
func (d *Device) Decode(universe []byte) (Values, error) {
	window := d.Slice(universe)
	if window == nil {
		return nil, fmt.Errorf("%w: universe of %d bytes does not reach %s", ErrDecodingFailed, len(universe), d)
	}
	out := make(Values, len(d.Attributes))
	for i, a := range d.Attributes {
		v, err := Decode(a, window[d.attrOffsets[i]:])
		if err != nil {
			return nil, err
		}
		out[a.Name] = v
	}
	return out, nil
}
