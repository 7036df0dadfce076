package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrAddressSpaceExhausted) {
//	    // the stage needs a second universe
//	}
var (
	// ErrAddressSpaceExhausted is returned when registering a device would
	// push the universe past its capacity.
	ErrAddressSpaceExhausted = errors.New("device: address space exhausted")

	// ErrUnknownDevice is returned when looking up a name that was never registered.
	ErrUnknownDevice = errors.New("device: unknown device")

	// ErrDeviceExists is returned when registering a name twice.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when a device or attribute schema is malformed.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrUnknownAttribute is returned when a value names an attribute the
	// device does not have.
	ErrUnknownAttribute = errors.New("device: unknown attribute")

	// ErrInvalidValue is returned when a value cannot be encoded for its
	// attribute (wrong type, unknown enum label).
	ErrInvalidValue = errors.New("device: invalid value")

	// ErrDecodingFailed is returned when a byte window is too short for
	// the attribute being decoded.
	ErrDecodingFailed = errors.New("device: decoding failed")

	// ErrConfiguration is returned when a stage description cannot be
	// loaded into a registry.
	ErrConfiguration = errors.New("device: configuration error")
)
