// Package device provides the device registry and attribute codec.
//
// A stage is a set of named devices (fixtures) sharing one universe: a
// fixed-width byte array of at most 512 channels. Each device owns a
// contiguous window of the universe, assigned at registration in the order
// devices are registered, and every attribute of the device (red, green,
// globo, ...) owns one or two bytes of that window.
//
//	universe  ┌────────── par1 ──────────┬────────── par2 ──────────┬─ ...
//	          │ red │ green │ blue       │ red │ green │ blue       │
//	offset    0     1       2            3     4       5
//
// # Encodings
//
//   - onebyte: a float in [0,1] scaled to 0..255
//   - twobyte: a float in [0,1] scaled to 0..65535, big-endian (coarse, fine)
//   - enum:    a label (or index) from an ordered list, stored as its index
//
// Numeric values outside [0,1] are clamped, never rejected. An unknown enum
// label is an authoring error and is rejected with ErrInvalidValue.
//
// # Usage
//
//	reg := device.NewRegistry(device.MaxUniverseSize)
//	par, err := reg.Register("par1", device.RGB())
//	if err != nil {
//	    return err
//	}
//	universe := make([]byte, reg.Width())
//	err = par.Encode(universe, device.Values{"red": 1.0, "blue": 0.5})
//
// # Thread Safety
//
// Registration is expected to finish before compilation starts. After
// that the registry and its devices are read-only and may be shared by any
// number of goroutines.
package device
