package timeline

import "errors"

var (
	// ErrInvalidFrame is returned for a negative frame index.
	ErrInvalidFrame = errors.New("timeline: invalid frame")

	// ErrInvalidInstruction is returned for an instruction with no devices.
	ErrInvalidInstruction = errors.New("timeline: invalid instruction")

	// ErrWidthMismatch is returned when an instruction addresses channels
	// outside the universe being rendered.
	ErrWidthMismatch = errors.New("timeline: instruction outside universe")
)
