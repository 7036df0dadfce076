package sequence

import "errors"

// Sentinel errors for sequence operations.
var (
	// ErrUnknownSequence is returned when no definition has the requested name.
	ErrUnknownSequence = errors.New("sequence: unknown sequence")

	// ErrDuplicateSequence is returned when a name is registered twice.
	ErrDuplicateSequence = errors.New("sequence: already registered")

	// ErrInvalidMeta is returned when merged meta cannot drive a compile
	// (missing tempo, bad time signature, non-positive frame rate).
	ErrInvalidMeta = errors.New("sequence: invalid meta")

	// ErrInvalidDefinition is returned for malformed cue files and manifests.
	ErrInvalidDefinition = errors.New("sequence: invalid definition")

	// ErrRunNotFound is returned when no compile record matches.
	ErrRunNotFound = errors.New("sequence: compile run not found")
)
