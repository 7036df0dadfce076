package musictime

import "errors"

var (
	// ErrInvalidPosition is returned for a malformed "bar.beat.tick" string.
	ErrInvalidPosition = errors.New("musictime: invalid position")

	// ErrInvalidSignature is returned for a malformed time signature.
	ErrInvalidSignature = errors.New("musictime: invalid time signature")

	// ErrInvalidTempo is returned for a non-positive tempo, frame rate or tick resolution.
	ErrInvalidTempo = errors.New("musictime: invalid tempo")
)
