package framestore

import "errors"

var (
	// ErrFrameSizeMismatch is returned when appending a frame whose length
	// differs from the store width.
	ErrFrameSizeMismatch = errors.New("framestore: frame size mismatch")

	// ErrCorruptStore is returned when a file's size is not a whole number of frames.
	ErrCorruptStore = errors.New("framestore: corrupt store")

	// ErrFrameOutOfRange is returned for an index outside [0, Len()).
	ErrFrameOutOfRange = errors.New("framestore: frame out of range")

	// ErrClosed is returned when using a closed writer or reader.
	ErrClosed = errors.New("framestore: closed")

	// ErrInvalidWidth is returned for a width below 1.
	ErrInvalidWidth = errors.New("framestore: invalid width")
)
