package framestore

import (
	"fmt"
	"io"
	"iter"
	"os"
)

// Reader gives random and sequential access to a store file.
// FrameAt is safe for concurrent use; All is not.
type Reader struct {
	f      *os.File
	width  int
	frames int
	err    error
}

// Open opens the store at path for frames of width bytes.
//
// Returns:
//   - *Reader: Open reader
//   - error: ErrInvalidWidth, ErrCorruptStore or an *os.PathError
func Open(path string, width int) (*Reader, error) {
	if width < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening frame store: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("stat frame store: %w", err)
	}
	size := info.Size()
	if size%int64(width) != 0 {
		f.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("%w: %s is %d bytes, not a multiple of width %d", ErrCorruptStore, path, size, width)
	}
	return &Reader{f: f, width: width, frames: int(size / int64(width))}, nil
}

// Len returns the number of frames in the store.
func (r *Reader) Len() int {
	return r.frames
}

// Width returns the frame width.
func (r *Reader) Width() int {
	return r.width
}

// FrameAt returns a fresh copy of frame i.
func (r *Reader) FrameAt(i int) ([]byte, error) {
	if i < 0 || i >= r.frames {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrFrameOutOfRange, i, r.frames)
	}
	buf := make([]byte, r.width)
	if _, err := r.f.ReadAt(buf, int64(i)*int64(r.width)); err != nil {
		return nil, fmt.Errorf("reading frame %d: %w", i, err)
	}
	return buf, nil
}

// All yields (index, frame) for every frame in order. Each frame is a
// fresh slice. The sequence can be ranged over any number of times;
// iteration stops early on a read error, which Err then reports.
func (r *Reader) All() iter.Seq2[int, []byte] {
	return func(yield func(int, []byte) bool) {
		r.err = nil
		sr := io.NewSectionReader(r.f, 0, int64(r.frames)*int64(r.width))
		for i := range r.frames {
			buf := make([]byte, r.width)
			if _, err := io.ReadFull(sr, buf); err != nil {
				r.err = fmt.Errorf("reading frame %d: %w", i, err)
				return
			}
			if !yield(i, buf) {
				return
			}
		}
	}
}

// Err returns the error that ended the last All iteration, if any.
func (r *Reader) Err() error {
	return r.err
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	if err := r.f.Close(); err != nil {
		return fmt.Errorf("closing frame store: %w", err)
	}
	return nil
}
