package framestore

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	dirPermissions  = 0750
	filePermissions = 0644
)

// Writer appends fixed-width frames to a store file.
//
// Close must be called on every path; it flushes buffered frames and is
// safe to call more than once. A writer from CreateStaged only replaces
// its target on Commit; closing it without a Commit discards the frames.
type Writer struct {
	f      *os.File
	buf    *bufio.Writer
	sum    hash.Hash
	width  int
	frames int
	closed bool

	// target is set for staged writers; f is then a temporary file in
	// the same directory.
	target string
}

// Create truncates or creates the store at path.
//
// Parameters:
//   - path: Destination file; parent directories are created
//   - width: Universe width every appended frame must have
//
// Returns:
//   - *Writer: Open writer
//   - error: ErrInvalidWidth or an *os.PathError
func Create(path string, width int) (*Writer, error) {
	if width < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePermissions)
	if err != nil {
		return nil, fmt.Errorf("creating frame store: %w", err)
	}
	return newWriter(f, width), nil
}

// CreateStaged starts a store that replaces path only when Commit
// succeeds. Until then an existing store at path is untouched, and
// readers that already opened it keep their frames after the swap.
//
// Parameters:
//   - path: Final location of the store; parent directories are created
//   - width: Universe width every appended frame must have
//
// Returns:
//   - *Writer: Open writer backed by a temporary file next to path
//   - error: ErrInvalidWidth or an *os.PathError
func CreateStaged(path string, width int) (*Writer, error) {
	if width < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("creating staged frame store: %w", err)
	}
	if err := f.Chmod(filePermissions); err != nil {
		f.Close()           //nolint:errcheck // Best effort cleanup on error path
		os.Remove(f.Name()) //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("creating staged frame store: %w", err)
	}
	w := newWriter(f, width)
	w.target = path
	return w, nil
}

func newWriter(f *os.File, width int) *Writer {
	sum := sha256.New()
	return &Writer{
		f:     f,
		buf:   bufio.NewWriterSize(io.MultiWriter(f, sum), width*64),
		sum:   sum,
		width: width,
	}
}

// Append writes one frame.
func (w *Writer) Append(frame []byte) error {
	if w.closed {
		return ErrClosed
	}
	if len(frame) != w.width {
		return fmt.Errorf("%w: frame %d has %d bytes, store width is %d", ErrFrameSizeMismatch, w.frames, len(frame), w.width)
	}
	if _, err := w.buf.Write(frame); err != nil {
		return fmt.Errorf("writing frame %d: %w", w.frames, err)
	}
	w.frames++
	return nil
}

// Frames returns the number of frames appended so far.
func (w *Writer) Frames() int {
	return w.frames
}

// Width returns the store width.
func (w *Writer) Width() int {
	return w.width
}

// Checksum returns the hex SHA-256 of the bytes flushed to the file.
// Call it after Close to cover the whole store.
func (w *Writer) Checksum() string {
	return hex.EncodeToString(w.sum.Sum(nil))
}

// Commit flushes and closes the store and, for a staged writer, moves it
// over its target. A failed Commit leaves the target as it was.
func (w *Writer) Commit() error {
	if w.target == "" {
		return w.Close()
	}
	if w.closed {
		return ErrClosed
	}
	w.closed = true

	if err := w.flushAndClose(); err != nil {
		os.Remove(w.f.Name()) //nolint:errcheck // Best effort cleanup on error path
		return err
	}
	if err := os.Rename(w.f.Name(), w.target); err != nil {
		os.Remove(w.f.Name()) //nolint:errcheck // Best effort cleanup on error path
		return fmt.Errorf("committing frame store: %w", err)
	}
	return nil
}

// Close flushes buffered frames and closes the file. A flush error and a
// close error are both reported. An uncommitted staged store is removed.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	err := w.flushAndClose()
	if w.target != "" {
		if rmErr := os.Remove(w.f.Name()); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			err = errors.Join(err, fmt.Errorf("discarding staged frame store: %w", rmErr))
		}
	}
	return err
}

func (w *Writer) flushAndClose() error {
	flushErr := w.buf.Flush()
	if flushErr != nil {
		flushErr = fmt.Errorf("flushing frame store: %w", flushErr)
	}
	closeErr := w.f.Close()
	if closeErr != nil {
		closeErr = fmt.Errorf("closing frame store: %w", closeErr)
	}
	return errors.Join(flushErr, closeErr)
}
