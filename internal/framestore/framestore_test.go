package framestore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeStore(t *testing.T, path string, frames [][]byte, width int) *Writer {
	t.Helper()
	w, err := Create(path, width)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for _, f := range frames {
		if err := w.Append(f); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return w
}

func sampleFrames() [][]byte {
	return [][]byte{
		{0, 0, 0},
		{255, 0, 0},
		{255, 128, 0},
		{0, 0, 255},
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "show", "intro.dmx")
	frames := sampleFrames()
	w := writeStore(t, path, frames, 3)

	if w.Frames() != 4 {
		t.Errorf("Frames() = %d, want 4", w.Frames())
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size() != 12 {
		t.Errorf("file size = %d, want 12 (no header)", info.Size())
	}

	r, err := Open(path, 3)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close() //nolint:errcheck // Test cleanup

	if r.Len() != 4 || r.Width() != 3 {
		t.Fatalf("Len() = %d, Width() = %d", r.Len(), r.Width())
	}
	for i, want := range frames {
		got, err := r.FrameAt(i)
		if err != nil {
			t.Fatalf("FrameAt(%d) error = %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("FrameAt(%d) = %v, want %v", i, got, want)
		}
	}
}

func TestWriter_Checksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.dmx")
	w := writeStore(t, path, sampleFrames(), 3)

	data, _ := os.ReadFile(path)
	sum := sha256.Sum256(data)
	if w.Checksum() != hex.EncodeToString(sum[:]) {
		t.Errorf("Checksum() = %s, want %x", w.Checksum(), sum)
	}
}

func TestWriter_FrameSizeMismatch(t *testing.T) {
	w, err := Create(filepath.Join(t.TempDir(), "a.dmx"), 3)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer w.Close() //nolint:errcheck // Test cleanup

	if err := w.Append([]byte{1, 2}); !errors.Is(err, ErrFrameSizeMismatch) {
		t.Errorf("Append(short) error = %v, want ErrFrameSizeMismatch", err)
	}
	if err := w.Append([]byte{1, 2, 3, 4}); !errors.Is(err, ErrFrameSizeMismatch) {
		t.Errorf("Append(long) error = %v, want ErrFrameSizeMismatch", err)
	}
	if w.Frames() != 0 {
		t.Errorf("rejected frames counted: %d", w.Frames())
	}
}

func TestWriter_CloseIdempotent(t *testing.T) {
	w, err := Create(filepath.Join(t.TempDir(), "a.dmx"), 1)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := w.Append([]byte{1}); !errors.Is(err, ErrClosed) {
		t.Errorf("Append() after Close error = %v, want ErrClosed", err)
	}
}

func TestCreate_TruncatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.dmx")
	writeStore(t, path, sampleFrames(), 3)
	writeStore(t, path, sampleFrames()[:1], 3)

	r, err := Open(path, 3)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close() //nolint:errcheck // Test cleanup
	if r.Len() != 1 {
		t.Errorf("Len() = %d after rewrite, want 1", r.Len())
	}
}

func TestCreateStaged_Commit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.dmx")
	writeStore(t, path, sampleFrames(), 3)

	w, err := CreateStaged(path, 3)
	if err != nil {
		t.Fatalf("CreateStaged() error = %v", err)
	}
	defer w.Close() //nolint:errcheck // no-op after Commit
	if err := w.Append([]byte{9, 9, 9}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	old, err := Open(path, 3)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer old.Close() //nolint:errcheck // Test cleanup
	if old.Len() != 4 {
		t.Errorf("Len() before Commit = %d, want 4", old.Len())
	}

	if err := w.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if err := w.Commit(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Commit() error = %v, want ErrClosed", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(data, []byte{9, 9, 9}) {
		t.Errorf("store after Commit = %v, want [9 9 9]", data)
	}
	sum := sha256.Sum256(data)
	if w.Checksum() != hex.EncodeToString(sum[:]) {
		t.Errorf("Checksum() = %s, want %x", w.Checksum(), sum)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != filePermissions {
		t.Errorf("store mode = %v, want %v", info.Mode().Perm(), os.FileMode(filePermissions))
	}

	// Readers opened before the swap keep the frames they opened.
	frame, err := old.FrameAt(3)
	if err != nil {
		t.Fatalf("FrameAt(3) error = %v", err)
	}
	if !bytes.Equal(frame, []byte{0, 0, 255}) {
		t.Errorf("old reader frame 3 = %v, want [0 0 255]", frame)
	}

	entries, _ := os.ReadDir(dir) //nolint:errcheck // checked by length below
	if len(entries) != 1 {
		t.Errorf("directory has %d entries after Commit, want 1", len(entries))
	}
}

func TestCreateStaged_CloseDiscards(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.dmx")
	writeStore(t, path, sampleFrames(), 3)
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	w, err := CreateStaged(path, 3)
	if err != nil {
		t.Fatalf("CreateStaged() error = %v", err)
	}
	if err := w.Append([]byte{9, 9, 9}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Commit(); !errors.Is(err, ErrClosed) {
		t.Errorf("Commit() after Close error = %v, want ErrClosed", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(after, before) {
		t.Errorf("store changed by a discarded writer: %v", after)
	}
	entries, _ := os.ReadDir(dir) //nolint:errcheck // checked by length below
	if len(entries) != 1 {
		t.Errorf("directory has %d entries after Close, want 1", len(entries))
	}
}

func TestCreateStaged_NewPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "show", "new.dmx")
	w, err := CreateStaged(path, 3)
	if err != nil {
		t.Fatalf("CreateStaged() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Stat() before Commit error = %v, want not exist", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	r, err := Open(path, 3)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close() //nolint:errcheck // Test cleanup
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	if _, err := CreateStaged(path, 0); !errors.Is(err, ErrInvalidWidth) {
		t.Errorf("CreateStaged(width 0) error = %v, want ErrInvalidWidth", err)
	}
}

func TestCreate_InvalidWidth(t *testing.T) {
	if _, err := Create(filepath.Join(t.TempDir(), "a.dmx"), 0); !errors.Is(err, ErrInvalidWidth) {
		t.Errorf("Create() error = %v, want ErrInvalidWidth", err)
	}
}

func TestOpen_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.dmx")
	if err := os.WriteFile(path, []byte{1, 2, 3, 4, 5}, 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := Open(path, 3); !errors.Is(err, ErrCorruptStore) {
		t.Errorf("Open() error = %v, want ErrCorruptStore", err)
	}
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "none.dmx"), 3)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open() error = %v, want os.ErrNotExist", err)
	}
}

func TestReader_FrameOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.dmx")
	writeStore(t, path, sampleFrames(), 3)
	r, _ := Open(path, 3)
	defer r.Close() //nolint:errcheck // Test cleanup

	for _, i := range []int{-1, 4, 100} {
		if _, err := r.FrameAt(i); !errors.Is(err, ErrFrameOutOfRange) {
			t.Errorf("FrameAt(%d) error = %v, want ErrFrameOutOfRange", i, err)
		}
	}
}

func TestReader_AllIsRestartable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.dmx")
	frames := sampleFrames()
	writeStore(t, path, frames, 3)
	r, _ := Open(path, 3)
	defer r.Close() //nolint:errcheck // Test cleanup

	for pass := range 2 {
		n := 0
		for i, f := range r.All() {
			if i != n || !bytes.Equal(f, frames[i]) {
				t.Fatalf("pass %d: frame %d = %v", pass, i, f)
			}
			n++
		}
		if n != len(frames) {
			t.Errorf("pass %d yielded %d frames, want %d", pass, n, len(frames))
		}
		if r.Err() != nil {
			t.Errorf("Err() = %v", r.Err())
		}
	}

	// Early break leaves the reader usable.
	for i := range r.All() {
		if i == 1 {
			break
		}
	}
	if got, _ := r.FrameAt(3); !bytes.Equal(got, frames[3]) {
		t.Errorf("FrameAt(3) after break = %v", got)
	}
}

func TestReader_AllYieldsCopies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.dmx")
	writeStore(t, path, sampleFrames(), 3)
	r, _ := Open(path, 3)
	defer r.Close() //nolint:errcheck // Test cleanup

	var kept [][]byte
	for _, f := range r.All() {
		kept = append(kept, f)
	}
	kept[0][0] = 99
	if kept[1][0] != 255 {
		t.Error("frames share a backing buffer")
	}
}

func TestEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.dmx")
	writeStore(t, path, nil, 5)
	r, err := Open(path, 5)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close() //nolint:errcheck // Test cleanup
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	for range r.All() {
		t.Error("empty store yielded a frame")
	}
}
