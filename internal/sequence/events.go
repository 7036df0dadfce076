package sequence

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/nerrad567/lightshow-core/internal/timeline"
)

// EventsFile is the trigger sidecar written next to each frame store.
type EventsFile struct {
	Sequence      string             `cbor:"sequence" json:"sequence"`
	BPM           float64            `cbor:"bpm" json:"bpm"`
	TimeSignature string             `cbor:"timesignature" json:"timesignature"`
	FrameRate     float64            `cbor:"frame_rate" json:"frame_rate"`
	Frames        int                `cbor:"frames" json:"frames"`
	Triggers      []timeline.Trigger `cbor:"triggers" json:"triggers"`
}

var (
	eventsEncMode cbor.EncMode
	eventsDecMode cbor.DecMode
)

func init() {
	var err error

	// Canonical map ordering keeps sidecars byte-identical across compiles.
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsEmpty,
	}
	eventsEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create events CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:      cbor.DupMapKeyEnforcedAPF,
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}
	eventsDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create events CBOR decoder mode: %v", err))
	}
}

// EncodeEvents serialises ef to CBOR.
func EncodeEvents(ef EventsFile) ([]byte, error) {
	return eventsEncMode.Marshal(ef)
}

// DecodeEvents parses a CBOR sidecar. Nested payload maps decode as
// map[string]any.
func DecodeEvents(data []byte) (*EventsFile, error) {
	var ef EventsFile
	if err := eventsDecMode.Unmarshal(data, &ef); err != nil {
		return nil, fmt.Errorf("decoding events: %w", err)
	}
	return &ef, nil
}

// WriteEvents writes ef to path via a temporary file and rename, so a
// reader never sees a half-written sidecar.
func WriteEvents(path string, ef EventsFile) error {
	data, err := EncodeEvents(ef)
	if err != nil {
		return fmt.Errorf("encoding events: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating events file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("writing events file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing events file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming events file: %w", err)
	}
	return nil
}

// ReadEvents loads a sidecar written by WriteEvents.
func ReadEvents(path string) (*EventsFile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from the output directory
	if err != nil {
		return nil, fmt.Errorf("reading events file: %w", err)
	}
	return DecodeEvents(data)
}
