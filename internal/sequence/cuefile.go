package sequence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/lightshow-core/internal/device"
	"github.com/nerrad567/lightshow-core/internal/musictime"
	"github.com/nerrad567/lightshow-core/internal/timeline"
)

// CueFile is a declarative sequence read from YAML.
//
//	name: chase
//	bpm: 120
//	timesignature: "4:4"
//	cues:
//	  - at: "1.1.1"
//	    color: CYAN
//	  - at: "3.1.1"
//	    fixture: effect_light
//	    values: {globo: star, x: 0.25}
//	triggers:
//	  - at: "1.1.1"
//	    deviceid: audio
//	    func: audio.start
//	    src: chase/audio.ogg
type CueFile struct {
	Header   Meta          `yaml:",inline"`
	Cues     []Cue         `yaml:"cues"`
	Triggers []TriggerSpec `yaml:"triggers"`
}

// Cue is one step change. Exactly one of At or Frame positions it.
// With no Devices and no Fixture the cue targets every device that has
// all of the cue's attributes.
type Cue struct {
	At      string        `yaml:"at"`
	Frame   *int          `yaml:"frame"`
	Devices []string      `yaml:"devices"`
	Fixture string        `yaml:"fixture"`
	Color   string        `yaml:"color"`
	Values  device.Values `yaml:"values"`
}

// TriggerSpec is a media trigger positioned like a Cue.
type TriggerSpec struct {
	At       string         `yaml:"at"`
	Frame    *int           `yaml:"frame"`
	DeviceID string         `yaml:"deviceid"`
	Func     string         `yaml:"func"`
	Src      string         `yaml:"src"`
	Payload  map[string]any `yaml:"payload"`
}

// LoadCueFile reads a cue file. The sequence name defaults to the file
// name without its extension.
func LoadCueFile(path string) (*CueFile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the configured sequences directory
	if err != nil {
		return nil, fmt.Errorf("reading cue file: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	cf, err := ParseCueFile(data, stem)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cf, nil
}

// ParseCueFile parses and checks a cue file. defaultName is used when the
// document has no name.
func ParseCueFile(data []byte, defaultName string) (*CueFile, error) {
	var cf CueFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("%w: parsing cue file: %w", ErrInvalidDefinition, err)
	}
	if cf.Header.Name == "" {
		cf.Header.Name = defaultName
	}
	if err := cf.validate(); err != nil {
		return nil, err
	}
	return &cf, nil
}

func (cf *CueFile) validate() error {
	var errs []error
	for i, c := range cf.Cues {
		if err := checkPosition(c.At, c.Frame); err != nil {
			errs = append(errs, fmt.Errorf("cue %d: %w", i, err))
		}
		if c.Color == "" && len(c.Values) == 0 {
			errs = append(errs, fmt.Errorf("cue %d: needs color or values", i))
		}
		if c.Color != "" {
			if _, ok := Color(c.Color); !ok {
				errs = append(errs, fmt.Errorf("cue %d: unknown color %q", i, c.Color))
			}
		}
		if len(c.Devices) > 0 && c.Fixture != "" {
			errs = append(errs, fmt.Errorf("cue %d: devices and fixture are exclusive", i))
		}
	}
	for i, tr := range cf.Triggers {
		if err := checkPosition(tr.At, tr.Frame); err != nil {
			errs = append(errs, fmt.Errorf("trigger %d: %w", i, err))
		}
		if tr.DeviceID == "" {
			errs = append(errs, fmt.Errorf("trigger %d: deviceid is required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s: %w", ErrInvalidDefinition, cf.Header.Name, errors.Join(errs...))
	}
	return nil
}

func checkPosition(at string, frame *int) error {
	switch {
	case at == "" && frame == nil:
		return errors.New("needs at or frame")
	case at != "" && frame != nil:
		return errors.New("at and frame are exclusive")
	case frame != nil && *frame < 0:
		return fmt.Errorf("frame %d is negative", *frame)
	case at != "":
		if _, err := musictime.ParsePosition(at); err != nil {
			return err
		}
	}
	return nil
}

// Meta implements Definition.
func (cf *CueFile) Meta() Meta {
	return cf.Header
}

// CreateTimeline implements Definition.
func (cf *CueFile) CreateTimeline(dc DeviceCollection, t musictime.TimeFunc, tl *timeline.Builder, el *timeline.EventList) error {
	for i, c := range cf.Cues {
		frame, err := resolveFrame(t, c.At, c.Frame)
		if err != nil {
			return fmt.Errorf("cue %d: %w", i, err)
		}
		values := c.Values.Merge(nil)
		if c.Color != "" {
			color, _ := Color(c.Color)
			values = color.Merge(c.Values)
		}
		targets, err := c.targets(dc, values)
		if err != nil {
			return fmt.Errorf("cue %d: %w", i, err)
		}
		if len(targets) == 0 {
			return fmt.Errorf("%w: cue %d matches no devices", ErrInvalidDefinition, i)
		}
		if err := tl.Set(targets, values, frame); err != nil {
			return fmt.Errorf("cue %d: %w", i, err)
		}
	}

	for i, tr := range cf.Triggers {
		frame, err := resolveFrame(t, tr.At, tr.Frame)
		if err != nil {
			return fmt.Errorf("trigger %d: %w", i, err)
		}
		err = el.AddTrigger(timeline.Trigger{
			Frame:    frame,
			DeviceID: tr.DeviceID,
			Action:   tr.Func,
			Source:   tr.Src,
			Payload:  tr.Payload,
		})
		if err != nil {
			return fmt.Errorf("trigger %d: %w", i, err)
		}
	}
	return nil
}

func (c Cue) targets(dc DeviceCollection, values device.Values) ([]*device.Device, error) {
	if len(c.Devices) > 0 {
		out := make([]*device.Device, 0, len(c.Devices))
		for _, name := range c.Devices {
			d, err := dc.Device(name)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
		return out, nil
	}

	attrs := make([]string, 0, len(values))
	for name := range values {
		attrs = append(attrs, name)
	}
	var out []*device.Device
	for _, d := range dc.Devices() {
		if c.Fixture != "" && d.Fixture != c.Fixture {
			continue
		}
		if hasAttributes(d, attrs...) {
			out = append(out, d)
		}
	}
	return out, nil
}

func resolveFrame(t musictime.TimeFunc, at string, frame *int) (int, error) {
	if frame != nil {
		return *frame, nil
	}
	return t(at)
}
