package sequence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest selects sequences for compilation and layers meta over them.
//
//	defaults:
//	  timesignature: "4:4"
//	  frame_rate: 40
//	sequences:
//	  - name: intro
//	  - name: outlaw-star
//	    bpm: 110
//	  - file: chase.yaml
//
// With no sequences listed every definition in the library is compiled.
type Manifest struct {
	Defaults  Meta            `yaml:"defaults"`
	Sequences []ManifestEntry `yaml:"sequences"`
}

// ManifestEntry names one sequence, optionally loading it from a cue file,
// and overrides any meta field it sets.
type ManifestEntry struct {
	Overrides Meta   `yaml:",inline"`
	File      string `yaml:"file"`
	Disabled  bool   `yaml:"disabled"`
}

// Job is a definition paired with its fully merged meta.
type Job struct {
	Definition Definition
	Meta       Meta
}

// LoadManifest reads a manifest. A missing file yields an empty manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if errors.Is(err, os.ErrNotExist) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest parses manifest YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parsing manifest: %w", ErrInvalidDefinition, err)
	}
	for i, e := range m.Sequences {
		if e.Overrides.Name == "" && e.File == "" {
			return nil, fmt.Errorf("%w: manifest entry %d needs name or file", ErrInvalidDefinition, i)
		}
	}
	return &m, nil
}

// Plan resolves the manifest against lib. Cue files named by entries are
// loaded relative to baseDir and registered if not already present.
// Meta is merged as base < manifest defaults < definition < entry.
//
// Entries that fail to resolve are reported in the joined error; the jobs
// that did resolve are still returned.
func (m *Manifest) Plan(lib *Library, baseDir string, base Meta) ([]Job, error) {
	defaults := base.Merge(m.Defaults)

	if len(m.Sequences) == 0 {
		var jobs []Job
		for _, name := range lib.Names() {
			def, err := lib.Get(name)
			if err != nil {
				continue
			}
			jobs = append(jobs, Job{Definition: def, Meta: defaults.Merge(def.Meta())})
		}
		return jobs, nil
	}

	var jobs []Job
	var errs []error
	for i, e := range m.Sequences {
		if e.Disabled {
			continue
		}
		def, err := m.resolve(lib, baseDir, e)
		if err != nil {
			errs = append(errs, fmt.Errorf("manifest entry %d: %w", i, err))
			continue
		}
		meta := defaults.Merge(def.Meta()).Merge(e.Overrides)
		meta.Name = def.Meta().Name
		jobs = append(jobs, Job{Definition: def, Meta: meta})
	}
	return jobs, errors.Join(errs...)
}

func (m *Manifest) resolve(lib *Library, baseDir string, e ManifestEntry) (Definition, error) {
	if e.File == "" {
		return lib.Get(e.Overrides.Name)
	}

	path := e.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	cf, err := LoadCueFile(path)
	if err != nil {
		return nil, err
	}
	if e.Overrides.Name != "" && e.Overrides.Name != cf.Header.Name {
		return nil, fmt.Errorf("%w: entry name %q does not match cue file name %q",
			ErrInvalidDefinition, e.Overrides.Name, cf.Header.Name)
	}
	if existing, err := lib.Get(cf.Header.Name); err == nil {
		return existing, nil
	}
	if err := lib.Register(cf); err != nil {
		return nil, err
	}
	return cf, nil
}
