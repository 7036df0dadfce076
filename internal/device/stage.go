package device

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Stage is the YAML stage description: fixture types and the ordered list
// of devices patched into the universe.
//
//	universe:
//	  size: 512
//	fixtures:
//	  rgb:
//	    attributes:
//	      - {name: red, type: onebyte}
//	      - {name: green, type: onebyte}
//	      - {name: blue, type: onebyte}
//	devices:
//	  - {name: par, fixture: rgb, count: 4}   # par1..par4
//	  - {name: spot, fixture: rgb}
type Stage struct {
	Universe UniverseConfig           `yaml:"universe"`
	Fixtures map[string]FixtureConfig `yaml:"fixtures"`
	Devices  []DeviceConfig           `yaml:"devices"`
}

// UniverseConfig sizes the universe.
type UniverseConfig struct {
	Size int `yaml:"size"`
}

// FixtureConfig is a reusable attribute layout.
type FixtureConfig struct {
	Attributes []AttributeSchema `yaml:"attributes"`
}

// DeviceConfig places one device, or Count numbered devices, of a fixture type.
type DeviceConfig struct {
	Name    string `yaml:"name"`
	Fixture string `yaml:"fixture"`
	Count   int    `yaml:"count,omitempty"`
}

// LoadStage reads a stage description file and registers its devices into
// a new registry, in file order.
//
// Parameters:
//   - path: Path to the stage YAML file
//
// Returns:
//   - *Registry: Populated registry
//   - error: Wrapping ErrConfiguration on any read, parse or placement failure
func LoadStage(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading stage file: %w", ErrConfiguration, err)
	}
	return ParseStage(data)
}

// ParseStage is LoadStage for in-memory YAML.
func ParseStage(data []byte) (*Registry, error) {
	var st Stage
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: parsing stage: %w", ErrConfiguration, err)
	}
	return st.Build()
}

// Build registers the stage's devices into a new registry.
func (s *Stage) Build() (*Registry, error) {
	reg := NewRegistry(s.Universe.Size)

	for i, dc := range s.Devices {
		fx, ok := s.Fixtures[dc.Fixture]
		if !ok {
			return nil, fmt.Errorf("%w: devices[%d] %q uses undefined fixture %q", ErrConfiguration, i, dc.Name, dc.Fixture)
		}

		names := []string{dc.Name}
		if dc.Count > 0 {
			names = names[:0]
			for n := 1; n <= dc.Count; n++ {
				names = append(names, fmt.Sprintf("%s%d", dc.Name, n))
			}
		}

		for _, name := range names {
			if _, err := reg.RegisterFixture(name, dc.Fixture, fx.Attributes); err != nil {
				return nil, fmt.Errorf("%w: devices[%d]: %w", ErrConfiguration, i, err)
			}
		}
	}
	return reg, nil
}
