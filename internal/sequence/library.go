package sequence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Library holds the definitions available for compilation, keyed by name.
//
// All methods are thread-safe.
type Library struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{defs: make(map[string]Definition)}
}

// NewDefaultLibrary returns a library holding the built-in sequences.
func NewDefaultLibrary() *Library {
	lib := NewLibrary()
	for _, def := range Builtins() {
		if err := lib.Register(def); err != nil {
			panic(fmt.Sprintf("registering built-in sequence: %v", err))
		}
	}
	return lib
}

// Register adds def under its meta name.
//
// Returns:
//   - error: ErrInvalidDefinition for a nil definition or an unusable name,
//     ErrDuplicateSequence if the name is taken
func (l *Library) Register(def Definition) error {
	if def == nil {
		return fmt.Errorf("%w: nil definition", ErrInvalidDefinition)
	}
	name := def.Meta().Name
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: name %q must match %s", ErrInvalidDefinition, name, validName)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.defs[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSequence, name)
	}
	l.defs[name] = def
	return nil
}

// Get returns the definition registered under name.
func (l *Library) Get(name string) (Definition, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	def, ok := l.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSequence, name)
	}
	return def, nil
}

// Names returns the registered names in sorted order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.defs))
	for name := range l.defs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered definitions.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.defs)
}

// LoadDir registers every YAML cue file in dir. Files whose name starts
// with "_" and the files named in skip are ignored. A broken file does not
// stop the others from loading; all failures are returned joined.
//
// Returns:
//   - []string: Names registered by this call, in file order
//   - error: Joined per-file errors, or the directory read error
func (l *Library) LoadDir(dir string, skip ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading sequences directory: %w", err)
	}

	var loaded []string
	var errs []error
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "_") || slices.Contains(skip, name) {
			continue
		}
		if ext := filepath.Ext(name); ext != ".yaml" && ext != ".yml" {
			continue
		}

		cf, err := LoadCueFile(filepath.Join(dir, name))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := l.Register(cf); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		loaded = append(loaded, cf.Header.Name)
	}
	return loaded, errors.Join(errs...)
}
