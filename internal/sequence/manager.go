package sequence

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result of compiling one sequence in a batch.
type Outcome struct {
	Name   string
	Result *Result
	Err    error
}

// ManagerConfig wires a Manager.
type ManagerConfig struct {
	Compiler *Compiler
	Library  *Library
	Manifest *Manifest

	// BaseDir resolves cue files named in the manifest.
	BaseDir string

	// Defaults sits beneath the manifest defaults (typically the configured
	// frame rate).
	Defaults Meta

	// Workers bounds parallel compiles. Values below 1 mean 1.
	Workers int

	Logger Logger
}

// Manager compiles the sequences selected by a manifest and remembers the
// latest outcome per sequence.
//
// All methods are thread-safe.
type Manager struct {
	compiler *Compiler
	library  *Library
	manifest *Manifest
	baseDir  string
	defaults Meta
	workers  int
	logger   Logger

	mu       sync.RWMutex
	outcomes map[string]Outcome
}

// NewManager creates a Manager. A nil Manifest compiles the whole library.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Manifest == nil {
		cfg.Manifest = &Manifest{}
	}
	if cfg.Library == nil {
		cfg.Library = NewLibrary()
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	return &Manager{
		compiler: cfg.Compiler,
		library:  cfg.Library,
		manifest: cfg.Manifest,
		baseDir:  cfg.BaseDir,
		defaults: cfg.Defaults,
		workers:  max(cfg.Workers, 1),
		logger:   cfg.Logger,
		outcomes: make(map[string]Outcome),
	}
}

// Library returns the manager's library.
func (m *Manager) Library() *Library {
	return m.library
}

// Compiler returns the manager's compiler.
func (m *Manager) Compiler() *Compiler {
	return m.compiler
}

// Plan resolves the manifest into jobs.
func (m *Manager) Plan() ([]Job, error) {
	return m.manifest.Plan(m.library, m.baseDir, m.defaults)
}

// CompileAll compiles every planned job with at most Workers running at
// once. One sequence failing never stops the others.
//
// Returns:
//   - []Outcome: One entry per planned job, in plan order
//   - error: Manifest resolution errors; per-sequence errors are in the outcomes
func (m *Manager) CompileAll(ctx context.Context) ([]Outcome, error) {
	jobs, planErr := m.Plan()
	if planErr != nil {
		m.logger.Warn("manifest has unresolved entries", "error", planErr)
	}

	outcomes := make([]Outcome, len(jobs))
	var g errgroup.Group
	g.SetLimit(m.workers)
	for i, job := range jobs {
		g.Go(func() error {
			res, err := m.compiler.Compile(ctx, job)
			outcomes[i] = Outcome{Name: job.Meta.Name, Result: res, Err: err}
			m.record(outcomes[i])
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	m.logger.Info("batch compile finished", "sequences", len(outcomes), "failed", failed)
	return outcomes, planErr
}

// Compile compiles the planned job called name.
func (m *Manager) Compile(ctx context.Context, name string) (*Result, error) {
	jobs, planErr := m.Plan()
	idx := slices.IndexFunc(jobs, func(j Job) bool { return j.Meta.Name == name })
	if idx < 0 {
		return nil, errors.Join(fmt.Errorf("%w: %s", ErrUnknownSequence, name), planErr)
	}

	res, err := m.compiler.Compile(ctx, jobs[idx])
	m.record(Outcome{Name: name, Result: res, Err: err})
	return res, err
}

func (m *Manager) record(o Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[o.Name] = o
}

// Outcome returns the latest outcome for name.
func (m *Manager) Outcome(name string) (Outcome, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.outcomes[name]
	return o, ok
}

// Outcomes returns the latest outcome of every compiled sequence, sorted by name.
func (m *Manager) Outcomes() []Outcome {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Outcome, 0, len(m.outcomes))
	for _, o := range m.outcomes {
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b Outcome) int { return strings.Compare(a.Name, b.Name) })
	return out
}
