// Package hardware tracks the physical devices available to a test run.
// An inventory file lists every attached board and sniffer; the
// registry hands them out one claimant at a time so two tests never
// talk to the same serial port.
package hardware

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Logger is the minimal logging surface this package needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type inventory struct {
	Modules []*Module `yaml:"modules"`
}

// Registry owns the module list and its claim state.
type Registry struct {
	mu      sync.Mutex
	modules []*Module
	logger  Logger
}

// NewRegistry returns an empty registry. Call Load to populate it.
func NewRegistry() *Registry {
	return &Registry{logger: noopLogger{}}
}

// SetLogger replaces the registry's logger. Nil restores the no-op logger.
func (r *Registry) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

// Load reads the YAML inventory at path and replaces the registry's
// module list. Claim state does not survive a reload.
func (r *Registry) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("hardware: read inventory %s: %w", path, err)
	}

	var inv inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return fmt.Errorf("hardware: parse inventory %s: %w", path, err)
	}

	seen := make(map[string]bool, len(inv.Modules))
	for _, m := range inv.Modules {
		if err := m.validate(); err != nil {
			return err
		}
		if seen[m.Name] {
			return fmt.Errorf("hardware: duplicate module name %q", m.Name)
		}
		seen[m.Name] = true
	}

	r.mu.Lock()
	r.modules = inv.Modules
	r.mu.Unlock()

	r.logger.Info("hardware inventory loaded", "path", path, "modules", len(inv.Modules))
	return nil
}

// Add registers a module at runtime. Used by tests and by hosts that
// discover boards dynamically.
func (r *Registry) Add(m *Module) error {
	if err := m.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.modules {
		if existing.Name == m.Name {
			return fmt.Errorf("hardware: duplicate module name %q", m.Name)
		}
	}
	r.modules = append(r.modules, m)
	return nil
}

// Claim finds an unclaimed module of the given model, marks it claimed
// and returns it.
func (r *Registry) Claim(model string) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.modules {
		if m.Model == model && !m.claimed {
			m.claimed = true
			r.logger.Debug("hardware module claimed", "name", m.Name, "model", m.Model, "port", m.Port)
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, model)
}

// ClaimByName claims the named module regardless of model.
func (r *Registry) ClaimByName(name string) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.modules {
		if m.Name != name {
			continue
		}
		if m.claimed {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyClaimed, name)
		}
		m.claimed = true
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownModule, name)
}

// ClaimSniffer claims an unclaimed packet sniffer, or returns nil when
// none is available. Missing sniffers are not an error; a run without
// packet capture is still a valid run.
func (r *Registry) ClaimSniffer() *Module {
	m, err := r.Claim(ModelNordicSniffer)
	if err != nil {
		r.logger.Warn("no thread sniffer available")
		return nil
	}
	return m
}

// Free releases a claimed module back to the pool.
func (r *Registry) Free(m *Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.modules {
		if existing != m {
			continue
		}
		if !m.claimed {
			return fmt.Errorf("%w: %s", ErrNotClaimed, m.Name)
		}
		m.claimed = false
		r.logger.Debug("hardware module freed", "name", m.Name)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownModule, m.Name)
}

// Modules returns a snapshot of the registered modules.
func (r *Registry) Modules() []*Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Module, len(r.modules))
	copy(out, r.modules)
	return out
}
