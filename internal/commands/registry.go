package commands

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry maps command names and their aliases to implementations.
// Commands attach themselves from init, so the set is fixed before
// dispatch starts.
type Registry struct {
	mu      sync.RWMutex
	primary map[string]Command // keyed by Command.Name
	alias   map[string]string  // alias -> primary name
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		primary: make(map[string]Command),
		alias:   make(map[string]string),
	}
}

// Register adds c under its name and every alias. A name or alias that is
// already taken rejects the whole registration.
func (r *Registry) Register(c Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if r.taken(name) {
		return fmt.Errorf("command already registered: %s", name)
	}
	for _, a := range c.Aliases() {
		if r.taken(a) {
			return fmt.Errorf("command alias already registered: %s", a)
		}
	}

	r.primary[name] = c
	for _, a := range c.Aliases() {
		r.alias[a] = name
	}
	return nil
}

// taken reports whether name is in use as a primary name or an alias.
// Callers hold the lock.
func (r *Registry) taken(name string) bool {
	if _, ok := r.primary[name]; ok {
		return true
	}
	_, ok := r.alias[name]
	return ok
}

// Find resolves a command by name or alias.
func (r *Registry) Find(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if primary, ok := r.alias[name]; ok {
		name = primary
	}
	cmd, ok := r.primary[name]
	return cmd, ok
}

// All returns the registered commands sorted by name, for help output.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmds := make([]Command, 0, len(r.primary))
	for _, c := range r.primary {
		cmds = append(cmds, c)
	}
	slices.SortFunc(cmds, func(a, b Command) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return cmds
}

// DefaultRegistry is the registry commands attach to from init.
var DefaultRegistry = NewRegistry()

// Register adds a command to the default registry, panicking on conflicts
// since those are programming errors.
func Register(c Command) {
	if err := DefaultRegistry.Register(c); err != nil {
		panic(err)
	}
}
