package vcs

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sergeknystautas/cisource/internal/fsys"
	"github.com/sergeknystautas/cisource/internal/process"
)

// Deps are the collaborators shared by every provider.
type Deps struct {
	Executor process.Executor
	FS       fsys.FileSystem
}

// Factory constructs a provider for one project.
type Factory func(opts Options, deps Deps) (Provider, error)

// Registry maps source control type tags ("svn", "git") to factories. New
// backends are added by registering them; lookups never change.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a backend. Registering the same tag twice is an error.
func (r *Registry) Register(tag string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[tag]; ok {
		return fmt.Errorf("source control type %q already registered", tag)
	}
	r.factories[tag] = f
	return nil
}

// Has reports whether tag is registered.
func (r *Registry) Has(tag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[tag]
	return ok
}

// Types returns the registered tags, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// New constructs the provider registered under tag. Missing deps default to
// the real process executor and filesystem.
func (r *Registry) New(tag string, opts Options, deps Deps) (Provider, error) {
	r.mu.RLock()
	f, ok := r.factories[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownBackend, tag, r.Types())
	}
	if deps.Executor == nil {
		deps.Executor = process.NewExec()
	}
	if deps.FS == nil {
		deps.FS = fsys.OS{}
	}
	return f(opts, deps)
}
