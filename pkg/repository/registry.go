package repository

import (
	"sync"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
)

// Registry holds the repositories of a backend. Classes that were never
// registered get a repository with the default options on first use.
type Registry struct {
	mu       sync.RWMutex
	backend  domain.Backend
	defaults []Option
	repos    map[string]*Repository
}

// NewRegistry creates a registry whose repositories share backend and defaults
func NewRegistry(backend domain.Backend, defaults ...Option) *Registry {
	return &Registry{
		backend:  backend,
		defaults: defaults,
		repos:    make(map[string]*Repository),
	}
}

// Register creates (or replaces) the repository of className
func (reg *Registry) Register(className string, opts ...Option) *Repository {
	all := append(append([]Option(nil), reg.defaults...), opts...)
	repo := New(reg.backend, className, all...)

	reg.mu.Lock()
	reg.repos[className] = repo
	reg.mu.Unlock()
	return repo
}

// Repository returns the repository of className. ok is false for an empty
// class name.
func (reg *Registry) Repository(className string) (*Repository, bool) {
	if className == "" {
		return nil, false
	}
	reg.mu.RLock()
	repo, exists := reg.repos[className]
	reg.mu.RUnlock()
	if exists {
		return repo, true
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if repo, exists := reg.repos[className]; exists {
		return repo, true
	}
	repo = New(reg.backend, className, reg.defaults...)
	reg.repos[className] = repo
	return repo, true
}

// Classes returns the names of the registered classes
func (reg *Registry) Classes() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	names := make([]string, 0, len(reg.repos))
	for name := range reg.repos {
		names = append(names, name)
	}
	return names
}
