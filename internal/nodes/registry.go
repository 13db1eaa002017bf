package nodes

import (
	"fmt"
	"sort"
	"sync"
)

// Registered node types.
const (
	TypeSearch        = "jira-search"
	TypeUpdate        = "jira-issue-update"
	TypeGet           = "jira-issue-get"
	TypeCreate        = "jira-issue-create"
	TypeCommentAdd    = "jira-issue-comment-add"
	TypeCommentUpdate = "jira-issue-comment-update"
)

// Factory creates a node instance.
type Factory func(deps Deps, settings Settings) (Node, error)

// Registry maps node type names to factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name. Names can only be registered once.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("node type name and factory are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("node type %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// New creates a node of the named type.
func (r *Registry) New(name string, deps Deps, settings Settings) (Node, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown node type %q", name)
	}
	return factory(deps, settings)
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterAll registers every Jira node type.
func RegisterAll(r *Registry) error {
	builtins := []struct {
		name    string
		factory Factory
	}{
		{TypeSearch, NewSearchNode},
		{TypeUpdate, NewUpdateNode},
		{TypeGet, NewGetNode},
		{TypeCreate, NewCreateNode},
		{TypeCommentAdd, NewCommentAddNode},
		{TypeCommentUpdate, NewCommentUpdateNode},
	}
	for _, b := range builtins {
		if err := r.Register(b.name, b.factory); err != nil {
			return err
		}
	}
	return nil
}

// DefaultRegistry returns a registry holding every Jira node type.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	if err := RegisterAll(r); err != nil {
		panic(err)
	}
	return r
}
