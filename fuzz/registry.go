// Package fuzz drives the transforms with random modules and configs and
// reports runs that break the pipeline's guarantees: a transform must not
// modify its input, must be deterministic, must produce a valid module and
// must only fail with a config or input error.
//
// Targets are registered explicitly in a Registry; DefaultRegistry holds
// one target per transform and one per backend pipeline.
package fuzz

import (
	"fmt"
	"sort"
)

// Target is one fuzzed operation. Run returns nil when the generated case
// passed or was rejected with an acceptable error.
type Target struct {
	Name string
	Run  func(g *Generator) error
}

// Registry holds targets by name.
type Registry struct {
	targets map[string]Target
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{targets: make(map[string]Target)}
}

// Register adds t. Names must be unique and non-empty.
func (r *Registry) Register(t Target) error {
	if t.Name == "" || t.Run == nil {
		return fmt.Errorf("fuzz: incomplete target %q", t.Name)
	}
	if _, dup := r.targets[t.Name]; dup {
		return fmt.Errorf("fuzz: target %q registered twice", t.Name)
	}
	r.targets[t.Name] = t
	return nil
}

// Lookup returns the target called name.
func (r *Registry) Lookup(name string) (Target, bool) {
	t, ok := r.targets[name]
	return t, ok
}

// Targets returns every target sorted by name.
func (r *Registry) Targets() []Target {
	out := make([]Target, 0, len(r.targets))
	for _, t := range r.targets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the sorted target names.
func (r *Registry) Names() []string {
	ts := r.Targets()
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Name
	}
	return names
}
