// Package source turns listing sites into posting candidates. Each site is
// one adapter behind the Fetcher interface; the registry maps config names
// to constructors so the pipeline never branches on a source name.
package source

import (
	"context"
	"fmt"
	"sort"

	"applypilot-engine/internal/config"
	"applypilot-engine/internal/domain"
)

type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.Posting, error)
}

// Builder constructs an adapter for one configured source descriptor.
type Builder func(src config.Source, limiter *HostLimiter) Fetcher

type Registry struct {
	builders map[string]Builder
}

func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

func (r *Registry) Register(name string, b Builder) {
	r.builders[name] = b
}

func (r *Registry) Known() []string {
	names := make([]string, 0, len(r.builders))
	for n := range r.builders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build instantiates fetchers for the enabled sources, preserving config
// order (discovery order flows from here through the whole batch).
func (r *Registry) Build(sources []config.Source, limiter *HostLimiter) ([]Fetcher, error) {
	var out []Fetcher
	for _, s := range sources {
		if !s.Enabled {
			continue
		}
		b, ok := r.builders[s.Name]
		if !ok {
			return nil, fmt.Errorf("source: no adapter registered for %q", s.Name)
		}
		out = append(out, b(s, limiter))
	}
	return out, nil
}

// Default returns a registry with every built-in site adapter.
func Default() *Registry {
	r := NewRegistry()
	r.Register("linkedin", NewLinkedIn)
	r.Register("alljobs", NewAllJobs)
	r.Register("drushim", NewDrushim)
	r.Register("indeed", NewIndeed)
	r.Register("glassdoor", NewGlassdoor)
	return r
}
