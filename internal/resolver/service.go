// Package resolver joins endpoint records with controller analysis to
// produce resolved endpoints carrying an auth status, the effective filter
// list and any request-body schema.
package resolver

import (
	"github.com/railscope/railscope/internal/controllers"
	"github.com/railscope/railscope/internal/domain"
)

// Service performs the final join. The controller index must be fully built
// before Resolve runs.
type Service struct {
	analyzer *controllers.Service
	diags    domain.Diagnostics
}

// NewService creates a resolver over a frozen controller index.
func NewService(analyzer *controllers.Service) *Service {
	return &Service{analyzer: analyzer}
}

// Resolve joins every endpoint record in routing order. Records with
// identical (verb, path) collapse into the first-seen record with the union
// of their flags, and a diagnostic notes the collision.
func (s *Service) Resolve(records []domain.EndpointRecord) ([]domain.ResolvedEndpoint, []domain.Diagnostic) {
	type key struct{ verb, path string }
	seen := make(map[key]int)
	var resolved []domain.ResolvedEndpoint

	for _, record := range records {
		k := key{record.Verb, record.Path}
		if idx, dup := seen[k]; dup {
			resolved[idx].Flags = resolved[idx].Flags.Union(record.Flags)
			s.diags.Warnf(record.Source.File, record.Source.Line,
				"duplicate route %s %s collapsed", record.Verb, record.Path)
			continue
		}
		seen[k] = len(resolved)
		resolved = append(resolved, s.resolveOne(record))
	}
	return resolved, s.diags.All()
}

func (s *Service) resolveOne(record domain.EndpointRecord) domain.ResolvedEndpoint {
	endpoint := domain.ResolvedEndpoint{EndpointRecord: record}

	if record.Flags.EngineMount {
		// engine internals are opaque to static analysis
		endpoint.AuthStatus = domain.AuthUnknown
		return endpoint
	}

	if record.Controller == "" {
		endpoint.AuthStatus = domain.AuthUnknown
		endpoint.Flags.UnknownController = true
		s.diags.Warnf(record.Source.File, record.Source.Line,
			"route %s %s has no resolvable controller", record.Verb, record.Path)
		return endpoint
	}

	resolution := s.analyzer.Resolve(record.Controller, record.Action)
	if !resolution.Found {
		endpoint.AuthStatus = domain.AuthUnknown
		endpoint.Flags.UnknownController = true
		s.diags.Warnf(record.Source.File, record.Source.Line,
			"controller %s not found", record.Controller)
		return endpoint
	}

	endpoint.AuthStatus = resolution.Status
	endpoint.EffectiveFilters = resolution.EffectiveFilters
	endpoint.RequestSchema = resolution.Schema
	return endpoint
}
