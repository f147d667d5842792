// Package orchestrator coordinates the discovery pipeline: route
// evaluation, controller analysis and endpoint resolution over a virtual
// filesystem.
package orchestrator

import (
	"errors"

	"github.com/railscope/railscope/internal/controllers"
	"github.com/railscope/railscope/internal/domain"
	"github.com/railscope/railscope/internal/resolver"
	"github.com/railscope/railscope/internal/routes"
	"github.com/railscope/railscope/internal/vfs"
)

// ErrNoRoutes is returned when the route root file is missing; it is the
// pipeline's only fatal condition.
var ErrNoRoutes = errors.New("config/routes.rb not found")

// Result is the complete output of one analysis run.
type Result struct {
	Endpoints   []domain.ResolvedEndpoint
	Diagnostics []domain.Diagnostic
}

// Service runs the pipeline.
type Service struct{}

// New creates an orchestrator.
func New() *Service {
	return &Service{}
}

// Analyze evaluates routes, analyzes controllers and resolves endpoints.
// Controller files are parsed concurrently; route evaluation is sequential
// because concern expansion depends on declaration order. The resolved
// endpoint sequence is deterministic for a given tree.
func (s *Service) Analyze(fsys vfs.FS) (*Result, error) {
	var diags domain.Diagnostics

	analyzer := controllers.NewService(fsys)
	controllerDiags := s.scanControllersParallel(fsys, analyzer)

	evaluator := routes.NewService(fsys)
	records, routeDiags := evaluator.Evaluate()
	diags.Extend(routeDiags)
	diags.Extend(controllerDiags)

	for _, d := range routeDiags {
		if d.Severity == domain.SeverityFatal {
			return &Result{Diagnostics: diags.All()}, ErrNoRoutes
		}
	}

	joiner := resolver.NewService(analyzer)
	endpoints, resolveDiags := joiner.Resolve(records)
	diags.Extend(resolveDiags)

	return &Result{Endpoints: endpoints, Diagnostics: diags.All()}, nil
}
