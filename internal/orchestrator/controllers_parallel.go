package orchestrator

import (
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/railscope/railscope/internal/controllers"
	"github.com/railscope/railscope/internal/domain"
	"github.com/railscope/railscope/internal/rubyast"
	"github.com/railscope/railscope/internal/vfs"
)

// parsedFile pairs a controller file with its parsed nodes so indexing can
// happen in a deterministic order after the parallel parse.
type parsedFile struct {
	path  string
	nodes []*rubyast.Node
	diags []domain.Diagnostic
}

// scanControllersParallel parses controller files concurrently with an
// errgroup bounded by the number of CPUs, then indexes the results sorted by
// file path so the controller index is identical regardless of goroutine
// scheduling.
func (s *Service) scanControllersParallel(fsys vfs.FS, analyzer *controllers.Service) []domain.Diagnostic {
	files := analyzer.ControllerFiles()

	var (
		mu        sync.Mutex
		collected []parsedFile
		diags     domain.Diagnostics
	)

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())

	for _, path := range files {
		path := path
		g.Go(func() error {
			src, err := fsys.Read(path)
			if err != nil {
				mu.Lock()
				diags.Warnf(path, 0, "cannot read controller file")
				mu.Unlock()
				return nil
			}
			nodes, parseDiags := rubyast.Parse(path, src)
			mu.Lock()
			collected = append(collected, parsedFile{path: path, nodes: nodes, diags: parseDiags})
			mu.Unlock()
			return nil
		})
	}
	// workers only record diagnostics, never errors
	_ = g.Wait()

	sort.Slice(collected, func(i, j int) bool {
		return collected[i].path < collected[j].path
	})

	for _, pf := range collected {
		diags.Extend(pf.diags)
		analyzer.AddFile(pf.path, pf.nodes)
	}
	return diags.All()
}
