// Package controllers analyzes Rails controller classes: it indexes them by
// fully qualified name, extracts before_action/skip_before_action filter
// declarations and strong-params schemas, and computes the effective filter
// set for a controller action across its inheritance chain.
package controllers

import (
	"sort"
	"strings"

	"github.com/railscope/railscope/internal/domain"
	"github.com/railscope/railscope/internal/rubyast"
	"github.com/railscope/railscope/internal/vfs"
)

// ControllersDir is the tree walked for controller classes.
const ControllersDir = "app/controllers"

// Service builds and queries the controller index. Build it fully (Scan or
// AddFile for every file) before resolving; the index is then treated as
// frozen.
type Service struct {
	fs    vfs.FS
	index map[string]*domain.ControllerSummary
	diags domain.Diagnostics
}

// NewService creates an analyzer over the given tree.
func NewService(fsys vfs.FS) *Service {
	return &Service{fs: fsys, index: make(map[string]*domain.ControllerSummary)}
}

// Scan parses every controller file under app/controllers and indexes the
// classes it finds. Returns accumulated diagnostics.
func (s *Service) Scan() []domain.Diagnostic {
	for _, path := range s.ControllerFiles() {
		src, err := s.fs.Read(path)
		if err != nil {
			s.diags.Warnf(path, 0, "cannot read controller file")
			continue
		}
		nodes, parseDiags := rubyast.Parse(path, src)
		s.diags.Extend(parseDiags)
		s.AddFile(path, nodes)
	}
	return s.diags.All()
}

// ControllerFiles lists the .rb files under app/controllers, sorted.
func (s *Service) ControllerFiles() []string {
	var files []string
	for _, path := range s.fs.List(ControllersDir) {
		if strings.HasSuffix(path, ".rb") {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files
}

// AddFile indexes the classes defined in one parsed controller file.
func (s *Service) AddFile(path string, nodes []*rubyast.Node) {
	s.walkDefs(nodes, nil, path)
}

// Summary returns the indexed summary for a class name, or nil.
func (s *Service) Summary(className string) *domain.ControllerSummary {
	return s.index[className]
}

// Summaries returns the frozen index.
func (s *Service) Summaries() map[string]*domain.ControllerSummary {
	return s.index
}

func (s *Service) walkDefs(nodes []*rubyast.Node, moduleStack []string, file string) {
	for _, n := range nodes {
		switch n.Kind {
		case rubyast.KindModuleDef:
			s.walkDefs(n.Body, append(moduleStack, n.Name), file)
		case rubyast.KindClassDef:
			className := strings.Join(append(append([]string{}, moduleStack...), n.Name), "::")
			summary := &domain.ControllerSummary{
				ClassName:    className,
				ParentClass:  n.Parent,
				ActionParams: make(map[string]domain.RequestSchema),
				Source:       domain.Source{File: file, Line: n.Line},
			}
			s.collectClassBody(n.Body, summary)
			s.index[className] = summary
			// nested classes are qualified by the enclosing class
			s.walkDefs(n.Body, append(moduleStack, n.Name), file)
		}
	}
}

// collectClassBody gathers filter declarations and strong-params methods at
// the top level of a class body.
func (s *Service) collectClassBody(body []*rubyast.Node, summary *domain.ControllerSummary) {
	for _, n := range body {
		switch n.Kind {
		case rubyast.KindCall:
			switch n.Method {
			case "before_action", "before_filter":
				summary.BeforeActions = append(summary.BeforeActions, s.filterDecls(n)...)
			case "skip_before_action", "skip_before_filter":
				summary.SkipBeforeActions = append(summary.SkipBeforeActions, s.filterDecls(n)...)
			}
		case rubyast.KindMethodDef:
			if strings.HasSuffix(n.Name, "_params") {
				if schema, ok := extractSchema(n); ok {
					summary.ActionParams[n.Name] = schema
				}
			}
		case rubyast.KindIf:
			s.collectClassBody(n.Then, summary)
			s.collectClassBody(n.Else, summary)
		}
	}
}

// filterDecls converts one before_action/skip_before_action call into filter
// declarations: one per positional symbol, or a synthetic "(block)" entry
// when the call takes a block instead of named filters. only: and except:
// are mutually exclusive; when both are present, except: is dropped.
func (s *Service) filterDecls(call *rubyast.Node) []domain.FilterDecl {
	var only, except []string
	if o := call.Kwarg("only"); o != nil {
		only = o.TextList()
	}
	if e := call.Kwarg("except"); e != nil {
		except = e.TextList()
	}
	if len(only) > 0 && len(except) > 0 {
		s.diags.Warnf(call.File, call.Line, "filter declares both only: and except:; except: dropped")
		except = nil
	}

	var decls []domain.FilterDecl
	for _, arg := range call.Args {
		if arg.Kind != rubyast.KindSymbol && arg.Kind != rubyast.KindString {
			// lambda/proc filters carry no resolvable name
			continue
		}
		if name := arg.Text(); name != "" {
			decls = append(decls, domain.FilterDecl{Name: name, Only: only, Except: except})
		}
	}
	if len(decls) == 0 && call.Block != nil {
		decls = append(decls, domain.FilterDecl{Name: domain.BlockFilterName, Only: only, Except: except})
	}
	return decls
}
