// Package routes evaluates the Rails routing DSL against an accumulating
// lexical context and emits endpoint records. Evaluation is a pure function
// of the parsed route files: all failures surface as diagnostics, never as
// errors.
package routes

import (
	"github.com/railscope/railscope/internal/inflect"
	"github.com/railscope/railscope/internal/rubyast"
)

// Context is the accumulated lexical state at a point in the routing DSL.
// It is a value type: every block derives a copy, so state unwinds
// automatically when evaluation leaves the block.
type Context struct {
	// PathPrefix accumulates namespace/scope/resource path segments,
	// normalized with no trailing slash.
	PathPrefix string

	// ModulePrefix accumulates namespace/scope module segments in path form
	// ("api/v1"); it only participates in controller class derivation.
	ModulePrefix string

	// Controller is the controller binding in path form ("pages",
	// "api/v1/users"): either derived from an enclosing resource or set
	// explicitly by scope(controller:)/with_options(controller:).
	Controller string

	// ResourceName and ResourceParam describe the innermost enclosing
	// resources declaration; ResourceParam includes the leading colon.
	ResourceName  string
	ResourceParam string

	// ScopeType is "member" or "collection" inside the respective block.
	ScopeType string

	// Conditional is true inside any if branch whose condition is not
	// statically true.
	Conditional bool

	// Dynamic is true inside an iteration whose iterable cannot be resolved.
	Dynamic bool

	// ConstraintPresent is true inside a constraints block.
	ConstraintPresent bool

	// Concerns maps concern names to their stored block bodies. The map is
	// shared by reference across derived contexts; concern definitions are
	// visible to every context below the one that defined them.
	Concerns map[string][]*rubyast.Node

	// Defaults carries the keyword bag from enclosing with_options blocks.
	Defaults map[string]*rubyast.Node
}

// NewContext returns the root context for config/routes.rb.
func NewContext() Context {
	return Context{
		ResourceParam: ":id",
		Concerns:      make(map[string][]*rubyast.Node),
	}
}

// withDefaults derives a context whose Defaults bag includes the given
// keyword arguments.
func (c Context) withDefaults(kwargs []rubyast.KV) Context {
	derived := c
	derived.Defaults = make(map[string]*rubyast.Node, len(c.Defaults)+len(kwargs))
	for k, v := range c.Defaults {
		derived.Defaults[k] = v
	}
	for _, kv := range kwargs {
		derived.Defaults[kv.Key] = kv.Value
	}
	return derived
}

// option resolves a keyword option for a call: explicit keyword arguments
// win over the context's with_options defaults.
func (c Context) option(call *rubyast.Node, key string) *rubyast.Node {
	if v := call.Kwarg(key); v != nil {
		return v
	}
	return c.Defaults[key]
}

// controllerPath resolves a controller reference to full path form, applying
// the module prefix eagerly. A name already containing "/" is absolute and
// ignores the prefix. Context.Controller always holds the resolved form.
func (c Context) controllerPath(name string) string {
	if name == "" || containsSlash(name) || c.ModulePrefix == "" {
		return name
	}
	return c.ModulePrefix + "/" + name
}

// classFromPath renders the canonical class name for a controller in full
// path form: "api/v1/users" becomes "Api::V1::UsersController".
func classFromPath(path string) string {
	if path == "" {
		return ""
	}
	return inflect.Camelize(path) + "Controller"
}

func containsSlash(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			return true
		}
	}
	return false
}
