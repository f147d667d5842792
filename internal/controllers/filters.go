package controllers

import (
	"regexp"
	"strings"

	"github.com/railscope/railscope/internal/domain"
	"github.com/railscope/railscope/internal/inflect"
)

// maxInheritanceDepth bounds the ancestor walk. Chasing further than three
// hops almost always means an unresolved or framework-internal chain, and the
// safe answer there is "unknown" rather than a wrong composition.
const maxInheritanceDepth = 3

// terminalParents are framework base classes: reaching one of them means the
// chain is fully resolved and holds no further user filters.
var terminalParents = map[string]bool{
	"ActionController::Base": true,
	"ActionController::API":  true,
}

// authFilterExact are filter names always treated as authentication.
var authFilterExact = map[string]bool{
	"authenticate_user!":    true,
	"authorize!":            true,
	"require_login":         true,
	"doorkeeper_authorize!": true,
	"authenticate!":         true,
	"login_required":        true,
	"require_user":          true,
}

var authFilterPattern = regexp.MustCompile(`(?i)auth|login|session|token|verify|signed[_ ]in`)

// IsAuthFilter reports whether a filter name looks like an authentication
// filter. Block filters never match.
func IsAuthFilter(name string) bool {
	if name == domain.BlockFilterName {
		return false
	}
	return authFilterExact[name] || authFilterPattern.MatchString(name)
}

// Resolution is the outcome of joining one controller action with the index.
type Resolution struct {
	Found            bool
	Status           domain.AuthStatus
	EffectiveFilters []string
	Schema           *domain.RequestSchema
}

// Resolve computes the effective filter set and auth status for one
// controller action.
func (s *Service) Resolve(className, action string) Resolution {
	target := s.index[className]
	if target == nil {
		return Resolution{Found: false, Status: domain.AuthUnknown}
	}

	chain, resolved := s.ancestorChain(target)

	// compose root-first: each ancestor adds its matching before_actions,
	// then removes its matching skip_before_actions
	var applied []string
	for i := len(chain) - 1; i >= 0; i-- {
		ancestor := chain[i]
		for _, decl := range ancestor.BeforeActions {
			if decl.AppliesTo(action) && !containsString(applied, decl.Name) {
				applied = append(applied, decl.Name)
			}
		}
		for _, skip := range ancestor.SkipBeforeActions {
			if skip.AppliesTo(action) {
				applied = removeString(applied, skip.Name)
			}
		}
	}

	res := Resolution{
		Found:            true,
		EffectiveFilters: applied,
		Schema:           s.schemaFor(target, className, action),
	}

	hasAuth := false
	hasBlock := false
	for _, name := range applied {
		if IsAuthFilter(name) {
			hasAuth = true
		}
		if name == domain.BlockFilterName {
			hasBlock = true
		}
	}

	switch {
	case hasAuth:
		res.Status = domain.AuthAuthenticated
	case !resolved || hasBlock:
		// unresolved ancestry or anonymous block filters: cannot prove the
		// action unprotected
		res.Status = domain.AuthUnknown
	default:
		res.Status = domain.AuthUnprotected
	}
	return res
}

// ancestorChain returns the summaries from the target class up through its
// ancestors, most-derived first, and whether the chain terminated cleanly
// (framework base, no parent, or ApplicationController root).
func (s *Service) ancestorChain(target *domain.ControllerSummary) ([]*domain.ControllerSummary, bool) {
	chain := []*domain.ControllerSummary{target}
	current := target

	for hop := 0; hop < maxInheritanceDepth; hop++ {
		parent := current.ParentClass
		if parent == "" || terminalParents[parent] {
			return chain, true
		}
		parentSummary := s.lookupParent(parent, current.ClassName)
		if parentSummary == nil {
			return chain, false
		}
		chain = append(chain, parentSummary)
		current = parentSummary
		// ApplicationController is the conventional user root; its own
		// declarations count, but the walk stops here
		if parentSummary.ClassName == "ApplicationController" {
			return chain, true
		}
	}

	// depth cap reached with ancestors remaining
	if current.ParentClass == "" || terminalParents[current.ParentClass] {
		return chain, true
	}
	return chain, false
}

// lookupParent resolves a parent class reference, trying the child's module
// scope first and the top level second, the way Ruby constant lookup does.
func (s *Service) lookupParent(parent, childClass string) *domain.ControllerSummary {
	if summary, ok := s.index[parent]; ok {
		return summary
	}
	if !strings.Contains(parent, "::") {
		if idx := strings.LastIndex(childClass, "::"); idx >= 0 {
			scoped := childClass[:idx] + "::" + parent
			if summary, ok := s.index[scoped]; ok {
				return summary
			}
		}
	}
	return nil
}

// schemaFor picks the request schema for an action. create/update use the
// conventional <resource>_params method; any action with an exactly matching
// <action>_params method uses that; a controller with a single schema falls
// back to it for create/update.
func (s *Service) schemaFor(summary *domain.ControllerSummary, className, action string) *domain.RequestSchema {
	if len(summary.ActionParams) == 0 {
		return nil
	}

	if schema, ok := summary.ActionParams[action+"_params"]; ok {
		return &schema
	}

	if action != "create" && action != "update" {
		return nil
	}

	resource := resourceName(className)
	if schema, ok := summary.ActionParams[resource+"_params"]; ok {
		return &schema
	}
	if len(summary.ActionParams) == 1 {
		for _, schema := range summary.ActionParams {
			return &schema
		}
	}
	return nil
}

// resourceName derives the singular resource for a controller class:
// "Api::V1::UsersController" yields "user".
func resourceName(className string) string {
	base := className
	if idx := strings.LastIndex(base, "::"); idx >= 0 {
		base = base[idx+2:]
	}
	base = strings.TrimSuffix(base, "Controller")
	return inflect.Singularize(inflect.Underscore(base))
}

func containsString(items []string, needle string) bool {
	for _, item := range items {
		if item == needle {
			return true
		}
	}
	return false
}

func removeString(items []string, needle string) []string {
	out := items[:0]
	for _, item := range items {
		if item != needle {
			out = append(out, item)
		}
	}
	return out
}
