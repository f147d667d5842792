// Package domain contains the shared data model for endpoint discovery:
// endpoint records produced by route evaluation, controller summaries
// produced by controller analysis, resolved endpoints, and diagnostics.
package domain

import "strings"

// HTTP verbs a route can bind. VerbAny is used only for mounted engines.
const (
	VerbGet     = "GET"
	VerbPost    = "POST"
	VerbPut     = "PUT"
	VerbPatch   = "PATCH"
	VerbDelete  = "DELETE"
	VerbHead    = "HEAD"
	VerbOptions = "OPTIONS"
	VerbAny     = "*"
)

// StandardVerbs is the full verb set `match via: :all` expands to.
var StandardVerbs = []string{
	VerbGet, VerbPost, VerbPut, VerbPatch, VerbDelete, VerbHead, VerbOptions,
}

// AuthStatus classifies how an endpoint is protected.
type AuthStatus string

const (
	// AuthAuthenticated means the effective filter chain contains at least
	// one recognized authentication filter.
	AuthAuthenticated AuthStatus = "authenticated"

	// AuthUnprotected means the controller was found, its ancestry fully
	// resolved, and no authentication filter applies to the action.
	AuthUnprotected AuthStatus = "unprotected"

	// AuthUnknown is the safe fallback: unresolved controller or ancestry,
	// block filters, or mounted engines.
	AuthUnknown AuthStatus = "unknown"
)

// Flags mark properties of an endpoint that affect reporting and output.
type Flags struct {
	// Conditional is set for routes declared inside an `if` branch whose
	// condition is not statically true.
	Conditional bool

	// Dynamic is set for routes declared inside an iteration whose iterable
	// cannot be resolved statically.
	Dynamic bool

	// EngineMount is set for `mount Engine => path` declarations.
	EngineMount bool

	// ConstraintPresent is set for routes declared inside a constraints block.
	ConstraintPresent bool

	// UnknownController is set when the controller class could not be located.
	UnknownController bool
}

// Union merges two flag sets.
func (f Flags) Union(other Flags) Flags {
	return Flags{
		Conditional:       f.Conditional || other.Conditional,
		Dynamic:           f.Dynamic || other.Dynamic,
		EngineMount:       f.EngineMount || other.EngineMount,
		ConstraintPresent: f.ConstraintPresent || other.ConstraintPresent,
		UnknownController: f.UnknownController || other.UnknownController,
	}
}

// List returns the set names of the flags, in a fixed order.
func (f Flags) List() []string {
	var out []string
	if f.Conditional {
		out = append(out, "conditional")
	}
	if f.Dynamic {
		out = append(out, "dynamic")
	}
	if f.EngineMount {
		out = append(out, "engine_mount")
	}
	if f.ConstraintPresent {
		out = append(out, "constraint_present")
	}
	if f.UnknownController {
		out = append(out, "unknown_controller")
	}
	return out
}

// Empty reports whether no flag is set.
func (f Flags) Empty() bool {
	return f == Flags{}
}

// Source points at the declaration that produced a record.
type Source struct {
	File string
	Line int
}

// EndpointRecord is one route emitted by the route evaluator, before it is
// joined with controller analysis.
type EndpointRecord struct {
	// Verb is one of the seven standard verbs, or VerbAny for engine mounts.
	Verb string

	// Path in Rails form, e.g. "/api/v1/users/:id".
	Path string

	// Controller is the canonical class name, e.g. "Api::V1::UsersController".
	// For engine mounts it holds the stringified mount target.
	Controller string

	// Action name, "(engine)" for mounts.
	Action string

	Source Source
	Flags  Flags

	// RawOptions preserves keyword options from the declaration for OpenAPI
	// extensions (e.g. redirect targets, defaults).
	RawOptions map[string]string
}

// FilterDecl is a single before_action / skip_before_action declaration.
// Only and Except are mutually exclusive; when a declaration carries both,
// Except is dropped and a diagnostic recorded.
type FilterDecl struct {
	Name   string
	Only   []string
	Except []string
}

// AppliesTo reports whether the declaration matches the given action,
// honoring the only:/except: predicates.
func (d FilterDecl) AppliesTo(action string) bool {
	if len(d.Only) > 0 {
		for _, a := range d.Only {
			if a == action {
				return true
			}
		}
		return false
	}
	for _, a := range d.Except {
		if a == action {
			return false
		}
	}
	return true
}

// BlockFilterName is the synthetic name recorded for `before_action do ... end`.
const BlockFilterName = "(block)"

// SchemaField is a single permitted request-body field with its type hint.
type SchemaField struct {
	Name string
	Type string
}

// RequestSchema is the field set extracted from a strong-params method.
type RequestSchema struct {
	RootKey string
	Fields  []SchemaField
}

// ControllerSummary is the analyzed form of one controller class.
type ControllerSummary struct {
	// ClassName is fully qualified by nesting modules, e.g.
	// "Api::V1::UsersController".
	ClassName string

	// ParentClass as written in the source, e.g. "ApplicationController" or
	// "ActionController::API". Empty when the class has no superclass.
	ParentClass string

	BeforeActions     []FilterDecl
	SkipBeforeActions []FilterDecl

	// ActionParams maps strong-params method names ("user_params") to their
	// extracted schemas.
	ActionParams map[string]RequestSchema

	Source Source
}

// ResolvedEndpoint is the final join of an endpoint record with controller
// analysis.
type ResolvedEndpoint struct {
	EndpointRecord

	AuthStatus       AuthStatus
	EffectiveFilters []string
	RequestSchema    *RequestSchema
}

// ControllerAction renders "Controller#action" for display.
func (e ResolvedEndpoint) ControllerAction() string {
	if e.Flags.EngineMount {
		return e.Controller
	}
	ctrl := e.Controller
	if ctrl == "" {
		ctrl = "?"
	}
	action := e.Action
	if action == "" {
		action = "?"
	}
	return ctrl + "#" + action
}

// Options control which endpoints make it into the OpenAPI document and the
// console report.
type Options struct {
	// IncludeConditional includes env-conditional routes in the OpenAPI
	// output. They are always discovered and reported.
	IncludeConditional bool

	// ExcludeEngines drops engine-mount endpoints from the OpenAPI output.
	ExcludeEngines bool

	// ShowAll shows authenticated endpoints in the console table instead of
	// only unprotected/unknown ones.
	ShowAll bool
}

// JoinPath joins two path fragments, normalizing slashes. The result always
// begins with "/" and has no trailing slash unless it is exactly "/".
func JoinPath(prefix, suffix string) string {
	suffix = strings.TrimLeft(suffix, "/")
	if suffix == "" {
		if prefix == "" {
			return "/"
		}
		return prefix
	}
	joined := strings.TrimRight(prefix, "/") + "/" + suffix
	for strings.Contains(joined, "//") {
		joined = strings.ReplaceAll(joined, "//", "/")
	}
	if !strings.HasPrefix(joined, "/") {
		joined = "/" + joined
	}
	if len(joined) > 1 {
		joined = strings.TrimRight(joined, "/")
	}
	return joined
}

// PathParams extracts the :name placeholders from a Rails-form path.
func PathParams(path string) []string {
	var params []string
	for _, seg := range strings.Split(path, "/") {
		if strings.HasPrefix(seg, ":") && len(seg) > 1 {
			params = append(params, seg[1:])
		}
	}
	return params
}
