package routes

import (
	"strings"

	"github.com/railscope/railscope/internal/domain"
	"github.com/railscope/railscope/internal/inflect"
	"github.com/railscope/railscope/internal/rubyast"
	"github.com/railscope/railscope/internal/vfs"
)

// RootFile is the route tree root. Its absence is the pipeline's only fatal
// condition.
const RootFile = "config/routes.rb"

// restActions is the standard REST expansion of `resources`, in routing
// order. `resource` (singular) drops index.
var restActions = []string{"index", "new", "create", "show", "edit", "update", "destroy"}

var restVerbs = map[string]string{
	"index":   domain.VerbGet,
	"new":     domain.VerbGet,
	"create":  domain.VerbPost,
	"show":    domain.VerbGet,
	"edit":    domain.VerbGet,
	"update":  domain.VerbPatch,
	"destroy": domain.VerbDelete,
}

var verbMethods = map[string]string{
	"get":     domain.VerbGet,
	"post":    domain.VerbPost,
	"put":     domain.VerbPut,
	"patch":   domain.VerbPatch,
	"delete":  domain.VerbDelete,
	"head":    domain.VerbHead,
	"options": domain.VerbOptions,
}

// Service evaluates route files into endpoint records.
type Service struct {
	fs        vfs.FS
	endpoints []domain.EndpointRecord
	diags     domain.Diagnostics
	visited   map[string]bool
}

// NewService creates a route evaluator over the given tree.
func NewService(fsys vfs.FS) *Service {
	return &Service{fs: fsys, visited: make(map[string]bool)}
}

// Evaluate walks config/routes.rb and every fragment it draws, returning the
// discovered endpoint records in routing order plus diagnostics. A missing
// root file yields an empty record list and a fatal diagnostic; every other
// failure is a warn diagnostic.
func (s *Service) Evaluate() ([]domain.EndpointRecord, []domain.Diagnostic) {
	src, err := s.fs.Read(RootFile)
	if err != nil {
		s.diags.Fatalf(RootFile, 0, "route root file not found")
		return nil, s.diags.All()
	}

	nodes, parseDiags := rubyast.Parse(RootFile, src)
	s.diags.Extend(parseDiags)

	ctx := NewContext()
	if body := findDrawBlock(nodes); body != nil {
		s.walk(body, ctx)
	} else {
		// tolerate fragments written without the draw wrapper
		s.walk(nodes, ctx)
	}
	return s.endpoints, s.diags.All()
}

// findDrawBlock locates the Rails.application.routes.draw block body.
func findDrawBlock(nodes []*rubyast.Node) []*rubyast.Node {
	for _, n := range nodes {
		if n.Kind == rubyast.KindCall && n.Method == "draw" && n.Block != nil {
			return n.Block.Body
		}
	}
	return nil
}

func (s *Service) walk(nodes []*rubyast.Node, ctx Context) {
	for _, n := range nodes {
		s.eval(n, ctx)
	}
}

func (s *Service) eval(node *rubyast.Node, ctx Context) {
	switch node.Kind {
	case rubyast.KindIf:
		s.evalIf(node, ctx)
	case rubyast.KindCall:
		s.evalCall(node, ctx)
	case rubyast.KindUnknown:
		s.diags.Warnf(node.File, node.Line, "unrecognized route syntax: %s", node.Raw)
	default:
		// assignments and stray literals carry no routing meaning
	}
}

// evalIf evaluates a conditional. A literally-true condition evaluates the
// then branch unchanged; anything else marks both branches conditional and
// evaluates both.
func (s *Service) evalIf(node *rubyast.Node, ctx Context) {
	if strings.TrimSpace(node.Cond) == "true" {
		s.walk(node.Then, ctx)
		return
	}
	branch := ctx
	branch.Conditional = true
	s.walk(node.Then, branch)
	s.walk(node.Else, branch)
}

func (s *Service) evalCall(call *rubyast.Node, ctx Context) {
	if call.Method == "each" {
		s.evalDynamic(call, ctx)
		return
	}

	if verb, ok := verbMethods[call.Method]; ok {
		s.handleVerb(verb, call, ctx)
		return
	}

	switch call.Method {
	case "root":
		s.handleRoot(call, ctx)
	case "match":
		s.handleMatch(call, ctx)
	case "resources":
		s.handleResources(call, ctx, false)
	case "resource":
		s.handleResources(call, ctx, true)
	case "namespace":
		s.handleNamespace(call, ctx)
	case "scope":
		s.handleScope(call, ctx)
	case "member":
		s.handleScoped(call, ctx, "member")
	case "collection":
		s.handleScoped(call, ctx, "collection")
	case "concern":
		s.handleConcernDef(call, ctx)
	case "concerns":
		s.handleConcernsUse(call, ctx)
	case "mount":
		s.handleMount(call, ctx)
	case "draw":
		s.handleDraw(call, ctx)
	case "with_options":
		s.handleWithOptions(call, ctx)
	case "constraints":
		s.handleConstraints(call, ctx)
	case "defaults":
		s.handleDefaults(call, ctx)
	case "direct", "resolve":
		// custom URL helpers; no endpoint semantics
	default:
		s.diags.Warnf(call.File, call.Line, "unrecognized route DSL call %q", call.Method)
	}
}

// evalDynamic handles `X.each do |…| … end`: the iterable cannot be resolved
// statically, so the body is evaluated once with the dynamic flag set.
func (s *Service) evalDynamic(call *rubyast.Node, ctx Context) {
	if call.Block == nil {
		return
	}
	derived := ctx
	derived.Dynamic = true
	s.walk(call.Block.Body, derived)
}

func (s *Service) handleVerb(verb string, call *rubyast.Node, ctx Context) {
	if len(call.Args) == 0 {
		s.diags.Warnf(call.File, call.Line, "%s route without a path", strings.ToLower(verb))
		return
	}
	name := call.Args[0].Text()
	if name == "" {
		s.diags.Warnf(call.File, call.Line, "%s route with unresolvable path", strings.ToLower(verb))
		return
	}

	controller, action := s.resolveTarget(name, call, ctx)
	path := s.verbPath(name, ctx)
	s.emit(verb, path, controller, action, call, ctx, domain.Flags{})
}

// verbPath builds the path for a verb route, honoring member/collection
// scope inside a resources block.
func (s *Service) verbPath(name string, ctx Context) string {
	base := ctx.PathPrefix
	if ctx.ScopeType == "member" {
		base = base + "/" + ctx.ResourceParam
	}
	return domain.JoinPath(base, name)
}

// resolveTarget derives (controller path, action) for a verb or match route
// from its to:/controller:/action: options, falling back to the context
// binding and the path stem.
func (s *Service) resolveTarget(pathArg string, call *rubyast.Node, ctx Context) (string, string) {
	controller := ctx.Controller
	action := ""

	if to := ctx.option(call, "to"); to != nil {
		switch to.Kind {
		case rubyast.KindString, rubyast.KindSymbol:
			target := to.Text()
			if strings.Contains(target, "#") {
				parts := strings.SplitN(target, "#", 2)
				return ctx.controllerPath(parts[0]), parts[1]
			}
			if target != "" {
				action = target
			}
		default:
			// redirect(...) or rack app targets resolve to no action
		}
	}

	if strings.Contains(pathArg, "#") {
		parts := strings.SplitN(pathArg, "#", 2)
		return ctx.controllerPath(parts[0]), parts[1]
	}

	if c := ctx.option(call, "controller"); c != nil {
		controller = ctx.controllerPath(c.Text())
	}
	if a := ctx.option(call, "action"); a != nil {
		action = a.Text()
	}

	if action == "" {
		segments := strings.Split(strings.Trim(pathArg, "/"), "/")
		last := segments[len(segments)-1]
		if !strings.HasPrefix(last, ":") {
			action = last
		}
	}
	return controller, action
}

func (s *Service) handleRoot(call *rubyast.Node, ctx Context) {
	controller, action := "", "root"

	target := ""
	if to := ctx.option(call, "to"); to != nil {
		target = to.Text()
	} else if len(call.Args) > 0 {
		target = call.Args[0].Text()
	}
	if strings.Contains(target, "#") {
		parts := strings.SplitN(target, "#", 2)
		controller = ctx.controllerPath(parts[0])
		action = parts[1]
	}

	path := "/"
	if ctx.PathPrefix != "" {
		path = ctx.PathPrefix
	}
	s.emit(domain.VerbGet, path, controller, action, call, ctx, domain.Flags{})
}

func (s *Service) handleMatch(call *rubyast.Node, ctx Context) {
	if len(call.Args) == 0 {
		s.diags.Warnf(call.File, call.Line, "match without a path")
		return
	}
	name := call.Args[0].Text()

	verbs := domain.StandardVerbs
	if via := ctx.option(call, "via"); via != nil {
		listed := via.TextList()
		if !(len(listed) == 1 && listed[0] == "all") {
			verbs = make([]string, 0, len(listed))
			for _, v := range listed {
				verbs = append(verbs, strings.ToUpper(v))
			}
		}
	}

	controller, action := s.resolveTarget(name, call, ctx)
	path := s.verbPath(name, ctx)
	for _, verb := range verbs {
		s.emit(verb, path, controller, action, call, ctx, domain.Flags{})
	}
}

func (s *Service) handleResources(call *rubyast.Node, ctx Context, singular bool) {
	if len(call.Args) == 0 {
		s.diags.Warnf(call.File, call.Line, "resources without a name")
		return
	}
	name := call.Args[0].Text()
	if name == "" {
		s.diags.Warnf(call.File, call.Line, "resources with unresolvable name")
		return
	}

	pathName := name
	if p := ctx.option(call, "path"); p != nil {
		pathName = p.Text()
	}

	ctrlName := name
	if singular {
		ctrlName = inflect.Pluralize(name)
	}
	if c := ctx.option(call, "controller"); c != nil {
		ctrlName = c.Text()
	}

	param := "id"
	if p := ctx.option(call, "param"); p != nil {
		param = p.Text()
	}

	actions := s.filterActions(call, singular)

	derived := ctx
	derived.ScopeType = ""
	if !singular && ctx.ResourceName != "" {
		// nested resources gain the parent's :id segment, named after the
		// singular parent: /posts/:post_id/comments
		parent := inflect.Singularize(ctx.ResourceName) + "_" + strings.TrimPrefix(ctx.ResourceParam, ":")
		base := ctx.PathPrefix + "/:" + parent
		derived.PathPrefix = domain.JoinPath(base, pathName)
	} else {
		derived.PathPrefix = domain.JoinPath(ctx.PathPrefix, pathName)
	}
	derived.Controller = ctx.controllerPath(ctrlName)
	derived.ResourceName = name
	derived.ResourceParam = ":" + param

	for _, action := range actions {
		verb := restVerbs[action]
		path := resourceActionPath(action, derived, singular)
		s.emit(verb, path, derived.Controller, action, call, derived, domain.Flags{})
	}

	if concerns := ctx.option(call, "concerns"); concerns != nil {
		for _, concernName := range concerns.TextList() {
			s.replayConcern(concernName, call, derived)
		}
	}

	if call.Block != nil {
		s.walk(call.Block.Body, derived)
	}
}

// filterActions applies only:/except: to the REST action set. When a call
// carries both, only: wins and except: is dropped with a diagnostic.
func (s *Service) filterActions(call *rubyast.Node, singular bool) []string {
	all := restActions
	if singular {
		all = []string{"show", "new", "create", "edit", "update", "destroy"}
	}

	only := call.Kwarg("only")
	except := call.Kwarg("except")
	if only != nil && except != nil {
		s.diags.Warnf(call.File, call.Line, "both only: and except: given; except: dropped")
		except = nil
	}

	if only != nil {
		allowed := toSet(only.TextList())
		return filter(all, func(a string) bool { return allowed[a] })
	}
	if except != nil {
		blocked := toSet(except.TextList())
		return filter(all, func(a string) bool { return !blocked[a] })
	}
	return all
}

// resourceActionPath builds the URL for one REST action.
func resourceActionPath(action string, ctx Context, singular bool) string {
	base := ctx.PathPrefix
	if !singular {
		switch action {
		case "show", "update", "destroy":
			return base + "/" + ctx.ResourceParam
		case "edit":
			return base + "/" + ctx.ResourceParam + "/edit"
		}
	} else if action == "edit" {
		return base + "/edit"
	}
	if action == "new" {
		return base + "/new"
	}
	return base
}

func (s *Service) handleNamespace(call *rubyast.Node, ctx Context) {
	if len(call.Args) == 0 {
		return
	}
	name := call.Args[0].Text()

	pathPart := name
	if p := call.Kwarg("path"); p != nil {
		pathPart = p.Text()
	}
	modulePart := name
	if m := call.Kwarg("module"); m != nil {
		modulePart = m.Text()
	}

	derived := ctx
	if pathPart != "" {
		derived.PathPrefix = domain.JoinPath(ctx.PathPrefix, pathPart)
	}
	derived.ModulePrefix = joinModule(ctx.ModulePrefix, modulePart)
	derived.Controller = ""

	if call.Block != nil {
		s.walk(call.Block.Body, derived)
	}
}

func (s *Service) handleScope(call *rubyast.Node, ctx Context) {
	derived := ctx

	if len(call.Args) > 0 {
		if bare := call.Args[0].Text(); bare != "" {
			derived.PathPrefix = domain.JoinPath(derived.PathPrefix, bare)
		}
	}
	if p := call.Kwarg("path"); p != nil {
		derived.PathPrefix = domain.JoinPath(ctx.PathPrefix, p.Text())
	}
	if m := call.Kwarg("module"); m != nil {
		derived.ModulePrefix = joinModule(ctx.ModulePrefix, m.Text())
	}
	if c := call.Kwarg("controller"); c != nil {
		derived.Controller = derived.controllerPath(c.Text())
	}

	if call.Block != nil {
		s.walk(call.Block.Body, derived)
	}
}

func (s *Service) handleScoped(call *rubyast.Node, ctx Context, scopeType string) {
	derived := ctx
	derived.ScopeType = scopeType
	if call.Block != nil {
		s.walk(call.Block.Body, derived)
	}
}

func (s *Service) handleConcernDef(call *rubyast.Node, ctx Context) {
	if len(call.Args) == 0 || call.Block == nil {
		return
	}
	name := call.Args[0].Text()
	if name != "" {
		ctx.Concerns[name] = call.Block.Body
	}
}

func (s *Service) handleConcernsUse(call *rubyast.Node, ctx Context) {
	for _, arg := range call.Args {
		for _, name := range arg.TextList() {
			s.replayConcern(name, call, ctx)
		}
	}
}

// replayConcern re-evaluates a stored concern body in the given context.
func (s *Service) replayConcern(name string, call *rubyast.Node, ctx Context) {
	body, ok := ctx.Concerns[name]
	if !ok {
		s.diags.Warnf(call.File, call.Line, "concern %q referenced but not defined", name)
		return
	}
	s.walk(body, ctx)
}

func (s *Service) handleMount(call *rubyast.Node, ctx Context) {
	engine := ""
	mountPath := ""

	for _, kv := range call.Kwargs {
		if kv.Key == "at" {
			mountPath = kv.Value.Text()
		} else if len(kv.Key) > 0 && kv.Key[0] >= 'A' && kv.Key[0] <= 'Z' {
			// `mount Engine => '/path'` hashrocket form
			engine = kv.Key
			if mountPath == "" {
				mountPath = kv.Value.Text()
			}
		}
	}
	for _, arg := range call.Args {
		if engine == "" {
			engine = arg.Text()
		}
	}

	if engine == "" || mountPath == "" {
		s.diags.Warnf(call.File, call.Line, "mount with unresolvable engine or path")
		return
	}

	path := domain.JoinPath(ctx.PathPrefix, mountPath)
	record := domain.EndpointRecord{
		Verb:       domain.VerbAny,
		Path:       path,
		Controller: engine,
		Action:     "(engine)",
		Source:     domain.Source{File: call.File, Line: call.Line},
		Flags: domain.Flags{
			Conditional:       ctx.Conditional,
			Dynamic:           ctx.Dynamic,
			ConstraintPresent: ctx.ConstraintPresent,
			EngineMount:       true,
		},
		RawOptions: rawOptions(call),
	}
	s.endpoints = append(s.endpoints, record)
}

func (s *Service) handleDraw(call *rubyast.Node, ctx Context) {
	if len(call.Args) == 0 {
		return
	}
	name := call.Args[0].Text()
	if name == "" {
		return
	}

	candidates := []string{
		"config/routes/" + name + ".rb",
		"config/routes/" + name + ".routes.rb",
	}
	for _, candidate := range candidates {
		if s.visited[candidate] {
			s.diags.Warnf(call.File, call.Line, "draw cycle on %s skipped", candidate)
			return
		}
		src, err := s.fs.Read(candidate)
		if err != nil {
			continue
		}
		s.visited[candidate] = true
		nodes, parseDiags := rubyast.Parse(candidate, src)
		s.diags.Extend(parseDiags)
		if body := findDrawBlock(nodes); body != nil {
			s.walk(body, ctx)
		} else {
			s.walk(nodes, ctx)
		}
		return
	}
	s.diags.Warnf(call.File, call.Line, "draw(:%s) referenced but no route fragment found", name)
}

func (s *Service) handleWithOptions(call *rubyast.Node, ctx Context) {
	derived := ctx.withDefaults(call.Kwargs)

	if c := call.Kwarg("controller"); c != nil {
		derived.Controller = ctx.controllerPath(c.Text())
	}
	if p := call.Kwarg("path"); p != nil {
		derived.PathPrefix = domain.JoinPath(ctx.PathPrefix, p.Text())
	}
	if m := call.Kwarg("module"); m != nil {
		derived.ModulePrefix = joinModule(ctx.ModulePrefix, m.Text())
	}

	if call.Block != nil {
		s.walk(call.Block.Body, derived)
	}
}

func (s *Service) handleConstraints(call *rubyast.Node, ctx Context) {
	derived := ctx
	derived.ConstraintPresent = true
	if call.Block != nil {
		s.walk(call.Block.Body, derived)
	}
}

func (s *Service) handleDefaults(call *rubyast.Node, ctx Context) {
	derived := ctx.withDefaults(call.Kwargs)
	if call.Block != nil {
		s.walk(call.Block.Body, derived)
	}
}

// emit records one endpoint under the current context.
func (s *Service) emit(verb, path, controllerPath, action string, call *rubyast.Node, ctx Context, extra domain.Flags) {
	if path == "" {
		path = "/"
	}
	flags := domain.Flags{
		Conditional:       ctx.Conditional,
		Dynamic:           ctx.Dynamic,
		ConstraintPresent: ctx.ConstraintPresent,
	}.Union(extra)

	s.endpoints = append(s.endpoints, domain.EndpointRecord{
		Verb:       verb,
		Path:       path,
		Controller: classFromPath(controllerPath),
		Action:     action,
		Source:     domain.Source{File: call.File, Line: call.Line},
		Flags:      flags,
		RawOptions: rawOptions(call),
	})
}

// rawOptions preserves the call's keyword options as plain strings for
// OpenAPI extensions.
func rawOptions(call *rubyast.Node) map[string]string {
	if len(call.Kwargs) == 0 {
		return nil
	}
	opts := make(map[string]string, len(call.Kwargs))
	for _, kv := range call.Kwargs {
		if kv.Value == nil {
			continue
		}
		if kv.Value.Kind == rubyast.KindCall && kv.Value.Method == "redirect" {
			opts["redirect"] = strings.Join(textsOf(kv.Value.Args), ",")
			continue
		}
		if list := kv.Value.TextList(); len(list) > 0 {
			opts[kv.Key] = strings.Join(list, ",")
		}
	}
	return opts
}

func textsOf(nodes []*rubyast.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if t := n.Text(); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func joinModule(prefix, module string) string {
	module = strings.Trim(module, "/")
	if module == "" {
		return prefix
	}
	if prefix == "" {
		return module
	}
	return prefix + "/" + module
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

func filter(items []string, keep func(string) bool) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
