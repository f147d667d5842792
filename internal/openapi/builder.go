// Package openapi serializes resolved endpoints into an OpenAPI 3.0
// document. Auth status, filters, provenance and flags travel as x-
// extensions so the document doubles as an audit artifact.
package openapi

import (
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/railscope/railscope/internal/domain"
)

// Info parameterizes the document header.
type Info struct {
	Title        string
	Version      string
	RailsVersion string
}

// Build produces the OpenAPI document for the given endpoints, honoring the
// include-conditional and exclude-engines options. Path items are keyed by
// their OpenAPI path in the document model, so the serialized document lists
// them in key order, not in routing order.
func Build(endpoints []domain.ResolvedEndpoint, info Info, opts domain.Options) *openapi3.T {
	if info.Title == "" {
		info.Title = "Discovered API"
	}
	if info.Version == "" {
		info.Version = "1.0.0"
	}

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   info.Title,
			Version: info.Version,
		},
		Paths: openapi3.NewPaths(),
	}
	if info.RailsVersion != "" {
		doc.Info.Extensions = map[string]interface{}{
			"x-rails-version": info.RailsVersion,
		}
	}

	for _, endpoint := range endpoints {
		if endpoint.Flags.Conditional && !opts.IncludeConditional {
			continue
		}
		if endpoint.Flags.EngineMount {
			if !opts.ExcludeEngines {
				addEngineMount(doc, endpoint)
			}
			continue
		}
		addOperation(doc, endpoint)
	}
	return doc
}

func addOperation(doc *openapi3.T, endpoint domain.ResolvedEndpoint) {
	path := ToOpenAPIPath(endpoint.Path)

	item := doc.Paths.Value(path)
	if item == nil {
		item = &openapi3.PathItem{}
		doc.Paths.Set(path, item)
	}

	op := openapi3.NewOperation()
	op.OperationID = OperationID(endpoint.Path, endpoint.Action)
	if tag := pathTag(endpoint.Path); tag != "" {
		op.Tags = []string{tag}
	}
	op.Responses = openapi3.NewResponses(openapi3.WithStatus(200,
		&openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("OK")}))

	for _, param := range domain.PathParams(endpoint.Path) {
		op.AddParameter(openapi3.NewPathParameter(param).WithSchema(openapi3.NewStringSchema()))
	}

	if schema := endpoint.RequestSchema; schema != nil {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().WithJSONSchema(bodySchema(schema)),
		}
	}

	op.Extensions = operationExtensions(endpoint)
	item.SetOperation(strings.ToUpper(endpoint.Verb), op)
}

// addEngineMount records a mounted engine as a path item without operations;
// its routes are opaque to static analysis.
func addEngineMount(doc *openapi3.T, endpoint domain.ResolvedEndpoint) {
	path := ToOpenAPIPath(endpoint.Path)
	item := doc.Paths.Value(path)
	if item == nil {
		item = &openapi3.PathItem{}
		doc.Paths.Set(path, item)
	}
	item.Extensions = map[string]interface{}{
		"x-engine":      endpoint.Controller,
		"x-auth-status": string(domain.AuthUnknown),
		"x-source":      endpoint.Source.File,
		"x-flags":       endpoint.Flags.List(),
	}
}

func operationExtensions(endpoint domain.ResolvedEndpoint) map[string]interface{} {
	ext := map[string]interface{}{
		"x-controller":  endpoint.Controller,
		"x-action":      endpoint.Action,
		"x-auth-status": authStatusLabel(endpoint.AuthStatus),
		"x-source":      endpoint.Source.File,
	}
	if len(endpoint.EffectiveFilters) > 0 {
		ext["x-auth-filters"] = endpoint.EffectiveFilters
	}
	if !endpoint.Flags.Empty() {
		ext["x-flags"] = endpoint.Flags.List()
	}
	if endpoint.Flags.Conditional {
		ext["x-conditional"] = true
	}
	return ext
}

// authStatusLabel upper-cases unprotected so it stands out in the document.
func authStatusLabel(status domain.AuthStatus) string {
	if status == domain.AuthUnprotected {
		return "UNPROTECTED"
	}
	return string(status)
}

func bodySchema(schema *domain.RequestSchema) *openapi3.Schema {
	object := openapi3.NewObjectSchema()
	object.Properties = make(openapi3.Schemas, len(schema.Fields))
	for _, f := range schema.Fields {
		var prop *openapi3.Schema
		switch f.Type {
		case "integer":
			prop = openapi3.NewIntegerSchema()
		case "boolean":
			prop = openapi3.NewBoolSchema()
		default:
			prop = openapi3.NewStringSchema()
		}
		object.Properties[f.Name] = openapi3.NewSchemaRef("", prop)
	}
	return object
}

var railsParamRe = regexp.MustCompile(`:(\w+)`)

// ToOpenAPIPath converts Rails ":name" placeholders to OpenAPI "{name}".
func ToOpenAPIPath(path string) string {
	return railsParamRe.ReplaceAllString(path, `{$1}`)
}

var (
	slugInvalid  = regexp.MustCompile(`[^a-z0-9]+`)
	slugCollapse = regexp.MustCompile(`_+`)
)

// OperationID slugs "path_action": lowercased, non-alphanumerics collapsed
// to single underscores.
func OperationID(path, action string) string {
	slug := strings.ToLower(path + "_" + action)
	slug = slugInvalid.ReplaceAllString(slug, "_")
	slug = slugCollapse.ReplaceAllString(slug, "_")
	return strings.Trim(slug, "_")
}

// pathTag groups operations by the first two path segments.
func pathTag(path string) string {
	var segments []string
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg == "" || strings.HasPrefix(seg, ":") {
			continue
		}
		segments = append(segments, seg)
		if len(segments) == 2 {
			break
		}
	}
	return strings.Join(segments, "/")
}
