package controllers

import (
	"regexp"
	"strings"

	"github.com/railscope/railscope/internal/domain"
	"github.com/railscope/railscope/internal/rubyast"
)

var (
	requireKeyRe = regexp.MustCompile(`require\(\s*:(\w+)`)
	integerish   = regexp.MustCompile(`_id$|_count$|^(id|age|quantity|size|limit|offset)$`)
	booleanish   = regexp.MustCompile(`^(is_|has_|published|active|enabled)`)
)

// extractSchema pulls a request schema out of a *_params method body by
// locating the params.require(:key).permit(…) call shape.
func extractSchema(method *rubyast.Node) (domain.RequestSchema, bool) {
	permit := findPermitCall(method.Body)
	if permit == nil {
		return domain.RequestSchema{}, false
	}

	schema := domain.RequestSchema{}
	if m := requireKeyRe.FindStringSubmatch(permit.Receiver); m != nil {
		schema.RootKey = m[1]
	}

	for _, arg := range permit.Args {
		switch arg.Kind {
		case rubyast.KindSymbol, rubyast.KindString:
			schema.Fields = append(schema.Fields, field(arg.Text()))
		case rubyast.KindArray:
			for _, elem := range arg.Elems {
				if elem.Kind == rubyast.KindSymbol {
					schema.Fields = append(schema.Fields, field(elem.Text()))
				}
			}
		}
	}
	for _, kv := range permit.Kwargs {
		value := kv.Value
		if value == nil || value.Kind != rubyast.KindArray {
			continue
		}
		if len(value.Elems) == 0 {
			// `tags: []` permits a scalar list under the key
			schema.Fields = append(schema.Fields, field(kv.Key))
			continue
		}
		// `address: [:city, :zip]` is a nested permit; its leaves are fields
		for _, elem := range value.Elems {
			if elem.Kind == rubyast.KindSymbol {
				schema.Fields = append(schema.Fields, field(elem.Text()))
			}
		}
	}

	if len(schema.Fields) == 0 {
		return domain.RequestSchema{}, false
	}
	return schema, true
}

// findPermitCall searches statement bodies, including nested conditionals,
// for a `….permit(…)` call on a params chain.
func findPermitCall(body []*rubyast.Node) *rubyast.Node {
	for _, n := range body {
		switch n.Kind {
		case rubyast.KindCall:
			if n.Method == "permit" && strings.Contains(n.Receiver, "params") {
				return n
			}
		case rubyast.KindIf:
			if found := findPermitCall(n.Then); found != nil {
				return found
			}
			if found := findPermitCall(n.Else); found != nil {
				return found
			}
		case rubyast.KindAssign:
			if n.Value != nil && n.Value.Kind == rubyast.KindCall &&
				n.Value.Method == "permit" && strings.Contains(n.Value.Receiver, "params") {
				return n.Value
			}
		}
	}
	return nil
}

// field builds a schema field with its heuristic type hint.
func field(name string) domain.SchemaField {
	return domain.SchemaField{Name: name, Type: typeHint(name)}
}

func typeHint(name string) string {
	switch {
	case integerish.MatchString(name):
		return "integer"
	case booleanish.MatchString(name) || strings.HasSuffix(name, "?"):
		return "boolean"
	default:
		return "string"
	}
}
