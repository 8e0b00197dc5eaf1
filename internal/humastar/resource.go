// resource.go: Reusable action definitions.
//
// ActionDef is a URL pattern template for actions
// (e.g. "/api/v1/sessions/%s/select/%s"). ActionsFor fills the pattern for a
// concrete resource, connecting resource.go → actions.go → Link headers.
package humastar

import "fmt"

// ActionDef is a reusable action template.
// Pattern holds one %s verb per argument passed to ActionsFor.
type ActionDef struct {
	Rel     string // custom rel (e.g., "collapse", "select")
	Pattern string // URL pattern with %s placeholders
	Method  string // HTTP method: POST, PUT, DELETE, etc.
	Title   string // human-readable label
	Schema  string // optional JSON Schema URL for the request body
}

// ActionsFor generates concrete Action values from ActionDefs for the given
// path arguments.
func ActionsFor(defs []ActionDef, args ...any) []Action {
	actions := make([]Action, len(defs))
	for i, d := range defs {
		actions[i] = d.For(args...)
	}
	return actions
}

// For fills the definition with path arguments.
func (d ActionDef) For(args ...any) Action {
	return Action{
		Rel:    d.Rel,
		Href:   fmt.Sprintf(d.Pattern, args...),
		Method: d.Method,
		Title:  d.Title,
		Schema: d.Schema,
	}
}
