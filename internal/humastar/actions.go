package humastar

import (
	"fmt"
	"net/url"
)

// Action is a state-dependent hypermedia action link. Response bodies
// implement Actor to emit them as RFC 8288 Link headers:
//
//	</api/v1/regions/alps.json/load>; rel="load"; method="POST"; title="Load region"
type Action struct {
	Rel    string // IANA rel or custom (e.g., "load")
	Href   string // target URL
	Method string // HTTP method: POST, PUT, DELETE, etc.
	Title  string // optional human-readable label
}

// Actor is implemented by response bodies that provide state-dependent actions.
type Actor interface {
	Actions() []Action
}

// LinkHeader formats the action as an RFC 8288 Link header value
// with method and title extension parameters.
func (a Action) LinkHeader() string {
	h := fmt.Sprintf(`<%s>; rel="%s"`, a.Href, a.Rel)
	if a.Method != "" {
		h += fmt.Sprintf(`; method="%s"`, a.Method)
	}
	if a.Title != "" {
		h += fmt.Sprintf(`; title="%s"`, a.Title)
	}
	return h
}

// ActionDef is a reusable action template. Pattern holds a single %s verb
// for the path-escaped resource name.
type ActionDef struct {
	Rel     string
	Pattern string // e.g. "/api/v1/regions/%s/load"
	Method  string
	Title   string
}

// ActionsFor generates concrete actions from defs for one resource.
func ActionsFor(name string, defs []ActionDef) []Action {
	actions := make([]Action, len(defs))
	for i, d := range defs {
		actions[i] = Action{
			Rel:    d.Rel,
			Href:   fmt.Sprintf(d.Pattern, url.PathEscape(name)),
			Method: d.Method,
			Title:  d.Title,
		}
	}
	return actions
}
