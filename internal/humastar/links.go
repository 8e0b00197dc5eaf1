package humastar

import (
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
)

// Links holds RFC 8288 link headers derived from an OpenAPI document, keyed by
// operation path.
type Links struct {
	mu    sync.RWMutex
	paths map[string][]string
}

// AutoLinks walks the OpenAPI spec and generates hypermedia links between
// collections, their items and the /health entry point. Operations tagged
// skipTag (the Datastar UI) are left out. Call after all routes are
// registered.
func AutoLinks(api huma.API, skipTag string) *Links {
	oapi := api.OpenAPI()
	l := &Links{paths: map[string][]string{}}

	var collections, items []string
	for p, pi := range oapi.Paths {
		if slices.Contains(primaryTags(pi), skipTag) {
			continue
		}
		switch {
		case strings.HasSuffix(p, "}"):
			items = append(items, p)
		case !strings.Contains(p, "{"):
			collections = append(collections, p)
		}
	}
	slices.Sort(collections)
	slices.Sort(items)

	// Item → collection (rel="collection") + up (rel="up")
	for _, item := range items {
		parent := path.Dir(item)
		if _, ok := oapi.Paths[parent]; ok {
			l.add(item, parent, "collection")
			l.add(item, parent, "up")
		}
	}

	// Collection → item template (rel="item"), entry point (rel="up")
	for _, coll := range collections {
		for _, item := range items {
			if path.Dir(item) == coll {
				l.add(coll, item, "item")
			}
		}
		if coll != "/health" {
			l.add(coll, "/health", "up")
		}
	}

	// Entry point: /health links to every collection + IANA discovery rels
	for _, coll := range collections {
		if coll != "/health" {
			l.add("/health", coll, lastSegment(coll))
		}
	}
	l.add("/health", "/openapi.json", "describedby")
	l.add("/health", "/openapi.json", "service-desc")
	l.add("/health", "/docs", "service-doc")

	// Document the relationships in the OpenAPI document.
	for p, pi := range oapi.Paths {
		headers, ok := l.paths[p]
		if !ok {
			continue
		}
		for _, op := range operationsOf(pi) {
			if op != nil {
				injectResponseLinks(op, headers)
			}
		}
	}
	return l
}

// For returns the link headers of an operation path.
func (l *Links) For(opPath string) []string {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.paths[opPath])
}

// Root returns the links of the entry point, for use by non-Huma handlers.
func (l *Links) Root() []string {
	return l.For("/health")
}

// LinkTransformer returns a Huma Transformer that injects Link headers at
// runtime: the generated links, a self link on item endpoints, and the
// state-dependent actions of bodies implementing [Actor]. Transformers are
// configured before routes exist, so the links are fetched through get.
func LinkTransformer(get func() *Links) huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range get().For(op.Path) {
			ctx.AppendHeader("Link", link)
		}

		// Item endpoints get a self link with the resolved URL.
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		// State-dependent action links from response body.
		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}

		return v, nil
	}
}

// --- helpers ---

func (l *Links) add(from, to, rel string) {
	val := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
	if !slices.Contains(l.paths[from], val) {
		l.paths[from] = append(l.paths[from], val)
	}
}

func primaryTags(pi *huma.PathItem) []string {
	for _, op := range operationsOf(pi) {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func operationsOf(pi *huma.PathItem) []*huma.Operation {
	return []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete}
}

func lastSegment(p string) string {
	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	return parts[len(parts)-1]
}

// injectResponseLinks adds OpenAPI Link objects to the operation's success response.
func injectResponseLinks(op *huma.Operation, headers []string) {
	if op.Responses == nil {
		return
	}
	var resp *huma.Response
	for code, r := range op.Responses {
		if strings.HasPrefix(code, "2") {
			resp = r
			break
		}
	}
	if resp == nil {
		return
	}
	if resp.Links == nil {
		resp.Links = map[string]*huma.Link{}
	}
	for _, h := range headers {
		rel, href := parseLinkHeader(h)
		if rel == "" {
			continue
		}
		resp.Links[rel] = &huma.Link{
			OperationRef: href,
			Description:  fmt.Sprintf("Related: %s", rel),
		}
	}
}

func parseLinkHeader(h string) (rel, href string) {
	// Parse `<url>; rel="name"` format.
	parts := strings.SplitN(h, ";", 2)
	if len(parts) < 2 {
		return "", ""
	}
	href = strings.Trim(strings.TrimSpace(parts[0]), "<>")
	relPart := strings.TrimSpace(parts[1])
	if strings.HasPrefix(relPart, `rel="`) {
		rel = strings.Trim(relPart[4:], `"`)
	}
	return rel, href
}
