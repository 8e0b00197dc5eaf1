package humastar

import (
	"context"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{"lon": 13.4, "name": "osm", "zero": 0}`))
	require.NoError(t, err)
	assert.Equal(t, 13.4, s.Float("lon"))
	assert.Zero(t, s.Float("name"), "non-numbers read as zero")
	assert.True(t, s.Has("zero"))
	assert.False(t, s.Has("missing"))

	empty, err := ParseSignals(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = (&SignalsInput{RawBody: []byte("{")}).MustParse()
	assert.Error(t, err)
}

func TestActionLinkHeader(t *testing.T) {
	defs := []ActionDef{
		{Rel: "select", Pattern: "/api/v1/sessions/%s/select/%s", Method: http.MethodPost, Title: `Show "Topo"`},
	}
	actions := ActionsFor(defs, "abc", "topo")
	require.Len(t, actions, 1)
	assert.Equal(t,
		`</api/v1/sessions/abc/select/topo>; rel="select"; method="POST"; title="Show \"Topo\""`,
		actions[0].LinkHeader())
}

type itemBody struct {
	ID string `json:"id"`
}

func (itemBody) Actions() []Action {
	return []Action{{Rel: "expand", Href: "/things/1/expand", Method: http.MethodPost}}
}

func TestAutoLinksAndTransformer(t *testing.T) {
	var links *Links
	config := huma.DefaultConfig("test", "1.0.0")
	config.CreateHooks = nil
	config.Transformers = []huma.Transformer{LinkTransformer(func() *Links { return links })}
	_, api := humatest.New(t, config)

	huma.Get(api, "/health", func(ctx context.Context, _ *struct{}) (*struct{ Body string }, error) {
		return &struct{ Body string }{Body: "ok"}, nil
	})
	huma.Get(api, "/things", func(ctx context.Context, _ *struct{}) (*struct{ Body []string }, error) {
		return &struct{ Body []string }{Body: []string{}}, nil
	})
	huma.Get(api, "/things/{id}", func(ctx context.Context, in *struct {
		ID string `path:"id"`
	}) (*struct{ Body itemBody }, error) {
		return &struct{ Body itemBody }{Body: itemBody{ID: in.ID}}, nil
	})
	huma.Post(api, "/things/{id}/expand", func(ctx context.Context, _ *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		return &struct{}{}, nil
	})
	huma.Get(api, "/ui/page", func(ctx context.Context, _ *struct{}) (*struct{ Body string }, error) {
		return &struct{ Body string }{Body: "page"}, nil
	}, huma.OperationTags("ui"))

	links = AutoLinks(api, "ui")

	assert.Contains(t, links.Root(), `</things>; rel="things"`)
	assert.NotContains(t, links.Root(), `</ui/page>; rel="page"`)
	assert.Contains(t, links.For("/things"), `</things/{id}>; rel="item"`)
	assert.Empty(t, links.For("/things/{id}/expand"))

	resp := api.Get("/things/1")
	require.Equal(t, http.StatusOK, resp.Code)
	got := resp.Header().Values("Link")
	assert.Contains(t, got, `</things>; rel="collection"`)
	assert.Contains(t, got, `</things/1>; rel="self"`)
	assert.Contains(t, got, `</things/1/expand>; rel="expand"; method="POST"`)
}
