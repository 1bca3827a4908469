package view

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pageflow/pkg/document"
	"pageflow/pkg/html"
	"pageflow/pkg/page"
	"pageflow/pkg/surface"
)

func TestStaticIsIdempotent(t *testing.T) {
	fragment := `<p contenteditable="true" spellcheck="false">Hello <img data-selected="true" src="a.png"></p>`
	ann := []document.Annotation{{ID: "a1", ImageData: "data:image/png;base64,AA", PageID: "p", X: 100, Y: 100, Width: 200, Height: 100}}
	first := Static(fragment, page.DefaultSettings(), ann)
	second := Static(fragment, page.DefaultSettings(), ann)
	assert.Equal(t, first, second)
}

func TestStaticStripsEditingArtifacts(t *testing.T) {
	out := Static(`<p contenteditable="true" spellcheck="false">Hi <img data-selected="true" src="a.png"></p>`, page.DefaultSettings(), nil)
	assert.NotContains(t, out, "contenteditable")
	assert.NotContains(t, out, "spellcheck")
	assert.NotContains(t, out, "data-selected")
	assert.Contains(t, out, `<p>Hi <img src="a.png"></p>`)
}

func TestStaticGeometry(t *testing.T) {
	s := page.DefaultSettings()
	s.PaperSize = page.Letter
	s.Orientation = page.Landscape
	root := html.MustFragment(Static("x", s, nil))
	pageEl := root.FirstChild()
	require.NotNil(t, pageEl)
	assert.Equal(t, PageClass, pageEl.Attributes["class"])
	assert.Contains(t, pageEl.Attributes["style"], "width: 1056px")
	assert.Contains(t, pageEl.Attributes["style"], "height: 816px")

	body := pageEl.FirstChild()
	assert.Equal(t, BodyClass, body.Attributes["class"])
	assert.Equal(t, "x", body.TextContent())
}

func TestStaticAnnotations(t *testing.T) {
	ann := []document.Annotation{{ID: "a1", ImageData: "data:x", X: 10, Y: 20.5, Width: 200, Height: 100}}
	root := html.MustFragment(Static("", page.DefaultSettings(), ann))
	img := root.FindByAttribute("data-annotation", "a1")
	require.NotNil(t, img)
	assert.Equal(t, "data:x", img.Attributes["src"])
	assert.Equal(t, "position: absolute; left: 10px; top: 20.5px; width: 200px; height: 100px", img.Attributes["style"])
}

func TestRenderExactlyOneVisible(t *testing.T) {
	doc := document.FromPages("t", []string{"<p>a</p>", "<p>b</p>"})
	for _, mode := range []Mode{Screen, Print} {
		views := Render(doc, nil, mode)
		require.Len(t, views, 2)
		for _, v := range views {
			assert.NotEqual(t, v.EditableVisible, v.StaticVisible, mode.String())
		}
	}
	views := Render(doc, nil, Print)
	assert.Equal(t, views[1].Static, views[1].Visible())
	views = Render(doc, nil, Screen)
	assert.Equal(t, views[1].Editable, views[1].Visible())
}

func TestRenderUsesLiveSurface(t *testing.T) {
	doc := document.FromPages("t", []string{"<p>stored</p>"})
	s := surface.New(doc.Pages[0].ID, "<p>stored</p>", true, nil)
	s.Input(func(root *html.Node) { root.FirstChild().FirstChild().Text = "typed" })

	views := Render(doc, map[string]*surface.Surface{doc.Pages[0].ID: s}, Screen)
	assert.Contains(t, views[0].Editable, "typed")
	assert.Contains(t, views[0].Editable, `contenteditable="true"`)
	assert.Contains(t, views[0].Static, "stored")
	assert.True(t, strings.HasPrefix(views[0].Editable, `<div class="page" data-page-index="0"`))
}

func TestRenderCarriesPageState(t *testing.T) {
	doc := document.FromPages("t", []string{"<p>a</p>", "<p>b</p>"})
	doc.Pages[1].State = document.Overflowing

	views := Render(doc, nil, Screen)
	assert.Equal(t, document.Normal, views[0].State)
	assert.Equal(t, document.Overflowing, views[1].State)

	data, err := json.Marshal(views[1])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"overflowing"`)
}
