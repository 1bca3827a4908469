package reflow

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pageflow/pkg/document"
	"pageflow/pkg/html"
	"pageflow/pkg/layout"
	"pageflow/pkg/page"
	"pageflow/pkg/text"
)

const line = 19.2

func newTestEngine() *Engine {
	sizer := layout.WithImageSizer(func(string) (int, int, error) { return 100, 100, nil })
	return New(layout.NewEngine(text.FixedMeasurer{}, sizer))
}

func divs(from, to int) string {
	var sb strings.Builder
	for i := from; i < to; i++ {
		fmt.Fprintf(&sb, "<div>%d</div>", i)
	}
	return sb.String()
}

func parse(t *testing.T, markup string) *html.Node {
	t.Helper()
	root, err := html.ParseFragment(markup)
	require.NoError(t, err)
	return root
}

func TestTrimPreservesContent(t *testing.T) {
	e := newTestEngine()
	g := page.Geometry{ContentWidth: 200, ContentHeight: 50}
	original := divs(0, 6) + "tail text"
	root := parse(t, original)

	moved := e.Trim(root, g)
	require.NotEmpty(t, moved)
	assert.Equal(t, divs(0, 2), root.Serialize())
	assert.Equal(t, original, root.Serialize()+strings.Join(moved, ""))
	assert.LessOrEqual(t, e.Overflow(root, g), e.Tolerance())
}

func TestTrimNoopWhenFitting(t *testing.T) {
	e := newTestEngine()
	root := parse(t, divs(0, 2))
	assert.Empty(t, e.Trim(root, page.Geometry{ContentWidth: 200, ContentHeight: 100}))
	assert.Equal(t, divs(0, 2), root.Serialize())
}

func TestTrimSplitsLoneTextAtWordBoundary(t *testing.T) {
	e := newTestEngine()
	g := page.Geometry{ContentWidth: 60, ContentHeight: 20}
	root := parse(t, "aaa bbb ccc ddd")

	moved := e.Trim(root, g)
	assert.Equal(t, "aaa bbb ", root.Serialize())
	assert.Equal(t, []string{"ccc ddd"}, moved)
}

func TestTrimSplitsLoneTextWithoutSpaces(t *testing.T) {
	e := newTestEngine()
	g := page.Geometry{ContentWidth: 80, ContentHeight: 20}
	original := strings.Repeat("x", 25)
	root := parse(t, original)

	moved := e.Trim(root, g)
	assert.Equal(t, strings.Repeat("x", 10), root.Serialize())
	assert.Equal(t, original, root.Serialize()+strings.Join(moved, ""))
}

func TestTrimEscapesMovedText(t *testing.T) {
	e := newTestEngine()
	g := page.Geometry{ContentWidth: 60, ContentHeight: 20}
	original := "a&amp;b c&lt;d e&gt;f g"
	root := parse(t, original)

	moved := e.Trim(root, g)
	assert.Equal(t, original, root.Serialize()+strings.Join(moved, ""))
}

func TestTrimSplitsLoneContainer(t *testing.T) {
	e := newTestEngine()
	g := page.Geometry{ContentWidth: 200, ContentHeight: 40}
	root := parse(t, `<div class="c"><div>a</div><div>b</div><div>c</div></div>`)

	moved := e.Trim(root, g)
	assert.Equal(t, `<div class="c"><div>a</div><div>b</div></div>`, root.Serialize())
	assert.Equal(t, []string{`<div class="c"><div>c</div></div>`}, moved)
}

func TestTrimSplitsLoneParagraph(t *testing.T) {
	e := newTestEngine()
	g := page.Geometry{ContentWidth: 60, ContentHeight: 20}
	root := parse(t, `<div style="color: red">aaa bbb ccc</div>`)

	moved := e.Trim(root, g)
	assert.Equal(t, `<div style="color: red">aaa bbb </div>`, root.Serialize())
	assert.Equal(t, []string{`<div style="color: red">ccc</div>`}, moved)
}

func TestTrimKeepsIrreducibleNode(t *testing.T) {
	e := newTestEngine()
	g := page.Geometry{ContentWidth: 200, ContentHeight: 50}
	original := `<img src="x.png" style="width: 100px; height: 500px">`
	root := parse(t, original)

	assert.Empty(t, e.Trim(root, g))
	assert.Equal(t, original, root.Serialize())
}

func TestTrimMovesContentAfterIrreducibleNode(t *testing.T) {
	e := newTestEngine()
	g := page.Geometry{ContentWidth: 200, ContentHeight: 50}
	root := parse(t, `<hr style="height: 500px"><div>after</div>`)

	moved := e.Trim(root, g)
	assert.Equal(t, []string{"<div>after</div>"}, moved)
	assert.Equal(t, `<hr style="height: 500px">`, root.Serialize())
}

func perPage(doc *document.Document) int {
	g := doc.Settings.Geometry()
	return int(math.Floor((g.ContentHeight + DefaultTolerance) / line))
}

func TestRunCascadesAcrossPages(t *testing.T) {
	e := newTestEngine()
	doc := document.New("t")
	n := perPage(doc)
	original := divs(0, 3*n)
	require.NoError(t, doc.SetHTML(0, original))

	res := e.Run(doc, 0)
	assert.Equal(t, 3, doc.Len())
	assert.Equal(t, 2, res.PagesCreated)
	assert.Equal(t, []int{0, 1, 2}, res.Touched)
	assert.Equal(t, divs(0, n), doc.Pages[0].HTML)
	assert.Equal(t, divs(n, 2*n), doc.Pages[1].HTML)
	assert.Equal(t, original, strings.Join(doc.HTML(), ""))
	for _, p := range doc.Pages {
		assert.Equal(t, document.Normal, p.State)
	}
}

func TestRunPrependsToExistingPage(t *testing.T) {
	e := newTestEngine()
	doc := document.New("t")
	n := perPage(doc)
	require.NoError(t, doc.SetHTML(0, divs(0, n+1)))
	doc.Append("<div>next</div>")

	res := e.Run(doc, 0)
	assert.Zero(t, res.PagesCreated)
	assert.Equal(t, 2, doc.Len())
	assert.Equal(t, fmt.Sprintf("<div>%d</div><div>next</div>", n), doc.Pages[1].HTML)
}

func TestRunLeavesFittingPagesAlone(t *testing.T) {
	e := newTestEngine()
	doc := document.FromPages("t", []string{"<p>a</p>", "<p>b</p>"})
	res := e.Run(doc, 0)
	assert.Equal(t, Result{}, res)
	assert.Equal(t, []string{"<p>a</p>", "<p>b</p>"}, doc.HTML())
}

func TestRunLongTypedText(t *testing.T) {
	e := newTestEngine()
	doc := document.New("t")
	doc.Settings.PaperSize = page.A5
	typed := strings.Repeat("typing ", 2000/7) + "end"
	require.NoError(t, doc.SetHTML(0, typed))

	e.Run(doc, 0)
	assert.Greater(t, doc.Len(), 1)
	assert.Equal(t, typed, strings.Join(doc.HTML(), ""))
	for i := range doc.Pages {
		root := html.MustFragment(doc.Pages[i].HTML)
		assert.LessOrEqual(t, e.Overflow(root, doc.Settings.Geometry()), e.Tolerance(), "page %d", i)
	}
}

func TestRunStopsAtPageLimit(t *testing.T) {
	e := New(layout.NewEngine(text.FixedMeasurer{}), WithMaxPages(2))
	doc := document.New("t")
	n := perPage(doc)
	require.NoError(t, doc.SetHTML(0, divs(0, 4*n)))

	e.Run(doc, 0)
	assert.Equal(t, 2, doc.Len())
	assert.Equal(t, divs(0, 4*n), strings.Join(doc.HTML(), ""))
}

func TestRunMarksIrreducibleOverflow(t *testing.T) {
	e := newTestEngine()
	doc := document.New("t")
	tall := `<img src="x.png" style="width: 100px; height: 5000px">`
	require.NoError(t, doc.SetHTML(0, tall))

	res := e.Run(doc, 0)
	assert.Zero(t, res.Moved)
	assert.Equal(t, 1, doc.Len())
	assert.Equal(t, document.Overflowing, doc.Pages[0].State)

	require.NoError(t, doc.SetHTML(0, "<p>short</p>"))
	e.Run(doc, 0)
	assert.Equal(t, document.Normal, doc.Pages[0].State)
}

func TestRunClearsStateAfterMove(t *testing.T) {
	e := newTestEngine()
	doc := document.New("t")
	n := perPage(doc)
	require.NoError(t, doc.SetHTML(0, divs(0, n+3)))

	e.Run(doc, 0)
	require.Equal(t, 2, doc.Len())
	for i := range doc.Pages {
		assert.Equal(t, document.Normal, doc.Pages[i].State, "page %d", i)
	}
}
