package editor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pageflow/pkg/command"
	"pageflow/pkg/document"
	"pageflow/pkg/html"
	"pageflow/pkg/layout"
	"pageflow/pkg/notify"
	"pageflow/pkg/overlay"
	"pageflow/pkg/page"
	"pageflow/pkg/text"
	"pageflow/pkg/view"
)

func fixedSizer(string) (int, int, error) { return 200, 100, nil }

func newEditor(t *testing.T, pages []string, opts ...Option) *Editor {
	t.Helper()
	doc := document.FromPages("Test", pages)
	eng := layout.NewEngine(text.FixedMeasurer{}, layout.WithImageSizer(fixedSizer))
	return New(doc, append([]Option{WithLayout(eng)}, opts...)...)
}

func joinedText(doc *document.Document) string {
	var sb strings.Builder
	for i := range doc.Pages {
		sb.WriteString(doc.PageText(i))
	}
	return sb.String()
}

func countNotices(f *notify.Feed, msg string) int {
	n := 0
	for _, x := range f.Active() {
		if x.Message == msg {
			n++
		}
	}
	return n
}

func TestTypingFlowsOntoNewPages(t *testing.T) {
	ed := newEditor(t, nil)
	settings := page.DefaultSettings()
	settings.PaperSize = page.A5
	require.NoError(t, ed.SetSettings(settings))

	words := []string{"lorem", "ipsum", "dolor", "sit", "amet", "consectetur", "adipiscing", "elit"}
	var typed strings.Builder
	for i := 0; typed.Len() < 2000; i++ {
		typed.WriteString(words[i%len(words)])
		typed.WriteByte(' ')
	}
	input := typed.String()[:2000]

	for i := 0; i < len(input); i += 20 {
		require.NoError(t, ed.Type(input[i:min(i+20, len(input))]))
		ed.Render()
	}

	doc := ed.Document()
	assert.Greater(t, doc.Len(), 1)
	assert.Equal(t, input, joinedText(doc))
	assert.Equal(t, doc.Len()-1, ed.Caret().Page, "caret follows the text onto the last page")
	assert.Equal(t, 1, countNotices(ed.Notices(), NewPageNotice), "announced once per session")
}

func TestAddPageKeepsContent(t *testing.T) {
	ed := newEditor(t, []string{"", "<p>two</p>", "<p>three</p>"})
	before := ed.Document().HTML()

	_, err := ed.Dispatch("Insert/Add page", nil)
	require.NoError(t, err)

	doc := ed.Document()
	require.Equal(t, 4, doc.Len())
	assert.Equal(t, before, doc.HTML()[:3])
	assert.True(t, doc.IsBlank(3))
	assert.Equal(t, 0, ed.Caret().Page, "add page leaves focus alone")
}

func TestResizeImageWithAspectLock(t *testing.T) {
	ed := newEditor(t, []string{`<p><img data-anchor="img1" src="a.png"></p>`})
	require.True(t, ed.SelectAnchor("img1"))

	require.NoError(t, ed.BeginGesture(overlay.GestureResize, overlay.HandleSE, overlay.Point{X: 300, Y: 200}))
	_, err := ed.MoveGesture(overlay.Point{X: 350, Y: 200})
	require.NoError(t, err)
	assert.NotContains(t, ed.Document().Pages[0].HTML, "width", "nothing is committed mid-gesture")

	final, err := ed.EndGesture(overlay.Point{X: 400, Y: 200})
	require.NoError(t, err)
	assert.InDelta(t, 300, final.Width, 1)
	assert.InDelta(t, 150, final.Height, 1)

	root := html.MustFragment(ed.Document().Pages[0].HTML)
	img := root.FindByAttribute("data-anchor", "img1")
	require.NotNil(t, img)
	assert.Equal(t, "width: 300px; height: 150px", img.Attributes["style"])

	r, ok := ed.Tracker().Rect()
	require.True(t, ok)
	assert.InDelta(t, 300, r.Width, 1)
}

func TestBackspaceAtPageStart(t *testing.T) {
	t.Run("empty page is removed", func(t *testing.T) {
		ed := newEditor(t, []string{"<p>one</p>", ""})
		ed.Select(document.At(1, 0))
		require.NoError(t, ed.Backspace())
		assert.Equal(t, 1, ed.Document().Len())
		assert.Equal(t, document.At(0, 3), ed.Caret())
	})
	t.Run("non-empty page stays", func(t *testing.T) {
		ed := newEditor(t, []string{"<p>one</p>", "<p>two</p>"})
		ed.Select(document.At(1, 0))
		require.NoError(t, ed.Backspace())
		assert.Equal(t, 2, ed.Document().Len())
		assert.Equal(t, "two", ed.Document().PageText(1))
		assert.Equal(t, document.At(0, 3), ed.Caret())
	})
	t.Run("merge policy joins pages", func(t *testing.T) {
		ed := newEditor(t, []string{"<p>one</p>", "<p>two</p>"}, WithBackspaceMerge(true))
		ed.Select(document.At(1, 0))
		require.NoError(t, ed.Backspace())
		require.Equal(t, 1, ed.Document().Len())
		assert.Equal(t, "<p>one</p><p>two</p>", ed.Document().Pages[0].HTML)
		assert.Equal(t, document.At(0, 3), ed.Caret())
	})
	t.Run("removed page passes through pending removal", func(t *testing.T) {
		var buf bytes.Buffer
		ed := newEditor(t, []string{"<p>one</p>", ""}, WithLogger(zerolog.New(&buf)))
		ed.Select(document.At(1, 0))
		require.NoError(t, ed.Backspace())
		assert.Contains(t, buf.String(), `"state":"pending-removal"`)
		for _, p := range ed.Document().Pages {
			assert.Equal(t, document.Normal, p.State)
		}
	})
	t.Run("first page is never removed", func(t *testing.T) {
		ed := newEditor(t, []string{""})
		require.NoError(t, ed.Backspace())
		assert.Equal(t, 1, ed.Document().Len())
	})
	t.Run("deletes a character", func(t *testing.T) {
		ed := newEditor(t, []string{"<p>abc</p>"})
		ed.Select(document.At(0, 2))
		require.NoError(t, ed.Backspace())
		assert.Equal(t, "<p>ac</p>", ed.Document().Pages[0].HTML)
		assert.Equal(t, document.At(0, 1), ed.Caret())
	})
}

func TestPageCountNeverDropsToZero(t *testing.T) {
	ed := newEditor(t, []string{"<p>only</p>"})
	assert.ErrorIs(t, ed.RemovePage(0), document.ErrLastPage)
	ed.Select(document.At(0, 0))
	require.NoError(t, ed.Backspace())
	require.NoError(t, ed.AddPage())
	require.NoError(t, ed.RemovePage(1))
	ed.Select(document.At(0, 4))
	for range 10 {
		require.NoError(t, ed.Backspace())
	}
	assert.GreaterOrEqual(t, ed.Document().Len(), 1)
	assert.Equal(t, "", ed.Document().PageText(0))
}

func TestPageBreakInsertsEmptyPage(t *testing.T) {
	ed := newEditor(t, []string{"<p>one two</p>", "<p>last</p>"})
	ed.Select(document.At(0, 4))
	_, err := ed.Dispatch("Insert/Page break", nil)
	require.NoError(t, err)

	doc := ed.Document()
	require.Equal(t, 3, doc.Len())
	assert.Equal(t, "<p>one two</p>", doc.Pages[0].HTML)
	assert.Equal(t, "", doc.Pages[1].HTML)
	assert.Equal(t, "<p>last</p>", doc.Pages[2].HTML)
	assert.Equal(t, document.At(1, 0), ed.Caret())

	ed.Render()
	start, end := ed.Surface(1).Selection()
	assert.Equal(t, 0, start)
	assert.Equal(t, 0, end)
}

func TestTypingDoesNotReplaceSurface(t *testing.T) {
	ed := newEditor(t, []string{"<p>hello</p>"})
	ed.Select(document.At(0, 5))
	require.NoError(t, ed.Type("!"))
	ed.Render()
	assert.Equal(t, 0, ed.Surface(0).Replacements())
	assert.Equal(t, "<p>hello!</p>", ed.Document().Pages[0].HTML)
}

func TestReadOnlyIsLocked(t *testing.T) {
	ed := newEditor(t, []string{"<p>x</p>"}, WithReadOnly(true))
	assert.ErrorIs(t, ed.Type("y"), command.ErrLocked)
	_, err := ed.Dispatch("Format/Bold", nil)
	assert.ErrorIs(t, err, command.ErrLocked)
	assert.Equal(t, "<p>x</p>", ed.Document().Pages[0].HTML)
	assert.Equal(t, 2, countNotices(ed.Notices(), command.LockedMessage))

	ed.SetReadOnly(false)
	require.NoError(t, ed.Type("y"))
}

func TestRenderModes(t *testing.T) {
	ed := newEditor(t, []string{"<p>a</p>", "<p>b</p>"})
	f := ed.Render()
	require.Len(t, f.Pages, 2)
	assert.True(t, f.Pages[0].EditableVisible)
	assert.Contains(t, f.Pages[0].Visible(), `contenteditable="true"`)

	ed.SetMode(view.Print)
	f = ed.Render()
	assert.True(t, f.Pages[1].StaticVisible)
	assert.NotContains(t, f.Pages[1].Visible(), "contenteditable")
	assert.Equal(t, "print", f.Mode)
}

func TestSaveAndRestoreSelection(t *testing.T) {
	ed := newEditor(t, []string{"<p>hello world</p>"})
	ed.Select(document.Caret{Page: 0, Start: 1, End: 4})
	ed.SaveSelection()
	ed.Select(document.At(0, 0))
	require.True(t, ed.RestoreSelection())
	assert.Equal(t, document.Caret{Page: 0, Start: 1, End: 4}, ed.Caret())
	assert.False(t, ed.RestoreSelection())
}

func TestDictate(t *testing.T) {
	ed := newEditor(t, []string{""})
	ch := make(chan string, 2)
	ch <- "hello "
	ch <- "world"
	close(ch)
	require.NoError(t, ed.Dictate(context.Background(), ch))
	assert.Equal(t, "hello world", ed.Document().PageText(0))
}

func TestTableToolbar(t *testing.T) {
	ed := newEditor(t, []string{`<table data-anchor="t1"><tbody><tr><td>a</td><td>b</td></tr></tbody></table>`})
	require.True(t, ed.SelectAnchor("t1"))

	require.NoError(t, ed.Toolbar(ActionAddRow, ""))
	require.NoError(t, ed.Toolbar(ActionAddColumn, ""))
	root := html.MustFragment(ed.Document().Pages[0].HTML)
	assert.Len(t, root.ElementsByTag("tr"), 2)
	assert.Len(t, root.ElementsByTag("td"), 6)

	assert.ErrorIs(t, ed.Toolbar(ActionThickness, "4px"), ErrNotAnchored)

	require.NoError(t, ed.Toolbar(ActionDelete, ""))
	assert.Empty(t, ed.Document().Pages[0].HTML)
	_, ok := ed.Tracker().Selected()
	assert.False(t, ok)
}

func TestSignatureLifecycle(t *testing.T) {
	ed := newEditor(t, []string{"<p>x</p>"})
	_, err := ed.Dispatch("Insert/Signature", command.Args{"src": "data:image/png;base64,AAAA"})
	require.NoError(t, err)
	sel, ok := ed.Tracker().Selected()
	require.True(t, ok)
	assert.Equal(t, overlay.KindSignature, sel.Kind)

	require.NoError(t, ed.BeginGesture(overlay.GestureDrag, "", overlay.Point{}))
	_, err = ed.EndGesture(overlay.Point{X: 50, Y: 25})
	require.NoError(t, err)
	a, _ := ed.Document().Annotation(sel.AnchorID)
	assert.Equal(t, 150.0, a.X)
	assert.Equal(t, 125.0, a.Y)

	ed.Tracker().Clear()
	assert.True(t, ed.Click(160, 130), "click on the stamp selects it")
	assert.ErrorIs(t, ed.Toolbar(ActionAddRow, ""), ErrNotAnchored)
	require.NoError(t, ed.Toolbar(ActionDelete, ""))
	assert.Empty(t, ed.Document().Annotations)
}

func TestClickSelectsImage(t *testing.T) {
	ed := newEditor(t, []string{`<p><img src="a.png"></p>`})
	g := ed.Document().Settings.Geometry()
	require.True(t, ed.Click(g.Margin.Left+50, g.Margin.Top+16+50))
	sel, _ := ed.Tracker().Selected()
	assert.Equal(t, overlay.KindImage, sel.Kind)
	assert.Contains(t, ed.Document().Pages[0].HTML, "data-anchor")

	assert.False(t, ed.Click(g.Margin.Left+500, g.Margin.Top+600))
	_, ok := ed.Tracker().Selected()
	assert.False(t, ok, "clicking empty space clears the selection")
}

func TestTasksRunOnSnapshot(t *testing.T) {
	ed := newEditor(t, []string{"<p>x</p>"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ok := ed.StartTask(ctx, "Export", func(_ context.Context, snap *document.Document) (any, error) {
		snap.Pages[0].HTML = "changed"
		return snap.Len(), nil
	})
	out, err := ok.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, out)
	assert.Equal(t, "<p>x</p>", ed.Document().Pages[0].HTML)

	failed := ed.StartTask(ctx, "Import", func(context.Context, *document.Document) (any, error) {
		return nil, errors.New("boom")
	})
	_, err = failed.Wait(ctx)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, countNotices(ed.Notices(), "Import failed: boom"))
}

func TestSetPageLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	ed := newEditor(t, []string{"<p>a</p>"}, WithLogger(zerolog.New(&buf)))
	ed.setPage(5, "<p>x</p>")
	assert.Contains(t, buf.String(), "page content not stored")
	assert.Contains(t, buf.String(), document.ErrPageIndex.Error())
	assert.Equal(t, "<p>a</p>", ed.Document().Pages[0].HTML)
}
