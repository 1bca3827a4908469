package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pageflow/pkg/document"
	"pageflow/pkg/html"
	"pageflow/pkg/notify"
	"pageflow/pkg/richtext"
)

// fakeTarget edits page 0 of a document directly.
type fakeTarget struct {
	readOnly   bool
	feed       *notify.Feed
	doc        *document.Document
	caret      document.Caret
	pageBreaks int
}

func newTarget(fragment string) *fakeTarget {
	return &fakeTarget{
		feed: notify.NewFeed(),
		doc:  document.FromPages("Test", []string{fragment}),
	}
}

func (f *fakeTarget) ReadOnly() bool                      { return f.readOnly }
func (f *fakeTarget) Notices() *notify.Feed               { return f.feed }
func (f *fakeTarget) Document() *document.Document        { return f.doc }
func (f *fakeTarget) Caret() document.Caret               { return f.caret }
func (f *fakeTarget) Select(c document.Caret)             { f.caret = c }
func (f *fakeTarget) Rename(title string)                 { f.doc.Rename(title) }
func (f *fakeTarget) InsertPageBreak() error              { f.pageBreaks++; return nil }
func (f *fakeTarget) AddPage() error                      { f.doc.Append(""); return nil }
func (f *fakeTarget) html() string                        { return f.doc.Pages[0].HTML }
func (f *fakeTarget) sel(start, end int)                  { f.caret = document.Caret{Start: start, End: end} }
func (f *fakeTarget) ReplaceAll(a, b string, mc bool) int { return f.doc.Replace(a, b, mc) }

func (f *fakeTarget) SelectAll() {
	f.caret = document.Caret{Page: f.caret.Page, End: len([]rune(f.doc.PageText(f.caret.Page)))}
}

func (f *fakeTarget) AddSignature(src string) (document.Annotation, error) {
	return f.doc.AddAnnotation(f.doc.Pages[0].ID, src)
}

func (f *fakeTarget) Edit(fn EditFunc) error {
	root := html.MustFragment(f.html())
	r, err := fn(root, richtext.Range{Start: f.caret.Start, End: f.caret.End})
	if err != nil {
		return err
	}
	f.doc.Pages[0].HTML = root.Serialize()
	f.caret.Start, f.caret.End = r.Start, r.End
	return nil
}

func TestLockedTargetRefusesEdits(t *testing.T) {
	d := New()
	tgt := newTarget(`<p>Hello</p>`)
	tgt.readOnly = true
	tgt.sel(0, 5)

	_, err := d.Dispatch(tgt, "Format/Bold", nil)
	assert.ErrorIs(t, err, ErrLocked)
	assert.Equal(t, `<p>Hello</p>`, tgt.html())
	notices := tgt.feed.Active()
	require.Len(t, notices, 1)
	assert.Equal(t, notify.Warning, notices[0].Level)

	stats, err := d.Dispatch(tgt, "Tools/Word count", nil)
	require.NoError(t, err, "read-only commands still run")
	assert.Equal(t, 1, stats.(document.Stats).Words)
}

func TestUnknownCommand(t *testing.T) {
	_, err := New().Dispatch(newTarget(""), "Format/Sparkle", nil)
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestMenusAreRegistered(t *testing.T) {
	d := New()
	for menu := range Menu {
		for _, name := range MenuNames(menu) {
			assert.True(t, d.Has(name), name)
		}
	}
}

func TestFormatCommands(t *testing.T) {
	d := New()
	tgt := newTarget(`<p>Hello World</p>`)
	tgt.sel(0, 5)

	_, err := d.Dispatch(tgt, "Format/Bold", nil)
	require.NoError(t, err)
	_, err = d.Dispatch(tgt, "Format/Text color", Args{"color": "red"})
	require.NoError(t, err)
	assert.Equal(t, `<p><b><span style="color: red">Hello</span></b> World</p>`, tgt.html())

	_, err = d.Dispatch(tgt, "Format/Font", nil)
	assert.Error(t, err, "missing argument")

	_, err = d.Dispatch(tgt, "Format/Align center", nil)
	require.NoError(t, err)
	assert.Contains(t, tgt.html(), `text-align: center`)
}

func TestInsertTable(t *testing.T) {
	d := New()
	tgt := newTarget(`<p>Hello World</p>`)
	tgt.sel(6, 6)

	_, err := d.Dispatch(tgt, "Insert/Table", Args{"rows": float64(3), "cols": float64(2)})
	require.NoError(t, err)

	root := html.MustFragment(tgt.html())
	tables := root.ElementsByTag("table")
	require.Len(t, tables, 1)
	assert.Len(t, tables[0].ElementsByTag("tr"), 3)
	anchor, ok := tables[0].GetAttribute(richtext.AnchorAttribute)
	assert.True(t, ok)
	assert.NotEmpty(t, anchor)
	assert.Equal(t, "Hello ", root.Children[0].TextContent())
}

func TestPaintFormat(t *testing.T) {
	d := New()
	tgt := newTarget(`<p><b>Bold</b> plain</p>`)
	tgt.sel(2, 2)

	_, err := d.Dispatch(tgt, "Format/Paint format", nil)
	require.NoError(t, err)
	assert.True(t, d.PaintPending())

	tgt.sel(4, 4)
	require.NoError(t, d.ApplyPaint(tgt))
	assert.True(t, d.PaintPending(), "collapsed selection keeps the format pending")

	tgt.sel(5, 10)
	require.NoError(t, d.ApplyPaint(tgt))
	assert.False(t, d.PaintPending())
	assert.Equal(t, `<p><b>Bold</b> <b>plain</b></p>`, tgt.html())

	_, _ = d.Dispatch(tgt, "Format/Paint format", nil)
	_, _ = d.Dispatch(tgt, "Format/Paint format", nil)
	assert.False(t, d.PaintPending(), "second use cancels")
}

func TestFindAndReplace(t *testing.T) {
	d := New()
	tgt := newTarget(`<p>foo bar foo</p>`)

	out, err := d.Dispatch(tgt, "Edit/Find and replace", Args{"find": "foo"})
	require.NoError(t, err)
	res := out.(FindResult)
	require.NotNil(t, res.Match)
	assert.Equal(t, document.Caret{Start: 0, End: 3}, *res.Match)

	out, err = d.Dispatch(tgt, "Edit/Find and replace", Args{"find": "foo", "replace": "baz", "mode": "replace"})
	require.NoError(t, err)
	res = out.(FindResult)
	assert.Equal(t, 1, res.Replaced)
	assert.Equal(t, `<p>baz bar foo</p>`, tgt.html())
	assert.Equal(t, document.Caret{Start: 8, End: 11}, *res.Match)

	out, err = d.Dispatch(tgt, "Edit/Find and replace", Args{"find": "BA", "replace": "x", "mode": "all"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.(FindResult).Replaced)
	assert.Equal(t, `<p>xz xr foo</p>`, tgt.html())
}

func TestInsertPagesAndSignature(t *testing.T) {
	d := New()
	tgt := newTarget(`<p>x</p>`)
	_, err := d.Dispatch(tgt, "Insert/Page break", nil)
	require.NoError(t, err)
	_, err = d.Dispatch(tgt, "Insert/Add page", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, tgt.pageBreaks)
	assert.Equal(t, 2, tgt.doc.Len())

	out, err := d.Dispatch(tgt, "Insert/Signature", Args{"src": "data:image/png;base64,AAAA"})
	require.NoError(t, err)
	a := out.(document.Annotation)
	assert.Equal(t, 200.0, a.Width)
}
