package richtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pageflow/pkg/html"
)

func TestInsertTableSplitsParagraph(t *testing.T) {
	root := html.MustFragment(`<p>Hello World</p>`)

	caret, err := InsertFragment(root, Range{Start: 6, End: 6}, TableHTML(2, 2))
	require.NoError(t, err)
	assert.Equal(t, 10, caret)

	require.GreaterOrEqual(t, len(root.Children), 3)
	assert.Equal(t, "p", root.Children[0].TagName)
	assert.Equal(t, "Hello ", root.Children[0].TextContent())
	assert.Equal(t, "table", root.Children[1].TagName)
	last := root.LastChild()
	assert.Equal(t, "World", last.TextContent())

	rows := root.Children[1].ElementsByTag("tr")
	require.Len(t, rows, 2)
	for _, tr := range rows {
		assert.Len(t, tr.ElementsByTag("td"), 2)
	}
}

func TestInsertInlineFragment(t *testing.T) {
	root := html.MustFragment(`<p>ab</p>`)
	caret, err := InsertFragment(root, Range{Start: 1, End: 1}, `<b>X</b><script>alert(1)</script>`)
	require.NoError(t, err)
	assert.Equal(t, 2, caret)
	assert.Equal(t, `<p>a<b>X</b>b</p>`, root.Serialize())
}

func TestToggleBold(t *testing.T) {
	root := html.MustFragment(`<p>Hello World</p>`)

	require.True(t, ToggleBold(root, Range{Start: 0, End: 5}))
	assert.Equal(t, `<p><b>Hello</b> World</p>`, root.Serialize())
	assert.True(t, IsBold(root, Range{Start: 0, End: 5}))
	assert.False(t, IsBold(root, Range{Start: 0, End: 7}))

	require.True(t, ToggleBold(root, Range{Start: 0, End: 5}))
	assert.Equal(t, `<p>Hello World</p>`, root.Serialize())

	assert.False(t, ToggleBold(root, Range{Start: 3, End: 3}), "collapsed range changes nothing")
}

func TestToggleOffPartOfRun(t *testing.T) {
	root := html.MustFragment(`<p><b>Hello World</b></p>`)
	ToggleBold(root, Range{Start: 6, End: 11})
	assert.Equal(t, `<p><b>Hello </b>World</p>`, root.Serialize())
}

func TestToggleStyledSpan(t *testing.T) {
	root := html.MustFragment(`<p><span style="font-weight: bold; color: red">Hi</span></p>`)
	ToggleBold(root, Range{Start: 0, End: 2})
	assert.Equal(t, `<p><span style="color: red">Hi</span></p>`, root.Serialize())
}

func TestSuperscript(t *testing.T) {
	root := html.MustFragment(`<p>x2</p>`)
	Superscript(root, Range{Start: 1, End: 2})
	assert.Equal(t, `<p>x<sup>2</sup></p>`, root.Serialize())
}

func TestSetStyleReusesSpan(t *testing.T) {
	root := html.MustFragment(`<p>Hello World</p>`)
	SetForeColor(root, Range{Start: 0, End: 5}, "red")
	SetFontSize(root, Range{Start: 0, End: 5}, "5")
	assert.Equal(t, `<p><span style="color: red; font-size: 24px">Hello</span> World</p>`, root.Serialize())

	f := FormatAt(root, 3)
	assert.Equal(t, "red", f.Color)
	assert.Equal(t, "24px", f.FontSize)
	assert.False(t, f.Bold)
}

func TestPaintFormat(t *testing.T) {
	src := html.MustFragment(`<p><b><span style="color: blue">abc</span></b></p>`)
	f := FormatAt(src, 2)
	assert.Equal(t, Format{Bold: true, Color: "blue"}, f)

	dst := html.MustFragment(`<p>abc def</p>`)
	require.True(t, ApplyFormat(dst, Range{Start: 4, End: 7}, f))
	assert.Equal(t, `<p>abc <b><span style="color: blue">def</span></b></p>`, dst.Serialize())

	require.True(t, RemoveFormatting(dst, Range{Start: 0, End: 7}))
	assert.Equal(t, `<p>abc def</p>`, dst.Serialize())
}

func TestAlign(t *testing.T) {
	root := html.MustFragment(`<p>one</p>two`)
	require.NoError(t, Align(root, Range{}, AlignCenter))
	require.NoError(t, Align(root, Range{Start: 4, End: 4}, AlignRight))
	assert.Equal(t, `<p style="text-align: center">one</p><div style="text-align: right">two</div>`, root.Serialize())

	assert.Error(t, Align(root, Range{}, "diagonal"))
}

func TestIndentOutdent(t *testing.T) {
	root := html.MustFragment(`<p>x</p>`)
	Indent(root, Range{})
	Indent(root, Range{})
	Outdent(root, Range{})
	assert.Equal(t, `<p style="margin-left: 40px">x</p>`, root.Serialize())
	Outdent(root, Range{})
	Outdent(root, Range{})
	assert.Equal(t, `<p>x</p>`, root.Serialize())
}

func TestInsertListToggles(t *testing.T) {
	root := html.MustFragment(`<p>a</p><p>b</p>`)
	InsertList(root, Range{Start: 0, End: 2}, false)
	assert.Equal(t, `<ul><li>a</li><li>b</li></ul>`, root.Serialize())

	InsertList(root, Range{Start: 0, End: 2}, false)
	assert.Equal(t, `<p>a</p><p>b</p>`, root.Serialize())
}

func TestInsertPlainText(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		r     Range
		text  string
		want  string
		caret int
	}{
		{"empty page", ``, Range{}, "hi\nthere", `hi<br>there`, 7},
		{"placeholder paragraph", `<p><br></p>`, Range{}, "abc", `<p>abc</p>`, 3},
		{"keeps formatting", `<p><b>ab</b>c</p>`, Range{Start: 2, End: 2}, "X", `<p><b>abX</b>c</p>`, 3},
		{"replaces selection", `<p>Hello</p>`, Range{Start: 1, End: 4}, "ipp", `<p>Hippo</p>`, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := html.MustFragment(tt.in)
			caret := InsertPlainText(root, tt.r, tt.text)
			assert.Equal(t, tt.want, root.Serialize())
			assert.Equal(t, tt.caret, caret)
		})
	}
}

func TestDeleteRangeJoinsBlocks(t *testing.T) {
	root := html.MustFragment(`<p>Hello</p><p>World</p>`)
	DeleteRange(root, Range{Start: 3, End: 7})
	assert.Equal(t, `<p>Helrld</p>`, root.Serialize())
}

func TestBuilders(t *testing.T) {
	assert.Equal(t,
		`<hr style="width: 100%; height: 2px; background-color: black; border: none; margin: 10px 0"><p><br></p>`,
		RuleHTML("", "", ""))
	assert.Equal(t, `<img src="a.png">`, ImageHTML("a.png"))

	table := html.MustFragment(TableHTML(3, 4))
	assert.Len(t, table.ElementsByTag("tr"), 3)
	assert.Len(t, table.ElementsByTag("td"), 12)
}

func TestEnsureAnchors(t *testing.T) {
	root := html.MustFragment(`<img src="a.png"><p>x</p><hr>`)
	assert.Equal(t, 2, EnsureAnchors(root))
	assert.Equal(t, 0, EnsureAnchors(root))

	img := root.Children[0]
	id, ok := img.GetAttribute(AnchorAttribute)
	require.True(t, ok)
	assert.Same(t, img, root.FindByAttribute(AnchorAttribute, id))
	assert.Equal(t, "image", AnchorKind(img))
}
