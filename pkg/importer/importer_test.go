package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupLines(t *testing.T) {
	lines := GroupLines([]Span{
		{Text: "World", X: 80, Y: 102, Size: 12},
		{Text: "Hello", X: 10, Y: 100, Size: 12},
		{Text: "  ", X: 0, Y: 50, Size: 30},
		{Text: "Next", X: 10, Y: 106, Size: 12},
		{Text: "Title", X: 10, Y: 20, Size: 26},
	})
	require.Len(t, lines, 3)
	assert.Equal(t, "Title", lines[0].Text())
	assert.Equal(t, "Hello World", lines[1].Text())
	assert.Equal(t, "Next", lines[2].Text())
}

func TestLineTags(t *testing.T) {
	for size, tag := range map[float64]string{30: "h1", 24: "h1", 20: "h2", 15: "h3", 12: "p"} {
		assert.Equal(t, tag, Line{Size: size}.Tag(), "size %v", size)
	}
}

func TestFragmentEscapes(t *testing.T) {
	got := Fragment([]Line{
		{Size: 26, Spans: []Span{{Text: "Invoice"}}},
		{Size: 11, Spans: []Span{{Text: "A & B <co>"}}},
	})
	assert.Equal(t, "<h1>Invoice</h1><p>A &amp; B &lt;co&gt;</p>", got)
}

func TestMetadata(t *testing.T) {
	meta := Metadata("INVOICE No: INV-2024.001 Customer Foo Total Tagihan: Rp1.500.000")
	assert.Equal(t, "INV-2024.001", meta[MetaInvoiceNo])
	assert.Equal(t, "Rp1.500.000", meta[MetaGrandTotal])
	assert.Empty(t, Metadata("nothing here"))
}

const dump = `{"pages": [
	[{"text": "Invoice", "x": 10, "y": 20, "fontSize": 26},
	 {"text": "No: A-17", "x": 10, "y": 60, "fontSize": 12},
	 {"text": "Total: $40.00", "x": 10, "y": 90, "fontSize": 12}],
	[]
]}`

func TestImport(t *testing.T) {
	doc, err := New(JSONExtractor{}).Import(context.Background(), "a17.json", []byte(dump))
	require.NoError(t, err)
	require.Equal(t, 2, doc.Len())
	assert.Equal(t, "A-17", doc.Title)
	assert.Equal(t, "$40.00", doc.Meta[MetaGrandTotal])
	assert.Equal(t, "a17.json", doc.Meta[MetaSource])
	assert.Equal(t, "<h1>Invoice</h1><p>No: A-17</p><p>Total: $40.00</p>", doc.Pages[0].HTML)
	assert.Equal(t, "", doc.Pages[1].HTML)
}

func TestImportFallbackTitle(t *testing.T) {
	doc, err := New(JSONExtractor{}).Import(context.Background(), "", []byte(`{"pages": [[{"text": "hi", "y": 1}]]}`))
	require.NoError(t, err)
	assert.Regexp(t, `^IMP-[0-9a-f]{8}$`, doc.Title)
}

type failingExtractor struct{ JSONExtractor }

func (failingExtractor) ExtractPositionedSpans(context.Context, []byte, int) ([]Span, error) {
	return nil, errors.New("corrupt stream")
}

func TestImportErrors(t *testing.T) {
	_, err := New(JSONExtractor{}).Import(context.Background(), "x", []byte("nope"))
	assert.ErrorContains(t, err, "counting pages of x")

	_, err = New(failingExtractor{}).Import(context.Background(), "x", []byte(dump))
	assert.ErrorContains(t, err, "corrupt stream")

	_, err = JSONExtractor{}.ExtractPositionedSpans(context.Background(), []byte(dump), 3)
	assert.Error(t, err)
}
