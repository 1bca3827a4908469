// Package importer turns positioned text spans from a fixed-layout source
// into page fragments, one per source page.
package importer

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pageflow/pkg/document"
	"pageflow/pkg/html"
)

// Span is one run of text at a position, as an extractor reports it.
type Span struct {
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Size float64 `json:"fontSize"`
}

// Extractor reads positioned spans from a source document. Pages are
// numbered from 1.
type Extractor interface {
	PageCount(ctx context.Context, src []byte) (int, error)
	ExtractPositionedSpans(ctx context.Context, src []byte, page int) ([]Span, error)
}

// LineTolerance is how far apart two spans' y may be and still share a line.
const LineTolerance = 5.5

// Heading thresholds by approximate font size.
const (
	H1Size = 24
	H2Size = 18
	H3Size = 15
)

// Line is spans grouped by y and ordered by x.
type Line struct {
	Y     float64
	Size  float64
	Spans []Span
}

func (l Line) Text() string {
	parts := make([]string, 0, len(l.Spans))
	for _, s := range l.Spans {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// Tag is the element the line becomes.
func (l Line) Tag() string {
	switch {
	case l.Size >= H1Size:
		return "h1"
	case l.Size >= H2Size:
		return "h2"
	case l.Size >= H3Size:
		return "h3"
	}
	return "p"
}

// GroupLines sorts spans top to bottom and joins those within
// LineTolerance of a line's first span. Blank spans are dropped.
func GroupLines(spans []Span) []Line {
	sorted := make([]Span, 0, len(spans))
	for _, s := range spans {
		if strings.TrimSpace(s.Text) != "" {
			sorted = append(sorted, s)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y < sorted[j].Y })

	var lines []Line
	for _, s := range sorted {
		if n := len(lines); n > 0 && math.Abs(s.Y-lines[n-1].Y) <= LineTolerance {
			lines[n-1].Spans = append(lines[n-1].Spans, s)
			lines[n-1].Size = max(lines[n-1].Size, s.Size)
			continue
		}
		lines = append(lines, Line{Y: s.Y, Size: s.Size, Spans: []Span{s}})
	}
	for i := range lines {
		sort.SliceStable(lines[i].Spans, func(a, b int) bool { return lines[i].Spans[a].X < lines[i].Spans[b].X })
	}
	return lines
}

// Fragment builds the markup for one page's lines.
func Fragment(lines []Line) string {
	root := html.NewRoot()
	for _, l := range lines {
		el := html.NewElement(l.Tag(), nil)
		el.AddChild(html.NewText(l.Text()))
		root.AddChild(el)
	}
	return root.Serialize()
}

var (
	invoicePattern = regexp.MustCompile(`(?i)(?:Invoice|No)[:.\s]*([A-Z0-9\-.]*\d[A-Z0-9\-.]*)`)
	totalPattern   = regexp.MustCompile(`(?i)(?:Total|Tagihan)[:.\s]*([Rp$\d.,]+)`)
)

// Metadata keys set on imported documents.
const (
	MetaInvoiceNo  = "invoiceNo"
	MetaGrandTotal = "grandTotal"
	MetaSource     = "source"
)

// Metadata pulls the invoice number and total out of the page text. An
// invoice number must contain a digit.
func Metadata(text string) map[string]string {
	meta := make(map[string]string)
	if m := invoicePattern.FindStringSubmatch(text); m != nil {
		meta[MetaInvoiceNo] = m[1]
	}
	if m := totalPattern.FindStringSubmatch(text); m != nil {
		meta[MetaGrandTotal] = m[1]
	}
	return meta
}

type Importer struct {
	ex  Extractor
	log zerolog.Logger
}

type Option func(*Importer)

func WithLogger(l zerolog.Logger) Option {
	return func(i *Importer) { i.log = l }
}

func New(ex Extractor, opts ...Option) *Importer {
	i := &Importer{ex: ex, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import extracts every page of src into a new document. The invoice
// number becomes the title; without one the title is "IMP-" plus a short
// id.
func (im *Importer) Import(ctx context.Context, name string, src []byte) (*document.Document, error) {
	n, err := im.ex.PageCount(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("counting pages of %s: %w", name, err)
	}
	fragments := make([]string, 0, n)
	var text []string
	for p := 1; p <= n; p++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		spans, err := im.ex.ExtractPositionedSpans(ctx, src, p)
		if err != nil {
			return nil, fmt.Errorf("extracting page %d of %s: %w", p, name, err)
		}
		lines := GroupLines(spans)
		fragments = append(fragments, Fragment(lines))
		for _, l := range lines {
			text = append(text, l.Text())
		}
		im.log.Debug().Str("source", name).Int("page", p).Int("lines", len(lines)).Msg("page imported")
	}

	meta := Metadata(strings.Join(text, " "))
	title := meta[MetaInvoiceNo]
	if title == "" {
		title = "IMP-" + uuid.NewString()[:8]
	}
	doc := document.FromPages(title, fragments)
	for k, v := range meta {
		doc.Meta[k] = v
	}
	if name != "" {
		doc.Meta[MetaSource] = name
	}
	return doc, nil
}
