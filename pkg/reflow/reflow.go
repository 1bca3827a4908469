// Package reflow moves content that overflows a page onto the next one.
package reflow

import (
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"pageflow/pkg/document"
	"pageflow/pkg/html"
	"pageflow/pkg/layout"
	"pageflow/pkg/page"
	"pageflow/pkg/text"
)

// DefaultTolerance absorbs sub-pixel rounding.
const DefaultTolerance = 4.0

// DefaultMaxPages bounds a single pass. Content that would need more pages
// stays on the last one.
const DefaultMaxPages = 2000

type Engine struct {
	layout    *layout.Engine
	tolerance float64
	maxPages  int
	log       zerolog.Logger
}

type Option func(*Engine)

func WithTolerance(px float64) Option {
	return func(e *Engine) { e.tolerance = px }
}

func WithMaxPages(n int) Option {
	return func(e *Engine) { e.maxPages = n }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func New(l *layout.Engine, opts ...Option) *Engine {
	e := &Engine{
		layout:    l,
		tolerance: DefaultTolerance,
		maxPages:  DefaultMaxPages,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Tolerance() float64 { return e.tolerance }

// Overflow is how far root's content runs past the usable height.
func (e *Engine) Overflow(root *html.Node, g page.Geometry) float64 {
	return e.layout.ContentHeight(root, g.ContentWidth) - g.ContentHeight
}

func (e *Engine) fits(root *html.Node, g page.Geometry) bool {
	return e.Overflow(root, g) <= e.tolerance
}

// Trim shortens root until it fits and returns the removed markup in
// document order. Trailing children are removed whole. When one child is
// left it is split: text at the last word boundary that fits, containers
// between their children. An image, table or rule on its own is kept even
// if it overflows.
func (e *Engine) Trim(root *html.Node, g page.Geometry) []string {
	var buf []string
	for !e.fits(root, g) {
		if len(root.Children) > 1 {
			last := root.LastChild()
			root.RemoveChild(last)
			buf = append([]string{last.SerializeOuter()}, buf...)
			continue
		}
		if len(root.Children) == 1 {
			if tail := e.split(root, root.FirstChild(), g); tail != nil {
				buf = append([]string{tail.SerializeOuter()}, buf...)
			}
		}
		break
	}
	return buf
}

// split shortens n, the last node in root's flow, and returns the detached
// remainder, or nil when n cannot be shortened.
func (e *Engine) split(root, n *html.Node, g page.Geometry) *html.Node {
	if n.Type == html.TextNode {
		return e.splitText(root, n, g)
	}
	if !splittable(n) {
		return nil
	}
	tail := n.CloneNode(false)
	for !e.fits(root, g) && len(n.Children) > 1 {
		tail.InsertBefore(n.LastChild(), tail.FirstChild())
	}
	if !e.fits(root, g) && len(n.Children) == 1 {
		if rest := e.split(root, n.FirstChild(), g); rest != nil {
			tail.InsertBefore(rest, tail.FirstChild())
		}
	}
	if len(tail.Children) == 0 {
		return nil
	}
	return tail
}

func splittable(n *html.Node) bool {
	switch n.TagName {
	case "img", "table", "hr", "br":
		return false
	}
	return !html.IsVoidElement(n.TagName) && len(n.Children) > 0
}

// splitText keeps the longest prefix of t that fits, cut at a word boundary
// when one exists, and returns the rest as a new text node.
func (e *Engine) splitText(root, t *html.Node, g page.Geometry) *html.Node {
	original := t.Text
	runes := []rune(original)
	if len(runes) < 2 {
		return nil
	}
	lo, hi := 0, len(runes)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		t.Text = string(runes[:mid])
		if e.fits(root, g) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	if lo == 0 {
		t.Text = original
		return nil
	}
	cut := lo
	bounds := text.WordBoundaries(original)
	for i := len(bounds) - 1; i >= 0; i-- {
		if bounds[i] <= lo {
			cut = bounds[i]
			break
		}
	}
	t.Text = string(runes[:cut])
	return html.NewText(string(runes[cut:]))
}

// Result reports what a pass did.
type Result struct {
	Moved        int   // fragments moved forward
	PagesCreated int   // pages appended
	Touched      []int // indices of pages whose content changed
}

// Run reflows from page start onward. Overflow is prepended to the next
// page, or becomes a new last page, and the receiving page is queued, so a
// single call cascades across any number of pages. A page whose overflow
// cannot move stays Overflowing until it fits again.
func (e *Engine) Run(doc *document.Document, start int) Result {
	var res Result
	g := doc.Settings.Geometry()
	touched := make(map[int]bool)
	queue := []int{start}

	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if i < 0 || i >= doc.Len() {
			continue
		}
		p := &doc.Pages[i]
		root := html.MustFragment(p.HTML)
		if e.fits(root, g) {
			p.State = document.Normal
			continue
		}
		p.State = document.Overflowing
		if i == doc.Len()-1 && doc.Len() >= e.maxPages {
			e.log.Warn().Int("pages", doc.Len()).Msg("page limit reached, leaving overflow in place")
			continue
		}

		moved := e.Trim(root, g)
		if len(moved) == 0 {
			e.log.Debug().Int("page", i).Msg("irreducible overflow accepted")
			continue
		}
		p.HTML = root.Serialize()
		if e.fits(root, g) {
			p.State = document.Normal
		}
		markup := strings.Join(moved, "")
		touched[i] = true

		if i+1 < doc.Len() {
			_ = doc.Prepend(i+1, markup)
		} else {
			doc.Append(markup)
			res.PagesCreated++
		}
		touched[i+1] = true
		res.Moved += len(moved)
		queue = append(queue, i+1)
		e.log.Debug().Int("page", i).Int("moved", len(moved)).Msg("reflowed overflow to next page")
	}

	for i := range touched {
		res.Touched = append(res.Touched, i)
	}
	slices.Sort(res.Touched)
	return res
}
