package layout

import (
	"pageflow/pkg/css"
	"pageflow/pkg/html"
	"pageflow/pkg/text"
)

type Kind int

const (
	KindBlock Kind = iota
	KindLine
	KindText
	KindImage
	KindRule
)

func (k Kind) String() string {
	switch k {
	case KindBlock:
		return "block"
	case KindLine:
		return "line"
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindRule:
		return "rule"
	}
	return "unknown"
}

// Box is one laid-out region. Coordinates are border-box, relative to the
// fragment root's content origin.
type Box struct {
	Kind   Kind
	Node   *html.Node
	X      float64
	Y      float64
	Width  float64
	Height float64

	Border      css.BoxEdge
	BorderColor css.Color
	Background  *css.Color

	// Text runs
	Text      string
	Face      text.Face
	Color     css.Color
	Underline bool
	Strike    bool

	// Images
	Src string

	Positioned bool // absolute; outside the normal flow
	ZIndex     int

	Children []*Box
}

// Rect represents a rectangular region
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func (r Rect) Bottom() float64 { return r.Y + r.Height }
func (r Rect) Right() float64  { return r.X + r.Width }

func (r Rect) Empty() bool { return r.Width <= 0 && r.Height <= 0 }

// Union returns the smallest rect covering r and o. An empty r yields o.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x, y := min(r.X, o.X), min(r.Y, o.Y)
	return Rect{X: x, Y: y, Width: max(r.Right(), o.Right()) - x, Height: max(r.Bottom(), o.Bottom()) - y}
}

// Offset translates r.
func (r Rect) Offset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.Right() && y >= r.Y && y <= r.Bottom()
}

func (b *Box) Rect() Rect {
	return Rect{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}

// Walk visits b and its descendants in paint order.
func (b *Box) Walk(fn func(*Box)) {
	fn(b)
	for _, c := range b.Children {
		c.Walk(fn)
	}
}

// BoxFor returns the first box generated for n itself.
func (b *Box) BoxFor(n *html.Node) *Box {
	var found *Box
	b.Walk(func(c *Box) {
		if found == nil && c.Node == n {
			found = c
		}
	})
	return found
}

// RectOf returns the union of every box generated by n or its descendants.
// Inline elements generate no box of their own, so their rect is the union
// of their text runs.
func (b *Box) RectOf(n *html.Node) (Rect, bool) {
	var r Rect
	found := false
	b.Walk(func(c *Box) {
		if c.Node == nil || !n.Contains(c.Node) {
			return
		}
		if !found {
			r, found = c.Rect(), true
			return
		}
		r = r.Union(c.Rect())
	})
	return r, found
}

// HitTest returns the innermost non-line box containing the point.
func (b *Box) HitTest(x, y float64) *Box {
	var hit *Box
	b.Walk(func(c *Box) {
		if c.Kind != KindLine && c.Node != nil && c.Rect().Contains(x, y) {
			hit = c
		}
	})
	return hit
}
