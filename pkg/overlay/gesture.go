package overlay

import (
	"fmt"
	"strings"

	"pageflow/pkg/css"
	"pageflow/pkg/html"
	"pageflow/pkg/layout"
)

type GestureKind int

const (
	GestureDrag GestureKind = iota
	GestureResize
)

type Handle string

const (
	HandleNW Handle = "nw"
	HandleNE Handle = "ne"
	HandleSW Handle = "sw"
	HandleSE Handle = "se"
	HandleE  Handle = "e"
	HandleS  Handle = "s"
)

// MinSize is the smallest width or height a resize produces.
const MinSize = 10.0

type Point struct {
	X, Y float64
}

// Transform is an element's placement: left/top (meaningful when
// Positioned) and size, in page pixels.
type Transform struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Positioned bool    `json:"positioned"`
}

type gesture struct {
	kind       GestureKind
	handle     Handle
	origin     Point
	start      Transform
	current    Transform
	startRect  layout.Rect
	aspectLock bool
}

// Begin starts a drag or resize on the selection. Only one gesture may be
// active; dragging needs an absolutely positioned element.
func (t *Tracker) Begin(kind GestureKind, handle Handle, p Point, start Transform, aspectLock bool) error {
	if t.gesture != nil {
		return ErrGestureActive
	}
	if t.sel == nil {
		return ErrNoSelection
	}
	if kind == GestureDrag && !start.Positioned {
		return ErrNotPositioned
	}
	if kind == GestureResize {
		switch handle {
		case HandleNW, HandleNE, HandleSW, HandleSE, HandleE, HandleS:
		default:
			return fmt.Errorf("unknown resize handle %q", handle)
		}
	}
	t.gesture = &gesture{
		kind:       kind,
		handle:     handle,
		origin:     p,
		start:      start,
		current:    start,
		startRect:  t.rect,
		aspectLock: aspectLock && start.Width > 0 && start.Height > 0,
	}
	return nil
}

// Active reports whether a gesture is running.
func (t *Tracker) Active() bool { return t.gesture != nil }

// Pending returns the in-flight transform.
func (t *Tracker) Pending() (Transform, bool) {
	if t.gesture == nil {
		return Transform{}, false
	}
	return t.gesture.current, true
}

// Move updates the pending transform for the pointer at p.
func (t *Tracker) Move(p Point) (Transform, error) {
	g := t.gesture
	if g == nil {
		return Transform{}, ErrNoGesture
	}
	g.current = g.apply(p)
	return g.current, nil
}

// End finishes the gesture at p and commits the final transform.
func (t *Tracker) End(p Point) (Transform, error) {
	g := t.gesture
	if g == nil {
		return Transform{}, ErrNoGesture
	}
	final := g.apply(p)
	t.gesture = nil
	if t.sel != nil && t.committer != nil {
		if err := t.committer.Commit(*t.sel, final); err != nil {
			return final, fmt.Errorf("committing %s gesture: %w", t.sel.Kind, err)
		}
	}
	t.refresh()
	return final, nil
}

// Cancel abandons the gesture without committing.
func (t *Tracker) Cancel() { t.cancelGesture() }

func (t *Tracker) cancelGesture() { t.gesture = nil }

func (g *gesture) apply(p Point) Transform {
	dx, dy := p.X-g.origin.X, p.Y-g.origin.Y
	s := g.start
	out := s
	if g.kind == GestureDrag {
		out.X, out.Y = s.X+dx, s.Y+dy
		return out
	}

	h := string(g.handle)
	if strings.Contains(h, "e") {
		out.Width = s.Width + dx
	}
	if strings.Contains(h, "w") {
		out.Width = s.Width - dx
	}
	if strings.Contains(h, "s") {
		out.Height = s.Height + dy
	}
	if strings.HasPrefix(h, "n") {
		out.Height = s.Height - dy
	}
	out.Width = max(out.Width, MinSize)
	out.Height = max(out.Height, MinSize)

	if g.aspectLock {
		aspect := s.Width / s.Height
		if g.handle == HandleS {
			out.Width = out.Height * aspect
		} else {
			out.Height = out.Width / aspect
		}
	}
	if s.Positioned {
		if strings.Contains(h, "w") {
			out.X = s.X + s.Width - out.Width
		}
		if strings.HasPrefix(h, "n") {
			out.Y = s.Y + s.Height - out.Height
		}
	}
	return out
}

// TransformOf reads an element's placement from its style, falling back to
// the laid-out rect for missing sizes.
func TransformOf(el *html.Node, laidOut layout.Rect) Transform {
	style := css.ParseInlineStyle(el.Attributes["style"])
	t := Transform{Width: laidOut.Width, Height: laidOut.Height}
	if v, ok := style.GetLength("width"); ok {
		t.Width = v
	}
	if v, ok := style.GetLength("height"); ok {
		t.Height = v
	}
	if style.GetPosition() == css.PositionAbsolute {
		t.Positioned = true
		t.X, _ = style.GetLength("left")
		t.Y, _ = style.GetLength("top")
	}
	return t
}

// ApplyTransform writes t into the element's style. Rules only carry a
// width; tables keep their height automatic unless t changed it.
func ApplyTransform(el *html.Node, kind Kind, t Transform) {
	style := css.ParseInlineStyle(el.Attributes["style"])
	style.Set("width", css.FormatPx(t.Width))
	if kind != KindRule {
		style.Set("height", css.FormatPx(t.Height))
	}
	if t.Positioned {
		style.Set("left", css.FormatPx(t.X))
		style.Set("top", css.FormatPx(t.Y))
	}
	el.SetAttribute("style", style.String())
}
