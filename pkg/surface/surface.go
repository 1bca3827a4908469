// Package surface hosts one page's live content tree. The tree is mutated in
// place by edits; stored state is pushed back into it only when it differs.
package surface

import (
	"unicode/utf8"

	"github.com/rs/zerolog"

	"pageflow/pkg/html"
	"pageflow/pkg/layout"
	"pageflow/pkg/page"
)

// Meter measures how far a page's content runs past its usable height.
// Positive values overflow.
type Meter interface {
	Overflow(root *html.Node) float64
}

// LayoutMeter flows content at the page's content width.
type LayoutMeter struct {
	Engine   *layout.Engine
	Geometry page.Geometry
}

func (m LayoutMeter) Overflow(root *html.Node) float64 {
	return m.Engine.ContentHeight(root, m.Geometry.ContentWidth) - m.Geometry.ContentHeight
}

// InputEvent is emitted after every edit: the serialized content and how
// much it overflows.
type InputEvent struct {
	PageID   string
	HTML     string
	Overflow float64
	Detached bool
}

// Surface is not safe for concurrent use.
type Surface struct {
	pageID   string
	root     *html.Node
	editable bool
	detached bool
	meter    Meter
	log      zerolog.Logger

	replacements int
	selStart     int
	selEnd       int
}

type Option func(*Surface)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Surface) { s.log = l }
}

func New(pageID, fragment string, editable bool, meter Meter, opts ...Option) *Surface {
	s := &Surface{
		pageID:   pageID,
		root:     html.MustFragment(fragment),
		editable: editable,
		meter:    meter,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Surface) PageID() string { return s.pageID }

func (s *Surface) Editable() bool { return s.editable }

func (s *Surface) SetEditable(editable bool) {
	if s.detached {
		return
	}
	s.editable = editable
}

func (s *Surface) Detached() bool { return s.detached }

// Detach unbinds the surface from its page. Every later call is a no-op.
func (s *Surface) Detach() {
	s.detached = true
	s.root = nil
}

// Root returns the live content tree, or nil once detached.
func (s *Surface) Root() *html.Node { return s.root }

// HTML serializes the live tree.
func (s *Surface) HTML() string {
	if s.detached {
		return ""
	}
	return s.root.Serialize()
}

// Render returns the surface markup: an editable region when editing is on,
// a read-only one otherwise.
func (s *Surface) Render() string {
	if s.detached {
		return ""
	}
	attrs := map[string]string{
		"class":        "page-content",
		"data-page-id": s.pageID,
	}
	if s.editable {
		attrs["contenteditable"] = "true"
		attrs["spellcheck"] = "false"
	}
	wrapper := html.NewElement("div", attrs)
	wrapper.Children = s.root.Children
	out := wrapper.SerializeOuter()
	wrapper.Children = nil
	return out
}

// Sync replaces the live tree with fragment only when the serialized forms
// differ, and reports whether it did. Equal content leaves the tree (and
// so the caret) alone.
func (s *Surface) Sync(fragment string) bool {
	if s.detached {
		return false
	}
	if s.root.Serialize() == fragment {
		return false
	}
	s.root = html.MustFragment(fragment)
	s.replacements++
	s.clampSelection()
	s.log.Debug().Str("page", s.pageID).Int("replacements", s.replacements).Msg("surface content replaced")
	return true
}

// Replacements counts how often Sync overwrote the tree.
func (s *Surface) Replacements() int { return s.replacements }

// Input runs an edit against the live tree and reports the result.
func (s *Surface) Input(mutate func(root *html.Node)) InputEvent {
	if s.detached {
		return InputEvent{PageID: s.pageID, Detached: true}
	}
	if mutate != nil {
		mutate(s.root)
	}
	s.clampSelection()
	return InputEvent{PageID: s.pageID, HTML: s.root.Serialize(), Overflow: s.Overflow()}
}

// Overflow measures the live tree.
func (s *Surface) Overflow() float64 {
	if s.detached || s.meter == nil {
		return 0
	}
	return s.meter.Overflow(s.root)
}

// TextLen is the rune length of the tree's text.
func (s *Surface) TextLen() int {
	if s.detached {
		return 0
	}
	return utf8.RuneCountInString(s.root.TextContent())
}

// Selection returns the surface's selection as text offsets.
func (s *Surface) Selection() (start, end int) { return s.selStart, s.selEnd }

// Select places the selection, clamped to the text.
func (s *Surface) Select(start, end int) {
	if s.detached {
		return
	}
	s.selStart, s.selEnd = start, end
	s.clampSelection()
}

func (s *Surface) clampSelection() {
	n := s.TextLen()
	s.selStart = min(max(s.selStart, 0), n)
	s.selEnd = min(max(s.selEnd, 0), n)
}
