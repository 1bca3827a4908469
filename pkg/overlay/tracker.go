// Package overlay tracks the one selected anchored element (image, table,
// rule or signature stamp) and turns pointer gestures on it into a pending
// transform that is committed when the gesture ends.
package overlay

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"pageflow/pkg/layout"
)

type Kind string

const (
	KindImage     Kind = "image"
	KindTable     Kind = "table"
	KindRule      Kind = "rule"
	KindSignature Kind = "signature"
)

// AnchorAttribute carries the stable id of an anchored element.
const AnchorAttribute = "data-anchor"

// DefaultPollInterval matches how often layout shifts are re-checked.
const DefaultPollInterval = 500 * time.Millisecond

var (
	ErrGestureActive = errors.New("a gesture is already active")
	ErrNoGesture     = errors.New("no active gesture")
	ErrNoSelection   = errors.New("nothing is selected")
	ErrNotPositioned = errors.New("element is not absolutely positioned")
)

// Selection names an anchored element by id, never by node, so it survives
// re-renders.
type Selection struct {
	Kind     Kind   `json:"kind"`
	AnchorID string `json:"anchorId"`
}

// Locator finds an anchored element's rect in document coordinates (the
// stacked page column).
type Locator interface {
	Locate(sel Selection) (layout.Rect, bool)
}

// Committer writes a finished gesture's transform into the model.
type Committer interface {
	Commit(sel Selection, t Transform) error
}

// Tracker is owned by the editor's loop and is not safe for concurrent use.
type Tracker struct {
	locator   Locator
	committer Committer
	log       zerolog.Logger

	sel      *Selection
	rect     layout.Rect
	scrollX  float64
	scrollY  float64
	viewport layout.Rect

	gesture *gesture
}

type Option func(*Tracker)

func WithLogger(l zerolog.Logger) Option {
	return func(t *Tracker) { t.log = l }
}

func NewTracker(locator Locator, committer Committer, opts ...Option) *Tracker {
	t := &Tracker{locator: locator, committer: committer, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Select replaces the current selection. It reports false, leaving nothing
// selected, when the element cannot be found.
func (t *Tracker) Select(sel Selection) bool {
	t.cancelGesture()
	t.sel = &sel
	return t.refresh()
}

// Clear drops the selection, e.g. on a click on empty space.
func (t *Tracker) Clear() {
	t.cancelGesture()
	t.sel = nil
	t.rect = layout.Rect{}
}

// ClickToolbar is a click on the selection's own toolbar; it keeps the
// selection.
func (t *Tracker) ClickToolbar() {}

func (t *Tracker) Selected() (Selection, bool) {
	if t.sel == nil {
		return Selection{}, false
	}
	return *t.sel, true
}

// Rect returns the selection's viewport rect. While a gesture runs it is
// derived from the pending transform.
func (t *Tracker) Rect() (layout.Rect, bool) {
	if t.sel == nil {
		return layout.Rect{}, false
	}
	if g := t.gesture; g != nil {
		return layout.Rect{
			X:      g.startRect.X + (g.current.X - g.start.X),
			Y:      g.startRect.Y + (g.current.Y - g.start.Y),
			Width:  g.current.Width,
			Height: g.current.Height,
		}, true
	}
	return t.rect, true
}

// Scroll records the viewport's scroll offset and recomputes the rect.
func (t *Tracker) Scroll(x, y float64) {
	t.scrollX, t.scrollY = x, y
	t.refresh()
}

// Resize records the viewport size and recomputes the rect.
func (t *Tracker) Resize(width, height float64) {
	t.viewport = layout.Rect{Width: width, Height: height}
	t.refresh()
}

// Viewport returns the last size passed to Resize.
func (t *Tracker) Viewport() layout.Rect { return t.viewport }

// Poll recomputes the rect and reports whether it moved. It catches layout
// shifts that no scroll or resize announced.
func (t *Tracker) Poll() bool {
	before := t.rect
	t.refresh()
	return t.rect != before
}

// refresh re-locates the selection. An element that disappeared clears the
// selection without error.
func (t *Tracker) refresh() bool {
	if t.sel == nil || t.locator == nil {
		return false
	}
	r, ok := t.locator.Locate(*t.sel)
	if !ok {
		t.log.Debug().Str("anchor", t.sel.AnchorID).Msg("selected element gone, clearing selection")
		t.Clear()
		return false
	}
	t.rect = r.Offset(-t.scrollX, -t.scrollY)
	return true
}

// Run submits a poll every interval until ctx is done. submit hands the
// poll to the loop that owns the tracker.
func (t *Tracker) Run(ctx context.Context, interval time.Duration, submit func(func())) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			submit(func() { t.Poll() })
		}
	}
}
