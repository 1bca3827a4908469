package editor

import (
	"errors"
	"fmt"

	"pageflow/pkg/css"
	"pageflow/pkg/document"
	"pageflow/pkg/html"
	"pageflow/pkg/layout"
	"pageflow/pkg/overlay"
	"pageflow/pkg/richtext"
)

// ErrNotAnchored is returned for toolbar actions that do not apply to the
// selected element.
var ErrNotAnchored = errors.New("selection does not support this action")

func overlaySignature(id string) overlay.Selection {
	return overlay.Selection{Kind: overlay.KindSignature, AnchorID: id}
}

// pageTop is the y offset of page i in the stacked page column.
func (e *Editor) pageTop(i int) float64 {
	return float64(i) * (e.doc.Settings.Geometry().Height + e.pageGap)
}

// PageAt maps a y coordinate in the page column to a page index and the
// page-relative y.
func (e *Editor) PageAt(y float64) (int, float64, bool) {
	stride := e.doc.Settings.Geometry().Height + e.pageGap
	if y < 0 || stride <= 0 {
		return 0, 0, false
	}
	i := int(y / stride)
	if i >= e.doc.Len() {
		return 0, 0, false
	}
	return i, y - float64(i)*stride, true
}

// findAnchor returns the page index and live element carrying id.
func (e *Editor) findAnchor(id string) (int, *html.Node) {
	for i := range e.doc.Pages {
		s := e.Surface(i)
		if s == nil || s.Root() == nil {
			continue
		}
		if el := s.Root().FindByAttribute(richtext.AnchorAttribute, id); el != nil {
			return i, el
		}
	}
	return -1, nil
}

// Locate implements overlay.Locator over laid-out page content.
func (e *Editor) Locate(sel overlay.Selection) (layout.Rect, bool) {
	if sel.Kind == overlay.KindSignature {
		a, ok := e.doc.Annotation(sel.AnchorID)
		if !ok {
			return layout.Rect{}, false
		}
		i := e.doc.IndexOf(a.PageID)
		if i < 0 {
			return layout.Rect{}, false
		}
		return layout.Rect{X: a.X, Y: e.pageTop(i) + a.Y, Width: a.Width, Height: a.Height}, true
	}
	i, el := e.findAnchor(sel.AnchorID)
	if el == nil {
		return layout.Rect{}, false
	}
	r, ok := e.elementRect(i, el)
	if !ok {
		return layout.Rect{}, false
	}
	return r.Offset(0, e.pageTop(i)), true
}

// elementRect is el's rect relative to its page box.
func (e *Editor) elementRect(i int, el *html.Node) (layout.Rect, bool) {
	g := e.doc.Settings.Geometry()
	box := e.layout.Layout(e.Surface(i).Root(), g.ContentWidth)
	r, ok := box.RectOf(el)
	if !ok {
		return layout.Rect{}, false
	}
	return r.Offset(g.Margin.Left, g.Margin.Top), true
}

// SelectAnchor selects the anchored element or signature with id.
func (e *Editor) SelectAnchor(id string) bool {
	if _, ok := e.doc.Annotation(id); ok {
		return e.tracker.Select(overlaySignature(id))
	}
	_, el := e.findAnchor(id)
	if el == nil {
		return false
	}
	return e.tracker.Select(overlay.Selection{Kind: overlay.Kind(richtext.AnchorKind(el)), AnchorID: id})
}

// Click handles a pointer press at (x, y) in the page column. Signatures
// and anchored elements under the point get selected; anywhere else clears
// the selection.
func (e *Editor) Click(x, y float64) bool {
	i, py, ok := e.PageAt(y)
	if !ok {
		e.tracker.Clear()
		return false
	}
	pageID := e.doc.Pages[i].ID
	anns := e.doc.AnnotationsFor(pageID)
	for k := len(anns) - 1; k >= 0; k-- {
		a := anns[k]
		if (layout.Rect{X: a.X, Y: a.Y, Width: a.Width, Height: a.Height}).Contains(x, py) {
			return e.tracker.Select(overlaySignature(a.ID))
		}
	}

	g := e.doc.Settings.Geometry()
	box := e.layout.Layout(e.Surface(i).Root(), g.ContentWidth)
	hit := box.HitTest(x-g.Margin.Left, py-g.Margin.Top)
	for n := nodeOf(hit); n != nil; n = n.Parent {
		if kind := richtext.AnchorKind(n); kind != "" {
			if n.Attributes[richtext.AnchorAttribute] == "" {
				richtext.EnsureAnchors(e.Surface(i).Root())
				e.setPage(i, e.Surface(i).HTML())
			}
			return e.tracker.Select(overlay.Selection{Kind: overlay.Kind(kind), AnchorID: n.Attributes[richtext.AnchorAttribute]})
		}
	}
	e.tracker.Clear()
	return false
}

func nodeOf(b *layout.Box) *html.Node {
	if b == nil {
		return nil
	}
	return b.Node
}

// BeginGesture starts a drag or resize on the selection. Images and
// signatures keep their aspect ratio.
func (e *Editor) BeginGesture(kind overlay.GestureKind, handle overlay.Handle, p overlay.Point) error {
	if err := e.locked(); err != nil {
		return err
	}
	sel, ok := e.tracker.Selected()
	if !ok {
		return overlay.ErrNoSelection
	}
	var start overlay.Transform
	if sel.Kind == overlay.KindSignature {
		a, ok := e.doc.Annotation(sel.AnchorID)
		if !ok {
			return overlay.ErrNoSelection
		}
		start = overlay.Transform{X: a.X, Y: a.Y, Width: a.Width, Height: a.Height, Positioned: true}
	} else {
		i, el := e.findAnchor(sel.AnchorID)
		if el == nil {
			return overlay.ErrNoSelection
		}
		r, _ := e.elementRect(i, el)
		start = overlay.TransformOf(el, r)
	}
	lock := sel.Kind == overlay.KindImage || sel.Kind == overlay.KindSignature
	return e.tracker.Begin(kind, handle, p, start, lock)
}

func (e *Editor) MoveGesture(p overlay.Point) (overlay.Transform, error) {
	return e.tracker.Move(p)
}

func (e *Editor) EndGesture(p overlay.Point) (overlay.Transform, error) {
	return e.tracker.End(p)
}

// Commit implements overlay.Committer: a signature's annotation or the
// element's style takes the final transform.
func (e *Editor) Commit(sel overlay.Selection, t overlay.Transform) error {
	if sel.Kind == overlay.KindSignature {
		e.doc.UpdateAnnotation(sel.AnchorID, func(a *document.Annotation) {
			a.X, a.Y, a.Width, a.Height = t.X, t.Y, t.Width, t.Height
		})
		return nil
	}
	return e.editAnchor(sel, func(el *html.Node) error {
		overlay.ApplyTransform(el, sel.Kind, t)
		return nil
	})
}

// editAnchor mutates the element behind sel on its page and reflows. A
// vanished element is ignored.
func (e *Editor) editAnchor(sel overlay.Selection, fn func(el *html.Node) error) error {
	i, el := e.findAnchor(sel.AnchorID)
	if el == nil {
		return nil
	}
	var err error
	if ierr := e.Input(i, func(*html.Node) { err = fn(el) }); ierr != nil {
		return ierr
	}
	e.tracker.Poll()
	return err
}

// Toolbar actions for the selected element.
const (
	ActionPlace        = "place"
	ActionFloat        = "float"
	ActionInline       = "inline"
	ActionFullWidth    = "full-width"
	ActionAutoWidth    = "auto-width"
	ActionAddRow       = "add-row"
	ActionDeleteRow    = "delete-row"
	ActionAddColumn    = "add-column"
	ActionDeleteColumn = "delete-column"
	ActionThickness    = "thickness"
	ActionColor        = "color"
	ActionLineStyle    = "line-style"
	ActionDelete       = "delete"
)

// Toolbar applies a toolbar action to the selection. value carries the
// action's argument (placement mode, thickness, color, line style).
func (e *Editor) Toolbar(action, value string) error {
	if err := e.locked(); err != nil {
		return err
	}
	sel, ok := e.tracker.Selected()
	if !ok {
		return overlay.ErrNoSelection
	}
	e.tracker.ClickToolbar()

	if sel.Kind == overlay.KindSignature {
		if action != ActionDelete {
			return fmt.Errorf("%w: %s on %s", ErrNotAnchored, action, sel.Kind)
		}
		e.doc.RemoveAnnotation(sel.AnchorID)
		e.tracker.Clear()
		return nil
	}

	return e.editAnchor(sel, func(el *html.Node) error {
		switch action {
		case ActionDelete:
			overlay.Remove(el)
			e.tracker.Clear()
			return nil
		case ActionFloat, ActionInline:
			if sel.Kind == overlay.KindImage {
				break
			}
			overlay.SetFloating(el, action == ActionFloat)
			return nil
		}
		switch sel.Kind {
		case overlay.KindImage:
			if action == ActionPlace {
				return overlay.Place(el, overlay.Placement(value))
			}
		case overlay.KindTable:
			switch action {
			case ActionFullWidth, ActionAutoWidth:
				overlay.SetTableWidth(el, action == ActionFullWidth)
				return nil
			case ActionAddRow:
				overlay.AddRow(el)
				return nil
			case ActionDeleteRow:
				overlay.DeleteRow(el)
				return nil
			case ActionAddColumn:
				overlay.AddColumn(el)
				return nil
			case ActionDeleteColumn:
				overlay.DeleteColumn(el)
				return nil
			}
		case overlay.KindRule:
			switch action {
			case ActionThickness:
				px, ok := css.ParseLength(value)
				if !ok {
					return fmt.Errorf("invalid thickness %q", value)
				}
				overlay.SetRuleThickness(el, px)
				return nil
			case ActionColor:
				return overlay.SetRuleColor(el, value)
			case ActionLineStyle:
				return overlay.SetRuleStyle(el, value)
			}
		}
		return fmt.Errorf("%w: %s on %s", ErrNotAnchored, action, sel.Kind)
	})
}
