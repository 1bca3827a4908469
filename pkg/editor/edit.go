package editor

import (
	"context"
	"unicode/utf8"

	"pageflow/pkg/command"
	"pageflow/pkg/document"
	"pageflow/pkg/html"
	"pageflow/pkg/richtext"
)

// Caret returns the model caret. It already reflects focus changes that
// the next Render will apply to the surfaces.
func (e *Editor) Caret() document.Caret { return e.caret }

// Select moves the caret or selection, clamped to the page. A pending paint
// format is applied to a non-empty selection.
func (e *Editor) Select(c document.Caret) {
	if c.Page < 0 || c.Page >= e.doc.Len() {
		return
	}
	c = c.Clamp(e.pageLen(c.Page))
	e.focus(c)
	e.applyFocus()
	if e.commands.PaintPending() && !c.Collapsed() {
		if err := e.commands.ApplyPaint(e); err != nil {
			e.log.Debug().Err(err).Msg("paint format not applied")
		}
	}
}

// SelectAll selects the caret page's text.
func (e *Editor) SelectAll() {
	e.Select(document.Caret{Page: e.caret.Page, End: e.pageLen(e.caret.Page)})
}

// SaveSelection remembers the caret before a modal interruption.
func (e *Editor) SaveSelection() document.Caret {
	c := e.caret
	e.saved = &c
	return c
}

// RestoreSelection puts back the caret saved by SaveSelection. It reports
// false when nothing was saved or the page no longer exists.
func (e *Editor) RestoreSelection() bool {
	if e.saved == nil {
		return false
	}
	c := *e.saved
	e.saved = nil
	if c.Page >= e.doc.Len() {
		return false
	}
	e.Select(c)
	return true
}

func (e *Editor) pageLen(i int) int {
	if s := e.Surface(i); s != nil {
		return s.TextLen()
	}
	return utf8.RuneCountInString(e.doc.PageText(i))
}

// focus records a caret change. The model caret moves now; the surfaces
// pick it up in applyFocus once they exist for the new page count.
func (e *Editor) focus(c document.Caret) {
	e.caret = c
	e.pendingFocus = &c
}

func (e *Editor) applyFocus() {
	if e.pendingFocus == nil {
		return
	}
	c := *e.pendingFocus
	s := e.Surface(c.Page)
	if s == nil {
		return
	}
	e.pendingFocus = nil
	c = c.Clamp(s.TextLen())
	s.Select(c.Start, c.End)
	e.caret = c
}

func (e *Editor) locked() error {
	if e.readOnly {
		e.notices.Warn(command.LockedMessage)
		return command.ErrLocked
	}
	return nil
}

// Edit runs fn on the caret page's live tree, stores the result and
// reflows when the page now overflows.
func (e *Editor) Edit(fn command.EditFunc) error {
	if err := e.locked(); err != nil {
		return err
	}
	i := e.caret.Page
	s := e.Surface(i)
	if s == nil {
		return nil
	}
	c := e.caret.Normalize()
	sel := richtext.Range{Start: c.Start, End: c.End}
	var fnErr error
	ev := s.Input(func(root *html.Node) {
		sel, fnErr = fn(root, sel)
	})
	if ev.Detached {
		return nil
	}
	if fnErr != nil {
		// The tree may be half edited; put the stored page back.
		s.Sync(e.doc.Pages[i].HTML)
		return fnErr
	}
	e.setPage(i, ev.HTML)
	e.focus(document.Caret{Page: i, Start: sel.Start, End: sel.End})
	if ev.Overflow > e.reflow.Tolerance() {
		e.reflowFrom(i)
	}
	e.applyFocus()
	return nil
}

// Input runs a native edit on page i's live tree, the way keystrokes in an
// editable surface arrive, then stores and reflows.
func (e *Editor) Input(i int, mutate func(root *html.Node)) error {
	if err := e.locked(); err != nil {
		return err
	}
	s := e.Surface(i)
	if s == nil {
		return nil
	}
	ev := s.Input(mutate)
	if ev.Detached {
		return nil
	}
	e.setPage(i, ev.HTML)
	if ev.Overflow > e.reflow.Tolerance() {
		e.reflowFrom(i)
	}
	return nil
}

// Type inserts plain text at the caret, replacing any selection.
func (e *Editor) Type(s string) error {
	return e.Edit(func(root *html.Node, sel richtext.Range) (richtext.Range, error) {
		c := richtext.InsertPlainText(root, sel, s)
		return richtext.Range{Start: c, End: c}, nil
	})
}

// Paste inserts sanitized markup at the caret.
func (e *Editor) Paste(markup string) error {
	return e.Edit(func(root *html.Node, sel richtext.Range) (richtext.Range, error) {
		c, err := richtext.InsertFragment(root, sel, markup)
		richtext.EnsureAnchors(root)
		return richtext.Range{Start: c, End: c}, err
	})
}

// Dispatch runs a menu or toolbar command.
func (e *Editor) Dispatch(name string, args command.Args) (any, error) {
	return e.commands.Dispatch(e, name, args)
}

// Dictate types each transcript that arrives until the channel closes or
// ctx ends. Call it from the goroutine that owns the editor.
func (e *Editor) Dictate(ctx context.Context, transcripts <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t, ok := <-transcripts:
			if !ok {
				return nil
			}
			if t == "" {
				continue
			}
			if err := e.Type(t); err != nil {
				return err
			}
		}
	}
}

// Backspace deletes the selection or the character before the caret. At
// the start of a page it removes the page when it is empty and otherwise
// moves to the end of the previous page, or joins the two pages when
// backspace merging is on. The first page is never removed.
func (e *Editor) Backspace() error {
	if err := e.locked(); err != nil {
		return err
	}
	c := e.caret.Normalize()
	if !c.Collapsed() || c.Start > 0 {
		return e.Edit(func(root *html.Node, sel richtext.Range) (richtext.Range, error) {
			if sel.Start == sel.End {
				sel.Start--
			}
			richtext.DeleteRange(root, sel)
			return richtext.Range{Start: sel.Start, End: sel.Start}, nil
		})
	}
	i := c.Page
	if i == 0 {
		return nil
	}
	prevLen := e.pageLen(i - 1)

	switch {
	case e.doc.IsBlank(i):
		if err := e.removePending(i); err != nil {
			return nil
		}
		e.ensureSurfaces()
	case e.backspaceMerge:
		merged := e.doc.Pages[i-1].HTML + e.doc.Pages[i].HTML
		if err := e.removePending(i); err != nil {
			return nil
		}
		e.setPage(i-1, html.Canonical(merged))
		e.syncSurfaces()
		e.reflowFrom(i - 1)
	}
	e.focus(document.At(i-1, prevLen))
	e.applyFocus()
	return nil
}

// setPage stores fragment as page i's content.
func (e *Editor) setPage(i int, fragment string) {
	if err := e.doc.SetHTML(i, fragment); err != nil {
		e.log.Error().Err(err).Int("page", i).Msg("page content not stored")
	}
}

// removePending marks page i PendingRemoval and removes it. The mark is
// cleared again if the page cannot go.
func (e *Editor) removePending(i int) error {
	e.doc.Pages[i].State = document.PendingRemoval
	e.log.Debug().Int("page", i).Stringer("state", e.doc.Pages[i].State).Msg("removing page")
	if err := e.doc.Remove(i); err != nil {
		e.doc.Pages[i].State = document.Normal
		e.log.Warn().Err(err).Int("page", i).Msg("page kept")
		return err
	}
	return nil
}

// InsertPageBreak inserts an empty page after the current one and puts the
// caret at its start. The current page is left as it is.
func (e *Editor) InsertPageBreak() error {
	if err := e.locked(); err != nil {
		return err
	}
	next, err := e.doc.InsertAfter(e.caret.Page, "")
	if err != nil {
		return err
	}
	e.syncSurfaces()
	e.focus(document.At(next, 0))
	return nil
}

// AddPage appends an empty page. The caret stays where it is.
func (e *Editor) AddPage() error {
	if err := e.locked(); err != nil {
		return err
	}
	e.doc.Append("")
	e.ensureSurfaces()
	return nil
}

// RemovePage deletes page i, keeping at least one page.
func (e *Editor) RemovePage(i int) error {
	if err := e.locked(); err != nil {
		return err
	}
	if err := e.doc.Remove(i); err != nil {
		return err
	}
	e.ensureSurfaces()
	e.tracker.Poll()
	if e.caret.Page >= i {
		p := max(e.caret.Page-1, 0)
		e.focus(document.At(p, 0))
	}
	return nil
}

// ReplaceAll replaces text across every page and reflows.
func (e *Editor) ReplaceAll(find, replacement string, matchCase bool) int {
	if e.readOnly {
		return 0
	}
	n := e.doc.Replace(find, replacement, matchCase)
	if n > 0 {
		e.syncSurfaces()
		e.reflowFrom(0)
		e.focus(e.caret.Clamp(e.pageLen(e.caret.Page)))
	}
	return n
}

func (e *Editor) Rename(title string) { e.doc.Rename(title) }

// AddSignature stamps an image on the caret's page and selects it.
func (e *Editor) AddSignature(src string) (document.Annotation, error) {
	a, err := e.doc.AddAnnotation(e.doc.Pages[e.caret.Page].ID, src)
	if err != nil {
		return a, err
	}
	e.tracker.Select(overlaySignature(a.ID))
	return a, nil
}

// reflowFrom runs a reflow pass from page i, refreshes the surfaces it
// touched and carries the caret along with the text it was in.
func (e *Editor) reflowFrom(i int) {
	before := e.caret
	res := e.reflow.Run(e.doc, i)
	if len(res.Touched) == 0 {
		return
	}
	e.syncSurfaces()
	if res.PagesCreated > 0 && !e.announced {
		e.announced = true
		e.notices.Info(NewPageNotice)
	}
	e.migrateCaret(before)
	e.tracker.Poll()
}

// migrateCaret follows text moved forward by reflow: an offset past the
// end of its page continues on the following pages.
func (e *Editor) migrateCaret(c document.Caret) {
	if c.Page >= e.doc.Len() {
		c = document.At(e.doc.Len()-1, 0)
	}
	start, length := c.Start, c.Length()
	p := c.Page
	for p+1 < e.doc.Len() {
		n := e.pageLen(p)
		if start <= n {
			break
		}
		start -= n
		p++
	}
	moved := document.Caret{Page: p, Start: start, End: start + length}
	e.focus(moved.Clamp(e.pageLen(p)))
}
