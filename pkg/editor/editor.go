// Package editor runs one editing session over a document: it keeps a live
// surface per page, reflows overflow after every edit, tracks the caret and
// the overlay selection, and dispatches menu commands.
//
// An Editor is not safe for concurrent use. It is owned by a single loop
// (the UI loop, or a server connection's session loop) that handles one
// input at a time, so a reflow cascade always finishes before the next
// input is read.
package editor

import (
	"github.com/rs/zerolog"

	"pageflow/pkg/command"
	"pageflow/pkg/document"
	"pageflow/pkg/layout"
	"pageflow/pkg/notify"
	"pageflow/pkg/overlay"
	"pageflow/pkg/page"
	"pageflow/pkg/reflow"
	"pageflow/pkg/surface"
	"pageflow/pkg/text"
	"pageflow/pkg/view"
)

// NewPageNotice is shown the first time a reflow adds a page.
const NewPageNotice = "New page added"

// DefaultPageGap is the vertical space between stacked pages on screen.
const DefaultPageGap = 20.0

type Editor struct {
	doc        *document.Document
	layout     *layout.Engine
	reflow     *reflow.Engine
	reflowOpts []reflow.Option
	commands   *command.Dispatcher
	notices    *notify.Feed
	tracker    *overlay.Tracker
	log        zerolog.Logger

	surfaces       map[string]*surface.Surface
	readOnly       bool
	mode           view.Mode
	backspaceMerge bool
	pageGap        float64

	caret        document.Caret
	pendingFocus *document.Caret
	saved        *document.Caret
	announced    bool
}

type Option func(*Editor)

func WithLogger(l zerolog.Logger) Option {
	return func(e *Editor) { e.log = l }
}

// WithLayout replaces the layout engine used for overflow and hit testing.
func WithLayout(l *layout.Engine) Option {
	return func(e *Editor) { e.layout = l }
}

func WithNotices(f *notify.Feed) Option {
	return func(e *Editor) { e.notices = f }
}

// WithBackspaceMerge makes backspace at the start of a non-empty page join
// it onto the previous page.
func WithBackspaceMerge(on bool) Option {
	return func(e *Editor) { e.backspaceMerge = on }
}

func WithReadOnly(on bool) Option {
	return func(e *Editor) { e.readOnly = on }
}

func WithPageGap(px float64) Option {
	return func(e *Editor) { e.pageGap = px }
}

// WithReflowOptions configures the reflow engine.
func WithReflowOptions(opts ...reflow.Option) Option {
	return func(e *Editor) { e.reflowOpts = append(e.reflowOpts, opts...) }
}

// New opens doc for editing. A nil doc starts a blank one.
func New(doc *document.Document, opts ...Option) *Editor {
	if doc == nil {
		doc = document.New("")
	}
	e := &Editor{
		doc:      doc,
		log:      zerolog.Nop(),
		surfaces: make(map[string]*surface.Surface),
		pageGap:  DefaultPageGap,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.layout == nil {
		e.layout = layout.NewEngine(text.NewGGMeasurer(text.FontConfig{}), layout.WithLogger(e.log))
	}
	if e.notices == nil {
		e.notices = notify.NewFeed(notify.WithLogger(e.log))
	}
	e.reflow = reflow.New(e.layout, append([]reflow.Option{reflow.WithLogger(e.log)}, e.reflowOpts...)...)
	e.commands = command.New(command.WithLogger(e.log))
	e.tracker = overlay.NewTracker(e, e, overlay.WithLogger(e.log))
	e.ensureSurfaces()
	e.reflowFrom(0)
	return e
}

func (e *Editor) Document() *document.Document  { return e.doc }
func (e *Editor) Notices() *notify.Feed         { return e.notices }
func (e *Editor) Tracker() *overlay.Tracker     { return e.tracker }
func (e *Editor) Commands() *command.Dispatcher { return e.commands }
func (e *Editor) ReadOnly() bool                { return e.readOnly }
func (e *Editor) Mode() view.Mode               { return e.mode }
func (e *Editor) Layout() *layout.Engine        { return e.layout }

// Surface returns the live surface of page i.
func (e *Editor) Surface(i int) *surface.Surface {
	if i < 0 || i >= e.doc.Len() {
		return nil
	}
	e.ensureSurfaces()
	return e.surfaces[e.doc.Pages[i].ID]
}

// SetReadOnly switches between edit and view mode.
func (e *Editor) SetReadOnly(on bool) {
	e.readOnly = on
	for _, s := range e.surfaces {
		s.SetEditable(!on)
	}
}

// SetMode switches between the editable screen view and the print view.
func (e *Editor) SetMode(m view.Mode) { e.mode = m }

// SetSettings changes the page geometry and reflows the whole document.
func (e *Editor) SetSettings(s page.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.doc.Settings = s
	for id, sf := range e.surfaces {
		sf.Detach()
		delete(e.surfaces, id)
	}
	e.ensureSurfaces()
	e.reflowFrom(0)
	return nil
}

// Load replaces the open document, e.g. after an import or a restore.
func (e *Editor) Load(doc *document.Document) {
	for id, s := range e.surfaces {
		s.Detach()
		delete(e.surfaces, id)
	}
	e.tracker.Clear()
	e.doc = doc
	e.caret = document.Caret{}
	e.focus(document.Caret{})
	e.ensureSurfaces()
	e.reflowFrom(0)
}

func (e *Editor) meter() surface.Meter {
	return surface.LayoutMeter{Engine: e.layout, Geometry: e.doc.Settings.Geometry()}
}

// ensureSurfaces creates surfaces for new pages and detaches the surfaces
// of removed ones.
func (e *Editor) ensureSurfaces() {
	live := make(map[string]bool, e.doc.Len())
	for _, p := range e.doc.Pages {
		live[p.ID] = true
		if _, ok := e.surfaces[p.ID]; !ok {
			e.surfaces[p.ID] = surface.New(p.ID, p.HTML, !e.readOnly, e.meter(), surface.WithLogger(e.log))
		}
	}
	for id, s := range e.surfaces {
		if !live[id] {
			s.Detach()
			delete(e.surfaces, id)
		}
	}
}

// syncSurfaces pushes stored fragments into the surfaces. The sync guard
// leaves unchanged pages alone.
func (e *Editor) syncSurfaces() {
	e.ensureSurfaces()
	for _, p := range e.doc.Pages {
		e.surfaces[p.ID].Sync(p.HTML)
	}
}

// Frame is everything a client needs to draw the session.
type Frame struct {
	Title       string             `json:"title"`
	Mode        string             `json:"mode"`
	ReadOnly    bool               `json:"readOnly"`
	Pages       []view.PageView    `json:"pages"`
	Caret       document.Caret     `json:"caret"`
	Selection   *overlay.Selection `json:"selection,omitempty"`
	OverlayRect *layout.Rect       `json:"overlayRect,omitempty"`
	Notices     []notify.Notice    `json:"notices"`
}

// Render applies pending focus now that every page has a surface, and
// returns the frame to draw.
func (e *Editor) Render() Frame {
	e.ensureSurfaces()
	e.applyFocus()
	f := Frame{
		Title:    e.doc.Title,
		Mode:     e.mode.String(),
		ReadOnly: e.readOnly,
		Pages:    view.Render(e.doc, e.surfaces, e.mode),
		Caret:    e.caret,
		Notices:  e.notices.Active(),
	}
	if sel, ok := e.tracker.Selected(); ok {
		f.Selection = &sel
		if r, ok := e.tracker.Rect(); ok {
			f.OverlayRect = &r
		}
	}
	return f
}
