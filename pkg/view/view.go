// Package view projects page fragments into their two renderings: the live
// editable surface shown on screen and a static copy used for print and
// export. Exactly one of the two is visible at a time.
package view

import (
	"strconv"

	"pageflow/pkg/css"
	"pageflow/pkg/document"
	"pageflow/pkg/html"
	"pageflow/pkg/page"
	"pageflow/pkg/surface"
)

type Mode int

const (
	Screen Mode = iota
	Print
)

func (m Mode) String() string {
	if m == Print {
		return "print"
	}
	return "screen"
}

// Class names of the static page structure.
const (
	PageClass       = "page"
	BodyClass       = "page-body"
	AnnotationClass = "annotation"
)

// editingAttributes never reach the static view.
var editingAttributes = []string{"contenteditable", "data-selected", "spellcheck"}

type PageView struct {
	Index           int            `json:"index"`
	PageID          string         `json:"pageId"`
	State           document.State `json:"state"`
	Editable        string         `json:"editable"`
	Static          string         `json:"static"`
	EditableVisible bool           `json:"editableVisible"`
	StaticVisible   bool           `json:"staticVisible"`
}

// Visible returns the markup of the view the mode shows.
func (v PageView) Visible() string {
	if v.StaticVisible {
		return v.Static
	}
	return v.Editable
}

// Render produces one view pair per page. Surfaces are looked up by page ID;
// a page without one renders its editable view from the stored fragment.
func Render(doc *document.Document, surfaces map[string]*surface.Surface, mode Mode) []PageView {
	views := make([]PageView, len(doc.Pages))
	for i, p := range doc.Pages {
		annotations := doc.AnnotationsFor(p.ID)
		var editable string
		if s, ok := surfaces[p.ID]; ok && !s.Detached() {
			editable = s.Render()
		} else {
			editable = surface.New(p.ID, p.HTML, true, nil).Render()
		}
		views[i] = PageView{
			Index:           i,
			PageID:          p.ID,
			State:           p.State,
			Editable:        frame(editable, doc.Settings, i),
			Static:          Static(p.HTML, doc.Settings, annotations),
			EditableVisible: mode == Screen,
			StaticVisible:   mode == Print,
		}
	}
	return views
}

// Static renders a fragment as a fixed-geometry, non-interactive page. It
// is a pure function of its arguments.
func Static(fragment string, settings page.Settings, annotations []document.Annotation) string {
	root := html.MustFragment(fragment)
	root.Walk(func(n *html.Node) bool {
		for _, attr := range editingAttributes {
			n.RemoveAttribute(attr)
		}
		return true
	})

	g := settings.Geometry()
	body := html.NewElement("div", map[string]string{
		"class": BodyClass,
		"style": styleString(
			"position", "absolute",
			"left", css.FormatPx(g.Margin.Left),
			"top", css.FormatPx(g.Margin.Top),
			"width", css.FormatPx(g.ContentWidth),
			"height", css.FormatPx(g.ContentHeight),
			"overflow", "hidden",
		),
	})
	for _, c := range append([]*html.Node(nil), root.Children...) {
		body.AddChild(c)
	}

	pageEl := pageContainer(settings)
	pageEl.AddChild(body)
	for _, a := range annotations {
		pageEl.AddChild(annotationImage(a))
	}
	return pageEl.SerializeOuter()
}

func pageContainer(settings page.Settings) *html.Node {
	g := settings.Geometry()
	return html.NewElement("div", map[string]string{
		"class": PageClass,
		"style": styleString(
			"position", "relative",
			"width", css.FormatPx(g.Width),
			"height", css.FormatPx(g.Height),
			"overflow", "hidden",
			"background-color", "white",
		),
	})
}

func annotationImage(a document.Annotation) *html.Node {
	return html.NewElement("img", map[string]string{
		"class":           AnnotationClass,
		"data-annotation": a.ID,
		"src":             a.ImageData,
		"style": styleString(
			"position", "absolute",
			"left", css.FormatPx(a.X),
			"top", css.FormatPx(a.Y),
			"width", css.FormatPx(a.Width),
			"height", css.FormatPx(a.Height),
		),
	})
}

// frame puts surface markup inside the page box with its margins as padding.
func frame(inner string, settings page.Settings, index int) string {
	g := settings.Geometry()
	pageEl := pageContainer(settings)
	pageEl.SetAttribute("data-page-index", strconv.Itoa(index))
	s := css.ParseInlineStyle(pageEl.Attributes["style"])
	s.Set("padding", css.FormatPx(g.Margin.Top)+" "+css.FormatPx(g.Margin.Right)+" "+css.FormatPx(g.Margin.Bottom)+" "+css.FormatPx(g.Margin.Left))
	s.Set("box-sizing", "border-box")
	pageEl.SetAttribute("style", s.String())
	content := html.MustFragment(inner)
	for _, c := range append([]*html.Node(nil), content.Children...) {
		pageEl.AddChild(c)
	}
	return pageEl.SerializeOuter()
}

func styleString(kv ...string) string {
	s := css.NewStyle()
	for i := 0; i+1 < len(kv); i += 2 {
		s.Set(kv[i], kv[i+1])
	}
	return s.String()
}
