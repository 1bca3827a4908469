package richtext

import (
	"github.com/google/uuid"

	"pageflow/pkg/html"
)

// AnchorAttribute marks elements the overlay layer can select.
const AnchorAttribute = "data-anchor"

const (
	tableStyle = "width: 100%; border-collapse: collapse; margin: 10px 0; border: 1px solid #cbd5e1"
	cellStyle  = "padding: 8px; border: 1px solid #cbd5e1; min-width: 50px"
)

// trailingParagraph keeps a caret position after inserted block content.
func trailingParagraph() *html.Node {
	p := html.NewElement("p", nil)
	p.AddChild(html.NewElement("br", nil))
	return p
}

// TableHTML builds an empty rows x cols table followed by an empty
// paragraph.
func TableHTML(rows, cols int) string {
	rows, cols = max(rows, 1), max(cols, 1)
	root := html.NewRoot()
	table := html.NewElement("table", map[string]string{"style": tableStyle})
	tbody := html.NewElement("tbody", nil)
	for range rows {
		tr := html.NewElement("tr", nil)
		for range cols {
			td := html.NewElement("td", map[string]string{"style": cellStyle})
			td.AppendText("\u00a0")
			tr.AddChild(td)
		}
		tbody.AddChild(tr)
	}
	table.AddChild(tbody)
	root.AddChild(table)
	root.AddChild(trailingParagraph())
	return root.Serialize()
}

// RuleHTML builds a horizontal rule followed by an empty paragraph. Empty
// arguments take the defaults 100%, 2px and black.
func RuleHTML(width, height, color string) string {
	if width == "" {
		width = "100%"
	}
	if height == "" {
		height = "2px"
	}
	if color == "" {
		color = "black"
	}
	root := html.NewRoot()
	hr := html.NewElement("hr", map[string]string{
		"style": "width: " + width + "; height: " + height + "; background-color: " + color + "; border: none; margin: 10px 0",
	})
	root.AddChild(hr)
	root.AddChild(trailingParagraph())
	return root.Serialize()
}

// ImageHTML builds an inline image.
func ImageHTML(src string) string {
	return html.NewElement("img", map[string]string{"src": src}).SerializeOuter()
}

// EnsureAnchors gives every image, table and rule under root a stable
// anchor id and returns how many it assigned.
func EnsureAnchors(root *html.Node) int {
	n := 0
	for _, el := range root.ElementsByTag("img", "table", "hr") {
		if v, ok := el.GetAttribute(AnchorAttribute); ok && v != "" {
			continue
		}
		el.SetAttribute(AnchorAttribute, uuid.NewString())
		n++
	}
	return n
}

// AnchorKind names the overlay kind of an anchored element.
func AnchorKind(el *html.Node) string {
	switch el.TagName {
	case "img":
		return "image"
	case "table":
		return "table"
	case "hr":
		return "rule"
	}
	return ""
}
