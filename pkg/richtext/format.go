package richtext

import (
	"strings"

	"pageflow/pkg/css"
	"pageflow/pkg/html"
)

// inlineFormat describes a toggleable inline format.
type inlineFormat struct {
	tag     string
	prop    string
	matches func(*html.Node) bool
}

func tagOrStyle(tags []string, prop string, test func(string) bool) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		for _, t := range tags {
			if n.TagName == t {
				return true
			}
		}
		if v, ok := css.ParseInlineStyle(n.Attributes["style"]).Get(prop); ok {
			return test(v)
		}
		return false
	}
}

var (
	bold = inlineFormat{"b", "font-weight", tagOrStyle([]string{"b", "strong"}, "font-weight", func(v string) bool {
		return v == "bold" || v == "bolder" || v >= "600" && v <= "900"
	})}
	italic = inlineFormat{"i", "font-style", tagOrStyle([]string{"i", "em"}, "font-style", func(v string) bool {
		return v == "italic" || v == "oblique"
	})}
	underline = inlineFormat{"u", "text-decoration", tagOrStyle([]string{"u", "ins"}, "text-decoration", func(v string) bool {
		return strings.Contains(v, "underline")
	})}
	strike = inlineFormat{"s", "text-decoration", tagOrStyle([]string{"s", "strike", "del"}, "text-decoration", func(v string) bool {
		return strings.Contains(v, "line-through")
	})}
	superscript = inlineFormat{"sup", "vertical-align", tagOrStyle([]string{"sup"}, "vertical-align", func(v string) bool { return v == "super" })}
	subscript   = inlineFormat{"sub", "vertical-align", tagOrStyle([]string{"sub"}, "vertical-align", func(v string) bool { return v == "sub" })}
)

func ToggleBold(root *html.Node, r Range) bool      { return toggle(root, r, bold) }
func ToggleItalic(root *html.Node, r Range) bool    { return toggle(root, r, italic) }
func ToggleUnderline(root *html.Node, r Range) bool { return toggle(root, r, underline) }
func ToggleStrike(root *html.Node, r Range) bool    { return toggle(root, r, strike) }
func Superscript(root *html.Node, r Range) bool     { return toggle(root, r, superscript) }
func Subscript(root *html.Node, r Range) bool       { return toggle(root, r, subscript) }

// IsBold reports whether every character in r is bold.
func IsBold(root *html.Node, r Range) bool { return allFormatted(root, r, bold) }

func IsItalic(root *html.Node, r Range) bool    { return allFormatted(root, r, italic) }
func IsUnderline(root *html.Node, r Range) bool { return allFormatted(root, r, underline) }

func allFormatted(root *html.Node, r Range, f inlineFormat) bool {
	nodes := textIn(root, r)
	defer mergeAdjacent(root)
	if len(nodes) == 0 {
		return false
	}
	for _, t := range nodes {
		if t.ClosestAncestor(root, f.matches) == nil {
			return false
		}
	}
	return true
}

// toggle removes the format when all of r carries it and applies it to the
// rest otherwise. It reports whether anything changed.
func toggle(root *html.Node, r Range, f inlineFormat) bool {
	nodes := textIn(root, r)
	if len(nodes) == 0 {
		return false
	}
	all := true
	for _, t := range nodes {
		if t.ClosestAncestor(root, f.matches) == nil {
			all = false
			break
		}
	}
	for _, t := range nodes {
		if all {
			unformat(root, t, f)
		} else if t.ClosestAncestor(root, f.matches) == nil {
			wrap(t, html.NewElement(f.tag, nil))
		}
	}
	tidy(root)
	return true
}

func wrap(n, el *html.Node) {
	parent := n.Parent
	parent.InsertBefore(el, n)
	el.AddChild(n)
}

// unformat strips every matching ancestor from t. Tag formats are unwrapped;
// style formats lose the property and are unwrapped once their style is
// empty.
func unformat(root, t *html.Node, f inlineFormat) {
	for {
		anc := t.ClosestAncestor(root, f.matches)
		if anc == nil || isBlock(anc) {
			return
		}
		isolate(anc, t)
		s := css.ParseInlineStyle(anc.Attributes["style"])
		if _, ok := s.Get(f.prop); ok {
			s.Delete(f.prop)
			if s.Len() == 0 {
				anc.RemoveAttribute("style")
			} else {
				anc.SetAttribute("style", s.String())
			}
			if !f.matches(anc) && (anc.TagName != "span" || len(anc.Attributes) > 0) {
				continue
			}
		}
		anc.Unwrap()
	}
}

func SetFontFamily(root *html.Node, r Range, family string) bool {
	return setStyle(root, r, "font-family", family)
}

// SetFontSize accepts a CSS length or a legacy 1-7 size.
func SetFontSize(root *html.Node, r Range, size string) bool {
	if px, ok := css.FontSizeKeyword(size); ok {
		size = css.FormatPx(px)
	}
	return setStyle(root, r, "font-size", size)
}

func SetForeColor(root *html.Node, r Range, color string) bool {
	return setStyle(root, r, "color", color)
}

func SetHighlight(root *html.Node, r Range, color string) bool {
	return setStyle(root, r, "background-color", color)
}

// setStyle sets prop on a span around each text node in r, reusing a span
// that wraps exactly that text node.
func setStyle(root *html.Node, r Range, prop, value string) bool {
	nodes := textIn(root, r)
	if len(nodes) == 0 {
		return false
	}
	for _, t := range nodes {
		span := t.Parent
		if span == root || span.TagName != "span" || len(span.Children) != 1 {
			span = html.NewElement("span", nil)
			wrap(t, span)
		}
		s := css.ParseInlineStyle(span.Attributes["style"])
		s.Set(prop, value)
		span.SetAttribute("style", s.String())
	}
	tidy(root)
	return true
}

var formattingTags = map[string]bool{
	"b": true, "strong": true, "i": true, "em": true, "u": true, "ins": true,
	"s": true, "strike": true, "del": true, "sup": true, "sub": true,
	"span": true, "font": true, "mark": true, "code": true, "small": true, "big": true,
}

// RemoveFormatting strips inline formatting elements around the text in r.
func RemoveFormatting(root *html.Node, r Range) bool {
	nodes := textIn(root, r)
	if len(nodes) == 0 {
		return false
	}
	isFormatting := func(n *html.Node) bool { return formattingTags[n.TagName] }
	for _, t := range nodes {
		for {
			anc := t.ClosestAncestor(root, isFormatting)
			if anc == nil {
				break
			}
			isolate(anc, t)
			anc.Unwrap()
		}
	}
	tidy(root)
	return true
}

// Format is the inline formatting at one point, as captured by paint
// format.
type Format struct {
	Bold       bool   `json:"bold"`
	Italic     bool   `json:"italic"`
	Underline  bool   `json:"underline"`
	FontFamily string `json:"fontFamily,omitempty"`
	FontSize   string `json:"fontSize,omitempty"`
	Color      string `json:"color,omitempty"`
	Highlight  string `json:"highlight,omitempty"`
}

// FormatAt captures the formatting of the character before offset.
func FormatAt(root *html.Node, offset int) Format {
	var f Format
	t := textAt(root, offset)
	if t == nil {
		return f
	}
	f.Bold = t.ClosestAncestor(root, bold.matches) != nil
	f.Italic = t.ClosestAncestor(root, italic.matches) != nil
	f.Underline = t.ClosestAncestor(root, underline.matches) != nil
	for p := t.Parent; p != nil && p != root; p = p.Parent {
		s := css.ParseInlineStyle(p.Attributes["style"])
		pick := func(dst *string, prop string) {
			if v, ok := s.Get(prop); ok && *dst == "" {
				*dst = v
			}
		}
		pick(&f.FontFamily, "font-family")
		pick(&f.FontSize, "font-size")
		pick(&f.Color, "color")
		pick(&f.Highlight, "background-color")
		if p.TagName == "font" {
			if v, ok := p.GetAttribute("face"); ok && f.FontFamily == "" {
				f.FontFamily = v
			}
			if v, ok := p.GetAttribute("color"); ok && f.Color == "" {
				f.Color = v
			}
		}
	}
	return f
}

// ApplyFormat replays a captured format over r: bold, italic, underline,
// font, size, color and highlight, in that order.
func ApplyFormat(root *html.Node, r Range, f Format) bool {
	if r.Normalize(textLen(root)).Collapsed() {
		return false
	}
	for _, step := range []struct {
		want bool
		f    inlineFormat
	}{{f.Bold, bold}, {f.Italic, italic}, {f.Underline, underline}} {
		if allFormatted(root, r, step.f) != step.want {
			toggle(root, r, step.f)
		}
	}
	if f.FontFamily != "" {
		SetFontFamily(root, r, f.FontFamily)
	}
	if f.FontSize != "" {
		SetFontSize(root, r, f.FontSize)
	}
	if f.Color != "" {
		SetForeColor(root, r, f.Color)
	}
	if f.Highlight != "" {
		SetHighlight(root, r, f.Highlight)
	}
	return true
}
