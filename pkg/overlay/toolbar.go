package overlay

import (
	"fmt"

	"pageflow/pkg/css"
	"pageflow/pkg/html"
)

// Placement is how an image sits relative to the surrounding text.
type Placement string

const (
	PlaceInline    Placement = "inline"
	PlaceFloating  Placement = "floating"
	PlaceWrapLeft  Placement = "wrap-left"
	PlaceWrapRight Placement = "wrap-right"
	PlaceBehind    Placement = "behind"
	PlaceFront     Placement = "front"
)

// Z-index values used by the placement modes.
const (
	ZBehind   = 0
	ZFloating = 10
	ZFront    = 20
)

// Cell style used for rows and columns added from the table toolbar.
const CellStyle = "padding: 8px; border: 1px solid #cbd5e1"

func editStyle(el *html.Node, fn func(*css.Style)) {
	v, _ := el.GetAttribute("style")
	s := css.ParseInlineStyle(v)
	fn(s)
	if s.Len() == 0 {
		el.RemoveAttribute("style")
		return
	}
	el.SetAttribute("style", s.String())
}

// Place applies an image placement mode.
func Place(el *html.Node, p Placement) error {
	var err error
	editStyle(el, func(s *css.Style) {
		switch p {
		case PlaceInline:
			s.Set("position", "static")
			s.Set("float", "none")
			s.Delete("z-index")
			s.Delete("left")
			s.Delete("top")
		case PlaceFloating:
			absolute(s, ZFloating)
		case PlaceWrapLeft, PlaceWrapRight:
			s.Set("position", "static")
			if p == PlaceWrapLeft {
				s.Set("float", "left")
			} else {
				s.Set("float", "right")
			}
			s.Delete("z-index")
		case PlaceBehind:
			absolute(s, ZBehind)
		case PlaceFront:
			absolute(s, ZFront)
		default:
			err = fmt.Errorf("unknown placement %q", p)
		}
	})
	return err
}

func absolute(s *css.Style, z int) {
	s.Set("position", "absolute")
	s.Set("float", "none")
	s.Set("z-index", fmt.Sprint(z))
	if _, ok := s.Get("left"); !ok {
		s.Set("left", "0px")
	}
	if _, ok := s.Get("top"); !ok {
		s.Set("top", "0px")
	}
}

// SetFloating toggles a table or rule between flow and floating placement.
func SetFloating(el *html.Node, floating bool) {
	if floating {
		editStyle(el, func(s *css.Style) { absolute(s, ZFloating) })
		return
	}
	_ = Place(el, PlaceInline)
}

// SetTableWidth sets a table to full width ("100%") or automatic width.
func SetTableWidth(table *html.Node, full bool) {
	editStyle(table, func(s *css.Style) {
		if full {
			s.Set("width", "100%")
		} else {
			s.Set("width", "auto")
		}
	})
}

func rows(table *html.Node) []*html.Node {
	var out []*html.Node
	for _, c := range table.Children {
		switch c.TagName {
		case "tr":
			out = append(out, c)
		case "thead", "tbody", "tfoot":
			for _, r := range c.Children {
				if r.TagName == "tr" {
					out = append(out, r)
				}
			}
		}
	}
	return out
}

func cells(row *html.Node) []*html.Node {
	var out []*html.Node
	for _, c := range row.Children {
		if c.TagName == "td" || c.TagName == "th" {
			out = append(out, c)
		}
	}
	return out
}

// NewCell returns an empty table cell holding a non-breaking space.
func NewCell() *html.Node {
	td := html.NewElement("td", map[string]string{"style": CellStyle})
	td.AppendText("\u00a0")
	return td
}

// TableShape returns the row count and the widest row's cell count.
func TableShape(table *html.Node) (int, int) {
	rs := rows(table)
	cols := 0
	for _, r := range rs {
		cols = max(cols, len(cells(r)))
	}
	return len(rs), cols
}

// AddRow appends a row as wide as the widest existing row.
func AddRow(table *html.Node) {
	rs := rows(table)
	_, cols := TableShape(table)
	cols = max(cols, 1)
	tr := html.NewElement("tr", nil)
	for range cols {
		tr.AddChild(NewCell())
	}
	if len(rs) > 0 {
		rs[len(rs)-1].Parent.AddChild(tr)
		return
	}
	tbody := html.NewElement("tbody", nil)
	tbody.AddChild(tr)
	table.AddChild(tbody)
}

// DeleteRow removes the last row. The last remaining row is kept.
func DeleteRow(table *html.Node) bool {
	rs := rows(table)
	if len(rs) <= 1 {
		return false
	}
	last := rs[len(rs)-1]
	last.Parent.RemoveChild(last)
	return true
}

// AddColumn appends a cell to every row.
func AddColumn(table *html.Node) {
	for _, r := range rows(table) {
		r.AddChild(NewCell())
	}
}

// DeleteColumn removes the last cell of every row that has more than one.
func DeleteColumn(table *html.Node) bool {
	changed := false
	for _, r := range rows(table) {
		cs := cells(r)
		if len(cs) > 1 {
			r.RemoveChild(cs[len(cs)-1])
			changed = true
		}
	}
	return changed
}

// Rule thickness bounds, in pixels.
const (
	MinRuleThickness = 1
	MaxRuleThickness = 20
)

// SetRuleThickness sets a rule's height, clamped to the allowed range.
func SetRuleThickness(rule *html.Node, px float64) {
	px = min(max(px, MinRuleThickness), MaxRuleThickness)
	editStyle(rule, func(s *css.Style) { s.Set("height", css.FormatPx(px)) })
}

// SetRuleColor paints a rule.
func SetRuleColor(rule *html.Node, color string) error {
	if _, ok := css.ParseColor(color); !ok {
		return fmt.Errorf("invalid color %q", color)
	}
	editStyle(rule, func(s *css.Style) { s.Set("background-color", color) })
	return nil
}

// SetRuleStyle draws the rule as a solid, dashed or dotted top border.
func SetRuleStyle(rule *html.Node, lineStyle string) error {
	switch lineStyle {
	case "solid", "dashed", "dotted":
	default:
		return fmt.Errorf("unknown rule style %q", lineStyle)
	}
	editStyle(rule, func(s *css.Style) {
		color, ok := s.Get("background-color")
		if !ok {
			color = "black"
		}
		s.Set("border", "none")
		s.Set("border-top", fmt.Sprintf("2px %s %s", lineStyle, color))
	})
	return nil
}

// Remove deletes the anchored element from its fragment.
func Remove(el *html.Node) {
	if el.Parent != nil {
		el.Parent.RemoveChild(el)
	}
}
