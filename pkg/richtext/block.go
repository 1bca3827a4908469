package richtext

import (
	"fmt"

	"pageflow/pkg/css"
	"pageflow/pkg/html"
)

type Alignment string

const (
	AlignLeft    Alignment = "left"
	AlignCenter  Alignment = "center"
	AlignRight   Alignment = "right"
	AlignJustify Alignment = "justify"
)

// IndentStep is the left margin added by one Indent.
const IndentStep = 40.0

// blocksIn returns the blocks holding r's text in document order. Inline
// content directly under root is wrapped in a div first.
func blocksIn(root *html.Node, r Range) []*html.Node {
	var texts []*html.Node
	if r.Normalize(textLen(root)).Collapsed() {
		if t := textAt(root, r.Start); t != nil {
			texts = []*html.Node{t}
		}
	} else {
		texts = textIn(root, r)
	}
	if len(texts) == 0 {
		c := emptyContainer(root)
		if c == root {
			c = html.NewElement("div", nil)
			c.AddChild(html.NewElement("br", nil))
			root.AddChild(c)
		}
		return []*html.Node{c}
	}
	seen := map[*html.Node]bool{}
	var out []*html.Node
	for _, t := range texts {
		b := ensureBlock(root, t)
		if !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	return out
}

func ensureBlock(root, n *html.Node) *html.Node {
	if b := n.ClosestAncestor(root, isBlock); b != nil {
		return b
	}
	top := n
	for top.Parent != root {
		top = top.Parent
	}
	start, end := top.IndexInParent(), top.IndexInParent()
	for start > 0 && !isBlock(root.Children[start-1]) {
		start--
	}
	for end+1 < len(root.Children) && !isBlock(root.Children[end+1]) {
		end++
	}
	div := html.NewElement("div", nil)
	run := append([]*html.Node(nil), root.Children[start:end+1]...)
	root.InsertBefore(div, run[0])
	for _, c := range run {
		div.AddChild(c)
	}
	return div
}

func editStyle(el *html.Node, fn func(*css.Style)) {
	s := css.ParseInlineStyle(el.Attributes["style"])
	fn(s)
	if s.Len() == 0 {
		el.RemoveAttribute("style")
		return
	}
	el.SetAttribute("style", s.String())
}

// Align sets text-align on every block in r.
func Align(root *html.Node, r Range, a Alignment) error {
	switch a {
	case AlignLeft, AlignCenter, AlignRight, AlignJustify:
	default:
		return fmt.Errorf("unknown alignment %q", a)
	}
	for _, b := range blocksIn(root, r) {
		editStyle(b, func(s *css.Style) { s.Set("text-align", string(a)) })
	}
	return nil
}

// Indent shifts every block in r right by IndentStep.
func Indent(root *html.Node, r Range) {
	shift(root, r, IndentStep)
}

// Outdent undoes one Indent. Blocks never get a negative margin.
func Outdent(root *html.Node, r Range) {
	shift(root, r, -IndentStep)
}

func shift(root *html.Node, r Range, by float64) {
	for _, b := range blocksIn(root, r) {
		editStyle(b, func(s *css.Style) {
			cur, _ := s.GetLength("margin-left")
			next := cur + by
			if next <= 0 {
				s.Delete("margin-left")
				return
			}
			s.Set("margin-left", css.FormatPx(next))
		})
	}
}

var listable = map[string]bool{
	"p": true, "div": true, "li": true, "blockquote": true, "pre": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// InsertList turns the blocks in r into one list. When r already covers a
// whole list of the same kind, the list is turned back into paragraphs.
func InsertList(root *html.Node, r Range, ordered bool) {
	tag := "ul"
	if ordered {
		tag = "ol"
	}
	var blocks []*html.Node
	for _, b := range blocksIn(root, r) {
		if listable[b.TagName] {
			blocks = append(blocks, b)
		}
	}
	if len(blocks) == 0 {
		return
	}

	if list := commonList(blocks, tag); list != nil {
		var paras []*html.Node
		for _, li := range list.Children {
			if li.TagName != "li" {
				continue
			}
			p := html.NewElement("p", nil)
			for _, c := range append([]*html.Node(nil), li.Children...) {
				p.AddChild(c)
			}
			paras = append(paras, p)
		}
		list.ReplaceWith(paras...)
		return
	}

	list := html.NewElement(tag, nil)
	first := blocks[0]
	if first.TagName == "li" && first.Parent != nil {
		first = first.Parent
	}
	first.Parent.InsertBefore(list, first)
	for _, b := range blocks {
		li := html.NewElement("li", nil)
		for _, c := range append([]*html.Node(nil), b.Children...) {
			li.AddChild(c)
		}
		list.AddChild(li)
		old := b.Parent
		old.RemoveChild(b)
		if (old.TagName == "ul" || old.TagName == "ol") && len(old.Children) == 0 && old.Parent != nil {
			old.Parent.RemoveChild(old)
		}
	}
}

// commonList returns the list of kind tag when blocks are exactly all of
// its items.
func commonList(blocks []*html.Node, tag string) *html.Node {
	list := blocks[0].Parent
	if list == nil || list.TagName != tag {
		return nil
	}
	items := 0
	for _, c := range list.Children {
		if c.TagName == "li" {
			items++
		}
	}
	if items != len(blocks) {
		return nil
	}
	for _, b := range blocks {
		if b.TagName != "li" || b.Parent != list {
			return nil
		}
	}
	return list
}
