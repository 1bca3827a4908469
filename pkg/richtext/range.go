// Package richtext implements formatting commands as functions over a page
// fragment tree and a text range. Offsets count runes of the fragment's
// text content, the same offsets carets use.
package richtext

import (
	"unicode/utf8"

	"pageflow/pkg/html"
)

// Range is a [Start, End) span of text offsets within one page.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r Range) Collapsed() bool { return r.Start == r.End }

// Normalize orders the ends and clamps them to [0, n].
func (r Range) Normalize(n int) Range {
	if r.Start > r.End {
		r.Start, r.End = r.End, r.Start
	}
	r.Start = min(max(r.Start, 0), n)
	r.End = min(max(r.End, 0), n)
	return r
}

func textLen(root *html.Node) int {
	return utf8.RuneCountInString(root.TextContent())
}

// position is an insertion point: before parent.Children[index].
type position struct {
	parent *html.Node
	index  int
}

// boundary makes sure a node boundary falls at offset, splitting a text
// node when needed, and returns the insertion point there. An offset at the
// end of a text node stays inside that node's parent so typing keeps the
// preceding formatting.
func boundary(root *html.Node, offset int) position {
	pos := 0
	for _, t := range root.TextNodes() {
		n := utf8.RuneCountInString(t.Text)
		if offset > pos+n {
			pos += n
			continue
		}
		k := offset - pos
		idx := t.IndexInParent()
		switch {
		case k <= 0:
			return position{t.Parent, idx}
		case k >= n:
			return position{t.Parent, idx + 1}
		}
		runes := []rune(t.Text)
		t.Text = string(runes[:k])
		tail := html.NewText(string(runes[k:]))
		t.Parent.InsertAfter(tail, t)
		return position{t.Parent, idx + 1}
	}
	c := emptyContainer(root)
	return position{c, len(c.Children)}
}

// emptyContainer returns where text goes on a page without text: the
// innermost leading block, or the root.
func emptyContainer(root *html.Node) *html.Node {
	c := root
	for {
		var next *html.Node
		for _, ch := range c.Children {
			if ch.Type == html.ElementNode && html.IsBlockElement(ch.TagName) {
				if ch.TagName != "table" && ch.TagName != "hr" {
					next = ch
				}
				break
			}
		}
		if next == nil {
			return c
		}
		c = next
	}
}

// textIn splits at both ends of r and returns the non-empty text nodes
// that lie inside it.
func textIn(root *html.Node, r Range) []*html.Node {
	r = r.Normalize(textLen(root))
	if r.Collapsed() {
		return nil
	}
	boundary(root, r.End)
	boundary(root, r.Start)
	var out []*html.Node
	pos := 0
	for _, t := range root.TextNodes() {
		n := utf8.RuneCountInString(t.Text)
		if n > 0 && pos >= r.Start && pos+n <= r.End {
			out = append(out, t)
		}
		pos += n
	}
	return out
}

// textAt returns the text node holding the rune just before offset, or the
// first text node for offset 0.
func textAt(root *html.Node, offset int) *html.Node {
	pos := 0
	var first *html.Node
	for _, t := range root.TextNodes() {
		n := utf8.RuneCountInString(t.Text)
		if n == 0 {
			continue
		}
		if first == nil {
			first = t
		}
		if offset > pos && offset <= pos+n {
			return t
		}
		pos += n
	}
	return first
}

func isBlock(n *html.Node) bool {
	return n.Type == html.ElementNode && html.IsBlockElement(n.TagName)
}

// splitOut leaves child as el's only child, moving earlier and later
// siblings into shallow clones of el placed around it.
func splitOut(el, child *html.Node) {
	idx := child.IndexInParent()
	if idx < 0 || el.Parent == nil {
		return
	}
	if idx > 0 {
		before := el.CloneNode(false)
		for _, c := range append([]*html.Node(nil), el.Children[:idx]...) {
			before.AddChild(c)
		}
		el.Parent.InsertBefore(before, el)
	}
	if idx := child.IndexInParent(); idx+1 < len(el.Children) {
		after := el.CloneNode(false)
		for _, c := range append([]*html.Node(nil), el.Children[idx+1:]...) {
			after.AddChild(c)
		}
		el.Parent.InsertAfter(after, el)
	}
}

// isolate splits every element between leaf and anc (inclusive) so that
// anc wraps nothing but the path down to leaf.
func isolate(anc, leaf *html.Node) {
	for cur := leaf; cur != anc && cur.Parent != nil; cur = cur.Parent {
		splitOut(cur.Parent, cur)
		if cur.Parent == anc {
			break
		}
	}
}

// splitBlockAt splits the top-level element containing pos at pos. The
// returned index is where content goes in root.Children between the halves.
func splitBlockAt(root *html.Node, p position) int {
	if p.parent == root {
		return p.index
	}
	top := p.parent
	for top.Parent != root {
		top = top.Parent
	}
	// Split each ancestor from p.parent up to top.
	parent, index := p.parent, p.index
	for {
		if index < len(parent.Children) && index > 0 {
			tail := parent.CloneNode(false)
			for _, c := range append([]*html.Node(nil), parent.Children[index:]...) {
				tail.AddChild(c)
			}
			parent.Parent.InsertAfter(tail, parent)
			index = parent.IndexInParent() + 1
		} else if index == 0 {
			index = parent.IndexInParent()
		} else {
			index = parent.IndexInParent() + 1
		}
		if parent == top {
			return index
		}
		parent = parent.Parent
	}
}

// pruneEmpty removes inline elements left without content under n.
func pruneEmpty(n *html.Node) {
	for _, c := range append([]*html.Node(nil), n.Children...) {
		switch {
		case c.Type == html.TextNode:
			if c.Text == "" {
				n.RemoveChild(c)
			}
		case html.IsVoidElement(c.TagName):
		default:
			pruneEmpty(c)
			if len(c.Children) == 0 && !isBlock(c) {
				n.RemoveChild(c)
			}
		}
	}
}

// mergeAdjacent joins neighboring text nodes and identical inline
// elements so repeated formatting does not fragment the tree.
func mergeAdjacent(n *html.Node) {
	for i := 0; i < len(n.Children); i++ {
		c := n.Children[i]
		if c.Type == html.ElementNode {
			mergeAdjacent(c)
		}
		if i == 0 {
			continue
		}
		prev := n.Children[i-1]
		switch {
		case prev.Type == html.TextNode && c.Type == html.TextNode:
			prev.Text += c.Text
		case sameInline(prev, c):
			for _, gc := range append([]*html.Node(nil), c.Children...) {
				prev.AddChild(gc)
			}
			mergeAdjacent(prev)
		default:
			continue
		}
		n.RemoveChild(c)
		i--
	}
}

func sameInline(a, b *html.Node) bool {
	if a.Type != html.ElementNode || b.Type != html.ElementNode || a.TagName != b.TagName {
		return false
	}
	if isBlock(a) || html.IsVoidElement(a.TagName) || len(a.Attributes) != len(b.Attributes) {
		return false
	}
	for k, v := range a.Attributes {
		if b.Attributes[k] != v {
			return false
		}
	}
	return true
}

func tidy(root *html.Node) {
	pruneEmpty(root)
	mergeAdjacent(root)
}
