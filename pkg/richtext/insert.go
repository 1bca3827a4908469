package richtext

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"pageflow/pkg/html"
)

// DeleteRange removes the text in r. When r spans blocks, blocks it
// emptied are dropped and the last block is joined onto the first.
func DeleteRange(root *html.Node, r Range) {
	nodes := textIn(root, r)
	if len(nodes) == 0 {
		return
	}
	startBlock := nodes[0].ClosestAncestor(root, isBlock)
	endBlock := nodes[len(nodes)-1].ClosestAncestor(root, isBlock)
	touched := map[*html.Node]bool{}
	var order []*html.Node
	for _, t := range nodes {
		if b := t.ClosestAncestor(root, isBlock); b != nil && !touched[b] {
			touched[b] = true
			order = append(order, b)
		}
		t.Parent.RemoveChild(t)
	}
	pruneEmpty(root)
	for _, b := range order {
		if b != startBlock && b.Parent != nil && isEmptyBlock(b) && !isCell(b) {
			b.Parent.RemoveChild(b)
		}
	}
	if startBlock != nil && endBlock != nil && startBlock != endBlock &&
		endBlock.Parent != nil && !isCell(startBlock) && !isCell(endBlock) {
		for _, c := range append([]*html.Node(nil), endBlock.Children...) {
			startBlock.AddChild(c)
		}
		endBlock.Parent.RemoveChild(endBlock)
	}
	mergeAdjacent(root)
}

func isCell(n *html.Node) bool {
	switch n.TagName {
	case "td", "th", "tr", "tbody", "thead", "tfoot", "table":
		return true
	}
	return false
}

func isEmptyBlock(b *html.Node) bool {
	if strings.TrimSpace(b.TextContent()) != "" {
		return false
	}
	return len(b.ElementsByTag("img", "hr", "table")) == 0
}

// dropPlaceholder removes the lone <br> that keeps an empty block open.
func dropPlaceholder(p *position) {
	if len(p.parent.Children) == 1 && p.parent.Children[0].TagName == "br" {
		p.parent.RemoveChild(p.parent.Children[0])
		p.index = 0
	}
}

// InsertPlainText replaces r with s and returns the caret offset after the
// inserted text. Newlines become line breaks.
func InsertPlainText(root *html.Node, r Range, s string) int {
	r = r.Normalize(textLen(root))
	if !r.Collapsed() {
		DeleteRange(root, r)
	}
	if s == "" {
		return r.Start
	}
	p := boundary(root, r.Start)
	dropPlaceholder(&p)

	var nodes []*html.Node
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			nodes = append(nodes, html.NewElement("br", nil))
		}
		if line != "" {
			nodes = append(nodes, html.NewText(line))
		}
	}
	insertAt(p, nodes)
	mergeAdjacent(root)
	return r.Start + utf8.RuneCountInString(strings.ReplaceAll(s, "\n", ""))
}

func insertAt(p position, nodes []*html.Node) {
	var ref *html.Node
	if p.index < len(p.parent.Children) {
		ref = p.parent.Children[p.index]
	}
	for _, n := range nodes {
		p.parent.InsertBefore(n, ref)
	}
}

// InsertFragment replaces r with sanitized markup and returns the caret
// offset after it. Block content splits the enclosing block (or table
// cell) so it lands between the two halves; inline content is inserted in
// place.
func InsertFragment(root *html.Node, r Range, markup string) (int, error) {
	frag, err := html.Sanitize(markup)
	if err != nil {
		return r.Start, fmt.Errorf("inserting fragment: %w", err)
	}
	r = r.Normalize(textLen(root))
	if !r.Collapsed() {
		DeleteRange(root, r)
	}
	caret := r.Start + textLen(frag)
	nodes := append([]*html.Node(nil), frag.Children...)
	if len(nodes) == 0 {
		return r.Start, nil
	}

	p := boundary(root, r.Start)
	dropPlaceholder(&p)

	hasBlock := false
	for _, n := range nodes {
		if isBlock(n) {
			hasBlock = true
			break
		}
	}
	if hasBlock {
		container := root
		if cell := p.parent.ClosestAncestor(root, func(n *html.Node) bool {
			return n.TagName == "td" || n.TagName == "th"
		}); cell != nil {
			container = cell
		} else if p.parent.TagName == "td" || p.parent.TagName == "th" {
			container = p.parent
		}
		idx := splitBlockAt(container, p)
		p = position{container, idx}
	}
	insertAt(p, nodes)
	pruneEmptyInline(root)
	mergeAdjacent(root)
	return caret, nil
}

// pruneEmptyInline drops empty formatting elements left behind by splits.
func pruneEmptyInline(n *html.Node) {
	for _, c := range append([]*html.Node(nil), n.Children...) {
		if c.Type != html.ElementNode {
			continue
		}
		pruneEmptyInline(c)
		if len(c.Children) == 0 && formattingTags[c.TagName] {
			n.RemoveChild(c)
		}
	}
}
