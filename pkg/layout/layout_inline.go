package layout

import (
	"strings"

	"pageflow/pkg/css"
	"pageflow/pkg/html"
	"pageflow/pkg/text"
)

type itemKind int

const (
	itemWord itemKind = iota
	itemSpace
	itemAtomic
	itemBreak
)

// item is one unbreakable piece of an inline run.
type item struct {
	kind itemKind
	text string
	node *html.Node
	ctx  context
	w, h float64
	box  *Box // atomic content, positioned when the line is placed
}

// collectInline flattens inline content into items. Whitespace collapses to
// single space items.
func (e *Engine) collectInline(nodes []*html.Node, ctx context, items []item) []item {
	for _, n := range nodes {
		if n.Type == html.TextNode {
			items = e.collectText(n, ctx, items)
			continue
		}
		style := styleOf(n)
		if display(n, style) == "none" {
			continue
		}
		switch n.TagName {
		case "br":
			items = append(items, item{kind: itemBreak, node: n, ctx: ctx})
		case "img":
			w, h := e.imageSize(n, style, 0)
			items = append(items, item{kind: itemAtomic, node: n, ctx: ctx, w: w, h: h, box: imageBox(n, style, 0, 0, w, h)})
		default:
			items = e.collectInline(n.Children, e.inherit(ctx, n, style), items)
		}
	}
	return items
}

func (e *Engine) collectText(n *html.Node, ctx context, items []item) []item {
	var word strings.Builder
	pushWord := func() {
		if word.Len() == 0 {
			return
		}
		s := word.String()
		word.Reset()
		items = append(items, item{kind: itemWord, text: s, node: n, ctx: ctx, w: e.measurer.Advance(s, ctx.face), h: e.measurer.LineHeight(ctx.face)})
	}
	for _, r := range n.Text {
		if !text.IsSpace(r) {
			word.WriteRune(r)
			continue
		}
		pushWord()
		if len(items) > 0 && items[len(items)-1].kind == itemSpace {
			continue
		}
		items = append(items, item{kind: itemSpace, text: " ", node: n, ctx: ctx, w: e.measurer.Advance(" ", ctx.face), h: e.measurer.LineHeight(ctx.face)})
	}
	pushWord()
	return items
}

// lineBuilder accumulates items into line boxes.
type lineBuilder struct {
	e      *Engine
	ctx    context
	x      float64
	y      float64
	width  float64
	lines  []*Box
	cur    []item
	curW   float64
	height float64
}

// layoutInline breaks an inline run into line boxes. A run of only
// collapsible whitespace produces no lines.
func (e *Engine) layoutInline(nodes []*html.Node, ctx context, x, y, width float64) ([]*Box, float64) {
	items := e.collectInline(nodes, ctx, nil)
	lb := &lineBuilder{e: e, ctx: ctx, x: x, y: y, width: width}

	pendingSpace := -1
	for i := range items {
		it := items[i]
		switch it.kind {
		case itemBreak:
			pendingSpace = -1
			lb.finish(it.ctx, true)
		case itemSpace:
			if len(lb.cur) > 0 {
				pendingSpace = i
			}
		case itemWord, itemAtomic:
			spaceW := 0.0
			if pendingSpace >= 0 {
				spaceW = items[pendingSpace].w
			}
			if len(lb.cur) > 0 && lb.curW+spaceW+it.w > width {
				lb.finish(it.ctx, false)
				pendingSpace, spaceW = -1, 0
			}
			if pendingSpace >= 0 {
				lb.add(items[pendingSpace])
				pendingSpace = -1
			}
			if it.kind == itemWord && it.w > width && len(lb.cur) == 0 {
				lb.addLongWord(it)
				continue
			}
			lb.add(it)
		}
	}
	if len(lb.cur) > 0 {
		lb.finish(ctx, false)
	}
	return lb.lines, lb.height
}

func (lb *lineBuilder) add(it item) {
	lb.cur = append(lb.cur, it)
	lb.curW += it.w
}

// addLongWord breaks a word wider than the line between runes.
func (lb *lineBuilder) addLongWord(it item) {
	m := lb.e.measurer
	word := it.text
	for word != "" {
		if m.Advance(word, it.ctx.face) <= lb.width {
			part := it
			part.text, part.w = word, m.Advance(word, it.ctx.face)
			lb.add(part)
			return
		}
		head, tail := text.SplitToFit(m, word, it.ctx.face, lb.width)
		part := it
		part.text, part.w = head, m.Advance(head, it.ctx.face)
		lb.add(part)
		lb.finish(it.ctx, false)
		word = tail
	}
}

// finish closes the current line. A forced break on an empty line still
// produces a line of the current font's height.
func (lb *lineBuilder) finish(ctx context, forced bool) {
	// Trailing spaces hang.
	for len(lb.cur) > 0 && lb.cur[len(lb.cur)-1].kind == itemSpace {
		lb.curW -= lb.cur[len(lb.cur)-1].w
		lb.cur = lb.cur[:len(lb.cur)-1]
	}
	if len(lb.cur) == 0 && !forced {
		return
	}

	m := lb.e.measurer
	lineH := 0.0
	if len(lb.cur) == 0 {
		lineH = m.LineHeight(ctx.face)
	}
	for _, it := range lb.cur {
		lineH = max(lineH, it.h)
	}

	offset := 0.0
	switch lb.ctx.align {
	case css.TextAlignCenter:
		offset = (lb.width - lb.curW) / 2
	case css.TextAlignRight:
		offset = lb.width - lb.curW
	}
	offset = max(offset, 0)

	line := &Box{Kind: KindLine, X: lb.x, Y: lb.y + lb.height, Width: lb.width, Height: lineH}
	cx := lb.x + offset
	var last *Box
	for _, it := range lb.cur {
		switch it.kind {
		case itemAtomic:
			b := it.box
			b.X, b.Y = cx, line.Y+lineH-it.h
			line.Children = append(line.Children, b)
			last = nil
		default:
			if last != nil && last.Node == it.node && sameRun(last, it.ctx) {
				last.Text += it.text
				last.Width += it.w
				break
			}
			b := &Box{
				Kind:      KindText,
				Node:      it.node,
				X:         cx,
				Y:         line.Y + lineH - it.h,
				Width:     it.w,
				Height:    it.h,
				Text:      it.text,
				Face:      it.ctx.face,
				Color:     it.ctx.color,
				Underline: it.ctx.underline,
				Strike:    it.ctx.strike,
			}
			if it.ctx.highlight != nil {
				c := *it.ctx.highlight
				b.Background = &c
			}
			line.Children = append(line.Children, b)
			last = b
		}
		cx += it.w
	}

	lb.lines = append(lb.lines, line)
	lb.height += lineH
	lb.cur = nil
	lb.curW = 0
}

func sameRun(b *Box, ctx context) bool {
	return b.Face == ctx.face && b.Color == ctx.color && b.Underline == ctx.underline && b.Strike == ctx.strike &&
		(b.Background == nil) == (ctx.highlight == nil)
}
