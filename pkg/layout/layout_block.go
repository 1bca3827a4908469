package layout

import (
	"strings"

	"pageflow/pkg/css"
	"pageflow/pkg/html"
)

// layoutChildren stacks parent's children vertically from (x, y). Runs of
// inline children become line boxes. Vertical margins of adjacent blocks
// collapse to the larger of the two. The returned height includes the last
// block's bottom margin.
func (e *Engine) layoutChildren(parent *html.Node, ctx context, x, y, width float64) ([]*Box, float64) {
	var boxes []*Box
	cursor := y
	pendingMargin := 0.0
	var run []*html.Node

	flush := func() {
		if len(run) == 0 {
			return
		}
		lines, h := e.layoutInline(run, ctx, x, cursor+pendingMargin, width)
		run = nil
		if len(lines) == 0 {
			return
		}
		cursor += pendingMargin + h
		pendingMargin = 0
		boxes = append(boxes, lines...)
	}

	for _, child := range parent.Children {
		if child.Type == html.TextNode {
			run = append(run, child)
			continue
		}
		style := styleOf(child)
		disp := display(child, style)
		if disp == "none" {
			continue
		}
		if style.GetPosition() == css.PositionAbsolute {
			boxes = append(boxes, e.layoutPositioned(child, style, ctx, x, y, width))
			continue
		}
		if disp != "block" && disp != "table" && disp != "list-item" {
			run = append(run, child)
			continue
		}
		flush()

		cctx := e.inherit(ctx, child, style)
		m := e.margins(child, style, cctx.face.Size)
		gap := max(pendingMargin, m.Top)
		box := e.layoutBlock(child, style, cctx, m, x, cursor+gap, width)
		boxes = append(boxes, box)
		cursor += gap + box.Height
		pendingMargin = m.Bottom
	}
	flush()

	return boxes, cursor + pendingMargin - y
}

// layoutBlock lays out a block-level element whose border box starts at y.
// x is the left edge of the containing block.
func (e *Engine) layoutBlock(n *html.Node, style *css.Style, ctx context, m css.BoxEdge, x, y, avail float64) *Box {
	switch n.TagName {
	case "hr":
		return e.layoutRule(n, style, m, x, y, avail)
	case "table":
		return e.layoutTable(n, style, ctx, m, x, y, avail)
	case "img":
		w, h := e.imageSize(n, style, avail)
		return imageBox(n, style, x+m.Left, y, w, h)
	}

	pad := e.padding(n, style)
	border := style.GetBorderWidth()
	contentW := avail - m.Horizontal() - pad.Horizontal() - border.Horizontal()
	if v, ok := style.Get("width"); ok {
		if w, ok := css.ParseLengthRelative(v, ctx.face.Size, avail); ok {
			contentW = w
		}
	}
	contentW = max(contentW, 0)

	cx := x + m.Left + border.Left + pad.Left
	cy := y + border.Top + pad.Top
	children, h := e.layoutChildren(n, ctx, cx, cy, contentW)
	if v, ok := style.Get("height"); ok {
		if hv, ok := css.ParseLengthRelative(v, ctx.face.Size, 0); ok {
			h = hv
		}
	}
	if v, ok := style.Get("min-height"); ok {
		if hv, ok := css.ParseLengthRelative(v, ctx.face.Size, 0); ok {
			h = max(h, hv)
		}
	}

	box := &Box{
		Kind:     KindBlock,
		Node:     n,
		X:        x + m.Left,
		Y:        y,
		Width:    contentW + pad.Horizontal() + border.Horizontal(),
		Height:   h + pad.Vertical() + border.Vertical(),
		Border:   border,
		Children: children,
	}
	decorate(box, style)
	return box
}

// layoutPositioned places an absolutely positioned element at its left/top
// offsets from the containing block's content origin.
func (e *Engine) layoutPositioned(n *html.Node, style *css.Style, ctx context, x, y, width float64) *Box {
	left, _ := style.GetLength("left")
	top, _ := style.GetLength("top")
	cctx := e.inherit(ctx, n, style)

	var box *Box
	if n.TagName == "img" {
		w, h := e.imageSize(n, style, width)
		box = imageBox(n, style, x+left, y+top, w, h)
	} else {
		avail := width - left
		if v, ok := style.Get("width"); ok {
			if w, ok := css.ParseLengthRelative(v, cctx.face.Size, width); ok {
				avail = w + e.padding(n, style).Horizontal() + style.GetBorderWidth().Horizontal()
			}
		}
		box = e.layoutBlock(n, style, cctx, css.BoxEdge{}, x+left, y+top, avail)
	}
	box.Positioned = true
	box.ZIndex = style.GetZIndex()
	return box
}

func (e *Engine) layoutRule(n *html.Node, style *css.Style, m css.BoxEdge, x, y, avail float64) *Box {
	w := avail - m.Horizontal()
	if v, ok := style.Get("width"); ok {
		if lv, ok := css.ParseLengthRelative(v, e.base.Size, avail); ok {
			w = lv
		}
	}
	h := 2.0
	if v, ok := style.GetLength("height"); ok {
		h = v
	}
	border := style.GetBorderWidth()
	box := &Box{Kind: KindRule, Node: n, X: x + m.Left, Y: y, Width: w, Height: h + border.Vertical(), Border: border}
	decorate(box, style)
	if box.Background == nil {
		gray := css.Color{R: 128, G: 128, B: 128, A: 1}
		box.Background = &gray
	}
	return box
}

func imageBox(n *html.Node, style *css.Style, x, y, w, h float64) *Box {
	src, _ := n.GetAttribute("src")
	box := &Box{Kind: KindImage, Node: n, X: x, Y: y, Width: w, Height: h, Src: src}
	decorate(box, style)
	return box
}

// imageSize resolves width/height from the style, then attributes, then the
// intrinsic size, keeping the aspect ratio when only one side is given.
func (e *Engine) imageSize(n *html.Node, style *css.Style, avail float64) (float64, float64) {
	dim := func(prop string) (float64, bool) {
		if v, ok := style.Get(prop); ok {
			if l, ok := css.ParseLengthRelative(v, e.base.Size, avail); ok {
				return l, true
			}
		}
		if v, ok := n.GetAttribute(prop); ok {
			return css.ParseLengthRelative(v, e.base.Size, avail)
		}
		return 0, false
	}
	w, wok := dim("width")
	h, hok := dim("height")
	if wok && hok {
		return w, h
	}

	iw, ih := float64(DefaultImageWidth), float64(DefaultImageHeight)
	if src, ok := n.GetAttribute("src"); ok && src != "" && e.sizer != nil {
		if sw, sh, err := e.sizer(src); err == nil && sw > 0 && sh > 0 {
			iw, ih = float64(sw), float64(sh)
		} else if err != nil {
			e.log.Debug().Err(err).Msg("image size unavailable, using default")
		}
	}
	switch {
	case wok:
		return w, w * ih / iw
	case hok:
		return h * iw / ih, h
	}
	return iw, ih
}

// margins returns the style's margins, or the element defaults when the
// style sets none.
func (e *Engine) margins(n *html.Node, style *css.Style, size float64) css.BoxEdge {
	if hasBoxProperty(style, "margin") {
		return style.GetMargin()
	}
	switch n.TagName {
	case "p", "ul", "ol", "dl", "pre":
		return css.BoxEdge{Top: size, Bottom: size}
	case "blockquote":
		return css.BoxEdge{Top: size, Right: 40, Bottom: size, Left: 40}
	case "hr":
		return css.BoxEdge{Top: 8, Bottom: 8}
	case "h1":
		return css.BoxEdge{Top: 0.67 * size, Bottom: 0.67 * size}
	case "h2":
		return css.BoxEdge{Top: 0.83 * size, Bottom: 0.83 * size}
	case "h3":
		return css.BoxEdge{Top: size, Bottom: size}
	case "h4":
		return css.BoxEdge{Top: 1.33 * size, Bottom: 1.33 * size}
	case "h5":
		return css.BoxEdge{Top: 1.67 * size, Bottom: 1.67 * size}
	case "h6":
		return css.BoxEdge{Top: 2.33 * size, Bottom: 2.33 * size}
	}
	return css.BoxEdge{}
}

func (e *Engine) padding(n *html.Node, style *css.Style) css.BoxEdge {
	if hasBoxProperty(style, "padding") {
		return style.GetPadding()
	}
	switch n.TagName {
	case "ul", "ol":
		return css.BoxEdge{Left: 40}
	case "td", "th":
		return css.BoxEdge{Top: 1, Right: 1, Bottom: 1, Left: 1}
	}
	return css.BoxEdge{}
}

func hasBoxProperty(style *css.Style, prefix string) bool {
	for _, suffix := range []string{"", "-top", "-right", "-bottom", "-left"} {
		if _, ok := style.Get(prefix + suffix); ok {
			return true
		}
	}
	return false
}

// decorate copies paint-only properties onto the box.
func decorate(box *Box, style *css.Style) {
	if v, ok := style.Get("background-color"); ok {
		if c, ok := css.ParseColor(v); ok && c.A > 0 {
			box.Background = &c
		}
	}
	box.BorderColor = css.Color{A: 1}
	for _, prop := range []string{"border", "border-color"} {
		v, ok := style.Get(prop)
		if !ok {
			continue
		}
		for _, part := range strings.Fields(v) {
			if c, ok := css.ParseColor(part); ok {
				box.BorderColor = c
			}
		}
	}
}
