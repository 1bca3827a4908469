package layout

import (
	"pageflow/pkg/css"
	"pageflow/pkg/html"
)

// tableRows returns the rows of a table in order, looking through row groups.
func tableRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	for _, c := range table.Children {
		switch c.TagName {
		case "tr":
			rows = append(rows, c)
		case "thead", "tbody", "tfoot":
			for _, r := range c.Children {
				if r.TagName == "tr" {
					rows = append(rows, r)
				}
			}
		}
	}
	return rows
}

func rowCells(row *html.Node) []*html.Node {
	var cells []*html.Node
	for _, c := range row.Children {
		if c.TagName == "td" || c.TagName == "th" {
			cells = append(cells, c)
		}
	}
	return cells
}

// layoutTable splits the table width equally between columns. Each row is
// as tall as its tallest cell.
func (e *Engine) layoutTable(n *html.Node, style *css.Style, ctx context, m css.BoxEdge, x, y, avail float64) *Box {
	border := style.GetBorderWidth()
	width := avail - m.Horizontal()
	if v, ok := style.Get("width"); ok {
		if w, ok := css.ParseLengthRelative(v, ctx.face.Size, avail); ok {
			width = w
		}
	}
	rows := tableRows(n)
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(rowCells(r)))
	}

	table := &Box{Kind: KindBlock, Node: n, X: x + m.Left, Y: y, Width: width, Border: border}
	decorate(table, style)

	inner := max(width-border.Horizontal(), 0)
	cy := y + border.Top
	for _, r := range rows {
		rstyle := styleOf(r)
		rctx := e.inherit(ctx, r, rstyle)
		rowBox := &Box{Kind: KindBlock, Node: r, X: table.X + border.Left, Y: cy, Width: inner}
		decorate(rowBox, rstyle)

		cells := rowCells(r)
		colW := 0.0
		if cols > 0 {
			colW = inner / float64(cols)
		}
		rowH := 0.0
		for i, c := range cells {
			cstyle := styleOf(c)
			cctx := e.inherit(rctx, c, cstyle)
			cell := e.layoutCell(c, cstyle, cctx, table.X+border.Left+float64(i)*colW, cy, colW)
			rowBox.Children = append(rowBox.Children, cell)
			rowH = max(rowH, cell.Height)
		}
		for _, cell := range rowBox.Children {
			cell.Height = rowH
		}
		rowBox.Height = rowH
		table.Children = append(table.Children, rowBox)
		cy += rowH
	}
	table.Height = cy - y + border.Bottom
	if v, ok := style.GetLength("height"); ok {
		table.Height = max(table.Height, v)
	}
	return table
}

func (e *Engine) layoutCell(n *html.Node, style *css.Style, ctx context, x, y, width float64) *Box {
	pad := e.padding(n, style)
	border := style.GetBorderWidth()
	contentW := max(width-pad.Horizontal()-border.Horizontal(), 0)
	children, h := e.layoutChildren(n, ctx, x+border.Left+pad.Left, y+border.Top+pad.Top, contentW)
	if v, ok := style.GetLength("height"); ok {
		h = max(h, v)
	}
	cell := &Box{
		Kind:     KindBlock,
		Node:     n,
		X:        x,
		Y:        y,
		Width:    width,
		Height:   h + pad.Vertical() + border.Vertical(),
		Border:   border,
		Children: children,
	}
	decorate(cell, style)
	return cell
}
