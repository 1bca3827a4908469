package document

// Caret is a selection inside one page. Start and End count runes of the
// page's text content; Start == End is a collapsed caret.
type Caret struct {
	Page  int `json:"page"`
	Start int `json:"start"`
	End   int `json:"end"`
}

func (c Caret) Collapsed() bool { return c.Start == c.End }

// At returns a collapsed caret.
func At(page, offset int) Caret {
	return Caret{Page: page, Start: offset, End: offset}
}

// Normalize orders Start and End.
func (c Caret) Normalize() Caret {
	if c.End < c.Start {
		c.Start, c.End = c.End, c.Start
	}
	return c
}

// Clamp keeps both offsets inside [0, n].
func (c Caret) Clamp(n int) Caret {
	clamp := func(v int) int { return min(max(v, 0), n) }
	c.Start, c.End = clamp(c.Start), clamp(c.End)
	return c
}

// Length is the number of selected runes.
func (c Caret) Length() int {
	c = c.Normalize()
	return c.End - c.Start
}
