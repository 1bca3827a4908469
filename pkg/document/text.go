package document

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"pageflow/pkg/html"
)

// PageText returns the text content of page i.
func (d *Document) PageText(i int) string {
	if d.check(i) != nil {
		return ""
	}
	return html.MustFragment(d.Pages[i].HTML).TextContent()
}

// Text joins every page's text with newlines.
func (d *Document) Text() string {
	parts := make([]string, len(d.Pages))
	for i := range d.Pages {
		parts[i] = d.PageText(i)
	}
	return strings.Join(parts, "\n")
}

// IsBlank reports whether page i holds neither text nor atomic content.
func (d *Document) IsBlank(i int) bool {
	if d.check(i) != nil {
		return false
	}
	root := html.MustFragment(d.Pages[i].HTML)
	if strings.TrimFunc(root.TextContent(), unicode.IsSpace) != "" {
		return false
	}
	return len(root.ElementsByTag("img", "table", "hr")) == 0
}

type Stats struct {
	Pages              int `json:"pages"`
	Words              int `json:"words"`
	Characters         int `json:"characters"`
	CharactersNoSpaces int `json:"charactersNoSpaces"`
}

// Stats counts words and characters across all pages.
func (d *Document) Stats() Stats {
	s := Stats{Pages: len(d.Pages)}
	for i := range d.Pages {
		t := d.PageText(i)
		s.Words += len(strings.FieldsFunc(t, unicode.IsSpace))
		s.Characters += utf8.RuneCountInString(t)
		for _, r := range t {
			if !unicode.IsSpace(r) {
				s.CharactersNoSpaces++
			}
		}
	}
	return s
}

// Match is one search hit, as a caret over the match.
type Match = Caret

// Find returns every occurrence of query in page text. Matches do not
// overlap.
func (d *Document) Find(query string, matchCase bool) []Match {
	if query == "" {
		return nil
	}
	var out []Match
	for i := range d.Pages {
		for _, m := range findRunes(d.PageText(i), query, matchCase) {
			out = append(out, Caret{Page: i, Start: m[0], End: m[1]})
		}
	}
	return out
}

// findRunes returns [start, end) rune offsets of non-overlapping matches.
func findRunes(s, query string, matchCase bool) [][2]int {
	hay, needle := []rune(s), []rune(query)
	if !matchCase {
		hay, needle = []rune(strings.ToLower(s)), []rune(strings.ToLower(query))
	}
	var out [][2]int
	for i := 0; i+len(needle) <= len(hay); {
		if string(hay[i:i+len(needle)]) == string(needle) {
			out = append(out, [2]int{i, i + len(needle)})
			i += len(needle)
			continue
		}
		i++
	}
	return out
}

// Replace substitutes every occurrence of find inside text nodes and returns
// the number of replacements. Markup is left untouched, so a match spanning
// two differently formatted runs is not replaced.
func (d *Document) Replace(find, replacement string, matchCase bool) int {
	if find == "" {
		return 0
	}
	total := 0
	for i := range d.Pages {
		root := html.MustFragment(d.Pages[i].HTML)
		n := 0
		for _, t := range root.TextNodes() {
			matches := findRunes(t.Text, find, matchCase)
			if len(matches) == 0 {
				continue
			}
			runes := []rune(t.Text)
			var sb strings.Builder
			prev := 0
			for _, m := range matches {
				sb.WriteString(string(runes[prev:m[0]]))
				sb.WriteString(replacement)
				prev = m[1]
			}
			sb.WriteString(string(runes[prev:]))
			t.Text = sb.String()
			n += len(matches)
		}
		if n > 0 {
			d.Pages[i].HTML = root.Serialize()
			total += n
		}
	}
	return total
}
