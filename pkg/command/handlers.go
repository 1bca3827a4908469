package command

import (
	"errors"
	"fmt"
	"strings"

	"pageflow/pkg/document"
	"pageflow/pkg/html"
	"pageflow/pkg/richtext"
)

// rangeOp adapts a richtext operation that keeps the selection.
func rangeOp(fn func(root *html.Node, r richtext.Range)) Handler {
	return func(t Target, _ Args) (any, error) {
		return nil, t.Edit(func(root *html.Node, sel richtext.Range) (richtext.Range, error) {
			fn(root, sel)
			return sel, nil
		})
	}
}

func toggleOp(fn func(*html.Node, richtext.Range) bool) Handler {
	return rangeOp(func(root *html.Node, r richtext.Range) { fn(root, r) })
}

func styleOp(arg string, fn func(*html.Node, richtext.Range, string) bool) Handler {
	return func(t Target, args Args) (any, error) {
		v := args.String(arg, "")
		if v == "" {
			return nil, errors.New("missing " + arg)
		}
		return nil, t.Edit(func(root *html.Node, sel richtext.Range) (richtext.Range, error) {
			fn(root, sel, v)
			return sel, nil
		})
	}
}

func (d *Dispatcher) registerFormat() {
	d.Register("Format/Bold", true, toggleOp(richtext.ToggleBold))
	d.Register("Format/Italic", true, toggleOp(richtext.ToggleItalic))
	d.Register("Format/Underline", true, toggleOp(richtext.ToggleUnderline))
	d.Register("Format/Strikethrough", true, toggleOp(richtext.ToggleStrike))
	d.Register("Format/Superscript", true, toggleOp(richtext.Superscript))
	d.Register("Format/Subscript", true, toggleOp(richtext.Subscript))
	d.Register("Format/Clear formatting", true, toggleOp(richtext.RemoveFormatting))
	d.Register("Format/Font", true, styleOp("family", richtext.SetFontFamily))
	d.Register("Format/Font size", true, styleOp("size", richtext.SetFontSize))
	d.Register("Format/Text color", true, styleOp("color", richtext.SetForeColor))
	d.Register("Format/Highlight color", true, styleOp("color", richtext.SetHighlight))

	for name, a := range map[string]richtext.Alignment{
		"Format/Align left":   richtext.AlignLeft,
		"Format/Align center": richtext.AlignCenter,
		"Format/Align right":  richtext.AlignRight,
		"Format/Justify":      richtext.AlignJustify,
	} {
		d.Register(name, true, func(t Target, _ Args) (any, error) {
			return nil, t.Edit(func(root *html.Node, sel richtext.Range) (richtext.Range, error) {
				return sel, richtext.Align(root, sel, a)
			})
		})
	}
	d.Register("Format/Indent", true, rangeOp(richtext.Indent))
	d.Register("Format/Outdent", true, rangeOp(richtext.Outdent))
	d.Register("Format/Bulleted list", true, rangeOp(func(root *html.Node, r richtext.Range) {
		richtext.InsertList(root, r, false)
	}))
	d.Register("Format/Numbered list", true, rangeOp(func(root *html.Node, r richtext.Range) {
		richtext.InsertList(root, r, true)
	}))
	d.Register("Format/Paint format", true, d.paintFormat)
}

// paintFormat captures the caret's format, or cancels a pending capture.
func (d *Dispatcher) paintFormat(t Target, _ Args) (any, error) {
	if d.paint != nil {
		d.paint = nil
		t.Notices().Info("Paint format cancelled")
		return nil, nil
	}
	var captured richtext.Format
	err := t.Edit(func(root *html.Node, sel richtext.Range) (richtext.Range, error) {
		captured = richtext.FormatAt(root, sel.Start)
		return sel, nil
	})
	if err != nil {
		return nil, err
	}
	d.paint = &captured
	t.Notices().Success("Format copied: select text to apply it")
	return captured, nil
}

func insertHTML(t Target, markup string) error {
	return t.Edit(func(root *html.Node, sel richtext.Range) (richtext.Range, error) {
		caret, err := richtext.InsertFragment(root, sel, markup)
		if err != nil {
			return sel, err
		}
		richtext.EnsureAnchors(root)
		return richtext.Range{Start: caret, End: caret}, nil
	})
}

// Insert dialog bounds.
const (
	MaxTableRows = 20
	MaxTableCols = 10
)

func (d *Dispatcher) registerInsert() {
	d.Register("Insert/Table", true, func(t Target, args Args) (any, error) {
		rows := min(max(args.Int("rows", 2), 1), MaxTableRows)
		cols := min(max(args.Int("cols", 2), 1), MaxTableCols)
		return nil, insertHTML(t, richtext.TableHTML(rows, cols))
	})
	d.Register("Insert/Horizontal line", true, func(t Target, args Args) (any, error) {
		return nil, insertHTML(t, richtext.RuleHTML(
			args.String("width", "100%"),
			args.String("height", "1px"),
			args.String("color", "#000000"),
		))
	})
	d.Register("Insert/Image", true, func(t Target, args Args) (any, error) {
		src := args.String("src", "")
		if src == "" {
			return nil, errors.New("missing src")
		}
		return nil, insertHTML(t, richtext.ImageHTML(src))
	})
	d.Register("Insert/Signature", true, func(t Target, args Args) (any, error) {
		src := args.String("src", "")
		if src == "" {
			return nil, errors.New("missing src")
		}
		return t.AddSignature(src)
	})
	d.Register("Insert/Special characters", true, func(t Target, args Args) (any, error) {
		s := args.String("char", "")
		if s == "" {
			return nil, errors.New("missing char")
		}
		return nil, t.Edit(func(root *html.Node, sel richtext.Range) (richtext.Range, error) {
			c := richtext.InsertPlainText(root, sel, s)
			return richtext.Range{Start: c, End: c}, nil
		})
	})
	d.Register("Insert/Page break", true, func(t Target, _ Args) (any, error) {
		return nil, t.InsertPageBreak()
	})
	d.Register("Insert/Add page", true, func(t Target, _ Args) (any, error) {
		return nil, t.AddPage()
	})
}

// FindResult reports a find-and-replace step.
type FindResult struct {
	Match    *document.Caret `json:"match,omitempty"`
	Replaced int             `json:"replaced"`
}

func (d *Dispatcher) registerEdit() {
	d.Register("Edit/Select all", false, func(t Target, _ Args) (any, error) {
		t.SelectAll()
		return nil, nil
	})
	d.Register("Edit/Find and replace", false, d.findReplace)
	d.Register("File/Rename", true, func(t Target, args Args) (any, error) {
		title := strings.TrimSpace(args.String("title", ""))
		if title == "" {
			return nil, errors.New("missing title")
		}
		t.Rename(title)
		return nil, nil
	})
	d.Register("Tools/Word count", false, func(t Target, _ Args) (any, error) {
		return t.Document().Stats(), nil
	})
}

// findReplace runs one step of the find-and-replace dialog. mode is
// "next" (default), "replace" (replace the current match, then find the
// next) or "all".
func (d *Dispatcher) findReplace(t Target, args Args) (any, error) {
	query := args.String("find", "")
	if query == "" {
		return FindResult{}, nil
	}
	replacement, _ := args["replace"].(string)
	matchCase := args.Bool("matchCase")
	mode := args.String("mode", "next")

	if mode != "next" && t.ReadOnly() {
		t.Notices().Warn(LockedMessage)
		return nil, ErrLocked
	}

	var res FindResult
	switch mode {
	case "all":
		res.Replaced = t.ReplaceAll(query, replacement, matchCase)
		t.Notices().Info(pluralize(res.Replaced, "replacement"))
		return res, nil
	case "replace":
		if selectionMatches(t, query, matchCase) {
			err := t.Edit(func(root *html.Node, sel richtext.Range) (richtext.Range, error) {
				c := richtext.InsertPlainText(root, sel, replacement)
				return richtext.Range{Start: c, End: c}, nil
			})
			if err != nil {
				return nil, err
			}
			res.Replaced = 1
		}
	case "next":
	default:
		return nil, errors.New("unknown find mode " + mode)
	}

	if m, ok := findNext(t.Document(), t.Caret(), query, matchCase); ok {
		t.Select(m)
		res.Match = &m
	} else {
		t.Notices().Info("No more matches")
	}
	return res, nil
}

func selectionMatches(t Target, query string, matchCase bool) bool {
	c := t.Caret().Normalize()
	if c.Collapsed() {
		return false
	}
	runes := []rune(t.Document().PageText(c.Page))
	if c.End > len(runes) {
		return false
	}
	got := string(runes[c.Start:c.End])
	if matchCase {
		return got == query
	}
	return strings.EqualFold(got, query)
}

// findNext returns the first match after the caret, wrapping around to
// the start of the document.
func findNext(doc *document.Document, from document.Caret, query string, matchCase bool) (document.Caret, bool) {
	matches := doc.Find(query, matchCase)
	if len(matches) == 0 {
		return document.Caret{}, false
	}
	from = from.Normalize()
	for _, m := range matches {
		if m.Page > from.Page || m.Page == from.Page && m.Start >= from.End {
			return m, true
		}
	}
	return matches[0], true
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
