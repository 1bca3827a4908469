// Package command maps menu and toolbar action names to editing operations
// on a Target. Commands that change the document are refused with a
// "Locked" notice while the target is read-only.
package command

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/rs/zerolog"

	"pageflow/pkg/document"
	"pageflow/pkg/html"
	"pageflow/pkg/notify"
	"pageflow/pkg/richtext"
)

var (
	ErrUnknown = errors.New("unknown command")
	ErrLocked  = errors.New("document is locked")
)

// LockedMessage is the notice shown when an edit runs in read-only mode.
const LockedMessage = "Locked: switch to edit mode first"

// EditFunc mutates the caret page's live tree. It receives the current
// selection and returns the selection to leave behind.
type EditFunc func(root *html.Node, sel richtext.Range) (richtext.Range, error)

// Target is what commands run against; the editor implements it.
type Target interface {
	ReadOnly() bool
	Notices() *notify.Feed
	Document() *document.Document
	Caret() document.Caret
	Select(c document.Caret)
	SelectAll()
	Edit(fn EditFunc) error
	InsertPageBreak() error
	AddPage() error
	AddSignature(src string) (document.Annotation, error)
	ReplaceAll(find, replacement string, matchCase bool) int
	Rename(title string)
}

// Handler runs one command. The returned value, if any, is reported back
// to the caller (word counts, search hits).
type Handler func(t Target, args Args) (any, error)

type entry struct {
	handler Handler
	mutates bool
}

// Dispatcher is not safe for concurrent use; it runs on the editor's loop.
type Dispatcher struct {
	commands map[string]entry
	paint    *richtext.Format
	log      zerolog.Logger
}

type Option func(*Dispatcher)

func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// New returns a dispatcher with the built-in commands registered.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{commands: make(map[string]entry), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	d.registerFormat()
	d.registerInsert()
	d.registerEdit()
	return d
}

// Register adds or replaces a command. mutates marks commands refused in
// read-only mode.
func (d *Dispatcher) Register(name string, mutates bool, h Handler) {
	d.commands[name] = entry{handler: h, mutates: mutates}
}

// Names lists the registered commands in order.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.commands))
	for n := range d.commands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (d *Dispatcher) Has(name string) bool {
	_, ok := d.commands[name]
	return ok
}

// Dispatch runs the named command on t.
func (d *Dispatcher) Dispatch(t Target, name string, args Args) (any, error) {
	c, ok := d.commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	if c.mutates && t.ReadOnly() {
		t.Notices().Warn(LockedMessage)
		return nil, ErrLocked
	}
	d.log.Debug().Str("command", name).Msg("dispatching")
	out, err := c.handler(t, args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// PaintPending reports whether a captured format waits for a range.
func (d *Dispatcher) PaintPending() bool { return d.paint != nil }

// ApplyPaint applies the captured format to t's selection and clears it.
// A collapsed selection leaves the format pending.
func (d *Dispatcher) ApplyPaint(t Target) error {
	if d.paint == nil || t.ReadOnly() || t.Caret().Collapsed() {
		return nil
	}
	f := *d.paint
	d.paint = nil
	return t.Edit(func(root *html.Node, sel richtext.Range) (richtext.Range, error) {
		richtext.ApplyFormat(root, sel, f)
		return sel, nil
	})
}

// Args carries command arguments as decoded from JSON.
type Args map[string]any

func (a Args) String(key, def string) string {
	if v, ok := a[key].(string); ok && v != "" {
		return v
	}
	return def
}

func (a Args) Int(key string, def int) int {
	switch v := a[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func (a Args) Bool(key string) bool {
	v, _ := a[key].(bool)
	return v
}

// Menu lists the action names per menu, in display order.
var Menu = map[string][]string{
	"Format": {"Bold", "Italic", "Underline", "Strikethrough", "Superscript", "Subscript",
		"Font", "Font size", "Text color", "Highlight color",
		"Align left", "Align center", "Align right", "Justify", "Indent", "Outdent",
		"Bulleted list", "Numbered list", "Clear formatting", "Paint format"},
	"Insert": {"Image", "Table", "Horizontal line", "Signature", "Special characters", "Page break", "Add page"},
	"Edit":   {"Select all", "Find and replace"},
	"File":   {"Rename"},
	"Tools":  {"Word count"},
}

// MenuNames returns the menu's qualified command names.
func MenuNames(menu string) []string {
	items := Menu[menu]
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = menu + "/" + item
	}
	return slices.Clip(out)
}
