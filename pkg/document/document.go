// Package document holds the page set: an ordered list of page fragments
// plus page settings and floating annotations. A document always has at
// least one page.
package document

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pageflow/pkg/page"
)

var (
	ErrLastPage  = errors.New("document must keep at least one page")
	ErrPageIndex = errors.New("page index out of range")
)

type State int

const (
	Normal State = iota
	Overflowing
	PendingRemoval
)

func (s State) String() string {
	switch s {
	case Normal:
		return "normal"
	case Overflowing:
		return "overflowing"
	case PendingRemoval:
		return "pending-removal"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "normal":
		*s = Normal
	case "overflowing":
		*s = Overflowing
	case "pending-removal":
		*s = PendingRemoval
	default:
		return fmt.Errorf("unknown page state %q", text)
	}
	return nil
}

// Page is one fixed-size page. ID is stable across reorders.
type Page struct {
	ID    string `json:"id"`
	HTML  string `json:"html"`
	State State  `json:"-"`
}

type Document struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	Pages       []Page            `json:"pages"`
	Settings    page.Settings     `json:"settings"`
	Annotations []Annotation      `json:"annotations,omitempty"`
	Meta        map[string]string `json:"meta,omitempty"`
}

// DefaultTitle is the title of a new document.
const DefaultTitle = "Untitled document"

func newPage(html string) Page {
	return Page{ID: uuid.NewString(), HTML: html}
}

// New returns a document with one empty page and default settings.
func New(title string) *Document {
	if title == "" {
		title = DefaultTitle
	}
	return &Document{
		ID:       uuid.NewString(),
		Title:    title,
		Pages:    []Page{newPage("")},
		Settings: page.DefaultSettings(),
		Meta:     make(map[string]string),
	}
}

// FromPages builds a document from page fragments. No fragments yields one
// empty page.
func FromPages(title string, fragments []string) *Document {
	d := New(title)
	if len(fragments) == 0 {
		return d
	}
	d.Pages = d.Pages[:0]
	for _, f := range fragments {
		d.Pages = append(d.Pages, newPage(f))
	}
	return d
}

func (d *Document) Len() int { return len(d.Pages) }

func (d *Document) check(i int) error {
	if i < 0 || i >= len(d.Pages) {
		return fmt.Errorf("%w: %d of %d", ErrPageIndex, i, len(d.Pages))
	}
	return nil
}

// Page returns page i.
func (d *Document) Page(i int) (*Page, error) {
	if err := d.check(i); err != nil {
		return nil, err
	}
	return &d.Pages[i], nil
}

// IndexOf returns the index of the page with the given id, or -1.
func (d *Document) IndexOf(pageID string) int {
	for i, p := range d.Pages {
		if p.ID == pageID {
			return i
		}
	}
	return -1
}

// HTML returns every page fragment in order.
func (d *Document) HTML() []string {
	out := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		out[i] = p.HTML
	}
	return out
}

func (d *Document) SetHTML(i int, html string) error {
	if err := d.check(i); err != nil {
		return err
	}
	d.Pages[i].HTML = html
	return nil
}

// Prepend puts markup in front of page i's fragment.
func (d *Document) Prepend(i int, html string) error {
	if err := d.check(i); err != nil {
		return err
	}
	d.Pages[i].HTML = html + d.Pages[i].HTML
	return nil
}

// InsertAfter inserts a page holding html right after page i and returns
// its index.
func (d *Document) InsertAfter(i int, html string) (int, error) {
	if err := d.check(i); err != nil {
		return 0, err
	}
	d.Pages = append(d.Pages, Page{})
	copy(d.Pages[i+2:], d.Pages[i+1:])
	d.Pages[i+1] = newPage(html)
	return i + 1, nil
}

// Append adds a page at the end and returns its index.
func (d *Document) Append(html string) int {
	d.Pages = append(d.Pages, newPage(html))
	return len(d.Pages) - 1
}

// Remove deletes page i. Annotations on it move to the previous page, or to
// the new first page when i is 0.
func (d *Document) Remove(i int) error {
	if err := d.check(i); err != nil {
		return err
	}
	if len(d.Pages) == 1 {
		return ErrLastPage
	}
	removed := d.Pages[i].ID
	d.Pages = append(d.Pages[:i], d.Pages[i+1:]...)
	target := d.Pages[max(i-1, 0)].ID
	for k := range d.Annotations {
		if d.Annotations[k].PageID == removed {
			d.Annotations[k].PageID = target
		}
	}
	return nil
}

// Move reorders page from to index to.
func (d *Document) Move(from, to int) error {
	if err := d.check(from); err != nil {
		return err
	}
	if err := d.check(to); err != nil {
		return err
	}
	p := d.Pages[from]
	d.Pages = append(d.Pages[:from], d.Pages[from+1:]...)
	d.Pages = append(d.Pages[:to], append([]Page{p}, d.Pages[to:]...)...)
	return nil
}

// Rename sets the title. Blank titles fall back to DefaultTitle.
func (d *Document) Rename(title string) {
	if title == "" {
		title = DefaultTitle
	}
	d.Title = title
}

// Clone returns a deep copy with the same identifiers.
func (d *Document) Clone() *Document {
	c := *d
	c.Pages = append([]Page(nil), d.Pages...)
	c.Annotations = append([]Annotation(nil), d.Annotations...)
	c.Meta = make(map[string]string, len(d.Meta))
	for k, v := range d.Meta {
		c.Meta[k] = v
	}
	return &c
}

// Duplicate returns a copy under fresh identifiers, for "make a copy".
func (d *Document) Duplicate() *Document {
	c := d.Clone()
	c.ID = uuid.NewString()
	c.Title = "Copy of " + d.Title
	c.CreatedAt, c.UpdatedAt = time.Time{}, time.Time{}
	ids := make(map[string]string, len(c.Pages))
	for i := range c.Pages {
		id := uuid.NewString()
		ids[c.Pages[i].ID] = id
		c.Pages[i].ID = id
		c.Pages[i].State = Normal
	}
	for i := range c.Annotations {
		c.Annotations[i].ID = uuid.NewString()
		c.Annotations[i].PageID = ids[c.Annotations[i].PageID]
	}
	return c
}
