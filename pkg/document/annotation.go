package document

import (
	"fmt"

	"github.com/google/uuid"
)

// Annotation is a floating image (a signature stamp) placed on a page,
// outside the text flow. X and Y are page-relative pixels.
type Annotation struct {
	ID        string  `json:"id"`
	ImageData string  `json:"imageData"`
	PageID    string  `json:"pageId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

// Placement of a new annotation.
const (
	DefaultAnnotationX      = 100
	DefaultAnnotationY      = 100
	DefaultAnnotationWidth  = 200
	DefaultAnnotationHeight = 100
)

// AddAnnotation places an image on page pageID at the default position.
func (d *Document) AddAnnotation(pageID, imageData string) (Annotation, error) {
	if d.IndexOf(pageID) < 0 {
		return Annotation{}, fmt.Errorf("%w: page %s", ErrPageIndex, pageID)
	}
	a := Annotation{
		ID:        uuid.NewString(),
		ImageData: imageData,
		PageID:    pageID,
		X:         DefaultAnnotationX,
		Y:         DefaultAnnotationY,
		Width:     DefaultAnnotationWidth,
		Height:    DefaultAnnotationHeight,
	}
	d.Annotations = append(d.Annotations, a)
	return a, nil
}

// Annotation returns the annotation with the given id.
func (d *Document) Annotation(id string) (Annotation, bool) {
	for _, a := range d.Annotations {
		if a.ID == id {
			return a, true
		}
	}
	return Annotation{}, false
}

// UpdateAnnotation applies fn to the annotation with the given id.
func (d *Document) UpdateAnnotation(id string, fn func(*Annotation)) bool {
	for i := range d.Annotations {
		if d.Annotations[i].ID == id {
			fn(&d.Annotations[i])
			return true
		}
	}
	return false
}

func (d *Document) RemoveAnnotation(id string) bool {
	for i, a := range d.Annotations {
		if a.ID == id {
			d.Annotations = append(d.Annotations[:i], d.Annotations[i+1:]...)
			return true
		}
	}
	return false
}

// AnnotationsFor returns the annotations placed on a page, in insertion order.
func (d *Document) AnnotationsFor(pageID string) []Annotation {
	var out []Annotation
	for _, a := range d.Annotations {
		if a.PageID == pageID {
			out = append(out, a)
		}
	}
	return out
}
