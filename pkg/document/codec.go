package document

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pageflow/pkg/html"
	"pageflow/pkg/page"
)

// Marshal encodes a document as JSON.
func Marshal(d *Document) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encoding document %s: %w", d.ID, err)
	}
	return data, nil
}

// Unmarshal decodes a document and repairs what a stored copy may lack:
// a missing id, page ids, settings or the last page. Page fragments are
// brought to the serializer's canonical form.
func Unmarshal(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	d.normalize()
	return &d, nil
}

// UnmarshalOrBlank decodes data, falling back to one blank document when it
// is malformed.
func UnmarshalOrBlank(data []byte, log zerolog.Logger) *Document {
	d, err := Unmarshal(data)
	if err != nil {
		log.Warn().Err(err).Msg("malformed document snapshot, starting blank")
		return New("")
	}
	return d
}

func (d *Document) normalize() {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Title == "" {
		d.Title = DefaultTitle
	}
	if len(d.Pages) == 0 {
		d.Pages = []Page{newPage("")}
	}
	for i := range d.Pages {
		if d.Pages[i].ID == "" {
			d.Pages[i].ID = uuid.NewString()
		}
		d.Pages[i].HTML = html.Canonical(d.Pages[i].HTML)
	}
	if d.Settings.Validate() != nil {
		d.Settings = page.DefaultSettings()
	}
	if d.Meta == nil {
		d.Meta = make(map[string]string)
	}
	for k := range d.Annotations {
		if d.IndexOf(d.Annotations[k].PageID) < 0 {
			d.Annotations[k].PageID = d.Pages[0].ID
		}
	}
}
