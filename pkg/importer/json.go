package importer

import (
	"context"
	"encoding/json"
	"fmt"
)

// JSONExtractor reads span dumps of the form {"pages": [[span, ...], ...]}.
type JSONExtractor struct{}

var _ Extractor = JSONExtractor{}

type spanDump struct {
	Pages [][]Span `json:"pages"`
}

func (JSONExtractor) decode(src []byte) (spanDump, error) {
	var d spanDump
	if err := json.Unmarshal(src, &d); err != nil {
		return d, fmt.Errorf("decoding span dump: %w", err)
	}
	return d, nil
}

func (x JSONExtractor) PageCount(_ context.Context, src []byte) (int, error) {
	d, err := x.decode(src)
	if err != nil {
		return 0, err
	}
	return len(d.Pages), nil
}

func (x JSONExtractor) ExtractPositionedSpans(_ context.Context, src []byte, page int) ([]Span, error) {
	d, err := x.decode(src)
	if err != nil {
		return nil, err
	}
	if page < 1 || page > len(d.Pages) {
		return nil, fmt.Errorf("page %d out of range 1..%d", page, len(d.Pages))
	}
	return d.Pages[page-1], nil
}
