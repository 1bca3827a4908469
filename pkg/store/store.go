// Package store persists documents by key. Adapters live in subpackages;
// Memory is the in-process implementation.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pageflow/pkg/document"
)

var ErrNotFound = errors.New("document not found")

// Record is one stored document with its summary fields.
type Record struct {
	Key       string    `json:"key"`
	Title     string    `json:"title"`
	Pages     int       `json:"pages"`
	Words     int       `json:"words"`
	Content   []byte    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Document decodes the record's content. The record's timestamps win over
// the ones in the content.
func (r Record) Document() (*document.Document, error) {
	d, err := document.Unmarshal(r.Content)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", r.Key, err)
	}
	if !r.CreatedAt.IsZero() {
		d.CreatedAt = r.CreatedAt
	}
	if !r.UpdatedAt.IsZero() {
		d.UpdatedAt = r.UpdatedAt
	}
	return d, nil
}

// Store is the document store. ListAll orders by UpdatedAt, newest first.
// Upsert on an existing key keeps the stored CreatedAt.
type Store interface {
	Upsert(ctx context.Context, key string, doc *document.Document, ts time.Time) error
	Get(ctx context.Context, key string) (Record, error)
	ListAll(ctx context.Context) ([]Record, error)
	DeleteByKey(ctx context.Context, key string) error
	Close() error
}

// NewRecord stamps a copy of doc with ts and encodes it. CreatedAt is ts
// unless doc already has one.
func NewRecord(key string, doc *document.Document, ts time.Time) (Record, error) {
	if key == "" {
		return Record{}, errors.New("empty document key")
	}
	c := doc.Clone()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = ts
	}
	c.UpdatedAt = ts
	data, err := document.Marshal(c)
	if err != nil {
		return Record{}, err
	}
	stats := c.Stats()
	return Record{
		Key:       key,
		Title:     c.Title,
		Pages:     stats.Pages,
		Words:     stats.Words,
		Content:   data,
		CreatedAt: c.CreatedAt,
		UpdatedAt: ts,
	}, nil
}
