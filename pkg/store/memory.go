package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"pageflow/pkg/document"
)

// Memory keeps records in a map. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

func (m *Memory) Upsert(_ context.Context, key string, doc *document.Document, ts time.Time) error {
	rec, err := NewRecord(key, doc, ts)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if old, ok := m.records[key]; ok {
		rec.CreatedAt = old.CreatedAt
	}
	m.records[key] = rec
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[key]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) ListAll(_ context.Context) ([]Record, error) {
	m.mu.RLock()
	out := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b Record) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
	return out, nil
}

func (m *Memory) DeleteByKey(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[key]; !ok {
		return ErrNotFound
	}
	delete(m.records, key)
	return nil
}

func (m *Memory) Close() error { return nil }
