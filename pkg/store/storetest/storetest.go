// Package storetest checks a store.Store implementation against the
// behavior every adapter shares.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pageflow/pkg/document"
	"pageflow/pkg/store"
)

// Run exercises s. The store must start empty.
func Run(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	first := document.FromPages("INV-001", []string{"<p>one two</p>", "<p>three</p>"})
	second := document.New("INV-002")

	require.NoError(t, s.Upsert(ctx, "INV-001", first, base))
	require.NoError(t, s.Upsert(ctx, "INV-002", second, base.Add(time.Minute)))

	t.Run("list newest first", func(t *testing.T) {
		recs, err := s.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "INV-002", recs[0].Key)
		assert.Equal(t, "INV-001", recs[1].Key)
		assert.Equal(t, 2, recs[1].Pages)
		assert.Equal(t, 3, recs[1].Words)
	})

	t.Run("upsert replaces by key", func(t *testing.T) {
		first.Rename("INV-001 revised")
		require.NoError(t, s.Upsert(ctx, "INV-001", first, base.Add(2*time.Minute)))

		recs, err := s.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "INV-001", recs[0].Key)
		assert.Equal(t, "INV-001 revised", recs[0].Title)

		rec, err := s.Get(ctx, "INV-001")
		require.NoError(t, err)
		doc, err := rec.Document()
		require.NoError(t, err)
		assert.Equal(t, first.ID, doc.ID)
		assert.Equal(t, first.HTML(), doc.HTML())
		assert.True(t, doc.UpdatedAt.Equal(base.Add(2*time.Minute)))
	})

	t.Run("upsert keeps created at", func(t *testing.T) {
		later := base.Add(48 * time.Hour)
		require.NoError(t, s.Upsert(ctx, "INV-001", first, later))

		rec, err := s.Get(ctx, "INV-001")
		require.NoError(t, err)
		assert.True(t, rec.CreatedAt.Equal(base), "created %v", rec.CreatedAt)
		assert.True(t, rec.UpdatedAt.Equal(later), "updated %v", rec.UpdatedAt)

		doc, err := rec.Document()
		require.NoError(t, err)
		assert.True(t, doc.CreatedAt.Equal(base))
		assert.True(t, doc.UpdatedAt.Equal(later))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteByKey(ctx, "INV-002"))
		assert.ErrorIs(t, s.DeleteByKey(ctx, "INV-002"), store.ErrNotFound)
		_, err := s.Get(ctx, "INV-002")
		assert.ErrorIs(t, err, store.ErrNotFound)

		recs, err := s.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})
}
