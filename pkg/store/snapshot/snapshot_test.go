package snapshot

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pageflow/pkg/document"
)

func TestDecodeMalformed(t *testing.T) {
	buf := &bytes.Buffer{}
	docs := decode([]byte("{not json"), zerolog.New(buf))
	require.Len(t, docs, 1)
	assert.Equal(t, 1, docs[0].Len())
	assert.Equal(t, "", docs[0].Pages[0].HTML)
	assert.Contains(t, buf.String(), "malformed session snapshot")
}

func TestDecodeMalformedEntry(t *testing.T) {
	docs := decode([]byte(`[{"title":"ok","pages":[{"html":"<p>a</p>"}]}, 42]`), zerolog.Nop())
	require.Len(t, docs, 2)
	assert.Equal(t, "ok", docs[0].Title)
	assert.Equal(t, document.DefaultTitle, docs[1].Title)
}

func TestDecodeEmptyList(t *testing.T) {
	docs := decode([]byte(`[]`), zerolog.Nop())
	assert.Len(t, docs, 1)
}

func TestFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := NewFile(filepath.Join(t.TempDir(), "state", "session.json"), zerolog.Nop())

	docs, err := f.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, docs)

	in := []*document.Document{
		document.FromPages("A", []string{"<p>one</p>", "<p>two</p>"}),
		document.New("B"),
	}
	require.NoError(t, f.Save(ctx, in))

	out, err := f.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, in[0].ID, out[0].ID)
	assert.Equal(t, in[0].HTML(), out[0].HTML())
	assert.Equal(t, "B", out[1].Title)

	require.NoError(t, f.Clear(ctx))
	require.NoError(t, f.Clear(ctx))
	docs, err = f.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, docs)
}

func TestFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	docs, err := NewFile(path, zerolog.Nop()).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

// Set PAGEFLOW_REDIS_ADDR to run against a scratch redis.
func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("PAGEFLOW_REDIS_ADDR")
	if addr == "" {
		t.Skip("PAGEFLOW_REDIS_ADDR not set")
	}
	ctx := context.Background()
	r := NewRedisClient(redis.NewClient(&redis.Options{Addr: addr}), "pageflow:test:session", 0, zerolog.Nop())
	defer r.Close()
	require.NoError(t, r.Clear(ctx))

	docs, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, docs)

	in := []*document.Document{document.FromPages("A", []string{"<p>x</p>"})}
	require.NoError(t, r.Save(ctx, in))
	out, err := r.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, in[0].ID, out[0].ID)
	require.NoError(t, r.Clear(ctx))
}
