package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pageflow/pkg/config"
	"pageflow/pkg/store"
	"pageflow/pkg/store/snapshot"
)

func TestOpenStore(t *testing.T) {
	st, err := openStore(context.Background(), config.Store{Type: "memory"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &store.Memory{}, st)

	_, err = openStore(context.Background(), config.Store{Type: "cassandra"}, zerolog.Nop())
	assert.ErrorContains(t, err, `unknown store type "cassandra"`)
}

func TestOpenSnapshots(t *testing.T) {
	c, err := openSnapshots(config.Snapshot{Type: "none"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = openSnapshots(config.Snapshot{Type: "file", Path: filepath.Join(t.TempDir(), "s.json")}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &snapshot.File{}, c)

	_, err = openSnapshots(config.Snapshot{Type: "file"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = openSnapshots(config.Snapshot{Type: "s3"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestBuildWiresMacros(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stamp.js"), []byte(`editor.type("ok")`), 0o644))
	cfg := config.Default()
	cfg.Server.MacroDir = dir

	var logs bytes.Buffer
	srv, closeAll, err := build(context.Background(), cfg, zerolog.New(&logs))
	require.NoError(t, err)
	defer closeAll()
	assert.NotNil(t, srv.Handler())
	assert.Contains(t, logs.String(), "stamp")
}

func TestPrintConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\naddr = \"0.0.0.0:9000\"\n"), 0o644))

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-config", path, "-log-level", "debug", "-print-config"}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), `addr = "0.0.0.0:9000"`)
	assert.Contains(t, stdout.String(), `level = "debug"`)
}
