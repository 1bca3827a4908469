package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pageflow/pkg/page"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 500*time.Millisecond, cfg.Server.PollInterval.Duration)
	assert.Equal(t, page.A4, cfg.Editor.Page.PaperSize)
	assert.False(t, cfg.Editor.BackspaceMerge)
}

func TestDecodeOverlaysDefaults(t *testing.T) {
	cfg, err := Decode(`
[editor]
backspace_merge = true

[editor.page]
paper_size = "A5"

[store]
type = "pgsql"
host = "db"

[export]
remote_images = true
image_base = "https://assets.example.com/"
`)
	require.NoError(t, err)
	assert.True(t, cfg.Editor.BackspaceMerge)
	assert.Equal(t, page.A5, cfg.Editor.Page.PaperSize)
	assert.Equal(t, page.Portrait, cfg.Editor.Page.Orientation)
	assert.Equal(t, 20.0, cfg.Editor.Page.Margins.Left)
	assert.Equal(t, "db", cfg.Store.Host)
	assert.Equal(t, "documents", cfg.Store.Table)
	assert.Equal(t, "127.0.0.1:8740", cfg.Server.Addr)
	assert.True(t, cfg.Export.RemoteImages)
	assert.Equal(t, "https://assets.example.com/", cfg.Export.ImageBase)
	assert.Equal(t, 2.0, cfg.Export.Scale)
}

func TestDecodeRejects(t *testing.T) {
	for name, text := range map[string]string{
		"store":    "[store]\ntype = \"sqlite\"",
		"snapshot": "[snapshot]\ntype = \"s3\"",
		"paper":    "[editor.page]\npaper_size = \"B5\"",
		"duration": "[server]\npoll_interval = \"soon\"",
		"scale":    "[export]\nscale = 0.0",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(text)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Server.PollInterval = Duration{250 * time.Millisecond}
	cfg.Snapshot.Type = "file"
	text, err := cfg.TOML()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
