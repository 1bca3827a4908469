// Package config loads pageflow settings from TOML, layered over defaults.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"pageflow/pkg/page"
)

type Server struct {
	Addr         string   `toml:"addr"`
	PollInterval Duration `toml:"poll_interval"`
	MacroDir     string   `toml:"macro_dir"`
}

type Editor struct {
	BackspaceMerge bool          `toml:"backspace_merge"`
	ReadOnly       bool          `toml:"read_only"`
	PageGap        float64       `toml:"page_gap"`
	NoticeTTL      Duration      `toml:"notice_ttl"`
	Page           page.Settings `toml:"page"`
}

type Log struct {
	Level   string `toml:"level"`
	Path    string `toml:"path"`
	Console bool   `toml:"console"`
}

// Store selects the document store. Type is memory, pgsql or mysql.
type Store struct {
	Type  string `toml:"type"`
	Host  string `toml:"host"`
	Port  int    `toml:"port"`
	User  string `toml:"user"`
	PW    string `toml:"pw"`
	DB    string `toml:"db"`
	TZ    string `toml:"tz"`
	DSN   string `toml:"dsn"`
	Table string `toml:"table"`
}

// Snapshot selects the session cache. Type is none, file or redis.
type Snapshot struct {
	Type string `toml:"type"`
	Path string `toml:"path"`
	Host string `toml:"host"`
	Port int    `toml:"port"`
	PW   string `toml:"pw"`
	DB   int    `toml:"db"`
	Key  string `toml:"key"`
}

// Export configures rasterizing. With RemoteImages set, http(s) image
// sources are fetched, relative ones against ImageBase.
type Export struct {
	Scale        float64 `toml:"scale"`
	RemoteImages bool    `toml:"remote_images"`
	ImageBase    string  `toml:"image_base"`
}

type Config struct {
	Server   Server   `toml:"server"`
	Editor   Editor   `toml:"editor"`
	Log      Log      `toml:"log"`
	Store    Store    `toml:"store"`
	Snapshot Snapshot `toml:"snapshot"`
	Export   Export   `toml:"export"`
}

// Duration decodes TOML strings such as "500ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func Default() *Config {
	return &Config{
		Server: Server{
			Addr:         "127.0.0.1:8740",
			PollInterval: Duration{500 * time.Millisecond},
		},
		Editor: Editor{
			PageGap:   20,
			NoticeTTL: Duration{4 * time.Second},
			Page:      page.DefaultSettings(),
		},
		Log:      Log{Level: "info"},
		Store:    Store{Type: "memory", Table: "documents", TZ: "UTC"},
		Snapshot: Snapshot{Type: "none", Key: "pageflow:session"},
		Export:   Export{Scale: 2},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/pageflow/config.toml or its home
// directory equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "pageflow", "config.toml"), nil
}

// Load decodes the file at path over the defaults. A missing file yields
// the defaults; an empty path means DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads TOML text over the defaults.
func Decode(text string) (*Config, error) {
	cfg := Default()
	if _, err := toml.Decode(text, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if err := c.Editor.Page.Validate(); err != nil {
		return fmt.Errorf("editor.page: %w", err)
	}
	switch c.Store.Type {
	case "memory", "pgsql", "mysql":
	default:
		return fmt.Errorf("store.type: unsupported %q", c.Store.Type)
	}
	switch c.Snapshot.Type {
	case "none", "file", "redis":
	default:
		return fmt.Errorf("snapshot.type: unsupported %q", c.Snapshot.Type)
	}
	if c.Export.Scale <= 0 {
		return fmt.Errorf("export.scale must be positive")
	}
	return nil
}

// TOML renders the config, for writing a starter file.
func (c *Config) TOML() (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return "", err
	}
	return buf.String(), nil
}
