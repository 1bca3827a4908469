// Package logging builds the zerolog logger shared by the commands.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

const permission = 0664

type Build struct {
	writer  io.Writer
	path    string
	level   zerolog.Level
	console bool
}

// Log is a built logger plus the file it writes to, if any.
type Log struct {
	Logger zerolog.Logger
	File   *os.File
}

func New() *Build {
	return &Build{level: zerolog.InfoLevel}
}

// FromPath appends to the file at path instead of the writer.
func (b *Build) FromPath(path string) *Build {
	b.path = path
	return b
}

func (b *Build) FromBuffer(w io.Writer) *Build {
	b.writer = w
	return b
}

// Level parses a level name; unknown names keep the current level.
func (b *Build) Level(name string) *Build {
	if lvl, err := zerolog.ParseLevel(name); err == nil && name != "" {
		b.level = lvl
	}
	return b
}

// Console switches to zerolog's human readable writer.
func (b *Build) Console(on bool) *Build {
	b.console = on
	return b
}

func (b *Build) Make() (*Log, error) {
	l := &Log{}
	w := b.writer
	if w == nil {
		w = os.Stderr
	}
	if b.path != "" {
		f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, err
		}
		l.File = f
		w = zerolog.SyncWriter(f)
	}
	if b.console {
		w = zerolog.ConsoleWriter{Out: w, NoColor: b.path != ""}
	}
	l.Logger = zerolog.New(w).Level(b.level).With().Timestamp().Logger()
	return l, nil
}

// Close closes the log file, if one was opened.
func (l *Log) Close() error {
	if l.File == nil {
		return nil
	}
	return l.File.Close()
}
