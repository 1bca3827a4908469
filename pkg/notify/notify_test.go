package notify

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestExpiry(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	f := NewFeed(WithClock(c.now))

	f.Info("New page added")
	c.t = c.t.Add(3 * time.Second)
	f.Warn("Locked")
	require.Len(t, f.Active(), 2)

	c.t = c.t.Add(2 * time.Second)
	active := f.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "Locked", active[0].Message)

	c.t = c.t.Add(DefaultTTL)
	assert.Empty(t, f.Active())
}

func TestDismiss(t *testing.T) {
	f := NewFeed()
	n := f.Success("Saved")
	f.Info("other")
	assert.True(t, f.Dismiss(n.ID))
	assert.False(t, f.Dismiss(n.ID))
	require.Len(t, f.Active(), 1)
	assert.Equal(t, "other", f.Active()[0].Message)
}

func TestErrorNoticeIsLogged(t *testing.T) {
	var buf bytes.Buffer
	f := NewFeed(WithLogger(zerolog.New(&buf)))
	n := f.Error("Export failed", errors.New("disk full"))
	assert.Equal(t, Error, n.Level)
	assert.Equal(t, "Export failed: disk full", n.Message)
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "disk full")
}
