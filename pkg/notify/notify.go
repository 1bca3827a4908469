// Package notify holds the user-facing notices raised by editor commands
// and background tasks. Notices expire on their own after a while and can
// be dismissed early.
package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTTL is how long a notice stays visible.
const DefaultTTL = 4 * time.Second

type Level string

const (
	Info    Level = "info"
	Success Level = "success"
	Warning Level = "warning"
	Error   Level = "error"
)

type Notice struct {
	ID      int       `json:"id"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Created time.Time `json:"created"`
}

// Feed is safe for concurrent use; background tasks push into it.
type Feed struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	log     zerolog.Logger
	notices []Notice
	nextID  int
}

type Option func(*Feed)

func WithTTL(d time.Duration) Option {
	return func(f *Feed) { f.ttl = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(f *Feed) { f.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(f *Feed) { f.log = l }
}

func NewFeed(opts ...Option) *Feed {
	f := &Feed{ttl: DefaultTTL, now: time.Now, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Push records a notice and logs it at the matching level.
func (f *Feed) Push(level Level, msg string) Notice {
	f.mu.Lock()
	f.nextID++
	n := Notice{ID: f.nextID, Level: level, Message: msg, Created: f.now()}
	f.notices = append(f.notices, n)
	f.mu.Unlock()

	var ev *zerolog.Event
	switch level {
	case Warning:
		ev = f.log.Warn()
	case Error:
		ev = f.log.Error()
	default:
		ev = f.log.Info()
	}
	ev.Int("notice", n.ID).Str("kind", string(level)).Msg(msg)
	return n
}

func (f *Feed) Info(msg string) Notice    { return f.Push(Info, msg) }
func (f *Feed) Success(msg string) Notice { return f.Push(Success, msg) }
func (f *Feed) Warn(msg string) Notice    { return f.Push(Warning, msg) }

// Error pushes an error notice carrying err's text after msg.
func (f *Feed) Error(msg string, err error) Notice {
	if err != nil {
		msg += ": " + err.Error()
	}
	return f.Push(Error, msg)
}

// Dismiss removes a notice before it expires.
func (f *Feed) Dismiss(id int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, n := range f.notices {
		if n.ID == id {
			f.notices = append(f.notices[:i], f.notices[i+1:]...)
			return true
		}
	}
	return false
}

// Active drops expired notices and returns the rest, oldest first.
func (f *Feed) Active() []Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	kept := f.notices[:0]
	for _, n := range f.notices {
		if now.Sub(n.Created) < f.ttl {
			kept = append(kept, n)
		}
	}
	f.notices = kept
	return append([]Notice(nil), kept...)
}
