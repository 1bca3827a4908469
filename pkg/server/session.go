package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"pageflow/pkg/document"
	"pageflow/pkg/editor"
	"pageflow/pkg/notify"
)

// Message is one client request.
type Message struct {
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args,omitempty"`
}

// File is an exported document sent back to the client.
type File struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// Reply is every server message. Frame is always set.
type Reply struct {
	Op     string        `json:"op"`
	Frame  *editor.Frame `json:"frame,omitempty"`
	Result any           `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
	File   *File         `json:"file,omitempty"`
}

const (
	ReplyFrame    = "frame"
	ReplyExported = "exported"
)

// job runs on the session loop. A nil reply sends nothing.
type job func() *Reply

type session struct {
	srv  *Server
	conn *websocket.Conn
	ed   *editor.Editor
	work chan job
	done <-chan struct{}
	log  zerolog.Logger
}

func (s *Server) newSession(conn *websocket.Conn) *session {
	log := s.log.With().Str("session", uuid.NewString()[:8]).Logger()
	opts := []editor.Option{editor.WithLogger(log)}
	if s.noticeTTL > 0 {
		opts = append(opts, editor.WithNotices(notify.NewFeed(notify.WithTTL(s.noticeTTL), notify.WithLogger(log))))
	}
	doc := document.New("")
	if s.settings != nil {
		doc.Settings = *s.settings
	}
	ed := editor.New(doc, append(opts, s.editorOpts...)...)
	if len(s.macros) > 0 {
		s.macros.Register(ed.Commands())
	}
	return &session{srv: s, conn: conn, ed: ed, work: make(chan job), log: log}
}

// run owns the editor until the connection drops or ctx ends. Client
// messages, overlay polls and task completions are serialized here.
func (s *session) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.conn.Close()
	s.done = ctx.Done()

	s.restore(ctx)
	defer s.persist()

	in := make(chan Message)
	readErr := make(chan error, 1)
	go s.read(ctx, in, readErr)
	go s.ed.Tracker().Run(ctx, s.srv.poll, s.submitPoll)

	s.log.Info().Msg("session opened")
	if err := s.send(s.frame()); err != nil {
		return err
	}
	for {
		var reply *Reply
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case msg := <-in:
			reply = s.handle(ctx, msg)
		case fn := <-s.work:
			reply = fn()
		}
		if reply == nil {
			continue
		}
		if err := s.send(reply); err != nil {
			return err
		}
	}
}

func (s *session) read(ctx context.Context, in chan<- Message, errc chan<- error) {
	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			errc <- err
			return
		}
		select {
		case in <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (s *session) send(r *Reply) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteJSON(r)
}

func (s *session) frame() *Reply {
	f := s.ed.Render()
	return &Reply{Op: ReplyFrame, Frame: &f}
}

// enqueue hands fn to the loop. It gives up once the session ends.
func (s *session) enqueue(fn job) {
	select {
	case s.work <- fn:
	case <-s.done:
	}
}

// submitPoll runs a tracker poll on the loop and sends a frame only when
// the overlay rect moved.
func (s *session) submitPoll(poll func()) {
	s.enqueue(func() *Reply {
		before, hadBefore := s.ed.Tracker().Rect()
		poll()
		after, hasAfter := s.ed.Tracker().Rect()
		if hadBefore == hasAfter && before == after {
			return nil
		}
		return s.frame()
	})
}

// watch waits for t in the background and runs then on the loop.
func (s *session) watch(t *editor.Task, then func(result any, err error) *Reply) {
	go func() {
		select {
		case <-t.Done():
		case <-s.done:
			return
		}
		s.enqueue(func() *Reply {
			res, err := t.Result()
			return then(res, err)
		})
	}()
}

func (s *session) restore(ctx context.Context) {
	if s.srv.snapshots == nil {
		return
	}
	docs, err := s.srv.snapshots.Load(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("session restore failed")
		return
	}
	if len(docs) > 0 {
		s.ed.Load(docs[0])
	}
}

func (s *session) persist() {
	if s.srv.snapshots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.snapshots.Save(ctx, []*document.Document{s.ed.Document()}); err != nil {
		s.log.Warn().Err(err).Msg("session snapshot failed")
	}
}
