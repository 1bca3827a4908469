// Package server serves editing sessions over websockets. Each connection
// owns one editor and processes its messages one at a time.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"pageflow/pkg/editor"
	"pageflow/pkg/export"
	"pageflow/pkg/importer"
	"pageflow/pkg/macro"
	"pageflow/pkg/overlay"
	"pageflow/pkg/page"
	"pageflow/pkg/store"
	"pageflow/pkg/store/snapshot"
)

type Server struct {
	store      store.Store
	snapshots  snapshot.Cache
	exporter   *export.Exporter
	importer   *importer.Importer
	macros     macro.Library
	editorOpts []editor.Option
	settings   *page.Settings
	noticeTTL  time.Duration
	poll       time.Duration
	log        zerolog.Logger
	upgrader   websocket.Upgrader
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithStore sets the document store. The default is an in-memory store.
func WithStore(st store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithSnapshots restores a session's document on connect and saves it on
// disconnect.
func WithSnapshots(c snapshot.Cache) Option {
	return func(s *Server) { s.snapshots = c }
}

// WithExporter enables the export op and the PDF endpoint.
func WithExporter(e *export.Exporter) Option {
	return func(s *Server) { s.exporter = e }
}

// WithImporter enables the import op.
func WithImporter(im *importer.Importer) Option {
	return func(s *Server) { s.importer = im }
}

// WithMacros registers scripted commands on every session's editor.
func WithMacros(lib macro.Library) Option {
	return func(s *Server) { s.macros = lib }
}

func WithEditorOptions(opts ...editor.Option) Option {
	return func(s *Server) { s.editorOpts = append(s.editorOpts, opts...) }
}

// WithPageSettings sets the page geometry of each session's first
// document.
func WithPageSettings(ps page.Settings) Option {
	return func(s *Server) { s.settings = &ps }
}

// WithNoticeTTL sets how long each session's notices stay visible.
func WithNoticeTTL(d time.Duration) Option {
	return func(s *Server) { s.noticeTTL = d }
}

// WithPollInterval sets how often overlay positions are re-read.
func WithPollInterval(d time.Duration) Option {
	return func(s *Server) { s.poll = d }
}

func New(opts ...Option) *Server {
	s := &Server{
		poll: overlay.DefaultPollInterval,
		log:  zerolog.Nop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = store.NewMemory()
	}
	return s
}

// Handler routes the websocket endpoint and the document endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.serveSession)
	mux.HandleFunc("GET /documents", s.listDocuments)
	mux.HandleFunc("GET /documents/{key}", s.getDocument)
	mux.HandleFunc("DELETE /documents/{key}", s.deleteDocument)
	mux.HandleFunc("GET /documents/{key}/pdf", s.exportDocument)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// ListenAndServe serves until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", addr).Msg("listening")

	select {
	case err := <-errc:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) serveSession(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	sess := s.newSession(conn)
	if err := sess.run(r.Context()); err != nil {
		sess.log.Debug().Err(err).Msg("session ended")
	}
}

type summary struct {
	Key       string    `json:"key"`
	Title     string    `json:"title"`
	Pages     int       `json:"pages"`
	Words     int       `json:"words"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func summarize(recs []store.Record) []summary {
	out := make([]summary, len(recs))
	for i, r := range recs {
		out[i] = summary{Key: r.Key, Title: r.Title, Pages: r.Pages, Words: r.Words, UpdatedAt: r.UpdatedAt}
	}
	return out
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.ListAll(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summarize(recs))
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), r.PathValue("key"))
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(rec.Content)
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteByKey(r.Context(), r.PathValue("key")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) exportDocument(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		http.Error(w, "export is not configured", http.StatusNotImplemented)
		return
	}
	rec, err := s.store.Get(r.Context(), r.PathValue("key"))
	if err != nil {
		s.fail(w, err)
		return
	}
	doc, err := rec.Document()
	if err != nil {
		s.fail(w, err)
		return
	}
	var buf bytes.Buffer
	if err := s.exporter.PDF(r.Context(), doc, &buf); err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(doc)))
	_, _ = buf.WriteTo(w)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, store.ErrNotFound) {
		status = http.StatusNotFound
	} else {
		s.log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
