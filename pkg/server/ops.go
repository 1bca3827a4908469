package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"pageflow/pkg/command"
	"pageflow/pkg/document"
	"pageflow/pkg/export"
	"pageflow/pkg/html"
	"pageflow/pkg/overlay"
	"pageflow/pkg/page"
	"pageflow/pkg/view"
)

// ErrUnknownOp is returned for an op no handler serves.
var ErrUnknownOp = errors.New("unknown op")

type opFunc func(ctx context.Context, s *session, args json.RawMessage) (any, error)

var ops map[string]opFunc

func init() {
	ops = map[string]opFunc{
		"type":         withArgs(opType),
		"paste":        withArgs(opPaste),
		"input":        withArgs(opInput),
		"backspace":    noArgs(func(s *session) error { return s.ed.Backspace() }),
		"pageBreak":    noArgs(func(s *session) error { return s.ed.InsertPageBreak() }),
		"addPage":      noArgs(func(s *session) error { return s.ed.AddPage() }),
		"removePage":   withArgs(opRemovePage),
		"select":       withArgs(opSelect),
		"selectAll":    noArgs(func(s *session) error { s.ed.SelectAll(); return nil }),
		"command":      withArgs(opCommand),
		"click":        withArgs(opClick),
		"selectAnchor": withArgs(opSelectAnchor),
		"gestureBegin": withArgs(opGestureBegin),
		"gestureMove":  withArgs(opGestureMove),
		"gestureEnd":   withArgs(opGestureEnd),
		"toolbar":      withArgs(opToolbar),
		"signature":    withArgs(opSignature),
		"scroll":       withArgs(opScroll),
		"viewport":     withArgs(opViewport),
		"mode":         withArgs(opMode),
		"readOnly":     withArgs(opReadOnly),
		"settings":     withArgs(opSettings),
		"rename":       withArgs(opRename),
		"dismiss":      withArgs(opDismiss),
		"new":          noArgs(func(s *session) error { s.ed.Load(document.New("")); return nil }),
		"duplicate":    noArgs(func(s *session) error { s.ed.Load(s.ed.Document().Duplicate()); return nil }),
		"open":         withArgs(opOpen),
		"save":         withArgs(opSave),
		"list":         opList,
		"delete":       withArgs(opDelete),
		"import":       withArgs(opImport),
		"export":       opExport,
	}
}

// Ops lists the op names the session understands.
func Ops() []string {
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// handle runs one message and answers with the new frame.
func (s *session) handle(ctx context.Context, msg Message) *Reply {
	reply := s.frameAfter(func() (any, error) {
		fn, ok := ops[msg.Op]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOp, msg.Op)
		}
		return fn(ctx, s, msg.Args)
	})
	if reply.Error != "" {
		s.log.Debug().Str("op", msg.Op).Str("error", reply.Error).Msg("op failed")
	}
	return reply
}

func (s *session) frameAfter(fn func() (any, error)) *Reply {
	res, err := fn()
	reply := s.frame()
	reply.Result = res
	if err != nil {
		reply.Error = err.Error()
	}
	return reply
}

func withArgs[T any](fn func(ctx context.Context, s *session, args T) (any, error)) opFunc {
	return func(ctx context.Context, s *session, raw json.RawMessage) (any, error) {
		var args T
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("decoding args: %w", err)
			}
		}
		return fn(ctx, s, args)
	}
}

func noArgs(fn func(s *session) error) opFunc {
	return func(_ context.Context, s *session, _ json.RawMessage) (any, error) {
		return nil, fn(s)
	}
}

type textArgs struct {
	Text string `json:"text"`
}

func opType(_ context.Context, s *session, a textArgs) (any, error) {
	return nil, s.ed.Type(a.Text)
}

type markupArgs struct {
	Page int    `json:"page"`
	HTML string `json:"html"`
}

func opPaste(_ context.Context, s *session, a markupArgs) (any, error) {
	return nil, s.ed.Paste(a.HTML)
}

// opInput replaces a page's live tree with what the client's editing
// surface now holds.
func opInput(_ context.Context, s *session, a markupArgs) (any, error) {
	frag, err := html.Sanitize(a.HTML)
	if err != nil {
		return nil, err
	}
	if _, err := s.ed.Document().Page(a.Page); err != nil {
		return nil, err
	}
	return nil, s.ed.Input(a.Page, func(root *html.Node) {
		for _, c := range slices.Clone(root.Children) {
			root.RemoveChild(c)
		}
		for _, c := range slices.Clone(frag.Children) {
			root.AddChild(c)
		}
	})
}

type pageArgs struct {
	Page int `json:"page"`
}

func opRemovePage(_ context.Context, s *session, a pageArgs) (any, error) {
	return nil, s.ed.RemovePage(a.Page)
}

func opSelect(_ context.Context, s *session, c document.Caret) (any, error) {
	s.ed.Select(c)
	return nil, nil
}

type commandArgs struct {
	Name string       `json:"name"`
	Args command.Args `json:"args"`
}

func opCommand(_ context.Context, s *session, a commandArgs) (any, error) {
	return s.ed.Dispatch(a.Name, a.Args)
}

type pointArgs struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p pointArgs) point() overlay.Point { return overlay.Point{X: p.X, Y: p.Y} }

func opClick(_ context.Context, s *session, a pointArgs) (any, error) {
	return s.ed.Click(a.X, a.Y), nil
}

type anchorArgs struct {
	ID string `json:"id"`
}

func opSelectAnchor(_ context.Context, s *session, a anchorArgs) (any, error) {
	return s.ed.SelectAnchor(a.ID), nil
}

type gestureArgs struct {
	Kind   string         `json:"kind"`
	Handle overlay.Handle `json:"handle"`
	X      float64        `json:"x"`
	Y      float64        `json:"y"`
}

func opGestureBegin(_ context.Context, s *session, a gestureArgs) (any, error) {
	kind := overlay.GestureDrag
	switch a.Kind {
	case "", "drag":
	case "resize":
		kind = overlay.GestureResize
	default:
		return nil, fmt.Errorf("unknown gesture %q", a.Kind)
	}
	return nil, s.ed.BeginGesture(kind, a.Handle, overlay.Point{X: a.X, Y: a.Y})
}

func opGestureMove(_ context.Context, s *session, a pointArgs) (any, error) {
	return s.ed.MoveGesture(a.point())
}

func opGestureEnd(_ context.Context, s *session, a pointArgs) (any, error) {
	return s.ed.EndGesture(a.point())
}

type toolbarArgs struct {
	Action string `json:"action"`
	Value  string `json:"value"`
}

func opToolbar(_ context.Context, s *session, a toolbarArgs) (any, error) {
	return nil, s.ed.Toolbar(a.Action, a.Value)
}

type signatureArgs struct {
	Src string `json:"src"`
}

func opSignature(_ context.Context, s *session, a signatureArgs) (any, error) {
	return s.ed.AddSignature(a.Src)
}

func opScroll(_ context.Context, s *session, a pointArgs) (any, error) {
	s.ed.Tracker().Scroll(a.X, a.Y)
	return nil, nil
}

type sizeArgs struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func opViewport(_ context.Context, s *session, a sizeArgs) (any, error) {
	s.ed.Tracker().Resize(a.Width, a.Height)
	return nil, nil
}

type modeArgs struct {
	Mode string `json:"mode"`
}

func opMode(_ context.Context, s *session, a modeArgs) (any, error) {
	switch a.Mode {
	case "screen":
		s.ed.SetMode(view.Screen)
	case "print":
		s.ed.SetMode(view.Print)
	default:
		return nil, fmt.Errorf("unknown mode %q", a.Mode)
	}
	return nil, nil
}

type flagArgs struct {
	On bool `json:"on"`
}

func opReadOnly(_ context.Context, s *session, a flagArgs) (any, error) {
	s.ed.SetReadOnly(a.On)
	return nil, nil
}

func opSettings(_ context.Context, s *session, a page.Settings) (any, error) {
	return nil, s.ed.SetSettings(a)
}

type titleArgs struct {
	Title string `json:"title"`
}

func opRename(_ context.Context, s *session, a titleArgs) (any, error) {
	s.ed.Rename(a.Title)
	return nil, nil
}

type idArgs struct {
	ID int `json:"id"`
}

func opDismiss(_ context.Context, s *session, a idArgs) (any, error) {
	return s.ed.Notices().Dismiss(a.ID), nil
}

type keyArgs struct {
	Key string `json:"key"`
}

func opOpen(ctx context.Context, s *session, a keyArgs) (any, error) {
	rec, err := s.srv.store.Get(ctx, a.Key)
	if err != nil {
		s.ed.Notices().Error("Open failed", err)
		return nil, err
	}
	doc, err := rec.Document()
	if err != nil {
		s.ed.Notices().Error("Open failed", err)
		return nil, err
	}
	s.ed.Load(doc)
	return nil, nil
}

// opSave upserts by key, which defaults to the document title.
func opSave(ctx context.Context, s *session, a keyArgs) (any, error) {
	doc := s.ed.Document()
	key := a.Key
	if key == "" {
		key = doc.Title
	}
	now := time.Now()
	if err := s.srv.store.Upsert(ctx, key, doc, now); err != nil {
		s.ed.Notices().Error("Save failed", err)
		return nil, err
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	s.ed.Notices().Success("Saved")
	return key, nil
}

func opList(ctx context.Context, s *session, _ json.RawMessage) (any, error) {
	recs, err := s.srv.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return summarize(recs), nil
}

func opDelete(ctx context.Context, s *session, a keyArgs) (any, error) {
	return nil, s.srv.store.DeleteByKey(ctx, a.Key)
}

type importArgs struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// opImport converts a source document in the background and opens it when
// done.
func opImport(ctx context.Context, s *session, a importArgs) (any, error) {
	im := s.srv.importer
	if im == nil {
		return nil, errors.New("import is not configured")
	}
	t := s.ed.StartTask(ctx, "Import", func(ctx context.Context, _ *document.Document) (any, error) {
		return im.Import(ctx, a.Name, a.Data)
	})
	s.watch(t, func(res any, err error) *Reply {
		if err == nil {
			s.ed.Load(res.(*document.Document))
		}
		return s.frame()
	})
	return t.Name, nil
}

// opExport renders a PDF of the current document in the background and
// sends it as a file reply.
func opExport(ctx context.Context, s *session, _ json.RawMessage) (any, error) {
	ex := s.srv.exporter
	if ex == nil {
		return nil, errors.New("export is not configured")
	}
	t := s.ed.StartTask(ctx, "Export", func(ctx context.Context, snap *document.Document) (any, error) {
		var buf bytes.Buffer
		if err := ex.PDF(ctx, snap, &buf); err != nil {
			return nil, err
		}
		return &File{Name: export.FileName(snap), Data: buf.Bytes()}, nil
	})
	s.watch(t, func(res any, err error) *Reply {
		reply := s.frame()
		if err != nil {
			reply.Error = err.Error()
			return reply
		}
		reply.Op = ReplyExported
		reply.File = res.(*File)
		return reply
	})
	return t.Name, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
