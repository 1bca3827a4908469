// Package macro runs user scripts against an editor. Scripts see an
// `editor` object for commands and page edits, a `console`, and a small
// DOM over each page's live tree inside editor.edit callbacks.
package macro

import (
	"context"
	"errors"
	"fmt"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"

	"pageflow/pkg/command"
	"pageflow/pkg/html"
)

// Host is what scripts drive. The editor implements it.
type Host interface {
	command.Target
	Dispatch(name string, args command.Args) (any, error)
	Input(page int, mutate func(root *html.Node)) error
	Type(s string) error
}

// Engine executes scripts on a fresh goja runtime per run.
type Engine struct {
	host Host
	log  zerolog.Logger
}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func New(host Host, opts ...Option) *Engine {
	e := &Engine{host: host, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes src. The script's completion value is exported to Go. A
// cancelled ctx interrupts the script.
func (e *Engine) Run(ctx context.Context, name, src string) (any, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	log := e.log.With().Str("macro", name).Logger()

	(&consoleAPI{log: log}).register(vm)
	nodes := newNodeContext(vm)
	registerEditor(vm, e.host, nodes)

	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	defer stop()

	v, err := vm.RunScript(name, src)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			if cause, ok := interrupted.Value().(error); ok {
				return nil, fmt.Errorf("macro %s: %w", name, cause)
			}
		}
		return nil, fmt.Errorf("macro %s: %w", name, err)
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	return v.Export(), nil
}
