package macro

import (
	"strings"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"
)

// consoleAPI implements console.log, console.warn and console.error on the
// macro's logger.
type consoleAPI struct {
	log zerolog.Logger
}

func (c *consoleAPI) register(vm *goja.Runtime) {
	console := vm.NewObject()
	console.Set("log", c.emit(zerolog.InfoLevel))
	console.Set("warn", c.emit(zerolog.WarnLevel))
	console.Set("error", c.emit(zerolog.ErrorLevel))
	vm.Set("console", console)
}

func (c *consoleAPI) emit(level zerolog.Level) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		c.log.WithLevel(level).Msg(formatArgs(call.Arguments))
		return goja.Undefined()
	}
}

func formatArgs(args []goja.Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.String()
	}
	return strings.Join(parts, " ")
}
