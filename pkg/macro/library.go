package macro

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"pageflow/pkg/command"
)

// Prefix is the command namespace macros are registered under.
const Prefix = "Macros/"

// Library is a set of named scripts.
type Library map[string]string

// LoadDir reads every *.js file in dir. The file name without extension is
// the macro name. A missing dir is an empty library.
func LoadDir(dir string) (Library, error) {
	lib := Library{}
	if dir == "" {
		return lib, nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return lib, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading macro dir: %w", err)
	}
	for _, ent := range entries {
		if ent.IsDir() || filepath.Ext(ent.Name()) != ".js" {
			continue
		}
		src, err := os.ReadFile(filepath.Join(dir, ent.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading macro %s: %w", ent.Name(), err)
		}
		lib[strings.TrimSuffix(ent.Name(), ".js")] = string(src)
	}
	return lib, nil
}

func (l Library) Names() []string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Register adds each macro to d as a mutating command. The handler's target
// must also be a Host.
func (l Library) Register(d *command.Dispatcher, opts ...Option) {
	for name, src := range l {
		d.Register(Prefix+name, true, func(t command.Target, args command.Args) (any, error) {
			h, ok := t.(Host)
			if !ok {
				return nil, fmt.Errorf("macro %s: target cannot run scripts", name)
			}
			return New(h, opts...).Run(context.Background(), name, src)
		})
	}
}
