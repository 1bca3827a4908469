package macro

import (
	"github.com/dop251/goja"

	"pageflow/pkg/command"
	"pageflow/pkg/document"
	"pageflow/pkg/html"
)

// registerEditor installs the global `editor` object.
func registerEditor(vm *goja.Runtime, h Host, nodes *nodeContext) {
	throw := func(err error) {
		if err != nil {
			panic(vm.NewGoError(err))
		}
	}
	ed := vm.NewObject()

	ed.Set("dispatch", func(name string, args map[string]any) any {
		out, err := h.Dispatch(name, command.Args(args))
		throw(err)
		return out
	})
	ed.Set("type", func(s string) {
		throw(h.Type(s))
	})
	ed.Set("pageCount", func() int {
		return h.Document().Len()
	})
	ed.Set("text", func(i int) string {
		return h.Document().PageText(i)
	})
	ed.Set("html", func(i int) string {
		p, err := h.Document().Page(i)
		throw(err)
		return p.HTML
	})
	ed.Set("title", func() string {
		return h.Document().Title
	})
	ed.Set("rename", func(title string) {
		h.Rename(title)
	})
	ed.Set("caret", func() document.Caret {
		return h.Caret()
	})
	ed.Set("select", func(page, start, end int) {
		h.Select(document.Caret{Page: page, Start: start, End: end})
	})
	ed.Set("selectAll", func() {
		h.SelectAll()
	})
	ed.Set("replaceAll", func(find, replacement string, matchCase bool) int {
		return h.ReplaceAll(find, replacement, matchCase)
	})
	ed.Set("addPage", func() {
		throw(h.AddPage())
	})
	ed.Set("pageBreak", func() {
		throw(h.InsertPageBreak())
	})
	// edit(i, fn) hands fn the live root of page i. Proxies to its nodes
	// are dropped when fn returns.
	ed.Set("edit", func(i int, fn goja.Callable) {
		if _, err := h.Document().Page(i); err != nil {
			throw(err)
		}
		var callErr error
		err := h.Input(i, func(root *html.Node) {
			_, callErr = fn(goja.Undefined(), nodes.proxy(root))
		})
		nodes.reset()
		throw(callErr)
		throw(err)
	})
	ed.Set("notify", func(msg string) {
		h.Notices().Info(msg)
	})
	vm.Set("editor", ed)
}
