package macro

import (
	"slices"
	"strings"
	"unicode"

	"github.com/dop251/goja"

	"pageflow/pkg/css"
	"pageflow/pkg/html"
)

// nodeContext hands out one proxy per node so === holds between lookups.
type nodeContext struct {
	vm    *goja.Runtime
	cache map[*html.Node]goja.Value
}

func newNodeContext(vm *goja.Runtime) *nodeContext {
	return &nodeContext{vm: vm, cache: make(map[*html.Node]goja.Value)}
}

func (c *nodeContext) reset() {
	clear(c.cache)
}

func (c *nodeContext) proxy(n *html.Node) goja.Value {
	if n == nil {
		return goja.Null()
	}
	if v, ok := c.cache[n]; ok {
		return v
	}
	v := c.vm.NewDynamicObject(&nodeAccessor{c: c, node: n})
	c.cache[n] = v
	return v
}

func (c *nodeContext) array(nodes []*html.Node) goja.Value {
	vals := make([]any, len(nodes))
	for i, n := range nodes {
		vals[i] = c.proxy(n)
	}
	return c.vm.NewArray(vals...)
}

func (c *nodeContext) unwrap(v goja.Value) *html.Node {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	for n, p := range c.cache {
		if p.SameAs(v) {
			return n
		}
	}
	return nil
}

func (c *nodeContext) typeError(format string) {
	panic(c.vm.NewTypeError(format))
}

func elements(nodes []*html.Node) []*html.Node {
	var out []*html.Node
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			out = append(out, n)
		}
	}
	return out
}

// nodeAccessor exposes an html.Node to scripts.
type nodeAccessor struct {
	c    *nodeContext
	node *html.Node
}

var nodeKeys = []string{
	"nodeType", "tagName", "textContent", "innerHTML", "outerHTML", "style",
	"parentElement", "children", "childNodes", "firstChild", "lastChild", "nextSibling",
	"getAttribute", "setAttribute", "removeAttribute", "hasAttribute",
	"appendChild", "removeChild", "insertBefore", "remove", "cloneNode",
	"getElementsByTagName", "createElement", "createTextNode",
}

func (a *nodeAccessor) Get(key string) goja.Value {
	vm, n := a.c.vm, a.node
	switch key {
	case "nodeType":
		if n.Type == html.TextNode {
			return vm.ToValue(3)
		}
		return vm.ToValue(1)
	case "tagName":
		if n.Type == html.TextNode || n.TagName == html.RootTag {
			return goja.Undefined()
		}
		return vm.ToValue(strings.ToUpper(n.TagName))
	case "textContent":
		if n.Type == html.TextNode {
			return vm.ToValue(n.Text)
		}
		return vm.ToValue(n.TextContent())
	case "innerHTML":
		return vm.ToValue(n.Serialize())
	case "outerHTML":
		if n.TagName == html.RootTag {
			return vm.ToValue(n.Serialize())
		}
		return vm.ToValue(n.SerializeOuter())
	case "style":
		if n.Type != html.ElementNode {
			return goja.Undefined()
		}
		return vm.NewDynamicObject(&styleAccessor{vm: vm, node: n})
	case "parentElement":
		if n.Parent == nil || n.Parent.TagName == html.RootTag {
			return goja.Null()
		}
		return a.c.proxy(n.Parent)
	case "children":
		return a.c.array(elements(n.Children))
	case "childNodes":
		return a.c.array(n.Children)
	case "firstChild":
		return a.c.proxy(n.FirstChild())
	case "lastChild":
		return a.c.proxy(n.LastChild())
	case "nextSibling":
		return a.c.proxy(n.NextSibling())

	case "getAttribute":
		return vm.ToValue(func(name string) goja.Value {
			if v, ok := n.GetAttribute(strings.ToLower(name)); ok {
				return vm.ToValue(v)
			}
			return goja.Null()
		})
	case "setAttribute":
		return vm.ToValue(func(name, value string) {
			if n.Type == html.ElementNode {
				n.SetAttribute(strings.ToLower(name), value)
			}
		})
	case "removeAttribute":
		return vm.ToValue(func(name string) { n.RemoveAttribute(strings.ToLower(name)) })
	case "hasAttribute":
		return vm.ToValue(func(name string) bool {
			_, ok := n.GetAttribute(strings.ToLower(name))
			return ok
		})

	case "appendChild":
		return vm.ToValue(func(v goja.Value) goja.Value {
			child := a.child(v, "appendChild")
			if child.Parent != nil {
				child.Parent.RemoveChild(child)
			}
			n.AddChild(child)
			return v
		})
	case "removeChild":
		return vm.ToValue(func(v goja.Value) goja.Value {
			child := a.c.unwrap(v)
			if child == nil || child.Parent != n {
				a.c.typeError("removeChild: node is not a child of this node")
			}
			n.RemoveChild(child)
			return v
		})
	case "insertBefore":
		return vm.ToValue(func(v, ref goja.Value) goja.Value {
			child := a.child(v, "insertBefore")
			refNode := a.c.unwrap(ref)
			if child.Parent != nil {
				child.Parent.RemoveChild(child)
			}
			if refNode == nil {
				n.AddChild(child)
			} else {
				n.InsertBefore(child, refNode)
			}
			return v
		})
	case "remove":
		return vm.ToValue(func() {
			if n.Parent != nil {
				n.Parent.RemoveChild(n)
			}
		})
	case "cloneNode":
		return vm.ToValue(func(deep bool) goja.Value {
			return a.c.proxy(n.CloneNode(deep))
		})
	case "getElementsByTagName":
		return vm.ToValue(func(tag string) goja.Value {
			return a.c.array(n.ElementsByTag(strings.ToLower(tag)))
		})
	case "createElement":
		return vm.ToValue(func(tag string) goja.Value {
			return a.c.proxy(html.NewElement(strings.ToLower(tag), nil))
		})
	case "createTextNode":
		return vm.ToValue(func(s string) goja.Value {
			return a.c.proxy(html.NewText(s))
		})
	}
	return goja.Undefined()
}

func (a *nodeAccessor) child(v goja.Value, op string) *html.Node {
	child := a.c.unwrap(v)
	if child == nil {
		a.c.typeError(op + ": argument is not a node")
	}
	if child.Contains(a.node) {
		a.c.typeError(op + ": the new child contains the parent")
	}
	return child
}

func (a *nodeAccessor) Set(key string, val goja.Value) bool {
	n := a.node
	switch key {
	case "textContent":
		if n.Type == html.TextNode {
			n.Text = val.String()
			return true
		}
		clearChildren(n)
		n.AppendText(val.String())
		return true
	case "innerHTML":
		if n.Type != html.ElementNode {
			return false
		}
		frag, err := html.Sanitize(val.String())
		if err != nil {
			panic(a.c.vm.NewGoError(err))
		}
		clearChildren(n)
		for _, c := range slices.Clone(frag.Children) {
			frag.RemoveChild(c)
			n.AddChild(c)
		}
		return true
	}
	return false
}

func clearChildren(n *html.Node) {
	for _, c := range n.Children {
		c.Parent = nil
	}
	n.Children = n.Children[:0]
}

func (a *nodeAccessor) Has(key string) bool {
	return slices.Contains(nodeKeys, key)
}

func (a *nodeAccessor) Delete(string) bool { return false }

func (a *nodeAccessor) Keys() []string { return nodeKeys }

// styleAccessor maps el.style.fontWeight onto the style attribute.
type styleAccessor struct {
	vm   *goja.Runtime
	node *html.Node
}

func (s *styleAccessor) style() *css.Style {
	v, _ := s.node.GetAttribute("style")
	return css.ParseInlineStyle(v)
}

func (s *styleAccessor) write(st *css.Style) {
	if st.Len() == 0 {
		s.node.RemoveAttribute("style")
		return
	}
	s.node.SetAttribute("style", st.String())
}

func (s *styleAccessor) Get(key string) goja.Value {
	v, _ := s.style().Get(camelToKebab(key))
	return s.vm.ToValue(v)
}

func (s *styleAccessor) Set(key string, val goja.Value) bool {
	st := s.style()
	if v := val.String(); v == "" {
		st.Delete(camelToKebab(key))
	} else {
		st.Set(camelToKebab(key), v)
	}
	s.write(st)
	return true
}

func (s *styleAccessor) Has(key string) bool {
	_, ok := s.style().Get(camelToKebab(key))
	return ok
}

func (s *styleAccessor) Delete(key string) bool {
	st := s.style()
	st.Delete(camelToKebab(key))
	s.write(st)
	return true
}

func (s *styleAccessor) Keys() []string {
	st := s.style()
	keys := make([]string, 0, st.Len())
	for k := range st.Properties {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func camelToKebab(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsUpper(r) {
			b.WriteByte('-')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
