package html

import (
	"fmt"
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// droppedElements never reach a page fragment, children included.
var droppedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Link:     true,
	atom.Meta:     true,
	atom.Head:     true,
	atom.Title:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// Sanitize parses untrusted markup (paste, import, macro output) with the
// HTML5 algorithm and converts it to a fragment tree. Event handler
// attributes and javascript: URLs are stripped.
func Sanitize(markup string) (*Node, error) {
	body := &xhtml.Node{Type: xhtml.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := xhtml.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return nil, fmt.Errorf("sanitizing fragment: %w", err)
	}
	root := NewRoot()
	for _, n := range nodes {
		convert(root, n)
	}
	return root, nil
}

// SanitizeString is Sanitize followed by serialization.
func SanitizeString(markup string) (string, error) {
	root, err := Sanitize(markup)
	if err != nil {
		return "", err
	}
	return root.Serialize(), nil
}

func convert(parent *Node, n *xhtml.Node) {
	switch n.Type {
	case xhtml.TextNode:
		if last := parent.LastChild(); last != nil && last.Type == TextNode {
			last.Text += n.Data
			return
		}
		parent.AppendText(n.Data)
	case xhtml.ElementNode:
		if droppedElements[n.DataAtom] {
			return
		}
		el := NewElement(strings.ToLower(n.Data), nil)
		for _, a := range n.Attr {
			if a.Namespace != "" || !allowedAttribute(a.Key, a.Val) {
				continue
			}
			el.Attributes[strings.ToLower(a.Key)] = a.Val
		}
		parent.AddChild(el)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			convert(el, c)
		}
	case xhtml.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			convert(parent, c)
		}
	}
}

func allowedAttribute(key, val string) bool {
	key = strings.ToLower(key)
	if strings.HasPrefix(key, "on") {
		return false
	}
	if key == "href" || key == "src" {
		v := strings.ToLower(strings.TrimSpace(val))
		if strings.HasPrefix(v, "javascript:") || strings.HasPrefix(v, "vbscript:") {
			return false
		}
	}
	return true
}
