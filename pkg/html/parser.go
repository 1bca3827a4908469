package html

import (
	"fmt"
)

// Parser builds a fragment tree from markup. Script and style content is
// discarded: page fragments hold content only.
type Parser struct {
	tokenizer *Tokenizer
	root      *Node
	stack     []*Node
}

func NewParser(html string) *Parser {
	return &Parser{
		tokenizer: NewTokenizer(html),
		root:      NewRoot(),
	}
}

// Parse returns the fragment root. Adjacent text is merged into one node so
// that parsing a concatenation of two serialized fragments yields the same
// tree as parsing their joined text.
func (p *Parser) Parse() (*Node, error) {
	p.stack = []*Node{p.root}

	for {
		token, err := p.tokenizer.NextToken()
		if err != nil {
			return nil, fmt.Errorf("tokenizer error: %w", err)
		}
		if token.Type == TokenEOF {
			break
		}

		switch token.Type {
		case TokenStartTag:
			if token.TagName == "script" || token.TagName == "style" {
				if !token.SelfClosing {
					p.tokenizer.ReadRawUntil(token.TagName)
				}
				continue
			}

			// Auto-close <p> when a block-level element is encountered inside it
			if IsBlockElement(token.TagName) {
				p.autoCloseP()
			}
			p.autoCloseSibling(token.TagName)

			node := &Node{
				Type:       ElementNode,
				TagName:    token.TagName,
				Attributes: token.Attributes,
				Children:   make([]*Node, 0),
			}
			p.currentParent().AddChild(node)

			if !IsVoidElement(token.TagName) && !token.SelfClosing {
				p.push(node)
			}

		case TokenText:
			if token.Text == "" {
				continue
			}
			parent := p.currentParent()
			if last := parent.LastChild(); last != nil && last.Type == TextNode {
				last.Text += token.Text
				continue
			}
			parent.AppendText(token.Text)

		case TokenEndTag:
			p.closeTag(token.TagName)
		}
	}

	return p.root, nil
}

func (p *Parser) currentParent() *Node {
	if len(p.stack) == 0 {
		return p.root
	}
	return p.stack[len(p.stack)-1]
}

func (p *Parser) push(node *Node) {
	p.stack = append(p.stack, node)
}

// closeTag pops the stack until the matching tag is found and closed
func (p *Parser) closeTag(tagName string) {
	for i := len(p.stack) - 1; i >= 1; i-- {
		if p.stack[i].TagName == tagName {
			p.stack = p.stack[:i]
			return
		}
	}
	// Tag not found on stack; ignore the end tag
}

// autoCloseP closes an open <p> element if one is on the stack
func (p *Parser) autoCloseP() {
	for i := len(p.stack) - 1; i >= 1; i-- {
		if p.stack[i].TagName == "p" {
			p.stack = p.stack[:i]
			return
		}
		if IsBlockElement(p.stack[i].TagName) {
			return
		}
	}
}

// autoCloseSibling implements the implied end tags that matter for tables and
// lists: a new <li>, <tr>, <td> or <th> closes an open one of the same family.
func (p *Parser) autoCloseSibling(tagName string) {
	var family []string
	var boundary []string
	switch tagName {
	case "li":
		family, boundary = []string{"li"}, []string{"ul", "ol"}
	case "tr":
		family, boundary = []string{"tr"}, []string{"table", "tbody", "thead", "tfoot"}
	case "td", "th":
		family, boundary = []string{"td", "th"}, []string{"tr", "table"}
	default:
		return
	}
	for i := len(p.stack) - 1; i >= 1; i-- {
		tag := p.stack[i].TagName
		if contains(boundary, tag) {
			return
		}
		if contains(family, tag) {
			p.stack = p.stack[:i]
			return
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ParseFragment parses page markup into a detached fragment root.
func ParseFragment(html string) (*Node, error) {
	return NewParser(html).Parse()
}

// MustFragment parses html and falls back to a root holding the raw string as
// text when the markup is malformed. Stored fragments are produced by the
// serializer, so the fallback only triggers on hand-written input.
func MustFragment(html string) *Node {
	root, err := ParseFragment(html)
	if err != nil {
		root = NewRoot()
		root.AppendText(html)
	}
	return root
}

// Canonical returns the serializer's form of html.
func Canonical(html string) string {
	return MustFragment(html).Serialize()
}
