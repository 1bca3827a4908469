package html

import "testing"

func makeTree() *Node {
	// <div id="parent"><span>hello</span><p>world</p></div>
	parent := NewElement("div", map[string]string{"id": "parent"})
	span := NewElement("span", nil)
	span.AppendText("hello")
	parent.AddChild(span)

	p := NewElement("p", nil)
	p.AppendText("world")
	parent.AddChild(p)

	return parent
}

func TestRemoveChild(t *testing.T) {
	parent := makeTree()
	span := parent.Children[0]
	removed := parent.RemoveChild(span)
	if removed != span {
		t.Fatal("RemoveChild should return the removed child")
	}
	if span.Parent != nil {
		t.Error("removed child should have nil parent")
	}
	if len(parent.Children) != 1 {
		t.Errorf("expected 1 child, got %d", len(parent.Children))
	}
	if parent.Children[0].TagName != "p" {
		t.Error("remaining child should be <p>")
	}
}

func TestRemoveChildNotFound(t *testing.T) {
	parent := makeTree()
	other := NewElement("em", nil)
	if parent.RemoveChild(other) != nil {
		t.Error("RemoveChild of non-child should return nil")
	}
}

func TestInsertBefore(t *testing.T) {
	parent := makeTree()
	em := NewElement("em", nil)
	parent.InsertBefore(em, parent.Children[1])
	if len(parent.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(parent.Children))
	}
	if parent.Children[1] != em {
		t.Error("em should be at index 1")
	}
	if em.Parent != parent {
		t.Error("em.Parent should be parent")
	}
}

func TestInsertAfterNilPrepends(t *testing.T) {
	parent := makeTree()
	em := NewElement("em", nil)
	parent.InsertAfter(em, nil)
	if parent.Children[0] != em {
		t.Error("InsertAfter(nil) should prepend")
	}
}

func TestUnwrap(t *testing.T) {
	parent := makeTree()
	parent.Children[0].Unwrap()
	if got := parent.Serialize(); got != "hello<p>world</p>" {
		t.Errorf("unexpected serialization %q", got)
	}
}

func TestCloneNodeDeep(t *testing.T) {
	parent := makeTree()
	clone := parent.CloneNode(true)
	if clone.Parent != nil {
		t.Error("clone should be detached")
	}
	if clone.SerializeOuter() != parent.SerializeOuter() {
		t.Error("deep clone should serialize identically")
	}
	clone.Children[0].Children[0].Text = "changed"
	if parent.Children[0].Children[0].Text != "hello" {
		t.Error("mutating the clone must not touch the original")
	}
}

func TestTextContentAndFind(t *testing.T) {
	root := MustFragment(`<p>Hello <b data-anchor="x">big</b> world</p><img data-anchor="y">`)
	if got := root.TextContent(); got != "Hello big world" {
		t.Errorf("TextContent = %q", got)
	}
	if n := root.FindByAttribute("data-anchor", "y"); n == nil || n.TagName != "img" {
		t.Error("expected to find img by data-anchor")
	}
	if len(root.TextNodes()) != 3 {
		t.Errorf("expected 3 text nodes, got %d", len(root.TextNodes()))
	}
}

func TestSerializeSortsAttributes(t *testing.T) {
	n := NewElement("img", map[string]string{"src": "a.png", "alt": "x"})
	if got := n.SerializeOuter(); got != `<img alt="x" src="a.png">` {
		t.Errorf("unexpected %q", got)
	}
}

func TestSerializeOuterOfTextEscapes(t *testing.T) {
	if got := NewText("a<b & c").SerializeOuter(); got != "a&lt;b &amp; c" {
		t.Errorf("unexpected %q", got)
	}
}
