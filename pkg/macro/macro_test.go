package macro

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pageflow/pkg/command"
	"pageflow/pkg/document"
	"pageflow/pkg/editor"
	"pageflow/pkg/layout"
	"pageflow/pkg/text"
)

func newEditor(t *testing.T, pages ...string) *editor.Editor {
	t.Helper()
	eng := layout.NewEngine(text.FixedMeasurer{})
	return editor.New(document.FromPages("Macro", pages), editor.WithLayout(eng))
}

func run(t *testing.T, ed *editor.Editor, src string) (any, error) {
	t.Helper()
	return New(ed).Run(context.Background(), "test", src)
}

func TestCompletionValue(t *testing.T) {
	ed := newEditor(t, "<p>one</p>", "<p>two</p>")
	out, err := run(t, ed, `editor.pageCount() * 10 + editor.text(1).length`)
	require.NoError(t, err)
	assert.EqualValues(t, 23, out)

	out, err = run(t, ed, `var x = 1;`)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestConsoleLogs(t *testing.T) {
	var buf bytes.Buffer
	ed := newEditor(t, "<p>x</p>")
	_, err := New(ed, WithLogger(zerolog.New(&buf))).Run(context.Background(), "greet", `console.warn("hi", 1, true)`)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"message":"hi 1 true"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"macro":"greet"`)
}

func TestEditStylesAndAttributes(t *testing.T) {
	ed := newEditor(t, "<p>hello</p>")
	_, err := run(t, ed, `
		editor.edit(0, function (root) {
			var p = root.children[0];
			p.style.fontWeight = "bold";
			p.style.textAlign = "center";
			p.setAttribute("data-tag", "greeting");
			p.style.textAlign = "";
		});
	`)
	require.NoError(t, err)
	page, err := ed.Document().Page(0)
	require.NoError(t, err)
	assert.Equal(t, `<p data-tag="greeting" style="font-weight: bold">hello</p>`, page.HTML)
}

func TestNodeIdentity(t *testing.T) {
	ed := newEditor(t, "<p>a</p><p>b</p>")
	out, err := run(t, ed, `
		var same;
		editor.edit(0, function (root) {
			same = root.children[0] === root.firstChild &&
				root.children[1] === root.firstChild.nextSibling &&
				root.children[0].parentElement === null;
		});
		same;
	`)
	require.NoError(t, err)
	assert.Equal(t, true, out)
}

func TestBuildNodes(t *testing.T) {
	ed := newEditor(t, "<p>a</p>")
	_, err := run(t, ed, `
		editor.edit(0, function (root) {
			var h = root.createElement("H2");
			h.appendChild(root.createTextNode("Title"));
			root.insertBefore(h, root.firstChild);
			var extra = root.createElement("p");
			extra.textContent = "tail";
			root.appendChild(extra);
			root.removeChild(root.children[1]);
		});
	`)
	require.NoError(t, err)
	page, _ := ed.Document().Page(0)
	assert.Equal(t, "<h2>Title</h2><p>tail</p>", page.HTML)
}

func TestInnerHTMLIsSanitized(t *testing.T) {
	ed := newEditor(t, "<p>a</p>")
	_, err := run(t, ed, `
		editor.edit(0, function (root) {
			root.children[0].innerHTML = '<b onclick="steal()">safe</b>';
		});
	`)
	require.NoError(t, err)
	page, _ := ed.Document().Page(0)
	assert.Equal(t, "<p><b>safe</b></p>", page.HTML)
}

func TestScriptErrors(t *testing.T) {
	ed := newEditor(t, "<p>a</p>")

	_, err := run(t, ed, `editor.dispatch("Nope/Missing", {})`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nope/Missing")

	_, err = run(t, ed, `editor.edit(5, function () {})`)
	require.Error(t, err)

	_, err = run(t, ed, `editor.edit(0, function (root) { root.appendChild({}); })`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a node")

	_, err = run(t, ed, `this is not javascript`)
	require.Error(t, err)
}

func TestCancelInterruptsScript(t *testing.T) {
	ed := newEditor(t, "<p>a</p>")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(ed).Run(ctx, "spin", `for (;;) {}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLibraryRegistersCommands(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shout.js"), []byte(`
		editor.edit(0, function (root) { root.textContent = root.textContent.toUpperCase(); });
		editor.notify("shouted");
	`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	lib, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"shout"}, lib.Names())

	ed := newEditor(t, "<p>hello</p>")
	lib.Register(ed.Commands())
	require.True(t, ed.Commands().Has("Macros/shout"))

	_, err = ed.Dispatch("Macros/shout", nil)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", ed.Document().PageText(0))
	assert.NotEmpty(t, ed.Notices().Active())

	ed.SetReadOnly(true)
	_, err = ed.Dispatch("Macros/shout", nil)
	assert.ErrorIs(t, err, command.ErrLocked)
}

func TestLoadDirMissing(t *testing.T) {
	lib, err := LoadDir(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, lib)
}

func TestCamelToKebab(t *testing.T) {
	for in, want := range map[string]string{
		"color":           "color",
		"fontWeight":      "font-weight",
		"borderTopWidth":  "border-top-width",
		"backgroundColor": "background-color",
	} {
		assert.Equal(t, want, camelToKebab(in))
	}
}
