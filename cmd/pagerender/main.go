// Command pagerender paginates, imports, scripts and exports documents
// without a server.
//
//	pagerender paginate [-paper A4] [-orientation portrait] [-title T] -o doc.json in.html
//	pagerender import -o doc.json spans.json
//	pagerender macro -o out.json doc.json script.js
//	pagerender png [-scale 2] -o dir doc.json
//	pagerender pdf [-scale 2] [-o out.pdf] doc.json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"pageflow/pkg/document"
	"pageflow/pkg/editor"
	"pageflow/pkg/export"
	"pageflow/pkg/importer"
	"pageflow/pkg/layout"
	"pageflow/pkg/logging"
	"pageflow/pkg/macro"
	"pageflow/pkg/page"
	"pageflow/pkg/render"
	"pageflow/pkg/text"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "pagerender: %v\n", err)
		os.Exit(1)
	}
}

type env struct {
	stdout   io.Writer
	log      zerolog.Logger
	measurer *text.GGMeasurer
}

var commands = map[string]func(ctx context.Context, e *env, args []string) error{
	"paginate": paginate,
	"import":   importSpans,
	"macro":    runMacro,
	"png":      renderPNG,
	"pdf":      renderPDF,
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: pagerender <paginate|import|macro|png|pdf> [flags] <input>...\n")
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		usage(stderr)
		return errors.New("missing command")
	}
	cmd, ok := commands[args[0]]
	if !ok {
		usage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
	logs, err := logging.New().FromBuffer(stderr).Console(true).Level("warn").Make()
	if err != nil {
		return err
	}
	e := &env{stdout: stdout, log: logs.Logger, measurer: text.NewGGMeasurer(text.FontConfig{})}
	return cmd(ctx, e, args[1:])
}

func (e *env) layout() *layout.Engine {
	return layout.NewEngine(e.measurer, layout.WithLogger(e.log))
}

func parse(fs *flag.FlagSet, args []string, inputs int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != inputs {
		return nil, fmt.Errorf("%s: want %d input file(s), got %d", fs.Name(), inputs, fs.NArg())
	}
	return fs.Args(), nil
}

func readDocument(path string) (*document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return document.Unmarshal(data)
}

func writeDocument(e *env, doc *document.Document, path string) error {
	data, err := document.Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "wrote %s (%d pages)\n", path, doc.Len())
	return nil
}

// paginate flows one long HTML file onto fixed-size pages.
func paginate(_ context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("paginate", flag.ContinueOnError)
	paper := fs.String("paper", string(page.A4), "paper size: A4, A5, Letter or Legal")
	orientation := fs.String("orientation", string(page.Portrait), "portrait or landscape")
	title := fs.String("title", "", "document title (default: input file name)")
	out := fs.String("o", "document.json", "output document")
	in, err := parse(fs, args, 1)
	if err != nil {
		return err
	}

	settings := page.DefaultSettings()
	if settings.PaperSize, err = page.ParsePaperSize(*paper); err != nil {
		return err
	}
	if settings.Orientation, err = page.ParseOrientation(*orientation); err != nil {
		return err
	}
	src, err := os.ReadFile(in[0])
	if err != nil {
		return err
	}
	if *title == "" {
		*title = strings.TrimSuffix(filepath.Base(in[0]), filepath.Ext(in[0]))
	}

	doc := document.FromPages(*title, []string{string(src)})
	doc.Settings = settings
	ed := editor.New(doc, editor.WithLayout(e.layout()), editor.WithLogger(e.log))
	return writeDocument(e, ed.Document(), *out)
}

func importSpans(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	out := fs.String("o", "document.json", "output document")
	in, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	src, err := os.ReadFile(in[0])
	if err != nil {
		return err
	}
	doc, err := importer.New(importer.JSONExtractor{}, importer.WithLogger(e.log)).Import(ctx, filepath.Base(in[0]), src)
	if err != nil {
		return err
	}
	return writeDocument(e, doc, *out)
}

// runMacro runs a script against a document, reflowing as it edits.
func runMacro(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("macro", flag.ContinueOnError)
	out := fs.String("o", "", "output document (default: overwrite the input)")
	in, err := parse(fs, args, 2)
	if err != nil {
		return err
	}
	doc, err := readDocument(in[0])
	if err != nil {
		return err
	}
	src, err := os.ReadFile(in[1])
	if err != nil {
		return err
	}
	ed := editor.New(doc, editor.WithLayout(e.layout()), editor.WithLogger(e.log))
	name := strings.TrimSuffix(filepath.Base(in[1]), filepath.Ext(in[1]))
	res, err := macro.New(ed, macro.WithLogger(e.log)).Run(ctx, name, string(src))
	if err != nil {
		return err
	}
	if res != nil {
		fmt.Fprintf(e.stdout, "%v\n", res)
	}
	if *out == "" {
		*out = in[0]
	}
	return writeDocument(e, ed.Document(), *out)
}

func (e *env) exporter(scale float64) *export.Exporter {
	r := render.New(e.measurer, render.WithLogger(e.log))
	return export.New(r, export.WithScale(scale), export.WithLogger(e.log))
}

func renderPNG(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("png", flag.ContinueOnError)
	scale := fs.Float64("scale", export.DefaultScale, "pixels per CSS pixel")
	out := fs.String("o", ".", "output directory")
	in, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	doc, err := readDocument(in[0])
	if err != nil {
		return err
	}
	imgs, err := e.exporter(*scale).Images(ctx, doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}
	for i, img := range imgs {
		path := filepath.Join(*out, fmt.Sprintf("page-%03d.png", i+1))
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		err = png.Encode(f, img)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Fprintf(e.stdout, "wrote %s\n", path)
	}
	return nil
}

func renderPDF(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("pdf", flag.ContinueOnError)
	scale := fs.Float64("scale", export.DefaultScale, "pixels per CSS pixel")
	out := fs.String("o", "", "output file (default: Invoice-<title>.pdf)")
	in, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	doc, err := readDocument(in[0])
	if err != nil {
		return err
	}
	if *out == "" {
		*out = export.FileName(doc)
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	err = e.exporter(*scale).PDF(ctx, doc, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(*out)
		return err
	}
	fmt.Fprintf(e.stdout, "wrote %s (%d pages)\n", *out, doc.Len())
	return nil
}
