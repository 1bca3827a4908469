// Command pageview shows a document's print view, one page at a time.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"pageflow/pkg/document"
	"pageflow/pkg/export"
	"pageflow/pkg/logging"
	"pageflow/pkg/render"
	"pageflow/pkg/text"
)

func main() {
	scale := flag.Float64("scale", 1, "pixels per CSS pixel")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pageview [flags] <document.json>\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	logs, err := logging.New().Console(true).Make()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := logs.Logger

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading document: %v\n", err)
		os.Exit(1)
	}
	doc := document.UnmarshalOrBlank(data, log)
	exporter := export.New(render.New(text.NewGGMeasurer(text.FontConfig{}), render.WithLogger(log)),
		export.WithScale(*scale), export.WithLogger(log))

	a := app.New()
	w := a.NewWindow("pageview: " + doc.Title)
	g := doc.Settings.Geometry()
	w.Resize(fyne.NewSize(float32(g.Width*(*scale))+40, float32(g.Height*(*scale))+80))

	pageImg := canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	pageImg.FillMode = canvas.ImageFillContain
	status := widget.NewLabel("Rendering...")

	var pages []image.Image
	current := 0
	show := func() {
		if len(pages) == 0 {
			return
		}
		pageImg.Image = pages[current]
		pageImg.Refresh()
		status.SetText(fmt.Sprintf("Page %d of %d", current+1, len(pages)))
	}

	prev := widget.NewButton("Previous", func() {
		if current > 0 {
			current--
			show()
		}
	})
	next := widget.NewButton("Next", func() {
		if current < len(pages)-1 {
			current++
			show()
		}
	})
	save := widget.NewButton("Export PDF", func() {
		status.SetText("Exporting...")
		snapshot := doc.Clone()
		go func() {
			msg := exportPDF(exporter, snapshot)
			fyne.Do(func() { status.SetText(msg) })
		}()
	})

	go func() {
		imgs, err := exporter.Images(context.Background(), doc)
		fyne.Do(func() {
			if err != nil {
				status.SetText("Render error: " + err.Error())
				return
			}
			pages = imgs
			show()
		})
	}()

	bar := container.NewHBox(prev, next, save, status)
	w.SetContent(container.NewBorder(bar, nil, nil, nil, pageImg))
	w.ShowAndRun()
}

func exportPDF(ex *export.Exporter, doc *document.Document) string {
	name := export.FileName(doc)
	f, err := os.Create(name)
	if err != nil {
		return "Export failed: " + err.Error()
	}
	err = ex.PDF(context.Background(), doc, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(name)
		return "Export failed: " + err.Error()
	}
	return "Saved " + name
}
