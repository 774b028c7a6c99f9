package gui

import (
	"io"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"

	"codeberg.org/snonux/pas2cs/internal/exporter"
)

// dialogExporter saves through a file save dialog preset to the export
// directory and filename. Save returns exporter.ErrDeferred once the
// dialog is shown and the outcome is reported to onDone.
type dialogExporter struct {
	window fyne.Window
	dir    string
	onDone func(path string, err error)
}

func newDialogExporter(window fyne.Window, dir string, onDone func(string, error)) *dialogExporter {
	return &dialogExporter{window: window, dir: dir, onDone: onDone}
}

func (e *dialogExporter) Save(filename, content string) error {
	d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil {
			e.done("", err)
			return
		}
		if wc == nil {
			e.done("", nil) // canceled
			return
		}
		_, werr := io.WriteString(wc, content)
		if cerr := wc.Close(); werr == nil {
			werr = cerr
		}
		e.done(wc.URI().Path(), werr)
	}, e.window)

	d.SetFileName(filename)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".cs"}))
	if e.dir != "" {
		if lister, err := storage.ListerForURI(storage.NewFileURI(e.dir)); err == nil {
			d.SetLocation(lister)
		}
	}
	d.Show()
	return exporter.ErrDeferred
}

func (e *dialogExporter) done(path string, err error) {
	if e.onDone != nil {
		e.onDone(path, err)
	}
}
