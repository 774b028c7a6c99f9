package gui

import (
	"io"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/storage"

	"codeberg.org/snonux/pas2cs/internal/session"
)

// entryEditor lets the session controller drive a CodeEntry.
type entryEditor struct {
	entry *CodeEntry
}

var _ session.Editor = (*entryEditor)(nil)

func newEntryEditor(entry *CodeEntry) *entryEditor {
	return &entryEditor{entry: entry}
}

func (e *entryEditor) Value() string {
	return e.entry.Text
}

// SetValue fires the entry's OnChanged like a user edit would; the
// controller ignores changes it makes itself.
func (e *entryEditor) SetValue(text string) {
	e.entry.SetText(text)
}

func (e *entryEditor) SetReadOnly(readOnly bool) {
	if readOnly {
		e.entry.Disable()
	} else {
		e.entry.Enable()
	}
}

func (e *entryEditor) OnChange(fn func(string)) {
	e.entry.OnChanged = fn
}

// uriHandle is an importer.Handle for files picked in a dialog or
// dropped on the window.
type uriHandle struct {
	uri fyne.URI
}

func (h uriHandle) Name() string {
	return h.uri.Name()
}

func (h uriHandle) Open() (io.ReadCloser, error) {
	return storage.Reader(h.uri)
}
