package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// CodeEntry extends widget.Entry with Escape handling and window level
// shortcuts that would otherwise be swallowed while the entry has focus.
type CodeEntry struct {
	widget.Entry
	onEscape   func()
	onShortcut func(*desktop.CustomShortcut) bool
}

// NewCodeEntry creates a new multi-line code entry
func NewCodeEntry() *CodeEntry {
	entry := &CodeEntry{}
	entry.MultiLine = true
	entry.Wrapping = fyne.TextWrapOff
	entry.TextStyle = fyne.TextStyle{Monospace: true}
	entry.ExtendBaseWidget(entry)
	return entry
}

// TypedKey handles key events
func (e *CodeEntry) TypedKey(key *fyne.KeyEvent) {
	if key.Name == fyne.KeyEscape && e.onEscape != nil {
		e.onEscape()
		return
	}
	e.Entry.TypedKey(key)
}

// TypedShortcut offers custom shortcuts to the window before the entry
// gets to handle them.
func (e *CodeEntry) TypedShortcut(s fyne.Shortcut) {
	if cs, ok := s.(*desktop.CustomShortcut); ok && e.onShortcut != nil && e.onShortcut(cs) {
		return
	}
	e.Entry.TypedShortcut(s)
}

// SetOnEscape sets the callback for when Escape is pressed
func (e *CodeEntry) SetOnEscape(f func()) {
	e.onEscape = f
}

// SetOnShortcut sets the handler for custom shortcuts. It reports
// whether the shortcut was consumed.
func (e *CodeEntry) SetOnShortcut(f func(*desktop.CustomShortcut) bool) {
	e.onShortcut = f
}
