package session

import "sync"

// Editor is the part of a code editor widget the controller needs.
type Editor interface {
	Value() string
	SetValue(text string)
	SetReadOnly(readOnly bool)
	OnChange(fn func(text string))
}

// MemoryEditor is a headless Editor. Like a widget, SetValue notifies the
// change callback when the text actually changes.
type MemoryEditor struct {
	mu       sync.Mutex
	value    string
	readOnly bool
	onChange func(string)
}

// NewMemoryEditor creates an empty editor.
func NewMemoryEditor() *MemoryEditor {
	return &MemoryEditor{}
}

func (e *MemoryEditor) Value() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

func (e *MemoryEditor) SetValue(text string) {
	e.mu.Lock()
	changed := e.value != text
	e.value = text
	fn := e.onChange
	e.mu.Unlock()

	if changed && fn != nil {
		fn(text)
	}
}

func (e *MemoryEditor) SetReadOnly(readOnly bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.readOnly = readOnly
}

// ReadOnly reports the read-only flag.
func (e *MemoryEditor) ReadOnly() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.readOnly
}

func (e *MemoryEditor) OnChange(fn func(string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = fn
}
