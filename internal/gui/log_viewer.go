package gui

import (
	"bytes"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const logViewerCapacity = 500

// LogViewer shows the most recent log lines, newest on top. The logger
// writes into it like into any other io.Writer.
type LogViewer struct {
	widget.BaseWidget

	list    *widget.List
	content *fyne.Container

	mu          sync.Mutex
	partial     []byte
	messages    []string
	maxMessages int
}

func NewLogViewer() *LogViewer {
	v := &LogViewer{maxMessages: logViewerCapacity}

	v.list = widget.NewList(
		func() int { return len(v.Messages()) },
		func() fyne.CanvasObject {
			l := widget.NewLabel("")
			l.TextStyle = fyne.TextStyle{Monospace: true}
			l.Truncation = fyne.TextTruncateEllipsis
			return l
		},
		func(id widget.ListItemID, o fyne.CanvasObject) {
			msgs := v.Messages()
			if id < len(msgs) {
				o.(*widget.Label).SetText(msgs[id])
			}
		},
	)

	clearBtn := widget.NewButtonWithIcon("", theme.DeleteIcon(), v.Clear)
	header := container.NewBorder(nil, nil, widget.NewLabel("Log"), clearBtn)
	scroll := container.NewStack(v.list)
	v.content = container.NewBorder(header, nil, nil, nil, scroll)

	v.ExtendBaseWidget(v)
	return v
}

func (v *LogViewer) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.content)
}

func (v *LogViewer) MinSize() fyne.Size {
	return fyne.NewSize(0, 120)
}

// Write buffers p and records every completed, non-blank line. It is
// safe to call from any goroutine.
func (v *LogViewer) Write(p []byte) (int, error) {
	v.mu.Lock()
	v.partial = append(v.partial, p...)
	var lines []string
	for {
		i := bytes.IndexByte(v.partial, '\n')
		if i < 0 {
			break
		}
		if line := strings.TrimSpace(string(v.partial[:i])); line != "" {
			lines = append(lines, line)
		}
		v.partial = v.partial[i+1:]
	}
	v.mu.Unlock()

	if len(lines) > 0 {
		v.push(lines...)
	}
	return len(p), nil
}

func (v *LogViewer) push(lines ...string) {
	v.mu.Lock()
	for _, line := range lines {
		v.messages = append([]string{line}, v.messages...)
	}
	if len(v.messages) > v.maxMessages {
		v.messages = v.messages[:v.maxMessages]
	}
	v.mu.Unlock()
	v.refreshList()
}

// Messages returns the recorded lines, newest first.
func (v *LogViewer) Messages() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.messages...)
}

func (v *LogViewer) Clear() {
	v.mu.Lock()
	v.messages = nil
	v.partial = nil
	v.mu.Unlock()
	v.refreshList()
}

func (v *LogViewer) refreshList() {
	fyne.Do(func() {
		v.list.Refresh()
		v.list.ScrollToTop()
	})
}
