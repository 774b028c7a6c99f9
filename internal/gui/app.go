package gui

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	fynetooltip "github.com/dweymouth/fyne-tooltip"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"

	"codeberg.org/snonux/pas2cs/internal"
	"codeberg.org/snonux/pas2cs/internal/exporter"
	"codeberg.org/snonux/pas2cs/internal/importer"
	"codeberg.org/snonux/pas2cs/internal/logging"
	"codeberg.org/snonux/pas2cs/internal/session"
	"codeberg.org/snonux/pas2cs/internal/store"
	"codeberg.org/snonux/pas2cs/internal/transpile"
)

// Application represents the main GUI application
type Application struct {
	// Fyne components
	app    fyne.App
	window fyne.Window

	// UI elements
	sourceEntry *CodeEntry
	destEntry   *CodeEntry
	statusLabel *widget.Label
	stateLabel  *widget.Label
	logViewer   *LogViewer

	// Toolbar buttons
	openButton      *ttwidget.Button
	transpileButton *ttwidget.Button
	clearButton     *ttwidget.Button
	downloadButton  *ttwidget.Button
	helpButton      *ttwidget.Button

	controller  *session.Controller
	unsubscribe func()
	store       *store.Resilient
	logger      *slog.Logger
	config      *Config
	startupErr  error
}

// Config holds GUI application configuration
type Config struct {
	Transpile      transpile.Config
	StatePath      string
	ExportDir      string
	ExportFilename string
	Debounce       time.Duration
	ImportMaxBytes int64
	LogLevel       string
	LogJournal     bool
}

// DefaultConfig returns default GUI configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Transpile:      *transpile.DefaultConfig(),
		StatePath:      filepath.Join(homeDir, ".local", "state", "pas2cs", "session.db"),
		ExportDir:      exporter.DefaultDir(),
		ExportFilename: exporter.DefaultFilename,
		Debounce:       session.DefaultDebounce,
		ImportMaxBytes: importer.DefaultMaxBytes,
		LogLevel:       "info",
	}
}

// sourceExtensions are offered by the open dialog.
var sourceExtensions = []string{".pas", ".pp", ".dpr", ".lpr", ".inc", ".txt"}

// New creates a new GUI application and restores the saved session
func New(config *Config) (*Application, error) {
	if config == nil {
		config = DefaultConfig()
	} else {
		// Fill in missing fields with defaults
		defaults := DefaultConfig()
		if config.StatePath == "" {
			config.StatePath = defaults.StatePath
		}
		if config.ExportDir == "" {
			config.ExportDir = defaults.ExportDir
		}
		if config.ExportFilename == "" {
			config.ExportFilename = defaults.ExportFilename
		}
		if config.ImportMaxBytes <= 0 {
			config.ImportMaxBytes = defaults.ImportMaxBytes
		}
	}

	myApp := app.NewWithID("org.codeberg.snonux.pas2cs")
	myApp.SetIcon(GetAppIcon())

	a := &Application{
		app:    myApp,
		config: config,
	}

	a.logViewer = NewLogViewer()
	a.logger = logging.New(logging.Options{Level: config.LogLevel, Journal: config.LogJournal}, os.Stderr, a.logViewer)

	a.setupUI()

	tcfg := config.Transpile
	tcfg.Logger = a.logger
	client, err := transpile.New(&tcfg)
	if err != nil {
		// Keep the window usable; the error is shown once it is up.
		a.startupErr = err
		a.logger.Error("invalid transpile backend, using the HTTP service", "error", err)
		def := transpile.DefaultConfig()
		client = transpile.NewHTTPClient(def.ServerURL, tcfg.Timeout, a.logger)
	}

	a.store = store.Open(config.StatePath, a.logger)

	a.controller, err = session.New(session.Deps{
		Source:     newEntryEditor(a.sourceEntry),
		Dest:       newEntryEditor(a.destEntry),
		Store:      a.store,
		Client:     client,
		Importer:   importer.New(config.ImportMaxBytes),
		Exporter:   newDialogExporter(a.window, config.ExportDir, a.onExported),
		Dispatcher: session.DispatcherFunc(fyne.Do),
		Logger:     a.logger,
		Debounce:   config.Debounce,
		Filename:   config.ExportFilename,
	})
	if err != nil {
		a.store.Close()
		return nil, fmt.Errorf("create session: %w", err)
	}
	a.unsubscribe = a.controller.Subscribe(a.applyView)

	if a.store.Degraded() {
		a.updateStatus("Session storage unavailable, changes are kept for this run only")
	}

	return a, nil
}

// setupUI creates the main user interface
func (a *Application) setupUI() {
	a.window = a.app.NewWindow(fmt.Sprintf("pas2cs v%s - Pascal to C#", internal.Version))
	a.window.SetIcon(GetAppIcon())
	a.window.Resize(fyne.NewSize(1100, 750))

	a.sourceEntry = NewCodeEntry()
	a.sourceEntry.SetPlaceHolder("Pascal source code... Press Escape to exit field")
	a.destEntry = NewCodeEntry()
	a.destEntry.SetPlaceHolder("The C# translation appears here")

	for _, entry := range []*CodeEntry{a.sourceEntry, a.destEntry} {
		entry.SetOnEscape(func() { a.window.Canvas().Unfocus() })
		entry.SetOnShortcut(a.handleShortcut)
	}

	// Tooltips are set after the tooltip layer is created
	a.openButton = ttwidget.NewButtonWithIcon("", theme.FolderOpenIcon(), a.onOpen)
	a.transpileButton = ttwidget.NewButtonWithIcon("Transpile", theme.MediaPlayIcon(), a.onTranspile)
	a.transpileButton.Importance = widget.HighImportance
	a.clearButton = ttwidget.NewButtonWithIcon("", theme.ContentClearIcon(), a.onClear)
	a.clearButton.Importance = widget.DangerImportance
	a.downloadButton = ttwidget.NewButtonWithIcon("", theme.DownloadIcon(), a.onDownload)
	a.downloadButton.Disable()
	a.helpButton = ttwidget.NewButtonWithIcon("", theme.HelpIcon(), a.onShowHotkeys)

	toolbar := container.NewHBox(
		a.openButton,
		a.transpileButton,
		widget.NewSeparator(),
		a.downloadButton,
		a.clearButton,
		widget.NewSeparator(),
		a.helpButton,
	)

	sourcePane := container.NewBorder(widget.NewLabel("Pascal"), nil, nil, nil, a.sourceEntry)
	destPane := container.NewBorder(widget.NewLabel("C#"), nil, nil, nil, a.destEntry)
	editors := container.NewHSplit(sourcePane, destPane)
	editors.SetOffset(0.5)

	body := container.NewVSplit(editors, a.logViewer)
	body.SetOffset(0.8)

	a.statusLabel = widget.NewLabel("Ready")
	a.stateLabel = widget.NewLabel("")
	a.stateLabel.TextStyle = fyne.TextStyle{Italic: true}
	statusSection := container.NewBorder(nil, nil, nil, a.stateLabel, a.statusLabel)

	content := container.NewBorder(
		container.NewVBox(toolbar, widget.NewSeparator()),
		statusSection,
		nil, nil,
		body,
	)

	// Add the tooltip layer to enable tooltips
	a.window.SetContent(fynetooltip.AddWindowToolTipLayer(content, a.window.Canvas()))
	a.setupTooltips()

	a.window.SetOnDropped(func(_ fyne.Position, uris []fyne.URI) {
		if len(uris) > 0 {
			a.controller.Import(uriHandle{uri: uris[0]})
		}
	})

	a.window.SetOnClosed(func() {
		if a.unsubscribe != nil {
			a.unsubscribe()
		}
		if a.controller != nil {
			a.controller.Close()
		}
		if a.store != nil {
			if err := a.store.Close(); err != nil {
				a.logger.Warn("failed to close session store", "error", err)
			}
		}
	})

	a.setupKeyboardShortcuts()
}

// Run starts the GUI application
func (a *Application) Run() {
	if a.startupErr != nil {
		a.showError(a.startupErr)
	}
	a.window.ShowAndRun()
}

// applyView mirrors the controller state into the widgets.
func (a *Application) applyView(v session.View) {
	if v.CanTranspile {
		a.transpileButton.Enable()
	} else {
		a.transpileButton.Disable()
	}
	if v.DownloadEnabled {
		a.downloadButton.Enable()
	} else {
		a.downloadButton.Disable()
	}

	if v.Status != "" {
		a.statusLabel.SetText(v.Status)
	}
	a.stateLabel.SetText(v.State.String())

	title := fmt.Sprintf("pas2cs v%s - Pascal to C#", internal.Version)
	if v.SourceName != "" {
		title = v.SourceName + " - " + title
	}
	a.window.SetTitle(title)
}

func (a *Application) onTranspile() {
	if err := a.controller.Transpile(); err != nil {
		a.updateStatus(err.Error())
	}
}

func (a *Application) onClear() {
	a.controller.Clear()
}

func (a *Application) onDownload() {
	err := a.controller.Download()
	switch {
	case errors.Is(err, session.ErrDownloadDisabled):
		a.updateStatus(err.Error())
	case err != nil:
		a.showError(err)
	}
}

// onExported hands the outcome of the save dialog to the controller.
func (a *Application) onExported(path string, err error) {
	a.controller.ExportFinished(path, err)
	if err != nil {
		dialog.ShowError(fmt.Errorf("save translation: %w", err), a.window)
	}
}

func (a *Application) onOpen() {
	d := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			a.showError(err)
			return
		}
		if rc == nil {
			return // canceled
		}
		uri := rc.URI()
		rc.Close()
		a.controller.Import(uriHandle{uri: uri})
	}, a.window)
	d.SetFilter(storage.NewExtensionFileFilter(sourceExtensions))
	d.Show()
}

func (a *Application) onShowHotkeys() {
	hotkeys := `[Project Page: https://codeberg.org/snonux/pas2cs](https://codeberg.org/snonux/pas2cs)

---

## Session
**Ctrl+Enter** Transpile the Pascal source
**Ctrl+O** Open a Pascal file
**Ctrl+S** Download the C# translation
**Ctrl+L** Clear both editors

## Editing
**Esc** Unfocus editor
**F1** Show hotkeys

---
Files can also be dropped on the window. Edits are saved one second
after you stop typing.`

	content := widget.NewRichTextFromMarkdown(hotkeys)
	content.Wrapping = fyne.TextWrapWord

	scroll := container.NewScroll(container.NewPadded(content))
	scroll.SetMinSize(fyne.NewSize(520, 320))

	dialog.NewCustom("Keyboard Shortcuts", "Close", scroll, a.window).Show()
}

func (a *Application) updateStatus(message string) {
	a.statusLabel.SetText(message)
}

func (a *Application) showError(err error) {
	dialog.ShowError(err, a.window)
	a.updateStatus("Error: " + err.Error())
}

// setupTooltips sets up all tooltips after the tooltip layer has been created
func (a *Application) setupTooltips() {
	a.openButton.SetToolTip("Open Pascal file (Ctrl+O)")
	a.transpileButton.SetToolTip("Transpile to C# (Ctrl+Enter)")
	a.downloadButton.SetToolTip("Download C# file (Ctrl+S)")
	a.clearButton.SetToolTip("Clear editors (Ctrl+L)")
	a.helpButton.SetToolTip("Show hotkeys (F1)")
}

type shortcutAction struct {
	shortcut *desktop.CustomShortcut
	action   func()
}

func (a *Application) shortcuts() []shortcutAction {
	mod := fyne.KeyModifierShortcutDefault
	return []shortcutAction{
		{&desktop.CustomShortcut{KeyName: fyne.KeyReturn, Modifier: mod}, a.onTranspile},
		{&desktop.CustomShortcut{KeyName: fyne.KeyEnter, Modifier: mod}, a.onTranspile},
		{&desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: mod}, a.onOpen},
		{&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: mod}, a.onDownload},
		{&desktop.CustomShortcut{KeyName: fyne.KeyL, Modifier: mod}, a.onClear},
	}
}

// handleShortcut runs the action bound to s, if any.
func (a *Application) handleShortcut(s *desktop.CustomShortcut) bool {
	for _, sa := range a.shortcuts() {
		if sa.shortcut.KeyName == s.KeyName && sa.shortcut.Modifier == s.Modifier {
			sa.action()
			return true
		}
	}
	return false
}

func (a *Application) setupKeyboardShortcuts() {
	canvas := a.window.Canvas()
	for _, sa := range a.shortcuts() {
		action := sa.action
		canvas.AddShortcut(sa.shortcut, func(fyne.Shortcut) { action() })
	}

	canvas.SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyEscape:
			canvas.Unfocus()
		case fyne.KeyF1:
			a.onShowHotkeys()
		}
	})
}
