package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"codeberg.org/snonux/pas2cs/internal/debounce"
	"codeberg.org/snonux/pas2cs/internal/exporter"
	"codeberg.org/snonux/pas2cs/internal/importer"
	"codeberg.org/snonux/pas2cs/internal/store"
	"codeberg.org/snonux/pas2cs/internal/transpile"
)

// DefaultDebounce is the quiet window before an edit is saved.
const DefaultDebounce = time.Second

var (
	// ErrBusy is returned by Transpile while a request is in flight.
	ErrBusy = errors.New("a transpile request is already running")
	// ErrDownloadDisabled is returned by Download until a transpile succeeded.
	ErrDownloadDisabled = errors.New("download is available after a successful transpile")
)

// TextReader reads an imported file as text.
type TextReader interface {
	ReadAsText(ctx context.Context, h importer.Handle) (string, error)
}

// Deps are the collaborators of a Controller. Source, Dest, Store,
// Client and Dispatcher are required.
type Deps struct {
	Source     Editor
	Dest       Editor
	Store      store.Store
	Client     transpile.Client
	Importer   TextReader
	Exporter   exporter.Exporter
	Dispatcher Dispatcher
	Clock      debounce.Clock
	Logger     *slog.Logger
	Debounce   time.Duration
	Filename   string
}

// pendingSave is a debounced source write. epoch ties it to the source
// contents it was scheduled for, so Clear and Import can invalidate a
// timer that already fired but has not reached the execution context.
type pendingSave struct {
	text  string
	epoch uint64
}

// request is what Transpile remembers about the source it sent.
type request struct {
	gen     uint64
	source  string
	epoch   uint64
	commits uint64
}

type listener struct {
	id int
	fn func(View)
}

// Controller owns the session state. See the package documentation for
// its threading rules.
type Controller struct {
	source     Editor
	dest       Editor
	store      store.Store
	client     transpile.Client
	reader     TextReader
	exporter   exporter.Exporter
	dispatcher Dispatcher
	clock      debounce.Clock
	logger     *slog.Logger
	filename   string

	ctx    context.Context
	cancel context.CancelFunc
	saver  *debounce.Debouncer[pendingSave]
	// queued counts fired saves still waiting for the execution context.
	queued atomic.Int32

	applying        bool
	sourceEpoch     uint64
	sourceCommits   uint64
	transpiling     bool
	transpileGen    uint64
	importing       bool
	importGen       uint64
	downloadEnabled bool
	status          string
	lastSaved       time.Time
	sourceName      string

	listeners  []listener
	listenerID int
}

// New builds a controller and restores the persisted session into the
// editors. It must run on the execution context.
func New(deps Deps) (*Controller, error) {
	switch {
	case deps.Source == nil || deps.Dest == nil:
		return nil, errors.New("session: source and destination editors are required")
	case deps.Store == nil:
		return nil, errors.New("session: store is required")
	case deps.Client == nil:
		return nil, errors.New("session: transpile client is required")
	case deps.Dispatcher == nil:
		return nil, errors.New("session: dispatcher is required")
	}

	if deps.Importer == nil {
		deps.Importer = importer.New(importer.DefaultMaxBytes)
	}
	if deps.Exporter == nil {
		deps.Exporter = exporter.NewDirExporter(exporter.DefaultDir())
	}
	if deps.Clock == nil {
		deps.Clock = debounce.SystemClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Debounce <= 0 {
		deps.Debounce = DefaultDebounce
	}
	if deps.Filename == "" {
		deps.Filename = exporter.DefaultFilename
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		source:     deps.Source,
		dest:       deps.Dest,
		store:      deps.Store,
		client:     deps.Client,
		reader:     deps.Importer,
		exporter:   deps.Exporter,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		logger:     deps.Logger,
		filename:   deps.Filename,
		ctx:        ctx,
		cancel:     cancel,
	}
	c.saver = debounce.New(func(p pendingSave) {
		c.queued.Add(1)
		c.dispatcher.Dispatch(func() { c.commitSource(p) })
	}, deps.Debounce, debounce.WithClock(deps.Clock))

	c.Restore()
	c.source.OnChange(c.Edit)
	return c, nil
}

// Restore loads the persisted session into the editors and the download
// gate. Missing keys restore as empty text and a closed gate.
func (c *Controller) Restore() {
	sess := store.Load(c.store)
	c.dest.SetReadOnly(true)
	c.setEditor(c.source, sess.Source)
	c.setEditor(c.dest, sess.Dest)
	c.downloadEnabled = sess.CanDownload
	c.logger.Debug("session restored",
		"source_bytes", len(sess.Source),
		"dest_bytes", len(sess.Dest),
		"can_download", sess.CanDownload)
	c.publish()
}

// Edit records a change of the source text and schedules its save.
// The source editor's change callback is wired to it; headless callers
// use it to type into the source editor.
func (c *Controller) Edit(text string) {
	if c.applying {
		return
	}
	if c.source.Value() != text {
		c.setEditor(c.source, text)
	}
	c.saver.Call(pendingSave{text: text, epoch: c.sourceEpoch})
	c.publish()
}

func (c *Controller) commitSource(p pendingSave) {
	c.queued.Add(-1)
	if p.epoch != c.sourceEpoch {
		c.publish()
		return
	}
	if err := store.SaveSource(c.store, p.text); err != nil {
		c.logger.Warn("failed to save source", "error", err)
	}
	c.sourceCommits++
	c.lastSaved = c.clock.Now()
	c.status = "Saved at " + c.lastSaved.Format("15:04:05")
	c.publish()
}

// Transpile submits the current source text. The reply arrives later on
// the execution context.
func (c *Controller) Transpile() error {
	if c.transpiling {
		return ErrBusy
	}

	c.transpiling = true
	c.transpileGen++
	req := request{
		gen:     c.transpileGen,
		source:  c.source.Value(),
		epoch:   c.sourceEpoch,
		commits: c.sourceCommits,
	}
	c.status = "Transpiling..."
	c.logger.Info("submitting transpile request", "bytes", len(req.source))
	c.publish()

	go func() {
		res, err := c.client.Submit(c.ctx, req.source)
		c.dispatcher.Dispatch(func() { c.finishTranspile(req, res, err) })
	}()
	return nil
}

func (c *Controller) finishTranspile(req request, res transpile.Result, err error) {
	if req.gen != c.transpileGen {
		c.logger.Debug("discarding superseded transpile result")
		return
	}
	c.transpiling = false

	if err != nil {
		c.downloadEnabled = false
		if serr := store.SaveFlag(c.store, false); serr != nil {
			c.logger.Warn("failed to save download flag", "error", serr)
		}
		c.status = transpileErrorStatus(err)
		c.logger.Warn("transpile request failed", "error", err)
		c.publish()
		return
	}

	c.setEditor(c.dest, res.Text)
	c.downloadEnabled = res.Succeeded
	if serr := c.saveResult(req, res); serr != nil {
		c.logger.Warn("failed to save transpile result", "error", serr)
	}
	if res.Succeeded {
		c.status = "Transpiled successfully"
	} else {
		c.status = "Transpile failed, see the output for details"
	}
	c.logger.Info("transpile finished", "succeeded", res.Succeeded, "bytes", len(res.Text))
	c.publish()
}

// saveResult persists the request-time source with the result, unless a
// newer source was saved or imported while the request was in flight.
func (c *Controller) saveResult(req request, res transpile.Result) error {
	if req.epoch != c.sourceEpoch || req.commits != c.sourceCommits {
		return store.SaveResult(c.store, res.Text, res.Succeeded)
	}
	sess := store.Session{Source: req.source, Dest: res.Text, CanDownload: res.Succeeded}
	return store.SaveCycle(c.store, sess)
}

func transpileErrorStatus(err error) string {
	switch {
	case transpile.IsMalformed(err):
		return "Transpile failed: the service sent an unexpected response"
	case errors.Is(err, context.Canceled):
		return "Transpile canceled"
	case transpile.IsTransport(err):
		return "Transpile failed: could not reach the transpile service"
	default:
		return "Transpile failed: " + err.Error()
	}
}

// Clear empties both editors, closes the download gate and persists the
// empty session. Pending saves and in-flight transpile or import
// results are dropped.
func (c *Controller) Clear() {
	c.saver.Cancel()
	c.sourceEpoch++
	c.transpileGen++
	c.transpiling = false
	c.importGen++
	c.importing = false

	c.setEditor(c.source, "")
	c.setEditor(c.dest, "")
	c.downloadEnabled = false
	c.sourceName = ""
	if err := store.Reset(c.store); err != nil {
		c.logger.Warn("failed to reset session", "error", err)
	}
	c.status = "Cleared"
	c.logger.Info("session cleared")
	c.publish()
}

// Download exports the destination text under the configured filename.
func (c *Controller) Download() error {
	if !c.downloadEnabled {
		return ErrDownloadDisabled
	}

	err := c.exporter.Save(c.filename, c.dest.Value())
	if errors.Is(err, exporter.ErrDeferred) {
		c.status = "Choose where to save " + c.filename
		c.publish()
		return nil
	}
	if err != nil {
		c.status = "Download failed: " + err.Error()
		c.logger.Error("failed to export translation", "filename", c.filename, "error", err)
		c.publish()
		return fmt.Errorf("export %s: %w", c.filename, err)
	}
	c.status = "Saved " + c.filename
	c.logger.Info("translation exported", "filename", c.filename)
	c.publish()
	return nil
}

// ExportFinished records the outcome of a deferred export. An empty path
// without an error means the user canceled.
func (c *Controller) ExportFinished(path string, err error) {
	switch {
	case err != nil:
		c.status = "Download failed: " + err.Error()
		c.logger.Error("failed to export translation", "error", err)
	case path == "":
		c.status = "Download canceled"
	default:
		c.status = "Saved to " + path
		c.logger.Info("translation exported", "path", path)
	}
	c.publish()
}

// Import reads h in the background and replaces the source text with its
// contents. A later Import or Clear supersedes it.
func (c *Controller) Import(h importer.Handle) {
	c.importGen++
	gen := c.importGen
	name := h.Name()
	c.importing = true
	c.status = "Reading " + name + "..."
	c.publish()

	go func() {
		text, err := c.reader.ReadAsText(c.ctx, h)
		c.dispatcher.Dispatch(func() { c.finishImport(gen, name, text, err) })
	}()
}

func (c *Controller) finishImport(gen uint64, name, text string, err error) {
	if gen != c.importGen {
		c.logger.Debug("discarding superseded import", "file", name)
		return
	}
	c.importing = false

	if err != nil {
		c.status = fmt.Sprintf("Could not read %s: %v", name, err)
		c.logger.Warn("import failed", "file", name, "error", err)
		c.publish()
		return
	}

	c.saver.Cancel()
	c.sourceEpoch++
	c.setEditor(c.source, text)
	if serr := store.SaveSource(c.store, text); serr != nil {
		c.logger.Warn("failed to save imported source", "error", serr)
	}
	c.sourceName = name
	c.status = "Loaded " + name
	c.logger.Info("imported source file", "file", name, "bytes", len(text))
	c.publish()
}

// State reports the current lifecycle state.
func (c *Controller) State() State {
	switch {
	case c.transpiling:
		return Transpiling
	case c.importing:
		return Importing
	}
	if _, pending := c.saver.Pending(); pending || c.queued.Load() > 0 {
		return Editing
	}
	return Idle
}

// Snapshot returns the current view.
func (c *Controller) Snapshot() View {
	return View{
		State:           c.State(),
		DownloadEnabled: c.downloadEnabled,
		CanTranspile:    !c.transpiling,
		Status:          c.status,
		LastSaved:       c.lastSaved,
		SourceName:      c.sourceName,
	}
}

// Subscribe registers fn for every view change and calls it once with the
// current view. The returned function removes it.
func (c *Controller) Subscribe(fn func(View)) (cancel func()) {
	c.listenerID++
	id := c.listenerID
	c.listeners = append(c.listeners, listener{id: id, fn: fn})
	fn(c.Snapshot())

	return func() {
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// Close stops in-flight work. A pending save is not flushed.
func (c *Controller) Close() {
	c.saver.Cancel()
	c.cancel()
}

func (c *Controller) publish() {
	if len(c.listeners) == 0 {
		return
	}
	v := c.Snapshot()
	for _, l := range append([]listener(nil), c.listeners...) {
		l.fn(v)
	}
}

// setEditor replaces an editor's text without feeding the change back
// into Edit.
func (c *Controller) setEditor(e Editor, text string) {
	c.applying = true
	defer func() { c.applying = false }()
	e.SetValue(text)
}
