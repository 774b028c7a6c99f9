package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"codeberg.org/snonux/pas2cs/internal/archive"
	"codeberg.org/snonux/pas2cs/internal/cli"
	"codeberg.org/snonux/pas2cs/internal/exporter"
	"codeberg.org/snonux/pas2cs/internal/gui"
	"codeberg.org/snonux/pas2cs/internal/importer"
	"codeberg.org/snonux/pas2cs/internal/session"
	"codeberg.org/snonux/pas2cs/internal/store"
	"codeberg.org/snonux/pas2cs/internal/transpile"
)

// ErrTranspileFailed is returned when the service reported a failure or
// the request did not complete.
var ErrTranspileFailed = errors.New("transpile failed")

// Processor handles the headless commands
type Processor struct {
	flags  *cli.Flags
	cfg    *cli.Config
	logger *slog.Logger
	in     io.Reader
	out    io.Writer
}

// NewProcessor creates a new processor writing results to stdout
func NewProcessor(flags *cli.Flags, cfg *cli.Config, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{flags: flags, cfg: cfg, logger: logger, in: os.Stdin, out: os.Stdout}
}

// SetInput replaces standard input as the source of "-".
func (p *Processor) SetInput(r io.Reader) {
	p.in = r
}

// SetOutput redirects printed results.
func (p *Processor) SetOutput(w io.Writer) {
	p.out = w
}

// run holds one headless controller and the loop that drives it.
type run struct {
	loop   *session.Loop
	c      *session.Controller
	source *session.MemoryEditor
	dest   *session.MemoryEditor
	store  *store.Resilient
	export *exporter.DirExporter
}

func (p *Processor) open(ctx context.Context) (*run, func(), error) {
	tcfg := p.cfg.Transpile
	tcfg.Logger = p.logger
	client, err := transpile.New(&tcfg)
	if err != nil {
		return nil, nil, err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r := &run{
		loop:   session.NewLoop(),
		source: session.NewMemoryEditor(),
		dest:   session.NewMemoryEditor(),
		store:  store.Open(p.cfg.StatePath, p.logger),
		export: exporter.NewDirExporter(p.cfg.ExportDir),
	}
	r.loop.Start(loopCtx)

	var newErr error
	r.loop.Call(func() {
		r.c, newErr = session.New(session.Deps{
			Source:     r.source,
			Dest:       r.dest,
			Store:      r.store,
			Client:     client,
			Importer:   importer.New(p.cfg.ImportMaxBytes),
			Exporter:   r.export,
			Dispatcher: r.loop,
			Logger:     p.logger,
			Debounce:   p.cfg.Debounce,
			Filename:   p.cfg.ExportFilename,
		})
	})

	closeFn := func() {
		if r.c != nil {
			r.loop.Call(r.c.Close)
		}
		cancel()
		if err := r.store.Close(); err != nil {
			p.logger.Warn("Failed to close session store", "error", err)
		}
	}
	if newErr != nil {
		closeFn()
		return nil, nil, newErr
	}
	return r, closeFn, nil
}

// ProcessFile imports path, transpiles it and prints the translation.
// A path of "-" reads the program from standard input. A successful
// translation is also exported unless --no-export is set.
func (p *Processor) ProcessFile(ctx context.Context, path string) error {
	r, closeFn, err := p.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	handle := p.sourceHandle(path)
	r.loop.Call(func() { r.c.Import(handle) })
	v, err := session.WaitIdle(ctx, r.c, r.loop)
	if err != nil {
		return err
	}
	if v.SourceName == "" {
		return errors.New(v.Status)
	}

	var startErr error
	r.loop.Call(func() { startErr = r.c.Transpile() })
	if startErr != nil {
		return startErr
	}
	v, err = session.WaitIdle(ctx, r.c, r.loop)
	if err != nil {
		return err
	}

	if text := r.dest.Value(); text != "" {
		fmt.Fprintln(p.out, text)
	}
	if !v.DownloadEnabled {
		return fmt.Errorf("%w: %s", ErrTranspileFailed, v.Status)
	}

	if p.flags != nil && p.flags.NoExport {
		return nil
	}
	var exportErr error
	r.loop.Call(func() { exportErr = r.c.Download() })
	if exportErr != nil {
		return exportErr
	}
	fmt.Fprintf(os.Stderr, "Saved translation to %s\n", r.export.Path(p.cfg.ExportFilename))
	return nil
}

func (p *Processor) sourceHandle(path string) importer.Handle {
	if path == "-" {
		return importer.ReaderHandle{FileName: "stdin", Reader: io.NopCloser(p.in)}
	}
	return importer.PathHandle(path)
}

// ShowSession prints the saved session.
func (p *Processor) ShowSession() error {
	st := store.Open(p.cfg.StatePath, p.logger)
	defer st.Close()

	sess := store.Load(st)
	fmt.Fprintf(p.out, "State file: %s\n", p.cfg.StatePath)
	fmt.Fprintf(p.out, "Download enabled: %t\n", sess.CanDownload)
	fmt.Fprintf(p.out, "\n--- Pascal ---\n%s\n", sess.Source)
	fmt.Fprintf(p.out, "\n--- C# ---\n%s\n", sess.Dest)
	return nil
}

// ClearSession empties the saved session.
func (p *Processor) ClearSession(ctx context.Context) error {
	r, closeFn, err := p.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	r.loop.Call(r.c.Clear)
	fmt.Fprintln(p.out, "Session cleared")
	return nil
}

// ArchiveSession moves the saved session aside.
func (p *Processor) ArchiveSession() error {
	path, err := archive.ArchiveSession(p.cfg.StatePath)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "Session archived to: %s\n", path)
	return nil
}

// RunGUIMode starts the window and blocks until it is closed.
func (p *Processor) RunGUIMode() error {
	if err := os.MkdirAll(filepath.Dir(p.cfg.StatePath), 0755); err != nil {
		p.logger.Warn("Failed to create state directory", "error", err)
	}

	app, err := gui.New(&gui.Config{
		Transpile:      p.cfg.Transpile,
		StatePath:      p.cfg.StatePath,
		ExportDir:      p.cfg.ExportDir,
		ExportFilename: p.cfg.ExportFilename,
		Debounce:       p.cfg.Debounce,
		ImportMaxBytes: p.cfg.ImportMaxBytes,
		LogLevel:       p.cfg.LogLevel,
		LogJournal:     p.cfg.LogJournal,
	})
	if err != nil {
		return err
	}
	app.Run()
	return nil
}
