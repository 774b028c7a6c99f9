// Package exporter saves the translated program as a local file.
package exporter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"codeberg.org/snonux/pas2cs/internal"
)

// DefaultFilename is the fixed name of exported files.
const DefaultFilename = "pascal-to-csharp.cs"

// ErrDeferred is returned by an Exporter that finishes the save later,
// for example after the user picked a location. The outcome is reported
// through a separate callback.
var ErrDeferred = errors.New("export continues asynchronously")

// Exporter materializes content as a file called filename.
type Exporter interface {
	Save(filename, content string) error
}

// DirExporter writes files into a directory.
type DirExporter struct {
	dir string
}

// NewDirExporter creates an exporter for dir; an empty dir means
// ~/Downloads.
func NewDirExporter(dir string) *DirExporter {
	if dir == "" {
		dir = DefaultDir()
	}
	return &DirExporter{dir: dir}
}

// DefaultDir returns the user's download directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}

// Path returns where filename would be written.
func (e *DirExporter) Path(filename string) string {
	return filepath.Join(e.dir, internal.SanitizeFilename(filename))
}

// Save writes content verbatim. The file is replaced atomically, and
// empty content produces an empty file.
func (e *DirExporter) Save(filename, content string) error {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	target := e.Path(filename)
	tmp, err := os.CreateTemp(e.dir, ".export-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to set export permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to save %s: %w", target, err)
	}
	return nil
}
