// Package importer reads a user-selected local file as text.
package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"
)

var (
	// ErrNotText is returned for binary or non UTF-8 content.
	ErrNotText = errors.New("file is not UTF-8 text")
	// ErrTooLarge is returned when the file exceeds the size limit.
	ErrTooLarge = errors.New("file is too large")
)

// DefaultMaxBytes bounds imported files.
const DefaultMaxBytes = 4 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Handle identifies a file the user picked.
type Handle interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// PathHandle is a Handle for a file on the local filesystem.
type PathHandle string

func (p PathHandle) Name() string { return filepath.Base(string(p)) }

func (p PathHandle) Open() (io.ReadCloser, error) { return os.Open(string(p)) }

// ReaderHandle wraps an already opened reader such as standard input.
type ReaderHandle struct {
	FileName string
	Reader   io.ReadCloser
}

func (r ReaderHandle) Name() string { return r.FileName }

func (r ReaderHandle) Open() (io.ReadCloser, error) {
	if r.Reader == nil {
		return nil, fmt.Errorf("%s: no reader", r.FileName)
	}
	return r.Reader, nil
}

// Importer decodes files into text.
type Importer struct {
	MaxBytes int64
}

// New creates an Importer; maxBytes <= 0 selects DefaultMaxBytes.
func New(maxBytes int64) *Importer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Importer{MaxBytes: maxBytes}
}

// ReadAsText returns the whole content of h as a string.
func (im *Importer) ReadAsText(ctx context.Context, h Handle) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rc, err := h.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", h.Name(), err)
	}
	defer rc.Close()

	limit := im.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}

	data, err := io.ReadAll(io.LimitReader(&ctxReader{ctx: ctx, r: rc}, limit+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", h.Name(), err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("%s: %w (limit %d bytes)", h.Name(), ErrTooLarge, limit)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return "", fmt.Errorf("%s: %w", h.Name(), ErrNotText)
	}
	return string(data), nil
}

// ctxReader stops a long read once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
