// Package logging builds the application's slog logger. Records fan out
// to every configured writer and, on request, to the systemd journal.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

// Options configures New.
type Options struct {
	Level   string // debug, info, warn or error
	Journal bool
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// New returns a logger writing text records to every writer. An unknown
// level falls back to info; a journal that cannot be opened is reported
// through the other handlers and skipped.
func New(opts Options, writers ...io.Writer) *slog.Logger {
	level := new(slog.LevelVar)
	lvl, levelErr := ParseLevel(opts.Level)
	level.Set(lvl)

	var handlers []slog.Handler
	for _, w := range writers {
		if w == nil {
			continue
		}
		handlers = append(handlers, slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	}

	var journalErr error
	if opts.Journal {
		journal, err := slogjournal.NewHandler(&slogjournal.Options{
			Level:        level,
			ReplaceGroup: toJournalKey,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err != nil {
			journalErr = err
		} else {
			handlers = append(handlers, journal)
		}
	}

	logger := slog.New(slogmulti.Fanout(handlers...))
	if levelErr != nil {
		logger.Warn("falling back to info logging", "error", levelErr)
	}
	if journalErr != nil {
		logger.Warn("systemd journal unavailable", "error", journalErr)
	}
	return logger
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slogmulti.Fanout())
}

// journal field names must be upper case letters, digits and underscores.
func toJournalKey(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, strings.ToUpper(s))
}
