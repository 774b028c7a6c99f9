// Package archive moves a saved session out of the way so the next run
// starts from an empty one.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// sqliteSidecars are the files SQLite keeps next to a WAL database.
var sqliteSidecars = []string{"-wal", "-shm"}

// ArchiveSession moves the session database at statePath, with its WAL
// files, to an archive directory next to it and returns the new path.
func ArchiveSession(statePath string) (string, error) {
	if _, err := os.Stat(statePath); errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("session file does not exist: %s", statePath)
	}

	archiveDir := filepath.Join(filepath.Dir(statePath), "archive")
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	ext := filepath.Ext(statePath)
	base := strings.TrimSuffix(filepath.Base(statePath), ext)

	timestamp := time.Now().Format("20060102-150405")
	archivePath := filepath.Join(archiveDir, fmt.Sprintf("%s-%s%s", base, timestamp, ext))
	if _, err := os.Stat(archivePath); err == nil {
		// Add microseconds to make it unique
		timestamp = time.Now().Format("20060102-150405.000000")
		archivePath = filepath.Join(archiveDir, fmt.Sprintf("%s-%s%s", base, timestamp, ext))
	}

	if err := os.Rename(statePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to archive session: %w", err)
	}
	for _, suffix := range sqliteSidecars {
		if err := os.Rename(statePath+suffix, archivePath+suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return archivePath, fmt.Errorf("failed to archive %s: %w", filepath.Base(statePath+suffix), err)
		}
	}

	return archivePath, nil
}
