package store

import (
	"strconv"
)

// Keys of the persisted session.
const (
	KeySource      = "sourcecode"
	KeyDest        = "destcode"
	KeyCanDownload = "canDownload"
)

// Store is a string key/value store. Get reports whether the key exists.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Close() error
}

// Session is the durable projection of the editor state.
type Session struct {
	Source      string
	Dest        string
	CanDownload bool
}

// Load reads the session, falling back to defaults for keys that are
// missing, unreadable or not a valid boolean.
func Load(s Store) Session {
	var sess Session
	sess.Source = getString(s, KeySource)
	sess.Dest = getString(s, KeyDest)
	if v := getString(s, KeyCanDownload); v != "" {
		b, err := strconv.ParseBool(v)
		sess.CanDownload = err == nil && b
	}
	return sess
}

// SaveSource writes only the source text.
func SaveSource(s Store, source string) error {
	return s.Set(KeySource, source)
}

// SaveFlag writes only the download gate.
func SaveFlag(s Store, canDownload bool) error {
	return s.Set(KeyCanDownload, strconv.FormatBool(canDownload))
}

// SaveCycle writes the full triple of one transpile cycle.
func SaveCycle(s Store, sess Session) error {
	return saveGated(s, sess.CanDownload, KeySource, sess.Source, KeyDest, sess.Dest)
}

// SaveResult writes the destination text and the gate of a cycle whose
// source was saved separately.
func SaveResult(s Store, dest string, canDownload bool) error {
	return saveGated(s, canDownload, KeyDest, dest)
}

// saveGated closes the gate before touching the texts and reopens it
// only after all of them were written. A write that is lost part way,
// including one a degraded store swallows, leaves the gate closed or the
// previous cycle intact.
func saveGated(s Store, canDownload bool, kv ...string) error {
	if err := SaveFlag(s, false); err != nil {
		return err
	}
	for i := 0; i+1 < len(kv); i += 2 {
		if err := s.Set(kv[i], kv[i+1]); err != nil {
			return err
		}
	}
	if !canDownload {
		return nil
	}
	return SaveFlag(s, true)
}

// Reset overwrites the session with empty texts and a closed gate.
func Reset(s Store) error {
	return SaveCycle(s, Session{})
}

func getString(s Store, key string) string {
	v, ok, err := s.Get(key)
	if err != nil || !ok {
		return ""
	}
	return v
}
