package store

import (
	"log/slog"
	"sync"
)

// Resilient mirrors a durable store in memory. Reads are served from the
// mirror. The first failed durable write is logged and the store keeps
// working from memory for the rest of the session.
type Resilient struct {
	durable Store
	mirror  *MemoryStore
	logger  *slog.Logger

	mu       sync.Mutex
	degraded bool
}

// NewResilient loads the session keys from durable into memory. A nil
// durable store starts out degraded.
func NewResilient(durable Store, logger *slog.Logger) *Resilient {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resilient{durable: durable, mirror: NewMemoryStore(), logger: logger}
	if durable == nil {
		r.degraded = true
		return r
	}
	for _, key := range []string{KeySource, KeyDest, KeyCanDownload} {
		v, ok, err := durable.Get(key)
		if err != nil {
			r.degrade("read", key, err)
			break
		}
		if ok {
			r.mirror.Set(key, v)
		}
	}
	return r
}

// Open opens the SQLite store at path. When that fails the returned store
// is memory only and the error is logged, never returned.
func Open(path string, logger *slog.Logger) *Resilient {
	if logger == nil {
		logger = slog.Default()
	}
	durable, err := OpenSQLite(path)
	if err != nil {
		logger.Warn("session store unavailable, keeping session in memory", "path", path, "error", err)
		return NewResilient(nil, logger)
	}
	logger.Debug("session store opened", "path", path)
	return NewResilient(durable, logger)
}

func (r *Resilient) Get(key string) (string, bool, error) {
	return r.mirror.Get(key)
}

// Set always succeeds; durability is best effort.
func (r *Resilient) Set(key, value string) error {
	r.mirror.Set(key, value)

	r.mu.Lock()
	degraded := r.degraded
	r.mu.Unlock()
	if degraded {
		return nil
	}
	if err := r.durable.Set(key, value); err != nil {
		r.degrade("write", key, err)
	}
	return nil
}

// Degraded reports whether writes only reach memory.
func (r *Resilient) Degraded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.degraded
}

func (r *Resilient) Close() error {
	if r.durable == nil {
		return nil
	}
	return r.durable.Close()
}

func (r *Resilient) degrade(op, key string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.degraded {
		return
	}
	r.degraded = true
	r.logger.Warn("session store failed, continuing in memory", "op", op, "key", key, "error", err)
}
