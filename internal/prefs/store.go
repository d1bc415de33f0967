package prefs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"

	"github.com/harunnryd/trendsniffer/internal/errors"
)

// LockConfig controls how long Open waits for another process to release
// the store.
type LockConfig struct {
	Retry    time.Duration
	MaxRetry int
}

func DefaultLockConfig() LockConfig {
	return LockConfig{Retry: 250 * time.Millisecond, MaxRetry: 20}
}

// Store owns the preference document on disk. All mutations funnel through
// Update so the in-memory document is always the normalized form of the
// last write. The file lock is held for the life of the process.
type Store struct {
	path string
	lock *flock.Flock

	mu        sync.RWMutex
	doc       Document
	onPersist []func(Document)
}

// Open acquires the store lock, loads the document and normalizes it. A
// missing or corrupt file falls back to the default document rather than
// failing startup.
func Open(path string, cfg LockConfig) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Persistence(err, "create store directory")
	}

	lock := flock.New(path + ".lock")
	if err := acquireWithRetry(lock, cfg); err != nil {
		return nil, err
	}

	s := &Store{path: path, lock: lock}
	s.doc = s.load()

	// Rewrite immediately so sanitation applied during load reaches disk.
	if err := s.persist(s.doc); err != nil {
		lock.Unlock() //nolint:errcheck
		return nil, err
	}

	slog.Info("Preference store opened",
		"path", path,
		"topics", len(s.doc.Watchlist.Topics),
		"sources", len(s.doc.RSSSources),
	)
	return s, nil
}

func acquireWithRetry(lock *flock.Flock, cfg LockConfig) error {
	if cfg.MaxRetry <= 0 {
		cfg = DefaultLockConfig()
	}
	for i := 0; i < cfg.MaxRetry; i++ {
		locked, err := lock.TryLock()
		if err != nil {
			return errors.Persistence(err, "attempt store lock")
		}
		if locked {
			return nil
		}
		if i < cfg.MaxRetry-1 {
			time.Sleep(cfg.Retry)
		}
	}
	return errors.Persistence(
		fmt.Errorf("store %s is locked by another instance", lock.Path()),
		"acquire store lock",
	)
}

func (s *Store) load() Document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Store file unreadable, starting fresh", "path", s.path, "error", err)
		}
		return DefaultDocument()
	}
	return DecodeDocument(data)
}

// Path returns the store file location.
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns a deep copy of the current document.
func (s *Store) Snapshot() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneDocument(s.doc)
}

// OnPersist registers a callback invoked with the new document after every
// successful write. Callbacks run on the mutating goroutine and must not
// call back into the store.
func (s *Store) OnPersist(fn func(Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPersist = append(s.onPersist, fn)
}

// Update applies fn to a copy of the document, normalizes the result and
// persists it. The in-memory document is swapped before the disk write, so
// readers observe the mutation even if persistence later fails.
func (s *Store) Update(fn func(*Document) error) (Document, error) {
	s.mu.Lock()
	working := cloneDocument(s.doc)
	if err := fn(&working); err != nil {
		s.mu.Unlock()
		return Document{}, err
	}
	normalized := NormalizeDocument(working)
	s.doc = normalized
	callbacks := append([]func(Document){}, s.onPersist...)
	s.mu.Unlock()

	if err := s.persist(normalized); err != nil {
		return normalized, err
	}
	for _, cb := range callbacks {
		cb(normalized)
	}
	return cloneDocument(normalized), nil
}

// Replace overlays the top-level sections present in partial onto the
// document, leaving seen-item state untouched.
func (s *Store) Replace(partial []byte) (Document, error) {
	var mergeErr error
	doc, err := s.Update(func(d *Document) error {
		merged, err := MergeReplace(*d, partial)
		if err != nil {
			mergeErr = errors.Validationf("invalid preferences payload: %v", err)
			return mergeErr
		}
		*d = merged
		return nil
	})
	if mergeErr != nil {
		return Document{}, mergeErr
	}
	return doc, err
}

// MarkSeen records item ids in a collection with the current timestamp.
// Re-marking an already seen id refreshes its timestamp so eviction keeps
// the most recently marked entries. Unknown collection names are ignored.
func (s *Store) MarkSeen(collection string, ids []string) (Document, error) {
	now := time.Now().UnixMilli()
	return s.Update(func(d *Document) error {
		m := d.Seen.Collection(collection)
		if m == nil {
			return nil
		}
		for _, id := range ids {
			if id == "" {
				continue
			}
			m[id] = now
		}
		return nil
	})
}

func (s *Store) persist(doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Persistence(err, "encode store document")
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		slog.Error("Store write failed", "path", s.path, "error", err)
		return errors.Persistence(err, "write store file")
	}
	return nil
}

// Close releases the store lock.
func (s *Store) Close() error {
	if s.lock == nil {
		return nil
	}
	if err := s.lock.Unlock(); err != nil {
		return errors.Persistence(err, "release store lock")
	}
	slog.Info("Preference store closed", "path", s.path)
	return nil
}

// cloneDocument deep-copies via the JSON round trip; the document is small
// and already JSON-shaped.
func cloneDocument(doc Document) Document {
	data, err := json.Marshal(doc)
	if err != nil {
		return DefaultDocument()
	}
	var out Document
	if err := json.Unmarshal(data, &out); err != nil {
		return DefaultDocument()
	}
	return out
}
