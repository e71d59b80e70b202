// Package memory provides an in-process content store used by tests, local development and
// the "memory" target kind.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/store"
)

type entry struct {
	data    []byte
	version store.Version
}

// Store keeps documents in a map and versions them by content hash.
type Store struct {
	mu      sync.RWMutex
	docs    map[string]entry
	commits int
}

// New returns an empty store.
func New() *Store {
	return &Store{docs: make(map[string]entry)}
}

// Name implements store.Store.
func (s *Store) Name() string { return "memory" }

// Put stores data at path unconditionally, as an out-of-band writer would, and returns the
// new version.
func (s *Store) Put(path string, data []byte) store.Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := versionOf(data)
	s.docs[path] = entry{data: append([]byte(nil), data...), version: v}
	return v
}

// Read implements store.Store.
func (s *Store) Read(ctx context.Context, path string) (*store.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NetworkError("read cancelled").WithCause(err).Build()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.docs[path]
	if !ok {
		return nil, errors.NotFoundError("document not found").
			WithContext("store", s.Name()).
			WithContext("path", path).
			Build()
	}
	return &store.Snapshot{Version: e.version, Data: append([]byte(nil), e.data...)}, nil
}

// Write implements store.Store. An empty expected version only succeeds when the path does
// not exist yet.
func (s *Store) Write(ctx context.Context, path string, data []byte, expected store.Version, _ string) (*store.Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NetworkError("write cancelled").WithCause(err).Build()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.docs[path].version
	if current != expected {
		return nil, store.Conflict(s.Name(), path, expected, current)
	}

	v := versionOf(data)
	s.docs[path] = entry{data: append([]byte(nil), data...), version: v}
	s.commits++
	return &store.Revision{Version: v, Reference: fmt.Sprintf("mem-%d", s.commits)}, nil
}

// Commits returns the number of accepted conditional writes.
func (s *Store) Commits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commits
}

func versionOf(data []byte) store.Version {
	sum := sha256.Sum256(data)
	return store.Version(hex.EncodeToString(sum[:20]))
}
