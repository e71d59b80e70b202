// Package store defines the content-store contract used by the publish pipeline.
//
// A store holds serialized site-content documents at fixed paths. Every document carries an
// opaque version token assigned by the store; writes must present the token observed by the
// most recent read and the store rejects the write when it no longer matches.
package store

import (
	"context"
	stderrors "errors"
	"fmt"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
)

// Version is the store's native optimistic-concurrency token (blob SHA, ETag, content hash).
type Version string

// Snapshot is the current state of one stored document.
type Snapshot struct {
	Version Version
	Data    []byte
}

// Revision describes the result of an accepted write.
type Revision struct {
	Version   Version
	Reference string // commit SHA or equivalent confirmation id
}

// Store reads and conditionally writes documents.
type Store interface {
	// Name identifies the backend in logs and results.
	Name() string
	// Read returns the document at path together with its version token.
	Read(ctx context.Context, path string) (*Snapshot, error)
	// Write replaces the document at path if its version still equals expected.
	Write(ctx context.Context, path string, data []byte, expected Version, message string) (*Revision, error)
}

// Preflighter is implemented by stores that can report missing configuration without doing I/O.
type Preflighter interface {
	Preflight() error
}

// Preflight runs s.Preflight when s supports it.
func Preflight(s Store) error {
	if p, ok := s.(Preflighter); ok {
		return p.Preflight()
	}
	return nil
}

// ErrVersionConflict is the sentinel wrapped by every ConflictError.
var ErrVersionConflict = stderrors.New("version conflict")

// ConflictError reports a write whose expected version no longer matches the stored one.
type ConflictError struct {
	Path     string
	Expected Version
	Current  Version
}

func (e *ConflictError) Error() string {
	if e.Current == "" {
		return fmt.Sprintf("version conflict on %s: expected %s", e.Path, e.Expected)
	}
	return fmt.Sprintf("version conflict on %s: expected %s, current %s", e.Path, e.Expected, e.Current)
}

func (e *ConflictError) Unwrap() error { return ErrVersionConflict }

// Conflict builds the classified error stores return for a stale version token.
func Conflict(storeName, path string, expected, current Version) error {
	return errors.ConflictError("stale version token rejected").
		WithCause(&ConflictError{Path: path, Expected: expected, Current: current}).
		WithContext("store", storeName).
		WithContext("path", path).
		WithContext("expected_version", string(expected)).
		Build()
}

// IsConflict reports whether err is a version conflict.
func IsConflict(err error) bool {
	return stderrors.Is(err, ErrVersionConflict) || errors.HasCategory(err, errors.CategoryConflict)
}
