// Package editor holds the in-memory staged copy of the site document that an editing
// session mutates before publishing it.
package editor

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/sitepublisher/internal/content"
	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/publish"
	"git.home.luguber.info/inful/sitepublisher/internal/store"
)

// Publisher persists and reads the site document. *publish.Orchestrator and *RemoteClient
// implement it.
type Publisher interface {
	Publish(ctx context.Context, doc any, targetIDs ...string) (*publish.Outcome, error)
	Fetch(ctx context.Context, targetID string) (*publish.Snapshot, error)
}

// ErrNotLoaded is returned when the session has no staged document.
var ErrNotLoaded = errors.ValidationError("no document loaded").Build()

// Editor is one editing session. It is safe for concurrent use.
type Editor struct {
	publisher Publisher
	source    string

	mu         sync.Mutex
	doc        content.Document
	version    store.Version
	dirty      bool
	generation uint64
}

// New returns an editor that loads from source (a target id, empty for the first target).
func New(p Publisher, source string) *Editor {
	return &Editor{publisher: p, source: source}
}

// Load stages the currently published document, discarding local changes.
func (e *Editor) Load(ctx context.Context) error {
	snap, err := e.publisher.Fetch(ctx, e.source)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.doc = snap.Document
	e.version = snap.Version
	e.dirty = false
	e.generation++
	return nil
}

// Stage replaces the staged document with doc, e.g. one read from a local file.
func (e *Editor) Stage(doc content.Document) error {
	if doc == nil {
		return content.ErrInvalidDocument
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.doc = content.Clone(doc)
	e.dirty = true
	e.generation++
	return nil
}

// Set rebinds the value at a dot-separated path.
func (e *Editor) Set(path string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return ErrNotLoaded
	}
	next, err := content.SetAtPath(e.doc, path, value)
	if err != nil {
		return err
	}
	e.doc = next
	e.dirty = true
	e.generation++
	return nil
}

// Get returns the value at a dot-separated path.
func (e *Editor) Get(path string) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return nil, ErrNotLoaded
	}
	return content.GetAtPath(e.doc, path)
}

// Document returns a deep copy of the staged document, or nil.
func (e *Editor) Document() content.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return content.Clone(e.doc)
}

// Version returns the version the staged document was loaded from.
func (e *Editor) Version() store.Version {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

// Dirty reports whether the staged document has unpublished changes.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// Publish sends the staged document to every target and waits for the aggregate result.
// After an overall success the staged copy is discarded unless it was changed while the
// publish was in flight; the next session starts with Load.
func (e *Editor) Publish(ctx context.Context) (*publish.Outcome, error) {
	e.mu.Lock()
	if e.doc == nil {
		e.mu.Unlock()
		return nil, ErrNotLoaded
	}
	doc := e.doc
	gen := e.generation
	e.mu.Unlock()

	outcome, err := e.publisher.Publish(ctx, doc)
	if err != nil || !outcome.OverallSuccess {
		return outcome, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation == gen {
		e.doc = nil
		e.version = ""
		e.dirty = false
	}
	return outcome, nil
}
