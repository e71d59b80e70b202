// Package gitrepo stores site content in a local git working copy. Each accepted write is a
// commit on HEAD and the blob hash of the file in the HEAD tree is the version token.
package gitrepo

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/store"
)

// Config describes the working copy and the commit author.
type Config struct {
	RepoPath    string
	AuthorName  string
	AuthorEmail string
}

// Store implements store.Store on a local repository.
type Store struct {
	cfg  Config
	mu   sync.Mutex
	repo *git.Repository
	now  func() time.Time

	commit func(wt *git.Worktree, msg string, opts *git.CommitOptions) (plumbing.Hash, error)
}

// New returns a store for cfg.RepoPath. The repository is opened (or initialised) lazily on
// first use so that a missing path surfaces through Preflight.
func New(cfg Config) *Store {
	if cfg.AuthorName == "" {
		cfg.AuthorName = "Site Publisher"
	}
	if cfg.AuthorEmail == "" {
		cfg.AuthorEmail = "cms@localhost"
	}
	return &Store{cfg: cfg, now: time.Now, commit: (*git.Worktree).Commit}
}

// Name implements store.Store.
func (s *Store) Name() string { return "git" }

// Preflight implements store.Preflighter.
func (s *Store) Preflight() error {
	if s.cfg.RepoPath == "" {
		return errors.ConfigError("git repository path not configured").WithContext("env", "GIT_REPO_PATH").Build()
	}
	return nil
}

func (s *Store) open() (*git.Repository, error) {
	if s.repo != nil {
		return s.repo, nil
	}
	repo, err := git.PlainOpen(s.cfg.RepoPath)
	if stderrors.Is(err, git.ErrRepositoryNotExists) {
		if mkErr := os.MkdirAll(s.cfg.RepoPath, 0o750); mkErr != nil {
			return nil, errors.StoreError("create repository directory").WithCause(mkErr).NotRetryable().Build()
		}
		repo, err = git.PlainInit(s.cfg.RepoPath, false)
	}
	if err != nil {
		return nil, errors.StoreError("open repository").
			WithCause(err).
			NotRetryable().
			WithContext("repo_path", s.cfg.RepoPath).
			Build()
	}
	s.repo = repo
	return repo, nil
}

// headBlob returns the blob hash and content of path in the HEAD tree. A repository without
// commits, or a HEAD tree without the file, reports found == false.
func headBlob(repo *git.Repository, path string) (hash plumbing.Hash, data []byte, found bool, err error) {
	ref, err := repo.Head()
	if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
		return plumbing.ZeroHash, nil, false, nil
	}
	if err != nil {
		return plumbing.ZeroHash, nil, false, err
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return plumbing.ZeroHash, nil, false, err
	}
	file, err := commit.File(path)
	if stderrors.Is(err, object.ErrFileNotFound) {
		return plumbing.ZeroHash, nil, false, nil
	}
	if err != nil {
		return plumbing.ZeroHash, nil, false, err
	}
	contents, err := file.Contents()
	if err != nil {
		return plumbing.ZeroHash, nil, false, err
	}
	return file.Hash, []byte(contents), true, nil
}

func cleanPath(p string) string {
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(p)), "/")
}

// Read implements store.Store.
func (s *Store) Read(ctx context.Context, path string) (*store.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NetworkError("read cancelled").WithCause(err).Build()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := s.open()
	if err != nil {
		return nil, err
	}
	path = cleanPath(path)
	hash, data, found, err := headBlob(repo, path)
	if err != nil {
		return nil, errors.StoreError("read HEAD tree").WithCause(err).NotRetryable().WithContext("path", path).Build()
	}
	if !found {
		return nil, errors.NotFoundError("file not found at HEAD").WithContext("path", path).Build()
	}
	return &store.Snapshot{Version: store.Version(hash.String()), Data: data}, nil
}

// Write implements store.Store.
func (s *Store) Write(ctx context.Context, path string, data []byte, expected store.Version, message string) (*store.Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NetworkError("write cancelled").WithCause(err).Build()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := s.open()
	if err != nil {
		return nil, err
	}
	path = cleanPath(path)

	current, headData, found, err := headBlob(repo, path)
	if err != nil {
		return nil, errors.StoreError("read HEAD tree").WithCause(err).NotRetryable().WithContext("path", path).Build()
	}
	var currentVersion store.Version
	if found {
		currentVersion = store.Version(current.String())
	}
	if currentVersion != expected {
		return nil, store.Conflict(s.Name(), path, expected, currentVersion)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, errors.StoreError("open worktree").WithCause(err).NotRetryable().Build()
	}
	abs := filepath.Join(s.cfg.RepoPath, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
		return nil, errors.StoreError("create content directory").WithCause(err).NotRetryable().Build()
	}

	// Failures past this point put the path back to its HEAD state.
	fail := func(msg string, cause error) error {
		b := errors.StoreError(msg).WithCause(cause).NotRetryable().WithContext("path", path)
		if rbErr := restore(wt, abs, path, headData, found); rbErr != nil {
			b = b.WithContext("rollback_error", rbErr.Error())
		}
		return b.Build()
	}

	if err := os.WriteFile(abs, data, 0o600); err != nil {
		return nil, fail("write content file", err)
	}
	if _, err := wt.Add(path); err != nil {
		return nil, fail("stage content file", err)
	}

	commit, err := s.commit(wt, message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  s.cfg.AuthorName,
			Email: s.cfg.AuthorEmail,
			When:  s.now(),
		},
		AllowEmptyCommits: true,
	})
	if err != nil {
		return nil, fail("commit content", err)
	}

	blob := plumbing.ComputeHash(plumbing.BlobObject, data)
	return &store.Revision{Version: store.Version(blob.String()), Reference: commit.String()}, nil
}

// restore puts path back to its HEAD state in both the worktree and the index. A path that
// is absent from HEAD is removed.
func restore(wt *git.Worktree, abs, path string, headData []byte, found bool) error {
	if !found {
		if _, err := wt.Remove(path); err == nil {
			return nil
		}
		if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	if err := os.WriteFile(abs, headData, 0o600); err != nil {
		return err
	}
	return wt.Reset(&git.ResetOptions{Mode: git.MixedReset, Files: []string{path}})
}
