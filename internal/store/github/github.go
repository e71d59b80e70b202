// Package github stores site content as files in a GitHub repository through the
// contents API. The blob SHA returned by a read is the version token; GitHub rejects a
// PUT whose sha no longer matches the file on the branch.
package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/store"
)

// DefaultAPIURL is the public GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com"

// Config identifies the repository and credential used for content commits.
type Config struct {
	Token  string
	Repo   string // "owner/name"
	Branch string
	APIURL string
}

// Store implements store.Store against one repository branch.
type Store struct {
	cfg    Config
	client *apiClient
}

// New creates a store. It never fails on missing credentials; those are reported by
// Preflight so a misconfigured process still starts and answers with a configuration error.
func New(cfg Config, httpClient *http.Client) *Store {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Store{cfg: cfg, client: newAPIClient(httpClient, cfg.APIURL, cfg.Token)}
}

// Name implements store.Store.
func (s *Store) Name() string { return "github" }

// Preflight implements store.Preflighter.
func (s *Store) Preflight() error {
	if s.cfg.Token == "" {
		return errors.ConfigError("GitHub token not configured").
			WithContext("env", "GITHUB_TOKEN").
			Build()
	}
	owner, name, ok := strings.Cut(s.cfg.Repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return errors.ConfigError("GitHub repository must be in owner/name form").
			WithContext("env", "GITHUB_REPO").
			WithContext("repo", s.cfg.Repo).
			Build()
	}
	return nil
}

type contentsResponse struct {
	Type     string `json:"type"`
	SHA      string `json:"sha"`
	Size     int64  `json:"size"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

type blobResponse struct {
	SHA      string `json:"sha"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

type putContentsRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch"`
}

type putContentsResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
	Commit struct {
		SHA     string `json:"sha"`
		HTMLURL string `json:"html_url"`
	} `json:"commit"`
}

// Read implements store.Store.
func (s *Store) Read(ctx context.Context, filePath string) (*store.Snapshot, error) {
	endpoint := fmt.Sprintf("repos/%s/contents/%s?ref=%s", s.cfg.Repo, strings.TrimPrefix(filePath, "/"), url.QueryEscape(s.cfg.Branch))
	req, err := s.client.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var resp contentsResponse
	if err := s.client.do(req, &resp); err != nil {
		return nil, err
	}
	if resp.Type != "" && resp.Type != "file" {
		return nil, errors.StoreError("content path is not a file").
			NotRetryable().
			WithContext("path", filePath).
			WithContext("type", resp.Type).
			Build()
	}

	content, encoding := resp.Content, resp.Encoding
	// Files over 1MB come back without inline content; fetch the blob instead.
	if content == "" && resp.Size > 0 {
		blob, err := s.readBlob(ctx, resp.SHA)
		if err != nil {
			return nil, err
		}
		content, encoding = blob.Content, blob.Encoding
	}

	data, err := decodeContent(content, encoding)
	if err != nil {
		return nil, errors.StoreError("failed to decode file content").
			WithCause(err).
			NotRetryable().
			WithContext("path", filePath).
			Build()
	}
	return &store.Snapshot{Version: store.Version(resp.SHA), Data: data}, nil
}

func (s *Store) readBlob(ctx context.Context, sha string) (*blobResponse, error) {
	req, err := s.client.newRequest(ctx, http.MethodGet, fmt.Sprintf("repos/%s/git/blobs/%s", s.cfg.Repo, sha), nil)
	if err != nil {
		return nil, err
	}
	var blob blobResponse
	if err := s.client.do(req, &blob); err != nil {
		return nil, err
	}
	return &blob, nil
}

// Write implements store.Store. The commit is made on the configured branch.
func (s *Store) Write(ctx context.Context, filePath string, data []byte, expected store.Version, message string) (*store.Revision, error) {
	body := putContentsRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(data),
		SHA:     string(expected),
		Branch:  s.cfg.Branch,
	}
	req, err := s.client.newRequest(ctx, http.MethodPut, fmt.Sprintf("repos/%s/contents/%s", s.cfg.Repo, strings.TrimPrefix(filePath, "/")), body)
	if err != nil {
		return nil, err
	}
	var resp putContentsResponse
	if err := s.client.do(req, &resp); err != nil {
		if errors.HasCategory(err, errors.CategoryConflict) {
			return nil, errors.ConflictError("stale version token rejected").
				WithCause(&store.ConflictError{Path: filePath, Expected: expected}).
				WithContext("store", s.Name()).
				WithContext("path", filePath).
				WithContext("github_error", err.Error()).
				Build()
		}
		return nil, err
	}
	return &store.Revision{Version: store.Version(resp.Content.SHA), Reference: resp.Commit.SHA}, nil
}

func decodeContent(content, encoding string) ([]byte, error) {
	switch encoding {
	case "base64":
		// GitHub wraps base64 payloads at 60 columns.
		return base64.StdEncoding.DecodeString(strings.ReplaceAll(content, "\n", ""))
	case "", "none", "utf-8":
		return []byte(content), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}
