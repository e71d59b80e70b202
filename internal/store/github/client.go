package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
)

// apiClient holds the HTTP plumbing shared by every GitHub REST call: URL building,
// auth headers and status-to-category mapping.
type apiClient struct {
	httpClient *http.Client
	apiURL     string
	token      string
	userAgent  string
	headers    map[string]string
}

func newAPIClient(httpClient *http.Client, apiURL, token string) *apiClient {
	return &apiClient{
		httpClient: httpClient,
		apiURL:     apiURL,
		token:      token,
		userAgent:  "SitePublisher/1.0",
		headers: map[string]string{
			"Accept":               "application/vnd.github+json",
			"X-GitHub-Api-Version": "2022-11-28",
		},
	}
}

// newRequest builds a request against the API base URL. endpoint is relative, like
// "repos/{owner}/{repo}/contents/{path}", and may carry a query string.
func (c *apiClient) newRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	cleanEndpoint := strings.TrimPrefix(endpoint, "/")

	var rawQuery string
	if idx := strings.Index(cleanEndpoint, "?"); idx != -1 {
		rawQuery = cleanEndpoint[idx+1:]
		cleanEndpoint = cleanEndpoint[:idx]
	}

	u, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, errors.ConfigError("invalid GitHub API URL").
			WithCause(err).
			WithContext("api_url", c.apiURL).
			Build()
	}
	u.Path = path.Join(strings.TrimSuffix(u.Path, "/"), cleanEndpoint)
	u.RawQuery = rawQuery

	reader := io.Reader(http.NoBody)
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.InternalError("failed to marshal request body").WithCause(err).Build()
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, errors.InternalError("failed to create request").
			WithCause(err).
			WithContext("method", method).
			WithContext("url", u.String()).
			Build()
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// do executes req and decodes a JSON response into result when result is non-nil.
func (c *apiClient) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NetworkError("GitHub request failed").
			WithCause(err).
			WithContext("method", req.Method).
			WithContext("url", req.URL.String()).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return statusError(req, resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return errors.StoreError("failed to decode GitHub response").
				WithCause(err).
				NotRetryable().
				Build()
		}
	}
	return nil
}

type apiErrorBody struct {
	Message string `json:"message"`
}

func statusError(req *http.Request, resp *http.Response) error {
	limited, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	bodyStr := strings.ReplaceAll(string(limited), "\n", " ")

	detail := resp.Status
	var apiErr apiErrorBody
	if json.Unmarshal(limited, &apiErr) == nil && apiErr.Message != "" {
		detail = fmt.Sprintf("%s: %s", resp.Status, apiErr.Message)
	}

	var b *errors.ErrorBuilder
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || rateLimited(resp):
		b = errors.StoreError("GitHub rate limit exceeded: " + detail).RateLimit()
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		b = errors.AuthError("GitHub rejected credentials: " + detail)
	case resp.StatusCode == http.StatusNotFound:
		b = errors.NotFoundError("GitHub resource not found: " + detail)
	case resp.StatusCode == http.StatusConflict && branchMoved(apiErr.Message):
		b = errors.StoreError("GitHub branch moved during commit: " + detail)
	case resp.StatusCode == http.StatusConflict:
		b = errors.ConflictError("GitHub rejected the write as a conflict: " + detail)
	case resp.StatusCode == http.StatusUnprocessableEntity && shaRejected(apiErr.Message):
		b = errors.ConflictError("GitHub rejected the write as a conflict: " + detail)
	case resp.StatusCode >= 500:
		b = errors.StoreError("GitHub API error: " + detail)
	default:
		b = errors.StoreError("GitHub API error: " + detail).NotRetryable()
	}

	return b.
		WithContext("status", resp.Status).
		WithContext("code", resp.StatusCode).
		WithContext("url", req.URL.String()).
		WithContext("response", bodyStr).
		Build()
}

func rateLimited(resp *http.Response) bool {
	if resp.StatusCode != http.StatusForbidden {
		return false
	}
	remaining, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	return err == nil && remaining == 0
}

// branchMoved reports a 409 caused by a concurrent commit advancing the branch head
// ("is at X but expected Y"); the file sha may still be current, so the write can be retried.
func branchMoved(message string) bool {
	return strings.Contains(message, " is at ") && strings.Contains(message, "but expected")
}

// shaRejected reports a 422 about the sha field, which GitHub returns when the file exists
// but no sha (or a malformed one) was sent.
func shaRejected(message string) bool {
	return strings.Contains(strings.ToLower(message), "sha")
}
