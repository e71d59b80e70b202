package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitepublisher/internal/content"
	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/publish"
	"git.home.luguber.info/inful/sitepublisher/internal/server/responses"
)

// RemoteClient talks to a running publisher over its HTTP API.
type RemoteClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewRemoteClient returns a client for baseURL. token is sent as a bearer token when set.
func NewRemoteClient(baseURL, token string, httpClient *http.Client) *RemoteClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &RemoteClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// Publish posts doc to the publish endpoint.
func (c *RemoteClient) Publish(ctx context.Context, doc any, targetIDs ...string) (*publish.Outcome, error) {
	valid, err := content.FromValue(doc)
	if err != nil {
		return nil, err
	}
	body, err := content.Marshal(valid)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	if len(targetIDs) > 0 {
		q.Set("targets", strings.Join(targetIDs, ","))
	}

	status, data, err := c.do(ctx, http.MethodPost, "/api/publish", q, body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, decodeFailure(status, data)
	}
	var resp responses.PublishResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errors.NetworkError("malformed publish response").WithCause(err).NotRetryable().Build()
	}
	return resp.Outcome(), nil
}

// Fetch reads the published document of a target.
func (c *RemoteClient) Fetch(ctx context.Context, targetID string) (*publish.Snapshot, error) {
	q := url.Values{}
	if targetID != "" {
		q.Set("target", targetID)
	}
	status, data, err := c.do(ctx, http.MethodGet, "/api/content", q, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, decodeFailure(status, data)
	}
	var resp responses.ContentResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errors.NetworkError("malformed content response").WithCause(err).NotRetryable().Build()
	}
	doc, err := content.FromValue(resp.Document)
	if err != nil {
		return nil, err
	}
	return &publish.Snapshot{Target: resp.Target, Version: resp.Version, Document: doc}, nil
}

func (c *RemoteClient) do(ctx context.Context, method, path string, q url.Values, body []byte) (int, []byte, error) {
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rdr)
	if err != nil {
		return 0, nil, errors.ConfigError("invalid publisher URL").WithCause(err).WithContext("url", c.baseURL).Build()
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, errors.NetworkError("publisher unreachable").WithCause(err).WithContext("url", c.baseURL).Build()
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.NetworkError("failed to read publisher response").WithCause(err).Build()
	}
	return resp.StatusCode, data, nil
}

// decodeFailure turns an error body back into a classified error.
func decodeFailure(status int, data []byte) error {
	var body struct {
		Error   string          `json:"error"`
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		return errors.NetworkError(fmt.Sprintf("publisher returned HTTP %d", status)).
			NotRetryable().
			WithContext("status", status).
			Build()
	}

	if errors.ErrorCategory(body.Code) == errors.CategoryPublish {
		var details []publish.Detail
		if err := json.Unmarshal(body.Details, &details); err == nil && len(details) > 0 {
			failed := make([]publish.TargetResult, len(details))
			for i, d := range details {
				failed[i] = publish.TargetResult{Kind: publish.KindFailure, Target: d.Target, Stage: d.Stage, Reason: d.Reason}
			}
			return publish.NewAllTargetsFailed("", failed)
		}
	}

	category := errors.ErrorCategory(body.Code)
	if category == "" {
		category = errors.CategoryInternal
	}
	return errors.NewError(category, body.Error).WithContext("status", status).Build()
}
