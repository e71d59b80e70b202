package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepublisher/internal/content"
	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/publish"
	"git.home.luguber.info/inful/sitepublisher/internal/server/responses"
	"git.home.luguber.info/inful/sitepublisher/internal/store/github"
	"git.home.luguber.info/inful/sitepublisher/internal/store/memory"
)

type stubPublisher struct {
	preflightErr error
	outcome      *publish.Outcome
	err          error

	calls      int
	doc        any
	targets    []string
	preflights [][]string
}

func (s *stubPublisher) Preflight(targetIDs ...string) error {
	s.preflights = append(s.preflights, targetIDs)
	return s.preflightErr
}

func (s *stubPublisher) Publish(_ context.Context, doc any, targetIDs ...string) (*publish.Outcome, error) {
	s.calls++
	s.doc = doc
	s.targets = targetIDs
	return s.outcome, s.err
}

func doPublish(t *testing.T, h *PublishHandlers, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.HandlePublish(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) responses.ErrorResponse {
	t.Helper()
	var body responses.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestHandlePublish_Options(t *testing.T) {
	p := &stubPublisher{}
	rec := doPublish(t, NewPublishHandlers(p, 0), http.MethodOptions, "/api/publish", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Zero(t, p.calls)
}

func TestHandlePublish_MethodNotAllowed(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			p := &stubPublisher{}
			rec := doPublish(t, NewPublishHandlers(p, 0), method, "/api/publish", `{"a":1}`)
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Allow"))
			assert.Equal(t, "Method not allowed", decodeError(t, rec).Error)
			assert.Zero(t, p.calls)
		})
	}
}

func TestHandlePublish_NotConfigured(t *testing.T) {
	p := &stubPublisher{preflightErr: errors.ConfigError("GitHub token not configured").Build()}
	rec := doPublish(t, NewPublishHandlers(p, 0), http.MethodPost, "/api/publish", `{"a":1}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "GitHub token not configured", decodeError(t, rec).Error)
	assert.Zero(t, p.calls)

	rec = doPublish(t, NewPublishHandlers(nil, 0), http.MethodPost, "/api/publish", `{"a":1}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandlePublish_ConfigCheckedBeforeBody(t *testing.T) {
	p := &stubPublisher{preflightErr: errors.ConfigError("GitHub token not configured").Build()}
	rec := doPublish(t, NewPublishHandlers(p, 0), http.MethodPost, "/api/publish", `null`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandlePublish_InvalidBody(t *testing.T) {
	bodies := map[string]string{
		"null":      `null`,
		"empty":     "",
		"array":     `[1,2]`,
		"string":    `"hello"`,
		"malformed": `{"a":`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			p := &stubPublisher{}
			rec := doPublish(t, NewPublishHandlers(p, 0), http.MethodPost, "/api/publish", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Invalid site data provided", decodeError(t, rec).Error)
			assert.Zero(t, p.calls)
		})
	}
}

func TestHandlePublish_BodyTooLarge(t *testing.T) {
	p := &stubPublisher{}
	rec := doPublish(t, NewPublishHandlers(p, 16), http.MethodPost, "/api/publish", `{"a":"0123456789012345678901234567890"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, p.calls)
}

func TestHandlePublish_AllTargetsFailed(t *testing.T) {
	s := memory.New()
	o, err := publish.New([]publish.Target{
		{ID: "primary", Store: s, Path: "src/data/siteContent.json"},
		{ID: "public", Store: s, Path: "public/siteContent.json"},
	}, publish.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Close() })

	rec := doPublish(t, NewPublishHandlers(o, 0), http.MethodPost, "/api/publish", `{"a":1}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body responses.FailureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Error)
	require.Len(t, body.Details, 2)
	assert.Equal(t, "primary", body.Details[0].Target)
	assert.Equal(t, publish.StageRead, body.Details[0].Stage)
	assert.Equal(t, "public", body.Details[1].Target)
	assert.Contains(t, body.Details[1].Reason, "not found")
}

func TestHandlePublish_PartialSuccess(t *testing.T) {
	p := &stubPublisher{outcome: &publish.Outcome{
		PublishID:      "pub-1",
		OverallSuccess: true,
		Reference:      "abc123",
		Succeeded: []publish.TargetResult{
			{Kind: publish.KindSuccess, Target: "primary", Path: "src/data/siteContent.json", Version: "v2", Reference: "abc123"},
		},
		Failed: []publish.TargetResult{
			{Kind: publish.KindFailure, Target: "public", Path: "public/siteContent.json", Stage: publish.StageWrite, Reason: "version conflict: stale"},
		},
	}}
	rec := doPublish(t, NewPublishHandlers(p, 0), http.MethodPost, "/api/publish?targets=primary,public", `{"sections":{"team":{"title":"B"}}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body responses.PublishResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, responses.MessagePartiallyPublished, body.Message)
	assert.Equal(t, "abc123", body.Commit)
	assert.Equal(t, []string{"src/data/siteContent.json"}, body.FilesUpdated)
	assert.Equal(t, []string{"public/siteContent.json"}, body.FilesFailed)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "public", body.Errors[0].Target)
	assert.False(t, body.DeploymentTriggered)

	assert.Equal(t, []string{"primary", "public"}, p.targets)
	doc, ok := p.doc.(content.Document)
	require.True(t, ok)
	title, err := content.GetAtPath(doc, "sections.team.title")
	require.NoError(t, err)
	assert.Equal(t, "B", title)
}

func TestHandlePublish_FullSuccessOmitsErrors(t *testing.T) {
	p := &stubPublisher{outcome: &publish.Outcome{
		PublishID:           "pub-2",
		OverallSuccess:      true,
		DeploymentTriggered: true,
		Succeeded: []publish.TargetResult{
			{Kind: publish.KindSuccess, Target: "primary", Path: "a.json"},
		},
	}}
	rec := doPublish(t, NewPublishHandlers(p, 0), http.MethodPost, "/.netlify/functions/publish", `{"a":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.NotContains(t, raw, "errors")
	assert.Equal(t, responses.MessagePublished, raw["message"])
	assert.Equal(t, true, raw["deploymentTriggered"])
	assert.Equal(t, []any{}, raw["filesFailed"])
}

func TestHandlePublish_PreflightsSelectedTargets(t *testing.T) {
	p := &stubPublisher{outcome: &publish.Outcome{OverallSuccess: true}}
	rec := doPublish(t, NewPublishHandlers(p, 0), http.MethodPost, "/api/publish?targets=primary", `{"a":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, [][]string{{"primary"}}, p.preflights)
}

func TestHandlePublish_UnselectedMisconfiguredTarget(t *testing.T) {
	s := memory.New()
	s.Put("src/data/siteContent.json", []byte(`{"a":0}`))
	o, err := publish.New([]publish.Target{
		{ID: "primary", Store: s, Path: "src/data/siteContent.json"},
		{ID: "public", Store: github.New(github.Config{Repo: "acme/site"}, nil), Path: "public/siteContent.json"},
	}, publish.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Close() })
	h := NewPublishHandlers(o, 0)

	rec := doPublish(t, h, http.MethodPost, "/api/publish?targets=primary", `{"a":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body responses.PublishResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"src/data/siteContent.json"}, body.FilesUpdated)

	rec = doPublish(t, h, http.MethodPost, "/api/publish", `{"a":1}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "GitHub token not configured", decodeError(t, rec).Error)
}
