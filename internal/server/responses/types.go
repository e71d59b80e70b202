// Package responses defines the JSON bodies written by the publisher's HTTP handlers.
package responses

import (
	"time"

	"git.home.luguber.info/inful/sitepublisher/internal/history"
	"git.home.luguber.info/inful/sitepublisher/internal/publish"
	"git.home.luguber.info/inful/sitepublisher/internal/store"
)

// PublishResponse is the 200 body of the publish endpoint. FilesUpdated and FilesFailed
// list the stored paths of the written and failed targets.
type PublishResponse struct {
	Success             bool                   `json:"success"`
	Message             string                 `json:"message"`
	Commit              string                 `json:"commit"`
	FilesUpdated        []string               `json:"filesUpdated"`
	FilesFailed         []string               `json:"filesFailed"`
	Errors              []FileError            `json:"errors,omitempty"`
	DeploymentTriggered bool                   `json:"deploymentTriggered"`
	PublishID           string                 `json:"publishId"`
	Targets             []publish.TargetResult `json:"targets"`
}

// FileError describes one failed target in a partially successful publish.
type FileError struct {
	File   string        `json:"file"`
	Target string        `json:"target"`
	Stage  publish.Stage `json:"stage"`
	Error  string        `json:"error"`
}

// Messages returned by the publish endpoint.
const (
	MessagePublished          = "Site content published successfully"
	MessagePartiallyPublished = "Site content published with errors"
)

// NewPublishResponse renders an outcome for API callers.
func NewPublishResponse(o *publish.Outcome) PublishResponse {
	resp := PublishResponse{
		Success:             o.OverallSuccess,
		Message:             MessagePublished,
		Commit:              o.Reference,
		FilesUpdated:        make([]string, 0, len(o.Succeeded)),
		FilesFailed:         make([]string, 0, len(o.Failed)),
		DeploymentTriggered: o.DeploymentTriggered,
		PublishID:           o.PublishID,
		Targets:             make([]publish.TargetResult, 0, len(o.Succeeded)+len(o.Failed)),
	}
	for _, r := range o.Succeeded {
		resp.FilesUpdated = append(resp.FilesUpdated, r.Path)
		resp.Targets = append(resp.Targets, r)
	}
	for _, r := range o.Failed {
		resp.FilesFailed = append(resp.FilesFailed, r.Path)
		resp.Errors = append(resp.Errors, FileError{File: r.Path, Target: r.Target, Stage: r.Stage, Error: r.Reason})
		resp.Targets = append(resp.Targets, r)
	}
	if o.Partial() {
		resp.Message = MessagePartiallyPublished
	}
	return resp
}

// Outcome rebuilds a publish outcome from a decoded response.
func (p PublishResponse) Outcome() *publish.Outcome {
	o := &publish.Outcome{
		PublishID:           p.PublishID,
		OverallSuccess:      p.Success,
		DeploymentTriggered: p.DeploymentTriggered,
		Reference:           p.Commit,
		Succeeded:           []publish.TargetResult{},
		Failed:              []publish.TargetResult{},
	}
	for _, r := range p.Targets {
		if r.IsSuccess() {
			o.Succeeded = append(o.Succeeded, r)
		} else {
			o.Failed = append(o.Failed, r)
		}
	}
	return o
}

// ErrorResponse mirrors the payload written by the HTTP error adapter.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   any    `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// FailureResponse is the 500 body of a publish in which every target failed.
type FailureResponse struct {
	Error   string           `json:"error"`
	Code    string           `json:"code,omitempty"`
	Details []publish.Detail `json:"details"`
}

// ContentResponse is the body of GET /api/content.
type ContentResponse struct {
	Target   string         `json:"target"`
	Version  store.Version  `json:"version"`
	Document map[string]any `json:"document"`
}

// HistoryResponse is the body of GET /api/history.
type HistoryResponse struct {
	Publishes []history.Entry `json:"publishes"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	Version        string    `json:"version"`
	Uptime         float64   `json:"uptime"`
	Targets        []string  `json:"targets"`
	TriggerEnabled bool      `json:"triggerEnabled"`
	Problem        string    `json:"problem,omitempty"`
}
