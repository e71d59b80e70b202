package deploy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
)

// Webhook POSTs an empty body to a build-hook URL. It never retries; a non-2xx response
// is an error.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook returns a webhook trigger. The caller's context bounds each call.
func NewWebhook(url string, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{}
	}
	return &Webhook{url: url, client: client}
}

func (w *Webhook) Name() string { return "webhook" }

// Fire implements Trigger.
func (w *Webhook) Fire(ctx context.Context, _ Event) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, http.NoBody)
	if err != nil {
		return errors.DeployError("failed to build deployment request").WithCause(err).Build()
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return errors.DeployError("deployment trigger request failed").
			WithCause(err).
			WithContext("trigger", w.Name()).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return errors.DeployError(fmt.Sprintf("deployment trigger returned %s", resp.Status)).
			WithContext("trigger", w.Name()).
			WithContext("code", resp.StatusCode).
			WithContext("response", strings.TrimSpace(string(body))).
			Build()
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
