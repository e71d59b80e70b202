package publish

import (
	"strings"
	"text/template"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
)

// DefaultCommitMessage is used when no commit message is configured.
const DefaultCommitMessage = "Update site content via CMS"

// messageData is the value a commit message template is executed against.
type messageData struct {
	PublishID string
	Target    string
	Path      string
	Store     string
}

type commitMessage struct {
	raw  string
	tmpl *template.Template
}

// parseCommitMessage accepts a literal message or a text/template using the fields of
// messageData, e.g. "CMS update {{.PublishID}} ({{.Target}})".
func parseCommitMessage(raw string) (commitMessage, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultCommitMessage
	}
	if !strings.Contains(raw, "{{") {
		return commitMessage{raw: raw}, nil
	}
	tmpl, err := template.New("commit").Option("missingkey=error").Parse(raw)
	if err != nil {
		return commitMessage{}, errors.ConfigError("invalid commit message template").
			WithCause(err).
			WithContext("template", raw).
			Build()
	}
	return commitMessage{raw: raw, tmpl: tmpl}, nil
}

func (m commitMessage) render(publishID string, t Target) string {
	if m.tmpl == nil {
		return m.raw
	}
	var b strings.Builder
	data := messageData{PublishID: publishID, Target: t.ID, Path: t.Path, Store: t.Store.Name()}
	if err := m.tmpl.Execute(&b, data); err != nil {
		return m.raw
	}
	return b.String()
}
