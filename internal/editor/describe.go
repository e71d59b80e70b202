package editor

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/publish"
)

// Level grades a user-visible message.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is what an editing UI shows after a publish.
type Message struct {
	Level Level
	Text  string
}

func (m Message) String() string { return m.Text }

// Describe renders the result of a publish: total failure, partial success naming the
// failed targets, or full success.
func Describe(outcome *publish.Outcome, err error) Message {
	if err != nil {
		if all, ok := publish.AsAllTargetsFailed(err); ok {
			reasons := make([]string, len(all.Failed))
			for i, f := range all.Failed {
				reasons[i] = fmt.Sprintf("%s: %s", f.Target, f.Reason)
			}
			return Message{
				Level: LevelError,
				Text:  "Publishing failed. No changes were saved (" + strings.Join(reasons, "; ") + ").",
			}
		}
		text := err.Error()
		if c, ok := errors.AsClassified(err); ok {
			text = c.Message()
		}
		return Message{Level: LevelError, Text: "Publishing failed: " + text + "."}
	}
	if outcome == nil || !outcome.OverallSuccess {
		return Message{Level: LevelError, Text: "Publishing failed. No changes were saved."}
	}
	if len(outcome.Failed) > 0 {
		return Message{
			Level: LevelWarning,
			Text: fmt.Sprintf("Published with errors: %s could not be updated. Other copies were saved.",
				strings.Join(outcome.FailedTargets(), ", ")),
		}
	}
	text := "Changes published successfully."
	if outcome.DeploymentTriggered {
		text += " The site will update shortly."
	}
	return Message{Level: LevelSuccess, Text: text}
}
