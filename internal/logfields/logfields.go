package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPublishID  = "publish_id"
	KeyTarget     = "target"
	KeyStore      = "store"
	KeyPath       = "path"
	KeyVersion    = "version"
	KeyReference  = "reference"
	KeyStage      = "stage"
	KeyAttempt    = "attempt"
	KeyOutcome    = "outcome"
	KeyTrigger    = "trigger"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"

	KeyMethod     = "method"
	KeyURLPath    = "url_path"
	KeyStatus     = "status"
	KeyUserAgent  = "user_agent"
	KeyRemoteAddr = "remote_addr"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func PublishID(id string) slog.Attr    { return slog.String(KeyPublishID, id) }
func Target(id string) slog.Attr       { return slog.String(KeyTarget, id) }
func Store(name string) slog.Attr      { return slog.String(KeyStore, name) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Version(v string) slog.Attr       { return slog.String(KeyVersion, v) }
func Reference(r string) slog.Attr     { return slog.String(KeyReference, r) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func Attempt(n int) slog.Attr          { return slog.Int(KeyAttempt, n) }
func Outcome(o string) slog.Attr       { return slog.String(KeyOutcome, o) }
func Trigger(name string) slog.Attr    { return slog.String(KeyTrigger, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Method(m string) slog.Attr        { return slog.String(KeyMethod, m) }
func URLPath(p string) slog.Attr       { return slog.String(KeyURLPath, p) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func UserAgent(ua string) slog.Attr    { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(addr string) slog.Attr { return slog.String(KeyRemoteAddr, addr) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
