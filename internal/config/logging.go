package config

import (
	"log/slog"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/normalization"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevelNormalizer = normalization.NewNormalizer(map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}, LogLevelInfo)

// NormalizeLogLevel maps user input to a LogLevel; unknown values become info.
func NormalizeLogLevel(raw string) LogLevel {
	return logLevelNormalizer.Normalize(raw)
}

// SlogLevel converts to the slog level.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormatNormalizer = normalization.NewNormalizer(map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

// NormalizeLogFormat maps user input to a LogFormat; unknown values become text.
func NormalizeLogFormat(raw string) LogFormat {
	return logFormatNormalizer.Normalize(raw)
}

var storeKindNormalizer = normalization.NewNormalizer(map[string]StoreKind{
	"github": StoreGitHub,
	"s3":     StoreS3,
	"git":    StoreGit,
	"memory": StoreMemory,
}, "")

// NormalizeStoreKind maps a configured store name to a StoreKind. Unknown kinds are kept
// verbatim so Validate can report them.
func NormalizeStoreKind(raw string) StoreKind {
	if kind, err := storeKindNormalizer.NormalizeWithError(raw); err == nil {
		return kind
	}
	return StoreKind(raw)
}

// StoreKinds lists the accepted store names.
func StoreKinds() []string {
	return storeKindNormalizer.ValidKeys()
}
