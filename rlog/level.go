// Package rlog implements the engine's structured logging: a LogLevel
// type implementing pflag.Value so it can be wired to a CLI flag, and a
// log/slog.Handler carrying the syslog-style levels (EMERGENCY, ALERT,
// CRITICAL, NOTICE) slog's four built-in levels lack.
package rlog

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
)

var _ pflag.Value = (*LogLevel)(nil)

// LogLevel is the syslog-style severity ladder diagnostic lines draw
// their <severity> field from.
type LogLevel int

// Recognized levels, most to least severe.
const (
	LogLevelEmergency LogLevel = iota
	LogLevelAlert
	LogLevelCritical
	LogLevelError
	LogLevelWarning
	LogLevelNotice
	LogLevelInfo
	LogLevelDebug
)

var levelNames = [...]string{
	"EMERGENCY", "ALERT", "CRITICAL", "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG",
}

// String renders the level's name, used both in log output and as the
// pflag.Value string form.
func (l LogLevel) String() string {
	if int(l) >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("LogLevel(%d)", int(l))
}

// Set implements pflag.Value, accepting either a level name or its
// integer value, so LogLevel can back a --log-level flag directly.
func (l *LogLevel) Set(s string) error {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range levelNames {
		if name == upper {
			*l = LogLevel(i)
			return nil
		}
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n < 0 || n >= len(levelNames) {
		return fmt.Errorf("rlog: invalid log level %q", s)
	}
	*l = LogLevel(n)
	return nil
}

// Type implements pflag.Value.
func (l LogLevel) Type() string { return "LogLevel" }

// slogLevel maps a LogLevel onto the slog.Level arithmetic space,
// spacing the syslog extras evenly around slog's four built-ins (NOTICE
// sits between Info and Warn, CRITICAL/ALERT/EMERGENCY sit above Error).
func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelEmergency:
		return LevelEmergency
	case LogLevelAlert:
		return LevelAlert
	case LogLevelCritical:
		return LevelCritical
	case LogLevelError:
		return slog.LevelError
	case LogLevelWarning:
		return slog.LevelWarn
	case LogLevelNotice:
		return LevelNotice
	case LogLevelInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// Extra slog.Level values beyond the four stdlib defines, spaced around
// slog.LevelInfo and slog.LevelError.
const (
	LevelNotice    = slog.LevelInfo + 2
	LevelCritical  = slog.LevelError + 2
	LevelAlert     = slog.LevelError + 4
	LevelEmergency = slog.LevelError + 6
)

// slogLevelName renders a slog.Level through the syslog ladder, falling
// back to slog's own String() for any level this ladder doesn't name.
func slogLevelName(level slog.Level) string {
	switch {
	case level == slog.LevelDebug:
		return "DEBUG"
	case level == slog.LevelInfo:
		return "INFO"
	case level == LevelNotice:
		return "NOTICE"
	case level == slog.LevelWarn:
		return "WARNING"
	case level == slog.LevelError:
		return "ERROR"
	case level == LevelCritical:
		return "CRITICAL"
	case level == LevelAlert:
		return "ALERT"
	case level == LevelEmergency:
		return "EMERGENCY"
	default:
		return level.String()
	}
}
