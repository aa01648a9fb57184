package rlog

import (
	"context"
	"fmt"
	"log/slog"
)

// Fields attaches session/role/file-index context to a log line - a
// line routinely needs more than one contextual field (role AND file
// index AND negotiated version) at once.
type Fields struct {
	Role    string // "sender" or "receiver"
	Version int    // negotiated protocol version
	NDX     int32  // file index; only meaningful when HasNDX
	HasNDX  bool
	Source  string // implementation source location; not part of the peer wire contract
}

func (f Fields) args() []any {
	args := make([]any, 0, 8)
	if f.Role != "" {
		args = append(args, "role", f.Role)
	}
	if f.Version != 0 {
		args = append(args, "version", fmt.Sprintf("%d", f.Version))
	}
	if f.HasNDX {
		args = append(args, "ndx", f.NDX)
	}
	if f.Source != "" {
		args = append(args, "source", f.Source)
	}
	return args
}

// Debugf logs at DEBUG with the given fields.
func Debugf(f Fields, format string, a ...any) {
	current().Log(context.Background(), slog.LevelDebug, fmt.Sprintf(format, a...), f.args()...)
}

// Infof logs at INFO with the given fields.
func Infof(f Fields, format string, a ...any) {
	current().Log(context.Background(), LevelNotice-2, fmt.Sprintf(format, a...), f.args()...)
}

// Noticef logs at NOTICE with the given fields.
func Noticef(f Fields, format string, a ...any) {
	current().Log(context.Background(), LevelNotice, fmt.Sprintf(format, a...), f.args()...)
}

// Warnf logs at WARNING with the given fields.
func Warnf(f Fields, format string, a ...any) {
	current().Log(context.Background(), slog.LevelWarn, fmt.Sprintf(format, a...), f.args()...)
}

// Errorf logs at ERROR with the given fields and an explicit exit code
// (the "(code N)" diagnostic field).
func Errorf(f Fields, code int, format string, a ...any) {
	args := append(f.args(), "code", code)
	current().Log(context.Background(), LevelCritical-2, fmt.Sprintf(format, a...), args...)
}

// Fatalf logs at CRITICAL, for session-terminating protocol/transport
// errors.
func Fatalf(f Fields, code int, format string, a ...any) {
	args := append(f.args(), "code", code)
	current().Log(context.Background(), LevelCritical, fmt.Sprintf(format, a...), args...)
}
