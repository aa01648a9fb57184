// Package rerr implements the transfer error taxonomy: a small set of
// typed errors, each carrying the terminal exit code its class maps to, so
// the session orchestrator can compute the session's single exit code by
// taking the worst code observed across every fallible operation.
package rerr

import "fmt"

// Code is an rsync process exit code.
type Code int

// Exit codes rsync defines. Only the ones this core can itself produce
// are given constants; codes belonging to collaborators out of scope
// (remote shell failures 124-127, SIGINT/TERM/HUP 20, waitpid 21) are
// passed through untouched by whatever wraps this engine.
const (
	CodeSuccess           Code = 0
	CodeSyntax            Code = 1
	CodeProtocolIncompat  Code = 2
	CodeSelection         Code = 3
	CodeUnsupported       Code = 4
	CodeStartup           Code = 5
	CodeLogFile           Code = 6
	CodeSocketIO          Code = 10
	CodeFileIO            Code = 11
	CodeProtocolStream    Code = 12
	CodeDiagnostics       Code = 13
	CodeIPC               Code = 14
	CodeSiblingCrash      Code = 15
	CodeSiblingTerminated Code = 16
	CodeAllocation        Code = 22
	CodePartialTransfer   Code = 23
	CodeVanishedFiles     Code = 24
	CodeMaxDelete         Code = 25
	CodeDataTimeout       Code = 30
	CodeDaemonConnect     Code = 35
)

// Class names the broad category of an error. Each class has a
// fixed retry/fatality policy: Protocol and Transport errors are never
// retried; PerFile errors are retried exactly once; Policy and Config
// errors abort only the affected operation, not the session. There is no
// allocation class: CodeAllocation exists only as an exit code.
type Class int

const (
	ClassProtocol Class = iota
	ClassTransport
	ClassPerFile
	ClassPolicy
	ClassConfig
)

// Error is the taxonomy-tagged error every fallible core operation
// returns. Wrap it with fmt.Errorf's %w to preserve ExitCode()/Class()
// through further context.
type Error struct {
	class   Class
	code    Code
	ndx     int32 // valid only for ClassPerFile; the affected file index
	hasNdx  bool
	message string
	cause   error
}

// New builds a taxonomy error of class with the given exit code and
// message, wrapping cause (which may be nil).
func New(class Class, code Code, message string, cause error) *Error {
	return &Error{class: class, code: code, message: message, cause: cause}
}

// NewPerFile builds a ClassPerFile error carrying the affected file's NDX
// (per-file errors are encapsulated in MSG_ERROR_XFER frames
// carrying the file index).
func NewPerFile(ndx int32, code Code, message string, cause error) *Error {
	return &Error{class: ClassPerFile, code: code, ndx: ndx, hasNdx: true, message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap exposes cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// ExitCode returns the process exit code this error maps to.
func (e *Error) ExitCode() Code { return e.code }

// Class returns the error's taxonomy class.
func (e *Error) Class() Class { return e.class }

// NDX returns the affected file index and whether one is set (only for
// ClassPerFile errors).
func (e *Error) NDX() (int32, bool) { return e.ndx, e.hasNdx }

// Retryable reports whether this error's class permits exactly one retry
func (e *Error) Retryable() bool { return e.class == ClassPerFile }

// Fatal reports whether this error's class terminates the whole session
// rather than just the affected operation (the protocol and transport
// classes).
func (e *Error) Fatal() bool {
	switch e.class {
	case ClassProtocol, ClassTransport:
		return true
	default:
		return false
	}
}

// WorstCode folds a new exit code into the running worst-code accumulator
// a: success (0) never overrides a prior failure, and among failures the
// first one observed wins.
func WorstCode(a, b Code) Code {
	if a != CodeSuccess {
		return a
	}
	return b
}
