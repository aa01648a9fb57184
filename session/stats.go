package session

import (
	"sync"

	"github.com/nthconn/rsyncgo/rerr"
)

// DeletionCounts is the five-varint payload following NDX_DEL_STATS:
// {files, dirs, symlinks, devices, specials}.
type DeletionCounts struct {
	Files    int64
	Dirs     int64
	Symlinks int64
	Devices  int64
	Specials int64
}

// IO_ERROR flag bits, OR'd into the 4-byte LE payload of a TagIOError
// frame so one side's trouble reaches the other side's exit code.
const (
	IOErrGeneral  int32 = 1 << 0
	IOErrVanished int32 = 1 << 1
	IOErrDelLimit int32 = 1 << 2
)

// Stats aggregates one session's outcome: every per-file outcome
// increments exactly one counter here, and ExitCode folds the counters
// down to the single exit code a session must produce.
type Stats struct {
	mu sync.Mutex

	FilesTransferred int64
	BytesTransferred int64

	PartialFailures int64 // per-file errors surviving one redo (exit 23)
	Vanished        int64 // MSG_NO_SEND indices (exit 24)
	MaxDeleteHit    bool  // --max-delete cap reached (exit 25)

	IOErrFlags int32 // IOErr* bits, local and peer-reported combined

	Deletions DeletionCounts

	fatal *rerr.Error // set by a protocol/transport-class error; wins outright
}

func (s *Stats) RecordTransfer(bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FilesTransferred++
	s.BytesTransferred += bytes
}

func (s *Stats) RecordPartialFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PartialFailures++
}

func (s *Stats) RecordVanished() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Vanished++
}

func (s *Stats) RecordMaxDeleteHit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MaxDeleteHit = true
}

func (s *Stats) RecordIOErr(flags int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.IOErrFlags |= flags
}

// Totals returns the transferred file and byte counters for the STATS
// frame.
func (s *Stats) Totals() (files, bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.FilesTransferred, s.BytesTransferred
}

func (s *Stats) RecordFatal(err *rerr.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fatal == nil {
		s.fatal = err
	}
}

// ExitCode computes the session's single terminating exit code,
// in priority order: a recorded fatal (protocol/transport-class) error
// always wins, then partial failures (23), then vanished sources
// (24), then the max-delete cap (25), then success (0).
func (s *Stats) ExitCode() rerr.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fatal != nil {
		return s.fatal.ExitCode()
	}
	if s.PartialFailures > 0 || s.IOErrFlags&IOErrGeneral != 0 {
		return rerr.CodePartialTransfer
	}
	if s.Vanished > 0 || s.IOErrFlags&IOErrVanished != 0 {
		return rerr.CodeVanishedFiles
	}
	if s.MaxDeleteHit || s.IOErrFlags&IOErrDelLimit != 0 {
		return rerr.CodeMaxDelete
	}
	return rerr.CodeSuccess
}
